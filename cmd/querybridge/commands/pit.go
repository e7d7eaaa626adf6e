package commands

import (
	"errors"

	"github.com/ncobase/querybridge/data/search/query"
	"github.com/ncobase/querybridge/paging"
	"github.com/spf13/cobra"
)

func newPitCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pit",
		Args:  cobra.NoArgs,
		Short: "Point-in-time paging",
	}

	cmd.AddCommand(
		newPitOpenCommand(a),
		newPitSearchCommand(a),
		newPitCloseCommand(a),
	)

	return cmd
}

func newPitOpenCommand(a *app) *cobra.Command {
	var keepAlive string
	cmd := &cobra.Command{
		Use:   "open",
		Args:  cobra.NoArgs,
		Short: "Open a point-in-time on the index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := a.getBridge()
			if err != nil {
				return err
			}
			res, err := b.OpenPit(cmd.Context(), keepAlive)
			return emit(a, cmd, res, err)
		},
	}
	cmd.Flags().StringVar(&keepAlive, "keep-alive", query.DefaultPitKeepAlive, "keep-alive of the point-in-time")
	return cmd
}

func newPitSearchCommand(a *app) *cobra.Command {
	var (
		f      readFlags
		cursor query.PitCursor
		after  string
		token  string
	)
	cmd := &cobra.Command{
		Use:   "search [pit-id]",
		Args:  cobra.MaximumNArgs(1),
		Short: "Read one page of a point-in-time",
		Long: `Read one page of a point-in-time. Pass meta.cursor of a page with --cursor,
or meta.pit_id and meta.search_after, to read the next one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := f.descriptor()
			if err != nil {
				return err
			}
			switch {
			case token != "":
				keepAlive := cursor.KeepAlive
				if cursor, err = paging.DecodeCursor(token); err != nil {
					return err
				}
				if keepAlive != "" {
					cursor.KeepAlive = keepAlive
				}
			case len(args) == 1:
				if cursor.SearchAfter, err = parseSearchAfter(after); err != nil {
					return err
				}
				cursor.ID = args[0]
			default:
				return errors.New("a pit id or --cursor is required")
			}
			b, err := a.getBridge()
			if err != nil {
				return err
			}
			res, err := b.PitSearch(cmd.Context(), desc, cursor)
			return emit(a, cmd, res, err)
		},
	}
	f.bind(cmd, true)
	cmd.Flags().StringVar(&after, "after", "", `search_after cursor as JSON, e.g. '[10,"p1"]'`)
	cmd.Flags().StringVar(&token, "cursor", "", "paging token from meta.cursor")
	cmd.Flags().StringVar(&cursor.KeepAlive, "keep-alive", "", "extend the keep-alive")
	return cmd
}

func newPitCloseCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "close <pit-id>",
		Args:  cobra.ExactArgs(1),
		Short: "Close a point-in-time",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.getBridge()
			if err != nil {
				return err
			}
			res, err := b.ClosePit(cmd.Context(), args[0])
			return emit(a, cmd, res, err)
		},
	}
}
