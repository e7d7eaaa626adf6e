package commands

import (
	"context"
	"errors"

	"github.com/ncobase/querybridge/data/search/bridge"
	"github.com/ncobase/querybridge/data/search/index"
	"github.com/ncobase/querybridge/data/search/results"
	"github.com/spf13/cobra"
)

// settingsFlags select the index declaration: a settings file, or field lists
type settingsFlags struct {
	file       string
	searchable []string
	filterable []string
}

func (f *settingsFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.file, "settings", "", "index settings file (yaml or json)")
	flags.StringSliceVar(&f.searchable, "searchable", nil, "full-text fields, with optional ^boost")
	flags.StringSliceVar(&f.filterable, "filterable", nil, "exact-match fields")
}

func (f *settingsFlags) load() (*index.Settings, error) {
	if f.file != "" {
		return index.Load(f.file)
	}
	if len(f.searchable) == 0 && len(f.filterable) == 0 {
		return nil, errors.New("either --settings or --searchable/--filterable is required")
	}
	return index.FromFieldLists(f.searchable, f.filterable), nil
}

type settingsOp func(*bridge.Bridge, context.Context, *index.Settings) (*results.Results[bool], error)

func newSettingsCommand(a *app, use, short string, run settingsOp) *cobra.Command {
	var f settingsFlags
	cmd := &cobra.Command{
		Use:   use,
		Args:  cobra.NoArgs,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := f.load()
			if err != nil {
				return err
			}
			b, err := a.getBridge()
			if err != nil {
				return err
			}
			res, err := run(b, cmd.Context(), settings)
			return emit(a, cmd, res, err)
		},
	}
	f.bind(cmd)
	return cmd
}

type indexOp func(*bridge.Bridge, context.Context) (*results.Results[bool], error)

func newIndexOpCommand(a *app, use, short string, run indexOp) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Args:  cobra.NoArgs,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := a.getBridge()
			if err != nil {
				return err
			}
			res, err := run(b, cmd.Context())
			return emit(a, cmd, res, err)
		},
	}
}

func newIndexCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "index",
		Args:    cobra.NoArgs,
		Aliases: []string{"idx"},
		Short:   "Index administration",
	}

	cmd.AddCommand(
		newSettingsCommand(a, "create", "Create the index", (*bridge.Bridge).CreateIndex),
		newSettingsCommand(a, "ensure", "Create the index unless it exists", (*bridge.Bridge).EnsureIndex),
		newSettingsCommand(a, "mapping", "Add fields to the index mapping", (*bridge.Bridge).UpdateMapping),
		newSettingsCommand(a, "analyzers", "Replace the index analysis settings", (*bridge.Bridge).UpdateAnalyzers),
		newIndexOpCommand(a, "delete", "Delete the index", (*bridge.Bridge).DeleteIndex),
		newIndexOpCommand(a, "exists", "Report whether the index exists", (*bridge.Bridge).IndexExists),
		newIndexOpCommand(a, "refresh", "Refresh the index", (*bridge.Bridge).RefreshIndex),
	)

	return cmd
}
