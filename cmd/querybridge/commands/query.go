package commands

import (
	"errors"

	"github.com/ncobase/querybridge/data/search/query"
	"github.com/spf13/cobra"
)

// readFlags are the descriptor flags shared by read commands
type readFlags struct {
	where     []string
	sort      []string
	skip      int
	limit     int
	columns   []string
	highlight []string
}

func (f *readFlags) bind(cmd *cobra.Command, paging bool) {
	flags := cmd.Flags()
	flags.StringArrayVarP(&f.where, "where", "w", nil, `condition "field=op:value", prefix "or:" to start an OR group`)
	if !paging {
		return
	}
	flags.StringArrayVar(&f.sort, "sort", nil, `sort key "field[:asc|desc]"`)
	flags.IntVar(&f.skip, "skip", 0, "documents to skip")
	flags.IntVar(&f.limit, "limit", 0, "maximum documents to return")
	flags.StringSliceVar(&f.columns, "columns", nil, "columns to return")
	flags.StringSliceVar(&f.highlight, "highlight", nil, "fields to highlight")
}

func (f *readFlags) descriptor() (query.Descriptor, error) {
	conds, err := parseConditions(f.where)
	if err != nil {
		return query.Descriptor{}, err
	}
	sorts, err := parseSorts(f.sort)
	if err != nil {
		return query.Descriptor{}, err
	}
	return query.Descriptor{
		Conditions: conds,
		Columns:    f.columns,
		Options: query.Options{
			Sort:      sorts,
			Skip:      f.skip,
			Limit:     f.limit,
			Highlight: f.highlight,
		},
	}, nil
}

func newFindCommand(a *app) *cobra.Command {
	var f readFlags
	cmd := &cobra.Command{
		Use:   "find",
		Args:  cobra.NoArgs,
		Short: "Find documents matching conditions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			desc, err := f.descriptor()
			if err != nil {
				return err
			}
			b, err := a.getBridge()
			if err != nil {
				return err
			}
			res, err := b.Find(cmd.Context(), desc)
			return emit(a, cmd, res, err)
		},
	}
	f.bind(cmd, true)
	return cmd
}

func newSearchCommand(a *app) *cobra.Command {
	var (
		f      readFlags
		params query.SearchParams
	)
	cmd := &cobra.Command{
		Use:   "search <text>",
		Args:  cobra.ExactArgs(1),
		Short: "Full-text search, optionally filtered by conditions",
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := f.descriptor()
			if err != nil {
				return err
			}
			params.Query = args[0]
			desc.Options.Search = &params
			b, err := a.getBridge()
			if err != nil {
				return err
			}
			res, err := b.Search(cmd.Context(), desc)
			return emit(a, cmd, res, err)
		},
	}
	f.bind(cmd, true)
	flags := cmd.Flags()
	flags.StringSliceVar(&params.Fields, "fields", nil, "fields to search, with optional ^boost")
	flags.StringVar(&params.Type, "type", "", "multi_match type")
	flags.StringVar(&params.Fuzziness, "fuzziness", "", "fuzziness, e.g. AUTO")
	flags.StringVar(&params.Operator, "operator", "", "and | or")
	return cmd
}

func newGetCommand(a *app) *cobra.Command {
	var columns []string
	cmd := &cobra.Command{
		Use:   "get <id>",
		Args:  cobra.ExactArgs(1),
		Short: "Get one document by id",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.getBridge()
			if err != nil {
				return err
			}
			res, err := b.GetByID(cmd.Context(), args[0], columns)
			return emit(a, cmd, res, err)
		},
	}
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "columns to return")
	return cmd
}

func newCountCommand(a *app) *cobra.Command {
	var f readFlags
	cmd := &cobra.Command{
		Use:   "count",
		Args:  cobra.NoArgs,
		Short: "Count documents matching conditions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conds, err := parseConditions(f.where)
			if err != nil {
				return err
			}
			b, err := a.getBridge()
			if err != nil {
				return err
			}
			res, err := b.Count(cmd.Context(), conds)
			return emit(a, cmd, res, err)
		},
	}
	f.bind(cmd, false)
	return cmd
}

func newDistinctCommand(a *app) *cobra.Command {
	var (
		f        readFlags
		docCount bool
	)
	cmd := &cobra.Command{
		Use:   "distinct",
		Args:  cobra.NoArgs,
		Short: "List distinct value combinations of columns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			desc, err := f.descriptor()
			if err != nil {
				return err
			}
			b, err := a.getBridge()
			if err != nil {
				return err
			}
			res, err := b.Distinct(cmd.Context(), desc, docCount)
			return emit(a, cmd, res, err)
		},
	}
	f.bind(cmd, true)
	cmd.Flags().BoolVar(&docCount, "count", false, "add a <column>_count document count per level")
	_ = cmd.MarkFlagRequired("columns")
	return cmd
}

func newAggregateCommand(a *app) *cobra.Command {
	var (
		f       readFlags
		fn      string
		groupBy []string
	)
	cmd := &cobra.Command{
		Use:   "aggregate",
		Args:  cobra.NoArgs,
		Short: "Compute count, sum, min, max, avg or matrix statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			function, err := query.ParseFunction(fn)
			if err != nil {
				return err
			}
			agg := query.Aggregation{Function: function, Columns: f.columns}
			b, err := a.getBridge()
			if err != nil {
				return err
			}
			if len(groupBy) > 0 {
				desc, err := f.descriptor()
				if err != nil {
					return err
				}
				desc.Columns = nil
				res, err := b.DistinctAggregate(cmd.Context(), desc, agg, groupBy)
				return emit(a, cmd, res, err)
			}
			conds, err := parseConditions(f.where)
			if err != nil {
				return err
			}
			res, err := b.Aggregate(cmd.Context(), agg, conds)
			return emit(a, cmd, res, err)
		},
	}
	// --columns names the aggregated fields here
	f.bind(cmd, true)
	flags := cmd.Flags()
	flags.StringVar(&fn, "fn", "count", "count | sum | min | max | avg | matrix")
	flags.StringSliceVar(&groupBy, "group-by", nil, "distinct columns to aggregate per bucket")
	return cmd
}

func newDeleteCommand(a *app) *cobra.Command {
	var (
		f   readFlags
		all bool
	)
	cmd := &cobra.Command{
		Use:   "delete",
		Args:  cobra.NoArgs,
		Short: "Delete documents matching conditions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conds, err := parseConditions(f.where)
			if err != nil {
				return err
			}
			if len(conds) == 0 && !all {
				return errors.New("refusing to delete every document without --all")
			}
			b, err := a.getBridge()
			if err != nil {
				return err
			}
			res, err := b.DeleteAll(cmd.Context(), query.Descriptor{Conditions: conds})
			return emit(a, cmd, res, err)
		},
	}
	f.bind(cmd, false)
	cmd.Flags().BoolVar(&all, "all", false, "allow deleting without conditions")
	return cmd
}

func newIncrementCommand(a *app) *cobra.Command {
	var (
		f       readFlags
		inc     []string
		set     []string
		refresh bool
	)
	cmd := &cobra.Command{
		Use:   "increment",
		Args:  cobra.NoArgs,
		Short: "Add deltas to numeric fields of matching documents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conds, err := parseConditions(f.where)
			if err != nil {
				return err
			}
			deltas, err := parseAssignments(inc)
			if err != nil {
				return err
			}
			values, err := parseAssignments(set)
			if err != nil {
				return err
			}
			b, err := a.getBridge()
			if err != nil {
				return err
			}
			changes := query.Changes{Set: values, Inc: deltas}
			res, err := b.IncrementMany(cmd.Context(), query.Descriptor{Conditions: conds}, changes, refresh)
			return emit(a, cmd, res, err)
		},
	}
	f.bind(cmd, false)
	cmd.Flags().StringArrayVar(&inc, "inc", nil, `delta "field=number"`)
	cmd.Flags().StringArrayVar(&set, "set", nil, `value stored with the increment "field=value"`)
	cmd.Flags().BoolVar(&refresh, "refresh", false, "refresh after each write")
	_ = cmd.MarkFlagRequired("inc")
	return cmd
}
