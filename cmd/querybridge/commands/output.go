package commands

import (
	"encoding/json"
	"io"

	"github.com/ncobase/querybridge/data/search/results"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
)

// emit prints the envelope, also for failed operations, and passes err on
func emit[T any](a *app, cmd *cobra.Command, res *results.Results[T], err error) error {
	if res == nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	if a.pretty {
		enc.SetIndent("", "  ")
	}
	if encErr := enc.Encode(res); encErr != nil && err == nil {
		return encErr
	}
	return err
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
