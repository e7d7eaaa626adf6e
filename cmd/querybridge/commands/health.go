package commands

import (
	"context"
	"errors"
	"time"

	"github.com/ncobase/querybridge/config"
	"github.com/ncobase/querybridge/data/metrics"
	"github.com/ncobase/querybridge/data/search/results"
	"github.com/ncobase/querybridge/ecode"
	"github.com/ncobase/querybridge/logging/logger"
	"github.com/spf13/cobra"
)

func newHealthCommand(a *app) *cobra.Command {
	var every time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Args:  cobra.NoArgs,
		Short: "Check the engine connection",
		Long: "Check the engine connection. With --every the check repeats until " +
			"interrupted and the config file is reloaded when it changes.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if every <= 0 {
				return a.checkHealth(cmd)
			}
			return a.watchHealth(cmd, every)
		},
	}
	cmd.Flags().DurationVar(&every, "every", 0, "repeat the check at this interval")
	return cmd
}

func (a *app) checkHealth(cmd *cobra.Command) error {
	b, err := a.getBridge()
	if err != nil {
		return err
	}
	monitor := metrics.NewHealthMonitor(a.collector)
	monitor.RegisterComponent(metrics.CheckFunc{Component: string(b.Engine()), Fn: b.Health})

	status := monitor.CheckAll(cmd.Context())
	res := results.New("health", status, nil)
	for name, healthy := range status {
		if !healthy {
			err = errors.New(name + " is unhealthy")
			res.SetError(err.Error(), ecode.Unavailable, "unhealthy")
			res.Data = status
		}
	}
	return emit(a, cmd, res, err)
}

func (a *app) watchHealth(cmd *cobra.Command, every time.Duration) error {
	ctx := cmd.Context()
	reloaded := make(chan *config.Config, 1)
	config.Watch(func(cfg *config.Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		if err := a.checkHealth(cmd); err != nil {
			logger.Warnf(ctx, "health check failed: %v", err)
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case cfg := <-reloaded:
			logger.Infof(ctx, "configuration reloaded, reconnecting")
			a.cfg = cfg
			a.resetBridge()
		case <-ticker.C:
		}
	}
}
