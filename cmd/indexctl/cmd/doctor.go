package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/client"
	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/redis"
)

func (a *app) newDoctorCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check connectivity to the store and every enabled audit backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			report := a.checker().Run(ctx)
			out := cmd.OutOrStdout()
			if a.output == outputJSON {
				if err := writeJSON(out, report); err != nil {
					return err
				}
			} else {
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "COMPONENT\tSTATUS\tLATENCY\tMESSAGE")
				for _, name := range report.Names() {
					c := report.Components[name]
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, c.Status, c.Latency, c.Message)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(out, "overall: %s\n", report.Status)
			}
			if report.Status == health.StatusDown {
				return fmt.Errorf("doctor: one or more components are down")
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Overall time allowed for all checks")
	return cmd
}

func (a *app) checker() *health.Checker {
	cfg := a.cfg
	hc := health.NewChecker()

	hc.Register("store", func(ctx context.Context) health.ComponentHealth {
		// Audit backends have their own checks.
		storeOnly := *cfg
		storeOnly.Audit = config.AuditConfig{}
		storeOnly.Metrics.Enabled = false
		c, err := client.New(ctx, &storeOnly, a.clientOpts...)
		if err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		defer c.Close()
		v, err := c.Ping(ctx)
		if err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: v.Server + " " + v.Version}
	})

	if cfg.Audit.Kafka.Enabled {
		hc.Register("kafka", health.Ping(func(ctx context.Context) error {
			return kafka.Ping(ctx, cfg.Audit.Kafka)
		}))
	}
	if cfg.Audit.Redis.Enabled {
		hc.Register("redis", health.Ping(func(ctx context.Context) error {
			rc, err := redis.NewClient(cfg.Audit.Redis)
			if err != nil {
				return err
			}
			defer rc.Close()
			return rc.Ping(ctx)
		}))
	}
	if cfg.Audit.Postgres.Enabled {
		hc.Register("postgres", health.Ping(func(ctx context.Context) error {
			pc, err := postgres.New(cfg.Audit.Postgres)
			if err != nil {
				return err
			}
			defer pc.Close()
			return pc.Ping(ctx)
		}))
	}
	if cfg.Audit.File.Enabled {
		hc.Register("file", health.Ping(func(context.Context) error {
			return checkWritableDir(filepath.Dir(cfg.Audit.File.Path))
		}))
	}
	return hc
}

func checkWritableDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	f, err := os.CreateTemp(dir, ".indexctl-doctor-*")
	if err != nil {
		return fmt.Errorf("directory not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
