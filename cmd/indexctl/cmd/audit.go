package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/audit"
	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/redis"
)

func (a *app) newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Read back call records written by the audit sinks",
	}
	cmd.AddCommand(a.newAuditReadCmd())
	cmd.AddCommand(a.newAuditRecentCmd())
	cmd.AddCommand(a.newAuditTailCmd())
	cmd.AddCommand(a.newAuditCountCmd())
	return cmd
}

func (a *app) newAuditReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read [file]",
		Short: "Print the records of an audit file",
		Long:  "Print the records of an audit file. Without an argument the configured audit.file.path is read.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Audit.File.Path
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return errors.New("no audit file given and audit.file.path is not set")
			}
			recs, err := audit.ReadFile(path)
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), a.output, recs)
		},
	}
}

func (a *app) newAuditRecentCmd() *cobra.Command {
	var n int64

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Print the newest records kept in Redis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rc, err := redis.NewClient(a.cfg.Audit.Redis)
			if err != nil {
				return err
			}
			defer rc.Close()
			recs, err := audit.Recent(cmd.Context(), rc, a.cfg.Audit.Redis.Key, n)
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), a.output, recs)
		},
	}
	cmd.Flags().Int64VarP(&n, "count", "n", 20, "Number of records to print")
	return cmd
}

func (a *app) newAuditTailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tail",
		Short: "Follow the Kafka audit topic until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			out := cmd.OutOrStdout()
			log := logger.WithComponent("audit-tail")
			consumer := kafka.NewConsumer(a.cfg.Audit.Kafka, func(_ context.Context, _ []byte, value []byte) error {
				rec, err := kafka.DecodeJSON[audit.CallRecord](value)
				if err != nil {
					return err
				}
				if a.output == outputJSON {
					b, err := json.Marshal(rec)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, string(b))
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				printRecordLine(tw, rec)
				return tw.Flush()
			})
			log.Info("tailing audit topic", "topic", a.cfg.Audit.Kafka.Topic, "brokers", a.cfg.Audit.Kafka.Brokers)
			return consumer.Start(ctx)
		},
	}
}

func (a *app) newAuditCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of records in the PostgreSQL audit table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pc, err := postgres.New(a.cfg.Audit.Postgres)
			if err != nil {
				return err
			}
			defer pc.Close()
			ps, err := audit.NewPostgresSink(pc, a.cfg.Audit.Postgres.Table)
			if err != nil {
				return err
			}
			n, err := ps.Count(cmd.Context())
			if err != nil {
				return err
			}
			if a.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]int64{"records": n})
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}
