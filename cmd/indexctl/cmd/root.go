// Package cmd provides the commands of the indexctl CLI.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/client"
	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/logger"
)

const (
	outputText = "text"
	outputJSON = "json"
)

// app carries the state shared by subcommands of one invocation.
type app struct {
	configPath string
	logLevel   string
	output     string

	cfg *config.Config
	// clientOpts is appended to every client built by the invocation.
	clientOpts []client.Option
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd creates the root command for the indexctl CLI.
func NewRootCmd(opts ...client.Option) *cobra.Command {
	a := &app{clientOpts: opts}

	cmd := &cobra.Command{
		Use:   "indexctl",
		Short: "Manage secondary indexes on store collections",
		Long: `indexctl lists, creates, deletes and loads hash, skiplist, persistent, geo,
fulltext and TTL indexes, and reads back the audit trail of store calls.

Configuration is read from --config (YAML) and IDX_* environment variables.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVarP(&a.output, "output", "o", outputText, "Output format: text or json")

	cmd.AddCommand(a.newListCmd())
	cmd.AddCommand(a.newCreateCmd())
	cmd.AddCommand(a.newDeleteCmd())
	cmd.AddCommand(a.newLoadCmd())
	cmd.AddCommand(a.newDoctorCmd())
	cmd.AddCommand(a.newAuditCmd())

	return cmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.output != outputText && a.output != outputJSON {
		return fmt.Errorf("unsupported --output %q (want text or json)", a.output)
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	slog.SetDefault(logger.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format))
	a.cfg = cfg
	return nil
}

func (a *app) newClient(ctx context.Context) (*client.Client, error) {
	return client.New(ctx, a.cfg, a.clientOpts...)
}

// signalContext is canceled on interrupt or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
