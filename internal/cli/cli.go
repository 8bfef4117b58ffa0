// Package cli implements prodctl, the operator command line for the
// production backend.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mamadbah2/knittrack/internal/config"
	"github.com/mamadbah2/knittrack/internal/domain/models"
	"github.com/mamadbah2/knittrack/internal/service/metrics"
	"github.com/mamadbah2/knittrack/internal/service/production"
	client "github.com/mamadbah2/knittrack/pkg/clients/production"
	"github.com/mamadbah2/knittrack/pkg/logger"
)

// Exit codes.
const (
	ExitSuccess = 0
	ExitFailure = 1
)

const requestTimeout = 30 * time.Second

// CLI holds the command-line interface state.
type CLI struct {
	rootCmd *cobra.Command
	cfg     *config.Config
	logger  *zap.Logger
	out     io.Writer
	errOut  io.Writer

	// newBackend is replaced in tests.
	newBackend func(config.BackendConfig) client.Client

	// Global flags
	envFile    string
	baseURL    string
	jsonOutput bool
	verbose    bool
}

// New creates a new CLI instance writing to stdout and stderr.
func New() *CLI {
	return newCLI(os.Stdout, os.Stderr, func(cfg config.BackendConfig) client.Client {
		return client.NewClient(cfg)
	})
}

func newCLI(out, errOut io.Writer, newBackend func(config.BackendConfig) client.Client) *CLI {
	c := &CLI{out: out, errOut: errOut, newBackend: newBackend, logger: zap.NewNop()}
	c.rootCmd = c.newRootCmd()
	return c
}

// Execute runs the CLI with the process arguments.
func (c *CLI) Execute() int {
	return c.run(os.Args[1:])
}

func (c *CLI) run(args []string) int {
	c.rootCmd.SetArgs(args)
	c.rootCmd.SetOut(c.out)
	c.rootCmd.SetErr(c.errOut)
	if err := c.rootCmd.Execute(); err != nil {
		fmt.Fprintf(c.errOut, "prodctl: %v\n", err)
		return ExitFailure
	}
	return ExitSuccess
}

func (c *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prodctl",
		Short: "Inspect and export knitting production entries",
		Long: `prodctl talks to the production backend.

It lists and shows entries with their derived defect metrics, reports whether
an entry is still inside its 60 minute edit window, follows that window live,
and downloads the backend's Excel workbook.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.initConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&c.envFile, "env-file", "", "env file to load before reading the environment")
	cmd.PersistentFlags().StringVar(&c.baseURL, "backend", "", "production backend base URL (overrides BACKEND_BASE_URL)")
	cmd.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "machine-readable JSON output")
	cmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "verbose logs on stderr")

	cmd.AddCommand(c.newEntriesCmd())
	cmd.AddCommand(c.newEditabilityCmd())
	cmd.AddCommand(c.newWatchCmd())
	cmd.AddCommand(c.newExportCmd())
	cmd.AddCommand(c.newMetricsCmd())

	return cmd
}

func (c *CLI) initConfig() error {
	cfg, err := config.Load(c.envFile)
	if err != nil {
		return err
	}
	if c.baseURL != "" {
		cfg.Backend.BaseURL = c.baseURL
	}
	c.cfg = cfg
	models.BackendLocation = cfg.Backend.Location()

	l, err := logger.NewConsole(c.verbose)
	if err != nil {
		return err
	}
	c.logger = l
	return nil
}

func (c *CLI) backend() client.Client {
	return c.newBackend(c.cfg.Backend)
}

func (c *CLI) production(backend client.Client) (*production.Service, error) {
	src, err := metrics.ParseDenominatorSource(c.cfg.Metrics.DenominatorSource)
	if err != nil {
		return nil, err
	}
	return production.NewService(backend, nil, nil, production.Options{
		Denominator: src,
		Concurrency: c.cfg.Backend.EditabilityConcurrency,
	}, c.logger.Named("svc.production")), nil
}

func (c *CLI) requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), requestTimeout)
}

// Helper functions for output

func (c *CLI) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *CLI) outputJSON(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
