// Package cli holds the profiles command tree.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/profiles/internal/adapters/scoringapi"
	"github.com/okian/profiles/internal/adapters/sessionstore"
	"github.com/okian/profiles/internal/app"
	"github.com/okian/profiles/internal/config"
	"github.com/okian/profiles/pkg/logger"
)

// globals are the persistent flags plus what PersistentPreRunE resolves.
type globals struct {
	apiURL   string
	timeout  time.Duration
	logLevel string

	cfg *config.Config
	log logger.Logger
}

// NewRootCommand builds the profiles command tree.
func NewRootCommand() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "profiles",
		Short: "Upload spreadsheets to the scoring API and browse the scored profiles",
		Long: `profiles sends an Excel spreadsheet (.xlsx or .xls) to the scoring API,
shows the returned profiles sorted by score one page at a time, and can save
the processed spreadsheet the API produced.

Settings come from PROFILES_* environment variables or the YAML file named by
PROFILES_CONFIG; --api and --timeout override them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.resolve(cmd)
		},
	}

	root.PersistentFlags().StringVar(&g.apiURL, "api", "", "scoring API base URL (default from config)")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", 0, "scoring API timeout (default from config)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(newUploadCommand(g), newViewCommand(g))
	return root
}

// Execute runs the command tree.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx) //nolint:wrapcheck // cobra already prints the error
}

// resolve loads config, applies flag overrides and sets up logging on stderr.
func (g *globals) resolve(cmd *cobra.Command) error {
	if err := logger.InitWithWriter(cmd.ErrOrStderr()); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	g.log = logger.Named("cli")

	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return err //nolint:wrapcheck // config errors carry their kind
	}
	if g.apiURL != "" {
		cfg.APIBaseURL = g.apiURL
	}
	if cmd.Flags().Changed("timeout") {
		cfg.APITimeoutMS = int(g.timeout / time.Millisecond)
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err //nolint:wrapcheck // config errors carry their kind
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	g.cfg = cfg
	return nil
}

// newSession builds a one-off session against the configured API.
func (g *globals) newSession(l logger.Logger) *app.Session {
	client := scoringapi.New(g.cfg.APIBaseURL,
		scoringapi.WithTimeout(g.cfg.APITimeout()),
		scoringapi.WithLogger(l.Named("scoringapi")),
	)
	svc := app.New(client,
		app.WithLogger(l),
		app.WithPageSize(g.cfg.PageSize),
		app.WithSiblingCount(g.cfg.SiblingCount),
		app.WithAcceptedExtensions(g.cfg.AcceptedExtensions),
		app.WithDownloadName(g.cfg.DownloadName),
	)
	return svc.NewSession(sessionstore.NewID())
}
