package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"library-catalog/internal/config"
	"library-catalog/internal/output"
	"library-catalog/library"
)

var (
	cfgFile   string
	verbose   bool
	apiURL    string
	colorMode string
	cfg       *config.Config
	logger    *slog.Logger
	printer   *output.Printer
	manager   *library.LibraryManager
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "library-catalog",
	Short: "Browse and manage the library catalog",
	Long: `library-catalog is a terminal client for the library backend.

Sign in once and the session is remembered between runs. What you can see
depends on your role: everyone can browse books, members can borrow and track
their loans, and administrators can edit the catalog and review members.

Example usage:
  library-catalog login                 # Sign in (prompts for credentials)
  library-catalog books --available     # Books you can borrow right now
  library-catalog borrow 12             # Borrow book 12
  library-catalog loans                 # Your active and returned loans
  library-catalog shell                 # Menu-driven session`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

// Execute runs the root command and releases the session store afterwards.
func Execute() error {
	defer closeManager()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .library.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "backend base URL (overrides api.base_url)")
	rootCmd.PersistentFlags().StringVar(&colorMode, "color", "auto", "colorize output: auto, always, never")
}

// initConfig loads configuration and sets up logging and output.
func initConfig(cmd *cobra.Command) error {
	var err error

	cfg, err = config.Load(cfgFile)
	if err != nil {
		return &output.CLIError{
			Summary:    "Invalid configuration",
			Detail:     err.Error(),
			Suggestion: "check .library.yaml and LIBRARY_* environment variables",
			ExitCode:   output.ExitConfigError,
			Err:        err,
		}
	}
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}

	logger = newLogger(cfg.Logging, verbose)
	slog.SetDefault(logger)

	mode, err := output.ParseColorMode(colorMode)
	if err != nil {
		return &output.CLIError{Summary: err.Error(), ExitCode: output.ExitUsageError, Err: err}
	}
	useColors := output.ResolveColors(mode, cfg.Output.Colors, cmd.OutOrStdout())
	printer = output.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), useColors)

	logger.Debug("configuration loaded",
		"api_base_url", cfg.API.BaseURL,
		"api_timeout", cfg.API.Timeout,
		"session_path", cfg.Session.Path,
	)
	return nil
}

func newLogger(lc config.LoggingConfig, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch lc.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// libraryManager opens the session store on first use.
func libraryManager() (*library.LibraryManager, error) {
	if manager != nil {
		return manager, nil
	}
	lm, err := library.NewLibraryManager(library.Options{
		SessionPath: cfg.Session.Path,
		BaseURL:     cfg.API.BaseURL,
		Timeout:     cfg.API.Timeout,
		Logger:      logger,
	})
	if err != nil {
		return nil, &output.CLIError{
			Summary:  "Could not open the session store",
			Detail:   err.Error(),
			ExitCode: output.ExitConfigError,
			Err:      err,
		}
	}
	manager = lm
	return manager, nil
}

func closeManager() {
	if manager == nil {
		return
	}
	if err := manager.Close(); err != nil && logger != nil {
		logger.Warn("closing session store", "error", err)
	}
	manager = nil
}

// navigate resolves path through the router and turns a guard redirect into an
// error telling the user what to do.
func navigate(lm *library.LibraryManager, path string) (*library.Match, error) {
	match, err := lm.Router().Resolve(path)
	if err != nil {
		return nil, &output.CLIError{Summary: err.Error(), ExitCode: output.ExitUsageError, Err: err}
	}
	if match.Decision.State == library.Allowed {
		return match, nil
	}
	logger.Debug("navigation redirected", "path", path, "target", match.Decision.Target)
	if match.Decision.Target == library.LoginPath {
		return nil, notSignedIn(path)
	}
	return nil, &output.CLIError{
		Summary:  "Admin access required",
		Detail:   fmt.Sprintf("%s is only available to administrators", path),
		ExitCode: output.ExitAuthError,
		Err:      library.ErrForbidden,
	}
}

func notSignedIn(path string) *output.CLIError {
	return &output.CLIError{
		Summary:    "Not signed in",
		Detail:     fmt.Sprintf("%s needs an account", path),
		Suggestion: "run 'library-catalog login'",
		ExitCode:   output.ExitAuthError,
		Err:        library.ErrNotSignedIn,
	}
}

// cliError maps library errors onto structured CLI errors.
func cliError(action string, err error) error {
	if err == nil {
		return nil
	}
	var cliErr *output.CLIError
	if errors.As(err, &cliErr) {
		return err
	}

	var formErr *library.FormError
	if errors.As(err, &formErr) {
		return &output.CLIError{
			Summary:  formErr.Error(),
			Detail:   strings.Join(formErr.Messages(), "; "),
			ExitCode: output.ExitUsageError,
			Err:      err,
		}
	}

	switch {
	case errors.Is(err, library.ErrNotSignedIn):
		return notSignedIn(action)
	case errors.Is(err, library.ErrForbidden):
		return &output.CLIError{Summary: "Admin access required", ExitCode: output.ExitAuthError, Err: err}
	}

	var apiErr *library.APIError
	if errors.As(err, &apiErr) {
		e := &output.CLIError{
			Summary:  fmt.Sprintf("Failed to %s", action),
			Detail:   apiErr.Error(),
			ExitCode: output.ExitAPIError,
			Err:      err,
		}
		if apiErr.Status == http.StatusUnauthorized {
			e.Suggestion = "your session may have expired; run 'library-catalog login'"
		}
		return e
	}

	return &output.CLIError{
		Summary:    fmt.Sprintf("Failed to %s", action),
		Detail:     err.Error(),
		Suggestion: "check that the backend is reachable (--api or LIBRARY_API_URL)",
		ExitCode:   output.ExitGeneral,
		Err:        err,
	}
}
