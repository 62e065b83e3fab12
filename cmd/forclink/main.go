package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kass/go-forcing-link/internal/config"
	"github.com/kass/go-forcing-link/internal/exitcode"
	"github.com/kass/go-forcing-link/internal/logging"
	"github.com/kass/go-forcing-link/pkg/basins"
	"github.com/kass/go-forcing-link/pkg/link"
	"github.com/kass/go-forcing-link/pkg/models"
	"github.com/kass/go-forcing-link/pkg/nearest"
)

var (
	configFile string
	dotEnvFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "forclink",
	Short: "Link sub-basins to the nearest cell of a forcing grid",
	Long: `forclink assigns every sub-basin the nearest node of a regular lon/lat forcing
grid, numbers the distinct nodes from 100000 and writes the HYPE forcing key.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&dotEnvFile, "env-file", ".env", "dotenv file with connection secrets")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(newLinkCmd(), newWindowCmd(), newQueryCmd())
}

// exitError carries the process exit code for a failed command
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// exitCode maps err to a process exit code
func exitCode(err error) int {
	if err == nil {
		return exitcode.Success
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}

	var (
		missingVar *config.ErrMissingRequiredEnvVar
		malformed  *basins.MalformedFeatureError
		duplicate  *models.DuplicateBasinError
		empty      *nearest.EmptyInputError
		outOfRange *nearest.OutOfRangeError
		missing    *link.MissingBasinError
	)
	switch {
	case errors.As(err, &missingVar):
		return exitcode.ConfigError
	case errors.As(err, &malformed), errors.As(err, &duplicate),
		errors.Is(err, models.ErrEmptyAxis), errors.Is(err, models.ErrNotAscending):
		return exitcode.InputError
	case errors.As(err, &empty), errors.As(err, &outOfRange), errors.As(err, &missing):
		return exitcode.LinkError
	}
	return exitcode.ConfigError
}

// setup loads the environment and configuration and installs the logger.
func setup() (*config.Config, func(), error) {
	restore, err := logging.Setup(verbose)
	if err != nil {
		return nil, nil, withCode(exitcode.ConfigError, err)
	}
	if err := config.LoadDotEnv(dotEnvFile); err != nil {
		zap.L().Warn("failed to load env file", zap.String("path", dotEnvFile), zap.Error(err))
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		restore()
		return nil, nil, withCode(exitcode.ConfigError, err)
	}
	return cfg, restore, nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(exitCode(err))
	}
}
