package cli

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gabyx/devenv/internal/config"
)

var (
	tasksFile   string
	cacheDB     string
	secretsPath string
	verbose     bool
	quiet       bool

	// Workspace settings, populated in PersistentPreRunE. Nil if no devenv.toml.
	settings *config.Settings
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "devenv-tasks",
		Short: "Run dev-environment tasks as a dependency graph",
		Long: "devenv-tasks executes named, interdependent tasks concurrently, " +
			"skipping tasks whose fingerprints already succeeded and foreclosing " +
			"tasks whose dependencies failed.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			abs, err := filepath.Abs(tasksFile)
			if err != nil {
				return err
			}

			// Load workspace-level settings if they exist; flags win.
			s, err := config.LoadSettings(filepath.Dir(abs))
			if err != nil {
				return err
			}
			settings = s

			if s != nil {
				if cacheDB == "" && s.CacheDB != "" {
					cacheDB = s.CacheDB
				}
				if secretsPath == "" && s.SecretsFile != "" {
					secretsPath = s.SecretsFile
				}
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&tasksFile, "tasks-file", "f", "tasks.toml", "path to the tasks file")
	root.PersistentFlags().StringVar(&cacheDB, "cache-db", "", "path to the cache database")
	root.PersistentFlags().StringVar(&secretsPath, "secrets", "", "path to a secrets file (.toml or .age)")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "stream task output")
	root.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress progress output")

	root.AddCommand(
		newRunCmd(),
		newValidateCmd(),
		newListCmd(),
		newCacheCmd(),
		newWatchCmd(),
	)

	return root
}

// verbosity derives the rendering level from the flags; quiet wins.
func verbosity() config.Verbosity {
	switch {
	case quiet:
		return config.Quiet
	case verbose:
		return config.Verbose
	default:
		return config.Normal
	}
}

// resolveCacheDB returns the cache path from flag/settings or the default
// next to the tasks file.
func resolveCacheDB() string {
	if cacheDB != "" {
		return cacheDB
	}
	return filepath.Join(filepath.Dir(tasksFile), ".devenv", "tasks.db")
}

// Execute runs the root command with an interrupt-aware context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
