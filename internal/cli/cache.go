package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gabyx/devenv/internal/cache"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage recorded task results",
	}
	cmd.AddCommand(newCacheClearCmd(), newCacheForgetCmd())
	return cmd
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop all recorded task results",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cache.Open(resolveCacheDB())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Cache cleared.")
			return nil
		},
	}
}

func newCacheForgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget <task>",
		Short: "Drop the recorded result of a single task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cache.Open(resolveCacheDB())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Forget(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Forgot cached result for %q.\n", args[0])
			return nil
		},
	}
}
