package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gabyx/devenv/internal/config"
	"github.com/gabyx/devenv/internal/tasks"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the tasks file",
		Long:  "Parse the tasks file, check every dependency reference and detect cycles.",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := config.Load(tasksFile)
			if err != nil {
				return err
			}

			errs := tasks.Validate(taskDefs(f))
			if len(errs) == 0 {
				fmt.Printf("%s: %d task(s), no errors.\n", f.Path(), len(f.Tasks))
				return nil
			}

			for _, e := range errs {
				fmt.Fprintf(os.Stderr, "ERROR: %s\n", e)
			}
			return fmt.Errorf("validation found %d error(s)", len(errs))
		},
	}
}
