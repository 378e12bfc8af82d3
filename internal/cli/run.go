package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var showOutputs bool

	cmd := &cobra.Command{
		Use:   "run <task>...",
		Short: "Execute tasks and everything they depend on",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, outputs, err := runOnce(cmd.Context(), args)
			if err != nil {
				return err
			}

			if showOutputs {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(outputs); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showOutputs, "outputs", false, "print the merged task outputs as JSON")
	return cmd
}
