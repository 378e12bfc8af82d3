package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gabyx/devenv/internal/config"
	"github.com/gabyx/devenv/internal/tasks"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tasks in topological order",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := config.Load(tasksFile)
			if err != nil {
				return err
			}

			defs := taskDefs(f)
			names := make([]string, 0, len(defs))
			for _, d := range defs {
				names = append(names, d.Name)
			}

			graph, err := tasks.NewGraph(defs, names)
			if err != nil {
				return err
			}

			for _, cell := range graph.Order() {
				task := cell.Task()
				line := fmt.Sprintf("%-*s", graph.LongestName(), task.Name)
				if len(task.After) > 0 {
					line += "  after: " + strings.Join(task.After, ", ")
				}
				if task.Command == "" {
					line += "  (not implemented)"
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}
