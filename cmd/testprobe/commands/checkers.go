package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/probelab/testprobe/internal/config"
	"github.com/probelab/testprobe/pkg/checkers"
)

// NewCheckersCommand creates the checkers listing command.
func NewCheckersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "checkers",
		Short: "List available checkers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig("")
			if err != nil {
				return err
			}

			listCheckers(buildRegistry(cfg), cmd)

			return nil
		},
	}
}

func listCheckers(registry *checkers.Registry, cmd *cobra.Command) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(cmd.OutOrStdout())
	tbl.AppendHeader(table.Row{"Flag", "Script", "Detects"})

	for _, checker := range registry.All() {
		tbl.AppendRow(table.Row{checker.Flag(), checker.Name(), checker.Description()})
	}

	tbl.SetStyle(table.StyleLight)
	tbl.Render()
}
