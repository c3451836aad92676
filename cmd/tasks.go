package cmd

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/ratiostat-cli/internal/config"
	"github.com/KaramelBytes/ratiostat-cli/internal/tasks"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List task identifiers accepted in the settings file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tbl := table.NewWriter()
		tbl.SetOutputMirror(cmd.OutOrStdout())
		tbl.SetStyle(table.StyleLight)
		tbl.Style().Format.Header = text.FormatDefault
		tbl.Style().Format.Footer = text.FormatDefault
		tbl.AppendHeader(table.Row{"task", "description"})
		for _, t := range tasks.All() {
			tbl.AppendRow(table.Row{t.String(), t.Description()})
		}
		tbl.AppendFooter(table.Row{cfgpkg.NoneTask, "run nothing"})
		tbl.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tasksCmd)
}
