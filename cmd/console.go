package cmd

import (
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"agentdrop/internal/bootstrap"
	"agentdrop/internal/bootstrap/logging"
	"agentdrop/internal/errs"
	"agentdrop/internal/usecase/console"
	"agentdrop/internal/usecase/pipeline"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive terminal view of the prospect funnel",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *pipeline.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		tier, _ := cmd.Flags().GetString("tier")
		refresh, _ := cmd.Flags().GetDuration("refresh")

		model := console.NewModel(ctx, svc, console.Options{
			TierFilter:      tier,
			RefreshInterval: refresh,
		})

		program := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return errs.Wrap(err, "run console")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(consoleCmd)

	consoleCmd.Flags().String("tier", "", "Only show prospects in this tier (A, B, C or D)")
	consoleCmd.Flags().Duration("refresh", 10*time.Second, "Background refresh interval")
}
