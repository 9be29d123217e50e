package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dekdek-app/dekdek/internal/dashboard"
)

var dashboardConcurrency int

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show every child's progress in every aspect",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := signedIn(cmd.Context())
		if err != nil {
			return err
		}

		builder := dashboard.NewBuilder(backend, dashboardConcurrency)
		var rows []dashboard.Row
		if id.Role.IsSupervisor() {
			rows, err = builder.ForSupervisor(cmd.Context(), id.UserID)
		} else {
			rows, err = builder.ForParent(cmd.Context(), id.UserID)
		}
		if err != nil {
			return err
		}

		color.Yellow("\nProgress of %d children", len(rows))
		if len(rows) == 0 {
			return nil
		}
		dashboard.Render(cmd.OutOrStdout(), rows)
		return nil
	},
}

func init() {
	dashboardCmd.Flags().IntVar(&dashboardConcurrency, "concurrency", dashboard.DefaultConcurrency, "Progress requests in flight")
}
