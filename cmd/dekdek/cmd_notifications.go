package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/dekdek-app/dekdek/internal/models"
	"github.com/dekdek-app/dekdek/internal/notifications"
)

var (
	notificationsUnread bool
	pushToken           string
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notif"},
	Short:   "Read and follow notifications",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := signedIn(cmd.Context())
		if err != nil {
			return err
		}

		list, err := backend.ListNotifications(cmd.Context(), id.UserID)
		if err != nil {
			return err
		}

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetHeader([]string{"ID", "Time", "Message", "Read"})
		table.SetAutoWrapText(false)
		shown := 0
		for _, n := range list {
			if notificationsUnread && n.IsRead {
				continue
			}
			read := ""
			if n.IsRead {
				read = "✓"
			}
			table.Append([]string{n.ID, n.CreatedAt.Local().Format("2006-01-02 15:04"), n.Message, read})
			shown++
		}
		if shown == 0 {
			color.Yellow("No notifications")
			return nil
		}
		table.Render()
		return nil
	},
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read <notification-id>",
	Short: "Mark a notification as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := signedIn(cmd.Context()); err != nil {
			return err
		}
		if err := backend.MarkNotificationRead(cmd.Context(), args[0]); err != nil {
			return err
		}
		color.Green("Marked as read")
		return nil
	},
}

var notificationsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print new notifications as they arrive",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		id, err := signedIn(ctx)
		if err != nil {
			return err
		}

		color.Cyan("Watching notifications for %s, press Ctrl+C to stop", id.UserName)
		out := cmd.OutOrStdout()
		notifications.Watch(ctx, backend, id.UserID, cfg.Notifications.PollInterval, logger.Named("notifications"),
			func(n *models.Notification) {
				fmt.Fprintf(out, "%s  %s\n", color.CyanString(n.CreatedAt.Local().Format("15:04:05")), n.Message)
			})
		return nil
	},
}

var notificationsRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register this device's push token",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := signedIn(cmd.Context())
		if err != nil {
			return err
		}
		if err := notifications.Register(cmd.Context(), backend, kv, id.UserID, pushToken); err != nil {
			return err
		}
		color.Green("Push token registered")
		return nil
	},
}

func init() {
	notificationsListCmd.Flags().BoolVar(&notificationsUnread, "unread", false, "Only unread notifications")
	notificationsRegisterCmd.Flags().StringVar(&pushToken, "token", "", "Push token (required)")
	notificationsRegisterCmd.MarkFlagRequired("token")

	notificationsCmd.AddCommand(notificationsListCmd)
	notificationsCmd.AddCommand(notificationsReadCmd)
	notificationsCmd.AddCommand(notificationsWatchCmd)
	notificationsCmd.AddCommand(notificationsRegisterCmd)
}
