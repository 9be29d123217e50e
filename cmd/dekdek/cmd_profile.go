package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/dekdek-app/dekdek/internal/models"
	"github.com/dekdek-app/dekdek/internal/validation"
)

var (
	profileName  string
	profilePhone string
	profilePic   string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or edit your profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show your profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := signedIn(cmd.Context())
		if err != nil {
			return err
		}

		u, err := backend.GetProfile(cmd.Context(), id.UserID)
		if err != nil {
			return err
		}
		printUsers(cmd.OutOrStdout(), []*models.User{u})
		return nil
	},
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update your profile; only the given flags change",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := signedIn(cmd.Context())
		if err != nil {
			return err
		}

		form := validation.ProfileForm{
			UserName:    id.UserName,
			PhoneNumber: id.PhoneNumber,
			ProfilePic:  id.ProfilePic,
		}
		flags := cmd.Flags()
		if flags.Changed("name") {
			form.UserName = profileName
		}
		if flags.Changed("phone") {
			form.PhoneNumber = profilePhone
		}
		if flags.Changed("pic") {
			form.ProfilePic = profilePic
		}
		if err := validation.Struct(form); err != nil {
			return err
		}

		u, err := backend.UpdateProfile(cmd.Context(), id.UserID, form)
		if err != nil {
			return err
		}
		if err := accounts.SyncProfile(cmd.Context(), u); err != nil {
			return err
		}
		color.Green("Profile updated")
		return nil
	},
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage accounts (admins)",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := signedIn(cmd.Context()); err != nil {
			return err
		}

		users, err := backend.ListUsers(cmd.Context())
		if err != nil {
			return err
		}
		printUsers(cmd.OutOrStdout(), users)
		return nil
	},
}

func init() {
	profileUpdateCmd.Flags().StringVar(&profileName, "name", "", "Display name")
	profileUpdateCmd.Flags().StringVar(&profilePhone, "phone", "", "Phone number")
	profileUpdateCmd.Flags().StringVar(&profilePic, "pic", "", "Profile picture URL")

	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileUpdateCmd)
	usersCmd.AddCommand(usersListCmd)
}

func printUsers(w io.Writer, users []*models.User) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Name", "Email", "Phone", "Role"})
	for _, u := range users {
		table.Append([]string{fmt.Sprint(u.ID), u.Name, u.Email, u.PhoneNumber, string(u.Role)})
	}
	table.Render()
}
