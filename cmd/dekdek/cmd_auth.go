package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dekdek-app/dekdek/internal/models"
	"github.com/dekdek-app/dekdek/internal/store"
	"github.com/dekdek-app/dekdek/internal/validation"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	stdin            = bufio.NewReader(os.Stdin)

	loginEmail    string
	loginPassword string

	registerName  string
	registerEmail string
	registerPhone string
	registerRole  string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and remember the account on this device",
	RunE: func(cmd *cobra.Command, args []string) error {
		password := loginPassword
		if password == "" {
			var err error
			if password, err = promptPassword(cmd.OutOrStdout(), "Password: "); err != nil {
				return err
			}
		}

		id, err := accounts.Login(cmd.Context(), validation.LoginForm{
			Email:    loginEmail,
			Password: password,
		})
		if err != nil {
			return err
		}

		color.Green("Signed in as %s (%s)", id.UserName, id.Role)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := promptPassword(cmd.OutOrStdout(), "Password: ")
		if err != nil {
			return err
		}
		confirm, err := promptPassword(cmd.OutOrStdout(), "Confirm password: ")
		if err != nil {
			return err
		}
		if password != confirm {
			return fmt.Errorf("passwords do not match")
		}

		id, err := accounts.Register(cmd.Context(), validation.RegisterForm{
			UserName:    registerName,
			Email:       registerEmail,
			Password:    password,
			PhoneNumber: registerPhone,
			Role:        models.Role(registerRole),
		})
		if err != nil {
			return err
		}

		color.Green("Welcome %s, you are signed in as %s", id.UserName, id.Role)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the account on this device",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := accounts.Logout(cmd.Context()); err != nil {
			return err
		}
		color.Green("Signed out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := signedIn(cmd.Context())
		if err != nil {
			return err
		}
		printIdentity(cmd.OutOrStdout(), id)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "Account email (required)")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Password (prompted when empty)")
	loginCmd.MarkFlagRequired("email")

	registerCmd.Flags().StringVar(&registerName, "name", "", "Display name (required)")
	registerCmd.Flags().StringVarP(&registerEmail, "email", "e", "", "Account email (required)")
	registerCmd.Flags().StringVar(&registerPhone, "phone", "", "Phone number, e.g. 0812345678 (required)")
	registerCmd.Flags().StringVar(&registerRole, "role", string(models.RoleParent), "parent or supervisor")
	registerCmd.MarkFlagRequired("name")
	registerCmd.MarkFlagRequired("email")
	registerCmd.MarkFlagRequired("phone")
}

// promptPassword reads a password without echo, or a plain line when stdin is not a terminal
func promptPassword(w io.Writer, label string) (string, error) {
	fmt.Fprint(w, label)
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := stdin.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	b, err := readPasswordFunc(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

func printIdentity(w io.Writer, id *store.Identity) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Field", "Value"})
	table.Append([]string{"User ID", fmt.Sprint(id.UserID)})
	table.Append([]string{"Name", id.UserName})
	table.Append([]string{"Email", id.Email})
	table.Append([]string{"Phone", id.PhoneNumber})
	table.Append([]string{"Role", string(id.Role)})
	table.Render()
}
