package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/dekdek-app/dekdek/internal/children"
	"github.com/dekdek-app/dekdek/internal/models"
	"github.com/dekdek-app/dekdek/internal/validation"
)

var (
	childParent   int
	childName     string
	childNick     string
	childBirthday string
	childGender   string
	childPic      string
)

var childrenCmd = &cobra.Command{
	Use:     "children",
	Aliases: []string{"child"},
	Short:   "Manage child profiles",
}

var childrenListCmd = &cobra.Command{
	Use:   "list",
	Short: "List children",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := signedIn(cmd.Context())
		if err != nil {
			return err
		}
		parentID := id.UserID
		if childParent > 0 {
			parentID = childParent
		}

		list, err := children.NewService(backend).List(cmd.Context(), parentID)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			color.Yellow("No children yet. Add one with: dekdek children add")
			return nil
		}
		printChildren(cmd.OutOrStdout(), list)
		return nil
	},
}

var childrenAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a child",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := signedIn(cmd.Context())
		if err != nil {
			return err
		}

		child, err := children.NewService(backend).Add(cmd.Context(), validation.ChildForm{
			ParentID: id.UserID,
			Name:     childName,
			NickName: childNick,
			Birthday: childBirthday,
			Gender:   models.Gender(childGender),
			Pic:      childPic,
		})
		if err != nil {
			return err
		}

		color.Green("Added น้อง%s (id %d, %s)", child.NickName, child.ID, child.Age)
		return nil
	},
}

var childrenUpdateCmd = &cobra.Command{
	Use:   "update <child-id>",
	Short: "Update a child; only the given flags change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		childID, err := parseID("child id", args[0])
		if err != nil {
			return err
		}
		id, err := signedIn(cmd.Context())
		if err != nil {
			return err
		}

		svc := children.NewService(backend)
		current, err := svc.Find(cmd.Context(), id.UserID, childID)
		if err != nil {
			return err
		}

		form := validation.ChildForm{
			ParentID: current.ParentID,
			Name:     current.Name,
			NickName: current.NickName,
			Birthday: current.Birthday,
			Gender:   current.Gender,
			Pic:      current.Pic,
		}
		flags := cmd.Flags()
		if flags.Changed("name") {
			form.Name = childName
		}
		if flags.Changed("nick") {
			form.NickName = childNick
		}
		if flags.Changed("birthday") {
			form.Birthday = childBirthday
		}
		if flags.Changed("gender") {
			form.Gender = models.Gender(childGender)
		}
		if flags.Changed("pic") {
			form.Pic = childPic
		}

		child, err := svc.Update(cmd.Context(), childID, form)
		if err != nil {
			return err
		}
		color.Green("Updated น้อง%s", child.NickName)
		return nil
	},
}

var childrenDeleteCmd = &cobra.Command{
	Use:   "delete <child-id>",
	Short: "Delete a child and its assessment history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		childID, err := parseID("child id", args[0])
		if err != nil {
			return err
		}
		if _, err := signedIn(cmd.Context()); err != nil {
			return err
		}

		if err := children.NewService(backend).Delete(cmd.Context(), childID); err != nil {
			return err
		}
		color.Green("Deleted child %d", childID)
		return nil
	},
}

func init() {
	childrenListCmd.Flags().IntVar(&childParent, "parent", 0, "Parent user id (default: signed-in user)")

	for _, c := range []*cobra.Command{childrenAddCmd, childrenUpdateCmd} {
		c.Flags().StringVar(&childName, "name", "", "Full name")
		c.Flags().StringVar(&childNick, "nick", "", "Nickname")
		c.Flags().StringVar(&childBirthday, "birthday", "", "Birthday, YYYY-MM-DD")
		c.Flags().StringVar(&childGender, "gender", "", "male or female")
		c.Flags().StringVar(&childPic, "pic", "", "Picture URL")
	}
	childrenAddCmd.MarkFlagRequired("name")
	childrenAddCmd.MarkFlagRequired("nick")
	childrenAddCmd.MarkFlagRequired("birthday")
	childrenAddCmd.MarkFlagRequired("gender")

	childrenCmd.AddCommand(childrenListCmd)
	childrenCmd.AddCommand(childrenAddCmd)
	childrenCmd.AddCommand(childrenUpdateCmd)
	childrenCmd.AddCommand(childrenDeleteCmd)
}

func printChildren(w io.Writer, list []*models.Child) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Name", "Nickname", "Birthday", "Age", "Gender"})
	for _, c := range list {
		table.Append([]string{
			fmt.Sprint(c.ID),
			c.Name,
			c.NickName,
			c.Birthday,
			c.Age,
			string(c.Gender),
		})
	}
	table.Render()
}
