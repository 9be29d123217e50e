package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/dekdek-app/dekdek/internal/children"
	"github.com/dekdek-app/dekdek/internal/validation"
)

var roomColors string

var roomsCmd = &cobra.Command{
	Use:     "rooms",
	Aliases: []string{"room"},
	Short:   "Manage rooms (supervisors)",
}

var roomsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your rooms",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := signedIn(cmd.Context())
		if err != nil {
			return err
		}

		rooms, err := children.NewRoomService(backend).List(cmd.Context(), id.UserID)
		if err != nil {
			return err
		}
		if len(rooms) == 0 {
			color.Yellow("No rooms yet. Create one with: dekdek rooms create <name>")
			return nil
		}

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetHeader([]string{"ID", "Name", "Colour", "Children"})
		for _, r := range rooms {
			table.Append([]string{fmt.Sprint(r.ID), r.Name, r.Colors, fmt.Sprint(r.ChildCount)})
		}
		table.Render()
		return nil
	},
}

var roomsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a room",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := signedIn(cmd.Context())
		if err != nil {
			return err
		}

		room, err := children.NewRoomService(backend).Create(cmd.Context(), validation.RoomForm{
			SupervisorID: id.UserID,
			Name:         args[0],
			Colors:       roomColors,
		})
		if err != nil {
			return err
		}
		color.Green("Created room %q (id %d)", room.Name, room.ID)
		return nil
	},
}

var roomsChildrenCmd = &cobra.Command{
	Use:   "children <room-id>",
	Short: "List the children of a room",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roomID, err := parseID("room id", args[0])
		if err != nil {
			return err
		}
		if _, err := signedIn(cmd.Context()); err != nil {
			return err
		}

		list, err := children.NewRoomService(backend).Children(cmd.Context(), roomID)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			color.Yellow("Room %d has no children", roomID)
			return nil
		}
		printChildren(cmd.OutOrStdout(), list)
		return nil
	},
}

var roomsAssignCmd = &cobra.Command{
	Use:   "assign <room-id> <child-id>",
	Short: "Add a child to a room",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return roomMembership(cmd, args, true)
	},
}

var roomsUnassignCmd = &cobra.Command{
	Use:   "unassign <room-id> <child-id>",
	Short: "Remove a child from a room",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return roomMembership(cmd, args, false)
	},
}

func roomMembership(cmd *cobra.Command, args []string, assign bool) error {
	roomID, err := parseID("room id", args[0])
	if err != nil {
		return err
	}
	childID, err := parseID("child id", args[1])
	if err != nil {
		return err
	}
	if _, err := signedIn(cmd.Context()); err != nil {
		return err
	}

	svc := children.NewRoomService(backend)
	if assign {
		if err := svc.Assign(cmd.Context(), roomID, childID); err != nil {
			return err
		}
		color.Green("Child %d added to room %d", childID, roomID)
		return nil
	}

	if err := svc.Unassign(cmd.Context(), roomID, childID); err != nil {
		return err
	}
	color.Green("Child %d removed from room %d", childID, roomID)
	return nil
}

func init() {
	roomsCreateCmd.Flags().StringVar(&roomColors, "colors", "", "Room colour, e.g. #4A90E2")

	roomsCmd.AddCommand(roomsListCmd)
	roomsCmd.AddCommand(roomsCreateCmd)
	roomsCmd.AddCommand(roomsChildrenCmd)
	roomsCmd.AddCommand(roomsAssignCmd)
	roomsCmd.AddCommand(roomsUnassignCmd)
}
