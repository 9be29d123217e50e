package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dekdek-app/dekdek/internal/assessment"
	"github.com/dekdek-app/dekdek/internal/children"
	"github.com/dekdek-app/dekdek/internal/models"
	"github.com/dekdek-app/dekdek/internal/store"
	"github.com/dekdek-app/dekdek/internal/tui"
)

var (
	assessChild      int
	assessAspect     string
	assessSupervisor bool
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Rate a child in one developmental aspect",
	Long: `Opens the assessment screen for one child and aspect (GM, FM, RL, EL or PS).
Answer each item with y (ได้) or n (ไม่ได้). A failed item opens its training
screen so the skill can be practised before trying again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		aspect, err := models.ParseAspect(assessAspect)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		id, err := signedIn(ctx)
		if err != nil {
			return err
		}
		supervisor := assessSupervisor || id.Role.IsSupervisor()
		if assessSupervisor && !id.Role.IsSupervisor() {
			return fmt.Errorf("supervisor assessments need a supervisor account")
		}

		child, err := findChild(ctx, id, supervisor)
		if err != nil {
			return err
		}

		sess := assessment.NewSession(assessment.Params{
			ChildID:    child.ID,
			Aspect:     aspect,
			Age:        child.Age,
			Supervisor: supervisor,
		}, backend, kv,
			assessment.WithMinLoading(cfg.Session.MinLoading),
			assessment.WithLogger(logger.Named("session")),
		)
		defer sess.Close()

		final, err := tea.NewProgram(tui.New(ctx, sess, child), tea.WithContext(ctx)).Run()
		if err != nil {
			return fmt.Errorf("assessment screen failed: %w", err)
		}

		if exit := final.(tui.Model).Exit(); exit != nil && exit.Kind == assessment.ExitTraining && exit.Details != nil {
			color.Yellow("Practise \"%s\" with น้อง%s, then assess again.", exit.Details.Name, child.NickName)
		}
		return nil
	},
}

// findChild looks the child up among the parent's children, or across the supervisor's rooms
func findChild(ctx context.Context, id *store.Identity, supervisor bool) (*models.Child, error) {
	if !supervisor {
		return children.NewService(backend).Find(ctx, id.UserID, assessChild)
	}

	roomSvc := children.NewRoomService(backend)
	rooms, err := roomSvc.List(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	for _, r := range rooms {
		list, err := roomSvc.Children(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		for _, c := range list {
			if c.ID == assessChild {
				return c, nil
			}
		}
	}
	return nil, fmt.Errorf("child %d is not in any of your rooms", assessChild)
}

func init() {
	assessCmd.Flags().IntVar(&assessChild, "child", 0, "Child id (required)")
	assessCmd.Flags().StringVar(&assessAspect, "aspect", "", "Aspect: GM, FM, RL, EL or PS (required)")
	assessCmd.Flags().BoolVar(&assessSupervisor, "supervisor", false, "Rate as the child's supervisor")
	assessCmd.MarkFlagRequired("child")
	assessCmd.MarkFlagRequired("aspect")
}
