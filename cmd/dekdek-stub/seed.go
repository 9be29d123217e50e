package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dekdek-app/dekdek/internal/api"
	"github.com/dekdek-app/dekdek/internal/models"
	"github.com/dekdek-app/dekdek/internal/storage"
)

// demoPassword is shared by every demo account
const demoPassword = "dekdek1234"

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create demo accounts, children and a room",
	Long: `Creates an admin, a supervisor and a parent (password "` + demoPassword + `"),
two children of the parent and a room holding both. Existing accounts are kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Database.DSN == "" {
			return fmt.Errorf("database dsn is required (DEKDEK_DATABASE_DSN); use serve --seed for an in-memory backend")
		}

		repo, err := openRepository(cmd.Context())
		if err != nil {
			return err
		}
		defer repo.Close()

		return seed(cmd.Context(), repo)
	},
}

type demoUser struct {
	name  string
	email string
	phone string
	role  models.Role
}

var demoUsers = []demoUser{
	{"ผู้ดูแลระบบ", "admin@dekdek.local", "0800000001", models.RoleAdmin},
	{"ครูสมใจ", "supervisor@dekdek.local", "0800000002", models.RoleSupervisor},
	{"คุณแม่ใจดี", "parent@dekdek.local", "0800000003", models.RoleParent},
}

// seed creates the demo data. Accounts that already exist are left as they are
// and their children are not recreated.
func seed(ctx context.Context, repo storage.Repository) error {
	users := make(map[models.Role]*models.User, len(demoUsers))
	created := make(map[models.Role]bool, len(demoUsers))

	for _, du := range demoUsers {
		existing, err := repo.GetUserByEmail(ctx, du.email)
		if err != nil {
			return fmt.Errorf("failed to look up %s: %w", du.email, err)
		}
		if existing != nil {
			users[du.role] = existing
			continue
		}

		hash, err := api.HashPassword(demoPassword)
		if err != nil {
			return err
		}
		u := &models.User{
			Name:         du.name,
			Email:        du.email,
			PhoneNumber:  du.phone,
			Role:         du.role,
			PasswordHash: hash,
		}
		if err := repo.CreateUser(ctx, u); err != nil && !errors.Is(err, storage.ErrDuplicate) {
			return fmt.Errorf("failed to create %s: %w", du.email, err)
		}
		users[du.role] = u
		created[du.role] = true
		logger.Info("demo user created", zap.String("email", du.email), zap.String("role", string(du.role)))
	}

	if !created[models.RoleParent] {
		logger.Info("demo data already present")
		return nil
	}

	today := time.Now()
	kids := []*models.Child{
		{
			ParentID: users[models.RoleParent].ID,
			Name:     "เด็กชายต้นกล้า ใจดี",
			NickName: "ต้นกล้า",
			Birthday: today.AddDate(0, -9, 0).Format("2006-01-02"),
			Gender:   models.GenderMale,
		},
		{
			ParentID: users[models.RoleParent].ID,
			Name:     "เด็กหญิงใบเตย ใจดี",
			NickName: "ใบเตย",
			Birthday: today.AddDate(-2, -3, 0).Format("2006-01-02"),
			Gender:   models.GenderFemale,
		},
	}
	for _, c := range kids {
		if err := repo.CreateChild(ctx, c); err != nil {
			return fmt.Errorf("failed to create child %s: %w", c.NickName, err)
		}
	}

	room := &models.Room{
		Name:         "ห้องดอกทานตะวัน",
		Colors:       "#FFC107",
		SupervisorID: users[models.RoleSupervisor].ID,
	}
	if err := repo.CreateRoom(ctx, room); err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	for _, c := range kids {
		if err := repo.AddChildToRoom(ctx, room.ID, c.ID); err != nil {
			return fmt.Errorf("failed to add %s to room: %w", c.NickName, err)
		}
	}

	logger.Info("demo data created",
		zap.Int("children", len(kids)),
		zap.String("room", room.Name),
		zap.String("password", demoPassword),
	)
	return nil
}
