package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dekdek-app/dekdek/internal/age"
	"github.com/dekdek-app/dekdek/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 10
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 2
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Pool exposes the pool for migrations
func (r *PostgresRepository) Pool() *pgxpool.Pool {
	return r.pool
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Users

const userColumns = `user_id, user_name, email, phone_number, role, profile_pic, password_hash, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var role string
	var pic sql.NullString
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PhoneNumber, &role, &pic, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	u.ProfilePic = pic.String
	return &u, nil
}

// CreateUser inserts a user and sets its ID
func (r *PostgresRepository) CreateUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (user_name, email, phone_number, role, profile_pic, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING user_id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		u.Name,
		u.Email,
		u.PhoneNumber,
		string(u.Role),
		nullString(u.ProfilePic),
		u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUser retrieves a user by ID
func (r *PostgresRepository) GetUser(ctx context.Context, id int) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByEmail retrieves a user by email, case-insensitively
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

// UpdateUser updates the profile fields of a user
func (r *PostgresRepository) UpdateUser(ctx context.Context, u *models.User) error {
	query := `
		UPDATE users
		SET user_name = $2, phone_number = $3, profile_pic = $4
		WHERE user_id = $1
	`

	result, err := r.pool.Exec(ctx, query, u.ID, u.Name, u.PhoneNumber, nullString(u.ProfilePic))
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUsers returns every user
func (r *PostgresRepository) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Children

const childColumns = `c.child_id, c.parent_id, c.child_name, c.nick_name, c.birthday, c.gender, c.child_pic, c.created_at`

func scanChild(row pgx.Row) (*models.Child, error) {
	var c models.Child
	var birthday time.Time
	var gender string
	var pic sql.NullString
	err := row.Scan(&c.ID, &c.ParentID, &c.Name, &c.NickName, &birthday, &gender, &pic, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.Birthday = birthday.Format(age.DateLayout)
	c.Gender = models.Gender(gender)
	c.Pic = pic.String
	return &c, nil
}

func collectChildren(rows pgx.Rows) ([]*models.Child, error) {
	defer rows.Close()
	var children []*models.Child
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		children = append(children, c)
	}
	return children, rows.Err()
}

// CreateChild inserts a child and sets its ID
func (r *PostgresRepository) CreateChild(ctx context.Context, c *models.Child) error {
	birthday, err := age.ParseBirthday(c.Birthday)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO children (parent_id, child_name, nick_name, birthday, gender, child_pic)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING child_id, created_at
	`

	err = r.pool.QueryRow(ctx, query,
		c.ParentID,
		c.Name,
		c.NickName,
		birthday,
		string(c.Gender),
		nullString(c.Pic),
	).Scan(&c.ID, &c.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create child: %w", err)
	}
	return nil
}

// GetChild retrieves a child by ID
func (r *PostgresRepository) GetChild(ctx context.Context, id int) (*models.Child, error) {
	c, err := scanChild(r.pool.QueryRow(ctx, `SELECT `+childColumns+` FROM children c WHERE c.child_id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	return c, nil
}

// UpdateChild updates an existing child
func (r *PostgresRepository) UpdateChild(ctx context.Context, c *models.Child) error {
	birthday, err := age.ParseBirthday(c.Birthday)
	if err != nil {
		return err
	}

	query := `
		UPDATE children
		SET child_name = $2, nick_name = $3, birthday = $4, gender = $5, child_pic = $6
		WHERE child_id = $1
	`

	result, err := r.pool.Exec(ctx, query, c.ID, c.Name, c.NickName, birthday, string(c.Gender), nullString(c.Pic))
	if err != nil {
		return fmt.Errorf("failed to update child: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteChild deletes a child; room membership and attempts cascade
func (r *PostgresRepository) DeleteChild(ctx context.Context, id int) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM children WHERE child_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete child: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListChildrenByParent returns a parent's children
func (r *PostgresRepository) ListChildrenByParent(ctx context.Context, parentID int) ([]*models.Child, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+childColumns+` FROM children c WHERE c.parent_id = $1 ORDER BY c.child_id`, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	return collectChildren(rows)
}

// Rooms

const roomColumns = `r.rooms_id, r.rooms_name, r.colors, r.supervisor_id,
	(SELECT COUNT(*) FROM room_children rc WHERE rc.rooms_id = r.rooms_id)`

func scanRoom(row pgx.Row) (*models.Room, error) {
	var room models.Room
	var colors sql.NullString
	if err := row.Scan(&room.ID, &room.Name, &colors, &room.SupervisorID, &room.ChildCount); err != nil {
		return nil, err
	}
	room.Colors = colors.String
	return &room, nil
}

// CreateRoom inserts a room and sets its ID
func (r *PostgresRepository) CreateRoom(ctx context.Context, room *models.Room) error {
	query := `
		INSERT INTO rooms (supervisor_id, rooms_name, colors)
		VALUES ($1, $2, $3)
		RETURNING rooms_id
	`

	if err := r.pool.QueryRow(ctx, query, room.SupervisorID, room.Name, nullString(room.Colors)).Scan(&room.ID); err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	room.ChildCount = 0
	return nil
}

// GetRoom retrieves a room by ID
func (r *PostgresRepository) GetRoom(ctx context.Context, id int) (*models.Room, error) {
	room, err := scanRoom(r.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms r WHERE r.rooms_id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return room, nil
}

// ListRoomsBySupervisor returns a supervisor's rooms with their child counts
func (r *PostgresRepository) ListRoomsBySupervisor(ctx context.Context, supervisorID int) ([]*models.Room, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roomColumns+` FROM rooms r WHERE r.supervisor_id = $1 ORDER BY r.rooms_id`, supervisorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// AddChildToRoom assigns a child to a room
func (r *PostgresRepository) AddChildToRoom(ctx context.Context, roomID, childID int) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO room_children (rooms_id, child_id) VALUES ($1, $2)`, roomID, childID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to add child to room: %w", err)
	}
	return nil
}

// RemoveChildFromRoom removes a child from a room
func (r *PostgresRepository) RemoveChildFromRoom(ctx context.Context, roomID, childID int) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM room_children WHERE rooms_id = $1 AND child_id = $2`, roomID, childID)
	if err != nil {
		return fmt.Errorf("failed to remove child from room: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRoomChildren returns the children assigned to a room
func (r *PostgresRepository) ListRoomChildren(ctx context.Context, roomID int) ([]*models.Child, error) {
	query := `
		SELECT ` + childColumns + `
		FROM children c
		JOIN room_children rc ON rc.child_id = c.child_id
		WHERE rc.rooms_id = $1
		ORDER BY c.child_id
	`
	rows, err := r.pool.Query(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list room children: %w", err)
	}
	return collectChildren(rows)
}

// SupervisorHasChild reports whether the child is in one of the supervisor's rooms
func (r *PostgresRepository) SupervisorHasChild(ctx context.Context, supervisorID, childID int) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM room_children rc
			JOIN rooms r ON r.rooms_id = rc.rooms_id
			WHERE r.supervisor_id = $1 AND rc.child_id = $2
		)
	`
	var ok bool
	if err := r.pool.QueryRow(ctx, query, supervisorID, childID).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check room membership: %w", err)
	}
	return ok, nil
}

// Attempts

const attemptColumns = `assessment_id, child_id, aspect, rater_id, supervisor, assessment_details_id, passed, status, created_at, updated_at`

func scanAttempt(row pgx.Row) (*models.Attempt, error) {
	var a models.Attempt
	var aspect, status string
	err := row.Scan(&a.ID, &a.ChildID, &aspect, &a.RaterID, &a.Supervisor, &a.DetailsID, &a.Passed, &status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Aspect = models.Aspect(aspect)
	a.Status = models.AttemptStatus(status)
	return &a, nil
}

// CreateAttempt inserts an attempt and sets its ID
func (r *PostgresRepository) CreateAttempt(ctx context.Context, a *models.Attempt) error {
	query := `
		INSERT INTO attempts (child_id, aspect, rater_id, supervisor, assessment_details_id, passed, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING assessment_id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		a.ChildID,
		string(a.Aspect),
		a.RaterID,
		a.Supervisor,
		a.DetailsID,
		a.Passed,
		string(a.Status),
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}
	return nil
}

// GetAttempt retrieves an attempt by ID
func (r *PostgresRepository) GetAttempt(ctx context.Context, id int) (*models.Attempt, error) {
	a, err := scanAttempt(r.pool.QueryRow(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE assessment_id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return a, nil
}

// GetLatestAttempt returns the newest attempt for a child, aspect and rater kind
func (r *PostgresRepository) GetLatestAttempt(ctx context.Context, childID int, aspect models.Aspect, supervisor bool) (*models.Attempt, error) {
	query := `
		SELECT ` + attemptColumns + `
		FROM attempts
		WHERE child_id = $1 AND aspect = $2 AND supervisor = $3
		ORDER BY assessment_id DESC
		LIMIT 1
	`
	a, err := scanAttempt(r.pool.QueryRow(ctx, query, childID, string(aspect), supervisor))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest attempt: %w", err)
	}
	return a, nil
}

// UpdateAttempt updates the position and status of an attempt
func (r *PostgresRepository) UpdateAttempt(ctx context.Context, a *models.Attempt) error {
	query := `
		UPDATE attempts
		SET assessment_details_id = $2, passed = $3, status = $4, updated_at = NOW()
		WHERE assessment_id = $1
		RETURNING updated_at
	`

	err := r.pool.QueryRow(ctx, query, a.ID, a.DetailsID, a.Passed, string(a.Status)).Scan(&a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update attempt: %w", err)
	}
	return nil
}

// ListAttemptsByChild returns every attempt of a child
func (r *PostgresRepository) ListAttemptsByChild(ctx context.Context, childID int) ([]*models.Attempt, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE child_id = $1 ORDER BY assessment_id`, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*models.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// Notifications

// CreateNotification inserts a notification
func (r *PostgresRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (notification_id, user_id, message, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query, n.ID, n.UserID, n.Message, n.IsRead, n.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// GetNotification retrieves a notification by ID
func (r *PostgresRepository) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	query := `SELECT notification_id::text, user_id, message, is_read, created_at FROM notifications WHERE notification_id = $1`

	var n models.Notification
	err := r.pool.QueryRow(ctx, query, id).Scan(&n.ID, &n.UserID, &n.Message, &n.IsRead, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return &n, nil
}

// ListNotifications returns a user's notifications, newest first
func (r *PostgresRepository) ListNotifications(ctx context.Context, userID int) ([]*models.Notification, error) {
	query := `
		SELECT notification_id::text, user_id, message, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var list []*models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		list = append(list, &n)
	}
	return list, rows.Err()
}

// MarkNotificationRead flags a notification as read
func (r *PostgresRepository) MarkNotificationRead(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE notification_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteReadNotificationsBefore removes read notifications created before the cutoff
func (r *PostgresRepository) DeleteReadNotificationsBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE is_read AND created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete notifications: %w", err)
	}
	return result.RowsAffected(), nil
}

// UpsertDeviceToken stores the push token of an installation
func (r *PostgresRepository) UpsertDeviceToken(ctx context.Context, t *models.DeviceToken) error {
	query := `
		INSERT INTO device_tokens (installation_id, user_id, expo_push_token, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (installation_id) DO UPDATE
		SET user_id = EXCLUDED.user_id, expo_push_token = EXCLUDED.expo_push_token, updated_at = NOW()
		RETURNING updated_at
	`
	if err := r.pool.QueryRow(ctx, query, t.InstallationID, t.UserID, t.Token).Scan(&t.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert device token: %w", err)
	}
	return nil
}

// ListDeviceTokens returns the installations registered by a user
func (r *PostgresRepository) ListDeviceTokens(ctx context.Context, userID int) ([]*models.DeviceToken, error) {
	query := `
		SELECT installation_id::text, user_id, expo_push_token, updated_at
		FROM device_tokens
		WHERE user_id = $1
		ORDER BY installation_id
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*models.DeviceToken
	for rows.Next() {
		var t models.DeviceToken
		if err := rows.Scan(&t.InstallationID, &t.UserID, &t.Token, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, &t)
	}
	return tokens, rows.Err()
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
