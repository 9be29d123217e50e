package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dekdek-app/dekdek/internal/models"
)

// MemoryRepository implements Repository in process memory. Records are
// copied in and out so callers never share state with the repository.
type MemoryRepository struct {
	mu sync.RWMutex

	nextID        map[string]int
	users         map[int]*models.User
	children      map[int]*models.Child
	rooms         map[int]*models.Room
	roomChildren  map[int]map[int]bool
	attempts      map[int]*models.Attempt
	notifications map[string]*models.Notification
	deviceTokens  map[string]*models.DeviceToken
}

// NewMemoryRepository creates an empty repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		nextID:        make(map[string]int),
		users:         make(map[int]*models.User),
		children:      make(map[int]*models.Child),
		rooms:         make(map[int]*models.Room),
		roomChildren:  make(map[int]map[int]bool),
		attempts:      make(map[int]*models.Attempt),
		notifications: make(map[string]*models.Notification),
		deviceTokens:  make(map[string]*models.DeviceToken),
	}
}

func (r *MemoryRepository) id(table string) int {
	r.nextID[table]++
	return r.nextID[table]
}

// Users

func (r *MemoryRepository) CreateUser(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicate
		}
	}

	u.ID = r.id("users")
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetUser(_ context.Context, id int) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *MemoryRepository) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) UpdateUser(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return ErrNotFound
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *MemoryRepository) ListUsers(_ context.Context) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*models.User, 0, len(r.users))
	for _, u := range r.users {
		cp := *u
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Children

func (r *MemoryRepository) CreateChild(_ context.Context, c *models.Child) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = r.id("children")
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	cp := *c
	r.children[c.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetChild(_ context.Context, id int) (*models.Child, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.children[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r *MemoryRepository) UpdateChild(_ context.Context, c *models.Child) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.children[c.ID]
	if !ok {
		return ErrNotFound
	}
	cp := *c
	cp.CreatedAt = existing.CreatedAt
	r.children[c.ID] = &cp
	return nil
}

func (r *MemoryRepository) DeleteChild(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.children[id]; !ok {
		return ErrNotFound
	}
	delete(r.children, id)
	for _, members := range r.roomChildren {
		delete(members, id)
	}
	for aid, a := range r.attempts {
		if a.ChildID == id {
			delete(r.attempts, aid)
		}
	}
	return nil
}

func (r *MemoryRepository) ListChildrenByParent(_ context.Context, parentID int) ([]*models.Child, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*models.Child
	for _, c := range r.children {
		if c.ParentID == parentID {
			cp := *c
			result = append(result, &cp)
		}
	}
	sortChildren(result)
	return result, nil
}

func sortChildren(children []*models.Child) {
	sort.Slice(children, func(i, j int) bool { return children[i].ID < children[j].ID })
}

// Rooms

func (r *MemoryRepository) CreateRoom(_ context.Context, room *models.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	room.ID = r.id("rooms")
	room.ChildCount = 0
	cp := *room
	r.rooms[room.ID] = &cp
	r.roomChildren[room.ID] = make(map[int]bool)
	return nil
}

func (r *MemoryRepository) GetRoom(_ context.Context, id int) (*models.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if room, ok := r.rooms[id]; ok {
		cp := *room
		cp.ChildCount = len(r.roomChildren[id])
		return &cp, nil
	}
	return nil, nil
}

func (r *MemoryRepository) ListRoomsBySupervisor(_ context.Context, supervisorID int) ([]*models.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*models.Room
	for _, room := range r.rooms {
		if room.SupervisorID == supervisorID {
			cp := *room
			cp.ChildCount = len(r.roomChildren[room.ID])
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *MemoryRepository) AddChildToRoom(_ context.Context, roomID, childID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.roomChildren[roomID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := r.children[childID]; !ok {
		return ErrNotFound
	}
	if members[childID] {
		return ErrDuplicate
	}
	members[childID] = true
	return nil
}

func (r *MemoryRepository) RemoveChildFromRoom(_ context.Context, roomID, childID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.roomChildren[roomID][childID] {
		return ErrNotFound
	}
	delete(r.roomChildren[roomID], childID)
	return nil
}

func (r *MemoryRepository) ListRoomChildren(_ context.Context, roomID int) ([]*models.Child, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*models.Child
	for childID := range r.roomChildren[roomID] {
		if c, ok := r.children[childID]; ok {
			cp := *c
			result = append(result, &cp)
		}
	}
	sortChildren(result)
	return result, nil
}

func (r *MemoryRepository) SupervisorHasChild(_ context.Context, supervisorID, childID int) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for roomID, room := range r.rooms {
		if room.SupervisorID == supervisorID && r.roomChildren[roomID][childID] {
			return true, nil
		}
	}
	return false, nil
}

// Attempts

func (r *MemoryRepository) CreateAttempt(_ context.Context, a *models.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = r.id("attempts")
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	cp := *a
	r.attempts[a.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetAttempt(_ context.Context, id int) (*models.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.attempts[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (r *MemoryRepository) GetLatestAttempt(_ context.Context, childID int, aspect models.Aspect, supervisor bool) (*models.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *models.Attempt
	for _, a := range r.attempts {
		if a.ChildID != childID || a.Aspect != aspect || a.Supervisor != supervisor {
			continue
		}
		if latest == nil || a.ID > latest.ID {
			latest = a
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *MemoryRepository) UpdateAttempt(_ context.Context, a *models.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.attempts[a.ID]; !ok {
		return ErrNotFound
	}
	a.UpdatedAt = time.Now().UTC()
	cp := *a
	r.attempts[a.ID] = &cp
	return nil
}

func (r *MemoryRepository) ListAttemptsByChild(_ context.Context, childID int) ([]*models.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*models.Attempt
	for _, a := range r.attempts {
		if a.ChildID == childID {
			cp := *a
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Notifications

func (r *MemoryRepository) CreateNotification(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.notifications[n.ID]; ok {
		return ErrDuplicate
	}
	cp := *n
	r.notifications[n.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetNotification(_ context.Context, id string) (*models.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n, ok := r.notifications[id]; ok {
		cp := *n
		return &cp, nil
	}
	return nil, nil
}

func (r *MemoryRepository) ListNotifications(_ context.Context, userID int) ([]*models.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*models.Notification
	for _, n := range r.notifications {
		if n.UserID == userID {
			cp := *n
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r *MemoryRepository) MarkNotificationRead(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok {
		return ErrNotFound
	}
	n.IsRead = true
	return nil
}

func (r *MemoryRepository) DeleteReadNotificationsBefore(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, n := range r.notifications {
		if n.IsRead && n.CreatedAt.Before(before) {
			delete(r.notifications, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *MemoryRepository) UpsertDeviceToken(_ context.Context, t *models.DeviceToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.UpdatedAt = time.Now().UTC()
	cp := *t
	r.deviceTokens[t.InstallationID] = &cp
	return nil
}

func (r *MemoryRepository) ListDeviceTokens(_ context.Context, userID int) ([]*models.DeviceToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*models.DeviceToken
	for _, t := range r.deviceTokens {
		if t.UserID == userID {
			cp := *t
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].InstallationID < result[j].InstallationID })
	return result, nil
}

// Health

func (r *MemoryRepository) Ping(context.Context) error { return nil }

func (r *MemoryRepository) Close() error { return nil }
