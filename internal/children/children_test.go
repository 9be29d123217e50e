package children

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekdek-app/dekdek/internal/age"
	"github.com/dekdek-app/dekdek/internal/models"
	"github.com/dekdek-app/dekdek/internal/validation"
)

type fakeBackend struct {
	children []*models.Child
	added    []validation.ChildForm
	rooms    []*models.Room
	assigned [][2]int
}

func (b *fakeBackend) ListChildren(context.Context, int) ([]*models.Child, error) {
	return b.children, nil
}

func (b *fakeBackend) AddChild(_ context.Context, form validation.ChildForm) (*models.Child, error) {
	b.added = append(b.added, form)
	return &models.Child{ID: 99, ParentID: form.ParentID, Name: form.Name, Birthday: form.Birthday, Age: "stale"}, nil
}

func (b *fakeBackend) UpdateChild(_ context.Context, id int, form validation.ChildForm) (*models.Child, error) {
	return &models.Child{ID: id, Birthday: form.Birthday}, nil
}

func (b *fakeBackend) DeleteChild(context.Context, int) error { return nil }

func (b *fakeBackend) ListRooms(context.Context, int) ([]*models.Room, error) { return b.rooms, nil }

func (b *fakeBackend) CreateRoom(_ context.Context, form validation.RoomForm) (*models.Room, error) {
	return &models.Room{ID: 1, Name: form.Name, SupervisorID: form.SupervisorID}, nil
}

func (b *fakeBackend) RoomChildren(context.Context, int) ([]*models.Child, error) {
	return b.children, nil
}

func (b *fakeBackend) AssignChild(_ context.Context, roomID, childID int) error {
	b.assigned = append(b.assigned, [2]int{roomID, childID})
	return nil
}

func (b *fakeBackend) UnassignChild(context.Context, int, int) error { return nil }

var today = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

func TestListRecomputesAge(t *testing.T) {
	backend := &fakeBackend{children: []*models.Child{
		{ID: 1, Birthday: "2023-01-01", Age: "0 ปี 0 เดือน"},
		{ID: 2, Birthday: "garbage"},
	}}
	svc := NewService(backend)
	svc.now = func() time.Time { return today }

	list, err := svc.List(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "3 ปี 9 เดือน", list[0].Age)
	assert.Equal(t, age.NoData, list[1].Age)
}

func TestFind(t *testing.T) {
	svc := NewService(&fakeBackend{children: []*models.Child{{ID: 1, Birthday: "2023-01-01"}}})

	c, err := svc.Find(context.Background(), 5, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, c.ID)

	_, err = svc.Find(context.Background(), 5, 2)
	assert.Error(t, err)
}

func TestAddValidates(t *testing.T) {
	backend := &fakeBackend{}
	svc := NewService(backend)
	svc.now = func() time.Time { return today }

	_, err := svc.Add(context.Background(), validation.ChildForm{ParentID: 5, Name: " "})
	require.Error(t, err)
	assert.Empty(t, backend.added)

	child, err := svc.Add(context.Background(), validation.ChildForm{
		ParentID: 5, Name: "เด็กชายต้นกล้า", NickName: "กล้า", Birthday: "2024-04-16", Gender: models.GenderMale,
	})
	require.NoError(t, err)
	assert.Len(t, backend.added, 1)
	assert.Equal(t, "2 ปี 6 เดือน", child.Age)
}

func TestThemeFor(t *testing.T) {
	assert.Equal(t, boyTheme, ThemeFor(models.GenderMale))
	assert.Equal(t, girlTheme, ThemeFor(models.GenderFemale))
	assert.Equal(t, neutralTheme, ThemeFor(""))
}

func TestAgeMonths(t *testing.T) {
	months, err := AgeMonths(&models.Child{Birthday: "2024-04-16"}, today)
	require.NoError(t, err)
	assert.Equal(t, 30, months)

	_, err = AgeMonths(&models.Child{Birthday: "nope"}, today)
	assert.Error(t, err)
}

func TestRoomService(t *testing.T) {
	backend := &fakeBackend{children: []*models.Child{{ID: 1, Birthday: "2025-10-16"}}}
	svc := NewRoomService(backend)
	svc.now = func() time.Time { return today }
	ctx := context.Background()

	_, err := svc.Create(ctx, validation.RoomForm{SupervisorID: 3})
	require.Error(t, err)

	room, err := svc.Create(ctx, validation.RoomForm{SupervisorID: 3, Name: "ห้องดอกไม้", Colors: "#ffaacc"})
	require.NoError(t, err)
	assert.Equal(t, "ห้องดอกไม้", room.Name)

	kids, err := svc.Children(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, "1 ปี 0 เดือน", kids[0].Age)

	require.Error(t, svc.Assign(ctx, 0, 1))
	require.NoError(t, svc.Assign(ctx, room.ID, 1))
	assert.Equal(t, [][2]int{{1, 1}}, backend.assigned)
}
