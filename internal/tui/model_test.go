package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekdek-app/dekdek/internal/assessment"
	"github.com/dekdek-app/dekdek/internal/models"
	"github.com/dekdek-app/dekdek/internal/store"
	"github.com/dekdek-app/dekdek/pkg/client"
)

type stubBackend struct {
	details func() (models.Step, error)
	next    func() (models.Step, error)
}

func (b *stubBackend) GetAssessmentDetails(context.Context, client.DetailsRequest) (models.Step, error) {
	return b.details()
}

func (b *stubBackend) NextAssessment(context.Context, client.AnswerRequest) (models.Step, error) {
	return b.next()
}

func (b *stubBackend) NotPassedSupervisor(context.Context, client.AnswerRequest) error {
	return nil
}

var (
	first = &models.AssessmentDetails{
		ID: 1, Name: "ยกศีรษะ", AgeRange: "0-1", Image: "gm_1.jpg",
		DeviceName: models.None, Method: "จัดท่าเด็กนอนคว่ำ", Succession: "เด็กยกศีรษะได้",
	}
	second = &models.AssessmentDetails{ID: 2, Name: "ยกอก", AgeRange: "1-2", Image: "gm_2.jpg", DeviceName: "ของเล่น"}
)

func newModel(t *testing.T, backend assessment.Backend) Model {
	t.Helper()

	kv := store.NewMemoryStore()
	require.NoError(t, kv.Set(context.Background(), store.KeyUserID, "7"))

	sess := assessment.NewSession(assessment.Params{
		ChildID: 3,
		Aspect:  models.AspectGM,
		Age:     "0 ปี 1 เดือน",
	}, backend, kv)

	child := &models.Child{ID: 3, NickName: "ต้นกล้า", Gender: models.GenderMale}
	return New(context.Background(), sess, child)
}

func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	next, _ := m.Update(cmd())
	return next.(Model)
}

func press(m Model, key tea.KeyMsg) (Model, tea.Cmd) {
	next, cmd := m.Update(key)
	return next.(Model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestModelShowsItem(t *testing.T) {
	m := newModel(t, &stubBackend{
		details: func() (models.Step, error) { return models.NextItem(first, 5), nil },
	})
	assert.Equal(t, assessment.StateLoading, m.snap.State)
	assert.Contains(t, m.View(), "กำลังโหลด")

	m = run(t, m, m.focus())
	require.Equal(t, assessment.StateHasItem, m.snap.State)

	view := m.View()
	assert.Contains(t, view, "น้องต้นกล้า")
	assert.Contains(t, view, "ยกศีรษะ")
	assert.Contains(t, view, "assets/images/gm/gm_1.jpg")
	assert.Contains(t, view, "0 ปี 0 เดือน - 0 ปี 1 เดือน")
	assert.NotContains(t, view, "อุปกรณ์")
}

func TestItemViewHidesNoneFields(t *testing.T) {
	m := newModel(t, &stubBackend{})

	view := m.itemView(&models.AssessmentDetails{
		ID: 9, Name: "ต่อก้อนไม้", AgeRange: "12-15",
		Image: models.None, DeviceName: models.None, DeviceImage: models.None, DeviceDetail: models.None,
	})
	assert.Contains(t, view, "ต่อก้อนไม้")
	assert.NotContains(t, view, "รูปภาพ")
	if fallback := m.images.Fallback(models.None).Path; fallback != "" {
		assert.NotContains(t, view, fallback)
	}
	assert.NotContains(t, view, "อุปกรณ์")

	view = m.itemView(&models.AssessmentDetails{ID: 9, Name: "ต่อก้อนไม้", Image: ""})
	assert.NotContains(t, view, "รูปภาพ")
}

func TestModelPassAdvances(t *testing.T) {
	m := newModel(t, &stubBackend{
		details: func() (models.Step, error) { return models.NextItem(first, 5), nil },
		next:    func() (models.Step, error) { return models.NextItem(second, 5), nil },
	})
	m = run(t, m, m.focus())

	m, cmd := press(m, runes("y"))
	m = run(t, m, cmd)

	assert.Equal(t, second, m.snap.Item)
	assert.Contains(t, m.View(), "ของเล่น")
}

func TestModelFailShowsTraining(t *testing.T) {
	m := newModel(t, &stubBackend{
		details: func() (models.Step, error) { return models.NextItem(first, 5), nil },
	})
	m = run(t, m, m.focus())

	m, cmd := press(m, runes("n"))
	m = run(t, m, cmd)

	require.NotNil(t, m.Exit())
	assert.Equal(t, assessment.ExitTraining, m.Exit().Kind)
	view := m.View()
	assert.Contains(t, view, "ฝึกทักษะ: ยกศีรษะ")
	assert.Contains(t, view, "จัดท่าเด็กนอนคว่ำ")
	assert.Contains(t, view, "เด็กยกศีรษะได้")

	_, cmd = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, isQuit(cmd))
}

func TestModelCompleted(t *testing.T) {
	m := newModel(t, &stubBackend{
		details: func() (models.Step, error) { return models.SequenceComplete(), nil },
	})
	m = run(t, m, m.focus())

	assert.Equal(t, assessment.StateCompleted, m.snap.State)
	assert.Contains(t, m.View(), "ครบทุกข้อแล้ว")

	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, isQuit(cmd))
	assert.Equal(t, assessment.ExitHome, m.Exit().Kind)
}

func TestModelErrorRetry(t *testing.T) {
	calls := 0
	m := newModel(t, &stubBackend{
		details: func() (models.Step, error) {
			calls++
			if calls == 1 {
				return models.Step{}, &client.NetworkError{Err: errors.New("connection refused")}
			}
			return models.NextItem(first, 5), nil
		},
	})
	m = run(t, m, m.focus())
	require.Equal(t, assessment.StateError, m.snap.State)
	assert.Contains(t, m.View(), "[r]")

	m, cmd := press(m, runes("r"))
	m = run(t, m, cmd)
	assert.Equal(t, assessment.StateHasItem, m.snap.State)
	assert.Equal(t, 2, calls)
}

func TestModelHomeQuits(t *testing.T) {
	m := newModel(t, &stubBackend{
		details: func() (models.Step, error) { return models.NextItem(first, 5), nil },
	})
	m = run(t, m, m.focus())

	m, cmd := press(m, runes("h"))
	assert.True(t, isQuit(cmd))
	require.NotNil(t, m.Exit())
	assert.Equal(t, assessment.ExitHome, m.Exit().Kind)
}

func TestModelWaitsForChanges(t *testing.T) {
	m := newModel(t, &stubBackend{
		details: func() (models.Step, error) { return models.NextItem(first, 5), nil },
	})
	m.focus()()

	msg := m.wait()()
	assert.Equal(t, changedMsg{}, msg)

	next, _ := m.Update(msg)
	assert.Equal(t, assessment.StateHasItem, next.(Model).snap.State)
}
