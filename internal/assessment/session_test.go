package assessment

import (
	"context"
	"errors"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/dekdek-app/dekdek/internal/api"
	"github.com/dekdek-app/dekdek/internal/catalog"
	"github.com/dekdek-app/dekdek/internal/config"
	"github.com/dekdek-app/dekdek/internal/models"
	"github.com/dekdek-app/dekdek/internal/progression"
	"github.com/dekdek-app/dekdek/internal/storage"
	"github.com/dekdek-app/dekdek/internal/store"
	"github.com/dekdek-app/dekdek/internal/validation"
	"github.com/dekdek-app/dekdek/pkg/client"
)

type fakeBackend struct {
	mu             sync.Mutex
	details        func(ctx context.Context, req client.DetailsRequest) (models.Step, error)
	next           func(ctx context.Context, req client.AnswerRequest) (models.Step, error)
	notPassed      func(ctx context.Context, req client.AnswerRequest) error
	detailsReqs    []client.DetailsRequest
	nextReqs       []client.AnswerRequest
	notPassedCalls int
}

func (b *fakeBackend) GetAssessmentDetails(ctx context.Context, req client.DetailsRequest) (models.Step, error) {
	b.mu.Lock()
	b.detailsReqs = append(b.detailsReqs, req)
	fn := b.details
	b.mu.Unlock()
	return fn(ctx, req)
}

func (b *fakeBackend) NextAssessment(ctx context.Context, req client.AnswerRequest) (models.Step, error) {
	b.mu.Lock()
	b.nextReqs = append(b.nextReqs, req)
	fn := b.next
	b.mu.Unlock()
	return fn(ctx, req)
}

func (b *fakeBackend) NotPassedSupervisor(ctx context.Context, req client.AnswerRequest) error {
	b.mu.Lock()
	b.notPassedCalls++
	fn := b.notPassed
	b.mu.Unlock()
	return fn(ctx, req)
}

var (
	item1 = &models.AssessmentDetails{ID: 1, Name: "ยกศีรษะ", AgeRange: "0-1"}
	item2 = &models.AssessmentDetails{ID: 2, Name: "ยกอก", AgeRange: "1-2"}
)

func itemBackend() *fakeBackend {
	return &fakeBackend{
		details: func(context.Context, client.DetailsRequest) (models.Step, error) {
			return models.NextItem(item1, 41), nil
		},
		next: func(context.Context, client.AnswerRequest) (models.Step, error) {
			return models.NextItem(item2, 41), nil
		},
		notPassed: func(context.Context, client.AnswerRequest) error { return nil },
	}
}

func raterStore(t *testing.T, id int) store.Store {
	t.Helper()
	kv := store.NewMemoryStore()
	require.NoError(t, kv.Set(context.Background(), store.KeyUserID, strconv.Itoa(id)))
	return kv
}

var params = Params{ChildID: 3, Aspect: models.AspectGM, Age: "1 ปี 2 เดือน"}

func TestFocusShowsItem(t *testing.T) {
	backend := itemBackend()
	sess := NewSession(params, backend, raterStore(t, 7))

	var states []State
	var mu sync.Mutex
	sess.Observe(func(s Snapshot) {
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	})

	require.NoError(t, sess.Focus(context.Background()))

	snap := sess.Snapshot()
	assert.Equal(t, StateHasItem, snap.State)
	assert.Equal(t, item1, snap.Item)
	assert.Equal(t, 41, snap.Token)

	require.Len(t, backend.detailsReqs, 1)
	assert.Equal(t, client.DetailsRequest{ChildID: 3, Aspect: models.AspectGM, RaterID: 7, AgeMonths: 14}, backend.detailsReqs[0])

	mu.Lock()
	assert.Equal(t, []State{StateLoading, StateHasItem}, states)
	mu.Unlock()
}

func TestFocusRereadsRater(t *testing.T) {
	backend := itemBackend()
	kv := raterStore(t, 7)
	sess := NewSession(params, backend, kv)

	require.NoError(t, sess.Focus(context.Background()))
	require.NoError(t, kv.Set(context.Background(), store.KeyUserID, "8"))
	require.NoError(t, sess.Focus(context.Background()))

	require.Len(t, backend.detailsReqs, 2)
	assert.Equal(t, 8, backend.detailsReqs[1].RaterID)
}

func TestFocusWithoutRater(t *testing.T) {
	backend := itemBackend()
	sess := NewSession(params, backend, store.NewMemoryStore())

	err := sess.Focus(context.Background())
	assert.ErrorIs(t, err, ErrNoRater)

	snap := sess.Snapshot()
	assert.Equal(t, StateError, snap.State)
	assert.Equal(t, MsgNoRater, snap.Message)
	assert.Empty(t, backend.detailsReqs)
}

func TestFocusWithMalformedAge(t *testing.T) {
	sess := NewSession(Params{ChildID: 3, Aspect: models.AspectGM, Age: "ไม่มีข้อมูล"}, itemBackend(), raterStore(t, 7))

	err := sess.Focus(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateError, sess.Snapshot().State)
	assert.Equal(t, MsgBadAge, sess.Snapshot().Message)
}

func TestFocusMissingTokenIsAnError(t *testing.T) {
	backend := itemBackend()
	backend.details = func(context.Context, client.DetailsRequest) (models.Step, error) {
		return models.Step{}, client.ErrMissingAttemptToken
	}
	sess := NewSession(params, backend, raterStore(t, 7))

	err := sess.Focus(context.Background())
	assert.ErrorIs(t, err, client.ErrMissingAttemptToken)

	snap := sess.Snapshot()
	assert.Equal(t, StateError, snap.State)
	assert.Equal(t, client.MsgMissingToken, snap.Message)
}

func TestFocusCompleted(t *testing.T) {
	backend := itemBackend()
	backend.details = func(context.Context, client.DetailsRequest) (models.Step, error) {
		return models.SequenceComplete(), nil
	}
	sess := NewSession(params, backend, raterStore(t, 7))

	require.NoError(t, sess.Focus(context.Background()))
	snap := sess.Snapshot()
	assert.Equal(t, StateCompleted, snap.State)
	assert.Nil(t, snap.Item)
}

func TestStaleFocusIsDropped(t *testing.T) {
	defer goleak.VerifyNone(t)

	backend := itemBackend()
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex
	backend.details = func(ctx context.Context, _ client.DetailsRequest) (models.Step, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			// the first request ignores cancellation and answers late
			<-release
			return models.NextItem(item1, 1), nil
		}
		return models.NextItem(item2, 2), nil
	}
	sess := NewSession(params, backend, raterStore(t, 7))

	firstDone := make(chan error, 1)
	go func() { firstDone <- sess.Focus(context.Background()) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 1
	}, time.Second, time.Millisecond)

	require.NoError(t, sess.Focus(context.Background()))
	close(release)
	require.NoError(t, <-firstDone)

	snap := sess.Snapshot()
	assert.Equal(t, item2, snap.Item)
	assert.Equal(t, 2, snap.Token)
}

func TestSupersededFocusIsCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	backend := itemBackend()
	started := make(chan struct{}, 1)
	var calls int
	var mu sync.Mutex
	backend.details = func(ctx context.Context, _ client.DetailsRequest) (models.Step, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			started <- struct{}{}
			<-ctx.Done()
			return models.Step{}, ctx.Err()
		}
		return models.NextItem(item2, 2), nil
	}
	sess := NewSession(params, backend, raterStore(t, 7))

	firstDone := make(chan error, 1)
	go func() { firstDone <- sess.Focus(context.Background()) }()
	<-started

	require.NoError(t, sess.Focus(context.Background()))
	assert.ErrorIs(t, <-firstDone, context.Canceled)

	// the cancelled request did not overwrite the newer state
	assert.Equal(t, StateHasItem, sess.Snapshot().State)
	assert.Equal(t, item2, sess.Snapshot().Item)
}

func TestAnswerPassAdvances(t *testing.T) {
	backend := itemBackend()
	sess := NewSession(params, backend, raterStore(t, 7))
	ctx := context.Background()

	require.NoError(t, sess.Focus(ctx))
	require.NoError(t, sess.Answer(ctx, true))

	snap := sess.Snapshot()
	assert.Equal(t, StateHasItem, snap.State)
	assert.Equal(t, item2, snap.Item)
	assert.False(t, snap.Busy)

	require.Len(t, backend.nextReqs, 1)
	assert.Equal(t, client.AnswerRequest{ChildID: 3, Aspect: models.AspectGM, Token: 41, RaterID: 7}, backend.nextReqs[0])
}

func TestAnswerBeforeItem(t *testing.T) {
	sess := NewSession(params, itemBackend(), raterStore(t, 7))
	assert.ErrorIs(t, sess.Answer(context.Background(), true), ErrNoItem)
}

func TestAnswerIsGuardedAgainstDoubleTap(t *testing.T) {
	defer goleak.VerifyNone(t)

	backend := itemBackend()
	release := make(chan struct{})
	backend.next = func(context.Context, client.AnswerRequest) (models.Step, error) {
		<-release
		return models.NextItem(item2, 41), nil
	}
	sess := NewSession(params, backend, raterStore(t, 7))
	ctx := context.Background()
	require.NoError(t, sess.Focus(ctx))

	done := make(chan error, 1)
	go func() { done <- sess.Answer(ctx, true) }()

	require.Eventually(t, func() bool { return sess.Snapshot().Busy }, time.Second, time.Millisecond)
	assert.ErrorIs(t, sess.Answer(ctx, true), ErrBusy)

	close(release)
	require.NoError(t, <-done)
	assert.Len(t, backend.nextReqs, 1)
}

func TestAnswerFailureShowsError(t *testing.T) {
	backend := itemBackend()
	backend.next = func(context.Context, client.AnswerRequest) (models.Step, error) {
		return models.Step{}, &client.APIError{StatusCode: 500, Message: "boom"}
	}
	sess := NewSession(params, backend, raterStore(t, 7))
	ctx := context.Background()
	require.NoError(t, sess.Focus(ctx))

	require.Error(t, sess.Answer(ctx, true))
	snap := sess.Snapshot()
	assert.Equal(t, StateError, snap.State)
	assert.Equal(t, client.MsgServerError, snap.Message)
}

func TestParentFailExitsToTraining(t *testing.T) {
	backend := itemBackend()
	sess := NewSession(params, backend, raterStore(t, 7))
	ctx := context.Background()
	require.NoError(t, sess.Focus(ctx))

	require.NoError(t, sess.Answer(ctx, false))

	exit := sess.Snapshot().Exit
	require.NotNil(t, exit)
	assert.Equal(t, ExitTraining, exit.Kind)
	assert.Equal(t, item1, exit.Details)
	assert.Zero(t, backend.notPassedCalls)
	assert.Empty(t, backend.nextReqs)

	assert.ErrorIs(t, sess.Focus(ctx), ErrFinished)
	assert.ErrorIs(t, sess.Answer(ctx, true), ErrFinished)
}

func TestSupervisorFailAcknowledgesFirst(t *testing.T) {
	backend := itemBackend()
	p := params
	p.Supervisor = true
	sess := NewSession(p, backend, raterStore(t, 9))
	ctx := context.Background()
	require.NoError(t, sess.Focus(ctx))

	require.NoError(t, sess.Answer(ctx, false))
	assert.Equal(t, 1, backend.notPassedCalls)

	exit := sess.Snapshot().Exit
	require.NotNil(t, exit)
	assert.Equal(t, ExitTraining, exit.Kind)
}

func TestSupervisorFailAcknowledgementError(t *testing.T) {
	backend := itemBackend()
	backend.notPassed = func(context.Context, client.AnswerRequest) error {
		return &client.NetworkError{Err: errors.New("connection refused")}
	}
	p := params
	p.Supervisor = true
	sess := NewSession(p, backend, raterStore(t, 9))
	ctx := context.Background()
	require.NoError(t, sess.Focus(ctx))

	require.Error(t, sess.Answer(ctx, false))

	snap := sess.Snapshot()
	assert.Nil(t, snap.Exit)
	assert.Equal(t, StateError, snap.State)
	assert.Equal(t, client.MsgNetwork, snap.Message)
}

func TestHome(t *testing.T) {
	sess := NewSession(params, itemBackend(), raterStore(t, 7))
	require.NoError(t, sess.Focus(context.Background()))

	sess.Home()
	exit := sess.Snapshot().Exit
	require.NotNil(t, exit)
	assert.Equal(t, ExitHome, exit.Kind)

	// the first exit wins
	sess.Home()
	assert.Equal(t, ExitHome, sess.Snapshot().Exit.Kind)
}

func TestMinLoadingHoldsLoading(t *testing.T) {
	sess := NewSession(params, itemBackend(), raterStore(t, 7), WithMinLoading(40*time.Millisecond))

	start := time.Now()
	require.NoError(t, sess.Focus(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	assert.Equal(t, StateHasItem, sess.Snapshot().State)
}

func TestObserveUnsubscribe(t *testing.T) {
	sess := NewSession(params, itemBackend(), raterStore(t, 7))

	var count int
	var mu sync.Mutex
	stop := sess.Observe(func(Snapshot) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	stop()

	require.NoError(t, sess.Focus(context.Background()))
	mu.Lock()
	assert.Zero(t, count)
	mu.Unlock()
}

// TestSessionAgainstStubServer walks an aspect to the end on the reference backend
func TestSessionAgainstStubServer(t *testing.T) {
	ctx := context.Background()

	loader := catalog.NewLoader(zap.NewNop())
	loader.Add(&catalog.Sequence{
		Aspect: models.AspectFM,
		Items: []*models.AssessmentDetails{
			{ID: 1, Aspect: models.AspectFM, AgeRange: "0-1", Name: "มองตามวัตถุ", DeviceName: models.None},
			{ID: 2, Aspect: models.AspectFM, AgeRange: "1-2", Name: "คว้าของเล่น", DeviceName: "ลูกบอล"},
		},
	})
	repo := storage.NewMemoryRepository()
	hub := api.NewHub()
	tokens := api.NewTokens("session-test-secret-123", time.Hour)
	engine := progression.NewEngine(loader, repo, zap.NewNop(), progression.WithPublisher(hub))
	srv := httptest.NewServer(api.NewServer(config.ServerConfig{}, repo, engine, tokens, hub, zap.NewNop()).Router())
	defer srv.Close()

	res, err := client.NewClient(srv.URL).Register(ctx, validation.RegisterForm{
		UserName: "แม่มะลิ", Email: "mali@example.com", Password: "password123", PhoneNumber: "0812345678", Role: models.RoleParent,
	})
	require.NoError(t, err)

	kv := store.NewMemoryStore()
	require.NoError(t, store.SaveIdentity(ctx, kv, store.IdentityFromAuth(res)))

	c := client.NewClient(srv.URL, client.WithTokenSource(func(ctx context.Context) (string, error) {
		token, _, err := kv.Get(ctx, store.KeyToken)
		return token, err
	}))

	child, err := c.AddChild(ctx, validation.ChildForm{
		ParentID: res.User.ID, Name: "เด็กชายต้นกล้า", NickName: "กล้า",
		Birthday: time.Now().AddDate(0, -1, 0).Format("2006-01-02"), Gender: models.GenderMale,
	})
	require.NoError(t, err)

	sess := NewSession(Params{ChildID: child.ID, Aspect: models.AspectFM, Age: "0 ปี 0 เดือน"}, c, kv)

	require.NoError(t, sess.Focus(ctx))
	snap := sess.Snapshot()
	require.Equal(t, StateHasItem, snap.State)
	assert.Equal(t, 1, snap.Item.ID)

	require.NoError(t, sess.Answer(ctx, true))
	snap = sess.Snapshot()
	require.Equal(t, StateHasItem, snap.State)
	assert.Equal(t, 2, snap.Item.ID)
	assert.True(t, snap.Item.HasDevice())

	require.NoError(t, sess.Answer(ctx, true))
	snap = sess.Snapshot()
	assert.Equal(t, StateCompleted, snap.State)
	assert.Nil(t, snap.Item)
	assert.Nil(t, snap.Exit)

	assert.ErrorIs(t, sess.Answer(ctx, true), ErrNoItem)
}
