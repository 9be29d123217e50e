// Package assessment runs one rater through one aspect of a child's
// developmental assessment: fetch the current item, take a pass or fail,
// advance, and leave for home or training.
package assessment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dekdek-app/dekdek/internal/age"
	"github.com/dekdek-app/dekdek/internal/models"
	"github.com/dekdek-app/dekdek/internal/store"
	"github.com/dekdek-app/dekdek/pkg/client"
)

// Common errors
var (
	ErrNoRater  = errors.New("no rater id stored")
	ErrBusy     = errors.New("an answer is already being sent")
	ErrNoItem   = errors.New("no item to answer")
	ErrFinished = errors.New("session has exited")
)

// Thai messages shown in the Error state
const (
	MsgNoRater = "ไม่พบข้อมูลผู้ประเมิน กรุณาเข้าสู่ระบบใหม่"
	MsgBadAge  = age.Incomplete
)

// Fetcher loads the current item of an aspect
type Fetcher interface {
	GetAssessmentDetails(ctx context.Context, req client.DetailsRequest) (models.Step, error)
}

// Advancer records answers
type Advancer interface {
	NextAssessment(ctx context.Context, req client.AnswerRequest) (models.Step, error)
	NotPassedSupervisor(ctx context.Context, req client.AnswerRequest) error
}

// Backend is everything a session talks to. *client.Client satisfies it.
type Backend interface {
	Fetcher
	Advancer
}

// State of the session screen
type State int

const (
	StateLoading State = iota
	StateError
	StateHasItem
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	case StateHasItem:
		return "has_item"
	case StateCompleted:
		return "completed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ExitKind says where the rater goes when the session ends
type ExitKind int

const (
	ExitHome ExitKind = iota + 1
	ExitTraining
)

// Exit ends a session. Details is set for training.
type Exit struct {
	Kind    ExitKind
	Details *models.AssessmentDetails
}

// Params select the child, aspect and rater kind of a session
type Params struct {
	ChildID int
	Aspect  models.Aspect
	// Age is the child's "Y ปี M เดือน" display
	Age        string
	Supervisor bool
}

// Snapshot is the observable state of a session
type Snapshot struct {
	State   State
	Item    *models.AssessmentDetails
	Token   int
	Message string
	Busy    bool
	Exit    *Exit
}

// Option configures a session
type Option func(*Session)

// WithMinLoading holds the Loading state for at least d. It changes nothing but pacing.
func WithMinLoading(d time.Duration) Option {
	return func(s *Session) {
		s.minLoading = d
	}
}

// WithLogger sets the session logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// Session is one generic assessment screen for a parent or a supervisor
type Session struct {
	params     Params
	backend    Backend
	store      store.Store
	logger     *zap.Logger
	minLoading time.Duration

	mu         sync.Mutex
	state      State
	item       *models.AssessmentDetails
	token      int
	raterID    int
	message    string
	exit       *Exit
	answering  bool
	generation uint64
	cancel     context.CancelFunc
	observers  map[int]func(Snapshot)
	nextObs    int

	notifyMu sync.Mutex
}

// NewSession creates a session in the Loading state. Call Focus to fetch.
func NewSession(params Params, backend Backend, s store.Store, opts ...Option) *Session {
	sess := &Session{
		params:    params,
		backend:   backend,
		store:     s,
		logger:    zap.NewNop(),
		state:     StateLoading,
		observers: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(sess)
	}
	return sess
}

// Params returns what the session was created for
func (s *Session) Params() Params {
	return s.params
}

// Observe registers fn for every state change and returns a func that removes it
func (s *Session) Observe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Snapshot returns the current state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		State:   s.state,
		Item:    s.item,
		Token:   s.token,
		Message: s.message,
		Busy:    s.answering,
		Exit:    s.exit,
	}
}

// publish sends the snapshot taken under s.mu to every observer.
// Must be called without s.mu held.
func (s *Session) publish(snap Snapshot, observers []func(Snapshot)) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	for _, fn := range observers {
		fn(snap)
	}
}

func (s *Session) observersLocked() []func(Snapshot) {
	list := make([]func(Snapshot), 0, len(s.observers))
	for _, fn := range s.observers {
		list = append(list, fn)
	}
	return list
}

// begin starts a new request generation: it cancels the previous request,
// enters Loading and returns the request context.
func (s *Session) begin(parent context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.generation++
	gen := s.generation
	s.state = StateLoading
	s.message = ""
	snap, obs := s.snapshotLocked(), s.observersLocked()
	s.mu.Unlock()

	s.publish(snap, obs)
	return ctx, gen
}

// apply runs update if gen is still the latest request and the session has
// not exited. It reports whether the update was applied.
func (s *Session) apply(gen uint64, update func()) bool {
	s.mu.Lock()
	if gen != s.generation || s.exit != nil {
		s.mu.Unlock()
		return false
	}
	update()
	snap, obs := s.snapshotLocked(), s.observersLocked()
	s.mu.Unlock()

	s.publish(snap, obs)
	return true
}

// hold keeps Loading visible until minLoading has passed since start
func (s *Session) hold(ctx context.Context, start time.Time) {
	remaining := s.minLoading - time.Since(start)
	if remaining <= 0 {
		return
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (s *Session) fail(gen uint64, message string) {
	s.apply(gen, func() {
		s.state = StateError
		s.item = nil
		s.message = message
	})
}

func (s *Session) show(gen uint64, step models.Step) {
	s.apply(gen, func() {
		if step.Complete() {
			s.state = StateCompleted
			s.item = nil
			s.token = 0
			return
		}
		s.state = StateHasItem
		s.item = step.Details
		s.token = step.Token
	})
}

// Focus re-reads the rater and fetches the current item. A newer Focus or
// Answer supersedes it; a superseded result is dropped.
func (s *Session) Focus(ctx context.Context) error {
	if s.Snapshot().Exit != nil {
		return ErrFinished
	}

	ctx, gen := s.begin(ctx)
	start := time.Now()

	raterID, err := store.UserID(ctx, s.store)
	if err != nil {
		s.logger.Warn("no rater for session", zap.Error(err))
		s.fail(gen, MsgNoRater)
		return fmt.Errorf("%w: %v", ErrNoRater, err)
	}

	months, err := age.ConvertToMonths(s.params.Age)
	if err != nil {
		s.fail(gen, MsgBadAge)
		return err
	}

	s.mu.Lock()
	if gen == s.generation {
		s.raterID = raterID
	}
	s.mu.Unlock()

	step, err := s.backend.GetAssessmentDetails(ctx, client.DetailsRequest{
		ChildID:    s.params.ChildID,
		Aspect:     s.params.Aspect,
		RaterID:    raterID,
		AgeMonths:  months,
		Supervisor: s.params.Supervisor,
	})
	s.hold(ctx, start)
	if err != nil {
		s.logger.Warn("failed to fetch assessment",
			zap.Error(err),
			zap.Int("child", s.params.ChildID),
			zap.String("aspect", string(s.params.Aspect)),
		)
		s.fail(gen, client.UserMessage(err))
		return err
	}

	s.show(gen, step)
	return nil
}

// Answer records pass or fail for the current item. Pass advances; fail
// exits to training, after the not-passed acknowledgement for supervisors.
func (s *Session) Answer(ctx context.Context, passed bool) error {
	s.mu.Lock()
	switch {
	case s.exit != nil:
		s.mu.Unlock()
		return ErrFinished
	case s.answering:
		s.mu.Unlock()
		return ErrBusy
	case s.state != StateHasItem || s.item == nil:
		s.mu.Unlock()
		return ErrNoItem
	}
	s.answering = true
	item, token, raterID := s.item, s.token, s.raterID
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.answering = false
		snap, obs := s.snapshotLocked(), s.observersLocked()
		s.mu.Unlock()
		s.publish(snap, obs)
	}()

	req := client.AnswerRequest{
		ChildID:    s.params.ChildID,
		Aspect:     s.params.Aspect,
		Token:      token,
		RaterID:    raterID,
		Supervisor: s.params.Supervisor,
	}

	ctx, gen := s.begin(ctx)
	start := time.Now()

	if passed {
		step, err := s.backend.NextAssessment(ctx, req)
		s.hold(ctx, start)
		if err != nil {
			s.logger.Warn("failed to advance assessment", zap.Error(err), zap.Int("token", token))
			s.fail(gen, client.UserMessage(err))
			return err
		}
		s.show(gen, step)
		return nil
	}

	if s.params.Supervisor {
		err := s.backend.NotPassedSupervisor(ctx, req)
		s.hold(ctx, start)
		if err != nil {
			s.logger.Warn("failed to record not passed", zap.Error(err), zap.Int("token", token))
			s.fail(gen, client.UserMessage(err))
			return err
		}
	}

	s.leave(gen, &Exit{Kind: ExitTraining, Details: item})
	return nil
}

func (s *Session) leave(gen uint64, exit *Exit) {
	s.apply(gen, func() {
		s.exit = exit
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
	})
}

// Home exits to the home screen, cancelling anything in flight
func (s *Session) Home() {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()
	s.leave(gen, &Exit{Kind: ExitHome})
}

// Close cancels any in-flight request without changing the state
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
