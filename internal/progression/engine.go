// Package progression decides which item a rater sees next. It is the
// backend side of the details/next/not-passed contract.
package progression

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dekdek-app/dekdek/internal/age"
	"github.com/dekdek-app/dekdek/internal/catalog"
	"github.com/dekdek-app/dekdek/internal/models"
	"github.com/dekdek-app/dekdek/internal/storage"
)

// Common errors
var (
	ErrUnknownAspect   = errors.New("aspect has no catalog")
	ErrChildNotFound   = errors.New("child not found")
	ErrAttemptMismatch = errors.New("attempt token does not match the open attempt")
)

// Engine defines the assessment progression operations
type Engine interface {
	Details(ctx context.Context, req DetailsRequest) (*Current, error)
	Next(ctx context.Context, req AnswerRequest) (*Current, error)
	NotPassed(ctx context.Context, req AnswerRequest) error
	Progress(ctx context.Context, childID int) ([]models.AspectProgress, error)
}

// DetailsRequest selects the item to show
type DetailsRequest struct {
	ChildID    int
	Aspect     models.Aspect
	RaterID    int
	AgeMonths  int
	Supervisor bool
}

// AnswerRequest identifies the attempt being answered
type AnswerRequest struct {
	ChildID    int
	Aspect     models.Aspect
	Token      int
	RaterID    int
	Supervisor bool
}

// Current is the state of an attempt after an operation.
// Details is nil once the sequence is over.
type Current struct {
	Status  models.AttemptStatus
	Details *models.AssessmentDetails
	Attempt *models.Attempt
}

// Publisher receives notifications as they are stored
type Publisher interface {
	Publish(n *models.Notification)
}

// Option configures the engine
type Option func(*CatalogEngine)

// WithPublisher forwards new notifications to p
func WithPublisher(p Publisher) Option {
	return func(e *CatalogEngine) {
		e.publisher = p
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(e *CatalogEngine) {
		e.now = now
	}
}

// CatalogEngine implements Engine over the YAML catalog and a repository
type CatalogEngine struct {
	catalog   *catalog.Loader
	repo      storage.Repository
	logger    *zap.Logger
	publisher Publisher
	now       func() time.Time
}

// NewEngine creates a new CatalogEngine
func NewEngine(loader *catalog.Loader, repo storage.Repository, logger *zap.Logger, opts ...Option) *CatalogEngine {
	e := &CatalogEngine{
		catalog: loader,
		repo:    repo,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *CatalogEngine) sequence(aspect models.Aspect) (*catalog.Sequence, error) {
	seq := e.catalog.Get(aspect)
	if seq == nil || len(seq.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAspect, aspect)
	}
	return seq, nil
}

// Details returns the open attempt's item, or starts a new attempt at the
// first item whose band reaches the child's age.
func (e *CatalogEngine) Details(ctx context.Context, req DetailsRequest) (*Current, error) {
	seq, err := e.sequence(req.Aspect)
	if err != nil {
		return nil, err
	}

	latest, err := e.repo.GetLatestAttempt(ctx, req.ChildID, req.Aspect, req.Supervisor)
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if latest != nil {
		switch latest.Status {
		case models.AttemptPassedAll:
			return &Current{Status: latest.Status, Attempt: latest}, nil
		case models.AttemptInProgress:
			if item := seq.Item(latest.DetailsID); item != nil {
				return &Current{Status: latest.Status, Details: item, Attempt: latest}, nil
			}
			// the catalog changed under the attempt; start over
			e.logger.Warn("attempt points at a missing item",
				zap.Int("attempt", latest.ID),
				zap.Int("details_id", latest.DetailsID),
			)
		}
	}

	start := firstForAge(seq, req.AgeMonths)
	if start == nil {
		return &Current{Status: models.AttemptPassedAll}, nil
	}

	attempt := &models.Attempt{
		ChildID:    req.ChildID,
		Aspect:     req.Aspect,
		RaterID:    req.RaterID,
		Supervisor: req.Supervisor,
		DetailsID:  start.ID,
		// items below the child's band count as passed
		Passed: seq.Position(start.ID),
		Status: models.AttemptInProgress,
	}
	if err := e.repo.CreateAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	e.logger.Info("attempt started",
		zap.Int("attempt", attempt.ID),
		zap.Int("child", req.ChildID),
		zap.String("aspect", string(req.Aspect)),
		zap.Bool("supervisor", req.Supervisor),
		zap.Int("details_id", start.ID),
	)

	return &Current{Status: attempt.Status, Details: start, Attempt: attempt}, nil
}

// firstForAge returns the first item whose upper bound is at or above months.
// An item without an upper bound always qualifies.
func firstForAge(seq *catalog.Sequence, months int) *models.AssessmentDetails {
	for _, item := range seq.Items {
		_, max := age.ParseRange(item.AgeRange)
		if max == nil || *max >= months {
			return item
		}
	}
	return nil
}

// open loads the in-progress attempt the token refers to
func (e *CatalogEngine) open(ctx context.Context, req AnswerRequest) (*models.Attempt, error) {
	latest, err := e.repo.GetLatestAttempt(ctx, req.ChildID, req.Aspect, req.Supervisor)
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if latest == nil || latest.ID != req.Token || latest.Status != models.AttemptInProgress {
		return nil, ErrAttemptMismatch
	}
	return latest, nil
}

// Next marks the current item passed and moves the attempt on
func (e *CatalogEngine) Next(ctx context.Context, req AnswerRequest) (*Current, error) {
	seq, err := e.sequence(req.Aspect)
	if err != nil {
		return nil, err
	}

	attempt, err := e.open(ctx, req)
	if err != nil {
		return nil, err
	}

	attempt.Passed++
	attempt.RaterID = req.RaterID
	next := seq.After(attempt.DetailsID)
	if next == nil {
		attempt.Status = models.AttemptPassedAll
		attempt.Passed = len(seq.Items)
	} else {
		attempt.DetailsID = next.ID
	}

	if err := e.repo.UpdateAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to update attempt: %w", err)
	}

	if next == nil {
		e.logger.Info("attempt passed all items",
			zap.Int("attempt", attempt.ID),
			zap.Int("child", req.ChildID),
			zap.String("aspect", string(req.Aspect)),
		)
		e.notifyParent(ctx, req.ChildID, func(c *models.Child) string {
			return fmt.Sprintf("%s ผ่านการประเมิน%sครบทุกข้อแล้ว", displayName(c), req.Aspect.ThaiName())
		})
		return &Current{Status: attempt.Status, Attempt: attempt}, nil
	}

	return &Current{Status: attempt.Status, Details: next, Attempt: attempt}, nil
}

// NotPassed closes a supervisor attempt on its current item
func (e *CatalogEngine) NotPassed(ctx context.Context, req AnswerRequest) error {
	seq, err := e.sequence(req.Aspect)
	if err != nil {
		return err
	}

	req.Supervisor = true
	attempt, err := e.open(ctx, req)
	if err != nil {
		return err
	}

	attempt.Status = models.AttemptNotPassed
	attempt.RaterID = req.RaterID
	if err := e.repo.UpdateAttempt(ctx, attempt); err != nil {
		return fmt.Errorf("failed to update attempt: %w", err)
	}

	itemName := ""
	if item := seq.Item(attempt.DetailsID); item != nil {
		itemName = item.Name
	}

	e.logger.Info("attempt not passed",
		zap.Int("attempt", attempt.ID),
		zap.Int("child", req.ChildID),
		zap.String("aspect", string(req.Aspect)),
		zap.Int("details_id", attempt.DetailsID),
	)

	e.notifyParent(ctx, req.ChildID, func(c *models.Child) string {
		return fmt.Sprintf("%s ยังไม่ผ่าน \"%s\" %s ควรฝึกเพิ่มเติม", displayName(c), itemName, req.Aspect.ThaiName())
	})
	return nil
}

// Progress summarizes the most recently touched attempt of every aspect
func (e *CatalogEngine) Progress(ctx context.Context, childID int) ([]models.AspectProgress, error) {
	attempts, err := e.repo.ListAttemptsByChild(ctx, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	latest := make(map[models.Aspect]*models.Attempt)
	for _, a := range attempts {
		cur, ok := latest[a.Aspect]
		if !ok || a.UpdatedAt.After(cur.UpdatedAt) || (a.UpdatedAt.Equal(cur.UpdatedAt) && a.ID > cur.ID) {
			latest[a.Aspect] = a
		}
	}

	result := make([]models.AspectProgress, 0, len(models.Aspects()))
	for _, aspect := range models.Aspects() {
		p := models.AspectProgress{Aspect: aspect, Status: models.ProgressNotStarted}
		if seq := e.catalog.Get(aspect); seq != nil {
			p.Total = len(seq.Items)
		}
		if a, ok := latest[aspect]; ok {
			p.Passed = a.Passed
			p.Status = models.ProgressStatus(a.Status)
		}
		result = append(result, p)
	}
	return result, nil
}

// notifyParent stores and publishes a message for the child's parent.
// Failures are logged; the attempt has already been recorded.
func (e *CatalogEngine) notifyParent(ctx context.Context, childID int, message func(*models.Child) string) {
	child, err := e.repo.GetChild(ctx, childID)
	if err != nil || child == nil {
		e.logger.Warn("cannot notify parent", zap.Int("child", childID), zap.Error(err))
		return
	}

	n := &models.Notification{
		ID:        uuid.New().String(),
		UserID:    child.ParentID,
		Message:   message(child),
		CreatedAt: e.now().UTC(),
	}
	if err := e.repo.CreateNotification(ctx, n); err != nil {
		e.logger.Error("failed to store notification", zap.Error(err), zap.Int("user", n.UserID))
		return
	}

	if e.publisher != nil {
		e.publisher.Publish(n)
	}
}

func displayName(c *models.Child) string {
	if c.NickName != "" {
		return "น้อง" + c.NickName
	}
	return c.Name
}
