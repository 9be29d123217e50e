package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dekdek-app/dekdek/internal/models"
)

// statusPassedAll is the backend's end-of-sequence marker
const statusPassedAll = "passed_all"

// DetailsRequest identifies the item to fetch
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

func suffix(supervisor bool) string {
	if supervisor {
		return "-supervisor"
	}
	return ""
}

// stepPayload is the part of the details and next responses that carries an item
type stepPayload struct {
	Details                *models.AssessmentDetails `json:"details"`
	AssessmentID           *int                      `json:"assessment_id"`
	SupervisorAssessmentID *int                      `json:"supervisor_assessment_id"`
}

// step decodes the payload. No details means the sequence is over; details
// without a token is treated as a broken response, never as completion.
func (p stepPayload) step(supervisor bool) (models.Step, error) {
	if p.Details == nil {
		return models.SequenceComplete(), nil
	}

	token := p.AssessmentID
	if supervisor {
		token = p.SupervisorAssessmentID
	}
	if token == nil {
		return models.Step{}, ErrMissingAttemptToken
	}

	return models.NextItem(p.Details, *token), nil
}

// GetAssessmentDetails fetches the current item of an aspect for a child
func (c *Client) GetAssessmentDetails(ctx context.Context, req DetailsRequest) (models.Step, error) {
	path := fmt.Sprintf("/api/assessments/assessments-get-details%s/%d/%s/%d/%d",
		suffix(req.Supervisor), req.ChildID, req.Aspect, req.RaterID, req.AgeMonths)

	var payload stepPayload
	if err := c.call(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return models.Step{}, err
	}

	return payload.step(req.Supervisor)
}

// NextAssessment records a pass and returns the following item
func (c *Client) NextAssessment(ctx context.Context, req AnswerRequest) (models.Step, error) {
	path := fmt.Sprintf("/api/assessments/assessments-next%s/%d/%s", suffix(req.Supervisor), req.ChildID, req.Aspect)
	body := models.NewAttemptRef(req.Supervisor, req.Token, req.RaterID)

	var result struct {
		NextAssessment *struct {
			Status string `json:"status"`
			stepPayload
		} `json:"next_assessment"`
	}
	if err := c.call(ctx, http.MethodPost, path, body, &result); err != nil {
		return models.Step{}, err
	}

	next := result.NextAssessment
	if next == nil {
		return models.Step{}, fmt.Errorf("%w: no next_assessment", ErrMalformedResponse)
	}
	if next.Status == statusPassedAll {
		return models.SequenceComplete(), nil
	}
	if next.Details == nil {
		return models.Step{}, fmt.Errorf("%w: status %q without details", ErrMalformedResponse, next.Status)
	}

	return next.step(req.Supervisor)
}

// NotPassedSupervisor records a supervisor's fail answer
func (c *Client) NotPassedSupervisor(ctx context.Context, req AnswerRequest) error {
	path := fmt.Sprintf("/api/assessments/assessments-not-passed-supervisor/%d/%s", req.ChildID, req.Aspect)
	body := models.NewAttemptRef(true, req.Token, req.RaterID)
	return c.call(ctx, http.MethodPost, path, body, nil)
}

// AssessmentProgress returns a child's standing in every aspect
func (c *Client) AssessmentProgress(ctx context.Context, childID int) ([]models.AspectProgress, error) {
	var progress []models.AspectProgress
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/assessments/assessments-progress/%d", childID), nil, &progress); err != nil {
		return nil, err
	}
	return progress, nil
}
