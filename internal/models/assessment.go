package models

import "time"

// None is the sentinel the backend sends for an optional field that must not be displayed
const None = "none"

// Optional returns v and true when v holds a displayable value
func Optional(v string) (string, bool) {
	if v == "" || v == None {
		return "", false
	}
	return v, true
}

// AssessmentDetails is one item of an aspect's sequence
type AssessmentDetails struct {
	ID           int    `json:"assessment_details_id"`
	Aspect       Aspect `json:"assessment_aspect,omitempty"`
	AgeRange     string `json:"age_range"`
	Name         string `json:"assessment_name"`
	Image        string `json:"assessment_image"`
	DeviceName   string `json:"assessment_device_name"`
	DeviceImage  string `json:"assessment_device_image"`
	DeviceDetail string `json:"assessment_device_detail"`
	Method       string `json:"assessment_method"`
	Succession   string `json:"assessment_succession"`
}

// HasDevice reports whether the item needs a device to be shown
func (d *AssessmentDetails) HasDevice() bool {
	_, ok := Optional(d.DeviceName)
	return ok
}

// StepKind tags a Step
type StepKind int

const (
	StepNextItem StepKind = iota + 1
	StepSequenceComplete
)

// Step is what the backend answers to a details or next request:
// either the next item to rate, or the end of the aspect's sequence.
type Step struct {
	Kind    StepKind
	Details *AssessmentDetails
	Token   int
}

// NextItem builds a step carrying the item to rate and its attempt token
func NextItem(details *AssessmentDetails, token int) Step {
	return Step{Kind: StepNextItem, Details: details, Token: token}
}

// SequenceComplete builds the terminal step
func SequenceComplete() Step {
	return Step{Kind: StepSequenceComplete}
}

// Complete returns true if no item remains
func (s Step) Complete() bool {
	return s.Kind == StepSequenceComplete
}

// AttemptStatus represents the current state of an attempt row
type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptNotPassed  AttemptStatus = "not_passed"
	AttemptPassedAll  AttemptStatus = "passed_all"
)

// IsTerminal returns true if the attempt cannot advance any more
func (s AttemptStatus) IsTerminal() bool {
	return s == AttemptPassedAll
}

// Attempt correlates the answers of one rater for one child and aspect
type Attempt struct {
	ID         int           `json:"assessment_id"`
	ChildID    int           `json:"child_id"`
	Aspect     Aspect        `json:"aspect"`
	RaterID    int           `json:"rater_id"`
	Supervisor bool          `json:"supervisor"`
	DetailsID  int           `json:"assessment_details_id"`
	Passed     int           `json:"passed"`
	Status     AttemptStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// ProgressStatus summarizes a child's standing in one aspect
type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not_started"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressNotPassed  ProgressStatus = "not_passed"
	ProgressPassedAll  ProgressStatus = "passed_all"
)

// AspectProgress is one row of a child's dashboard
type AspectProgress struct {
	Aspect Aspect         `json:"aspect"`
	Passed int            `json:"passed"`
	Total  int            `json:"total"`
	Status ProgressStatus `json:"status"`
}

// AttemptRef is the body of next and not-passed requests.
// Exactly one of the parent or supervisor pairs is set.
type AttemptRef struct {
	AssessmentID           *int `json:"assessment_id,omitempty"`
	UserID                 *int `json:"user_id,omitempty"`
	SupervisorAssessmentID *int `json:"supervisor_assessment_id,omitempty"`
	SupervisorID           *int `json:"supervisor_id,omitempty"`
}

// NewAttemptRef builds the request body for the given rater kind
func NewAttemptRef(supervisor bool, token, raterID int) AttemptRef {
	if supervisor {
		return AttemptRef{SupervisorAssessmentID: &token, SupervisorID: &raterID}
	}
	return AttemptRef{AssessmentID: &token, UserID: &raterID}
}

// Token returns the attempt token of whichever variant is set
func (r AttemptRef) Token() (int, bool) {
	switch {
	case r.SupervisorAssessmentID != nil:
		return *r.SupervisorAssessmentID, true
	case r.AssessmentID != nil:
		return *r.AssessmentID, true
	}
	return 0, false
}

// Rater returns the rater id of whichever variant is set
func (r AttemptRef) Rater() (int, bool) {
	switch {
	case r.SupervisorID != nil:
		return *r.SupervisorID, true
	case r.UserID != nil:
		return *r.UserID, true
	}
	return 0, false
}
