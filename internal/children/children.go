// Package children manages child profiles and the rooms supervisors group them in.
package children

import (
	"context"
	"fmt"
	"time"

	"github.com/dekdek-app/dekdek/internal/age"
	"github.com/dekdek-app/dekdek/internal/models"
	"github.com/dekdek-app/dekdek/internal/validation"
)

// Backend is the part of the API client the child service needs
type Backend interface {
	ListChildren(ctx context.Context, parentID int) ([]*models.Child, error)
	AddChild(ctx context.Context, form validation.ChildForm) (*models.Child, error)
	UpdateChild(ctx context.Context, childID int, form validation.ChildForm) (*models.Child, error)
	DeleteChild(ctx context.Context, childID int) error
}

// Theme is the colour pair a child's screens are drawn in
type Theme struct {
	Primary    string
	Background string
}

var (
	boyTheme     = Theme{Primary: "#4A90E2", Background: "#E3F2FD"}
	girlTheme    = Theme{Primary: "#E91E63", Background: "#FCE4EC"}
	neutralTheme = Theme{Primary: "#7E57C2", Background: "#F3E5F5"}
)

// ThemeFor maps a gender to its theme
func ThemeFor(g models.Gender) Theme {
	switch g {
	case models.GenderMale:
		return boyTheme
	case models.GenderFemale:
		return girlTheme
	}
	return neutralTheme
}

// AgeMonths returns the child's age in whole months on today
func AgeMonths(c *models.Child, today time.Time) (int, error) {
	a, err := age.Calculate(c.Birthday, today)
	if err != nil {
		return 0, fmt.Errorf("child %d: %w", c.ID, err)
	}
	return a.TotalMonths(), nil
}

// Service lists and edits a parent's children
type Service struct {
	backend Backend
	now     func() time.Time
}

// NewService creates a child service
func NewService(backend Backend) *Service {
	return &Service{backend: backend, now: time.Now}
}

// refresh recomputes the age display so it never goes stale
func (s *Service) refresh(children ...*models.Child) {
	today := s.now()
	for _, c := range children {
		c.Age = age.Display(c.Birthday, today)
	}
}

// List returns a parent's children with a fresh age display
func (s *Service) List(ctx context.Context, parentID int) ([]*models.Child, error) {
	list, err := s.backend.ListChildren(ctx, parentID)
	if err != nil {
		return nil, err
	}
	s.refresh(list...)
	return list, nil
}

// Find returns one of the parent's children
func (s *Service) Find(ctx context.Context, parentID, childID int) (*models.Child, error) {
	list, err := s.List(ctx, parentID)
	if err != nil {
		return nil, err
	}
	for _, c := range list {
		if c.ID == childID {
			return c, nil
		}
	}
	return nil, fmt.Errorf("child %d not found", childID)
}

// Add validates and creates a child
func (s *Service) Add(ctx context.Context, form validation.ChildForm) (*models.Child, error) {
	if err := validation.Struct(form); err != nil {
		return nil, err
	}
	child, err := s.backend.AddChild(ctx, form)
	if err != nil {
		return nil, err
	}
	s.refresh(child)
	return child, nil
}

// Update validates and replaces a child
func (s *Service) Update(ctx context.Context, childID int, form validation.ChildForm) (*models.Child, error) {
	if err := validation.Struct(form); err != nil {
		return nil, err
	}
	child, err := s.backend.UpdateChild(ctx, childID, form)
	if err != nil {
		return nil, err
	}
	s.refresh(child)
	return child, nil
}

// Delete removes a child
func (s *Service) Delete(ctx context.Context, childID int) error {
	return s.backend.DeleteChild(ctx, childID)
}
