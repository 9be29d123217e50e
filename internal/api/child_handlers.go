package api

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dekdek-app/dekdek/internal/age"
	"github.com/dekdek-app/dekdek/internal/models"
	"github.com/dekdek-app/dekdek/internal/storage"
	"github.com/dekdek-app/dekdek/internal/validation"
)

// withAge fills the derived age display
func withAge(now time.Time, children ...*models.Child) {
	for _, c := range children {
		c.Age = age.Display(c.Birthday, now)
	}
}

func (s *Server) handleListChildren(w http.ResponseWriter, r *http.Request) {
	parentID, ok := pathID(w, r, "parentId")
	if !ok {
		return
	}
	if !sameUserOrAdmin(w, UserFromContext(r.Context()), parentID) {
		return
	}

	children, err := s.repo.ListChildrenByParent(r.Context(), parentID)
	if err != nil {
		s.respondInternal(w, r, err, "failed to list children")
		return
	}
	if children == nil {
		children = []*models.Child{}
	}
	withAge(time.Now(), children...)

	respondJSON(w, http.StatusOK, "success", children)
}

func childFromForm(form validation.ChildForm) *models.Child {
	return &models.Child{
		ParentID: form.ParentID,
		Name:     form.Name,
		NickName: form.NickName,
		Birthday: form.Birthday,
		Gender:   form.Gender,
		Pic:      form.Pic,
	}
}

func (s *Server) handleAddChild(w http.ResponseWriter, r *http.Request) {
	var form validation.ChildForm
	if !decodeForm(w, r, &form) {
		return
	}
	if !sameUserOrAdmin(w, UserFromContext(r.Context()), form.ParentID) {
		return
	}

	child := childFromForm(form)
	if err := s.repo.CreateChild(r.Context(), child); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "parent not found")
			return
		}
		s.respondInternal(w, r, err, "failed to create child")
		return
	}
	withAge(time.Now(), child)

	s.logger.Info("child added", zap.Int("child", child.ID), zap.Int("parent", child.ParentID))
	respondJSON(w, http.StatusCreated, "child added", child)
}

func (s *Server) handleUpdateChild(w http.ResponseWriter, r *http.Request) {
	childID, ok := pathID(w, r, "childId")
	if !ok {
		return
	}
	existing, ok := s.childFor(w, r, childID)
	if !ok {
		return
	}

	var form validation.ChildForm
	if !decodeForm(w, r, &form) {
		return
	}

	child := childFromForm(form)
	child.ID = childID
	// ownership does not move with an update
	child.ParentID = existing.ParentID
	if err := s.repo.UpdateChild(r.Context(), child); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "child not found")
			return
		}
		s.respondInternal(w, r, err, "failed to update child")
		return
	}
	child.CreatedAt = existing.CreatedAt
	withAge(time.Now(), child)

	respondJSON(w, http.StatusOK, "child updated", child)
}

func (s *Server) handleDeleteChild(w http.ResponseWriter, r *http.Request) {
	childID, ok := pathID(w, r, "childId")
	if !ok {
		return
	}
	child, ok := s.childFor(w, r, childID)
	if !ok {
		return
	}
	if user := UserFromContext(r.Context()); user.Role == models.RoleSupervisor {
		respondError(w, http.StatusForbidden, "only the parent can delete a child")
		return
	}

	if err := s.repo.DeleteChild(r.Context(), child.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "child not found")
			return
		}
		s.respondInternal(w, r, err, "failed to delete child")
		return
	}

	s.logger.Info("child deleted", zap.Int("child", child.ID))
	respondJSON(w, http.StatusOK, "child deleted", nil)
}
