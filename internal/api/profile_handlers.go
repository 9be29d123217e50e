package api

import (
	"errors"
	"net/http"

	"github.com/dekdek-app/dekdek/internal/models"
	"github.com/dekdek-app/dekdek/internal/storage"
	"github.com/dekdek-app/dekdek/internal/validation"
)

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	if !sameUserOrAdmin(w, UserFromContext(r.Context()), userID) {
		return
	}

	user, err := s.repo.GetUser(r.Context(), userID)
	if err != nil {
		s.respondInternal(w, r, err, "failed to get user")
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	respondJSON(w, http.StatusOK, "success", user)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	if !sameUserOrAdmin(w, UserFromContext(r.Context()), userID) {
		return
	}

	var form validation.ProfileForm
	if !decodeForm(w, r, &form) {
		return
	}

	user, err := s.repo.GetUser(r.Context(), userID)
	if err != nil {
		s.respondInternal(w, r, err, "failed to get user")
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	user.Name = form.UserName
	user.PhoneNumber = form.PhoneNumber
	user.ProfilePic = form.ProfilePic
	if err := s.repo.UpdateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		s.respondInternal(w, r, err, "failed to update user")
		return
	}

	respondJSON(w, http.StatusOK, "profile updated", user)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.repo.ListUsers(r.Context())
	if err != nil {
		s.respondInternal(w, r, err, "failed to list users")
		return
	}
	if users == nil {
		users = []*models.User{}
	}

	respondJSON(w, http.StatusOK, "success", users)
}
