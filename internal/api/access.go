package api

import (
	"net/http"

	"github.com/dekdek-app/dekdek/internal/models"
)

// Parents touch their own children, supervisors the children in their
// rooms, admins everything. Each helper writes the error response itself.

func sameUserOrAdmin(w http.ResponseWriter, user *models.User, id int) bool {
	if user.ID == id || user.Role == models.RoleAdmin {
		return true
	}
	respondError(w, http.StatusForbidden, "permission denied")
	return false
}

// childFor loads a child the user may act on
func (s *Server) childFor(w http.ResponseWriter, r *http.Request, childID int) (*models.Child, bool) {
	user := UserFromContext(r.Context())

	child, err := s.repo.GetChild(r.Context(), childID)
	if err != nil {
		s.respondInternal(w, r, err, "failed to get child")
		return nil, false
	}
	if child == nil {
		respondError(w, http.StatusNotFound, "child not found")
		return nil, false
	}

	switch user.Role {
	case models.RoleAdmin:
		return child, true
	case models.RoleParent:
		if child.ParentID == user.ID {
			return child, true
		}
	case models.RoleSupervisor:
		ok, err := s.repo.SupervisorHasChild(r.Context(), user.ID, childID)
		if err != nil {
			s.respondInternal(w, r, err, "failed to check room membership")
			return nil, false
		}
		if ok {
			return child, true
		}
	}

	respondError(w, http.StatusForbidden, "permission denied")
	return nil, false
}

// roomFor loads a room owned by the user
func (s *Server) roomFor(w http.ResponseWriter, r *http.Request, roomID int) (*models.Room, bool) {
	user := UserFromContext(r.Context())

	room, err := s.repo.GetRoom(r.Context(), roomID)
	if err != nil {
		s.respondInternal(w, r, err, "failed to get room")
		return nil, false
	}
	if room == nil {
		respondError(w, http.StatusNotFound, "room not found")
		return nil, false
	}
	if !sameUserOrAdmin(w, user, room.SupervisorID) {
		return nil, false
	}
	return room, true
}
