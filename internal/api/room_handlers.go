package api

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dekdek-app/dekdek/internal/models"
	"github.com/dekdek-app/dekdek/internal/storage"
	"github.com/dekdek-app/dekdek/internal/validation"
)

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	supervisorID, ok := pathID(w, r, "supervisorId")
	if !ok {
		return
	}
	if !sameUserOrAdmin(w, UserFromContext(r.Context()), supervisorID) {
		return
	}

	rooms, err := s.repo.ListRoomsBySupervisor(r.Context(), supervisorID)
	if err != nil {
		s.respondInternal(w, r, err, "failed to list rooms")
		return
	}
	if rooms == nil {
		rooms = []*models.Room{}
	}

	respondJSON(w, http.StatusOK, "success", rooms)
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var form validation.RoomForm
	if !decodeForm(w, r, &form) {
		return
	}
	if !sameUserOrAdmin(w, UserFromContext(r.Context()), form.SupervisorID) {
		return
	}

	room := &models.Room{SupervisorID: form.SupervisorID, Name: form.Name, Colors: form.Colors}
	if err := s.repo.CreateRoom(r.Context(), room); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "supervisor not found")
			return
		}
		s.respondInternal(w, r, err, "failed to create room")
		return
	}

	s.logger.Info("room created", zap.Int("room", room.ID), zap.Int("supervisor", room.SupervisorID))
	respondJSON(w, http.StatusCreated, "room created", room)
}

func (s *Server) handleRoomChildren(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(w, r, "roomId")
	if !ok {
		return
	}
	if _, ok := s.roomFor(w, r, roomID); !ok {
		return
	}

	children, err := s.repo.ListRoomChildren(r.Context(), roomID)
	if err != nil {
		s.respondInternal(w, r, err, "failed to list room children")
		return
	}
	if children == nil {
		children = []*models.Child{}
	}
	withAge(time.Now(), children...)

	respondJSON(w, http.StatusOK, "success", children)
}

func (s *Server) handleAssignChild(w http.ResponseWriter, r *http.Request) {
	var form validation.RoomChildForm
	if !decodeForm(w, r, &form) {
		return
	}
	if _, ok := s.roomFor(w, r, form.RoomID); !ok {
		return
	}

	if err := s.repo.AddChildToRoom(r.Context(), form.RoomID, form.ChildID); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			respondError(w, http.StatusNotFound, "child not found")
		case errors.Is(err, storage.ErrDuplicate):
			respondError(w, http.StatusConflict, "child already in room")
		default:
			s.respondInternal(w, r, err, "failed to assign child")
		}
		return
	}

	respondJSON(w, http.StatusOK, "child assigned", nil)
}

func (s *Server) handleUnassignChild(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(w, r, "roomId")
	if !ok {
		return
	}
	childID, ok := pathID(w, r, "childId")
	if !ok {
		return
	}
	if _, ok := s.roomFor(w, r, roomID); !ok {
		return
	}

	if err := s.repo.RemoveChildFromRoom(r.Context(), roomID, childID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "child not in room")
			return
		}
		s.respondInternal(w, r, err, "failed to remove child")
		return
	}

	respondJSON(w, http.StatusOK, "child removed", nil)
}
