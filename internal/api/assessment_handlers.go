package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dekdek-app/dekdek/internal/models"
	"github.com/dekdek-app/dekdek/internal/progression"
	"github.com/dekdek-app/dekdek/internal/validation"
)

// tokenField names the attempt token in responses for each rater kind
func tokenField(supervisor bool) string {
	if supervisor {
		return "supervisor_assessment_id"
	}
	return "assessment_id"
}

// stepBody renders an item and its token; both are null once the sequence is over
func stepBody(cur *progression.Current, supervisor bool) map[string]interface{} {
	body := map[string]interface{}{
		"details":              nil,
		tokenField(supervisor): nil,
	}
	if cur.Details != nil && cur.Attempt != nil {
		body["details"] = cur.Details
		body[tokenField(supervisor)] = cur.Attempt.ID
	}
	return body
}

// assessmentTarget parses and authorizes the child and aspect path parameters
func (s *Server) assessmentTarget(w http.ResponseWriter, r *http.Request) (int, models.Aspect, bool) {
	childID, ok := pathID(w, r, "childId")
	if !ok {
		return 0, "", false
	}
	aspect, err := models.ParseAspect(chi.URLParam(r, "aspect"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return 0, "", false
	}
	if _, ok := s.childFor(w, r, childID); !ok {
		return 0, "", false
	}
	return childID, aspect, true
}

func (s *Server) respondEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, progression.ErrAttemptMismatch):
		respondError(w, http.StatusConflict, "attempt is no longer open")
	case errors.Is(err, progression.ErrUnknownAspect):
		respondError(w, http.StatusNotFound, "no assessments for aspect")
	default:
		s.respondInternal(w, r, err, "assessment failed")
	}
}

func (s *Server) handleDetails(supervisor bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := validation.AssessmentPath{
			Aspect: chi.URLParam(r, "aspect"),
		}
		path.ChildID, _ = strconv.Atoi(chi.URLParam(r, "childId"))
		path.RaterID, _ = strconv.Atoi(chi.URLParam(r, "raterId"))
		path.AgeMonths, _ = strconv.Atoi(chi.URLParam(r, "ageMonths"))
		if err := validation.Struct(path); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		childID, aspect, ok := s.assessmentTarget(w, r)
		if !ok {
			return
		}
		if !sameUserOrAdmin(w, UserFromContext(r.Context()), path.RaterID) {
			return
		}

		cur, err := s.engine.Details(r.Context(), progression.DetailsRequest{
			ChildID:    childID,
			Aspect:     aspect,
			RaterID:    path.RaterID,
			AgeMonths:  path.AgeMonths,
			Supervisor: supervisor,
		})
		if err != nil {
			s.respondEngineError(w, r, err)
			return
		}

		respondJSON(w, http.StatusOK, "success", stepBody(cur, supervisor))
	}
}

// answerRef decodes the attempt reference of the rater kind
func answerRef(w http.ResponseWriter, r *http.Request, supervisor bool) (token, rater int, ok bool) {
	var ref models.AttemptRef
	if err := json.NewDecoder(r.Body).Decode(&ref); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return 0, 0, false
	}

	// the variant must match the endpoint
	if supervisor && (ref.SupervisorAssessmentID == nil || ref.SupervisorID == nil) ||
		!supervisor && (ref.AssessmentID == nil || ref.UserID == nil) {
		respondError(w, http.StatusBadRequest, "missing attempt token or rater id")
		return 0, 0, false
	}

	token, _ = ref.Token()
	rater, _ = ref.Rater()
	return token, rater, true
}

func (s *Server) handleNext(supervisor bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		childID, aspect, ok := s.assessmentTarget(w, r)
		if !ok {
			return
		}
		token, rater, ok := answerRef(w, r, supervisor)
		if !ok {
			return
		}
		if !sameUserOrAdmin(w, UserFromContext(r.Context()), rater) {
			return
		}

		cur, err := s.engine.Next(r.Context(), progression.AnswerRequest{
			ChildID:    childID,
			Aspect:     aspect,
			Token:      token,
			RaterID:    rater,
			Supervisor: supervisor,
		})
		if err != nil {
			s.respondEngineError(w, r, err)
			return
		}

		next := map[string]interface{}{"status": cur.Status}
		if cur.Details != nil {
			for k, v := range stepBody(cur, supervisor) {
				next[k] = v
			}
		}
		respondJSON(w, http.StatusOK, "success", map[string]interface{}{"next_assessment": next})
	}
}

func (s *Server) handleNotPassed(w http.ResponseWriter, r *http.Request) {
	childID, aspect, ok := s.assessmentTarget(w, r)
	if !ok {
		return
	}
	token, rater, ok := answerRef(w, r, true)
	if !ok {
		return
	}
	if !sameUserOrAdmin(w, UserFromContext(r.Context()), rater) {
		return
	}

	err := s.engine.NotPassed(r.Context(), progression.AnswerRequest{
		ChildID:    childID,
		Aspect:     aspect,
		Token:      token,
		RaterID:    rater,
		Supervisor: true,
	})
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, "not passed recorded", nil)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	childID, ok := pathID(w, r, "childId")
	if !ok {
		return
	}
	if _, ok := s.childFor(w, r, childID); !ok {
		return
	}

	progress, err := s.engine.Progress(r.Context(), childID)
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, "success", progress)
}
