package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/virionlabs/onboardflow/flow"
	"github.com/virionlabs/onboardflow/internal/logger"
	"github.com/virionlabs/onboardflow/session"
)

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "healthy",
		"campaignsLoaded": len(s.manager.ListCampaigns()),
	})
}

// Evaluation handler: runs branching rules against a response map without
// touching session state. Step is optional; when set, only that step's
// rules run and the next step is computed.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.CampaignID == "" {
		respondError(w, http.StatusBadRequest, "campaignId is required", nil)
		return
	}
	if req.Responses == nil {
		respondError(w, http.StatusBadRequest, "responses are required", nil)
		return
	}

	fl, err := s.manager.Flow(req.CampaignID)
	if err != nil {
		respondError(w, http.StatusNotFound, "campaign not found", err)
		return
	}

	startTime := time.Now()

	var state *flow.FlowState
	resp := EvaluateResponse{}
	if req.Step > 0 {
		state = fl.EvaluateStep(req.Step, req.Responses)
		if next, ok := fl.NextStep(req.Step, req.Responses); ok {
			resp.NextStep = &next
		}
	} else {
		state = fl.Evaluate(req.Responses)
		resp.NextStep = state.NextStep
	}

	resp.State = state
	resp.EvaluationTime = time.Since(startTime).String()
	respondJSON(w, http.StatusOK, resp)
}

// Validation handler: validates one raw answer against a field's rules
// after the standard text-input coercion.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.CampaignID == "" || req.FieldKey == "" {
		respondError(w, http.StatusBadRequest, "campaignId and fieldKey are required", nil)
		return
	}

	fl, err := s.manager.Flow(req.CampaignID)
	if err != nil {
		respondError(w, http.StatusNotFound, "campaign not found", err)
		return
	}

	field, ok := fl.Field(req.FieldKey)
	if !ok {
		respondError(w, http.StatusNotFound, "field not found", nil)
		return
	}

	value := flow.ParseTextInput(field, req.Value)
	result := flow.ValidateField(field, value, false)
	respondJSON(w, http.StatusOK, result)
}

func sessionKey(r *http.Request) session.Key {
	return session.Key{
		CampaignID: chi.URLParam(r, "campaignId"),
		UserID:     chi.URLParam(r, "userId"),
	}
}

// Get session handler
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	key := sessionKey(r)

	sess, err := s.sessions.Get(r.Context(), key)
	if errors.Is(err, session.ErrNotFound) {
		respondError(w, http.StatusNotFound, "session not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load session", err)
		return
	}

	fl, err := s.manager.Flow(key.CampaignID)
	if err != nil {
		respondError(w, http.StatusNotFound, "campaign not found", err)
		return
	}

	respondJSON(w, http.StatusOK, SessionResponse{
		Session:       sess,
		State:         fl.Evaluate(sess.Responses),
		VisibleFields: visibleKeys(fl, sess.CurrentStep, sess.Responses),
	})
}

// Submit answers handler: records a batch of raw answers for the session's
// current step, re-evaluates the flow, and advances the step when the
// visible required fields validate.
func (s *Server) handleSubmitAnswers(w http.ResponseWriter, r *http.Request) {
	key := sessionKey(r)

	var req SubmitAnswersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	fl, err := s.manager.Flow(key.CampaignID)
	if err != nil {
		respondError(w, http.StatusNotFound, "campaign not found", err)
		return
	}

	sess, err := s.sessions.Get(r.Context(), key)
	if errors.Is(err, session.ErrNotFound) {
		sess = &session.State{
			CampaignID:  key.CampaignID,
			UserID:      key.UserID,
			CurrentStep: 1,
			Responses:   flow.Responses{},
		}
	} else if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load session", err)
		return
	}

	if sess.Complete {
		respondError(w, http.StatusConflict, "onboarding already complete", nil)
		return
	}

	// Coerce raw answers through the single conversion path before any
	// validation or condition evaluation sees them.
	for rawKey, rawValue := range req.Answers {
		field, ok := fl.Field(rawKey)
		if !ok {
			respondError(w, http.StatusBadRequest, "unknown field "+rawKey, nil)
			return
		}
		sess.Responses[rawKey] = flow.ParseTextInput(field, rawValue)
	}

	state := fl.Evaluate(sess.Responses)

	// Derived values backfill inferred answers.
	for k, v := range state.DerivedValues {
		sess.Responses[k] = v
	}

	// Validate the current step's visible fields before advancing.
	fieldErrors := make(map[string]string)
	for _, field := range fl.VisibleFieldsForStep(sess.CurrentStep, sess.Responses) {
		result := flow.ValidateField(field, sess.Responses[field.Key], state.RequiredOverrides[field.Key])
		if !result.Valid {
			fieldErrors[field.Key] = result.Message
		}
	}
	if len(fieldErrors) > 0 {
		respondJSON(w, http.StatusUnprocessableEntity, SubmitAnswersResponse{
			Session:     sess,
			State:       state,
			FieldErrors: fieldErrors,
		})
		return
	}

	if next, ok := fl.NextStep(sess.CurrentStep, sess.Responses); ok {
		sess.CurrentStep = next
	} else {
		sess.Complete = true
	}

	if err := s.sessions.Put(r.Context(), sess); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save session", err)
		return
	}

	if len(state.Diagnostics) > 0 {
		logger.Warn("evaluation diagnostics",
			"campaign", key.CampaignID, "user", key.UserID,
			"count", len(state.Diagnostics))
	}

	respondJSON(w, http.StatusOK, SubmitAnswersResponse{
		Session:       sess,
		State:         state,
		VisibleFields: visibleKeys(fl, sess.CurrentStep, sess.Responses),
	})
}

// Delete session handler
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), sessionKey(r)); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func visibleKeys(fl *flow.Flow, step int, responses flow.Responses) []string {
	fields := fl.VisibleFieldsForStep(step, responses)
	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, f.Key)
	}
	return keys
}

// List campaigns handler
func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		respondJSON(w, http.StatusOK, map[string]any{"campaigns": s.manager.ListCampaigns()})
		return
	}

	rows, err := s.db.Query("SELECT id, name, created_at, updated_at FROM campaigns ORDER BY created_at DESC")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list campaigns", err)
		return
	}
	defer rows.Close()

	campaigns := []CampaignResponse{}
	for rows.Next() {
		var c CampaignResponse
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to scan campaign", err)
			return
		}
		campaigns = append(campaigns, c)
	}

	respondJSON(w, http.StatusOK, map[string]any{"campaigns": campaigns})
}

// Create campaign handler
func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		respondError(w, http.StatusServiceUnavailable, "campaign creation requires a database", nil)
		return
	}

	var req CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	var campaignID string
	err := s.db.QueryRow(`
		INSERT INTO campaigns (name, created_at, updated_at)
		VALUES ($1, NOW(), NOW())
		RETURNING id
	`, req.Name).Scan(&campaignID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create campaign", err)
		return
	}

	if err := s.manager.Reload(campaignID); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load campaign", err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"id":   campaignID,
		"name": req.Name,
	})
}

// List fields handler
func (s *Server) handleListFields(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignId")

	fields, err := s.manager.Fields(campaignID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list fields", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"fields": fields})
}

// Create field handler
func (s *Server) handleCreateField(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignId")

	var field flow.Field
	if err := json.NewDecoder(r.Body).Decode(&field); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	field.ID = newFieldID()
	field.CampaignID = campaignID
	if field.Step == 0 {
		field.Step = 1
	}

	if err := s.manager.AddField(&field); err != nil {
		respondError(w, http.StatusBadRequest, "failed to add field", err)
		return
	}

	respondJSON(w, http.StatusCreated, field)
}

// Get field handler
func (s *Server) handleGetField(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignId")
	fieldKey := chi.URLParam(r, "fieldKey")

	fl, err := s.manager.Flow(campaignID)
	if err != nil {
		respondError(w, http.StatusNotFound, "campaign not found", err)
		return
	}

	field, ok := fl.Field(fieldKey)
	if !ok {
		respondError(w, http.StatusNotFound, "field not found", nil)
		return
	}

	respondJSON(w, http.StatusOK, FieldResponse{
		Field:     field,
		TextInput: flow.ToTextInput(field),
	})
}

// Update field handler
func (s *Server) handleUpdateField(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignId")
	fieldKey := chi.URLParam(r, "fieldKey")

	var field flow.Field
	if err := json.NewDecoder(r.Body).Decode(&field); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	field.CampaignID = campaignID
	field.Key = fieldKey

	if err := s.manager.UpdateField(&field); err != nil {
		respondError(w, http.StatusBadRequest, "failed to update field", err)
		return
	}

	respondJSON(w, http.StatusOK, field)
}

// Delete field handler
func (s *Server) handleDeleteField(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignId")
	fieldKey := chi.URLParam(r, "fieldKey")

	if err := s.manager.DeleteField(campaignID, fieldKey); err != nil {
		respondError(w, http.StatusNotFound, "field not found", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
