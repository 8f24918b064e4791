package main

import (
	"time"

	"github.com/virionlabs/onboardflow/flow"
	"github.com/virionlabs/onboardflow/session"
)

// API request and response models.

// EvaluateRequest is the body for stateless rule evaluation.
type EvaluateRequest struct {
	CampaignID string         `json:"campaignId"`
	Responses  flow.Responses `json:"responses"`
	// Step restricts evaluation to one step's rules and computes the
	// following step. Zero evaluates the whole flow.
	Step int `json:"step,omitempty"`
}

// EvaluateResponse wraps the flow state produced by one evaluation pass.
type EvaluateResponse struct {
	State          *flow.FlowState `json:"state"`
	NextStep       *int            `json:"nextStep"`
	EvaluationTime string          `json:"evaluationTime"`
}

// ValidateRequest is the body for validating a single raw answer.
type ValidateRequest struct {
	CampaignID string `json:"campaignId"`
	FieldKey   string `json:"fieldKey"`
	Value      string `json:"value"`
}

// SubmitAnswersRequest carries a batch of raw free-text answers.
type SubmitAnswersRequest struct {
	Answers map[string]string `json:"answers"`
}

// SubmitAnswersResponse reports the updated session and evaluation state.
// FieldErrors is set (with HTTP 422) when the current step failed
// validation and the step did not advance.
type SubmitAnswersResponse struct {
	Session       *session.State    `json:"session"`
	State         *flow.FlowState   `json:"state"`
	VisibleFields []string          `json:"visibleFields,omitempty"`
	FieldErrors   map[string]string `json:"fieldErrors,omitempty"`
}

// SessionResponse is the session snapshot returned by GET.
type SessionResponse struct {
	Session       *session.State  `json:"session"`
	State         *flow.FlowState `json:"state"`
	VisibleFields []string        `json:"visibleFields"`
}

// CreateCampaignRequest is the body for creating a campaign.
type CreateCampaignRequest struct {
	Name string `json:"name"`
}

// CampaignResponse represents a campaign in API responses.
type CampaignResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FieldResponse pairs a field definition with its flattened text-input
// presentation.
type FieldResponse struct {
	Field     flow.Field     `json:"field"`
	TextInput flow.TextInput `json:"text_input"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
