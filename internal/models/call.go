package models

import "time"

// CallRequest asks the call provider to phone a prospective buyer
type CallRequest struct {
	Phone     string `json:"phone" binding:"required"`
	SessionID string `json:"session_id,omitempty"`
}

// CallOutcome is what the provider answered. Accepted is false for every
// failure, including validation and rate limiting.
type CallOutcome struct {
	Accepted bool   `json:"accepted"`
	CallID   string `json:"call_id,omitempty"`
	Message  string `json:"message"`
}

// CallEvent is published once per call attempt
type CallEvent struct {
	Phone     string      `json:"phone"`
	SessionID string      `json:"session_id,omitempty"`
	Outcome   CallOutcome `json:"outcome"`
	At        time.Time   `json:"at"`
}
