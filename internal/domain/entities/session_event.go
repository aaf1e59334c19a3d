package entities

import "time"

// SessionEvent announces that a session was stored with new state. It only
// carries the statuses; listeners load the session for the full view.
type SessionEvent struct {
	ID              string       `json:"id"`
	SessionID       string       `json:"session_id"`
	ActiveTab       Tab          `json:"active_tab"`
	HospitalsStatus SearchStatus `json:"hospitals_status"`
	InsuranceStatus SearchStatus `json:"insurance_status"`
	CreatedAt       time.Time    `json:"created_at"`
}

// NewSessionEvent snapshots the statuses of s.
func NewSessionEvent(id string, s *Session, now time.Time) *SessionEvent {
	return &SessionEvent{
		ID:              id,
		SessionID:       s.ID,
		ActiveTab:       s.ActiveTab,
		HospitalsStatus: s.Hospitals.Status,
		InsuranceStatus: s.Insurance.Status,
		CreatedAt:       now,
	}
}
