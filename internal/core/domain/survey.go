package domain

import "time"

// SurveyResponse is one answer to the sites' survey pop-up.
type SurveyResponse struct {
	ID        string            `json:"id"`
	Site      Site              `json:"site"`
	SessionID string            `json:"session_id,omitempty"`
	Rating    int               `json:"rating"`
	Answers   map[string]string `json:"answers,omitempty"`
	Comment   string            `json:"comment,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type SurveySubmission struct {
	Site      string            `json:"site"`
	SessionID string            `json:"session_id"`
	Rating    int               `json:"rating"`
	Answers   map[string]string `json:"answers"`
	Comment   string            `json:"comment"`
}
