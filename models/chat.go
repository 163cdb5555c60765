package models

import "time"

// AskRequest is the body of POST /api/ask. An empty question is allowed and
// yields an empty answer.
type AskRequest struct {
	Question string `json:"question" binding:"max=2000"`
}

// ReadMore links the answer to the agency page for its topic.
type ReadMore struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

type AskResponse struct {
	Question    string    `json:"question"`
	Answer      string    `json:"answer"`
	HTML        string    `json:"html"`
	DisplayHTML string    `json:"display_html"`
	Kind        string    `json:"kind"`
	Sources     int       `json:"sources"`
	ReadMore    *ReadMore `json:"read_more,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
}

// ReadyResponse reports whether the vector index is loaded.
type ReadyResponse struct {
	Status    string    `json:"status"`
	Entries   int       `json:"entries"`
	Redis     string    `json:"redis,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ReindexResponse struct {
	TaskID string `json:"task_id"`
	Queue  string `json:"queue"`
	Status string `json:"status"`
}
