package http

import (
	"time"

	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/metadata"
)

// Response is the envelope of every JSON API response except chat.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ChatResponse is the body of POST /api/chat.
type ChatResponse struct {
	Success bool     `json:"success"`
	Answer  string   `json:"answer,omitempty"`
	Sources []string `json:"sources"`
	Error   string   `json:"error,omitempty"`
}

// CreateAppRequest is the body of POST /api/apps.
type CreateAppRequest struct {
	AppID string `json:"appId"`
	Name  string `json:"name"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	AppID   string `json:"appId"`
	Message string `json:"message"`
}

// TrainResponse is the data of POST /api/apps/:id/train.
type TrainResponse struct {
	Message       string          `json:"message"`
	Documents     int             `json:"documents"`
	Chunks        int             `json:"chunks"`
	Status        metadata.Status `json:"status"`
	LastIndexedAt time.Time       `json:"last_indexed_at"`
}

// MessageResponse is the data of operations that only confirm.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// RootResponse is the body of GET /.
type RootResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// StatusResponse is the data of GET /api/status.
type StatusResponse struct {
	Apps      int                     `json:"apps"`
	ByStatus  map[metadata.Status]int `json:"by_status"`
	Embedding string                  `json:"embedding_model"`
	Generator string                  `json:"generator"`
}
