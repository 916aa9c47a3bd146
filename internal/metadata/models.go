package metadata

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when an app or file record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when creating an app whose id is taken.
	ErrAlreadyExists = errors.New("record already exists")
)

// Status is the lifecycle state of an app's index.
//
//	CREATED -> FILES_UPDATED -> INDEXING -> READY
//	                              |
//	                              +-> FAILED
//
// Uploads after READY or FAILED move the app back to FILES_UPDATED.
type Status string

const (
	StatusCreated      Status = "CREATED"
	StatusFilesUpdated Status = "FILES_UPDATED"
	StatusIndexing     Status = "INDEXING"
	StatusReady        Status = "READY"
	StatusFailed       Status = "FAILED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusFilesUpdated, StatusIndexing, StatusReady, StatusFailed:
		return true
	}
	return false
}

// App is a tenant record.
type App struct {
	ID            string     `json:"app_id"`
	Name          string     `json:"name"`
	Status        Status     `json:"status"`
	LastIndexedAt *time.Time `json:"last_indexed_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// File is an uploaded document record.
type File struct {
	ID         int64     `json:"id"`
	AppID      string    `json:"app_id"`
	Filename   string    `json:"filename"`
	Path       string    `json:"file_path"`
	Size       int64     `json:"file_size"`
	Hash       string    `json:"file_hash"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// timeLayout is fixed-width so that lexical order in SQL matches time order.
const timeLayout = "2006-01-02T15:04:05.000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
