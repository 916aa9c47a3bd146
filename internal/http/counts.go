package http

import (
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/metadata"
)

// countByStatus tallies apps per status. Every known status is present,
// zero when no app is in it.
func countByStatus(apps []metadata.App) map[metadata.Status]int {
	counts := map[metadata.Status]int{
		metadata.StatusCreated:      0,
		metadata.StatusFilesUpdated: 0,
		metadata.StatusIndexing:     0,
		metadata.StatusReady:        0,
		metadata.StatusFailed:       0,
	}
	for _, a := range apps {
		counts[a.Status]++
	}
	return counts
}
