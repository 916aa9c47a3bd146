package indexing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/chunker"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/logging"
)

var errUnsupportedEncoding = errors.New("not valid UTF-8 text")

// loadFunc reads one file into a document.
type loadFunc func(path string) (chunker.Document, error)

// loaders maps a lowercase extension to its loader.
var loaders = map[string]loadFunc{
	".txt": loadText,
	".md":  loadText,
}

func loadText(path string) (chunker.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return chunker.Document{}, err
	}
	if !utf8.Valid(data) {
		return chunker.Document{}, errUnsupportedEncoding
	}
	return chunker.Document{Content: string(data), Source: path}, nil
}

// loadDocuments reads every supported file in paths. Unsupported or
// unreadable files are logged and skipped.
func loadDocuments(ctx context.Context, paths []string, logger *logging.Logger) []chunker.Document {
	docs := make([]chunker.Document, 0, len(paths))
	for _, path := range paths {
		name := filepath.Base(path)
		load, ok := loaders[strings.ToLower(filepath.Ext(path))]
		if !ok {
			logger.Warn(ctx, "skipping unsupported file", zap.String("file", name))
			continue
		}
		doc, err := load(path)
		if err != nil {
			logger.Warn(ctx, "skipping unreadable file", zap.String("file", name), zap.Error(err))
			continue
		}
		logger.Debug(ctx, "loaded document", zap.String("file", name), zap.Int("bytes", len(doc.Content)))
		docs = append(docs, doc)
	}
	return docs
}
