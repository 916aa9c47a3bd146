// Package apps is the application layer behind the REST API: app lifecycle,
// file uploads, training and chat, each validated and mapped onto the
// apperr taxonomy.
package apps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/apperr"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/chat"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/indexing"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/logging"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/metadata"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/storage"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/tenant"
)

// Metadata is the record store. *metadata.Store satisfies it.
type Metadata interface {
	CreateApp(ctx context.Context, id, name string) (*metadata.App, error)
	GetApp(ctx context.Context, id string) (*metadata.App, error)
	ListApps(ctx context.Context) ([]metadata.App, error)
	UpdateStatus(ctx context.Context, id string, status metadata.Status, lastIndexedAt *time.Time) error
	DeleteApp(ctx context.Context, id string) error
	AddFile(ctx context.Context, f metadata.File) (*metadata.File, error)
	ListFiles(ctx context.Context, appID string) ([]metadata.File, error)
	CountFiles(ctx context.Context, appID string) (int, error)
	DeleteFile(ctx context.Context, appID, filename string) error
}

// Blobs is the file store. *storage.Store satisfies it.
type Blobs interface {
	EnsureDirs(appID string) error
	SaveFile(appID, filename string, content []byte) (string, error)
	DeleteFile(appID, filename string) (bool, error)
	DeleteAll(appID string) error
}

// IndexCache drops cached index handles. *vectorstore.Store satisfies it.
type IndexCache interface {
	Forget(appID string)
}

// Trainer rebuilds an app's index.
type Trainer interface {
	Build(ctx context.Context, appID string) (*indexing.Result, error)
}

// Chatter answers questions.
type Chatter interface {
	Chat(ctx context.Context, appID, message string) (*chat.Response, error)
}

// Deps are the collaborators of a Service.
type Deps struct {
	Metadata Metadata
	Blobs    Blobs
	Index    IndexCache
	Trainer  Trainer
	Chat     Chatter
	// Locks must be the table shared with the index builder and retriever.
	Locks  *tenant.Locks
	Logger *logging.Logger
}

// Service implements the app operations.
type Service struct {
	meta    Metadata
	blobs   Blobs
	index   IndexCache
	trainer Trainer
	chat    Chatter
	locks   *tenant.Locks
	logger  *logging.Logger
}

// New creates a Service.
func New(d Deps) (*Service, error) {
	switch {
	case d.Metadata == nil:
		return nil, errors.New("metadata store is required")
	case d.Blobs == nil:
		return nil, errors.New("blob store is required")
	case d.Index == nil:
		return nil, errors.New("index is required")
	case d.Trainer == nil:
		return nil, errors.New("trainer is required")
	case d.Chat == nil:
		return nil, errors.New("chat orchestrator is required")
	case d.Locks == nil:
		return nil, errors.New("locks are required")
	}
	logger := d.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{
		meta:    d.Metadata,
		blobs:   d.Blobs,
		index:   d.Index,
		trainer: d.Trainer,
		chat:    d.Chat,
		locks:   d.Locks,
		logger:  logger.Named("apps"),
	}, nil
}

// AppDetail is an app with its file count.
type AppDetail struct {
	metadata.App
	FileCount int `json:"file_count"`
}

// Upload is one file of an upload request.
type Upload struct {
	Filename string
	Content  []byte
}

// UploadResult reports a batch upload. Per-file failures are listed in
// Errors and do not fail the batch.
type UploadResult struct {
	Uploaded []metadata.File `json:"uploaded"`
	Errors   []string        `json:"errors"`
	Message  string          `json:"message"`
}

// normalize validates a raw app id.
func normalize(raw string) (string, error) {
	id, err := tenant.NormalizeID(raw)
	if err != nil {
		return "", apperr.Validation(raw, "%s", err.Error())
	}
	return id, nil
}

// getApp loads an app, mapping a missing record to KindNotFound.
func (s *Service) getApp(ctx context.Context, id string) (*metadata.App, error) {
	app, err := s.meta.GetApp(ctx, id)
	if errors.Is(err, metadata.ErrNotFound) {
		return nil, apperr.NotFound(id)
	}
	if err != nil {
		return nil, apperr.Internal(id, err)
	}
	return app, nil
}

// CreateApp registers a new app. A blank name defaults to the id.
func (s *Service) CreateApp(ctx context.Context, rawID, name string) (*metadata.App, error) {
	id, err := normalize(rawID)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithTenant(ctx, id)
	name = strings.TrimSpace(name)
	if name == "" {
		name = id
	}

	app, err := s.meta.CreateApp(ctx, id, name)
	if errors.Is(err, metadata.ErrAlreadyExists) {
		return nil, apperr.Conflict(id)
	}
	if err != nil {
		return nil, apperr.Internal(id, err)
	}
	if err := s.blobs.EnsureDirs(id); err != nil {
		return nil, apperr.Internal(id, fmt.Errorf("creating storage: %w", err))
	}
	s.logger.Info(ctx, "app created", zap.String("status", string(app.Status)))
	return app, nil
}

// ListApps returns every app, newest first.
func (s *Service) ListApps(ctx context.Context) ([]metadata.App, error) {
	apps, err := s.meta.ListApps(ctx)
	if err != nil {
		return nil, apperr.Internal("", err)
	}
	return apps, nil
}

// GetApp returns an app with its file count.
func (s *Service) GetApp(ctx context.Context, rawID string) (*AppDetail, error) {
	id, err := normalize(rawID)
	if err != nil {
		return nil, err
	}
	app, err := s.getApp(ctx, id)
	if err != nil {
		return nil, err
	}
	n, err := s.meta.CountFiles(ctx, id)
	if err != nil {
		return nil, apperr.Internal(id, err)
	}
	return &AppDetail{App: *app, FileCount: n}, nil
}

// DeleteApp removes an app with its files and index.
func (s *Service) DeleteApp(ctx context.Context, rawID string) error {
	id, err := normalize(rawID)
	if err != nil {
		return err
	}
	ctx = logging.WithTenant(ctx, id)

	unlock := s.locks.Lock(id)
	defer unlock()

	if _, err := s.getApp(ctx, id); err != nil {
		return err
	}
	s.index.Forget(id)
	if err := s.blobs.DeleteAll(id); err != nil {
		return apperr.Internal(id, fmt.Errorf("deleting storage: %w", err))
	}
	if err := s.meta.DeleteApp(ctx, id); err != nil {
		return apperr.Internal(id, err)
	}
	s.logger.Info(ctx, "app deleted")
	return nil
}

// UploadFiles stores supported files and marks the app FILES_UPDATED when
// at least one was stored. Unsupported or failing files are reported per
// file.
func (s *Service) UploadFiles(ctx context.Context, rawID string, uploads []Upload) (*UploadResult, error) {
	id, err := normalize(rawID)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithTenant(ctx, id)
	if len(uploads) == 0 {
		return nil, apperr.Validation(id, "No files provided")
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	if _, err := s.getApp(ctx, id); err != nil {
		return nil, err
	}

	res := &UploadResult{Uploaded: []metadata.File{}, Errors: []string{}}
	for _, u := range uploads {
		if !storage.IsSupported(u.Filename) {
			res.Errors = append(res.Errors, fmt.Sprintf("Unsupported file type: %s", u.Filename))
			s.logger.Warn(ctx, "rejected unsupported upload", zap.String("file", u.Filename))
			continue
		}
		f, err := s.store(ctx, id, u)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Error uploading %s: %s", u.Filename, err))
			s.logger.Warn(ctx, "upload failed", zap.String("file", u.Filename), zap.Error(err))
			continue
		}
		res.Uploaded = append(res.Uploaded, *f)
	}

	if len(res.Uploaded) > 0 {
		if err := s.meta.UpdateStatus(ctx, id, metadata.StatusFilesUpdated, nil); err != nil {
			return nil, apperr.Internal(id, err)
		}
		s.logger.Info(ctx, "status changed",
			zap.String("status", string(metadata.StatusFilesUpdated)),
			zap.Int("uploaded", len(res.Uploaded)),
		)
	}
	res.Message = fmt.Sprintf("Uploaded %d file(s)", len(res.Uploaded))
	return res, nil
}

func (s *Service) store(ctx context.Context, id string, u Upload) (*metadata.File, error) {
	name := baseName(u.Filename)
	path, err := s.blobs.SaveFile(id, name, u.Content)
	if err != nil {
		return nil, err
	}
	return s.meta.AddFile(ctx, metadata.File{
		AppID:    id,
		Filename: name,
		Path:     path,
		Size:     int64(len(u.Content)),
		Hash:     storage.HashContent(u.Content),
	})
}

// ListFiles returns an app's files, newest first.
func (s *Service) ListFiles(ctx context.Context, rawID string) ([]metadata.File, error) {
	id, err := normalize(rawID)
	if err != nil {
		return nil, err
	}
	if _, err := s.getApp(ctx, id); err != nil {
		return nil, err
	}
	files, err := s.meta.ListFiles(ctx, id)
	if err != nil {
		return nil, apperr.Internal(id, err)
	}
	return files, nil
}

// DeleteFile removes one uploaded file. An app that had files pending or an
// index moves to FILES_UPDATED, since its index no longer matches its files.
func (s *Service) DeleteFile(ctx context.Context, rawID, filename string) error {
	id, err := normalize(rawID)
	if err != nil {
		return err
	}
	ctx = logging.WithTenant(ctx, id)

	unlock := s.locks.Lock(id)
	defer unlock()

	app, err := s.getApp(ctx, id)
	if err != nil {
		return err
	}
	name := baseName(filename)
	if err := s.meta.DeleteFile(ctx, id, name); err != nil {
		if errors.Is(err, metadata.ErrNotFound) {
			return apperr.FileNotFound(id, name)
		}
		return apperr.Internal(id, err)
	}
	if _, err := s.blobs.DeleteFile(id, name); err != nil {
		return apperr.Internal(id, fmt.Errorf("deleting %s: %w", name, err))
	}

	switch app.Status {
	case metadata.StatusReady, metadata.StatusFailed, metadata.StatusFilesUpdated:
		if err := s.meta.UpdateStatus(ctx, id, metadata.StatusFilesUpdated, nil); err != nil {
			return apperr.Internal(id, err)
		}
	}
	s.logger.Info(ctx, "file deleted", zap.String("file", name))
	return nil
}

// Train rebuilds the app's index from its uploaded files.
func (s *Service) Train(ctx context.Context, rawID string) (*indexing.Result, error) {
	id, err := normalize(rawID)
	if err != nil {
		return nil, err
	}
	if _, err := s.getApp(ctx, id); err != nil {
		return nil, err
	}
	n, err := s.meta.CountFiles(ctx, id)
	if err != nil {
		return nil, apperr.Internal(id, err)
	}
	if n == 0 {
		return nil, apperr.Precondition(id, "No files uploaded for app '%s'. Please upload files first.", id)
	}
	return s.trainer.Build(ctx, id)
}

// Chat answers a question about the app's documents.
func (s *Service) Chat(ctx context.Context, rawID, message string) (*chat.Response, error) {
	id, err := normalize(rawID)
	if err != nil {
		return nil, err
	}
	return s.chat.Chat(ctx, id, strings.TrimSpace(message))
}
