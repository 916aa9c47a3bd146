package http

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/apperr"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/apps"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/metadata"
	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/tenant"
)

// uploadFields are the multipart fields that carry files.
var uploadFields = []string{"files", "file"}

// openPart opens an uploaded part; tests replace it to simulate read errors.
var openPart = func(fh *multipart.FileHeader) (io.ReadCloser, error) {
	return fh.Open()
}

// displayID is the canonical form of a path id for response messages.
func displayID(raw string) string {
	if id, err := tenant.NormalizeID(raw); err == nil {
		return id
	}
	return raw
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, RootResponse{
		Message: "Multi-App RAG Chatbot API",
		Status:  "running",
		Version: s.config.Version,
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) handleStatus(c echo.Context) error {
	list, err := s.registry.Apps().ListApps(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, Response{Success: true, Data: StatusResponse{
		Apps:      len(list),
		ByStatus:  countByStatus(list),
		Embedding: s.registry.Embedder().Model(),
		Generator: s.registry.Generator().Name(),
	}})
}

func (s *Server) handleCreateApp(c echo.Context) error {
	var req CreateAppRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	app, err := s.registry.Apps().CreateApp(c.Request().Context(), req.AppID, req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, Response{Success: true, Data: app})
}

func (s *Server) handleListApps(c echo.Context) error {
	list, err := s.registry.Apps().ListApps(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, Response{Success: true, Data: list})
}

func (s *Server) handleGetApp(c echo.Context) error {
	app, err := s.registry.Apps().GetApp(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, Response{Success: true, Data: app})
}

func (s *Server) handleDeleteApp(c echo.Context) error {
	id := c.Param("id")
	if err := s.registry.Apps().DeleteApp(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, Response{Success: true, Data: MessageResponse{
		Message: fmt.Sprintf("App '%s' deleted", displayID(id)),
	}})
}

func (s *Server) handleUploadFiles(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return apperr.Validation(c.Param("id"), "Expected a multipart form with files")
	}
	defer form.RemoveAll()

	var (
		uploads  []apps.Upload
		readErrs []string
	)
	for _, field := range uploadFields {
		for _, fh := range form.File[field] {
			content, err := readPart(fh)
			if err != nil {
				readErrs = append(readErrs, fmt.Sprintf("Error uploading %s: %s", fh.Filename, err))
				continue
			}
			uploads = append(uploads, apps.Upload{Filename: fh.Filename, Content: content})
		}
	}
	if len(uploads) == 0 && len(readErrs) > 0 {
		if _, err := s.registry.Apps().GetApp(c.Request().Context(), c.Param("id")); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, Response{Success: true, Data: apps.UploadResult{
			Uploaded: []metadata.File{},
			Errors:   readErrs,
			Message:  "Uploaded 0 file(s)",
		}})
	}

	res, err := s.registry.Apps().UploadFiles(c.Request().Context(), c.Param("id"), uploads)
	if err != nil {
		return err
	}
	res.Errors = append(res.Errors, readErrs...)
	return c.JSON(http.StatusOK, Response{Success: true, Data: res})
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := openPart(fh)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) handleListFiles(c echo.Context) error {
	files, err := s.registry.Apps().ListFiles(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, Response{Success: true, Data: files})
}

func (s *Server) handleDeleteFile(c echo.Context) error {
	id, name := c.Param("id"), c.Param("filename")
	if err := s.registry.Apps().DeleteFile(c.Request().Context(), id, name); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, Response{Success: true, Data: MessageResponse{
		Message: fmt.Sprintf("File '%s' deleted from app '%s'", name, displayID(id)),
	}})
}

func (s *Server) handleTrain(c echo.Context) error {
	id := c.Param("id")
	res, err := s.registry.Apps().Train(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, Response{Success: true, Data: TrainResponse{
		Message:       fmt.Sprintf("Training complete for app '%s'", displayID(id)),
		Documents:     res.Documents,
		Chunks:        res.Chunks,
		Status:        res.Status,
		LastIndexedAt: res.IndexedAt,
	}})
}

// handleChat answers in the ChatResponse envelope, errors included.
func (s *Server) handleChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ChatResponse{Sources: []string{}, Error: "invalid request body"})
	}
	resp, err := s.registry.Apps().Chat(c.Request().Context(), req.AppID, req.Message)
	if err != nil {
		code, msg := statusFor(err)
		return c.JSON(code, ChatResponse{Sources: []string{}, Error: msg})
	}
	return c.JSON(http.StatusOK, ChatResponse{
		Success: true,
		Answer:  resp.Answer,
		Sources: resp.Sources,
	})
}
