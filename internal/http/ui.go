package http

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/apperr"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type chatPage struct {
	AppID   string
	AppName string
}

type errorPage struct {
	Message string
}

// handleChatPage serves the embeddable chat page bound to ?appId=.
func (s *Server) handleChatPage(c echo.Context) error {
	ctx := c.Request().Context()
	raw := c.QueryParam("appId")
	if raw == "" {
		return s.renderPage(c, http.StatusBadRequest, "error.html", errorPage{Message: "appId query parameter is required"})
	}

	app, err := s.registry.Apps().GetApp(ctx, raw)
	if err != nil {
		code, msg := statusFor(err)
		if !apperr.Is(err, apperr.KindNotFound) && !apperr.Is(err, apperr.KindValidation) {
			s.logger.Error(ctx, "chat page lookup failed", zap.Error(err))
		}
		return s.renderPage(c, code, "error.html", errorPage{Message: msg})
	}
	return s.renderPage(c, http.StatusOK, "chat.html", chatPage{AppID: app.ID, AppName: app.Name})
}

func (s *Server) renderPage(c echo.Context, code int, name string, data interface{}) error {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	return c.HTMLBlob(code, buf.Bytes())
}
