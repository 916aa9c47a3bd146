package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Prasanth-Nagulapalli/Multi-App-RAG-Chatbot/internal/apperr"
)

// statusFor maps an error to its HTTP status and client-facing message.
func statusFor(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprint(he.Message)
	}
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError, "internal server error"
	}
	switch ae.Kind {
	case apperr.KindValidation, apperr.KindPrecondition:
		return http.StatusBadRequest, ae.Error()
	case apperr.KindNotFound:
		return http.StatusNotFound, ae.Error()
	case apperr.KindConflict:
		return http.StatusConflict, ae.Error()
	case apperr.KindProvider:
		return http.StatusBadGateway, ae.Error()
	case apperr.KindBuild:
		return http.StatusInternalServerError, ae.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// handleError renders errors returned by handlers as a Response envelope.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, msg := statusFor(err)
	ctx := c.Request().Context()
	if code >= http.StatusInternalServerError {
		s.logger.Error(ctx, "request failed",
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, Response{Success: false, Error: msg})
	}
	if err != nil {
		s.logger.Warn(ctx, "failed to write error response", zap.Error(err))
	}
}
