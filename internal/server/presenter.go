package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/larder/pkg/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

func ok(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

// fail maps err onto a status code and writes it as JSON.
func (s *Server) fail(c echo.Context, err error) error {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.JSON(status, errorResponse{Error: err.Error()})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, types.ErrNotFound), errors.Is(err, types.ErrSchemaNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrDuplicateIdentifier):
		return http.StatusConflict
	case errors.Is(err, types.ErrMissingIdentifier),
		errors.Is(err, types.ErrUnknownField),
		errors.Is(err, types.ErrInvalidInclude),
		errors.Is(err, types.ErrInvalidIncludeChain),
		errors.Is(err, types.ErrRelationalFilter),
		errors.Is(err, types.ErrInvalidData),
		errors.Is(err, types.ErrNoRows),
		errors.Is(err, types.ErrMultipleRows):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
