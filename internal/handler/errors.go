package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-auth/internal/model"
)

const internalMessage = "Internal server error"

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Message    []string `json:"message"`
	Error      string   `json:"error"`
	StatusCode int      `json:"statusCode"`
}

// StatusOf maps a domain error kind to its HTTP status.
func StatusOf(kind model.ErrorKind) int {
	switch kind {
	case model.KindInvalidInput:
		return http.StatusBadRequest
	case model.KindUserAlreadyExists:
		return http.StatusConflict
	case model.KindUserNotFound, model.KindUserWithEmailNotFound:
		return http.StatusNotFound
	case model.KindInvalidCredentials, model.KindInvalidToken, model.KindRefreshTokenRevoked:
		return http.StatusUnauthorized
	case model.KindPasswordsDontMatch:
		return http.StatusUnprocessableEntity
	case model.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// NewErrorHandler returns the echo error handler.  Domain errors keep
// their message; anything else is reported as a bare internal error and
// only the log sees the cause.
func NewErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := errorResponse(err)
		if status >= http.StatusInternalServerError {
			log.ErrorContext(c.Request().Context(), "request failed",
				"method", c.Request().Method,
				"path", c.Path(),
				"err", err,
			)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			log.WarnContext(c.Request().Context(), "write error response", "err", werr)
		}
	}
}

func errorResponse(err error) (int, errorBody) {
	var de *model.Error
	if errors.As(err, &de) && de.Kind != model.KindInternal {
		status := StatusOf(de.Kind)
		return status, errorBody{Message: []string{de.Message}, Error: de.Kind.Code(), StatusCode: status}
	}

	// Routing and binding failures raised by echo itself.
	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code < http.StatusInternalServerError {
		return he.Code, errorBody{
			Message:    []string{fmt.Sprint(he.Message)},
			Error:      statusCode(he.Code),
			StatusCode: he.Code,
		}
	}

	return http.StatusInternalServerError, errorBody{
		Message:    []string{internalMessage},
		Error:      model.KindInternal.Code(),
		StatusCode: http.StatusInternalServerError,
	}
}

// statusCode turns "Method Not Allowed" into METHOD_NOT_ALLOWED.
func statusCode(status int) string {
	return strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}
