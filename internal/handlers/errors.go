package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mikelady/socialconnect/internal/services"
)

// codeInvalidRequest labels request bodies rejected before reaching a service
const codeInvalidRequest = "invalid_request"

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	ErrorCode   string `json:"errorCode"`
	HelpMessage string `json:"helpMessage,omitempty"`
}

var kindStatus = map[services.ErrorKind]int{
	services.KindUnsupportedPlatform:    http.StatusBadRequest,
	services.KindMissingRequiredMedia:   http.StatusBadRequest,
	services.KindInvalidToken:           http.StatusBadRequest,
	services.KindInvalidState:           http.StatusBadRequest,
	services.KindTokenExchangeFailed:    http.StatusBadGateway,
	services.KindAccountInfoFailed:      http.StatusBadGateway,
	services.KindNotFound:               http.StatusNotFound,
	services.KindInsufficientPermission: http.StatusForbidden,
	services.KindRateLimited:            http.StatusTooManyRequests,
	services.KindProviderUnavailable:    http.StatusBadGateway,
	services.KindUnknownProviderError:   http.StatusBadGateway,
	services.KindInternal:               http.StatusInternalServerError,
}

// StatusForKind maps an error kind to its HTTP status
func StatusForKind(kind services.ErrorKind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondError writes err as an ErrorResponse. Internal errors are not echoed.
func respondError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrMissingAccessToken) || errors.Is(err, services.ErrMissingAccountID) {
		badRequest(c, err.Error())
		return
	}

	se := services.AsServiceError(err)
	message := se.Message
	if se.Kind == services.KindInternal {
		_ = c.Error(err)
		message = "internal error"
	}
	if message == "" {
		message = string(se.Kind)
	}

	help := se.Help
	if help == "" {
		help = services.HelpFor(se.Kind)
	}

	c.JSON(StatusForKind(se.Kind), ErrorResponse{
		Message:     message,
		ErrorCode:   string(se.Kind),
		HelpMessage: help,
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Message: message, ErrorCode: codeInvalidRequest})
}
