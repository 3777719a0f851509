package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"go-clinic-queue/pkg/apperror"
)

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

// ErrorBody is the machine-readable part of a failed response
type ErrorBody struct {
	Kind      apperror.Kind `json:"kind"`
	Retryable bool          `json:"retryable,omitempty"`
}

func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func Success(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	JSON(w, statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func Error(w http.ResponseWriter, statusCode int, message string, err interface{}) {
	JSON(w, statusCode, Response{
		Success: false,
		Message: message,
		Error:   err,
	})
}

// FromError writes err with the HTTP status matching its kind.
// Only the public message is written, never the wrapped cause.
func FromError(w http.ResponseWriter, err error) {
	kind := apperror.KindOf(err)
	message := "Internal server error"
	var appErr *apperror.Error
	if kind != apperror.KindInternal && errors.As(err, &appErr) {
		message = appErr.Message
	}
	Error(w, StatusFor(kind), message, ErrorBody{Kind: kind, Retryable: apperror.Retryable(err)})
}

// StatusFor maps an error kind to its HTTP status code
func StatusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindInvalidInput:
		return http.StatusBadRequest
	case apperror.KindConflict, apperror.KindIllegalTransition, apperror.KindTerminalState, apperror.KindEmptyQueue:
		return http.StatusConflict
	case apperror.KindForbidden:
		return http.StatusForbidden
	case apperror.KindUnavailable:
		return http.StatusServiceUnavailable
	case apperror.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func ValidationError(w http.ResponseWriter, fields interface{}) {
	JSON(w, http.StatusBadRequest, Response{
		Success: false,
		Message: "Validation failed",
		Error:   fields,
	})
}

func BadRequest(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Bad request"
	}
	Error(w, http.StatusBadRequest, message, ErrorBody{Kind: apperror.KindInvalidInput})
}

func Unauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Unauthorized"
	}
	Error(w, http.StatusUnauthorized, message, nil)
}

func InternalServerError(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Internal server error"
	}
	Error(w, http.StatusInternalServerError, message, nil)
}

func Forbidden(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Forbidden"
	}
	Error(w, http.StatusForbidden, message, ErrorBody{Kind: apperror.KindForbidden})
}
