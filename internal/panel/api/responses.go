package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/blockpanel/blockpanel/internal/panel/node"
	"github.com/blockpanel/blockpanel/internal/panel/server"
	apperrors "github.com/blockpanel/blockpanel/internal/shared/errors"
	"github.com/blockpanel/blockpanel/pkg/api"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess[T any](w http.ResponseWriter, data T) error {
	return WriteJSON(w, http.StatusOK, api.Response[T]{
		Success: true,
		Data:    data,
	})
}

// WriteCreated writes a successful creation response.
func WriteCreated[T any](w http.ResponseWriter, data T) error {
	return WriteJSON(w, http.StatusCreated, api.Response[T]{
		Success: true,
		Data:    data,
	})
}

// ParseJSONRequest decodes a JSON request body into v.
func ParseJSONRequest(r *http.Request, v any) error {
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// WriteErrorResponse logs the error and translates it into the right HTTP
// response. Domain and daemon errors carry their own classification; plain
// errors default to 500.
func WriteErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	logger := GetLogger(ctx)
	requestID := GetRequestID(ctx)

	logger.ErrorCtx(ctx, "API request failed", err)

	statusCode := http.StatusInternalServerError
	errorCode := apperrors.ErrCodeInternal
	message := "An internal server error occurred"
	var metadata map[string]any

	var domainErr apperrors.DomainError
	switch {
	case errors.As(err, &domainErr):
		errorCode = domainErr.Code()
		metadata = domainErr.Metadata()
		statusCode, message = mapErrorCodeToHTTP(domainErr)
	default:
		statusCode, errorCode, message = classifyPlainError(err)
	}

	_ = WriteJSON(w, statusCode, api.Response[any]{
		Success: false,
		Error: &api.ErrorInfo{
			Code:      errorCode,
			Message:   message,
			RequestID: requestID,
			Metadata:  metadata,
		},
	})
}

// mapErrorCodeToHTTP maps domain error codes to HTTP status codes and messages.
func mapErrorCodeToHTTP(err apperrors.DomainError) (int, string) {
	errMsg := err.Error()

	switch err.Code() {
	case apperrors.ErrCodeValidation, apperrors.ErrCodeNodeValidation, apperrors.ErrCodeServerValidation:
		return http.StatusBadRequest, "Validation failed: " + errMsg

	case apperrors.ErrCodeNodeNotFound, apperrors.ErrCodeServerNotFound:
		return http.StatusNotFound, "Resource not found: " + errMsg

	case apperrors.ErrCodeNodeConflict, apperrors.ErrCodeServerConflict:
		return http.StatusConflict, "Resource conflict: " + errMsg

	case apperrors.ErrCodeDaemonUnreachable, apperrors.ErrCodeCircuitOpen:
		return http.StatusServiceUnavailable, "Node daemon is unreachable: " + errMsg

	case apperrors.ErrCodeDaemonAPIError, apperrors.ErrCodeDaemonMalformed:
		return http.StatusBadGateway, "Node daemon error: " + errMsg

	case apperrors.ErrCodeProvisionFailed:
		return http.StatusBadGateway, "Provisioning failed: " + errMsg

	case apperrors.ErrCodeProvisionUnknown:
		return http.StatusBadGateway, "Provisioning outcome unknown: " + errMsg

	case apperrors.ErrCodeNodeOffline:
		return http.StatusConflict, "Node is offline: " + errMsg

	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout, "Operation timed out: " + errMsg

	default:
		return http.StatusInternalServerError, "An internal server error occurred"
	}
}

// classifyPlainError handles the domain sentinel and validation errors that
// do not implement DomainError.
func classifyPlainError(err error) (int, string, string) {
	var nodeValErr *node.ValidationError
	var serverValErr *server.ValidationError
	var conflictErr *node.ConflictError

	switch {
	case errors.Is(err, node.ErrNodeNotFound):
		return http.StatusNotFound, apperrors.ErrCodeNodeNotFound, "Node not found"
	case errors.Is(err, server.ErrServerNotFound):
		return http.StatusNotFound, apperrors.ErrCodeServerNotFound, "Server not found"
	case errors.As(err, &nodeValErr):
		return http.StatusBadRequest, apperrors.ErrCodeNodeValidation, err.Error()
	case errors.As(err, &serverValErr):
		return http.StatusBadRequest, apperrors.ErrCodeServerValidation, err.Error()
	case errors.As(err, &conflictErr):
		return http.StatusConflict, apperrors.ErrCodeNodeConflict, err.Error()
	case errors.Is(err, server.ErrUUIDConflict):
		return http.StatusConflict, apperrors.ErrCodeServerConflict, err.Error()
	case errors.Is(err, node.ErrConcurrentModification), errors.Is(err, server.ErrConcurrentModification):
		return http.StatusConflict, apperrors.ErrCodeValidation, err.Error()
	default:
		return http.StatusInternalServerError, apperrors.ErrCodeInternal, "An internal server error occurred"
	}
}

// WriteValidationError writes a 400 response for request parsing failures.
func WriteValidationError(w http.ResponseWriter, err error, requestID string) error {
	return WriteJSON(w, http.StatusBadRequest, api.Response[any]{
		Success: false,
		Error: &api.ErrorInfo{
			Code:      apperrors.ErrCodeValidation,
			Message:   err.Error(),
			RequestID: requestID,
		},
	})
}
