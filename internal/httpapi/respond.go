package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"ai-meal-coach/internal/apperror"
	"ai-meal-coach/internal/llm"
	"ai-meal-coach/internal/planner"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// envelope wraps every response body.
type envelope struct {
	Success   bool           `json:"success"`
	Data      any            `json:"data,omitempty"`
	Message   string         `json:"message,omitempty"`
	Code      string         `json:"code,omitempty"`
	Retryable bool           `json:"retryable,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func ok(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func noContent(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, envelope{Success: true})
}

// errorResponse maps an error to a status and envelope. Unknown errors are
// reported as internal without their text.
func errorResponse(err error) (int, envelope) {
	var appErr *apperror.AppError
	var verr *planner.GenerationValidationError
	var serr *planner.RegenerationStalledError
	var perr *planner.ProviderError

	switch {
	case errors.As(err, &appErr):
		return appErr.StatusCode(), envelope{
			Code:     string(appErr.Code),
			Message:  appErr.Message,
			Metadata: appErr.Metadata,
		}
	case errors.As(err, &verr):
		return http.StatusBadGateway, envelope{
			Code:      "GENERATION_INVALID",
			Message:   "the model returned an invalid meal plan, please try again",
			Retryable: true,
			Metadata:  map[string]any{"violations": verr.Violations},
		}
	case errors.As(err, &serr):
		return http.StatusServiceUnavailable, envelope{
			Code:      "REGENERATION_STALLED",
			Message:   "could not find a different meal, please try again",
			Retryable: true,
			Metadata:  map[string]any{"mealId": serr.MealID, "attempts": serr.Attempts},
		}
	case errors.Is(err, llm.ErrProviderNotConfigured):
		return http.StatusBadRequest, envelope{
			Code:    string(apperror.CodeBadRequest),
			Message: "the requested AI provider is not available",
		}
	// Checked before ProviderError, which wraps the deadline of a timed out call.
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, envelope{
			Code:      "TIMEOUT",
			Message:   "the request took too long",
			Retryable: true,
		}
	case errors.As(err, &perr):
		return http.StatusBadGateway, envelope{
			Code:      "PROVIDER_ERROR",
			Message:   "the AI provider failed to answer, please try again",
			Retryable: true,
			Metadata:  map[string]any{"provider": string(perr.Provider)},
		}
	default:
		return http.StatusInternalServerError, envelope{
			Code:    string(apperror.CodeInternal),
			Message: "internal server error",
		}
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		s.logger.Debug("client went away", zap.String("path", r.URL.Path))
		return
	}
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	writeJSON(w, status, body)
}

// decode reads a JSON body into dst. An empty body leaves dst untouched.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return apperror.BadRequest("invalid request body").WithCause(err).
			WithMetadata("error", err.Error())
	}
	return nil
}
