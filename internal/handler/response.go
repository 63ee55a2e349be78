package handler

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"prize-pool/internal/pkg/lock"
	"prize-pool/internal/prizepool"
	"prize-pool/internal/service"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody is the machine-readable part of a failed response.
type ErrorBody struct {
	Kind              string `json:"kind"`
	Field             string `json:"field,omitempty"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`
}

// Error kinds outside the prize pool core.
const (
	KindSpinClosed      = "spin_closed"
	KindTierNotEligible = "tier_not_eligible"
	KindAdRequired      = "ad_required"
	KindSpinCooldown    = "spin_cooldown"
	KindDailyLimit      = "daily_limit"
	KindBusy            = "busy"
	KindInternal        = "internal"
)

// WriteJSON writes resp with the given status code.
func WriteJSON(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeOK(w http.ResponseWriter, status int, message string, data any) {
	WriteJSON(w, status, APIResponse{Success: true, Message: message, Data: data})
}

// writeError maps err onto a status code and error body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if body.RetryAfterSeconds > 0 {
		w.Header().Set("Retry-After", itoa(body.RetryAfterSeconds))
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", RequestIDFromContext(r.Context())).
			Str("path", r.URL.Path).
			Msg("Request failed")
		message = "internal server error"
	}
	WriteJSON(w, status, APIResponse{Success: false, Message: message, Error: &body})
}

func classify(err error) (int, ErrorBody) {
	var perr *prizepool.Error
	if errors.As(err, &perr) {
		body := ErrorBody{Kind: string(perr.Kind), Field: perr.Field}
		switch perr.Kind {
		case prizepool.KindBudgetExceeded:
			return http.StatusConflict, body
		case prizepool.KindNotFound:
			return http.StatusNotFound, body
		default:
			return http.StatusBadRequest, body
		}
	}

	var cerr *service.CooldownError
	switch {
	case errors.As(err, &cerr):
		secs := int(math.Ceil(cerr.Remaining.Seconds()))
		return http.StatusTooManyRequests, ErrorBody{Kind: KindSpinCooldown, RetryAfterSeconds: secs}
	case errors.Is(err, service.ErrDailyLimit):
		return http.StatusTooManyRequests, ErrorBody{Kind: KindDailyLimit}
	case errors.Is(err, service.ErrSpinClosed):
		return http.StatusForbidden, ErrorBody{Kind: KindSpinClosed}
	case errors.Is(err, service.ErrTierNotEligible):
		return http.StatusForbidden, ErrorBody{Kind: KindTierNotEligible}
	case errors.Is(err, service.ErrAdRequired):
		return http.StatusForbidden, ErrorBody{Kind: KindAdRequired}
	case errors.Is(err, lock.ErrLockTimeout):
		return http.StatusServiceUnavailable, ErrorBody{Kind: KindBusy, RetryAfterSeconds: 1}
	}
	return http.StatusInternalServerError, ErrorBody{Kind: KindInternal}
}

// badRequest reports malformed input as a validation error on field.
func badRequest(field, message string) error {
	return &prizepool.Error{Kind: prizepool.KindValidation, Field: field, Message: message}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequest("body", "invalid JSON body: "+err.Error())
	}
	return nil
}

func parseTime(field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, badRequest(field, "expected an RFC3339 timestamp")
	}
	return t, nil
}
