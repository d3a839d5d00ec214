package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrymomot/mailpace/pkg/dispatch"
	"github.com/dmitrymomot/mailpace/pkg/lockout"
	"github.com/dmitrymomot/mailpace/pkg/mailer"
	"github.com/dmitrymomot/mailpace/pkg/quota"
	"github.com/dmitrymomot/mailpace/pkg/session"
	"github.com/dmitrymomot/mailpace/pkg/unsubscribe"
)

// maxBodyBytes bounds request bodies; recipient lists are small.
const maxBodyBytes = 1 << 20

// Response is the envelope of every API reply.
type Response struct {
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Success bool   `json:"success"`
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func ok(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, Response{Success: true, Message: message, Data: data})
}

func fail(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Response{Success: false, Message: message, Data: data})
}

// errorStatus maps domain errors to an HTTP status and an operator message.
func errorStatus(err error) (int, string) {
	var (
		ve *dispatch.ValidationError
		qe *quota.ExceededError
		te *mailer.TransportError
	)
	switch {
	case errors.Is(err, lockout.ErrActive), errors.Is(err, dispatch.ErrInterrupted):
		return http.StatusServiceUnavailable, "Server reset in progress, try later"
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &qe):
		return http.StatusTooManyRequests, qe.Error()
	case errors.As(err, &te):
		return http.StatusBadGateway, te.Error()
	case errors.Is(err, dispatch.ErrBusy):
		return http.StatusConflict, dispatch.ErrBusy.Error()
	case errors.Is(err, dispatch.ErrNoWorker), errors.Is(err, dispatch.ErrClosed):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, unsubscribe.ErrInvalidAddress):
		return http.StatusBadRequest, "invalid email address"
	case errors.Is(err, session.ErrUnauthenticated):
		return http.StatusUnauthorized, "authentication required"
	}
	return http.StatusInternalServerError, "internal server error"
}

var errBadRequest = errors.New("malformed request body")

// decode reads a JSON or form-encoded body into dst. Form fields are
// mapped through fromForm.
func decode(r *http.Request, dst any, fromForm func(get func(string) string)) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return fmt.Errorf("%w: %v", errBadRequest, err)
		}
		fromForm(r.PostForm.Get)
		return nil
	default:
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return fmt.Errorf("%w: %v", errBadRequest, err)
		}
		return nil
	}
}

func retryAfter(w http.ResponseWriter, d time.Duration) {
	if d <= 0 {
		return
	}
	secs := int((d + time.Second - 1) / time.Second)
	w.Header().Set("Retry-After", strconv.Itoa(secs))
}
