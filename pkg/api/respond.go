package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"arithmitra/pkg/account"
	"arithmitra/pkg/calc"
	"arithmitra/pkg/chat"
	"arithmitra/pkg/expense"
	"arithmitra/pkg/gateway"
	"arithmitra/pkg/logging"
	"arithmitra/pkg/resilience"
	"arithmitra/pkg/session"
	"arithmitra/pkg/transfer"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// writeJSON writes a JSON response. A value that cannot be encoded becomes a
// 500 before any header is sent.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		logging.L().Error("response encoding failed", zap.Error(err))
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Error: http.StatusText(status)})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

var errEmptyBody = errors.New("request body is empty")

// requestError is a malformed or invalid request body.
type requestError struct {
	msg    string
	fields map[string]string
}

func (e *requestError) Error() string { return e.msg }

// decode reads one JSON object into dst, rejecting unknown fields and
// trailing data, then runs the validator.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &requestError{msg: errEmptyBody.Error()}
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &requestError{msg: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)}
		}
		return &requestError{msg: "malformed JSON: " + err.Error()}
	}
	if dec.More() {
		return &requestError{msg: "request body must hold a single JSON object"}
	}

	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fieldMessage(fe)
			}
			return &requestError{msg: "validation failed", fields: fields}
		}
		return &requestError{msg: err.Error()}
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "len":
		return "must have length " + fe.Param()
	default:
		return "is invalid"
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound), errors.Is(err, expense.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrTooManySessions):
		return http.StatusServiceUnavailable
	case transfer.IsValidation(err), expense.IsValidation(err), calc.IsValidation(err),
		account.IsValidation(err), gateway.IsInputError(err),
		errors.Is(err, account.ErrInvalidTheme):
		return http.StatusBadRequest
	case errors.Is(err, transfer.ErrInvalidState), errors.Is(err, transfer.ErrNotCancellable),
		errors.Is(err, chat.ErrBusy), errors.Is(err, account.ErrAccountExists):
		return http.StatusConflict
	case errors.Is(err, account.ErrInvalidCredentials), errors.Is(err, account.ErrAccountNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, transfer.ErrClosed), errors.Is(err, session.ErrRegistryClosed):
		return http.StatusGone
	case errors.Is(err, resilience.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case gateway.IsUpstreamError(err), errors.Is(err, resilience.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError replies with the mapped status. Internal errors are logged and
// not echoed.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)

	resp := errorResponse{Error: err.Error()}
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		resp.Fields = reqErr.fields
	}

	switch {
	case status == http.StatusInternalServerError:
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		resp.Error = "internal error"
	case status >= http.StatusBadGateway:
		s.logger.Warn("upstream failure", zap.String("path", r.URL.Path), zap.Error(err))
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "30")
	}
	writeJSON(w, status, resp)
}
