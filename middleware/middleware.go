package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"

	"github.com/sanjiv-madhavan/natours-api/apperror"
	"github.com/sanjiv-madhavan/natours-api/constants"
	"github.com/sanjiv-madhavan/natours-api/database"
	"github.com/sanjiv-madhavan/natours-api/models"
)

const (
	HeaderRequestID = "X-Request-ID"

	msgUnexpected = "Something went very wrong!"
)

var duplicateValue = regexp.MustCompile(`dup key: \{\s*[\w.]+:\s*"?([^"}]*?)"?\s*\}`)

// Authenticator resolves the caller behind an Authorization header value.
type Authenticator interface {
	Protect(ctx context.Context, authorization string) (*models.User, error)
}

// HandlerFunc is an HTTP handler that reports failures by returning them.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

type Middleware struct {
	logger *slog.Logger
	auth   Authenticator
}

func NewMiddleware(logger *slog.Logger, auth Authenticator) *Middleware {
	return &Middleware{
		logger: logger,
		auth:   auth,
	}
}

func (m *Middleware) SendJSONResponse(w http.ResponseWriter, statusCode int, v interface{}) {
	if v == nil {
		m.writeSecurityHeaders(w)
		w.WriteHeader(statusCode)
		return
	}
	buf := &bytes.Buffer{}
	encoder := json.NewEncoder(buf)
	encoder.SetEscapeHTML(true)
	if err := encoder.Encode(v); err != nil {
		m.logger.Error("Failed to encode response", slog.Any("error", err))
		buf.Reset()
		statusCode = http.StatusInternalServerError
		_ = json.NewEncoder(buf).Encode(errorEnvelope{Status: constants.StatusError, Message: msgUnexpected})
	}
	w.Header().Set("Content-Type", "application/json")
	m.writeSecurityHeaders(w)
	w.WriteHeader(statusCode)
	w.Write(buf.Bytes())
}

func (m *Middleware) writeSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("Strict-Transport-Security", "max-age=31353600, includeSubDomains")
	w.Header().Set("Content-Security-Policy", "default-src 'self'")
}

type errorEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SendError is the single place where a failure becomes an HTTP response.
// Operational errors carry their own status and message; everything else is
// logged and reported without detail.
func (m *Middleware) SendError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := m.translate(err)
	logger := m.logger.With(
		slog.String("request_id", RequestIDFrom(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
	)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", slog.Any("error", err))
	} else {
		logger.Info("Request rejected", slog.String("reason", message))
	}

	envelopeStatus := constants.StatusFail
	if status >= http.StatusInternalServerError {
		envelopeStatus = constants.StatusError
	}
	m.SendJSONResponse(w, status, errorEnvelope{Status: envelopeStatus, Message: message})
}

func (m *Middleware) translate(err error) (int, string) {
	if appErr, ok := apperror.As(err); ok {
		return appErr.Kind.StatusCode(), appErr.Message
	}
	switch {
	case errors.Is(err, database.ErrDuplicateKey):
		if match := duplicateValue.FindStringSubmatch(err.Error()); match != nil {
			return http.StatusBadRequest, "Duplicate field value: " + match[1] + ". Please use another value!"
		}
		return http.StatusBadRequest, "Duplicate field value. Please use another value!"
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound, "No document found with that ID"
	default:
		return http.StatusInternalServerError, msgUnexpected
	}
}

// Handle adapts an error-returning handler to http.Handler.
func (m *Middleware) Handle(fn HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			m.SendError(w, r, err)
		}
	})
}

func (m *Middleware) PanicRecoveryHandler(inner http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				m.logger.Error("Recovered from panic", slog.Any("panic", rec), slog.String("request_id", RequestIDFrom(r.Context())))
				m.SendJSONResponse(w, http.StatusInternalServerError, errorEnvelope{Status: constants.StatusError, Message: msgUnexpected})
			}
		}()
		inner.ServeHTTP(w, r)
	}
	return http.HandlerFunc(fn)
}

// RequestID tags every request with an id, reusing the caller's when present.
func (m *Middleware) RequestID(inner http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		ctx := context.WithValue(r.Context(), constants.RequestID, id)
		inner.ServeHTTP(w, r.WithContext(ctx))
	}
	return http.HandlerFunc(fn)
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(constants.RequestID).(string)
	return id
}

// AccessLog writes one structured line per request once the response is done.
func (m *Middleware) AccessLog(inner http.Handler) http.Handler {
	return handlers.CustomLoggingHandler(io.Discard, inner, func(_ io.Writer, params handlers.LogFormatterParams) {
		m.logger.Info("Request served",
			slog.String("request_id", RequestIDFrom(params.Request.Context())),
			slog.String("method", params.Request.Method),
			slog.String("path", params.URL.Path),
			slog.Int("status", params.StatusCode),
			slog.Int("size", params.Size),
			slog.Duration("duration", time.Since(params.TimeStamp)),
		)
	})
}
