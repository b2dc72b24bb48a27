package http

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/metaform/pkg/domain/interfaces"
	"github.com/secmon-lab/metaform/pkg/domain/model"
	"github.com/secmon-lab/metaform/pkg/usecase"
	"github.com/secmon-lab/metaform/pkg/utils/errutil"
	"github.com/secmon-lab/metaform/pkg/utils/logging"
	"github.com/secmon-lab/metaform/pkg/widget"
)

type Server struct {
	router    *chi.Mux
	uc        *usecase.UseCases
	host      *widget.Host
	recordAPI interfaces.RecordAPI
	wsOrigins []string
}

type Options func(*Server)

// WithRecordAPI exposes api under /gemini/api in the record API wire format
func WithRecordAPI(api interfaces.RecordAPI) Options {
	return func(s *Server) {
		s.recordAPI = api
	}
}

// WithWebSocketOrigins sets the origin patterns accepted by the live form endpoint
func WithWebSocketOrigins(patterns ...string) Options {
	return func(s *Server) {
		s.wsOrigins = patterns
	}
}

func New(uc *usecase.UseCases, host *widget.Host, opts ...Options) (*Server, error) {
	if uc == nil || host == nil {
		return nil, goerr.New("use cases and widget host are required")
	}

	r := chi.NewRouter()
	s := &Server{
		router: r,
		uc:     uc,
		host:   host,
	}
	for _, opt := range opts {
		opt(s)
	}

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)

	r.Route("/api/entities/{entity}", func(r chi.Router) {
		r.Get("/form", s.getForm)
		r.Get("/records", s.listRecords)
		r.Post("/records", s.createRecord)
		r.Get("/records/*", s.getRecord)
	})

	r.Get("/ws/entities/{entity}/form", s.formSession)

	if s.recordAPI != nil {
		r.Route("/gemini/api/{entity}", func(r chi.Router) {
			r.Get("/", s.apiList)
			r.Post("/", s.apiCreate)
			r.Get("/*", s.apiGet)
		})
	}

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.From(r.Context()).Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to marshal response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data) //nolint:errcheck // header already committed
}

// maxRequestBodyBytes bounds JSON request bodies
const maxRequestBodyBytes = 1 << 20

// decodeBody decodes a size-limited JSON request body into v. Numbers are
// decoded as json.Number so that integers beyond 2^53 stay exact. It
// returns the API error to report, or nil.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, invalidMessage string) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &model.APIError{
				Status:    http.StatusRequestEntityTooLarge,
				Message:   "request body exceeds " + strconv.Itoa(maxRequestBodyBytes) + " bytes",
				ErrorCode: "BODY_TOO_LARGE",
			}
		}
		return goerr.Wrap(err, "failed to read request body")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return model.NewBadRequestError("INVALID_BODY", invalidMessage)
	}
	return nil
}
