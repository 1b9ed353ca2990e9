// Package server exposes the layout pipeline over HTTP.
//
// Routes:
//
//	GET  /healthz     build info and status
//	POST /v1/layout   lay out a posted catalog
//
// POST /v1/layout accepts {"items": [...], "config": {...}} where config
// overrides individual layout fields. The response is the snapshot as JSON,
// or as deterministic CBOR when the request sends Accept: application/cbor.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/masonry/pkg/buildinfo"
	"github.com/matzehuels/masonry/pkg/catalog"
	"github.com/matzehuels/masonry/pkg/errors"
	"github.com/matzehuels/masonry/pkg/layout"
	"github.com/matzehuels/masonry/pkg/pipeline"
)

// Server defaults.
const (
	DefaultAddr         = ":8080"
	DefaultMaxItems     = 5000
	DefaultMaxBodyBytes = 4 << 20
	DefaultTimeout      = 30 * time.Second

	contentTypeJSON = "application/json"
	contentTypeCBOR = "application/cbor"
)

// Options configures a Server.
type Options struct {
	Addr         string        `toml:"addr"`
	MaxItems     int           `toml:"max_items"`
	MaxBodyBytes int64         `toml:"max_body_bytes"`
	Timeout      time.Duration `toml:"timeout"`

	// Defaults are the pipeline options each request starts from.
	Defaults pipeline.Options `toml:"-"`
	Logger   *log.Logger      `toml:"-"`
}

func (o *Options) setDefaults() {
	if o.Addr == "" {
		o.Addr = DefaultAddr
	}
	if o.MaxItems <= 0 {
		o.MaxItems = DefaultMaxItems
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Defaults.Layout == (layout.Config{}) {
		o.Defaults = pipeline.DefaultOptions()
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Server serves layout requests.
type Server struct {
	runner *pipeline.Runner
	opts   Options
	logger *log.Logger
	router chi.Router
}

// New creates a server that runs layouts through runner.
func New(runner *pipeline.Runner, opts Options) *Server {
	opts.setDefaults()
	s := &Server{
		runner: runner,
		opts:   opts,
		logger: opts.Logger,
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.Timeout))

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/layout", s.handleLayout)
	})
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.opts.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

type healthResponse struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Build: buildinfo.Get()})
}

// layoutRequest is the POST /v1/layout body.
type layoutRequest struct {
	Items  []catalog.Item `json:"items"`
	Config layout.Config  `json:"config"`
	Repeat int            `json:"repeat,omitempty"`
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	opts := s.opts.Defaults
	opts.Logger = s.logger.With("request_id", RequestID(r.Context()))

	req := layoutRequest{Config: opts.Layout}
	body := http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request"))
		return
	}

	repeat := max(req.Repeat, 1)
	if repeat > catalog.MaxRepeat || len(req.Items) > s.opts.MaxItems/repeat {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "too many items: %d x %d (max %d)", len(req.Items), repeat, s.opts.MaxItems))
		return
	}
	items := catalog.Normalize(req.Items)
	if repeat > 1 {
		items = catalog.Repeat(items, repeat)
	}
	opts.Layout = req.Config

	format := negotiate(r.Header.Get("Accept"))
	opts.Format = format

	snap, err := s.runner.Layout(r.Context(), items, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := s.runner.Encode(r.Context(), snap, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	ct := contentTypeJSON
	if format == layout.FormatCBOR {
		ct = contentTypeCBOR
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("X-Layout-Pass", snap.PassID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// negotiate picks the snapshot encoding from an Accept header.
func negotiate(accept string) string {
	for _, part := range strings.Split(accept, ",") {
		mt := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		switch mt {
		case contentTypeCBOR:
			return layout.FormatCBOR
		case contentTypeJSON:
			return layout.FormatJSON
		}
	}
	return layout.FormatJSON
}

type errorBody struct {
	Error struct {
		Code    errors.Code `json:"code"`
		Message string      `json:"message"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	var body errorBody
	body.Error.Code = errors.GetCode(err)
	body.Error.Message = errors.UserMessage(err)
	writeJSON(w, errors.HTTPStatus(err), body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
