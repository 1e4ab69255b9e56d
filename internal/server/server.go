// Package server exposes the dashboard views as a JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gyeh/aihstats/internal/aggregate"
	"github.com/gyeh/aihstats/internal/metrics"
	"github.com/gyeh/aihstats/internal/model"
	"github.com/gyeh/aihstats/internal/store"
)

// DatasetProvider returns the current record set.
type DatasetProvider interface {
	Dataset(ctx context.Context) (*model.Dataset, error)
}

// Server routes /api requests to the aggregations over one provider.
type Server struct {
	log      zerolog.Logger
	data     DatasetProvider
	settings aggregate.Settings
	router   chi.Router
}

// New builds the router.
func New(log zerolog.Logger, data DatasetProvider, settings aggregate.Settings) *Server {
	s := &Server{log: log, data: data, settings: settings}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/options", s.handleOptions)
		r.Get("/summary", s.view(s.summary))
		r.Get("/ranking", s.view(s.ranking))
		r.Get("/per-capita", s.view(s.perCapita))
		r.Get("/timeseries", s.view(s.timeSeries))
		r.Get("/geo", s.view(s.geo))
		r.Get("/heatmap", s.view(s.heatMap))
		r.Get("/population-rate", s.view(s.populationRate))
		r.Get("/procedures", s.view(s.categories("procedures", s.settings.Procedures)))
		r.Get("/surgeries", s.view(s.categories("surgeries", s.settings.Surgeries)))
		r.Get("/coverage", s.view(s.coverage))
		r.Get("/records", s.view(s.records))
	})
	return r
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info().Msg("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// Envelope wraps every /api response. Empty is true when the filters left no
// records; Notice carries the reason a view could not be computed.
type Envelope struct {
	Empty  bool   `json:"empty"`
	Notice string `json:"notice,omitempty"`
	Data   any    `json:"data"`
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps a dataset error to an HTTP status.
func statusFor(err error) int {
	var (
		se *store.SchemaError
		qe *store.QueryError
	)
	switch {
	case errors.Is(err, store.ErrSourceUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &se), errors.As(err, &qe):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	s.log.Error().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
}

// viewFunc validates the view's own query parameters and returns the
// computation to run over the filtered records. A computation returning an
// *aggregate.UnavailableError becomes a notice; other errors are bad requests.
type viewFunc func(r *http.Request) (computeFunc, error)

type computeFunc func(cols model.ColumnSet, records []model.Record) (any, error)

// noticed carries view data that should be shown alongside a notice.
type noticed struct {
	data   any
	notice string
}

func (s *Server) view(fn viewFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sel, err := parseSelection(r)
		if err != nil {
			badRequest(w, err)
			return
		}
		compute, err := fn(r)
		if err != nil {
			badRequest(w, err)
			return
		}
		ds, err := s.data.Dataset(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}

		filtered := aggregate.ApplyFilters(ds.Records, sel)
		if notice := aggregate.EmptyNotice(len(ds.Records), len(filtered)); notice != "" {
			writeJSON(w, http.StatusOK, Envelope{Empty: true, Notice: notice})
			return
		}

		data, err := compute(ds.Columns, filtered)
		if errors.Is(err, aggregate.ErrUnavailable) {
			s.log.Debug().Err(err).Str("path", r.URL.Path).Msg("view unavailable")
			writeJSON(w, http.StatusOK, Envelope{Notice: err.Error()})
			return
		}
		if err != nil {
			badRequest(w, err)
			return
		}
		if n, ok := data.(noticed); ok {
			writeJSON(w, http.StatusOK, Envelope{Data: n.data, Notice: n.notice})
			return
		}
		writeJSON(w, http.StatusOK, Envelope{Data: data})
	}
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelection(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	ds, err := s.data.Dataset(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	env := Envelope{Data: aggregate.AvailableOptions(ds.Records, sel)}
	if ds.Empty() {
		env.Empty, env.Notice = true, aggregate.NoticeNoData
	}
	writeJSON(w, http.StatusOK, env)
}
