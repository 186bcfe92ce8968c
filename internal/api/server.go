package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/javiermolinar/clinicflow/internal/appointment"
	"github.com/javiermolinar/clinicflow/internal/metrics"
)

// Options configures a Server. All fields are optional.
type Options struct {
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer // served at /metrics; defaults to the global registry
	Logger   *zap.Logger
}

// Server serves a repository over HTTP.
type Server struct {
	repo     appointment.Repository
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

// NewServer creates a server backed by repo.
func NewServer(repo appointment.Repository, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		repo:     repo,
		metrics:  opts.Metrics,
		gatherer: gatherer,
		logger:   logger,
	}
}

// Handler returns the chi router with all routes configured.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Route("/appointments", func(r chi.Router) {
			r.Get("/", s.listAppointments)
			r.Post("/", s.createAppointment)
			r.Route("/{id}", func(r chi.Router) {
				r.Patch("/time", s.updateTime)
				r.Patch("/status", s.updateStatus)
				r.Delete("/", s.deleteAppointment)
			})
		})
		r.Get("/availability", s.checkAvailability)
		r.Get("/clients", s.listClients)
		r.Post("/clients", s.createClient)
		r.Get("/counselors", s.listCounselors)
		r.Post("/counselors", s.createCounselor)
		r.Get("/locations", s.listLocations)
		r.Post("/locations", s.createLocation)
	})
	return r
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down api: %w", err)
		}
		return nil
	}
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		s.metrics.ObserveHTTP(route, strconv.Itoa(status), elapsed.Seconds())
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) listAppointments(w http.ResponseWriter, r *http.Request) {
	start, err := parseDay(r.URL.Query().Get("start"))
	if err != nil {
		s.fail(w, err)
		return
	}
	end, err := parseDay(r.URL.Query().Get("end"))
	if err != nil {
		s.fail(w, err)
		return
	}
	appts, err := s.repo.ListAppointments(r.Context(), start, end)
	if err != nil {
		s.fail(w, err)
		return
	}
	out := make([]AppointmentJSON, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentJSON(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createAppointment(w http.ResponseWriter, r *http.Request) {
	var body CreateAppointmentJSON
	if !s.decode(w, r, &body) {
		return
	}
	day, err := parseDay(body.Date)
	if err != nil {
		s.fail(w, err)
		return
	}
	kind, err := appointment.ParseKind(body.Kind)
	if err != nil {
		s.fail(w, err)
		return
	}
	recurring, err := appointment.ParseRecurrence(body.Recurring)
	if err != nil {
		s.fail(w, err)
		return
	}
	a, err := s.repo.CreateAppointment(r.Context(), appointment.CreateRequest{
		ClientID:    body.ClientID,
		Date:        day,
		Time:        body.Time,
		Kind:        kind,
		Duration:    body.Duration,
		Notes:       body.Notes,
		Recurring:   recurring,
		CounselorID: body.CounselorID,
		Location:    body.Location,
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	s.logger.Info("appointment created", zap.String("appointment_id", a.ID))
	writeJSON(w, http.StatusCreated, toAppointmentJSON(a))
}

func (s *Server) updateTime(w http.ResponseWriter, r *http.Request) {
	var body UpdateTimeJSON
	if !s.decode(w, r, &body) {
		return
	}
	day, err := parseDay(body.Date)
	if err != nil {
		s.fail(w, err)
		return
	}
	start, err := appointment.Combine(day, body.Time)
	if err != nil {
		s.fail(w, err)
		return
	}
	a, err := s.repo.UpdateAppointmentTime(r.Context(), appointment.TimeUpdate{
		ID:          chi.URLParam(r, "id"),
		Start:       start,
		Duration:    body.Duration,
		Location:    body.Location,
		CounselorID: body.CounselorID,
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentJSON(a))
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	var body UpdateStatusJSON
	if !s.decode(w, r, &body) {
		return
	}
	status, err := appointment.ParseStatus(body.Status)
	if err != nil {
		s.fail(w, err)
		return
	}
	if err := s.repo.UpdateAppointmentStatus(r.Context(), chi.URLParam(r, "id"), status); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteAppointment(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteAppointment(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) checkAvailability(w http.ResponseWriter, r *http.Request) {
	day, err := parseDay(r.URL.Query().Get("date"))
	if err != nil {
		s.fail(w, err)
		return
	}
	busy, err := s.repo.CheckAvailability(r.Context(), day, r.URL.Query().Get("counselor_id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	out := make([]BusySlotJSON, 0, len(busy))
	for _, b := range busy {
		out = append(out, BusySlotJSON{Time: b.Time, OccupantName: b.OccupantName})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listClients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.repo.ListClients(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	out := make([]ClientJSON, 0, len(clients))
	for _, c := range clients {
		out = append(out, toClientJSON(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createClient(w http.ResponseWriter, r *http.Request) {
	var body ClientJSON
	if !s.decode(w, r, &body) {
		return
	}
	c := fromClientJSON(body)
	c.ID = ""
	if err := s.repo.CreateClient(r.Context(), c); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toClientJSON(c))
}

func (s *Server) listCounselors(w http.ResponseWriter, r *http.Request) {
	counselors, err := s.repo.ListCounselors(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	out := make([]NamedJSON, 0, len(counselors))
	for _, c := range counselors {
		out = append(out, NamedJSON{ID: c.ID, Name: c.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createCounselor(w http.ResponseWriter, r *http.Request) {
	var body NamedJSON
	if !s.decode(w, r, &body) {
		return
	}
	c := &appointment.Counselor{Name: body.Name}
	if err := s.repo.CreateCounselor(r.Context(), c); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, NamedJSON{ID: c.ID, Name: c.Name})
}

func (s *Server) listLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := s.repo.ListLocations(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	out := make([]NamedJSON, 0, len(locations))
	for _, l := range locations {
		out = append(out, NamedJSON{ID: l.ID, Name: l.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createLocation(w http.ResponseWriter, r *http.Request) {
	var body NamedJSON
	if !s.decode(w, r, &body) {
		return
	}
	l := &appointment.Location{Name: body.Name}
	if err := s.repo.CreateLocation(r.Context(), l); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, NamedJSON{ID: l.ID, Name: l.Name})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.fail(w, fmt.Errorf("%w: invalid request body", errBadRequest))
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, ErrorJSON{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
