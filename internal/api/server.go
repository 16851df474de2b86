package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"roomsheet/internal/config"
	"roomsheet/internal/domain"
	"roomsheet/internal/logging"
	"roomsheet/internal/metrics"

	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const requestIDHeader = "X-Request-Id"

// Exporter writes a month snapshot to disk and returns its path.
type Exporter interface {
	MonthSnapshot(ctx context.Context, year int, month time.Month) (string, error)
}

// Deps carries the collaborators the HTTP layer exposes. Journal and
// Exporter may be nil; the matching endpoints then degrade gracefully.
type Deps struct {
	Bookings  domain.BookingService
	Schedules domain.ScheduleService
	Journal   domain.Journal
	Exporter  Exporter
	Version   string
}

// HTTPServer exposes the booking service as a JSON API.
type HTTPServer struct {
	cfg       config.APIConfig
	bookings  domain.BookingService
	schedules domain.ScheduleService
	journal   domain.Journal
	exporter  Exporter
	version   string
	server    *http.Server
	auth      *HTTPAuth
	logger    zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, deps Deps, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:       cfg,
		bookings:  deps.Bookings,
		schedules: deps.Schedules,
		journal:   deps.Journal,
		exporter:  deps.Exporter,
		version:   deps.Version,
		auth:      NewHTTPAuth(cfg),
		logger:    logging.Component(logger, "api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", srv.handleHealth)
	mux.HandleFunc("/api/v1/rooms", srv.handleRooms)
	mux.HandleFunc("/api/v1/timeslots", srv.handleTimeSlots)
	mux.HandleFunc("/api/v1/bookings", srv.handleBookings)
	mux.HandleFunc("/api/v1/bookings/", srv.handleBookingByID)
	mux.HandleFunc("/api/v1/fixed-schedules", srv.handleSchedules)
	mux.HandleFunc("/api/v1/fixed-schedules/", srv.handleScheduleByID)
	mux.HandleFunc("/api/v1/sheet-url", srv.handleSheetURL)
	mux.HandleFunc("/api/v1/operations", srv.handleOperations)
	mux.HandleFunc("/api/v1/exports", srv.handleExports)

	handler := srv.loggingMiddleware(corsHandler(cfg.CORS)(srv.auth.Wrap(mux)))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("http api listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the full middleware chain, used by tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func corsHandler(cfg config.CORSConfig) func(http.Handler) http.Handler {
	if len(cfg.AllowedOrigins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader, "X-Api-Key"},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	})
}

// loggingMiddleware tags each request with an id, logs the outcome and
// feeds the request counters. Incoming ids are kept so callers can stitch
// their own traces together.
func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		l := s.logger.With().Str("request_id", requestID).Logger()
		r = r.WithContext(l.WithContext(r.Context()))

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(r.URL.Path, strconv.Itoa(recorder.status))
		l.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
