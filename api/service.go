package api

import (
	"expvar"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-redis/redis"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"gitlab.com/Cacophony/Monitor/metrics"
)

// Status is the response of the status endpoint
type Status struct {
	Service   string    `json:"service"`
	Available bool      `json:"available"`
	Redis     string    `json:"redis"`
	StartedAt time.Time `json:"started_at"`
	Passes    int64     `json:"passes"`
	Monitors  int64     `json:"monitors"`
}

// Render sets the status code
func (s *Status) Render(w http.ResponseWriter, r *http.Request) error {
	if !s.Available {
		render.Status(r, http.StatusServiceUnavailable)
	}
	return nil
}

type service struct {
	name   string
	logger *zap.Logger
	redis  *redis.Client
}

// New creates a new restful Web Service for reporting information about the worker
func New(logger *zap.Logger, name string, redisClient *redis.Client) http.Handler {
	s := &service{
		name:   name,
		logger: logger,
		redis:  redisClient,
	}

	router := chi.NewRouter()

	// setup middleware
	router.Use(chiMiddleware.RequestID)
	router.Use(s.requestLogger)
	router.Use(chiMiddleware.Recoverer)

	router.With(render.SetContentType(render.ContentTypeJSON)).Get("/status", s.getStatus)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	router.Method(http.MethodGet, "/debug/vars", expvar.Handler())

	return router
}

// NewHTTPServer creates the http server listening on port
func NewHTTPServer(port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
}

func (s *service) getStatus(w http.ResponseWriter, r *http.Request) {
	result := &Status{
		Service:   s.name,
		Available: true,
		Redis:     "ok",
		StartedAt: time.Unix(metrics.Uptime.Value(), 0).UTC(),
		Passes:    metrics.Passes.Value(),
		Monitors:  metrics.Monitors.Value(),
	}

	err := s.redis.WithContext(r.Context()).Ping().Err()
	if err != nil {
		result.Available = false
		result.Redis = err.Error()
	}

	err = render.Render(w, r, result)
	if err != nil {
		s.logger.Error("unable to render status", zap.Error(err))
	}
}

func (s *service) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Debug("served request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(started)),
			zap.String("request_id", chiMiddleware.GetReqID(r.Context())),
		)
	})
}
