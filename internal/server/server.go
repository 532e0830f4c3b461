package server

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/sqlheur/internal/engine"
	"github.com/roach88/sqlheur/internal/ir"
)

// HeuristicsPath is the resource the search controller polls and resets.
const HeuristicsPath = "/controller/api/extraHeuristics"

// ObservationsPath lists recorded observations.
const ObservationsPath = "/controller/api/observations"

// QueriesPath accepts queries intercepted outside this process for scoring.
const QueriesPath = "/controller/api/queries"

// ObservationReader reads recorded observations. *store.Store satisfies it.
type ObservationReader interface {
	ReadObservations(ctx context.Context) ([]ir.Observation, error)
	ReadEpoch(ctx context.Context, epoch int64) ([]ir.Observation, error)
}

// HeuristicsResponse is the body of GET HeuristicsPath.
type HeuristicsResponse struct {
	ToMinimize []float64 `json:"toMinimize"`
}

// ObservationsResponse is the body of GET ObservationsPath.
type ObservationsResponse struct {
	Epoch        int64            `json:"epoch"`
	Observations []ir.Observation `json:"observations"`
}

// QueryRequest is the body of POST QueriesPath.
type QueryRequest struct {
	SQL  string `json:"sql" binding:"required"`
	Args []any  `json:"args"`
}

// QueryResponse is the body of a POST QueriesPath response. Observation is
// nil when the query was not observed (it is not a SELECT with a filter).
type QueryResponse struct {
	Observed    bool            `json:"observed"`
	Observation *ir.Observation `json:"observation,omitempty"`
}

// Server serves the heuristic list of one accumulator.
type Server struct {
	acc      *engine.Accumulator
	observer *engine.Observer
	reader   ObservationReader
	metrics  *Metrics
	gatherer prometheus.Gatherer
	router   *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithObservations enables the observations endpoint.
func WithObservations(r ObservationReader) Option {
	return func(s *Server) {
		s.reader = r
	}
}

// WithObserver enables the queries endpoint. The observer should append to
// the server's accumulator.
func WithObserver(o *engine.Observer) Option {
	return func(s *Server) {
		s.observer = o
	}
}

// WithMetrics counts resets in m and serves g on /metrics.
func WithMetrics(m *Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

// New creates a server for acc.
func New(acc *engine.Accumulator, opts ...Option) *Server {
	s := &Server{acc: acc}
	for _, opt := range opts {
		opt(s)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	s.RegisterRoutes(router)
	s.router = router
	return s
}

// RegisterRoutes registers the controller and metrics routes on r.
func (s *Server) RegisterRoutes(r gin.IRoutes) {
	r.GET(HeuristicsPath, s.handleGetHeuristics)
	r.DELETE(HeuristicsPath, s.handleResetHeuristics)
	r.GET(ObservationsPath, s.handleListObservations)
	r.POST(QueriesPath, s.handleObserveQuery)
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("serving heuristics", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		slog.Info("server stopping: context cancelled")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleGetHeuristics(c *gin.Context) {
	c.JSON(http.StatusOK, HeuristicsResponse{ToMinimize: s.acc.Snapshot()})
}

func (s *Server) handleResetHeuristics(c *gin.Context) {
	epoch := s.acc.Reset()
	if s.metrics != nil {
		s.metrics.ResetsTotal.Inc()
	}
	slog.Debug("heuristics reset", "epoch", epoch)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListObservations(c *gin.Context) {
	if s.reader == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "observation log is not enabled"})
		return
	}

	ctx := c.Request.Context()
	raw, ok := c.GetQuery("epoch")
	if !ok {
		observations, err := s.reader.ReadObservations(ctx)
		if err != nil {
			s.internalError(c, err)
			return
		}
		c.JSON(http.StatusOK, ObservationsResponse{Epoch: s.acc.Epoch(), Observations: observations})
		return
	}

	epoch, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || epoch < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "epoch must be a non-negative integer"})
		return
	}
	observations, err := s.reader.ReadEpoch(ctx, epoch)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, ObservationsResponse{Epoch: epoch, Observations: observations})
}

func (s *Server) handleObserveQuery(c *gin.Context) {
	if s.observer == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "query observation is not enabled"})
		return
	}

	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	args := make([]any, len(req.Args))
	for i, a := range req.Args {
		args[i] = jsonArg(a)
	}

	// Candidate failures are reported in the observation itself.
	obs, _ := s.observer.Observe(c.Request.Context(), req.SQL, args...)
	c.JSON(http.StatusOK, QueryResponse{Observed: obs != nil, Observation: obs})
}

// jsonArg narrows a decoded JSON number to int64 when it is integral, so
// integer arguments compare as integers.
func jsonArg(v any) any {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return v
	}
	return int64(f)
}

func (s *Server) internalError(c *gin.Context, err error) {
	slog.Error("read observations failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read observations"})
}
