// Package api serves strategies, indicators, backtests, sweeps and trend
// detection over HTTP.
package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/rustyeddy/quantlab/config"
	"github.com/rustyeddy/quantlab/market"
	"github.com/rustyeddy/quantlab/store"
)

// BarSource is the stored-series lookup the API needs. *store.SQLite
// satisfies it.
type BarSource interface {
	LoadBars(ctx context.Context, symbol, interval string, from, to int64) ([]market.Bar, error)
	ListSeries(ctx context.Context) ([]store.Series, error)
}

// Server holds the configuration and optional bar store behind the routes.
type Server struct {
	cfg  *config.Config
	bars BarSource
}

// New returns a Server. bars may be nil, in which case requests must carry
// their bars inline.
func New(cfg *config.Config, bars BarSource) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Server{cfg: cfg, bars: bars}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(ErrorHandler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		v1.GET("/strategies", s.ListStrategies)
		v1.GET("/strategies/:kind", s.GetStrategy)
		v1.GET("/series", s.ListSeries)

		v1.POST("/indicators", s.Indicators)
		v1.POST("/signals", s.Signals)
		v1.POST("/backtest", s.Backtest)
		v1.POST("/sweep", s.Sweep)
		v1.POST("/trends", s.Trends)
	}

	router.NoRoute(func(c *gin.Context) {
		abort(c, http.StatusNotFound, "NOT_FOUND", "no route for "+c.Request.URL.Path)
	})
	return router
}

// Handler wraps Router with CORS for the configured origins.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         600,
	})
	return c.Handler(s.Router())
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting API server on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Printf("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// ErrorHandler turns panics into a JSON 500.
func ErrorHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		msg := "An unexpected error occurred"
		if s, ok := recovered.(string); ok {
			msg = s
		}
		log.Printf("api: recovered panic: %v", recovered)
		abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", msg)
	})
}

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: msg},
	})
}
