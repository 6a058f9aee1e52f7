// Package control is the Control API (C5): a request/reply HTTP surface
// over the commands enumerated in §4.5 (GET_ACTIVE_CALLS,
// START_CALL_INTERCEPTION, STOP_CALL_INTERCEPTION, PING, and the proxied
// playback commands).
//
// Grounded on DMRHub's internal/http package for the gin.Engine wiring
// shape (addMiddleware, CreateRouter, Server.Start/Stop over an errgroup),
// trimmed of the frontend/session/auth machinery this spec has no use for.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"

	"github.com/tetrahub/tetralog/internal/config"
	"github.com/tetrahub/tetralog/internal/media"
	"github.com/tetrahub/tetralog/internal/registry"
)

const (
	readTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second
)

// Server is the Control API's HTTP listener.
type Server struct {
	httpServer *http.Server
	registry   *registry.Registry
	router     *media.Router
	secret     string
}

// NewServer builds the Control API, wired to the Call Registry and Media
// Router it reports on and drives.
func NewServer(cfg config.ControlConfig, traceEnabled bool, reg *registry.Registry, router *media.Router) *Server {
	s := &Server{registry: reg, router: router, secret: cfg.Secret}

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		slog.Error("control: failed setting trusted proxies", "error", err)
	}

	if traceEnabled {
		r.Use(otelgin.Middleware("control"))
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSHosts
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	r.Use(cors.New(corsConfig))

	store := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Second,
		Limit: uint8(cfg.RateLimitPerSecond),
	})
	r.Use(ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			c.JSON(http.StatusTooManyRequests, nok("rate limited, retry after "+time.Until(info.ResetTime).String()))
		},
		KeyFunc: func(c *gin.Context) string { return c.ClientIP() },
	}))

	if cfg.Debug {
		pprof.Register(r)
	}

	s.applyRoutes(r)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port),
		Handler:      r,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	return s
}

// Handler returns the underlying HTTP handler, for tests that want to drive
// requests with httptest rather than a real listener.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) applyRoutes(r *gin.Engine) {
	v1 := r.Group("/api/v1")
	v1.GET("/calls", s.getActiveCalls)
	v1.POST("/calls/:call_id/intercept", s.startCallInterception)
	v1.DELETE("/calls/:call_id/intercept", s.stopCallInterception)
	v1.POST("/calls/:call_id/play", s.startPlayCall)
	v1.DELETE("/calls/:call_id/play", s.stopPlayCall)
	v1.GET("/ping", s.ping)
}

// Start blocks serving HTTP until Stop is called or the server fails.
func (s *Server) Start() error {
	slog.Info("control: listening", "address", s.httpServer.Addr)
	g := new(errgroup.Group)
	g.Go(func() error {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("control: listen: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// Stop gracefully shuts the Control API down, per §5's "subscriptions and
// sockets are released as part of loop teardown".
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
