// Package webserver is the HTTP action layer over the review and multisig
// engines.
package webserver

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/MbBrainz/grantflow-dev-sub000/src/config"
	"github.com/MbBrainz/grantflow-dev-sub000/src/data"
	"github.com/MbBrainz/grantflow-dev-sub000/src/multisig"
	"github.com/MbBrainz/grantflow-dev-sub000/src/payout"
	"github.com/MbBrainz/grantflow-dev-sub000/src/review"
)

// Deps are the engines the handlers call into.
type Deps struct {
	Store    *data.Store
	Reviews  *review.Service
	Multisig *multisig.Coordinator
	Payouts  *payout.Service
}

type Server struct {
	engine  *gin.Engine
	limiter *RateLimiter
}

func New(cfg config.Config, deps Deps) *Server {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders:    []string{"Content-Length", requestIDHeader},
		AllowCredentials: true,
	}))

	s := &Server{engine: r, limiter: NewRateLimiter(cfg.RateLimit, cfg.RateWindow)}
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	attachRoutes(r, []byte(cfg.JWTSecret), s.limiter, deps)
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

// Close stops the rate limiter's cleanup loop.
func (s *Server) Close() { s.limiter.Close() }
