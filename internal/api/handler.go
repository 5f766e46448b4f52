// Package api exposes a small read-only HTTP surface over the ledger and
// the live market rankings.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"momentum-core/internal/ranking"
	"momentum-core/pkg/db"
	"momentum-core/pkg/exchanges/common"
)

// Server wires the HTTP endpoints.
type Server struct {
	Router  *gin.Engine
	DB      *db.Database
	Rankers map[common.Exchange]ranking.Provider
}

func NewServer(database *db.Database, rankers map[common.Exchange]ranking.Provider) *Server {
	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger())
	r.Use(RateLimitMiddleware())

	s := &Server{
		Router:  r,
		DB:      database,
		Rankers: rankers,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)

	api := s.Router.Group("/api")
	{
		api.GET("/markets/top", s.getTopMarkets)
		api.GET("/results", s.getTradeResults)
		api.GET("/runs", s.getJobRuns)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
