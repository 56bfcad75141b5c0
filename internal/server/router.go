package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sajinavi2006/julomvp-sub022/internal/config"
	"github.com/sajinavi2006/julomvp-sub022/internal/http/handlers"
)

type Dependencies struct {
	Pinger      handlers.Pinger
	LoanHandler *handlers.LoanHandler
}

func NewRouter(cfg config.Config, logger *slog.Logger, deps Dependencies) *gin.Engine {
	if cfg.Env == "prod" || cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		logger.Info("request", "method", c.Request.Method, "path", c.Request.URL.Path)
		c.Next()
	})

	health := handlers.NewHealthHandler(deps.Pinger)

	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)

	if deps.LoanHandler != nil {
		v1 := r.Group("/v1")
		v1.POST("/loans", deps.LoanHandler.CreateLoan)
		v1.POST("/loans/simulate", deps.LoanHandler.SimulateLoan)
		v1.GET("/loans/duration-options", deps.LoanHandler.GetDurationOptions)
		v1.GET("/loans", deps.LoanHandler.ListLoans)
		v1.GET("/loans/:loanId", deps.LoanHandler.GetLoan)
		v1.POST("/loans/:loanId/status", deps.LoanHandler.UpdateStatus)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	})

	return r
}
