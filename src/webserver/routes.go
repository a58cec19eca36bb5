package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ava-verify/ava/src/core/worker"
	"github.com/ava-verify/ava/src/data"
)

func attachRoutes(g *gin.Engine, cfg Config, db *gorm.DB, svc *worker.Service, recorder *data.Recorder) {
	g.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := g.Group("/api/v1")

	v1.GET("/stats", func(c *gin.Context) {
		queue := svc.Gate().Queue()

		stats := gin.H{
			"queue_depth":    queue.Len(),
			"queue_capacity": queue.Cap(),
			"workers":        svc.Workers(),
			"breaker_open":   svc.Gate().Breaker().Open(),
		}

		if recorder != nil {
			if counts, err := recorder.VerdictCounts(); err == nil {
				stats["verdicts"] = counts
			}
		}
		c.JSON(http.StatusOK, stats)
	})

	admin := v1.Group("/admin", JWT(cfg.JWTSecret))

	admin.POST("/settings/refresh", func(c *gin.Context) {
		if err := data.RefreshSettings(db); err != nil {
			zap.S().Errorw("settings refresh failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"err": "refresh failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "refreshed"})
	})

	admin.POST("/breaker/reset", func(c *gin.Context) {
		svc.Gate().Breaker().Reset()
		zap.S().Infow("admission breaker reset via admin API")
		c.JSON(http.StatusOK, gin.H{"status": "reset"})
	})
}
