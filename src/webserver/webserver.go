package webserver

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ava-verify/ava/src/core/worker"
	"github.com/ava-verify/ava/src/data"
)

// Config holds the ops-surface settings.
type Config struct {
	Addr      string
	JWTSecret []byte
}

// New builds the gin engine serving health, stats, and the JWT-guarded
// admin routes.
func New(cfg Config, db *gorm.DB, svc *worker.Service, recorder *data.Recorder) *gin.Engine {
	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery(), cors.Default())
	attachRoutes(g, cfg, db, svc, recorder)
	return g
}
