package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/groupbuy_api/internal/utils"
)

var startTime = time.Now()

// HealthHandler provides health endpoint.
type HealthHandler struct {
	driver string
	redis  bool
	kafka  bool
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(driver string, redisEnabled, kafkaEnabled bool) *HealthHandler {
	return &HealthHandler{driver: driver, redis: redisEnabled, kafka: kafkaEnabled}
}

// GetHealth responds with service status and the active backends.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	utils.Success(c, 200, "Service is healthy", gin.H{
		"status":    "healthy",
		"version":   "1.0.0",
		"uptime":    int(time.Since(startTime).Seconds()),
		"datastore": h.driver,
		"redis":     h.redis,
		"kafka":     h.kafka,
	})
}
