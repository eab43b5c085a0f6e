package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type RouterConfig struct {
	CronSecret     string
	AdminAPISecret string
	ReleaseMode    bool
}

// Setup builds the gin engine with every route.
func Setup(cfg RouterConfig, h *Handler, logger *logrus.Entry) *gin.Engine {
	if cfg.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger.WithField("component", "http")))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		cron := api.Group("/cron", BearerSecret(cfg.CronSecret))
		{
			cron.POST("/notify", h.Notify)
			cron.GET("/notify", h.Notify)
		}

		// Trainee-facing enrollment.
		api.POST("/courses/:id/registrations", h.Register)

		admin := api.Group("", AdminSecret(cfg.AdminAPISecret))
		{
			admin.POST("/courses/finish", h.FinishCourse)
			admin.POST("/notifications/checkpoint", h.SendCheckpoint)
			admin.POST("/courses/:id/registration-key", h.RegenerateKey)
			admin.GET("/courses/:id/completion", h.Completion)
			admin.GET("/courses/:id/completion/export", h.ExportCompletion)
		}
	}
	return r
}
