package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/laundrypro/server/internal/handlers"
	"github.com/laundrypro/server/internal/middleware"
	"github.com/laundrypro/server/internal/queue"
	"github.com/laundrypro/server/internal/services"
	"github.com/laundrypro/server/internal/whatsapp"
)

// Handlers bundles the constructed HTTP handlers so callers can reach the
// underlying services for queue and scheduler wiring.
type Handlers struct {
	Notifications *handlers.NotificationHandler
	Templates     *handlers.TemplateHandler
	Preferences   *handlers.PreferenceHandler
	Webhooks      *handlers.WebhookHandler
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
// rateStore may be nil, in which case limiting falls back to process memory.
func NewRouter(db *gorm.DB, channel *whatsapp.Client, sender services.MessageSender, tasks queue.Queue, rateStore middleware.RateStore) (*gin.Engine, *Handlers, error) {
	if db == nil {
		return nil, nil, fmt.Errorf("database handle must be provided")
	}
	if channel == nil {
		return nil, nil, fmt.Errorf("channel client must be provided")
	}
	if sender == nil {
		sender = channel
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	// Basic rate limiting: 100 requests/minute per IP+path
	r.Use(middleware.RateLimit(rateStore, 100, time.Minute))

	r.GET("/health", handlers.Health())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	notificationHandler, err := handlers.NewNotificationHandler(db, sender, tasks)
	if err != nil {
		return nil, nil, err
	}
	templateHandler, err := handlers.NewTemplateHandler(db)
	if err != nil {
		return nil, nil, err
	}
	preferenceHandler, err := handlers.NewPreferenceHandler(db)
	if err != nil {
		return nil, nil, err
	}
	webhookHandler, err := handlers.NewWebhookHandler(db, channel)
	if err != nil {
		return nil, nil, err
	}

	api := r.Group("/api")
	registerNotificationRoutes(api, notificationHandler)
	registerTemplateRoutes(api, templateHandler)
	registerPreferenceRoutes(api, preferenceHandler)
	registerWebhookRoutes(api, webhookHandler)

	r.NoRoute(middleware.NotFoundHandler)

	return r, &Handlers{
		Notifications: notificationHandler,
		Templates:     templateHandler,
		Preferences:   preferenceHandler,
		Webhooks:      webhookHandler,
	}, nil
}
