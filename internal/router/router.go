package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"inbox-pilot/internal/handler"
	"inbox-pilot/internal/middleware"
)

func SetupRoutes(
	e *echo.Echo,
	authHandler *handler.AuthHandler,
	queueHandler *handler.QueueHandler,
	configHandler *handler.ConfigHandler,
	schedulerHandler *handler.SchedulerHandler,
	activityHandler *handler.ActivityHandler,
	contactHandler *handler.ContactHandler,
) {
	// Public routes
	e.GET("/auth/:provider", authHandler.BeginAuthHandler)
	e.GET("/auth/:provider/callback", authHandler.CallbackHandler)
	e.GET("/auth/logout", authHandler.LogoutHandler)

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	// Protected API routes
	protected := e.Group("/api")
	protected.Use(middleware.AuthMiddleware(authHandler))

	protected.GET("/me", authHandler.MeHandler)

	// Review queue
	protected.GET("/queue", queueHandler.ListItems)
	protected.GET("/queue/:id", queueHandler.GetItem)
	protected.PUT("/queue/:id/draft", queueHandler.UpdateDraft)
	protected.POST("/queue/:id/action", queueHandler.ApplyAction)

	// Settings
	protected.GET("/config", configHandler.GetConfig)
	protected.PATCH("/config", configHandler.UpdateConfig)

	// Scheduler control
	protected.GET("/scheduler/status", schedulerHandler.Status)
	protected.POST("/scheduler/run", schedulerHandler.RunNow)

	// Activity and contacts
	protected.GET("/activity", activityHandler.RecentEvents)
	protected.GET("/activity/stream", activityHandler.StreamEvents)
	protected.GET("/contacts", contactHandler.ListContacts)
	protected.POST("/contacts", contactHandler.AddContact)
	protected.DELETE("/contacts/:email", contactHandler.RemoveContact)
}
