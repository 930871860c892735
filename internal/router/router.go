// Package router wires HTTP routes to handlers and applies the JWT and role
// middleware.  Public browsing endpoints need no token; booking endpoints
// require any authenticated role; registry mutation and fleet-wide listings
// are admin only.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/ayvaro/resource-reservation/internal/handler"
	"github.com/ayvaro/resource-reservation/internal/middleware"
	"github.com/ayvaro/resource-reservation/internal/model"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes.  Unauthenticated
// operations live under /v1/auth; the protected /v1/me endpoint carries the
// JWT middleware.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Refresh rotates the refresh token; refresh-access only mints a new
	// access token.
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout accepts a refresh token in the body or a bearer token, so it
	// deliberately skips the JWT middleware.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleAdmin, model.RoleMember))
	auth.GET("/me", a.Me)
}

// RegisterResources registers resource browsing for any visitor and the
// registry's administrative mutations for admins.
func RegisterResources(e *echo.Echo, rh *handler.ResourceHandler, resv *handler.ReservationHandler, jwtSecret string) {
	// Public: anyone can browse resources and check availability.
	e.GET("/v1/resources", rh.List)
	e.GET("/v1/resources/search", rh.Search)
	e.GET("/v1/resources/:id", rh.Get)
	e.GET("/v1/resources/:id/availability", rh.Availability)
	e.GET("/v1/resources/:id/availability/check", rh.CheckAvailability)

	// Admin: registry mutations and per-resource reservation listings.
	admin := e.Group("/v1/resources")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	admin.POST("", rh.Create)
	admin.PUT("/:id", rh.Update)
	admin.DELETE("/:id", rh.Delete)
	admin.GET("/:id/reservations", resv.ListForResource)
}

// RegisterReservations registers the booking endpoints.  Creating, viewing
// and cancelling reservations requires any authenticated role; the
// fleet-wide listing and the status transitions are admin only.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string) {
	g := e.Group("/v1/reservations")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleAdmin, model.RoleMember))
	g.POST("", h.Create)
	g.GET("", h.ListMine)
	g.GET("/:id", h.Get)
	g.POST("/:id/cancel", h.Cancel)

	admin := e.Group("/v1/admin/reservations")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	admin.GET("", h.ListAll)
	admin.POST("/:id/complete", h.Complete)
	admin.POST("/:id/no-show", h.NoShow)
}
