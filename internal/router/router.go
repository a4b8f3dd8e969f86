package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/market-sales/internal/handler"
	"github.com/iliyamo/market-sales/internal/middleware"
	"github.com/iliyamo/market-sales/internal/model"
)

// RegisterRoutes registers the routes that do not require authentication:
// the health check, the Prometheus scrape endpoint and the lifecycle state
// metadata.  cache wraps the metadata route; pass nil to serve it uncached.
func RegisterRoutes(e *echo.Echo, cache echo.MiddlewareFunc) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	var mw []echo.MiddlewareFunc
	if cache != nil {
		mw = append(mw, cache)
	}
	e.GET("/v1/states", handler.States, mw...)
}

// RegisterAuth registers the token endpoints under /v1/auth.  None of them
// needs an access token; logout accepts either a refresh token in the body
// or a Bearer access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)             // rotates the refresh token
	g.POST("/refresh-access", a.RefreshAccess) // keeps the refresh token
	g.POST("/logout", a.Logout)
}

// Protected creates the /v1 group every vendor endpoint lives in.  Requests
// pass JWTAuth, the role check, the session loader and then the rate
// limiter, in that order, so buckets are keyed by the authenticated user.
func Protected(e *echo.Echo, jwtSecret string, settings middleware.SettingsReader, limiter echo.MiddlewareFunc) *echo.Group {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleUser, model.RoleAdmin))
	g.Use(middleware.Session(settings, nil))
	if limiter != nil {
		g.Use(limiter)
	}
	return g
}

// RegisterMercadillos mounts the event lifecycle, the calendar, saved
// balances and the state recomputation endpoints.
func RegisterMercadillos(g *echo.Group, h *handler.MercadilloHandler) {
	g.GET("/mercadillos", h.List)
	g.POST("/mercadillos", h.Create)
	g.GET("/mercadillos/:id", h.Get)
	g.PUT("/mercadillos/:id", h.Update)
	g.DELETE("/mercadillos/:id", h.Delete)
	g.POST("/mercadillos/:id/initial-balance", h.AssignInitialBalance)
	g.POST("/mercadillos/:id/cancel", h.Cancel)
	g.POST("/mercadillos/:id/cash-count", h.CashCount)
	g.POST("/mercadillos/:id/close", h.Close)
	g.POST("/mercadillos/:id/transfer", h.Transfer)
	g.GET("/mercadillos/:id/summary", h.Summary)
	g.GET("/calendar", h.Calendar)

	g.POST("/mercadillos/:id/saved-balance", h.SaveBalance)
	g.GET("/saved-balance", h.ActiveBalance)
	g.POST("/saved-balance/:id/consume", h.ConsumeBalance)

	g.POST("/states/recompute", h.RecomputeStates)
	g.POST("/admin/recompute", h.RecomputeAll, middleware.RequireRole(model.RoleAdmin))
}

// RegisterSales mounts tickets and expenses.
func RegisterSales(g *echo.Group, h *handler.SalesHandler) {
	g.GET("/mercadillos/:id/tickets", h.ListTickets)
	g.POST("/mercadillos/:id/tickets", h.CreateTicket)
	g.DELETE("/tickets/:id", h.DeleteTicket)

	g.GET("/mercadillos/:id/expenses", h.ListExpenses)
	g.POST("/mercadillos/:id/expenses", h.AddExpense)
	g.DELETE("/expenses/:id", h.DeleteExpense)
}

func RegisterCatalog(g *echo.Group, h *handler.CatalogHandler) {
	g.GET("/categories", h.ListCategories)
	g.POST("/categories", h.CreateCategory)
	g.PUT("/categories/:id", h.UpdateCategory)
	g.DELETE("/categories/:id", h.DeleteCategory)

	g.GET("/articles", h.ListArticles)
	g.POST("/articles", h.CreateArticle)
	g.PUT("/articles/:id", h.UpdateArticle)
	g.DELETE("/articles/:id", h.DeleteArticle)
}

// RegisterAccount mounts settings, premium activation and the on-demand
// sync.
func RegisterAccount(g *echo.Group, s *handler.SettingsHandler, sync *handler.SyncHandler) {
	g.GET("/settings", s.Get)
	g.PUT("/settings", s.Update)
	g.POST("/premium", s.ActivatePremium)
	g.POST("/sync", sync.Run)
}
