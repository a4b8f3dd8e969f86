package handler // declare the package name; contains HTTP handlers

import (
	"net/http" // net/http provides status codes and response helpers

	"github.com/labstack/echo/v4" // echo is the web framework used for this project

	"github.com/iliyamo/market-sales/internal/lifecycle"
)

// Health is a simple health-check endpoint used by load balancers and
// monitoring systems to verify that the service is running.  It returns
// a plain text "ok" message with an HTTP 200 status code.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// States lists the lifecycle states with their display metadata, in
// priority order.  Clients use it to render badges and the calendar legend.
func States(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"states": lifecycle.All()})
}
