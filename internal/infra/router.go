package infra

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
	_ "github.com/umalmyha/customer-registry/docs" // swagger document registration
	"github.com/umalmyha/customer-registry/internal/handlers"
	"github.com/umalmyha/customer-registry/internal/validation"
)

func Router(
	customerHandler *handlers.CustomerHTTPHandler,
	formatHandler *handlers.FormatHTTPHandler,
	gatherer prometheus.Gatherer,
) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(log.INFO)
	e.HTTPErrorHandler = handlers.HTTPErrorHandler

	echoValidator, err := validation.English()
	if err != nil {
		return nil, err
	}
	e.Validator = echoValidator

	// API routes
	api := e.Group("/api")

	// customers
	customersAPI := api.Group("/customers")
	customersAPI.GET("", customerHandler.GetAll)
	customersAPI.GET("/stream", customerHandler.Stream)
	customersAPI.GET("/:id", customerHandler.Get)
	customersAPI.POST("", customerHandler.Post)
	customersAPI.PUT("/:id", customerHandler.Put)
	customersAPI.DELETE("/:id", customerHandler.DeleteByID)

	// per-keystroke formatting
	formatAPI := api.Group("/format")
	formatAPI.GET("/national-id", formatHandler.NationalID)
	formatAPI.GET("/birth-date", formatHandler.BirthDate)

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e, nil
}
