package splitter

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// Service answers split requests over HTTP using the Lexical splitter.
type Service struct {
	validate *validator.Validate
	log      zerolog.Logger
}

// NewService creates a Service.
func NewService(log zerolog.Logger) *Service {
	return &Service{
		validate: validator.New(),
		log:      log,
	}
}

// NewServer builds an echo instance serving s.
func NewServer(s *Service) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogError:     true,
		LogLatency:   true,
		LogMethod:    true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := s.log.Info()
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				ev = s.log.Error().Err(v.Error)
			}
			ev.Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))

	e.POST("/split", s.Split)
	e.GET("/healthz", s.Health)
	return e
}

// Split handles POST /split.
func (s *Service) Split(c echo.Context) error {
	var req SplitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := s.validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	spans := Spans(req.SQL)
	if spans == nil {
		spans = []Span{}
	}
	return c.JSON(http.StatusOK, SplitResponse{Statements: spans})
}

// Health handles GET /healthz.
func (s *Service) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
