package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ylorant/HedgeBot-sub001/internal/app"
	"github.com/ylorant/HedgeBot-sub001/internal/domain"
	apperrors "github.com/ylorant/HedgeBot-sub001/internal/platform/errors"
	"github.com/ylorant/HedgeBot-sub001/internal/store"
)

func (s *Server) registerAPIRoutes() {
	api := s.echo.Group("/api", newRateLimiter(s.config.APIRateLimit, s.config.APIRateBurst))

	api.GET("/data", s.handleGetData)
	api.GET("/data/:namespace", s.handleGetData)
	api.GET("/catalog", s.handleCatalog)
	api.POST("/format/:name", s.handleFormat)
	api.GET("/relay", s.handleRelayStatus)

	if s.config.APIToken != "" {
		api.POST("/events", s.handlePublishEvent, s.setupTokenMiddleware())
	}
}

func (s *Server) handleGetData(c echo.Context) error {
	q := store.Query{
		Context:   c.QueryParam("context"),
		Namespace: c.QueryParam("namespace"),
	}

	if ns := c.Param("namespace"); ns != "" {
		if !slices.Contains(s.catalog.Namespaces(), ns) {
			return apperrors.NotFoundError("namespace not found").WithField("namespace", ns)
		}
		q.Namespace = ns
	}

	if raw := c.QueryParam("simulate"); raw != "" {
		simulate, err := strconv.ParseBool(raw)
		if err != nil {
			return apperrors.ValidationError("simulate must be a boolean").WithField("simulate", raw)
		}
		q.Simulate = simulate
	}

	if raw := c.QueryParam("simulate_context"); raw != "" {
		var simulateContext any
		if err := json.Unmarshal([]byte(raw), &simulateContext); err != nil {
			return apperrors.ValidationError("simulate_context must be JSON")
		}
		q.SimulateContext = simulateContext
	}

	data := s.data.GetData(c.Request().Context(), q)
	if err := c.JSON(http.StatusOK, data); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleCatalog(c echo.Context) error {
	response := map[string][]string{
		"namespaces": s.catalog.Namespaces(),
		"formatters": s.catalog.FormatterNames(),
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

type formatRequest struct {
	Template string `json:"template"`
	Context  string `json:"context"`
}

func (s *Server) handleFormat(c echo.Context) error {
	name := c.Param("name")
	formatter, ok := s.catalog.Formatter(name)
	if !ok {
		return apperrors.NotFoundError(domain.ErrFormatterNotFound.Error()).WithField("formatter", name)
	}

	var req formatRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	result := formatter.Format(c.Request().Context(), req.Template, req.Context)
	if err := c.JSON(http.StatusOK, map[string]string{"result": result}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

type relayStatusResponse struct {
	Types   []string          `json:"types"`
	Clients []app.RelayStatus `json:"clients"`
}

func (s *Server) handleRelayStatus(c echo.Context) error {
	response := relayStatusResponse{
		Types:   s.relayTypes,
		Clients: s.relay.Statuses(),
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

type publishEventRequest struct {
	Listener string         `json:"listener"`
	Type     string         `json:"type"`
	Name     string         `json:"name"`
	Payload  map[string]any `json:"payload"`
}

func (s *Server) handlePublishEvent(c echo.Context) error {
	var req publishEventRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	required := []struct{ field, value string }{
		{"listener", req.Listener},
		{"type", req.Type},
		{"name", req.Name},
	}
	for _, r := range required {
		if r.value == "" {
			return apperrors.ValidationError("missing required field").WithField("field", r.field)
		}
	}

	event := domain.NewEvent(req.Type, req.Name, req.Payload)
	err := s.relay.Publish(c.Request().Context(), req.Listener, event)
	if errors.Is(err, domain.ErrNoRelayAvailable) {
		return apperrors.UnavailableError(err.Error()).WithField("listener", req.Listener)
	}
	if err != nil {
		return apperrors.ExternalError("relay publish failed", err).
			WithField("listener", req.Listener).
			WithField("event", req.Name)
	}

	if err := c.JSON(http.StatusAccepted, map[string]string{"status": "accepted"}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
