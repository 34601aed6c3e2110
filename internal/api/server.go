package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/nmtdecode/internal/logger"
	"github.com/samcharles93/nmtdecode/internal/webui"
)

type Server struct {
	store   *TranslationStore
	service *TranslationService
	started time.Time
}

func NewServer(store *TranslationStore, service *TranslationService) *Server {
	if store == nil {
		store = NewTranslationStore(DefaultStoreSize)
	}
	return &Server{
		store:   store,
		service: service,
		started: timeNow(),
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/translate", s.handleTranslate)
	e.GET("/v1/translations/:id", s.handleGetTranslation)
	e.DELETE("/v1/translations/:id", s.handleDeleteTranslation)
	e.GET("/v1/model", s.handleModel)
	e.GET("/healthz", s.handleHealth)
	e.GET("/", s.handleIndex)
}

func (s *Server) handleTranslate(c *echo.Context) error {
	if s.service == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "translation service not configured")
	}
	req, err := decodeJSON[TranslateRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}

	ctx := c.Request().Context()
	resp, err := s.service.Translate(ctx, &req)
	if err != nil {
		status, errType := classify(err)
		if status >= http.StatusInternalServerError {
			logger.FromContext(ctx).Error("translation failed", "error", err)
		}
		return writeError(c, status, errType, err.Error())
	}
	s.store.Put(*resp)
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetTranslation(c *echo.Context) error {
	resp, ok := s.store.Get(c.Param("id"))
	if !ok {
		return writeNotFound(c, "translation not found")
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleDeleteTranslation(c *echo.Context) error {
	id := c.Param("id")
	if !s.store.Delete(id) {
		return writeNotFound(c, "translation not found")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"id":      id,
		"object":  "translation.deleted",
		"deleted": true,
	})
}

func (s *Server) handleModel(c *echo.Context) error {
	if s.service == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "translation service not configured")
	}
	resp, err := s.service.Model(c.Request().Context())
	if err != nil {
		status, errType := classify(err)
		return writeError(c, status, errType, err.Error())
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: timeNow().Sub(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleIndex(c *echo.Context) error {
	return c.HTMLBlob(http.StatusOK, webui.Index())
}
