package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/gyeh/pccc/internal/classify"
	"github.com/gyeh/pccc/internal/codes"
	"github.com/gyeh/pccc/internal/model"
	"github.com/gyeh/pccc/internal/normalize"
)

// DefaultMaxRecords caps the records accepted in one classify request.
const DefaultMaxRecords = 100_000

// ClassifyRequest is the body of POST /v1/classify.
type ClassifyRequest struct {
	Version   int            `json:"version"`
	Normalize bool           `json:"normalize,omitempty"`
	Records   []model.Record `json:"records"`
}

// ClassifyResponse is the 0/1 matrix for a request, one row per record.
type ClassifyResponse struct {
	Columns []string `json:"columns"`
	Rows    [][]int  `json:"rows"`
}

// CodesResponse lists the reference tables of one ICD version.
type CodesResponse struct {
	Version int               `json:"version"`
	Tables  []codes.TableInfo `json:"tables"`
}

// Handler serves classification over HTTP with one shared engine per ICD version.
type Handler struct {
	engines    map[int]*classify.Engine
	log        zerolog.Logger
	maxRecords int
}

// NewHandler builds an engine for every supported version.
func NewHandler(log zerolog.Logger, opts classify.Options, maxRecords int) (*Handler, error) {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	h := &Handler{engines: make(map[int]*classify.Engine), log: log, maxRecords: maxRecords}
	for _, v := range codes.SupportedVersions() {
		e, err := classify.New(v, log, opts)
		if err != nil {
			return nil, fmt.Errorf("build icd%d engine: %w", v, err)
		}
		h.engines[v] = e
	}
	return h, nil
}

// New returns an Echo instance with logging, recovery and the pccc routes.
func New(log zerolog.Logger, h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(log))
	h.RegisterRoutes(e)
	return e
}

// RegisterRoutes mounts the health check and the /v1 API.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.handleHealth)
	g := e.Group("/v1")
	g.POST("/classify", h.handleClassify)
	g.GET("/codes/:version", h.handleCodes)
}

func (h *Handler) engine(version int) (*classify.Engine, error) {
	e, ok := h.engines[version]
	if !ok {
		return nil, &codes.ConfigError{Version: version}
	}
	return e, nil
}

func (h *Handler) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":   "ok",
		"versions": codes.SupportedVersions(),
	})
}

func (h *Handler) handleClassify(c echo.Context) error {
	var req ClassifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	eng, err := h.engine(req.Version)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if len(req.Records) > h.maxRecords {
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{
			"error": fmt.Sprintf("too many records: %d exceeds limit of %d", len(req.Records), h.maxRecords),
		})
	}
	if req.Normalize {
		for i := range req.Records {
			req.Records[i] = normalize.Record(req.Records[i])
		}
	}

	results, err := eng.Batch(c.Request().Context(), req.Records)
	if err != nil {
		var ce *classify.CancelledError
		if errors.As(err, &ce) {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	resp := ClassifyResponse{Columns: model.ResultColumns(), Rows: make([][]int, len(results))}
	for i, r := range results {
		resp.Rows[i] = r.Values()
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) handleCodes(c echo.Context) error {
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "version must be an integer"})
	}
	eng, err := h.engine(version)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	tables := eng.Tables().Tables()
	if names := c.QueryParams()["category"]; len(names) > 0 {
		cats := make([]model.Category, 0, len(names))
		for _, n := range names {
			cat, ok := model.CategoryByName(n)
			if !ok {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("unknown category %q", n)})
			}
			cats = append(cats, cat)
		}
		tables = eng.Tables().TablesFor(cats...)
	}
	return c.JSON(http.StatusOK, CodesResponse{Version: version, Tables: tables})
}
