package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/foxfirecodes/datadog-viewer/internal/catalog"
	"github.com/foxfirecodes/datadog-viewer/internal/state"
	trk "github.com/foxfirecodes/datadog-viewer/internal/tracker"
)

// Router provides embeddable HTTP handlers for the error tracker.
// Endpoints:
//
//	GET  {basePath}/errors            query: page=N&page_size=M
//	GET  {basePath}/errors/:id        full record + addressed flag
//	POST {basePath}/errors/:id/toggle flip the addressed flag
//	GET  {basePath}/stats             aggregate counts
//	POST {basePath}/reload            rebuild the catalog from the CSV
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	tracker  *trk.Tracker
	basePath string
}

// NewRouter constructs a new Router with configurable basePath.
// Example basePath: "/api" results in /api/errors, /api/stats.
func NewRouter(t *trk.Tracker, basePath string) *Router {
	return &Router{tracker: t, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted
// in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/errors", r.handleList)
	group.GET("/errors/:id", r.handleGet)
	group.POST("/errors/:id/toggle", r.handleToggle)
	group.GET("/stats", r.handleStats)
	group.POST("/reload", r.handleReload)
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr, basePath string, t *trk.Tracker) (*http.Server, error) {
	r := NewRouter(t, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type toggleResp struct {
	ID        string `json:"id"`
	Addressed bool   `json:"addressed"`
	// Persisted is false when the flip happened in memory but the
	// durable write failed; the change may not survive a restart.
	Persisted bool `json:"persisted"`
}

type reloadResp struct {
	Records int            `json:"records"`
	Skipped []catalog.Skip `json:"skipped"`
}

func (r *Router) handleList(c *gin.Context) {
	page, err := intQuery(c, "page", 1)
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid page: " + err.Error()})
		return
	}
	size, err := intQuery(c, "page_size", 0)
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid page_size: " + err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, r.tracker.Page(page, size))
}

func (r *Router) handleGet(c *gin.Context) {
	entry, err := r.tracker.Record(c.Param("id"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeJSON(c, http.StatusNotFound, errorResp{Error: err.Error()})
			return
		}
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, entry)
}

func (r *Router) handleToggle(c *gin.Context) {
	id := c.Param("id")
	v, err := r.tracker.Toggle(id)
	if err != nil {
		var pe *state.PersistError
		if errors.As(err, &pe) {
			// The flip took effect in memory; report it, distinctly.
			writeJSON(c, http.StatusInternalServerError, toggleResp{ID: id, Addressed: v, Persisted: false})
			return
		}
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, toggleResp{ID: id, Addressed: v, Persisted: true})
}

func (r *Router) handleStats(c *gin.Context) {
	writeJSON(c, http.StatusOK, r.tracker.Stats())
}

func (r *Router) handleReload(c *gin.Context) {
	if err := r.tracker.Reload(); err != nil {
		// The catalog is empty but the process keeps serving.
		writeJSON(c, http.StatusServiceUnavailable, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, reloadResp{Records: r.tracker.Len(), Skipped: r.tracker.Skips()})
}

func intQuery(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
