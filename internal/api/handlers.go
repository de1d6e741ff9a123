// Package api exposes the dashboard HTTP API: normalized item queries,
// completion status, and operator-triggered pipeline runs.
package api

import (
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/campusdash/campusdash/internal/domain"
	"github.com/campusdash/campusdash/internal/etl"
	"github.com/campusdash/campusdash/internal/logger"
	"github.com/campusdash/campusdash/internal/storage"
)

// Handler handles HTTP requests for the dashboard API.
type Handler struct {
	store    *storage.ItemStore
	status   *storage.StatusStore
	pipeline *etl.Pipeline
	log      logger.Logger

	// runMu serializes pipeline runs; the store is rewritten whole, so
	// overlapping runs would race on the file.
	runMu sync.Mutex
}

// NewHandler creates a new API handler.
func NewHandler(store *storage.ItemStore, status *storage.StatusStore, pipeline *etl.Pipeline, log logger.Logger) *Handler {
	return &Handler{
		store:    store,
		status:   status,
		pipeline: pipeline,
		log:      log,
	}
}

// ItemView is a normalized item plus its completion status.
type ItemView struct {
	domain.NormalizedItem
	Done bool `json:"done"`
}

// CourseView summarizes one course for list views.
type CourseView struct {
	CourseID   string `json:"course_id"`
	CourseName string `json:"course_name"`
	ItemCount  int    `json:"item_count"`
}

// ListItems handles GET /api/v1/items with optional course_id, category and
// action_required filters.
func (h *Handler) ListItems(c *gin.Context) {
	items, err := h.loadItems(c)
	if err != nil {
		return
	}

	courseID := c.Query("course_id")
	category := c.Query("category")
	if category != "" && !domain.ValidCategory(category) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category: " + category})
		return
	}

	var actionRequired *bool
	if raw := c.Query("action_required"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "action_required must be a boolean"})
			return
		}
		actionRequired = &v
	}

	done, err := h.doneMap(c)
	if err != nil {
		return
	}

	views := make([]ItemView, 0, len(items))
	for _, item := range items {
		if courseID != "" && item.CourseID != courseID {
			continue
		}
		if category != "" && item.Category != category {
			continue
		}
		if actionRequired != nil && item.IsActionRequired != *actionRequired {
			continue
		}
		views = append(views, ItemView{NormalizedItem: item, Done: done[item.OriginalID]})
	}

	c.JSON(http.StatusOK, gin.H{"items": views, "total": len(views)})
}

// ListCourses handles GET /api/v1/courses.
func (h *Handler) ListCourses(c *gin.Context) {
	items, err := h.loadItems(c)
	if err != nil {
		return
	}

	counts := make(map[string]*CourseView)
	for _, item := range items {
		cv, ok := counts[item.CourseID]
		if !ok {
			cv = &CourseView{CourseID: item.CourseID, CourseName: item.CourseName}
			counts[item.CourseID] = cv
		}
		cv.ItemCount++
	}

	courses := make([]CourseView, 0, len(counts))
	for _, cv := range counts {
		courses = append(courses, *cv)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].CourseID < courses[j].CourseID })

	c.JSON(http.StatusOK, gin.H{"courses": courses, "total": len(courses)})
}

// RunPipeline handles POST /api/v1/etl/run. Runs are serialized; a second
// request while one is in flight gets 409.
func (h *Handler) RunPipeline(c *gin.Context) {
	if !h.runMu.TryLock() {
		c.JSON(http.StatusConflict, gin.H{"error": "a pipeline run is already in progress"})
		return
	}
	defer h.runMu.Unlock()

	h.log.Info("pipeline run requested")
	stats, err := h.pipeline.Run(c.Request.Context())
	if err != nil {
		h.log.Error("pipeline run failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// StatusRequest is the body of PUT /api/v1/items/:id/status.
type StatusRequest struct {
	Done *bool `json:"done" binding:"required"`
}

// GetItemStatus handles GET /api/v1/items/:id/status.
func (h *Handler) GetItemStatus(c *gin.Context) {
	id := c.Param("id")
	done, err := h.status.IsDone(id)
	if err != nil {
		h.log.Error("status lookup failed", logger.String("original_id", id), logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"original_id": id, "done": done})
}

// SetItemStatus handles PUT /api/v1/items/:id/status.
func (h *Handler) SetItemStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	if err := h.status.SetDone(id, *req.Done); err != nil {
		h.log.Error("status update failed", logger.String("original_id", id), logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"original_id": id, "done": *req.Done})
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// loadItems reads the structured database, answering 500 on failure. A
// missing database reads as empty; the dashboard is usable before the first
// pipeline run.
func (h *Handler) loadItems(c *gin.Context) ([]domain.NormalizedItem, error) {
	items, err := h.store.Load()
	if err != nil {
		if storage.IsNotExist(err) {
			return nil, nil
		}
		h.log.Error("structured database read failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, err
	}
	return items, nil
}

func (h *Handler) doneMap(c *gin.Context) (map[string]bool, error) {
	done, err := h.status.DoneMap()
	if err != nil {
		h.log.Error("status read failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, err
	}
	return done, nil
}
