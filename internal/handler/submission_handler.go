package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fanvue/moderation-api/internal/models"
	"github.com/fanvue/moderation-api/internal/service"
	appErrors "github.com/fanvue/moderation-api/pkg/errors"
	"github.com/fanvue/moderation-api/pkg/response"
)

type submissionReviewer interface {
	List(ctx context.Context, filter models.ListFilter) (*models.Page, error)
	Get(ctx context.Context, id string) (*models.Submission, error)
	Apply(ctx context.Context, id string, req service.ActionRequest) (*models.Submission, error)
}

// SubmissionHandler exposes the app submission endpoints.
type SubmissionHandler struct {
	submissions          submissionReviewer
	cacheMaxAge          time.Duration
	staleWhileRevalidate time.Duration
}

// NewSubmissionHandler constructs SubmissionHandler.
func NewSubmissionHandler(submissions submissionReviewer, cacheMaxAge, staleWhileRevalidate time.Duration) *SubmissionHandler {
	return &SubmissionHandler{
		submissions:          submissions,
		cacheMaxAge:          cacheMaxAge,
		staleWhileRevalidate: staleWhileRevalidate,
	}
}

// List godoc
// @Summary List app submissions
// @Tags Apps
// @Produce json
// @Param cursor query string false "Opaque pagination cursor"
// @Param search query string false "Substring match on name or description"
// @Param status query []string false "Status filter (repeatable)"
// @Param category query []string false "Category filter (repeatable)"
// @Param sortBy query string false "One of name, submittedAt, rating"
// @Param sortOrder query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /apps [get]
func (h *SubmissionHandler) List(c *gin.Context) {
	filter := models.ListFilter{
		Search:    strings.TrimSpace(c.Query("search")),
		Cursor:    c.Query("cursor"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
	for _, raw := range c.QueryArray("status") {
		if status, ok := models.ParseStatus(raw); ok {
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	for _, raw := range c.QueryArray("category") {
		if category, ok := models.ParseCategory(raw); ok {
			filter.Categories = append(filter.Categories, category)
		}
	}

	page, err := h.submissions.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d, stale-while-revalidate=%d",
		int(h.cacheMaxAge.Seconds()), int(h.staleWhileRevalidate.Seconds())))
	response.OK(c, page)
}

// Get godoc
// @Summary Get one app submission
// @Tags Apps
// @Produce json
// @Param id path string true "App ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /apps/{id} [get]
func (h *SubmissionHandler) Get(c *gin.Context) {
	sub, err := h.submissions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sub)
}

// Action godoc
// @Summary Apply a moderation action
// @Tags Apps
// @Accept json
// @Produce json
// @Param id path string true "App ID"
// @Param payload body service.ActionRequest true "Action payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /apps/{id} [patch]
func (h *SubmissionHandler) Action(c *gin.Context) {
	var req service.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidAction, "Invalid action"))
		return
	}

	sub, err := h.submissions.Apply(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub)
}
