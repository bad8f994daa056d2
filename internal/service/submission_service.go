package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fanvue/moderation-api/internal/models"
	appErrors "github.com/fanvue/moderation-api/pkg/errors"
)

const listCachePrefix = "apps:list:"

type submissionRepository interface {
	List(ctx context.Context, filter models.ListFilter) ([]models.Submission, *models.PageInfo, error)
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	UpdateStatus(ctx context.Context, id string, status models.Status, updatedAt time.Time) error
}

type listCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type metricsRecorder interface {
	RecordCacheOperation(hit bool, duration time.Duration)
	ObserveDBQuery(query string, duration time.Duration)
}

// ActionRequest is the PATCH payload carrying a moderation verdict.
type ActionRequest struct {
	Type        string `json:"type" validate:"required"`
	AppID       string `json:"appId"`
	ModeratorID string `json:"moderatorId"`
}

// SubmissionService handles submission listing and moderation use-cases.
type SubmissionService struct {
	repo      submissionRepository
	cache     listCache
	metrics   metricsRecorder
	validator *validator.Validate
	logger    *zap.Logger

	pageSize int
	cacheTTL time.Duration
	now      func() time.Time
}

// NewSubmissionService constructs the submission service.
func NewSubmissionService(repo submissionRepository, cache listCache, metrics metricsRecorder, validate *validator.Validate, logger *zap.Logger, pageSize int, cacheTTL time.Duration) *SubmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	return &SubmissionService{
		repo:      repo,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		pageSize:  pageSize,
		cacheTTL:  cacheTTL,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List returns one page of submissions. Cursor-less first pages are served
// through Redis when possible; cursor pages always hit the store.
func (s *SubmissionService) List(ctx context.Context, filter models.ListFilter) (*models.Page, error) {
	filter = s.normalize(filter)

	var key string
	if s.cache != nil && filter.Cursor == "" {
		key = cacheKey(filter)
		start := time.Now()
		var cached models.Page
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			s.recordCache(true, time.Since(start))
			return &cached, nil
		}
		s.recordCache(false, time.Since(start))
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("list cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	start := time.Now()
	rows, info, err := s.repo.List(ctx, filter)
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("list_submissions", time.Since(start))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "internal server error")
	}
	if rows == nil {
		rows = []models.Submission{}
	}

	page := &models.Page{Data: rows, Pagination: *info}

	if key != "" {
		if err := s.cache.Set(ctx, key, page, s.cacheTTL); err != nil {
			s.logger.Warn("list cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return page, nil
}

// Get returns a single submission by id.
func (s *SubmissionService) Get(ctx context.Context, id string) (*models.Submission, error) {
	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "App not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "internal server error")
	}
	return sub, nil
}

// Apply validates and applies one moderation action to the submission with the
// given id, returning the freshly re-read record. The action kind is matched
// exhaustively before any store access; an unknown kind performs no mutation.
// Repeating an identical action is legal and still refreshes updatedAt.
func (s *SubmissionService) Apply(ctx context.Context, id string, req ActionRequest) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidAction, "Invalid action")
	}
	action, ok := models.ParseAction(req.Type)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidAction, "Invalid action")
	}

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "App not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "internal server error")
	}

	if err := s.repo.UpdateStatus(ctx, id, action.TargetStatus(), s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "App not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "internal server error")
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "internal server error")
	}

	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, listCachePrefix+"*"); err != nil {
			s.logger.Warn("list cache invalidation failed", zap.Error(err))
		}
	}

	s.logger.Info("moderation action applied",
		zap.String("app_id", id),
		zap.String("action", string(action)),
		zap.String("moderator_id", req.ModeratorID),
	)

	return updated, nil
}

// normalize pins the filter to supported sort keys and the fixed page size so
// cache keys stay stable. Unrecognised values fall back to defaults instead of
// erroring.
func (s *SubmissionService) normalize(filter models.ListFilter) models.ListFilter {
	switch filter.SortBy {
	case "name", "submittedAt", "rating":
	default:
		filter.SortBy = "submittedAt"
	}
	switch strings.ToLower(filter.SortOrder) {
	case "asc":
		filter.SortOrder = "asc"
	default:
		filter.SortOrder = "desc"
	}
	filter.PageSize = s.pageSize
	return filter
}

func (s *SubmissionService) recordCache(hit bool, duration time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(hit, duration)
	}
}

// cacheKey derives a stable Redis key from the normalised filter.
func cacheKey(filter models.ListFilter) string {
	statuses := make([]string, len(filter.Statuses))
	for i, st := range filter.Statuses {
		statuses[i] = string(st)
	}
	sort.Strings(statuses)
	categories := make([]string, len(filter.Categories))
	for i, cat := range filter.Categories {
		categories[i] = string(cat)
	}
	sort.Strings(categories)

	return listCachePrefix + fmt.Sprintf("search=%s|status=%s|category=%s|sort=%s:%s",
		strings.ToLower(filter.Search),
		strings.Join(statuses, ","),
		strings.Join(categories, ","),
		filter.SortBy,
		filter.SortOrder,
	)
}
