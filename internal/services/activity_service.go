package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/gatewarden/gatewarden/internal/models"
)

// ActivityEntry captures a single activity event to persist.
type ActivityEntry struct {
	AccountID   *uint
	Event       string
	CauserID    *uint
	SubjectType string
	SubjectID   *uint
	Properties  map[string]any
}

// ActivityFilters encapsulates optional filters when querying the activity log.
type ActivityFilters struct {
	AccountID   *uint
	Event       string
	CauserID    *uint
	SubjectType string
	Since       *time.Time
	Until       *time.Time
}

// ActivityListOptions controls pagination and filtering for activity queries.
type ActivityListOptions struct {
	Page     int
	PageSize int
	Filters  ActivityFilters
}

// ActivityService persists and retrieves activity log entries.
type ActivityService struct {
	db *gorm.DB
}

// NewActivityService constructs an ActivityService using the provided database handle.
func NewActivityService(db *gorm.DB) (*ActivityService, error) {
	if db == nil {
		return nil, errors.New("activity service: db is required")
	}
	return &ActivityService{db: db}, nil
}

// Log stores an activity entry, marshalling properties into JSON form.
func (s *ActivityService) Log(ctx context.Context, entry ActivityEntry) error {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(entry.Event) == "" {
		return errors.New("activity service: event is required")
	}

	var payload datatypes.JSON
	if entry.Properties != nil {
		encoded, err := json.Marshal(entry.Properties)
		if err != nil {
			return fmt.Errorf("activity service: marshal properties: %w", err)
		}
		payload = datatypes.JSON(encoded)
	}

	log := models.ActivityLog{
		AccountID:   entry.AccountID,
		Event:       strings.TrimSpace(entry.Event),
		CauserID:    entry.CauserID,
		SubjectType: strings.TrimSpace(entry.SubjectType),
		SubjectID:   entry.SubjectID,
		Properties:  payload,
	}

	return s.db.WithContext(ctx).Create(&log).Error
}

// List returns paginated activity logs ordered by creation time descending.
func (s *ActivityService) List(ctx context.Context, opts ActivityListOptions) ([]models.ActivityLog, int64, error) {
	ctx = ensureContext(ctx)

	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PageSize
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	var (
		results []models.ActivityLog
		total   int64
	)

	query := s.db.WithContext(ctx).Model(&models.ActivityLog{})
	query = applyActivityFilters(query, opts.Filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("activity service: count logs: %w", err)
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&results).Error
	if err != nil {
		return nil, 0, fmt.Errorf("activity service: list logs: %w", err)
	}

	return results, total, nil
}

// CleanupOlderThan removes activity entries created before the cutoff and
// returns the number of rows removed.
func (s *ActivityService) CleanupOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.ActivityLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("activity service: cleanup: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func applyActivityFilters(query *gorm.DB, filters ActivityFilters) *gorm.DB {
	if filters.AccountID != nil {
		query = query.Where("account_id = ?", *filters.AccountID)
	}
	if event := strings.TrimSpace(filters.Event); event != "" {
		query = query.Where("event = ?", event)
	}
	if filters.CauserID != nil {
		query = query.Where("causer_id = ?", *filters.CauserID)
	}
	if subject := strings.TrimSpace(filters.SubjectType); subject != "" {
		query = query.Where("subject_type = ?", subject)
	}
	if filters.Since != nil {
		query = query.Where("created_at >= ?", *filters.Since)
	}
	if filters.Until != nil {
		query = query.Where("created_at <= ?", *filters.Until)
	}
	return query
}

// recordActivity logs the supplied entry while tolerating logging failures.
func recordActivity(activity *ActivityService, ctx context.Context, entry ActivityEntry) {
	if activity == nil {
		return
	}
	_ = activity.Log(ctx, entry)
}
