// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/storymill/go-stories-backend/internal/domain"
)

// PublishedStats returns aggregate metadata for the published set: the total
// number of rows and the maximum date among them.
//
// When nothing is published, the returned count is 0 and maxDate is nil.
//
// Return values:
//   - count:   total published stories
//   - maxDate: pointer to the greatest date, or nil if no rows
//   - err:     database error, if any
func PublishedStats(ctx context.Context, db *gorm.DB) (count int64, maxDate *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Story{}).Where("is_draft = ?", false)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest date (avoid MAX() -> TEXT in SQLite)
	var row struct {
		Date time.Time
	}
	if err = q.Select("date").Order("date DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.Date, nil
}

// AuthorStats returns aggregate metadata for one author's stories, drafts
// included: the total number of rows and the maximum date among them.
func AuthorStats(ctx context.Context, db *gorm.DB, authorID int64) (count int64, maxDate *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Story{}).Where("author_id = ?", authorID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	var row struct {
		Date time.Time
	}
	if err = q.Select("date").Order("date DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.Date, nil
}
