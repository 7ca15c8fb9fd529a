// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Story model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition. The delimiter-framed encoding of the
// required-word set is confined to this layer; callers pass and receive
// word slices.
//
// Error semantics:
//   - When a story is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// This repository is designed to be wrapped by higher-level services
// (see services.StoryService and services.QueryService) which enforce the
// draft/publish rules.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/storymill/go-stories-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateStory inserts a new Story row for authorID with the given text and
// required-word set. The word list is stored in its delimiter-framed form.
// A zero date defaults to the current UTC time. The store assigns the id.
//
// On success, it returns the persisted Story. On failure, it returns a DB error.
func CreateStory(ctx context.Context, db *gorm.DB, authorID int64, text string, figures []string, isDraft bool, date time.Time) (*domain.Story, error) {
	if date.IsZero() {
		date = time.Now().UTC()
	}
	s := &domain.Story{
		AuthorID: authorID,
		Text:     text,
		Figures:  domain.EncodeFigures(figures),
		IsDraft:  isDraft,
		Date:     date,
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// GetStory fetches a single story by its id. If the record does not exist,
// it returns ErrNotFound. On other DB errors, the raw error is returned.
func GetStory(ctx context.Context, db *gorm.DB, id uint) (*domain.Story, error) {
	var s domain.Story
	if err := db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateStoryText updates the text and date of a story, leaving its draft
// state and required-word set untouched. If no rows are affected (story
// missing), it returns ErrNotFound.
func UpdateStoryText(ctx context.Context, db *gorm.DB, id uint, text string, date time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Story{}).
		Where("id = ?", id).
		Updates(map[string]any{"text": text, "date": date})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// PublishStory updates the text and date of a story and clears its draft
// flag. The transition is one-way; callers are responsible for verifying the
// story is still a draft before publishing. Returns ErrNotFound when the id
// is absent.
func PublishStory(ctx context.Context, db *gorm.DB, id uint, text string, date time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Story{}).
		Where("id = ?", id).
		Updates(map[string]any{"text": text, "date": date, "is_draft": false})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteStory removes a story row permanently. Returns ErrNotFound when the
// id is absent. Dependent reaction/counter records are owned by other
// services and are not cleaned up here.
func DeleteStory(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Delete(&domain.Story{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListPublished returns every published story, newest first. Stories sharing
// a date are ordered by descending id so the result is stable.
func ListPublished(ctx context.Context, db *gorm.DB) ([]domain.Story, error) {
	var out []domain.Story
	err := db.WithContext(ctx).
		Where("is_draft = ?", false).
		Order("date desc, id desc").
		Find(&out).Error
	return out, err
}

// ListByAuthor returns the stories written by authorID, newest first.
// When publishedOnly is true, drafts are excluded.
func ListByAuthor(ctx context.Context, db *gorm.DB, authorID int64, publishedOnly bool) ([]domain.Story, error) {
	q := db.WithContext(ctx).Where("author_id = ?", authorID)
	if publishedOnly {
		q = q.Where("is_draft = ?", false)
	}
	var out []domain.Story
	err := q.Order("date desc, id desc").Find(&out).Error
	return out, err
}

// ListDraftsByAuthor returns the unpublished stories of authorID, newest first.
func ListDraftsByAuthor(ctx context.Context, db *gorm.DB, authorID int64) ([]domain.Story, error) {
	var out []domain.Story
	err := db.WithContext(ctx).
		Where("author_id = ? AND is_draft = ?", authorID, true).
		Order("date desc, id desc").
		Find(&out).Error
	return out, err
}

// ListLatestPerAuthor returns exactly one published story per distinct
// author: the one with the maximum date. The result is ordered by that date
// descending across authors. When an author has several stories sharing the
// maximum date, the greatest id wins.
//
// The grouping runs in Go over a single ordered scan rather than a grouped
// aggregate, so the tie-break is explicit.
func ListLatestPerAuthor(ctx context.Context, db *gorm.DB) ([]domain.Story, error) {
	var all []domain.Story
	err := db.WithContext(ctx).
		Where("is_draft = ?", false).
		Order("date desc, id desc").
		Find(&all).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(all))
	out := make([]domain.Story, 0, len(all))
	for _, s := range all {
		if _, dup := seen[s.AuthorID]; dup {
			continue
		}
		seen[s.AuthorID] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

// ListInRange returns the published stories with begin <= date <= end,
// inclusive on both ends, newest first. Callers validate the range.
func ListInRange(ctx context.Context, db *gorm.DB, begin, end time.Time) ([]domain.Story, error) {
	var out []domain.Story
	err := db.WithContext(ctx).
		Where("is_draft = ? AND date >= ? AND date <= ?", false, begin, end).
		Order("date desc, id desc").
		Find(&out).Error
	return out, err
}

// ListRecent returns the published stories with date >= since, optionally
// excluding one author. Order is newest first.
func ListRecent(ctx context.Context, db *gorm.DB, since time.Time, excludeAuthor *int64) ([]domain.Story, error) {
	q := db.WithContext(ctx).Where("is_draft = ? AND date >= ?", false, since)
	if excludeAuthor != nil {
		q = q.Where("author_id <> ?", *excludeAuthor)
	}
	var out []domain.Story
	err := q.Order("date desc, id desc").Find(&out).Error
	return out, err
}
