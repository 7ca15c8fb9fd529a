// Package services – StoryService
//
// This file implements the StoryService, the state machine governing a
// story's lifecycle: Draft → Published (one-way) or Deleted (terminal from
// either state). Draft saves skip word-coverage validation; publication runs
// the validator strictly before any write, so a failed publish has no side
// effects and leaves the draft session untouched for a retry.
//
// The per-user draft session is injected as a session.Draft handle with
// explicit begin/consume/clear semantics; a completed write clears it exactly
// once. Service-level errors (ErrNoSession, ErrInvalidDraftRequest,
// ErrStoryNotFound, ...) are returned for predictable cases so handlers can
// map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/storymill/go-stories-backend/internal/domain"
	"github.com/storymill/go-stories-backend/internal/repo"
	"github.com/storymill/go-stories-backend/internal/session"
	"github.com/storymill/go-stories-backend/internal/validator"
)

// Write status messages surfaced to the caller.
const (
	StatusDraftCreated   = "Draft created"
	StatusDraftUpdated   = "Draft updated"
	StatusDraftPublished = "Draft has been published"
	StatusNewPublished   = "New story has been published"
	StatusStoryDeleted   = "Story has been deleted"
)

// WriteResult reports the outcome of a completed write operation.
type WriteResult struct {
	// StoryID is the id of the story written. For updates it is the
	// existing id; for creations the freshly assigned one.
	StoryID uint `json:"story_id"`
	// Status is the human-readable outcome message.
	Status string `json:"status"`
	// Created is true when the write inserted a new row.
	Created bool `json:"-"`
}

// StoryService implements the story lifecycle use-cases. It coordinates the
// repository, the word-coverage validator, and the caller's draft session.
type StoryService struct {
	// DB is the database handle used for all story operations.
	DB *gorm.DB

	// Now is a clock seam for tests; defaults to time.Now.
	Now func() time.Time
}

// now returns the current UTC time through the clock seam.
func (s *StoryService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// writeStamp is the timestamp recorded on draft updates and publications,
// truncated to the minute.
func (s *StoryService) writeStamp() time.Time {
	return s.now().Truncate(time.Minute)
}

// StartDraft resumes composition of an existing persisted draft. It succeeds
// only when the story exists, belongs to userID, and is still a draft; the
// session then carries the story's required words and id. Any prior session
// state is overwritten (last write wins).
//
// Failures return ErrInvalidDraftRequest without touching the session.
func (s *StoryService) StartDraft(ctx context.Context, d session.Draft, userID int64, storyID uint) error {
	story, err := repo.GetStory(ctx, s.DB, storyID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInvalidDraftRequest
		}
		return err
	}
	if story.AuthorID != userID || !story.IsDraft {
		return ErrInvalidDraftRequest
	}
	id := story.ID
	return d.Begin(session.State{Figures: story.FigureWords(), StoryID: &id})
}

// BeginNew starts composition of a brand-new story with the given
// required-word set. Words are stored trimmed; a word that is empty after
// trimming or contains the storage delimiter yields ErrNoFigures. Any prior
// session state is overwritten.
func (s *StoryService) BeginNew(d session.Draft, figures []string) error {
	if len(figures) == 0 {
		return ErrNoFigures
	}
	words := make([]string, len(figures))
	for i, w := range figures {
		w = strings.TrimSpace(w)
		if w == "" || strings.Contains(w, domain.FigureDelimiter) {
			return ErrNoFigures
		}
		words[i] = w
	}
	return d.Begin(session.State{Figures: words})
}

// Write completes the caller's draft session with the submitted text,
// dispatching to the lifecycle transition the session shape selects:
//
//	session without story id, asDraft=true  → CreateDraft
//	session with story id,    asDraft=true  → UpdateDraft
//	session without story id, asDraft=false → PublishNew
//	session with story id,    asDraft=false → PublishDraft
//
// Without an active session it returns ErrNoSession.
func (s *StoryService) Write(ctx context.Context, d session.Draft, authorID int64, text string, asDraft bool) (*WriteResult, error) {
	st, ok := d.State()
	if !ok {
		return nil, ErrNoSession
	}
	switch {
	case asDraft && st.StoryID == nil:
		return s.CreateDraft(ctx, d, authorID, text)
	case asDraft:
		return s.UpdateDraft(ctx, d, text)
	case st.StoryID == nil:
		return s.PublishNew(ctx, d, authorID, text)
	default:
		return s.PublishDraft(ctx, d, text)
	}
}

// CreateDraft persists a new draft story with the session's required words
// and the given text. No coverage validation is performed for draft saves.
// The session is cleared on success.
func (s *StoryService) CreateDraft(ctx context.Context, d session.Draft, authorID int64, text string) (*WriteResult, error) {
	st, ok := d.State()
	if !ok || st.StoryID != nil {
		return nil, ErrNoSession
	}
	story, err := repo.CreateStory(ctx, s.DB, authorID, text, st.Figures, true, s.now())
	if err != nil {
		return nil, err
	}
	if err := d.Clear(); err != nil {
		return nil, err
	}
	return &WriteResult{StoryID: story.ID, Status: StatusDraftCreated, Created: true}, nil
}

// UpdateDraft overwrites the text of the draft the session continues,
// refreshing its date. The draft flag and the stored required words are
// untouched. The session is cleared on success.
func (s *StoryService) UpdateDraft(ctx context.Context, d session.Draft, text string) (*WriteResult, error) {
	st, ok := d.State()
	if !ok || st.StoryID == nil {
		return nil, ErrNoSession
	}
	if err := repo.UpdateStoryText(ctx, s.DB, *st.StoryID, text, s.writeStamp()); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrStoryNotFound
		}
		return nil, err
	}
	if err := d.Clear(); err != nil {
		return nil, err
	}
	return &WriteResult{StoryID: *st.StoryID, Status: StatusDraftUpdated}, nil
}

// PublishNew validates the text against the session's required words and, on
// success, persists it as a published story. A validation failure aborts
// with no write and leaves the session untouched so the caller may retry.
func (s *StoryService) PublishNew(ctx context.Context, d session.Draft, authorID int64, text string) (*WriteResult, error) {
	st, ok := d.State()
	if !ok || st.StoryID != nil {
		return nil, ErrNoSession
	}
	if err := checkCoverage(text, st.Figures); err != nil {
		return nil, err
	}
	story, err := repo.CreateStory(ctx, s.DB, authorID, text, st.Figures, false, s.now())
	if err != nil {
		return nil, err
	}
	if err := d.Clear(); err != nil {
		return nil, err
	}
	return &WriteResult{StoryID: story.ID, Status: StatusNewPublished, Created: true}, nil
}

// PublishDraft validates the text against the required words stored on the
// draft the session continues and, on success, publishes it: text and date
// are updated and the draft flag cleared, one-way. Validation failures leave
// both the story and the session untouched.
func (s *StoryService) PublishDraft(ctx context.Context, d session.Draft, text string) (*WriteResult, error) {
	st, ok := d.State()
	if !ok || st.StoryID == nil {
		return nil, ErrNoSession
	}
	story, err := repo.GetStory(ctx, s.DB, *st.StoryID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrStoryNotFound
		}
		return nil, err
	}
	if !story.IsDraft {
		// Published is terminal; never republish.
		return nil, ErrStoryNotFound
	}
	if err := checkCoverage(text, story.FigureWords()); err != nil {
		return nil, err
	}
	if err := repo.PublishStory(ctx, s.DB, story.ID, text, s.writeStamp()); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrStoryNotFound
		}
		return nil, err
	}
	if err := d.Clear(); err != nil {
		return nil, err
	}
	return &WriteResult{StoryID: story.ID, Status: StatusDraftPublished}, nil
}

// WriteByID edits a draft addressed directly by id, without a session. The
// caller must be the author and the story must still be a draft
// (ErrNotAuthor otherwise). asDraft=true saves the text; asDraft=false
// validates against the story's stored required words and publishes.
func (s *StoryService) WriteByID(ctx context.Context, storyID uint, userID int64, text string, asDraft bool) (*WriteResult, error) {
	story, err := repo.GetStory(ctx, s.DB, storyID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrStoryNotFound
		}
		return nil, err
	}
	if story.AuthorID != userID || !story.IsDraft {
		return nil, ErrNotAuthor
	}

	if asDraft {
		if err := repo.UpdateStoryText(ctx, s.DB, story.ID, text, s.writeStamp()); err != nil {
			return nil, err
		}
		return &WriteResult{StoryID: story.ID, Status: StatusDraftUpdated}, nil
	}

	if err := checkCoverage(text, story.FigureWords()); err != nil {
		return nil, err
	}
	if err := repo.PublishStory(ctx, s.DB, story.ID, text, s.writeStamp()); err != nil {
		return nil, err
	}
	return &WriteResult{StoryID: story.ID, Status: StatusDraftPublished}, nil
}

// Delete permanently removes a story. The caller must be its author; a
// missing id yields ErrStoryNotFound and an author mismatch ErrNotAuthor,
// in both cases leaving the store unchanged.
func (s *StoryService) Delete(ctx context.Context, userID int64, storyID uint) error {
	story, err := repo.GetStory(ctx, s.DB, storyID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrStoryNotFound
		}
		return err
	}
	if story.AuthorID != userID {
		return ErrNotAuthor
	}
	if err := repo.DeleteStory(ctx, s.DB, story.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrStoryNotFound
		}
		return err
	}
	return nil
}

// checkCoverage adapts the validator's results to service-level errors.
func checkCoverage(text string, figures []string) error {
	missing, err := validator.CheckCoverage(text, figures)
	if err != nil {
		if errors.Is(err, validator.ErrTextTooLong) {
			return ErrStoryTooLong
		}
		return err
	}
	if len(missing) > 0 {
		return &MissingWordsError{Words: missing}
	}
	return nil
}
