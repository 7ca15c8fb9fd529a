// Package services defines the business logic for the story lifecycle and
// the browsing queries. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import (
	"errors"
	"strings"
)

var (
	// ErrStoryNotFound indicates that the requested story does not exist,
	// or is no longer in a state the operation accepts (e.g. publishing a
	// story that is not a draft).
	ErrStoryNotFound = errors.New("story not found")

	// ErrNotAuthor is returned when a caller attempts to modify or delete
	// a story they did not write.
	ErrNotAuthor = errors.New("caller is not the story's author")

	// ErrInvalidDraftRequest is returned when a draft session cannot be
	// started: the story is absent, belongs to someone else, or is
	// already published.
	ErrInvalidDraftRequest = errors.New("story is not an editable draft of this user")

	// ErrNoSession is returned by write operations when the caller has no
	// draft session, or the session does not fit the operation (e.g.
	// creating a new story while the session continues an existing one).
	ErrNoSession = errors.New("no draft session for this operation")

	// ErrNoFigures is returned when a fresh draft session is requested
	// with an empty or malformed required-word list.
	ErrNoFigures = errors.New("figure list is empty or malformed")

	// ErrStoryTooLong is returned when a story submitted for publication
	// exceeds the maximum text length.
	ErrStoryTooLong = errors.New("story text exceeds maximum length")

	// ErrInvalidDate is returned when a range parameter cannot be parsed
	// as a date.
	ErrInvalidDate = errors.New("invalid date parameter")

	// ErrInvertedRange is returned when the begin date falls after the
	// end date.
	ErrInvertedRange = errors.New("begin date cannot be after end date")

	// ErrNoRecentStories indicates the random-recent candidate set is
	// empty.
	ErrNoRecentStories = errors.New("no recent stories by other users")

	// ErrNoStories indicates an author listing matched nothing.
	ErrNoStories = errors.New("no stories found")

	// ErrInvalidSearch is returned when a search query is blank.
	ErrInvalidSearch = errors.New("search query is empty")
)

// MissingWordsError reports a publication attempt whose text does not cover
// the full required-word set. Words preserves the original relative order of
// the uncovered figures so callers can echo it back to the writer.
type MissingWordsError struct {
	Words []string
}

func (e *MissingWordsError) Error() string {
	return "story doesn't contain all the words, missing: " + strings.Join(e.Words, " ")
}
