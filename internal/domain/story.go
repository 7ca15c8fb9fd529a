// Package domain defines the persistence model for stories. The types here
// are mapped with GORM and form the core data layer of the stories service.
package domain

import (
	"strings"
	"time"
)

// FigureDelimiter frames the required-word set in its stored textual form,
// e.g. "#beer#cat#dog#". The framed form never leaves this package: callers
// work with []string and use EncodeFigures/DecodeFigures at the persistence
// boundary.
const FigureDelimiter = "#"

// Story represents a short narrative written by a user. A story starts as a
// draft and may later be published; published stories must contain every
// required word in Figures.
//
// Fields:
//   - ID: auto-incrementing primary key, never reused.
//   - AuthorID: opaque numeric identifier of the writer; immutable.
//   - Text: story body; capped at 1000 characters when published.
//   - Figures: the required-word set in delimiter-framed form ("#w1#w2#").
//     Fixed at creation, never altered by later edits.
//   - IsDraft: true while unfinished, false once published (one-way).
//   - Date: timestamp of the last meaningful write (creation or publish).
type Story struct {
	ID       uint      `json:"id"        gorm:"primaryKey"`
	AuthorID int64     `json:"author_id" gorm:"not null;index:idx_story_author"`
	Text     string    `json:"text"      gorm:"type:text;not null"`
	Figures  string    `json:"figures"   gorm:"type:varchar(512);not null"`
	IsDraft  bool      `json:"is_draft"  gorm:"not null;default:true"`
	Date     time.Time `json:"date"      gorm:"not null;index:idx_story_date"`
}

// TableName returns the database table name for Story.
func (Story) TableName() string { return "stories" }

// FigureWords returns the story's required words with the delimiter framing
// stripped.
func (s *Story) FigureWords() []string { return DecodeFigures(s.Figures) }

// EncodeFigures joins a word list into the delimiter-framed stored form.
// An empty list encodes to "".
func EncodeFigures(words []string) string {
	if len(words) == 0 {
		return ""
	}
	return FigureDelimiter + strings.Join(words, FigureDelimiter) + FigureDelimiter
}

// DecodeFigures splits a delimiter-framed string back into its word list,
// dropping the empty leading/trailing segments produced by the framing.
// Malformed input without framing still yields its non-empty segments.
func DecodeFigures(framed string) []string {
	if framed == "" {
		return nil
	}
	parts := strings.Split(framed, FigureDelimiter)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
