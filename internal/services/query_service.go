package services

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/storymill/go-stories-backend/internal/domain"
	"github.com/storymill/go-stories-backend/internal/repo"
	"github.com/storymill/go-stories-backend/internal/search"
)

// rangeDateLayout is the wire format for range query bounds.
const rangeDateLayout = "2006-01-02"

// defaultRecentWindow bounds the random-story pick to the last three days.
const defaultRecentWindow = 72 * time.Hour

// defaultSearchK caps search results when the caller gives no limit.
const defaultSearchK = 10

// AuthorStats summarizes an author's production, drafts included.
type AuthorStats struct {
	// NumStories is the author's total story count.
	NumStories int64 `json:"num_stories"`
	// TotalFigures is the sum of required-word counts across those
	// stories. The wire name keeps the dice terminology the game
	// clients expect.
	TotalFigures int64 `json:"tot_num_dice"`
	// AvgFigures is TotalFigures / NumStories rounded to two decimals,
	// zero when the author has no stories.
	AvgFigures float64 `json:"avg_dice"`
}

// QueryService implements the read-side story queries: feeds, per-author
// listings, date-range filtering, the random recent pick, and author
// statistics.
type QueryService struct {
	// DB is the database handle used for all queries.
	DB *gorm.DB

	// RecentWindow is the look-back horizon for RandomRecent; defaults to
	// three days.
	RecentWindow time.Duration

	// Now is a clock seam for tests; defaults to time.Now.
	Now func() time.Time

	// Rand returns a uniform value in [0,n); defaults to math/rand.
	Rand func(n int) int
}

func (s *QueryService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// ListPublished returns every published story, newest first.
func (s *QueryService) ListPublished(ctx context.Context) ([]domain.Story, error) {
	return repo.ListPublished(ctx, s.DB)
}

// LatestPerAuthor returns each author's most recent published story. Authors
// with only drafts do not appear; date ties go to the greater story id.
func (s *QueryService) LatestPerAuthor(ctx context.Context) ([]domain.Story, error) {
	return repo.ListLatestPerAuthor(ctx, s.DB)
}

// ListRange returns the published stories dated within [begin, end],
// inclusive on both sides. Bounds arrive as "YYYY-MM-DD" strings; an empty
// begin means the beginning of time and an empty end means today. The end
// date is extended to the last second of its day so same-day stories match.
//
// Unparseable bounds yield ErrInvalidDate, begin after end ErrInvertedRange.
func (s *QueryService) ListRange(ctx context.Context, beginStr, endStr string) ([]domain.Story, error) {
	var begin, end time.Time
	if beginStr != "" {
		t, err := time.ParseInLocation(rangeDateLayout, beginStr, time.UTC)
		if err != nil {
			return nil, ErrInvalidDate
		}
		begin = t
	}
	if endStr == "" {
		end = s.now()
	} else {
		t, err := time.ParseInLocation(rangeDateLayout, endStr, time.UTC)
		if err != nil {
			return nil, ErrInvalidDate
		}
		end = t
	}
	end = endOfDay(end)
	if begin.After(end) {
		return nil, ErrInvertedRange
	}
	return repo.ListInRange(ctx, s.DB, begin, end)
}

// RandomRecent picks one published story uniformly at random from those
// dated within the recent window, optionally excluding a given author. The
// window starts at the beginning of the day RecentWindow ago, so a three-day
// window on a Thursday reaches back to Monday midnight. When no story
// qualifies it returns ErrNoRecentStories.
func (s *QueryService) RandomRecent(ctx context.Context, excludeAuthor *int64) (*domain.Story, error) {
	window := s.RecentWindow
	if window <= 0 {
		window = defaultRecentWindow
	}
	since := startOfDay(s.now().Add(-window))
	stories, err := repo.ListRecent(ctx, s.DB, since, excludeAuthor)
	if err != nil {
		return nil, err
	}
	if len(stories) == 0 {
		return nil, ErrNoRecentStories
	}
	story := stories[s.intn(len(stories))]
	return &story, nil
}

// StoryByID returns a single story by id, draft or published.
func (s *QueryService) StoryByID(ctx context.Context, id uint) (*domain.Story, error) {
	story, err := repo.GetStory(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrStoryNotFound
		}
		return nil, err
	}
	return story, nil
}

// StoriesByAuthor returns an author's published stories, newest first.
// An author with none yields ErrNoStories.
func (s *QueryService) StoriesByAuthor(ctx context.Context, authorID int64) ([]domain.Story, error) {
	stories, err := repo.ListByAuthor(ctx, s.DB, authorID, true)
	if err != nil {
		return nil, err
	}
	if len(stories) == 0 {
		return nil, ErrNoStories
	}
	return stories, nil
}

// DraftsByAuthor returns an author's drafts, newest first. An author with
// none yields ErrNoStories.
func (s *QueryService) DraftsByAuthor(ctx context.Context, authorID int64) ([]domain.Story, error) {
	stories, err := repo.ListDraftsByAuthor(ctx, s.DB, authorID)
	if err != nil {
		return nil, err
	}
	if len(stories) == 0 {
		return nil, ErrNoStories
	}
	return stories, nil
}

// Search ranks published stories against a free-text query by word overlap
// and returns the best matches, most similar first. A blank query yields
// ErrInvalidSearch; a query matching nothing yields an empty slice. The
// index is rebuilt per call, which is fine at this corpus size.
func (s *QueryService) Search(ctx context.Context, query string, k int) ([]domain.Story, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidSearch
	}
	if k <= 0 {
		k = defaultSearchK
	}

	stories, err := repo.ListPublished(ctx, s.DB)
	if err != nil {
		return nil, err
	}

	docs := make([]search.Document, len(stories))
	byID := make(map[uint]*domain.Story, len(stories))
	for i := range stories {
		docs[i] = search.Document{ID: stories[i].ID, Text: stories[i].Text}
		byID[stories[i].ID] = &stories[i]
	}

	results := search.NewIndex(docs).TopK(query, k)
	matched := make([]domain.Story, 0, len(results))
	for _, r := range results {
		if st := byID[r.StoryID]; st != nil {
			matched = append(matched, *st)
		}
	}
	return matched, nil
}

// Stats computes an author's story statistics over drafts and published
// stories alike. Authors without stories get the zero value rather than an
// error.
func (s *QueryService) Stats(ctx context.Context, authorID int64) (*AuthorStats, error) {
	stories, err := repo.ListByAuthor(ctx, s.DB, authorID, false)
	if err != nil {
		return nil, err
	}
	stats := &AuthorStats{NumStories: int64(len(stories))}
	for i := range stories {
		stats.TotalFigures += int64(len(stories[i].FigureWords()))
	}
	if stats.NumStories > 0 {
		avg := float64(stats.TotalFigures) / float64(stats.NumStories)
		stats.AvgFigures = math.Round(avg*100) / 100
	}
	return stats, nil
}

func (s *QueryService) intn(n int) int {
	if s.Rand != nil {
		return s.Rand(n)
	}
	return rand.IntN(n)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 23, 59, 59, 0, time.UTC)
}
