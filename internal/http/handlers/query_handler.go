// Story browsing handlers.
//
// This file exposes the read-side REST endpoints:
//   - GET /stories                 (all published, ETag support)
//   - GET /stories/latest          (latest per author)
//   - GET /stories/range           (published within a date range)
//   - GET /stories/random          (random recent pick)
//   - GET /stories/{id}            (single story)
//   - GET /stories/user/{id}       (published by author)
//   - GET /stories/drafts          (author's drafts)
//   - GET /stories/stats/{user_id} (author statistics, ETag support)
package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/storymill/go-stories-backend/internal/domain"
	"github.com/storymill/go-stories-backend/internal/repo"
	"github.com/storymill/go-stories-backend/internal/services"
	"github.com/storymill/go-stories-backend/internal/utils"
)

// ListStoriesResponse wraps a list of stories.
type ListStoriesResponse struct {
	Stories []domain.Story `json:"stories"`
}

// queryDB exposes the underlying handle for best-effort ETag checks. Stub
// services in tests simply don't provide one.
func (h *Handlers) queryDB() *gorm.DB {
	if svc, isConcrete := h.querySvc.(*services.QueryService); isConcrete {
		return svc.DB
	}
	return nil
}

// capList truncates a story list to the caller's optional limit.
func capList(c *gin.Context, items []domain.Story) []domain.Story {
	limit := utils.AtoiDefault(c.Query("limit"), 0)
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

// ListStories godoc
// @ID          listStories
// @Summary     List published stories
// @Description Returns every published story, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Stories
// @Produce     json
//
// @Param       limit          query   int     false "Cap the number of results"  example(20)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
//
// @Success     200  {object}  handlers.ListStoriesResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /stories [get]
func (h *Handlers) ListStories(c *gin.Context) {
	ctx := c.Request.Context()

	// ETag pre-check (best effort).
	if db := h.queryDB(); db != nil {
		count, maxTS, err := repo.PublishedStats(ctx, db)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"stories:%d:%d"`, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, err := h.querySvc.ListPublished(ctx)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, ListStoriesResponse{Stories: capList(c, items)})
}

// LatestStories godoc
// @ID          latestStories
// @Summary     List each author's latest story
// @Description Returns one published story per author, the most recent, newest first.
// @Tags        Stories
// @Produce     json
//
// @Param       limit  query  int  false "Cap the number of results"  example(20)
//
// @Success     200  {object}  handlers.ListStoriesResponse
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /stories/latest [get]
func (h *Handlers) LatestStories(c *gin.Context) {
	items, err := h.querySvc.LatestPerAuthor(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, ListStoriesResponse{Stories: capList(c, items)})
}

// RangeStories godoc
// @ID          rangeStories
// @Summary     List published stories in a date range
// @Description Returns published stories dated within [begin, end], both inclusive. Omitted bounds default to the beginning of time and today.
// @Tags        Stories
// @Produce     json
//
// @Param       begin  query  string  false "Range start (YYYY-MM-DD)"  example(2025-05-01)
// @Param       end    query  string  false "Range end (YYYY-MM-DD)"    example(2025-05-10)
//
// @Success     200  {object}  handlers.ListStoriesResponse
// @Failure     400  {object}  handlers.ErrorResponse "Invalid or inverted dates"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /stories/range [get]
func (h *Handlers) RangeStories(c *gin.Context) {
	items, err := h.querySvc.ListRange(c.Request.Context(), c.Query("begin"), c.Query("end"))
	if err != nil {
		switch err {
		case services.ErrInvalidDate:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "dates must be formatted YYYY-MM-DD")
		case services.ErrInvertedRange:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "begin date is after end date")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, ListStoriesResponse{Stories: items})
}

// RandomStory godoc
// @ID          randomStory
// @Summary     Get a random recent story
// @Description Picks one published story at random from the last three days, optionally excluding an author.
// @Tags        Stories
// @Produce     json
//
// @Param       user_id  query  int  false "Author to exclude"  example(3)
//
// @Success     200  {object}  domain.Story
// @Failure     400  {object}  handlers.ErrorResponse "Bad user_id"
// @Failure     404  {object}  handlers.ErrorResponse "No recent stories"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /stories/random [get]
func (h *Handlers) RandomStory(c *gin.Context) {
	var exclude *int64
	if raw := c.Query("user_id"); raw != "" {
		uid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user_id must be an integer")
			return
		}
		exclude = &uid
	}

	story, err := h.querySvc.RandomRecent(c.Request.Context(), exclude)
	if err != nil {
		if err == services.ErrNoRecentStories {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "no recent stories available")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, story)
}

// GetStory godoc
// @ID          getStory
// @Summary     Get a story by id
// @Tags        Stories
// @Produce     json
//
// @Param       id  path  int  true  "Story ID"  example(12)
//
// @Success     200  {object}  domain.Story
// @Failure     400  {object}  handlers.ErrorResponse "Bad id"
// @Failure     404  {object}  handlers.ErrorResponse "Story not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /stories/{id} [get]
func (h *Handlers) GetStory(c *gin.Context) {
	id, okID := pathID(c)
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "story id must be an integer")
		return
	}

	story, err := h.querySvc.StoryByID(c.Request.Context(), id)
	if err != nil {
		if err == services.ErrStoryNotFound {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "story not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, story)
}

// UserStories godoc
// @ID          userStories
// @Summary     List an author's published stories
// @Tags        Stories
// @Produce     json
//
// @Param       id  path  int  true  "Author user ID"  example(3)
//
// @Success     200  {object}  handlers.ListStoriesResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad id"
// @Failure     404  {object}  handlers.ErrorResponse "No stories for this author"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /stories/user/{id} [get]
func (h *Handlers) UserStories(c *gin.Context) {
	uid, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user id must be an integer")
		return
	}

	items, err := h.querySvc.StoriesByAuthor(c.Request.Context(), uid)
	if err != nil {
		if err == services.ErrNoStories {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "no stories for this user")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, ListStoriesResponse{Stories: items})
}

// UserDrafts godoc
// @ID          userDrafts
// @Summary     List an author's drafts
// @Tags        Drafts
// @Produce     json
//
// @Param       user_id  query  int  true  "Author user ID"  example(3)
//
// @Success     200  {object}  handlers.ListStoriesResponse
// @Failure     400  {object}  handlers.ErrorResponse "Missing or bad user_id"
// @Failure     404  {object}  handlers.ErrorResponse "No drafts for this author"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /stories/drafts [get]
func (h *Handlers) UserDrafts(c *gin.Context) {
	uid, okUID := queryUserID(c)
	if !okUID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user_id query parameter required")
		return
	}

	items, err := h.querySvc.DraftsByAuthor(c.Request.Context(), uid)
	if err != nil {
		if err == services.ErrNoStories {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "no drafts for this user")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, ListStoriesResponse{Stories: items})
}

// SearchStories godoc
// @ID          searchStories
// @Summary     Search published stories
// @Description Ranks published stories against a free-text query by word overlap and returns the best matches.
// @Tags        Stories
// @Produce     json
//
// @Param       q      query  string  true  "Search query"              example(cat beer)
// @Param       limit  query  int     false "Cap the number of results" example(10)
//
// @Success     200  {object}  handlers.ListStoriesResponse
// @Failure     400  {object}  handlers.ErrorResponse "Blank query"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /stories/search [get]
func (h *Handlers) SearchStories(c *gin.Context) {
	k := utils.AtoiDefault(c.Query("limit"), 0)

	items, err := h.querySvc.Search(c.Request.Context(), c.Query("q"), k)
	if err != nil {
		if err == services.ErrInvalidSearch {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "q query parameter required")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, ListStoriesResponse{Stories: items})
}

// UserStats godoc
// @ID          userStats
// @Summary     Get an author's statistics
// @Description Returns story count, total required words, and the per-story average, over drafts and published stories alike. Supports weak ETag.
// @Tags        Stories
// @Produce     json
//
// @Param       user_id        path    int     true  "Author user ID"  example(3)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
//
// @Success     200  {object}  services.AuthorStats
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse "Bad id"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /stories/stats/{user_id} [get]
func (h *Handlers) UserStats(c *gin.Context) {
	uid, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user id must be an integer")
		return
	}
	ctx := c.Request.Context()

	// ETag pre-check (best effort).
	if db := h.queryDB(); db != nil {
		count, maxTS, statsErr := repo.AuthorStats(ctx, db, uid)
		if statsErr == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"stats:%d:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	stats, err := h.querySvc.Stats(ctx, uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, stats)
}
