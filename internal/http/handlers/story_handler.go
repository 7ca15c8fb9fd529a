// Story HTTP handlers.
//
// This file exposes REST endpoints for the story lifecycle:
//   - GET    /stories/new/write/{id}  (resume an owned draft into the session)
//   - POST   /stories/new/begin       (start a fresh draft session)
//   - POST   /stories/new/write       (complete the session: save or publish)
//   - PUT    /stories/{id}            (edit a draft directly by id)
//   - POST   /stories/delete/{id}     (delete an owned story)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/storymill/go-stories-backend/internal/domain"
	"github.com/storymill/go-stories-backend/internal/services"
	"github.com/storymill/go-stories-backend/internal/session"
)

//
// Service contracts (context-aware)
//

// StoryService defines story lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type StoryService interface {
	// StartDraft resumes an owned draft into the caller's session.
	StartDraft(ctx context.Context, d session.Draft, userID int64, storyID uint) error
	// BeginNew starts a fresh session with the given required words.
	BeginNew(d session.Draft, figures []string) error
	// Write completes the session with text, as a draft save or a publish.
	Write(ctx context.Context, d session.Draft, authorID int64, text string, asDraft bool) (*services.WriteResult, error)
	// WriteByID edits an owned draft addressed directly by id.
	WriteByID(ctx context.Context, storyID uint, userID int64, text string, asDraft bool) (*services.WriteResult, error)
	// Delete permanently removes an owned story.
	Delete(ctx context.Context, userID int64, storyID uint) error
}

// QueryService defines the read-side story operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type QueryService interface {
	// ListPublished returns every published story, newest first.
	ListPublished(ctx context.Context) ([]domain.Story, error)
	// LatestPerAuthor returns each author's most recent published story.
	LatestPerAuthor(ctx context.Context) ([]domain.Story, error)
	// ListRange returns published stories dated within [begin, end].
	ListRange(ctx context.Context, beginStr, endStr string) ([]domain.Story, error)
	// RandomRecent picks a random published story from the recent window.
	RandomRecent(ctx context.Context, excludeAuthor *int64) (*domain.Story, error)
	// StoryByID returns a single story, draft or published.
	StoryByID(ctx context.Context, id uint) (*domain.Story, error)
	// StoriesByAuthor returns an author's published stories.
	StoriesByAuthor(ctx context.Context, authorID int64) ([]domain.Story, error)
	// DraftsByAuthor returns an author's drafts.
	DraftsByAuthor(ctx context.Context, authorID int64) ([]domain.Story, error)
	// Search ranks published stories against a free-text query.
	Search(ctx context.Context, query string, k int) ([]domain.Story, error)
	// Stats computes an author's story statistics.
	Stats(ctx context.Context, authorID int64) (*services.AuthorStats, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for stories. It depends on abstract
// service interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	storySvc StoryService
	querySvc QueryService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(storySvc StoryService, querySvc QueryService) *Handlers {
	return &Handlers{storySvc: storySvc, querySvc: querySvc}
}

//
// DTOs
//

// BeginDraftRequest is the JSON payload for starting a fresh draft session.
type BeginDraftRequest struct {
	// Figures is the non-empty required-word set for the new story.
	Figures []string `json:"figures" binding:"required" example:"beer,cat,dog"`
}

// WriteStoryRequest is the JSON payload for completing a draft session or
// editing a draft by id.
type WriteStoryRequest struct {
	// Text is the story body.
	Text string `json:"text" binding:"required" example:"My cat is drinking a beer with my neighbour's dog"`
	// AsDraft saves without publishing when true.
	AsDraft bool `json:"as_draft" example:"false"`
	// UserID identifies the author.
	UserID int64 `json:"user_id" binding:"required" example:"3"`
}

// WriteStoryResponse reports the outcome of a completed write.
type WriteStoryResponse struct {
	StoryID uint   `json:"story_id" example:"12"`
	Status  string `json:"status" example:"New story has been published"`
}

// ResumeDraftResponse echoes the session established for an owned draft.
type ResumeDraftResponse struct {
	StoryID uint     `json:"story_id" example:"4"`
	Figures []string `json:"figures" example:"beer,cat,dog"`
}

// StatusResponse carries a bare status message.
type StatusResponse struct {
	Status string `json:"status" example:"Story has been deleted"`
}

//
// Helpers
//

// pathID parses the {id} path segment as a story id.
func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// queryUserID parses the user_id query parameter.
func queryUserID(c *gin.Context) (int64, bool) {
	uid, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return uid, true
}

// failWrite maps lifecycle service errors to HTTP responses.
func failWrite(c *gin.Context, err error) {
	var missing *services.MissingWordsError
	switch {
	case errors.As(err, &missing):
		fail(c, http.StatusUnprocessableEntity, ErrCodeMissingWords, missing.Error())
	case errors.Is(err, services.ErrStoryTooLong):
		fail(c, http.StatusUnprocessableEntity, ErrCodeStoryTooLong, "story text exceeds 1000 characters")
	case errors.Is(err, services.ErrNoSession):
		fail(c, http.StatusBadRequest, ErrCodeNoSession, "no draft session in progress")
	case errors.Is(err, services.ErrStoryNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "story not found")
	case errors.Is(err, services.ErrNotAuthor):
		fail(c, http.StatusForbidden, ErrCodeForbidden, "not the author of a draft story")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

//
// Handlers
//

// ResumeDraft godoc
// @ID          resumeDraft
// @Summary     Resume composing an owned draft
// @Description Loads the draft's required words and id into the caller's session.
// @Tags        Drafts
// @Produce     json
//
// @Param       id       path   int  true  "Story ID"       example(4)
// @Param       user_id  query  int  true  "Author user ID" example(3)
//
// @Success     200  {object}  handlers.ResumeDraftResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Not the author, not a draft, or missing"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /stories/new/write/{id} [get]
func (h *Handlers) ResumeDraft(c *gin.Context) {
	id, okID := pathID(c)
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "story id must be an integer")
		return
	}
	uid, okUID := queryUserID(c)
	if !okUID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user_id query parameter required")
		return
	}

	d := session.FromContext(c)
	if err := h.storySvc.StartDraft(c.Request.Context(), d, uid, id); err != nil {
		if errors.Is(err, services.ErrInvalidDraftRequest) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "story is not an editable draft of this user")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	st, _ := d.State()
	ok(c, http.StatusOK, ResumeDraftResponse{StoryID: id, Figures: st.Figures})
}

// BeginDraft godoc
// @ID          beginDraft
// @Summary     Start a fresh draft session
// @Description Establishes a session carrying the required words for a new story. An in-progress session is overwritten.
// @Tags        Drafts
// @Accept      json
//
// @Param       body  body  handlers.BeginDraftRequest  true  "Required words"
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /stories/new/begin [post]
func (h *Handlers) BeginDraft(c *gin.Context) {
	var req BeginDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	if err := h.storySvc.BeginNew(session.FromContext(c), req.Figures); err != nil {
		if errors.Is(err, services.ErrNoFigures) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "figures must be a non-empty list of words")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// WriteStory godoc
// @ID          writeStory
// @Summary     Complete the draft session
// @Description Saves the session's story as a draft or publishes it, depending on as_draft. Publication validates word coverage.
// @Tags        Drafts
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.WriteStoryRequest  true  "Story text"
//
// @Success     200  {object}  handlers.WriteStoryResponse  "Draft updated"
// @Success     201  {object}  handlers.WriteStoryResponse  "Created or published"
// @Failure     400  {object}  handlers.ErrorResponse  "Malformed body or no session"
// @Failure     422  {object}  handlers.ErrorResponse  "Missing required words"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /stories/new/write [post]
func (h *Handlers) WriteStory(c *gin.Context) {
	var req WriteStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	d := session.FromContext(c)
	res, err := h.storySvc.Write(c.Request.Context(), d, req.UserID, req.Text, req.AsDraft)
	if err != nil {
		failWrite(c, err)
		return
	}

	status := http.StatusCreated
	if res.Status == services.StatusDraftUpdated {
		status = http.StatusOK
	}
	ok(c, status, WriteStoryResponse{StoryID: res.StoryID, Status: res.Status})
}

// UpdateDraftByID godoc
// @ID          updateDraftByID
// @Summary     Edit a draft by id
// @Description Saves or publishes an owned draft addressed directly, without a session.
// @Tags        Drafts
// @Accept      json
// @Produce     json
//
// @Param       id    path  int  true  "Story ID"  example(4)
// @Param       body  body  handlers.WriteStoryRequest  true  "Story text"
//
// @Success     200  {object}  handlers.WriteStoryResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the author or not a draft"
// @Failure     422  {object}  handlers.ErrorResponse  "Missing required words"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /stories/{id} [put]
func (h *Handlers) UpdateDraftByID(c *gin.Context) {
	id, okID := pathID(c)
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "story id must be an integer")
		return
	}
	var req WriteStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	res, err := h.storySvc.WriteByID(c.Request.Context(), id, req.UserID, req.Text, req.AsDraft)
	if err != nil {
		if errors.Is(err, services.ErrStoryNotFound) {
			fail(c, http.StatusForbidden, ErrCodeForbidden, "not the author of a draft story")
			return
		}
		failWrite(c, err)
		return
	}
	ok(c, http.StatusOK, WriteStoryResponse{StoryID: res.StoryID, Status: res.Status})
}

// DeleteStory godoc
// @ID          deleteStory
// @Summary     Delete an owned story
// @Description Permanently removes a story. Only its author may delete it.
// @Tags        Stories
// @Produce     json
//
// @Param       id       path   int  true  "Story ID"       example(12)
// @Param       user_id  query  int  true  "Author user ID" example(3)
//
// @Success     200  {object}  handlers.StatusResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Not the author or invalid id"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /stories/delete/{id} [post]
func (h *Handlers) DeleteStory(c *gin.Context) {
	id, okID := pathID(c)
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "story id must be an integer")
		return
	}
	uid, okUID := queryUserID(c)
	if !okUID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user_id query parameter required")
		return
	}

	if err := h.storySvc.Delete(c.Request.Context(), uid, id); err != nil {
		if errors.Is(err, services.ErrStoryNotFound) || errors.Is(err, services.ErrNotAuthor) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "story missing or not owned by this user")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, StatusResponse{Status: services.StatusStoryDeleted})
}
