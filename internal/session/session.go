// Package session tracks the in-progress draft of each interacting user.
//
// The state is ephemeral scratch storage used only while composing: the
// required-word set chosen for the story, and, when continuing a persisted
// draft, that story's id. It is keyed per user connection through
// gin-contrib/sessions (cookie backend) and is consumed exactly once — the
// service layer clears it after a completed write. It is not a substitute for
// the durable figures stored on a draft story row.
//
// Services depend on the Draft interface rather than on the cookie store, so
// tests can substitute an in-memory fake.
package session

import (
	"encoding/gob"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const (
	figuresKey = "figures"
	storyIDKey = "story_id"
)

func init() {
	// Cookie sessions serialize values with gob; the figure list needs a
	// registered concrete type.
	gob.Register([]string{})
}

// State is the scratch state tracked while a user composes a story.
type State struct {
	// Figures is the required-word set for the story being composed.
	Figures []string
	// StoryID is set only when continuing an existing persisted draft.
	StoryID *uint
}

// Draft is a per-request handle on the interacting user's draft session.
//
// Begin overwrites any prior state (last write wins, no merge); Clear removes
// the state and is called exactly once after a successful write.
type Draft interface {
	// State returns the current session state; ok is false when the user
	// has no draft in progress.
	State() (st State, ok bool)
	// Begin establishes (or replaces) the session state.
	Begin(st State) error
	// Clear removes the draft state from the session.
	Clear() error
}

// Middleware returns the Gin middleware backing Draft handles with a
// cookie-based session store.
func Middleware(name, secret string) gin.HandlerFunc {
	store := cookie.NewStore([]byte(secret))
	return sessions.Sessions(name, store)
}

// FromContext returns the Draft handle for the request's session. Middleware
// must be installed on the engine.
func FromContext(c *gin.Context) Draft {
	return ginDraft{s: sessions.Default(c)}
}

type ginDraft struct {
	s sessions.Session
}

func (d ginDraft) State() (State, bool) {
	figures, ok := d.s.Get(figuresKey).([]string)
	if !ok {
		return State{}, false
	}
	st := State{Figures: figures}
	if id, ok := d.s.Get(storyIDKey).(uint); ok {
		st.StoryID = &id
	}
	return st, true
}

func (d ginDraft) Begin(st State) error {
	d.s.Set(figuresKey, st.Figures)
	if st.StoryID != nil {
		d.s.Set(storyIDKey, *st.StoryID)
	} else {
		d.s.Delete(storyIDKey)
	}
	return d.s.Save()
}

func (d ginDraft) Clear() error {
	d.s.Delete(figuresKey)
	d.s.Delete(storyIDKey)
	return d.s.Save()
}
