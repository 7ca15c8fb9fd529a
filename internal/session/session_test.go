package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

// newSessionRouter exposes tiny endpoints around the Draft handle so the
// cookie round-trip is exercised end to end.
func newSessionRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware("stories_test", "secret"))

	r.POST("/begin", func(c *gin.Context) {
		var body struct {
			Figures []string `json:"figures"`
			StoryID *uint    `json:"story_id"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		if err := FromContext(c).Begin(State{Figures: body.Figures, StoryID: body.StoryID}); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})
	r.GET("/state", func(c *gin.Context) {
		st, ok := FromContext(c).State()
		if !ok {
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusOK, gin.H{"figures": st.Figures, "story_id": st.StoryID})
	})
	r.POST("/clear", func(c *gin.Context) {
		if err := FromContext(c).Clear(); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})
	return r
}

func do(t *testing.T, r *gin.Engine, method, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestDraft_NoStateWithoutBegin(t *testing.T) {
	r := newSessionRouter(t)
	w := do(t, r, http.MethodGet, "/state", "", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 without a session, got %d", w.Code)
	}
}

func TestDraft_BeginStateClearRoundTrip(t *testing.T) {
	r := newSessionRouter(t)

	w := do(t, r, http.MethodPost, "/begin", `{"figures":["beer","cat","dog"],"story_id":4}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("begin: %d", w.Code)
	}
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("expected a session cookie to be set")
	}

	w = do(t, r, http.MethodGet, "/state", "", cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("state: %d", w.Code)
	}
	var got struct {
		Figures []string `json:"figures"`
		StoryID *uint    `json:"story_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if len(got.Figures) != 3 || got.Figures[0] != "beer" {
		t.Fatalf("unexpected figures: %v", got.Figures)
	}
	if got.StoryID == nil || *got.StoryID != 4 {
		t.Fatalf("unexpected story id: %v", got.StoryID)
	}

	// Clear consumes the state; subsequent reads find nothing.
	w = do(t, r, http.MethodPost, "/clear", "", cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("clear: %d", w.Code)
	}
	cleared := w.Result().Cookies()
	w = do(t, r, http.MethodGet, "/state", "", cleared)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 after clear, got %d", w.Code)
	}
}

func TestDraft_BeginOverwritesPriorState(t *testing.T) {
	r := newSessionRouter(t)

	w := do(t, r, http.MethodPost, "/begin", `{"figures":["old"],"story_id":1}`, nil)
	cookies := w.Result().Cookies()

	// A second Begin replaces figures and drops the story id: last write wins.
	w = do(t, r, http.MethodPost, "/begin", `{"figures":["fresh"]}`, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("second begin: %d", w.Code)
	}
	cookies = w.Result().Cookies()

	w = do(t, r, http.MethodGet, "/state", "", cookies)
	var got struct {
		Figures []string `json:"figures"`
		StoryID *uint    `json:"story_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if len(got.Figures) != 1 || got.Figures[0] != "fresh" || got.StoryID != nil {
		t.Fatalf("expected overwritten state, got %+v", got)
	}
}
