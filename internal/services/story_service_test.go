package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/storymill/go-stories-backend/internal/domain"
	"github.com/storymill/go-stories-backend/internal/session"
)

// ----- Fake draft session -----

type fakeDraft struct {
	state    session.State
	active   bool
	beginErr error
	clearErr error

	begins int
	clears int
}

func (d *fakeDraft) State() (session.State, bool) { return d.state, d.active }

func (d *fakeDraft) Begin(st session.State) error {
	d.begins++
	if d.beginErr != nil {
		return d.beginErr
	}
	d.state, d.active = st, true
	return nil
}

func (d *fakeDraft) Clear() error {
	d.clears++
	if d.clearErr != nil {
		return d.clearErr
	}
	d.state, d.active = session.State{}, false
	return nil
}

var _ session.Draft = (*fakeDraft)(nil)

// ----- Helpers -----

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("service_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(&domain.Story{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedStory(t *testing.T, db *gorm.DB, s domain.Story) domain.Story {
	t.Helper()
	if err := db.Create(&s).Error; err != nil {
		t.Fatalf("seed story: %v", err)
	}
	return s
}

func mustStory(t *testing.T, db *gorm.DB, id uint) domain.Story {
	t.Helper()
	var s domain.Story
	if err := db.First(&s, id).Error; err != nil {
		t.Fatalf("load story %d: %v", id, err)
	}
	return s
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var testNow = time.Date(2025, time.June, 10, 14, 35, 42, 0, time.UTC)

func newStoryService(t *testing.T) *StoryService {
	t.Helper()
	return &StoryService{DB: newServiceDB(t), Now: fixedClock(testNow)}
}

func activeDraft(figures []string, storyID *uint) *fakeDraft {
	return &fakeDraft{state: session.State{Figures: figures, StoryID: storyID}, active: true}
}

// ----- StartDraft -----

func TestStartDraft_LoadsFiguresAndID(t *testing.T) {
	svc := newStoryService(t)
	st := seedStory(t, svc.DB, domain.Story{
		AuthorID: 3,
		Text:     "halfway there",
		Figures:  domain.EncodeFigures([]string{"beer", "cat", "dog"}),
		IsDraft:  true,
		Date:     testNow,
	})

	d := &fakeDraft{}
	if err := svc.StartDraft(context.Background(), d, 3, st.ID); err != nil {
		t.Fatalf("StartDraft: %v", err)
	}
	got, ok := d.State()
	if !ok {
		t.Fatal("expected an active session")
	}
	if got.StoryID == nil || *got.StoryID != st.ID {
		t.Fatalf("session story id = %v; want %d", got.StoryID, st.ID)
	}
	if len(got.Figures) != 3 || got.Figures[0] != "beer" {
		t.Fatalf("session figures = %v", got.Figures)
	}
}

func TestStartDraft_RejectsWrongAuthorPublishedAndMissing(t *testing.T) {
	svc := newStoryService(t)
	draft := seedStory(t, svc.DB, domain.Story{AuthorID: 3, Figures: "#x#", IsDraft: true, Date: testNow})
	published := seedStory(t, svc.DB, domain.Story{AuthorID: 3, Figures: "#x#", IsDraft: false, Date: testNow})

	cases := []struct {
		name    string
		userID  int64
		storyID uint
	}{
		{"wrong author", 4, draft.ID},
		{"already published", 3, published.ID},
		{"missing story", 3, 9999},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := &fakeDraft{}
			err := svc.StartDraft(context.Background(), d, tc.userID, tc.storyID)
			if !errors.Is(err, ErrInvalidDraftRequest) {
				t.Fatalf("err = %v; want ErrInvalidDraftRequest", err)
			}
			if d.begins != 0 {
				t.Fatal("session must stay untouched on rejection")
			}
		})
	}
}

func TestStartDraft_OverwritesPriorSession(t *testing.T) {
	svc := newStoryService(t)
	st := seedStory(t, svc.DB, domain.Story{AuthorID: 7, Figures: "#moon#", IsDraft: true, Date: testNow})

	d := activeDraft([]string{"old", "words"}, nil)
	if err := svc.StartDraft(context.Background(), d, 7, st.ID); err != nil {
		t.Fatalf("StartDraft: %v", err)
	}
	got, _ := d.State()
	if len(got.Figures) != 1 || got.Figures[0] != "moon" {
		t.Fatalf("expected prior session replaced, got figures %v", got.Figures)
	}
}

// ----- BeginNew -----

func TestBeginNew(t *testing.T) {
	svc := newStoryService(t)

	t.Run("valid words", func(t *testing.T) {
		d := &fakeDraft{}
		if err := svc.BeginNew(d, []string{"beer", "cat"}); err != nil {
			t.Fatalf("BeginNew: %v", err)
		}
		got, ok := d.State()
		if !ok || got.StoryID != nil || len(got.Figures) != 2 {
			t.Fatalf("unexpected session state %+v active=%v", got, ok)
		}
	})

	t.Run("padded words are stored trimmed", func(t *testing.T) {
		d := &fakeDraft{}
		if err := svc.BeginNew(d, []string{" beer ", "\tcat"}); err != nil {
			t.Fatalf("BeginNew: %v", err)
		}
		got, _ := d.State()
		if len(got.Figures) != 2 || got.Figures[0] != "beer" || got.Figures[1] != "cat" {
			t.Fatalf("session figures = %v; want [beer cat]", got.Figures)
		}

		// A story using the bare words must publish; padding in the
		// begin request can never make its figures unmatchable.
		res, err := svc.Write(context.Background(), d, 5, "The cat stole my beer.", false)
		if err != nil {
			t.Fatalf("Write: %v", err)
		}
		if res.Status != StatusNewPublished {
			t.Fatalf("status = %q", res.Status)
		}
		if got := mustStory(t, svc.DB, res.StoryID); got.Figures != "#beer#cat#" {
			t.Fatalf("stored figures = %q", got.Figures)
		}
	})

	t.Run("empty list", func(t *testing.T) {
		if err := svc.BeginNew(&fakeDraft{}, nil); !errors.Is(err, ErrNoFigures) {
			t.Fatalf("err = %v; want ErrNoFigures", err)
		}
	})

	t.Run("blank word", func(t *testing.T) {
		if err := svc.BeginNew(&fakeDraft{}, []string{"beer", "  "}); !errors.Is(err, ErrNoFigures) {
			t.Fatalf("err = %v; want ErrNoFigures", err)
		}
	})

	t.Run("delimiter in word", func(t *testing.T) {
		if err := svc.BeginNew(&fakeDraft{}, []string{"be#er"}); !errors.Is(err, ErrNoFigures) {
			t.Fatalf("err = %v; want ErrNoFigures", err)
		}
	})
}

// ----- Write dispatch -----

func TestWrite_NoSession(t *testing.T) {
	svc := newStoryService(t)
	_, err := svc.Write(context.Background(), &fakeDraft{}, 1, "text", true)
	if !errors.Is(err, ErrNoSession) {
		t.Fatalf("err = %v; want ErrNoSession", err)
	}
}

func TestWrite_CreateDraft(t *testing.T) {
	svc := newStoryService(t)
	d := activeDraft([]string{"beer", "cat"}, nil)

	res, err := svc.Write(context.Background(), d, 5, "just notes so far", true)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if res.Status != StatusDraftCreated || !res.Created {
		t.Fatalf("result = %+v", res)
	}

	got := mustStory(t, svc.DB, res.StoryID)
	if !got.IsDraft {
		t.Fatal("expected a draft")
	}
	if got.AuthorID != 5 || got.Text != "just notes so far" {
		t.Fatalf("stored story = %+v", got)
	}
	if got.Figures != "#beer#cat#" {
		t.Fatalf("figures = %q", got.Figures)
	}
	if d.clears != 1 {
		t.Fatalf("session clears = %d; want 1", d.clears)
	}
}

func TestWrite_CreateDraft_SkipsValidation(t *testing.T) {
	svc := newStoryService(t)
	d := activeDraft([]string{"beer", "cat", "dog"}, nil)

	// None of the required words appear; draft saves must not care.
	res, err := svc.Write(context.Background(), d, 5, "unrelated scribble", true)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if res.Status != StatusDraftCreated {
		t.Fatalf("status = %q", res.Status)
	}
}

func TestWrite_UpdateDraft(t *testing.T) {
	svc := newStoryService(t)
	st := seedStory(t, svc.DB, domain.Story{
		AuthorID: 3,
		Text:     "old text",
		Figures:  "#beer#",
		IsDraft:  true,
		Date:     date(2025, time.January, 1),
	})
	d := activeDraft([]string{"beer"}, &st.ID)

	res, err := svc.Write(context.Background(), d, 3, "new text", true)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if res.Status != StatusDraftUpdated || res.Created {
		t.Fatalf("result = %+v", res)
	}

	got := mustStory(t, svc.DB, st.ID)
	if got.Text != "new text" || !got.IsDraft {
		t.Fatalf("stored story = %+v", got)
	}
	if want := testNow.Truncate(time.Minute); !got.Date.Equal(want) {
		t.Fatalf("date = %v; want %v (minute precision)", got.Date, want)
	}
	if d.clears != 1 {
		t.Fatalf("session clears = %d; want 1", d.clears)
	}
}

func TestWrite_PublishNew(t *testing.T) {
	svc := newStoryService(t)
	d := activeDraft([]string{"beer", "cat", "dog"}, nil)

	res, err := svc.Write(context.Background(), d, 5, "My neighbour's dog chased the cat, then we all had a beer.", false)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if res.Status != StatusNewPublished || !res.Created {
		t.Fatalf("result = %+v", res)
	}

	got := mustStory(t, svc.DB, res.StoryID)
	if got.IsDraft {
		t.Fatal("expected a published story")
	}
	if d.clears != 1 {
		t.Fatalf("session clears = %d; want 1", d.clears)
	}
}

func TestWrite_PublishNew_MissingWords(t *testing.T) {
	svc := newStoryService(t)
	d := activeDraft([]string{"beer", "cat", "dog"}, nil)

	_, err := svc.Write(context.Background(), d, 5, "The dog chased the cat up a gin-soaked tree.", false)
	var missing *MissingWordsError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v; want MissingWordsError", err)
	}
	if len(missing.Words) != 1 || missing.Words[0] != "beer" {
		t.Fatalf("missing = %v; want [beer]", missing.Words)
	}

	// Nothing written, session intact for a retry.
	var count int64
	svc.DB.Model(&domain.Story{}).Count(&count)
	if count != 0 {
		t.Fatalf("stories persisted = %d; want 0", count)
	}
	if d.clears != 0 {
		t.Fatal("session must survive a failed publish")
	}
	if _, ok := d.State(); !ok {
		t.Fatal("session no longer active")
	}
}

func TestWrite_PublishDraft(t *testing.T) {
	svc := newStoryService(t)
	st := seedStory(t, svc.DB, domain.Story{
		AuthorID: 3,
		Text:     "draft text",
		Figures:  "#beer#cat#",
		IsDraft:  true,
		Date:     date(2025, time.January, 1),
	})
	d := activeDraft([]string{"beer", "cat"}, &st.ID)

	res, err := svc.Write(context.Background(), d, 3, "The cat drank my beer.", false)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if res.Status != StatusDraftPublished || res.StoryID != st.ID {
		t.Fatalf("result = %+v", res)
	}

	got := mustStory(t, svc.DB, st.ID)
	if got.IsDraft {
		t.Fatal("draft flag not cleared")
	}
	if got.Text != "The cat drank my beer." {
		t.Fatalf("text = %q", got.Text)
	}
	if want := testNow.Truncate(time.Minute); !got.Date.Equal(want) {
		t.Fatalf("date = %v; want %v", got.Date, want)
	}
}

func TestWrite_PublishDraft_ValidatesStoredFigures(t *testing.T) {
	svc := newStoryService(t)
	st := seedStory(t, svc.DB, domain.Story{
		AuthorID: 3,
		Figures:  "#beer#cat#dog#",
		IsDraft:  true,
		Date:     testNow,
	})
	// Session carries a stale, smaller word set; the stored one governs.
	d := activeDraft([]string{"beer"}, &st.ID)

	_, err := svc.Write(context.Background(), d, 3, "Just the beer.", false)
	var missing *MissingWordsError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v; want MissingWordsError", err)
	}
	if len(missing.Words) != 2 {
		t.Fatalf("missing = %v; want [cat dog]", missing.Words)
	}
	if got := mustStory(t, svc.DB, st.ID); !got.IsDraft {
		t.Fatal("story must stay a draft after failed publish")
	}
}

func TestPublishDraft_AlreadyPublished(t *testing.T) {
	svc := newStoryService(t)
	st := seedStory(t, svc.DB, domain.Story{AuthorID: 3, Figures: "#beer#", IsDraft: false, Date: testNow})
	d := activeDraft([]string{"beer"}, &st.ID)

	_, err := svc.PublishDraft(context.Background(), d, "beer again")
	if !errors.Is(err, ErrStoryNotFound) {
		t.Fatalf("err = %v; want ErrStoryNotFound", err)
	}
}

func TestWrite_TooLong(t *testing.T) {
	svc := newStoryService(t)
	d := activeDraft([]string{"beer"}, nil)

	long := make([]rune, 1001)
	for i := range long {
		long[i] = 'a'
	}
	_, err := svc.Write(context.Background(), d, 1, string(long), false)
	if !errors.Is(err, ErrStoryTooLong) {
		t.Fatalf("err = %v; want ErrStoryTooLong", err)
	}
}

// The session flow from the docs: begin, fail a publish, retry, succeed,
// then a second write without a session fails.
func TestWrite_SessionConsumedOnce(t *testing.T) {
	svc := newStoryService(t)
	d := &fakeDraft{}
	if err := svc.BeginNew(d, []string{"beer", "cat", "dog"}); err != nil {
		t.Fatalf("BeginNew: %v", err)
	}

	if _, err := svc.Write(context.Background(), d, 5, "no required words here", false); err == nil {
		t.Fatal("expected a validation failure")
	}

	res, err := svc.Write(context.Background(), d, 5, "dog cat beer", false)
	if err != nil {
		t.Fatalf("retry Write: %v", err)
	}
	if res.Status != StatusNewPublished {
		t.Fatalf("status = %q", res.Status)
	}

	if _, err := svc.Write(context.Background(), d, 5, "dog cat beer", false); !errors.Is(err, ErrNoSession) {
		t.Fatalf("second write err = %v; want ErrNoSession", err)
	}
}

// ----- WriteByID -----

func TestWriteByID(t *testing.T) {
	svc := newStoryService(t)
	st := seedStory(t, svc.DB, domain.Story{
		AuthorID: 3,
		Text:     "draft",
		Figures:  "#beer#",
		IsDraft:  true,
		Date:     date(2025, time.January, 1),
	})

	t.Run("save draft", func(t *testing.T) {
		res, err := svc.WriteByID(context.Background(), st.ID, 3, "revised", true)
		if err != nil {
			t.Fatalf("WriteByID: %v", err)
		}
		if res.Status != StatusDraftUpdated {
			t.Fatalf("status = %q", res.Status)
		}
		if got := mustStory(t, svc.DB, st.ID); got.Text != "revised" || !got.IsDraft {
			t.Fatalf("stored story = %+v", got)
		}
	})

	t.Run("wrong author", func(t *testing.T) {
		if _, err := svc.WriteByID(context.Background(), st.ID, 4, "x", true); !errors.Is(err, ErrNotAuthor) {
			t.Fatalf("err = %v; want ErrNotAuthor", err)
		}
	})

	t.Run("missing story", func(t *testing.T) {
		if _, err := svc.WriteByID(context.Background(), 9999, 3, "x", true); !errors.Is(err, ErrStoryNotFound) {
			t.Fatalf("err = %v; want ErrStoryNotFound", err)
		}
	})

	t.Run("publish validates", func(t *testing.T) {
		if _, err := svc.WriteByID(context.Background(), st.ID, 3, "no required word", false); err == nil {
			t.Fatal("expected a validation failure")
		}
		res, err := svc.WriteByID(context.Background(), st.ID, 3, "one last beer", false)
		if err != nil {
			t.Fatalf("WriteByID publish: %v", err)
		}
		if res.Status != StatusDraftPublished {
			t.Fatalf("status = %q", res.Status)
		}
		if got := mustStory(t, svc.DB, st.ID); got.IsDraft {
			t.Fatal("draft flag not cleared")
		}
	})

	t.Run("published is terminal", func(t *testing.T) {
		if _, err := svc.WriteByID(context.Background(), st.ID, 3, "again", true); !errors.Is(err, ErrNotAuthor) {
			t.Fatalf("err = %v; want ErrNotAuthor", err)
		}
	})
}

// ----- Delete -----

func TestDelete(t *testing.T) {
	svc := newStoryService(t)
	st := seedStory(t, svc.DB, domain.Story{AuthorID: 3, Figures: "#x#", IsDraft: false, Date: testNow})

	if err := svc.Delete(context.Background(), 4, st.ID); !errors.Is(err, ErrNotAuthor) {
		t.Fatalf("wrong author err = %v; want ErrNotAuthor", err)
	}
	if err := svc.Delete(context.Background(), 3, st.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(context.Background(), 3, st.ID); !errors.Is(err, ErrStoryNotFound) {
		t.Fatalf("second delete err = %v; want ErrStoryNotFound", err)
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
