package repo

import (
	"context"
	"testing"
	"time"

	"github.com/storymill/go-stories-backend/internal/domain"
)

func TestPublishedStats_EmptyAndCounts(t *testing.T) {
	db := newStoryRepoDB(t, &domain.Story{})

	count, maxDate, err := PublishedStats(context.Background(), db)
	if err != nil {
		t.Fatalf("PublishedStats: %v", err)
	}
	if count != 0 || maxDate != nil {
		t.Fatalf("expected empty stats, got count=%d maxDate=%v", count, maxDate)
	}

	newest := date(2019, 10, 20)
	seedStory(t, db, domain.Story{AuthorID: 1, Text: "a", Figures: "#x#", IsDraft: false, Date: newest})
	seedStory(t, db, domain.Story{AuthorID: 2, Text: "b", Figures: "#x#", IsDraft: false, Date: date(2019, 10, 10)})
	seedStory(t, db, domain.Story{AuthorID: 3, Text: "draft", Figures: "#x#", IsDraft: true, Date: date(2019, 12, 1)})

	count, maxDate, err = PublishedStats(context.Background(), db)
	if err != nil {
		t.Fatalf("PublishedStats: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 published, got %d", count)
	}
	if maxDate == nil || !maxDate.Equal(newest) {
		t.Fatalf("expected max date %v, got %v", newest, maxDate)
	}
}

func TestAuthorStats_IncludesDrafts(t *testing.T) {
	db := newStoryRepoDB(t, &domain.Story{})

	count, maxDate, err := AuthorStats(context.Background(), db, 3)
	if err != nil || count != 0 || maxDate != nil {
		t.Fatalf("expected empty author stats, got count=%d maxDate=%v err=%v", count, maxDate, err)
	}

	newest := date(2019, 12, 1)
	seedStory(t, db, domain.Story{AuthorID: 3, Text: "pub", Figures: "#x#", IsDraft: false, Date: date(2011, 11, 11)})
	seedStory(t, db, domain.Story{AuthorID: 3, Text: "draft", Figures: "#x#", IsDraft: true, Date: newest})
	seedStory(t, db, domain.Story{AuthorID: 9, Text: "other", Figures: "#x#", IsDraft: false, Date: time.Now().UTC()})

	count, maxDate, err = AuthorStats(context.Background(), db, 3)
	if err != nil {
		t.Fatalf("AuthorStats: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 stories for author 3, got %d", count)
	}
	if maxDate == nil || !maxDate.Equal(newest) {
		t.Fatalf("expected max date %v, got %v", newest, maxDate)
	}
}
