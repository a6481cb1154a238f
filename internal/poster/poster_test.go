package poster

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/atlasov/club_portal/internal/clock"
	"github.com/atlasov/club_portal/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func occurrence(title string, start time.Time, teamIDs ...uuid.UUID) *model.EventOccurrence {
	end := start.Add(90 * time.Minute)
	return &model.EventOccurrence{
		Event: &model.Event{
			ID:      uuid.New(),
			Title:   title,
			TeamIDs: teamIDs,
			StartAt: start,
		},
		Start:   start,
		End:     &end,
		DateKey: start.Format("2006-01-02"),
	}
}

func TestWeekPoster(t *testing.T) {
	team := &model.Team{ID: uuid.New(), Name: "Первая команда", ShortName: "I", Color: "#3366cc"}
	now := time.Date(2024, 6, 12, 15, 30, 0, 0, time.UTC)

	// Без пути к шрифту рисуем встроенным basicfont
	gen := NewGenerator("", time.UTC, clock.NewFixed(now), zap.NewNop())

	occurrences := []*model.EventOccurrence{
		occurrence("Тренировка", time.Date(2024, 6, 11, 18, 0, 0, 0, time.UTC), team.ID),
		occurrence("Матч", time.Date(2024, 6, 15, 14, 0, 0, 0, time.UTC)),
	}
	allDay := occurrence("Турнир", time.Date(2024, 6, 13, 0, 0, 0, 0, time.UTC))
	allDay.Event.AllDay = true
	allDay.End = nil
	occurrences = append(occurrences, allDay)

	data, err := gen.WeekPoster(now, occurrences, []*model.Team{team})
	if err != nil {
		t.Fatalf("WeekPoster: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != imageWidth || bounds.Dy() != imageHeight {
		t.Errorf("poster size = %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), imageWidth, imageHeight)
	}
}

func TestWeekPosterEmptyWeek(t *testing.T) {
	now := time.Date(2024, 6, 12, 15, 30, 0, 0, time.UTC)
	gen := NewGenerator("", time.UTC, clock.NewFixed(now), zap.NewNop())

	data, err := gen.WeekPoster(now, nil, nil)
	if err != nil {
		t.Fatalf("WeekPoster: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("poster is empty")
	}
}

func TestParseHexColor(t *testing.T) {
	fallback := defaultEventColor

	got := parseHexColor("#3366cc", fallback)
	if got.R != 0x33 || got.G != 0x66 || got.B != 0xcc {
		t.Errorf("parseHexColor(#3366cc) = %+v", got)
	}

	for _, bad := range []string{"", "3366cc", "#33cc", "#zzzzzz"} {
		if got := parseHexColor(bad, fallback); got != fallback {
			t.Errorf("parseHexColor(%q) = %+v, want fallback", bad, got)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("короткое", 20); got != "короткое" {
		t.Errorf("truncate = %q, want unchanged", got)
	}
	got := truncate("очень длинное название события", 12)
	if len([]rune(got)) != 12 {
		t.Errorf("truncate length = %d runes (%q), want 12", len([]rune(got)), got)
	}
}
