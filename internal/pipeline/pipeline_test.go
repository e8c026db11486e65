package pipeline

import (
	"reflect"
	"testing"

	"transcript-archive/internal/models"
)

func testEpisodes() []models.EpisodeRecord {
	return []models.EpisodeRecord{
		{
			Slug:            "growth-one",
			Guest:           "Brian Chesky",
			Title:           "Designing for growth",
			Description:     "How product teams grow",
			Keywords:        []string{"growth"},
			DurationSeconds: 3600,
			ViewCount:       500,
		},
		{
			Slug:            "pricing-talk",
			Guest:           "April Dunford",
			Title:           "Pricing and positioning",
			Description:     "Positioning deep dive",
			Keywords:        []string{"pricing", "growth"},
			DurationSeconds: 5400,
			ViewCount:       900,
		},
		{
			Slug:            "hiring-talk",
			Guest:           "Claire Hughes Johnson",
			Title:           "Hiring operators",
			Description:     "Scaling teams",
			Keywords:        []string{"hiring"},
			DurationSeconds: 4200,
			ViewCount:       700,
		},
	}
}

func slugs(episodes []models.EpisodeRecord) []string {
	result := make([]string, len(episodes))
	for i, episode := range episodes {
		result[i] = episode.Slug
	}
	return result
}

func TestKeywordFilterANDSemantics(t *testing.T) {
	episodes := testEpisodes()

	result := Apply(episodes, FilterState{Keywords: []string{"growth"}})
	if got := slugs(result); !reflect.DeepEqual(got, []string{"pricing-talk", "growth-one"}) {
		t.Fatalf("unexpected growth filter result: %v", got)
	}
	for _, episode := range result {
		if !episode.HasKeyword("growth") {
			t.Fatalf("episode %s missing selected keyword", episode.Slug)
		}
	}

	result = Apply(episodes, FilterState{Keywords: []string{"growth", "pricing"}})
	if got := slugs(result); !reflect.DeepEqual(got, []string{"pricing-talk"}) {
		t.Fatalf("expected AND across keywords, got %v", got)
	}
}

func TestRemovingKeywordNeverShrinksResult(t *testing.T) {
	episodes := testEpisodes()

	narrow := Apply(episodes, FilterState{Keywords: []string{"growth", "pricing"}})
	wide := Apply(episodes, FilterState{Keywords: []string{"growth"}})

	if len(wide) < len(narrow) {
		t.Fatalf("removing a keyword shrank the result: %d -> %d", len(narrow), len(wide))
	}
}

func TestSearchFilterIsIdempotent(t *testing.T) {
	episodes := testEpisodes()
	state := FilterState{Query: "positioning"}

	once := Apply(episodes, state)
	twice := Apply(once, state)

	if !reflect.DeepEqual(slugs(once), slugs(twice)) {
		t.Fatalf("search not idempotent: %v vs %v", slugs(once), slugs(twice))
	}
}

func TestSearchMatchesGuestCaseInsensitively(t *testing.T) {
	episodes := testEpisodes()

	result := Apply(episodes, FilterState{Query: "chesky"})
	if got := slugs(result); !reflect.DeepEqual(got, []string{"growth-one"}) {
		t.Fatalf("expected only the Chesky episode, got %v", got)
	}
}

func TestSearchMatchesKeywordsAndDescription(t *testing.T) {
	episodes := testEpisodes()

	result := Apply(episodes, FilterState{Query: "hiring"})
	if got := slugs(result); !reflect.DeepEqual(got, []string{"hiring-talk"}) {
		t.Fatalf("expected keyword match, got %v", got)
	}

	result = Apply(episodes, FilterState{Query: "deep dive"})
	if got := slugs(result); !reflect.DeepEqual(got, []string{"pricing-talk"}) {
		t.Fatalf("expected description match, got %v", got)
	}
}

func TestSortByViewsDescending(t *testing.T) {
	result := Apply(testEpisodes(), FilterState{Sort: ByViews})
	for i := 1; i < len(result); i++ {
		if result[i-1].ViewCount < result[i].ViewCount {
			t.Fatalf("views not descending at %d: %v", i, slugs(result))
		}
	}
}

func TestSortByDurationDescending(t *testing.T) {
	result := Apply(testEpisodes(), FilterState{Sort: ByDuration})
	for i := 1; i < len(result); i++ {
		if result[i-1].DurationSeconds < result[i].DurationSeconds {
			t.Fatalf("duration not descending at %d: %v", i, slugs(result))
		}
	}
}

func TestSortByGuestNameAscending(t *testing.T) {
	result := Apply(testEpisodes(), FilterState{Sort: ByGuestName})
	if got := slugs(result); !reflect.DeepEqual(got, []string{"pricing-talk", "growth-one", "hiring-talk"}) {
		t.Fatalf("unexpected guest order: %v", got)
	}
}

func TestSortModeNeverChangesMembership(t *testing.T) {
	episodes := testEpisodes()
	state := FilterState{Keywords: []string{"growth"}}

	membership := func(mode SortMode) map[string]bool {
		state.Sort = mode
		result := make(map[string]bool)
		for _, episode := range Apply(episodes, state) {
			result[episode.Slug] = true
		}
		return result
	}

	byViews := membership(ByViews)
	for _, mode := range []SortMode{ByDuration, ByGuestName} {
		if !reflect.DeepEqual(byViews, membership(mode)) {
			t.Fatalf("sort mode %v changed set membership", mode)
		}
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	episodes := testEpisodes()
	original := slugs(episodes)

	Apply(episodes, FilterState{Sort: ByGuestName, Keywords: []string{"growth"}})

	if !reflect.DeepEqual(slugs(episodes), original) {
		t.Fatalf("input slice was reordered: %v", slugs(episodes))
	}
}

func TestParseSortMode(t *testing.T) {
	cases := map[string]SortMode{
		"":         ByViews,
		"views":    ByViews,
		"duration": ByDuration,
		"guest":    ByGuestName,
	}
	for value, want := range cases {
		got, err := ParseSortMode(value)
		if err != nil {
			t.Fatalf("ParseSortMode(%q): %v", value, err)
		}
		if got != want {
			t.Fatalf("ParseSortMode(%q) = %v, want %v", value, got, want)
		}
	}

	if _, err := ParseSortMode("alphabetical"); err == nil {
		t.Fatalf("expected error for unknown sort mode")
	}
}

func TestSummary(t *testing.T) {
	if got := Summary(2, 3); got != "Showing 2 of 3 episodes" {
		t.Fatalf("unexpected summary: %q", got)
	}
}
