package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"transcript-archive/internal/models"
)

// SortMode selects the ordering applied to the filtered episode list.
type SortMode int

const (
	// ByViews orders episodes by descending view count.
	ByViews SortMode = iota
	// ByDuration orders episodes by descending duration.
	ByDuration
	// ByGuestName orders episodes by ascending guest name, locale-aware.
	ByGuestName
)

// ParseSortMode maps the wire names used by the API onto a SortMode.
func ParseSortMode(value string) (SortMode, error) {
	switch value {
	case "", "views":
		return ByViews, nil
	case "duration":
		return ByDuration, nil
	case "guest":
		return ByGuestName, nil
	default:
		return ByViews, fmt.Errorf("unknown sort mode %q", value)
	}
}

// FilterState captures the user's current filter, search, and sort selection.
type FilterState struct {
	// Keywords must all be present on a record for it to survive (AND).
	Keywords []string
	// Query is matched case-insensitively as a substring of the record's
	// guest, title, description, and keywords.
	Query string
	Sort  SortMode
}

// Apply derives the displayed subset and order from the full episode list.
// It is a pure function: the input slice is never mutated and the result is a
// fresh slice.
func Apply(episodes []models.EpisodeRecord, state FilterState) []models.EpisodeRecord {
	result := make([]models.EpisodeRecord, 0, len(episodes))

	query := strings.ToLower(strings.TrimSpace(state.Query))
	for _, episode := range episodes {
		if !hasAllKeywords(episode, state.Keywords) {
			continue
		}
		if query != "" && !strings.Contains(searchText(episode), query) {
			continue
		}
		result = append(result, episode)
	}

	sortEpisodes(result, state.Sort)
	return result
}

// Summary renders the "showing N of M" stat for the derived subset.
func Summary(shown, total int) string {
	return fmt.Sprintf("Showing %d of %d episodes", shown, total)
}

func hasAllKeywords(episode models.EpisodeRecord, keywords []string) bool {
	for _, keyword := range keywords {
		if !episode.HasKeyword(keyword) {
			return false
		}
	}
	return true
}

func searchText(episode models.EpisodeRecord) string {
	parts := make([]string, 0, 3+len(episode.Keywords))
	parts = append(parts, episode.Guest, episode.Title, episode.Description)
	parts = append(parts, episode.Keywords...)
	return strings.ToLower(strings.Join(parts, " "))
}

func sortEpisodes(episodes []models.EpisodeRecord, mode SortMode) {
	switch mode {
	case ByDuration:
		sort.SliceStable(episodes, func(i, j int) bool {
			return episodes[i].DurationSeconds > episodes[j].DurationSeconds
		})
	case ByGuestName:
		collator := collate.New(language.English, collate.Loose)
		sort.SliceStable(episodes, func(i, j int) bool {
			return collator.CompareString(episodes[i].Guest, episodes[j].Guest) < 0
		})
	default:
		sort.SliceStable(episodes, func(i, j int) bool {
			return episodes[i].ViewCount > episodes[j].ViewCount
		})
	}
}
