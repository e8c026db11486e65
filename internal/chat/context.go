package chat

import (
	"fmt"
	"strings"

	"transcript-archive/internal/models"
)

const (
	// transcriptExcerptLimit caps the transcript excerpt included in the
	// outbound context so the request stays under provider input limits.
	transcriptExcerptLimit = 8000
	// contextEpisodeLimit caps the number of filtered episodes described in
	// the outbound context when no episode is open.
	contextEpisodeLimit = 10
)

// EpisodeContext is the slice of an episode record shared with a provider.
type EpisodeContext struct {
	Guest    string   `json:"guest"`
	Title    string   `json:"title"`
	Keywords []string `json:"keywords"`
}

// OpenEpisode describes the episode whose detail view is open, including a
// bounded excerpt of its transcript body.
type OpenEpisode struct {
	EpisodeContext
	TranscriptExcerpt string `json:"transcript_excerpt"`
}

// Context is the bounded summary of current archive state sent alongside a
// user's question. It is a fixed truncation of the live state, never a
// summarization.
type Context struct {
	TotalEpisodes     int              `json:"total_episodes"`
	FilteredEpisodes  int              `json:"filtered_episodes"`
	SelectedKeywords  []string         `json:"selected_keywords"`
	CurrentEpisode    *OpenEpisode     `json:"current_episode,omitempty"`
	AvailableEpisodes []EpisodeContext `json:"available_episodes,omitempty"`
}

// BuildContext assembles the outbound context from the current archive state.
// When an episode is open its transcript excerpt takes the place of the
// filtered episode listing.
func BuildContext(total int, filtered []models.EpisodeRecord, selected []string, open *models.EpisodeRecord, transcript string) Context {
	c := Context{
		TotalEpisodes:    total,
		FilteredEpisodes: len(filtered),
		SelectedKeywords: selected,
	}

	if open != nil {
		c.CurrentEpisode = &OpenEpisode{
			EpisodeContext:    episodeContext(*open),
			TranscriptExcerpt: truncate(transcript, transcriptExcerptLimit),
		}
		return c
	}

	limit := len(filtered)
	if limit > contextEpisodeLimit {
		limit = contextEpisodeLimit
	}
	for _, episode := range filtered[:limit] {
		c.AvailableEpisodes = append(c.AvailableEpisodes, episodeContext(episode))
	}
	return c
}

// SystemPrompt renders the context as the textual preamble sent to a provider.
func (c Context) SystemPrompt() string {
	var b strings.Builder

	b.WriteString("You are a helpful assistant for a podcast transcript archive. ")
	fmt.Fprintf(&b, "The archive contains %d episodes; the user's current view shows %d of them.\n", c.TotalEpisodes, c.FilteredEpisodes)

	if len(c.SelectedKeywords) > 0 {
		fmt.Fprintf(&b, "Selected keywords: %s\n", strings.Join(c.SelectedKeywords, ", "))
	}

	if c.CurrentEpisode != nil {
		fmt.Fprintf(&b, "\nThe user is reading the episode with %s: %q", c.CurrentEpisode.Guest, c.CurrentEpisode.Title)
		if len(c.CurrentEpisode.Keywords) > 0 {
			fmt.Fprintf(&b, " (keywords: %s)", strings.Join(c.CurrentEpisode.Keywords, ", "))
		}
		b.WriteString("\nTranscript excerpt:\n")
		b.WriteString(c.CurrentEpisode.TranscriptExcerpt)
		b.WriteString("\n")
		return b.String()
	}

	if len(c.AvailableEpisodes) > 0 {
		b.WriteString("\nEpisodes in the current view:\n")
		for _, episode := range c.AvailableEpisodes {
			fmt.Fprintf(&b, "- %s: %q", episode.Guest, episode.Title)
			if len(episode.Keywords) > 0 {
				fmt.Fprintf(&b, " [%s]", strings.Join(episode.Keywords, ", "))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\nAnswer questions about the episodes concisely, grounded in the context above.")
	return b.String()
}

func episodeContext(episode models.EpisodeRecord) EpisodeContext {
	return EpisodeContext{
		Guest:    episode.Guest,
		Title:    episode.Title,
		Keywords: episode.Keywords,
	}
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
