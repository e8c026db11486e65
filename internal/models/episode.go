package models

// EpisodeRecord represents one episode's metadata entry in the pre-built index.
// Records are immutable after load; identity is the slug.
type EpisodeRecord struct {
	Slug             string   `json:"slug"`
	Guest            string   `json:"guest"`
	Title            string   `json:"title"`
	YoutubeURL       string   `json:"youtube_url"`
	VideoID          string   `json:"video_id"`
	Description      string   `json:"description"`
	Duration         string   `json:"duration"`
	DurationSeconds  int      `json:"duration_seconds"`
	ViewCount        int      `json:"view_count"`
	Keywords         []string `json:"keywords"`
	Preview          string   `json:"preview"`
	TranscriptPath   string   `json:"transcript_path"`
	TranscriptLength int      `json:"transcript_length"`
}

// HasKeyword reports whether the record carries the given keyword.
func (e EpisodeRecord) HasKeyword(keyword string) bool {
	for _, k := range e.Keywords {
		if k == keyword {
			return true
		}
	}
	return false
}

// Index is the single pre-built document enumerating all episode records and
// the global keyword vocabulary.
type Index struct {
	TotalEpisodes int             `json:"total_episodes"`
	LastUpdated   *string         `json:"last_updated"`
	AllKeywords   []string        `json:"all_keywords"`
	Episodes      []EpisodeRecord `json:"episodes"`
}
