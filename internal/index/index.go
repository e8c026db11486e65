package index

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"transcript-archive/internal/models"
)

const (
	// TranscriptFilename is the expected transcript file inside each episode directory.
	TranscriptFilename = "transcript.md"

	previewLines = 3
	previewChars = 300
)

type frontmatterFields struct {
	Guest           string   `yaml:"guest"`
	Title           string   `yaml:"title"`
	YoutubeURL      string   `yaml:"youtube_url"`
	VideoID         string   `yaml:"video_id"`
	Description     string   `yaml:"description"`
	Duration        string   `yaml:"duration"`
	DurationSeconds int      `yaml:"duration_seconds"`
	ViewCount       int      `yaml:"view_count"`
	Keywords        []string `yaml:"keywords"`
}

// Build scans the episodes directory and produces the index document. Each
// subdirectory is expected to contain a transcript.md with YAML frontmatter;
// directories without one, or with malformed metadata, are skipped with a
// warning rather than failing the whole build.
func Build(episodesDir string, logger *log.Logger) (*models.Index, error) {
	if logger == nil {
		logger = log.Default()
	}

	entries, err := os.ReadDir(episodesDir)
	if err != nil {
		return nil, fmt.Errorf("read episodes directory: %w", err)
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}
	sort.Strings(dirs)

	episodes := make([]models.EpisodeRecord, 0, len(dirs))
	keywordSet := make(map[string]struct{})

	for _, slug := range dirs {
		path := filepath.Join(episodesDir, slug, TranscriptFilename)
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Printf("warning: no %s found in %s", TranscriptFilename, slug)
			continue
		}

		record, err := buildRecord(slug, string(data))
		if err != nil {
			logger.Printf("warning: could not parse %s/%s: %v", slug, TranscriptFilename, err)
			continue
		}

		episodes = append(episodes, record)
		for _, keyword := range record.Keywords {
			keywordSet[keyword] = struct{}{}
		}
	}

	// Most viewed first, matching the order the archive is browsed in.
	sort.SliceStable(episodes, func(i, j int) bool {
		return episodes[i].ViewCount > episodes[j].ViewCount
	})

	allKeywords := make([]string, 0, len(keywordSet))
	for keyword := range keywordSet {
		allKeywords = append(allKeywords, keyword)
	}
	sort.Strings(allKeywords)

	return &models.Index{
		TotalEpisodes: len(episodes),
		AllKeywords:   allKeywords,
		Episodes:      episodes,
	}, nil
}

func buildRecord(slug, content string) (models.EpisodeRecord, error) {
	front, body, found := SplitFrontmatter(content)
	if !found {
		return models.EpisodeRecord{}, fmt.Errorf("missing frontmatter block")
	}

	var meta frontmatterFields
	if err := yaml.Unmarshal([]byte(front), &meta); err != nil {
		return models.EpisodeRecord{}, fmt.Errorf("parse frontmatter: %w", err)
	}

	if meta.Guest == "" {
		meta.Guest = "Unknown"
	}
	if meta.Title == "" {
		meta.Title = "Untitled"
	}

	return models.EpisodeRecord{
		Slug:             slug,
		Guest:            meta.Guest,
		Title:            meta.Title,
		YoutubeURL:       meta.YoutubeURL,
		VideoID:          meta.VideoID,
		Description:      strings.TrimSpace(meta.Description),
		Duration:         meta.Duration,
		DurationSeconds:  meta.DurationSeconds,
		ViewCount:        meta.ViewCount,
		Keywords:         meta.Keywords,
		Preview:          buildPreview(body),
		TranscriptPath:   "episodes/" + slug + "/" + TranscriptFilename,
		TranscriptLength: len(body),
	}, nil
}

// buildPreview joins the first few content lines after the heading lines into
// a short teaser, truncated to a fixed character budget.
func buildPreview(body string) string {
	lines := strings.Split(strings.TrimSpace(body), "\n")

	var collected []string
	// The first two lines carry the document title and transcript heading.
	for i := 2; i < len(lines) && len(collected) < previewLines; i++ {
		line := strings.TrimSpace(lines[i])
		if line != "" {
			collected = append(collected, line)
		}
	}

	preview := strings.Join(collected, " ")
	if runes := []rune(preview); len(runes) > previewChars {
		preview = string(runes[:previewChars])
	}
	return preview + "..."
}

// Write marshals the index document as indented JSON to the given path,
// creating parent directories as needed.
func Write(idx *models.Index, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, append(data, '\n'), 0o644)
}
