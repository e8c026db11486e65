package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"transcript-archive/internal/index"
	"transcript-archive/internal/models"
)

// IndexFilename is the pre-built index document inside the data directory.
const IndexFilename = "index.json"

// ErrNotFound is returned when no episode record matches the requested slug.
var ErrNotFound = errors.New("episode not found")

// Store holds the episode corpus loaded from the index document and keeps it
// current when the index is rebuilt on disk.
type Store struct {
	dataRoot  string
	indexPath string
	watcher   *fsnotify.Watcher
	logger    *log.Logger

	mu     sync.RWMutex
	idx    models.Index
	bySlug map[string]models.EpisodeRecord

	refreshMu    sync.Mutex
	refreshTimer *time.Timer
	refreshDelay time.Duration

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// New loads the index document from the data directory and starts watching it
// for rebuilds. The initial load must succeed; a missing or malformed index
// is fatal to the caller.
func New(dataRoot string, debounce time.Duration, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	s := &Store{
		dataRoot:     filepath.Clean(dataRoot),
		indexPath:    filepath.Join(filepath.Clean(dataRoot), IndexFilename),
		watcher:      watcher,
		logger:       logger,
		refreshDelay: debounce,
		done:         make(chan struct{}),
	}

	if err := s.refresh(); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("load index: %w", err)
	}

	if err := watcher.Add(s.dataRoot); err != nil {
		watcher.Close()
		return nil, err
	}

	s.wg.Add(1)
	go s.run()

	return s, nil
}

// Close stops the index watcher and releases resources.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)

		s.refreshMu.Lock()
		if s.refreshTimer != nil {
			s.refreshTimer.Stop()
			s.refreshTimer = nil
		}
		s.refreshMu.Unlock()

		s.closeErr = s.watcher.Close()
		s.wg.Wait()
	})
	return s.closeErr
}

// Episodes returns a snapshot of the full episode list.
func (s *Store) Episodes() []models.EpisodeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.EpisodeRecord, len(s.idx.Episodes))
	copy(result, s.idx.Episodes)
	return result
}

// Keywords returns a snapshot of the global keyword vocabulary.
func (s *Store) Keywords() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]string, len(s.idx.AllKeywords))
	copy(result, s.idx.AllKeywords)
	return result
}

// TotalEpisodes returns the episode count recorded in the index document.
func (s *Store) TotalEpisodes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx.TotalEpisodes
}

// Get looks up the episode record for the given slug.
func (s *Store) Get(slug string) (models.EpisodeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.bySlug[slug]
	if !ok {
		return models.EpisodeRecord{}, fmt.Errorf("%w: %s", ErrNotFound, slug)
	}
	return record, nil
}

// Transcript reads the transcript file for the given slug and returns its
// body text. A leading metadata block delimited by marker lines is stripped;
// when the marker pattern is absent the entire file is the body.
func (s *Store) Transcript(slug string) (string, error) {
	record, err := s.Get(slug)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dataRoot, filepath.FromSlash(record.TranscriptPath))
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read transcript for %s: %w", slug, err)
	}

	_, body, _ := index.SplitFrontmatter(string(data))
	return body, nil
}

func (s *Store) run() {
	defer s.wg.Done()

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(event)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Printf("index watcher error: %v", err)
		case <-s.done:
			return
		}
	}
}

func (s *Store) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != s.indexPath {
		return
	}

	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
		s.scheduleRefresh()
	}
}

func (s *Store) scheduleRefresh() {
	select {
	case <-s.done:
		return
	default:
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if s.refreshTimer != nil {
		s.refreshTimer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(s.refreshDelay, func() {
		if err := s.refresh(); err != nil {
			s.logger.Printf("index refresh error: %v", err)
		}

		s.refreshMu.Lock()
		if s.refreshTimer == timer {
			s.refreshTimer = nil
		}
		s.refreshMu.Unlock()
	})

	s.refreshTimer = timer
}

func (s *Store) refresh() error {
	data, err := os.ReadFile(s.indexPath)
	if err != nil {
		return err
	}

	var idx models.Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return fmt.Errorf("parse %s: %w", IndexFilename, err)
	}

	bySlug := make(map[string]models.EpisodeRecord, len(idx.Episodes))
	for _, record := range idx.Episodes {
		if strings.TrimSpace(record.Slug) == "" {
			return fmt.Errorf("parse %s: episode with empty slug", IndexFilename)
		}
		bySlug[record.Slug] = record
	}

	s.mu.Lock()
	s.idx = idx
	s.bySlug = bySlug
	s.mu.Unlock()

	s.logger.Printf("index loaded with %d episodes, %d keywords", len(idx.Episodes), len(idx.AllKeywords))
	return nil
}
