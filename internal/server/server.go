package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	pathpkg "path"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"transcript-archive/internal/chat"
	"transcript-archive/internal/models"
	"transcript-archive/internal/pipeline"
	"transcript-archive/internal/settings"
	"transcript-archive/internal/store"
)

// EpisodeSource abstracts the episode corpus for the HTTP handlers.
type EpisodeSource interface {
	Episodes() []models.EpisodeRecord
	Keywords() []string
	TotalEpisodes() int
	Get(slug string) (models.EpisodeRecord, error)
	Transcript(slug string) (string, error)
}

// Chatter is the chat session surface used by the handlers.
type Chatter interface {
	Ask(ctx context.Context, message string, appContext chat.Context) (string, error)
	Configure(provider, apiKey string) error
	History() []chat.Turn
	Reset()
}

// SettingsStore persists the chat configuration across sessions.
type SettingsStore interface {
	Load() (settings.Settings, error)
	Save(settings.Settings) error
}

type serverHandler struct {
	source   EpisodeSource
	chatter  Chatter
	settings SettingsStore
	dataRoot string
	logger   *log.Logger
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// New creates the HTTP handler exposing the archive API, the raw transcript
// files, and (when configured) the static frontend.
func New(source EpisodeSource, chatter Chatter, settingsStore SettingsStore, dataRoot, staticDir string, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.Default()
	}

	cleanRoot := filepath.Clean(dataRoot)
	absRoot, err := filepath.Abs(cleanRoot)
	if err != nil {
		logger.Printf("warning: unable to resolve absolute data root %q: %v", dataRoot, err)
		absRoot = cleanRoot
	}

	h := &serverHandler{
		source:   source,
		chatter:  chatter,
		settings: settingsStore,
		dataRoot: absRoot,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/api/episodes", h.handleEpisodes)
	mux.HandleFunc("/api/episodes/", h.handleEpisodeDetail)
	mux.HandleFunc("/api/settings", h.handleSettings)
	mux.HandleFunc("/api/chat", h.handleChat)
	mux.HandleFunc("/transcripts/", h.handleTranscriptFile)

	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}

	return logRequests(mux, logger)
}

func (h *serverHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, h.logger)
}

type episodesResponse struct {
	TotalEpisodes int                    `json:"total_episodes"`
	ShownEpisodes int                    `json:"shown_episodes"`
	Summary       string                 `json:"summary"`
	AllKeywords   []string               `json:"all_keywords"`
	Episodes      []models.EpisodeRecord `json:"episodes"`
}

func (h *serverHandler) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	sortMode, err := pipeline.ParseSortMode(query.Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	state := pipeline.FilterState{
		Keywords: splitKeywords(query["keywords"]),
		Query:    query.Get("q"),
		Sort:     sortMode,
	}

	total := h.source.TotalEpisodes()
	filtered := pipeline.Apply(h.source.Episodes(), state)

	writeJSON(w, http.StatusOK, episodesResponse{
		TotalEpisodes: total,
		ShownEpisodes: len(filtered),
		Summary:       pipeline.Summary(len(filtered), total),
		AllKeywords:   h.source.Keywords(),
		Episodes:      filtered,
	}, h.logger)
}

type episodeDetail struct {
	Episode    models.EpisodeRecord `json:"episode"`
	Transcript string               `json:"transcript"`
	HTML       string               `json:"html,omitempty"`
}

func (h *serverHandler) handleEpisodeDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	slug := strings.TrimPrefix(r.URL.Path, "/api/episodes/")
	if slug == "" || strings.Contains(slug, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	record, err := h.source.Get(slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "episode not found", h.logger)
			return
		}
		h.logger.Printf("episode lookup failed for %s: %v", slug, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	body, err := h.source.Transcript(slug)
	if err != nil {
		h.logger.Printf("transcript load failed for %s: %v", slug, err)
		writeError(w, http.StatusInternalServerError, "transcript unavailable", h.logger)
		return
	}

	detail := episodeDetail{Episode: record, Transcript: body}

	if r.URL.Query().Get("format") == "html" {
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(body), &buf); err != nil {
			h.logger.Printf("markdown render failed for %s: %v", slug, err)
			writeError(w, http.StatusInternalServerError, "transcript rendering failed", h.logger)
			return
		}
		detail.HTML = buf.String()
	}

	writeJSON(w, http.StatusOK, detail, h.logger)
}

func (h *serverHandler) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		current, err := h.settings.Load()
		if err != nil {
			h.logger.Printf("settings load failed: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, current, h.logger)

	case http.MethodPut:
		var updated settings.Settings
		if err := json.NewDecoder(r.Body).Decode(&updated); err != nil {
			writeError(w, http.StatusBadRequest, "malformed settings payload", h.logger)
			return
		}

		if err := h.chatter.Configure(updated.Provider, updated.APIKey); err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), h.logger)
			return
		}

		if err := h.settings.Save(updated); err != nil {
			h.logger.Printf("settings save failed: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, updated, h.logger)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type chatRequest struct {
	Message     string   `json:"message"`
	Keywords    []string `json:"keywords"`
	Query       string   `json:"query"`
	Sort        string   `json:"sort"`
	EpisodeSlug string   `json:"episode_slug"`
}

type chatResponse struct {
	Reply   string      `json:"reply"`
	History []chat.Turn `json:"history"`
}

func (h *serverHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleChatAsk(w, r)
	case http.MethodDelete:
		h.chatter.Reset()
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *serverHandler) handleChatAsk(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed chat payload", h.logger)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required", h.logger)
		return
	}

	sortMode, err := pipeline.ParseSortMode(req.Sort)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	state := pipeline.FilterState{Keywords: req.Keywords, Query: req.Query, Sort: sortMode}
	filtered := pipeline.Apply(h.source.Episodes(), state)

	var open *models.EpisodeRecord
	var transcript string
	if req.EpisodeSlug != "" {
		record, err := h.source.Get(req.EpisodeSlug)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "episode not found", h.logger)
				return
			}
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		body, err := h.source.Transcript(req.EpisodeSlug)
		if err != nil {
			h.logger.Printf("transcript load failed for %s: %v", req.EpisodeSlug, err)
			writeError(w, http.StatusInternalServerError, "transcript unavailable", h.logger)
			return
		}
		open = &record
		transcript = body
	}

	appContext := chat.BuildContext(h.source.TotalEpisodes(), filtered, req.Keywords, open, transcript)

	reply, err := h.chatter.Ask(r.Context(), req.Message, appContext)
	if err != nil {
		status, message := chatErrorStatus(err)
		writeError(w, status, message, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Reply: reply, History: h.chatter.History()}, h.logger)
}

func chatErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, chat.ErrNoAPIKey):
		return http.StatusUnauthorized, chat.ErrNoAPIKey.Error()
	case errors.Is(err, chat.ErrBusy):
		return http.StatusConflict, chat.ErrBusy.Error()
	case errors.Is(err, chat.ErrUnknownProvider):
		return http.StatusBadRequest, err.Error()
	}

	var providerErr *chat.ProviderError
	if errors.As(err, &providerErr) {
		return http.StatusBadGateway, providerErr.Error()
	}
	return http.StatusBadGateway, err.Error()
}

func (h *serverHandler) handleTranscriptFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	rel := strings.TrimPrefix(r.URL.Path, "/transcripts/")
	rel = pathpkg.Clean(rel)
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" || rel == "." {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	target := filepath.Join(h.dataRoot, filepath.FromSlash(rel))
	resolved, err := filepath.Abs(target)
	if err != nil {
		h.logger.Printf("failed to resolve transcript path %s: %v", target, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if !pathWithinRoot(h.dataRoot, resolved) {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	info, err := os.Stat(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.logger.Printf("failed to stat transcript file %s: %v", resolved, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if info.IsDir() {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	http.ServeFile(w, r, resolved)
}

func splitKeywords(values []string) []string {
	var result []string
	for _, value := range values {
		for _, keyword := range strings.Split(value, ",") {
			keyword = strings.TrimSpace(keyword)
			if keyword != "" {
				result = append(result, keyword)
			}
		}
	}
	return result
}

func writeJSON(w http.ResponseWriter, status int, payload any, logger *log.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Printf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, logger *log.Logger) {
	writeJSON(w, status, map[string]string{"error": message}, logger)
}

type statusWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

func logRequests(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)
		duration := time.Since(start)
		logger.Printf("%s %s -> %d (%dB) in %s", r.Method, r.URL.Path, sw.status, sw.size, duration)
	})
}

func pathWithinRoot(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	return rel != ".." && !strings.HasPrefix(rel, "../")
}
