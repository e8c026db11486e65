package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"transcript-archive/internal/chat"
	"transcript-archive/internal/config"
	"transcript-archive/internal/server"
	"transcript-archive/internal/settings"
	"transcript-archive/internal/store"
)

var opts struct {
	Listen         string `short:"l" long:"listen" env:"TRANSCRIPTS_LISTEN_ADDR" default:"127.0.0.1:8080" description:"listen address (localhost only)"`
	DataDir        string `short:"d" long:"data" env:"TRANSCRIPTS_DATA_DIR" default:"data" description:"directory containing index.json and episodes/"`
	StaticDir      string `long:"static" env:"TRANSCRIPTS_STATIC_DIR" default:"" description:"directory of static frontend files to serve at /"`
	SettingsDB     string `long:"settings-db" env:"TRANSCRIPTS_SETTINGS_DB" default:"var/settings.bdb" description:"bolt db file for persisted chat settings"`
	DebounceMS     int    `long:"refresh-debounce-ms" env:"TRANSCRIPTS_REFRESH_DEBOUNCE_MS" default:"500" description:"delay before reloading a rebuilt index"`
	AnthropicModel string `long:"anthropic-model" env:"TRANSCRIPTS_ANTHROPIC_MODEL" default:"" description:"model id for the anthropic provider"`
	OpenAIModel    string `long:"openai-model" env:"TRANSCRIPTS_OPENAI_MODEL" default:"" description:"model id for the openai provider"`
	MaxTokens      int    `long:"max-tokens" env:"TRANSCRIPTS_MAX_TOKENS" default:"1024" description:"response size cap for chat replies"`
}

func main() {
	parser := flags.NewParser(&opts, flags.PassDoubleDash|flags.HelpFlag)
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
			os.Exit(2)
		}
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}

	logger := log.New(os.Stdout, "transcript-archive ", log.LstdFlags|log.Lmsgprefix)

	if err := config.ValidateListenAddr(opts.Listen); err != nil {
		logger.Fatalf("invalid listen address %q: %v", opts.Listen, err)
	}

	dataRoot, err := config.ExpandPath(opts.DataDir)
	if err != nil {
		logger.Fatalf("resolve data directory: %v", err)
	}

	debounce := config.RefreshDebounce(opts.DebounceMS)

	episodeStore, err := store.New(dataRoot, debounce, logger)
	if err != nil {
		logger.Fatalf("initialise episode store: %v", err)
	}
	defer func() {
		if err := episodeStore.Close(); err != nil {
			logger.Printf("error closing episode store: %v", err)
		}
	}()

	settingsPath, err := config.ExpandPath(opts.SettingsDB)
	if err != nil {
		logger.Fatalf("resolve settings db path: %v", err)
	}
	if err := config.EnsureParentDir(settingsPath); err != nil {
		logger.Fatalf("create settings db directory: %v", err)
	}

	settingsStore, err := settings.Open(settingsPath)
	if err != nil {
		logger.Fatalf("initialise settings store: %v", err)
	}
	defer func() {
		if err := settingsStore.Close(); err != nil {
			logger.Printf("error closing settings store: %v", err)
		}
	}()

	providers := map[string]chat.Provider{
		chat.ProviderAnthropic: chat.NewAnthropic(nil, opts.AnthropicModel, opts.MaxTokens),
		chat.ProviderOpenAI:    chat.NewOpenAI(nil, opts.OpenAIModel, opts.MaxTokens),
	}
	session := chat.NewSession(providers, logger)

	persisted, err := settingsStore.Load()
	if err != nil {
		logger.Fatalf("load persisted settings: %v", err)
	}
	if persisted.Provider == "" {
		persisted.Provider = chat.ProviderAnthropic
	}
	if err := session.Configure(persisted.Provider, persisted.APIKey); err != nil {
		logger.Fatalf("configure chat session: %v", err)
	}

	var staticDir string
	if opts.StaticDir != "" {
		staticDir, err = config.ExpandPath(opts.StaticDir)
		if err != nil {
			logger.Fatalf("resolve static directory: %v", err)
		}
	}

	handler := server.New(episodeStore, session, settingsStore, dataRoot, staticDir, logger)
	httpServer := &http.Server{
		Addr:              opts.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("graceful shutdown error: %v", err)
		}
	}()

	logger.Printf("listening on %s (data directory: %s)", opts.Listen, dataRoot)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("http server error: %v", err)
	}
	logger.Println("shutdown complete")
}
