package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"

	"transcript-archive/internal/config"
	"transcript-archive/internal/index"
)

var opts struct {
	Episodes string `short:"e" long:"episodes" env:"TRANSCRIPTS_EPISODES_DIR" default:"data/episodes" description:"directory of per-episode transcript folders"`
	Output   string `short:"o" long:"output" env:"TRANSCRIPTS_INDEX_FILE" default:"data/index.json" description:"path of the index file to write"`
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

	logger := log.New(os.Stdout, "build-index ", log.LstdFlags|log.Lmsgprefix)

	episodesDir, err := config.ExpandPath(opts.Episodes)
	if err != nil {
		logger.Fatalf("resolve episodes directory: %v", err)
	}

	outputPath, err := config.ExpandPath(opts.Output)
	if err != nil {
		logger.Fatalf("resolve output path: %v", err)
	}

	idx, err := index.Build(episodesDir, logger)
	if err != nil {
		logger.Fatalf("build index: %v", err)
	}

	if err := index.Write(idx, outputPath); err != nil {
		logger.Fatalf("write index: %v", err)
	}

	logger.Printf("index built: %d episodes, %d keywords -> %s", idx.TotalEpisodes, len(idx.AllKeywords), filepath.Base(outputPath))

	top := idx.Episodes
	if len(top) > 5 {
		top = top[:5]
	}
	for i, episode := range top {
		logger.Printf("top %d: %s - %d views", i+1, episode.Guest, episode.ViewCount)
	}
}
