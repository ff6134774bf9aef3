package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/voussoir/etiquette"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	dataDir := flag.String("data", ".", "catalog data directory")
	subcommand := os.Args[1]
	_ = flag.CommandLine.Parse(os.Args[2:])

	switch subcommand {
	case "ingest":
		runIngest(*dataDir, flag.Args())
	case "search":
		runSearch(*dataDir, flag.Args())
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: etiquette <ingest|search> [-data DIR] ...")
}

func openCatalog(dataDir string) *etiquette.PhotoDB {
	db, err := etiquette.Open(dataDir, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open catalog")
	}
	return db
}

func runIngest(dataDir string, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: etiquette ingest <directory>")
		os.Exit(1)
	}
	db := openCatalog(dataDir)
	defer db.Close()

	ctx := context.Background()
	result, err := db.DigestDirectory(ctx, args[0], etiquette.IngestOptions{Recurse: true, MakeAlbums: true})
	if err != nil {
		log.Fatal().Err(err).Msg("ingest failed")
	}
	log.Info().
		Int("new_photos", len(result.New)).
		Int("renamed_photos", len(result.Renamed)).
		Int("albums", len(result.Albums)).
		Int("failed", len(result.Failed)).
		Msg("ingest complete")
	for _, failure := range result.Failed {
		log.Warn().Str("path", failure.Path).Err(failure.Err).Msg("ingest skipped file")
	}
}

func runSearch(dataDir string, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: etiquette search <tag expression>")
		os.Exit(1)
	}
	db := openCatalog(dataDir)
	defer db.Close()

	ctx := context.Background()
	results, err := db.Search(ctx, etiquette.SearchParams{TagExpression: args[0], Limit: 100, YieldPhotos: true})
	if err != nil {
		log.Fatal().Err(err).Msg("search failed")
	}
	for _, photo := range results.Photos {
		fmt.Println(photo.Filepath)
	}
}
