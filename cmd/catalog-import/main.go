// Command catalog-import bulk-loads products from JSON lines files, optionally
// gzip-compressed, skipping names already present in the catalog.
package main

import (
	"context"
	"flag"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/xenking/pos-billing/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		dryRun      bool
		logFile     string
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.BoolVar(&dryRun, "dry-run", false, "validate and report without inserting")
	flag.StringVar(&logFile, "log-file", "", "also write JSON logs to this file, rotated every 100 MB")
	flag.Usage = func() {
		_, _ = os.Stderr.WriteString("usage: catalog-import [flags] products.jsonl[.gz] ...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if logFile != "" {
		rotator := &lumberjack.Logger{Filename: logFile, MaxSize: 100, MaxBackups: 3, Compress: true}
		defer func() { _ = rotator.Close() }()
		slog.SetDefault(slog.New(slog.NewJSONHandler(io.MultiWriter(os.Stderr, rotator), nil)))
	}
	// DATABASE_URL may come from a local .env file.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("load .env", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, flag.Args(), dryRun); err != nil {
		slog.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, databaseURL string, files []string, dryRun bool) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	imp, err := newImporter(ctx, postgres.NewProductRepository(pool), dryRun)
	if err != nil {
		return errors.Wrap(err, "prepare importer")
	}
	for _, f := range files {
		if err := imp.importFile(ctx, f); err != nil {
			return errors.Wrapf(err, "import %s", f)
		}
	}

	s := imp.stats
	slog.Info("catalog import completed",
		slog.Int("inserted", s.inserted),
		slog.Int("duplicates", s.duplicates),
		slog.Int("invalid", s.invalid),
		slog.Bool("dry_run", dryRun),
	)
	return nil
}
