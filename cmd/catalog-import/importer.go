package main

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/pos-billing/internal/domain/product"
)

const (
	bloomMinCapacity = 10_000
	bloomFPR         = 0.001
	maxLineSize      = 1 << 20
	progressEvery    = 10_000
	queueSize        = 256
)

// catalog is the subset of the product repository the importer needs.
type catalog interface {
	Names(ctx context.Context) ([]string, error)
	NameExists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, p *product.Product) error
}

type stats struct {
	inserted   int
	duplicates int
	invalid    int
}

// importer inserts products whose names are not yet in the catalog. The
// bloom filter holds every known name in lower case; a hit is confirmed
// against the database since the filter may report false positives.
type importer struct {
	store  catalog
	known  *bloom.BloomFilter
	seen   map[string]struct{}
	dryRun bool
	stats  stats
}

func newImporter(ctx context.Context, store catalog, dryRun bool) (*importer, error) {
	names, err := store.Names(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load existing names")
	}
	filter := bloom.NewWithEstimates(uint(max(bloomMinCapacity, 4*len(names))), bloomFPR)
	for _, name := range names {
		filter.AddString(normalizeName(name))
	}
	slog.Info("loaded existing catalog", slog.Int("products", len(names)))

	return &importer{
		store:  store,
		known:  filter,
		seen:   make(map[string]struct{}),
		dryRun: dryRun,
	}, nil
}

type record struct {
	line    int
	product product.Product
	err     error
}

// importFile parses path in one goroutine and inserts in another so that
// decompression overlaps with database round trips.
func (imp *importer) importFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrap(err, "create gzip reader")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	records := make(chan record, queueSize)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(records)
		return parseRecords(ctx, r, records)
	})
	g.Go(func() error {
		for rec := range records {
			if err := imp.handle(ctx, path, rec); err != nil {
				return err
			}
		}
		return nil
	})
	return g.Wait()
}

func (imp *importer) handle(ctx context.Context, path string, rec record) error {
	if rec.err != nil {
		imp.stats.invalid++
		slog.Warn("skipping invalid record",
			slog.String("file", path),
			slog.Int("line", rec.line),
			slog.String("error", rec.err.Error()),
		)
		return nil
	}

	p := rec.product
	key := normalizeName(p.Name)
	if _, ok := imp.seen[key]; ok {
		imp.stats.duplicates++
		return nil
	}
	if imp.known.TestString(key) {
		exists, err := imp.store.NameExists(ctx, p.Name)
		if err != nil {
			return errors.Wrapf(err, "line %d", rec.line)
		}
		if exists {
			imp.stats.duplicates++
			imp.seen[key] = struct{}{}
			return nil
		}
	}

	if !imp.dryRun {
		if err := imp.store.Create(ctx, &p); err != nil {
			return errors.Wrapf(err, "line %d: insert %q", rec.line, p.Name)
		}
	}
	imp.seen[key] = struct{}{}
	imp.known.AddString(key)
	imp.stats.inserted++
	if imp.stats.inserted%progressEvery == 0 {
		slog.Info("import progress", slog.String("file", path), slog.Int("inserted", imp.stats.inserted))
	}
	return nil
}

// parseRecords sends one record per non-blank line of r.
func parseRecords(ctx context.Context, r io.Reader, out chan<- record) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		p, err := parseProduct(raw)
		if err == nil {
			err = p.Validate()
		}
		select {
		case out <- record{line: line, product: p, err: err}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "scan")
	}
	return nil
}

// parseProduct decodes {"name","category","price","image"}. Price may be a
// number or a numeric string.
func parseProduct(raw []byte) (product.Product, error) {
	var (
		p        product.Product
		hasPrice bool
	)
	err := jx.DecodeBytes(raw).ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "name":
			v, err := d.Str()
			p.Name = strings.TrimSpace(v)
			return err
		case "category":
			v, err := d.Str()
			p.Category = strings.TrimSpace(v)
			return err
		case "image":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := d.Str()
			p.Image = strings.TrimSpace(v)
			return err
		case "price":
			var err error
			p.Price, err = decodePrice(d)
			hasPrice = err == nil
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return p, errors.Wrap(err, "decode")
	}
	if !hasPrice {
		return p, &product.ValidationError{Field: "price", Reason: "required"}
	}
	return p, nil
}

func decodePrice(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.Number:
		f, err := d.Float64()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromFloat(f), nil
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(strings.TrimSpace(s))
	default:
		return decimal.Decimal{}, errors.New("price must be a number")
	}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
