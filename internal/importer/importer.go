// Package importer loads product CSV files into the catalog, upserting by slug.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"storefront/internal/domain"
	"storefront/internal/logger"
	productsvc "storefront/internal/service/product"
)

type ProductWriter interface {
	UpsertBySlug(ctx context.Context, p domain.Product) (*domain.Product, error)
}

// CSVImporter reads a header row followed by one product per row. Recognised columns:
// name, slug, description, price (major units) or priceCents, stock, image, category, featured.
type CSVImporter struct {
	reader *csv.Reader
	repo   ProductWriter
	logger *zap.Logger
}

func NewCSVImporter(r io.Reader, repo ProductWriter, log *zap.Logger) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{reader: csvr, repo: repo, logger: logger.OrNop(log).Named("importer")}
}

// Run upserts every row and returns the number of products written. The first bad row
// stops the import; rows before it stay written.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["name"]; !ok {
		return 0, errors.New("missing name column")
	}

	imported := 0
	line := 1
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return imported, fmt.Errorf("read row %d: %w", line, err)
		}
		if blank(record) {
			continue
		}

		p, err := parseRow(record, index)
		if err != nil {
			return imported, fmt.Errorf("row %d: %w", line, err)
		}
		saved, err := i.repo.UpsertBySlug(ctx, p)
		if err != nil {
			return imported, fmt.Errorf("upsert product %q: %w", p.Slug, err)
		}
		i.logger.Debug("imported", zap.String("slug", saved.Slug), zap.Int("row", line))
		imported++
	}
	i.logger.Info("import finished", zap.Int("products", imported))
	return imported, nil
}

func parseRow(record []string, index map[string]int) (domain.Product, error) {
	p := domain.Product{
		Name:        pick(record, index, "name"),
		Description: pick(record, index, "description"),
		Image:       pick(record, index, "image"),
		Category:    pick(record, index, "category"),
	}
	if len(p.Name) < 2 {
		return p, fmt.Errorf("name %q too short", p.Name)
	}

	p.Slug = productsvc.Slugify(pick(record, index, "slug"))
	if p.Slug == "" {
		p.Slug = productsvc.Slugify(p.Name)
	}
	if p.Slug == "" {
		return p, fmt.Errorf("cannot derive slug from %q", p.Name)
	}

	cents, err := priceCents(pick(record, index, "pricecents"), pick(record, index, "price"))
	if err != nil {
		return p, err
	}
	p.PriceCents = cents

	if s := pick(record, index, "stock"); s != "" {
		stock, err := strconv.Atoi(s)
		if err != nil || stock < 0 {
			return p, fmt.Errorf("invalid stock %q", s)
		}
		p.Stock = stock
	}

	switch strings.ToLower(pick(record, index, "featured")) {
	case "1", "true", "yes", "y":
		p.Featured = true
	}
	return p, nil
}

// priceCents prefers an integer cents column and otherwise converts a decimal price
// such as "12.5" or "12,50".
func priceCents(cents, price string) (int64, error) {
	if cents != "" {
		n, err := strconv.ParseInt(cents, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid priceCents %q", cents)
		}
		return n, nil
	}
	if price == "" {
		return 0, errors.New("missing price")
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(price, ",", "."))
	if err != nil || d.IsNegative() {
		return 0, fmt.Errorf("invalid price %q", price)
	}
	return d.Shift(2).Round(0).IntPart(), nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	return idx
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
