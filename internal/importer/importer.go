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
	"storefront/internal/pricing"
)

type ProductWriter interface {
	UpsertBySKU(ctx context.Context, product domain.Product) (*domain.Product, bool, error)
}

// Columns read from the header row. Only sku, title, price and category are required.
var requiredColumns = []string{"sku", "title", "price", "category"}

// CSVImporter reads a product CSV and creates or updates active products keyed by SKU.
type CSVImporter struct {
	reader *csv.Reader
	repo   ProductWriter
	logger *zap.Logger
}

func NewCSVImporter(r io.Reader, repo ProductWriter, logger *zap.Logger) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVImporter{reader: csvr, repo: repo, logger: logger.Named("importer")}
}

type Result struct {
	Created int
	Updated int
}

func (r Result) Total() int { return r.Created + r.Updated }

// RowError reports the CSV line of a rejected row.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }
func (e *RowError) Unwrap() error { return e.Err }

// Run imports every row, stopping at the first invalid row or store failure.
func (i *CSVImporter) Run(ctx context.Context) (Result, error) {
	var res Result
	headers, err := i.reader.Read()
	if err != nil {
		return res, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return res, fmt.Errorf("missing column %q", col)
		}
	}

	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read row: %w", err)
		}
		line, _ := i.reader.FieldPos(0)
		if blank(record) {
			continue
		}

		p, err := parseRow(record, index)
		if err != nil {
			return res, &RowError{Line: line, Err: err}
		}
		_, created, err := i.repo.UpsertBySKU(ctx, p)
		if err != nil {
			return res, &RowError{Line: line, Err: fmt.Errorf("upsert %q: %w", p.SKU, err)}
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}
	i.logger.Info("import finished", zap.Int("created", res.Created), zap.Int("updated", res.Updated))
	return res, nil
}

func parseRow(record []string, index map[string]int) (domain.Product, error) {
	p := domain.Product{
		SKU:         pick(record, index, "sku"),
		Title:       pick(record, index, "title"),
		Description: pick(record, index, "description"),
		Category:    pick(record, index, "category"),
		Image:       pick(record, index, "image"),
		State:       domain.ProductActive,
		Tags:        splitTags(pick(record, index, "tags")),
	}
	if p.SKU == "" || p.Title == "" || p.Category == "" {
		return p, errors.New("sku, title and category are required")
	}
	if len([]rune(p.Title)) > domain.MaxTitleLength {
		return p, fmt.Errorf("title longer than %d characters", domain.MaxTitleLength)
	}
	if len([]rune(p.Description)) > domain.MaxDescriptionLength {
		return p, fmt.Errorf("description longer than %d characters", domain.MaxDescriptionLength)
	}

	price, err := decimal.NewFromString(pick(record, index, "price"))
	if err != nil {
		return p, fmt.Errorf("invalid price: %w", err)
	}
	if price.IsNegative() {
		return p, errors.New("price cannot be negative")
	}
	p.PriceCents = pricing.Cents(price)

	if s := pick(record, index, "stock"); s != "" {
		stock, err := strconv.Atoi(s)
		if err != nil || stock < 0 {
			return p, fmt.Errorf("invalid stock %q", s)
		}
		p.Stock = stock
	}
	if p.Image == "" {
		p.Image = domain.DefaultProductImage
	}
	return p, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
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

// splitTags accepts ";" or "|" separated tags.
func splitTags(v string) []string {
	fields := strings.FieldsFunc(v, func(r rune) bool { return r == ';' || r == '|' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
