package snapshot

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/storage"
)

var salesColumns = []string{
	"product_id", "date", "sales_quantity", "stock_level",
	"day_of_week", "month", "year", "is_weekend",
	"sales_7d_avg", "stock_to_sales_ratio",
}

var stockColumns = []string{"product_id", "current_stock"}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseSales reads the cleaned sales table. Extra columns are ignored.
func ParseSales(r io.Reader) (*Snapshot, error) {
	s := New(nil)
	if err := EachSalesRow(r, func(row domain.FeatureRow) error {
		s.add(row)
		return nil
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// ReadSalesRows returns every row of the sales table in file order.
func ReadSalesRows(r io.Reader) ([]domain.FeatureRow, error) {
	var rows []domain.FeatureRow
	if err := EachSalesRow(r, func(row domain.FeatureRow) error {
		rows = append(rows, row)
		return nil
	}); err != nil {
		return nil, err
	}
	return rows, nil
}

// EachSalesRow streams the sales table into fn, stopping at the first error.
func EachSalesRow(r io.Reader, fn func(domain.FeatureRow) error) error {
	reader := csv.NewReader(r)
	colMap, err := readHeader(reader, salesColumns)
	if err != nil {
		return err
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return fmt.Errorf("failed to read sales record: %w", err)
		}

		row, err := parseSalesRow(record, colMap)
		if err != nil {
			return fmt.Errorf("sales line %d: %w", line, err)
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

func parseSalesRow(record []string, colMap map[string]int) (domain.FeatureRow, error) {
	var row domain.FeatureRow
	var err error

	row.ProductID = strings.TrimSpace(record[colMap["product_id"]])
	if row.ProductID == "" {
		return row, fmt.Errorf("empty product_id")
	}
	if row.Date, err = parseDate(record[colMap["date"]]); err != nil {
		return row, err
	}

	floats := map[string]*float64{
		"sales_quantity":       &row.SalesQuantity,
		"stock_level":          &row.StockLevel,
		"sales_7d_avg":         &row.Sales7dAvg,
		"stock_to_sales_ratio": &row.StockToSalesRatio,
	}
	for col, dst := range floats {
		if *dst, err = parseFloat(record[colMap[col]]); err != nil {
			return row, fmt.Errorf("%s: %w", col, err)
		}
	}

	ints := map[string]*int{
		"day_of_week": &row.DayOfWeek,
		"month":       &row.Month,
		"year":        &row.Year,
		"is_weekend":  &row.IsWeekend,
	}
	for col, dst := range ints {
		if *dst, err = parseInt(record[colMap[col]]); err != nil {
			return row, fmt.Errorf("%s: %w", col, err)
		}
	}
	return row, nil
}

// ParseCurrentStock reads {product_id, current_stock} rows. A repeated
// product keeps its last value.
func ParseCurrentStock(r io.Reader) (StockTable, error) {
	reader := csv.NewReader(r)
	colMap, err := readHeader(reader, stockColumns)
	if err != nil {
		return nil, err
	}

	table := make(StockTable)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read stock record: %w", err)
		}
		id := strings.TrimSpace(record[colMap["product_id"]])
		if id == "" {
			return nil, fmt.Errorf("stock row with empty product_id")
		}
		v, err := parseFloat(record[colMap["current_stock"]])
		if err != nil {
			return nil, fmt.Errorf("current_stock for %s: %w", id, err)
		}
		table[id] = v
	}
	return table, nil
}

// WriteCurrentStock writes the table sorted by product id.
func WriteCurrentStock(w io.Writer, table StockTable) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(stockColumns); err != nil {
		return err
	}
	for _, l := range table.Levels() {
		if err := writer.Write([]string{l.ProductID, strconv.FormatFloat(l.CurrentStock, 'f', -1, 64)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func readHeader(reader *csv.Reader, required []string) (map[string]int, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	colMap := make(map[string]int, len(header))
	for i, col := range header {
		colMap[strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))] = i
	}
	for _, col := range required {
		if _, ok := colMap[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}
	return colMap, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

// parseInt also accepts float text and pandas booleans.
func parseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "true":
		return 1, nil
	case "false":
		return 0, nil
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// StorageSource reads the sales and stock tables as CSV or XLSX objects.
type StorageSource struct {
	Objects  storage.ObjectStorage
	SalesKey string
	StockKey string
}

func (s *StorageSource) ReadSnapshot(ctx context.Context) (*Snapshot, error) {
	data, err := s.readTable(ctx, s.SalesKey)
	if err != nil {
		return nil, fmt.Errorf("read sales table: %w", err)
	}
	return ParseSales(bytes.NewReader(data))
}

// ReadSalesRows returns the full sales table rather than the snapshot.
func (s *StorageSource) ReadSalesRows(ctx context.Context) ([]domain.FeatureRow, error) {
	data, err := s.readTable(ctx, s.SalesKey)
	if err != nil {
		return nil, fmt.Errorf("read sales table: %w", err)
	}
	return ReadSalesRows(bytes.NewReader(data))
}

func (s *StorageSource) ReadCurrentStock(ctx context.Context) (StockTable, error) {
	data, err := s.readTable(ctx, s.StockKey)
	if err != nil {
		return nil, fmt.Errorf("read current stock: %w", err)
	}
	return ParseCurrentStock(bytes.NewReader(data))
}

// readTable fetches key and converts workbooks to CSV.
func (s *StorageSource) readTable(ctx context.Context, key string) ([]byte, error) {
	data, err := s.Objects.GetObject(ctx, key)
	if err != nil {
		return nil, err
	}
	if IsWorkbook(key) {
		return WorkbookToCSV(data)
	}
	return data, nil
}

var (
	_ Reader      = (*StorageSource)(nil)
	_ StockReader = (*StorageSource)(nil)
)
