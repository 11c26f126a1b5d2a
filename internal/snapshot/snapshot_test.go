package snapshot

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/storage"
)

const salesCSV = `product_id,date,sales_quantity,stock_level,day_of_week,month,year,is_weekend,sales_7d_avg,stock_to_sales_ratio
P001,2024-03-01,5,100,4,3,2024,0,4.5,16.6
P001,2024-03-03,7,90,6,3,2024,1,5.0,11.25
P001,2024-03-02,6,95,5,3,2024,1,4.8,13.5
P002,2024-03-02 00:00:00,2,40,5,3,2024,True,2.0,13.3
`

func TestParseSalesKeepsLatestRowPerProduct(t *testing.T) {
	s, err := ParseSales(strings.NewReader(salesCSV))
	require.NoError(t, err)

	assert.Equal(t, []string{"P001", "P002"}, s.ProductIDs())
	assert.Equal(t, time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), s.LastKnownDate)

	row, err := s.Latest("P001")
	require.NoError(t, err)
	assert.Equal(t, 90.0, row.StockLevel)
	assert.Equal(t, 5.0, row.Sales7dAvg)
	assert.Equal(t, 6, row.DayOfWeek)

	row, err = s.Latest("P002")
	require.NoError(t, err)
	assert.Equal(t, 1, row.IsWeekend)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), row.Date)
}

func TestLastKnownDateIsGlobalMaximum(t *testing.T) {
	s := New([]domain.FeatureRow{
		{ProductID: "A", Date: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)},
		{ProductID: "B", Date: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
	})
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), s.LastKnownDate)
}

func TestLatestMissingProduct(t *testing.T) {
	s, err := ParseSales(strings.NewReader(salesCSV))
	require.NoError(t, err)

	_, err = s.Latest("P404")
	assert.True(t, errors.Is(err, domain.ErrSnapshotMissing))
}

func TestParseSalesRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"missing column": "product_id,date\nP1,2024-01-01\n",
		"bad date":       strings.Replace(salesCSV, "2024-03-01", "03/01/2024", 1),
		"bad number":     strings.Replace(salesCSV, ",4.5,", ",abc,", 1),
		"empty":          "",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSales(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseSalesRejectsNonFiniteValues(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		line string
	}{
		{name: "nan average", doc: strings.Replace(salesCSV, ",4.5,", ",NaN,", 1), line: "sales line 2: sales_7d_avg"},
		{name: "inf stock level", doc: strings.Replace(salesCSV, ",7,90,", ",7,Inf,", 1), line: "sales line 3: stock_level"},
		{name: "negative infinity ratio", doc: strings.Replace(salesCSV, ",13.3\n", ",-Infinity\n", 1), line: "sales line 5: stock_to_sales_ratio"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSales(strings.NewReader(tc.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.line)
			assert.Contains(t, err.Error(), "non-finite")
		})
	}
}

func TestParseCurrentStockRejectsNonFiniteValues(t *testing.T) {
	_, err := ParseCurrentStock(strings.NewReader("product_id,current_stock\nP001,12\nP002,Infinity\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "current_stock for P002")

	_, err = ParseCurrentStock(strings.NewReader("product_id,current_stock\nP001,nan\n"))
	assert.Error(t, err)
}

func TestDeriveCurrentStockAndRoundTrip(t *testing.T) {
	s, err := ParseSales(strings.NewReader(salesCSV))
	require.NoError(t, err)

	table := DeriveCurrentStock(s)
	assert.Equal(t, StockTable{"P001": 90, "P002": 40}, table)

	var buf bytes.Buffer
	require.NoError(t, WriteCurrentStock(&buf, table))
	assert.Equal(t, "product_id,current_stock\nP001,90\nP002,40\n", buf.String())

	parsed, err := ParseCurrentStock(&buf)
	require.NoError(t, err)
	assert.Equal(t, table, parsed)
}

func TestStockLookupMissing(t *testing.T) {
	table := StockTable{"P001": 12}

	v, err := table.Lookup("P001")
	require.NoError(t, err)
	assert.Equal(t, 12.0, v)

	_, err = table.Lookup("P002")
	assert.True(t, errors.Is(err, domain.ErrStockMissing))
}

func TestStorageSource(t *testing.T) {
	ctx := context.Background()
	objects, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, objects.UploadObject(ctx, "data/processed_sales.csv", []byte(salesCSV)))
	require.NoError(t, objects.UploadObject(ctx, "data/current_stock.csv", []byte("product_id,current_stock\nP001,50\n")))

	src := &StorageSource{Objects: objects, SalesKey: "data/processed_sales.csv", StockKey: "data/current_stock.csv"}

	s, err := src.ReadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	stock, err := src.ReadCurrentStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, StockTable{"P001": 50}, stock)

	src.SalesKey = "data/missing.csv"
	_, err = src.ReadSnapshot(ctx)
	assert.True(t, errors.Is(err, storage.ErrObjectNotFound))
}

func TestReadSalesRowsKeepsEveryRow(t *testing.T) {
	rows, err := ReadSalesRows(strings.NewReader(salesCSV))
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "P001", rows[2].ProductID)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), rows[2].Date)
}

func salesWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	reader := csv.NewReader(strings.NewReader(salesCSV))
	records, err := reader.ReadAll()
	require.NoError(t, err)
	for i, record := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		values := make([]interface{}, len(record))
		for j, v := range record {
			values[j] = v
		}
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &values))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestStorageSourceReadsWorkbook(t *testing.T) {
	ctx := context.Background()
	objects, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, objects.UploadObject(ctx, "processed_sales.xlsx", salesWorkbook(t)))

	src := &StorageSource{Objects: objects, SalesKey: "processed_sales.xlsx"}
	s, err := src.ReadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"P001", "P002"}, s.ProductIDs())
	assert.Equal(t, time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), s.LastKnownDate)

	rows, err := src.ReadSalesRows(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestIsWorkbook(t *testing.T) {
	assert.True(t, IsWorkbook("data/Sales.XLSX"))
	assert.False(t, IsWorkbook("data/sales.csv"))
	_, err := WorkbookToCSV([]byte("not a workbook"))
	assert.Error(t, err)
}
