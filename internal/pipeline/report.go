package pipeline

import (
	"bytes"
	"encoding/csv"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

const reportDateLayout = "2006-01-02"

// Table is one report file of a batch.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Tables returns every report of the batch: one forecast table per advised
// product followed by the summary, advice, advice summary and skip tables.
func Tables(r *BatchResult) []Table {
	tables := make([]Table, 0, len(r.Forecasts)+4)
	for _, f := range r.Forecasts {
		tables = append(tables, predictionTable(f.ProductID, f))
	}
	return append(tables,
		predictionSummaryTable(r),
		adviceTable(r),
		adviceSummaryTable(r),
		skippedTable(r),
	)
}

// PredictionFileName is the report name of one product's forecast.
func PredictionFileName(productID string) string {
	return "predictions_" + productID + ".csv"
}

// Round1 renders v with one decimal. Non-finite values are written as
// "inf", "-inf" or "nan".
func Round1(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return "nan"
	}
	return decimal.NewFromFloat(v).Round(1).StringFixed(1)
}

// Round1Float is Round1 for numeric consumers; non-finite values pass through.
func Round1Float(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(1).Float64()
	return f
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// EncodeCSV renders a table as CSV bytes.
func EncodeCSV(t Table) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(t.Header); err != nil {
		return nil, err
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
