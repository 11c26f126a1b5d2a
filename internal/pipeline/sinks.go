package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/replenish/internal/storage"
)

// CSVSink writes every report table into a directory.
type CSVSink struct {
	Dir string
}

func NewCSVSink(dir string) *CSVSink { return &CSVSink{Dir: dir} }

func (s *CSVSink) Name() string { return "csv" }

func (s *CSVSink) Write(ctx context.Context, result *BatchResult) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed creating output dir %s: %w", s.Dir, err)
	}
	for _, t := range Tables(result) {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := EncodeCSV(t)
		if err != nil {
			return fmt.Errorf("encode %s: %w", t.Name, err)
		}
		path := filepath.Join(s.Dir, t.Name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed writing %s: %w", path, err)
		}
	}
	log.Info().Str("dir", s.Dir).Int64("run_id", result.RunID).Msg("csv reports written")
	return nil
}

// ObjectStorageSink uploads the CSV reports below Prefix. Runs with an id
// go to <prefix>/runs/<id>/, others straight to <prefix>/.
type ObjectStorageSink struct {
	Objects storage.ObjectStorage
	Prefix  string
}

func NewObjectStorageSink(objects storage.ObjectStorage, prefix string) *ObjectStorageSink {
	return &ObjectStorageSink{Objects: objects, Prefix: prefix}
}

func (s *ObjectStorageSink) Name() string { return "object_storage" }

func (s *ObjectStorageSink) keyPrefix(result *BatchResult) string {
	if result.RunID > 0 {
		return storage.JoinKey(s.Prefix, "runs", strconv.FormatInt(result.RunID, 10))
	}
	return s.Prefix
}

func (s *ObjectStorageSink) Write(ctx context.Context, result *BatchResult) error {
	prefix := s.keyPrefix(result)
	for _, t := range Tables(result) {
		data, err := EncodeCSV(t)
		if err != nil {
			return fmt.Errorf("encode %s: %w", t.Name, err)
		}
		if err := s.Objects.UploadObject(ctx, storage.JoinKey(prefix, t.Name), data); err != nil {
			return err
		}
	}
	log.Info().Str("prefix", prefix).Int64("run_id", result.RunID).Msg("reports uploaded")
	return nil
}

// XLSXSink writes the advice, summaries and skips as sheets of one workbook.
type XLSXSink struct {
	Path string
}

func NewXLSXSink(path string) *XLSXSink { return &XLSXSink{Path: path} }

func (s *XLSXSink) Name() string { return "xlsx" }

var xlsxSheets = map[string]string{
	"inventory_advice.csv":         "Advice",
	"inventory_advice_summary.csv": "Summary",
	"prediction_summary.csv":       "Forecast Summary",
	"skipped_products.csv":         "Skipped",
}

func (s *XLSXSink) Write(ctx context.Context, result *BatchResult) error {
	f := excelize.NewFile()
	defer f.Close()

	first := true
	for _, t := range Tables(result) {
		sheet, ok := xlsxSheets[t.Name]
		if !ok {
			continue
		}
		if first {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
			first = false
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
		if err := writeSheet(f, sheet, t); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("failed creating directory for %s: %w", s.Path, err)
	}
	if err := f.SaveAs(s.Path); err != nil {
		return fmt.Errorf("failed to save xlsx file %s: %w", s.Path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, t Table) error {
	rows := append([][]string{t.Header}, t.Rows...)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = xlsxValue(v)
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// xlsxValue stores finite numbers as numbers so the sheet stays sortable.
func xlsxValue(v string) interface{} {
	if n, err := strconv.ParseFloat(v, 64); err == nil && v != "inf" && v != "nan" && v != "-inf" {
		return n
	}
	return v
}

// MultiSink writes to every sink and joins their errors.
type MultiSink []ResultSink

func (m MultiSink) Name() string { return "multi" }

func (m MultiSink) Write(ctx context.Context, result *BatchResult) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Write(ctx, result); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}
