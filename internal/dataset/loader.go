package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"insightportal/internal/apperr"
)

// LoadError describes why a data file produced no rows. Kind is one of
// apperr.CodeNotFound, apperr.CodeEmptyInput or apperr.CodeMalformedInput, so
// errors.Is(err, apperr.ErrNotFound) and friends work on it.
type LoadError struct {
	Kind apperr.Code
	Path string
	Msg  string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *LoadError) Unwrap() []error {
	errs := []error{apperr.New(e.Kind, e.Msg)}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func loadError(kind apperr.Code, path string, cause error, format string, args ...interface{}) *LoadError {
	return &LoadError{Kind: kind, Path: path, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// Load reads a .csv or .xlsx file into a Table. It never fails hard: on a
// missing, empty, or unparsable file it returns an empty table carrying
// expectedColumns together with a *LoadError.
func Load(path string, expectedColumns []string) (*Table, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Empty(expectedColumns), loadError(apperr.CodeNotFound, path, nil, "data file not found at %s", path)
		}
		return Empty(expectedColumns), loadError(apperr.CodeMalformedInput, path, err, "cannot read %s", path)
	}
	if info.IsDir() {
		return Empty(expectedColumns), loadError(apperr.CodeMalformedInput, path, nil, "%s is a directory", path)
	}
	if info.Size() == 0 {
		return Empty(expectedColumns), loadError(apperr.CodeEmptyInput, path, nil, "%s is empty", path)
	}

	var records [][]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		records, err = readCSV(path)
	case ".xlsx":
		records, err = readXLSX(path)
	default:
		return Empty(expectedColumns), loadError(apperr.CodeMalformedInput, path, nil, "unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return Empty(expectedColumns), loadError(apperr.CodeMalformedInput, path, err, "error reading %s", path)
	}

	records = dropBlankRows(records)
	if len(records) == 0 {
		return Empty(expectedColumns), loadError(apperr.CodeEmptyInput, path, nil, "%s is empty", path)
	}
	header := normalizeHeader(records[0])
	if len(records) == 1 {
		return Empty(header), loadError(apperr.CodeEmptyInput, path, nil, "%s has a header but no data rows", path)
	}
	return NewTable(header, records[1:]), nil
}

// MissingColumns lists the expected columns t lacks, in the order given.
func MissingColumns(t *Table, expected []string) []string {
	var missing []string
	for _, c := range expected {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		out[i] = h
	}
	return out
}

func dropBlankRows(records [][]string) [][]string {
	out := records[:0]
	for _, rec := range records {
		blank := true
		for _, v := range rec {
			if strings.TrimSpace(v) != "" {
				blank = false
				break
			}
		}
		if !blank {
			out = append(out, rec)
		}
	}
	return out
}
