// Package export renders report and lab result lists as downloadable files.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/360EntSecGroup-Skylar/excelize"
)

// Format is an export file format.
type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
	XLSX Format = "xlsx"
)

// ParseFormat accepts csv, json or xlsx in any case. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", CSV:
		return CSV, nil
	case JSON:
		return JSON, nil
	case XLSX:
		return XLSX, nil
	}
	return "", fmt.Errorf("export: unsupported format %q", s)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case JSON:
		return "application/json"
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Dataset is a tabular view of a list plus the raw records for JSON.
type Dataset struct {
	Name    string
	Sheet   string
	Headers []string
	Rows    [][]string
	Records any
}

// File is a rendered export.
type File struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Render encodes d in the given format.
func Render(f Format, d Dataset) (*File, error) {
	var (
		body []byte
		err  error
	)
	switch f {
	case CSV:
		body, err = renderCSV(d)
	case JSON:
		body, err = renderJSON(d)
	case XLSX:
		body, err = renderXLSX(d)
	default:
		return nil, fmt.Errorf("export: unsupported format %q", f)
	}
	if err != nil {
		return nil, err
	}
	return &File{
		Filename:    fmt.Sprintf("%s.%s", d.Name, f),
		ContentType: f.ContentType(),
		Body:        body,
	}, nil
}

func renderCSV(d Dataset) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(d.Headers); err != nil {
		return nil, fmt.Errorf("export: write csv header: %w", err)
	}
	rows := make([][]string, len(d.Rows))
	for i, row := range d.Rows {
		rows[i] = make([]string, len(row))
		for j, v := range row {
			rows[i][j] = escapeFormula(v)
		}
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("export: write csv rows: %w", err)
	}
	return buf.Bytes(), nil
}

func renderJSON(d Dataset) ([]byte, error) {
	records := d.Records
	if records == nil {
		records = []any{}
	}
	body, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: marshal json: %w", err)
	}
	return body, nil
}

func renderXLSX(d Dataset) ([]byte, error) {
	sheet := d.Sheet
	if sheet == "" {
		sheet = "Export"
	}
	file := excelize.NewFile()
	index := file.NewSheet(sheet)
	file.DeleteSheet("Sheet1")
	file.SetActiveSheet(index)

	for col, h := range d.Headers {
		file.SetCellValue(sheet, cellName(col, 1), h)
	}
	if len(d.Headers) > 0 {
		if style, err := file.NewStyle(`{"font":{"bold":true}}`); err == nil {
			file.SetCellStyle(sheet, cellName(0, 1), cellName(len(d.Headers)-1, 1), style)
		}
	}
	for i, row := range d.Rows {
		for col, v := range row {
			file.SetCellValue(sheet, cellName(col, i+2), v)
		}
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("export: write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// cellName converts a zero-based column and one-based row to an A1 reference.
func cellName(col, row int) string {
	return excelize.ToAlphaString(col) + strconv.Itoa(row)
}

// escapeFormula keeps spreadsheet apps from evaluating a text cell that
// starts with a formula trigger. Plain numbers such as "-1.5" stay as they are.
func escapeFormula(v string) string {
	if v == "" || !strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return v
	}
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return v
	}
	return "'" + v
}
