package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

func sample() Dataset {
	return Dataset{
		Name:    "berichte_2025-03-01",
		Sheet:   "Berichte",
		Headers: []string{"ID", "Titel", "Arzt"},
		Rows: [][]string{
			{"1", "Blutbild", "Dr. Müller"},
			{"2", "Röntgen, Thorax", "Dr. Schmidt"},
		},
		Records: []record{{ID: 1, Title: "Blutbild"}, {ID: 2, Title: "Röntgen, Thorax"}},
	}
}

func TestRenderCSV(t *testing.T) {
	f, err := Render(CSV, sample())
	require.NoError(t, err)
	assert.Equal(t, "berichte_2025-03-01.csv", f.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", f.ContentType)

	rows, err := csv.NewReader(bytes.NewReader(f.Body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ID", "Titel", "Arzt"}, rows[0])
	assert.Equal(t, "Röntgen, Thorax", rows[2][1])
}

func TestRenderJSON(t *testing.T) {
	f, err := Render(JSON, sample())
	require.NoError(t, err)
	assert.Equal(t, "application/json", f.ContentType)

	var got []record
	require.NoError(t, json.Unmarshal(f.Body, &got))
	assert.Len(t, got, 2)
	assert.Equal(t, "Blutbild", got[0].Title)
}

func TestRenderJSONEmpty(t *testing.T) {
	f, err := Render(JSON, Dataset{Name: "leer"})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(f.Body))
}

func TestRenderXLSX(t *testing.T) {
	f, err := Render(XLSX, sample())
	require.NoError(t, err)
	assert.Equal(t, "berichte_2025-03-01.xlsx", f.Filename)

	book, err := excelize.OpenReader(bytes.NewReader(f.Body))
	require.NoError(t, err)
	assert.Equal(t, "Titel", book.GetCellValue("Berichte", "B1"))
	assert.Equal(t, "Dr. Schmidt", book.GetCellValue("Berichte", "C3"))
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": CSV, "CSV": CSV, "json": JSON, " xlsx ": XLSX} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)
}

func TestCellName(t *testing.T) {
	assert.Equal(t, "A1", cellName(0, 1))
	assert.Equal(t, "AA2", cellName(26, 2))
	assert.Equal(t, "C7", cellName(2, 7))
}

func TestRenderCSVEscapesFormulas(t *testing.T) {
	d := Dataset{
		Name:    "labor",
		Headers: []string{"Test", "Wert", "Notiz"},
		Rows: [][]string{
			{"=HYPERLINK(\"http://evil\")", "-1.5", "@SUM(A1)"},
			{"+49 30 1234", "-", "Kalium"},
		},
	}
	f, err := Render(CSV, d)
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(f.Body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"'=HYPERLINK(\"http://evil\")", "-1.5", "'@SUM(A1)"}, rows[1])
	assert.Equal(t, []string{"'+49 30 1234", "'-", "Kalium"}, rows[2])
}
