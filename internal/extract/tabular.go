package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/lumina/internal/models"
)

// recordText renders a row as "header: value" lines.
func recordText(headers, row []string) string {
	var b strings.Builder
	for i, h := range headers {
		v := ""
		if i < len(row) {
			v = row[i]
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.TrimSpace(h))
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(v))
	}
	return b.String()
}

// rowsToDocuments treats the first row as headers and emits one document per data row.
// Row numbers are zero-based over data rows.
func rowsToDocuments(rows [][]string, source string, extra map[string]interface{}) []models.Document {
	if len(rows) < 2 {
		return nil
	}
	headers := rows[0]
	docs := make([]models.Document, 0, len(rows)-1)
	for i, row := range rows[1:] {
		meta := models.CopyMetadata(extra)
		meta[models.MetaSource] = source
		meta[models.MetaRow] = i
		docs = append(docs, models.Document{Text: recordText(headers, row), Metadata: meta})
	}
	return docs
}

func loadCSV(content []byte, source string) ([]models.Document, error) {
	text, err := decodeText(content)
	if err != nil {
		return nil, fmt.Errorf("decode CSV: %w", err)
	}
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse CSV: %w", err)
		}
		rows = append(rows, rec)
	}
	return rowsToDocuments(rows, source, nil), nil
}

func loadExcel(content []byte, source string) ([]models.Document, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var docs []models.Document
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		docs = append(docs, rowsToDocuments(rows, source, map[string]interface{}{"sheet": sheet})...)
	}
	return docs, nil
}
