package e2e

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/xuri/excelize/v2"
)

// FixtureExtensions lists the formats Encode can produce.
var FixtureExtensions = []string{".txt", ".md", ".html", ".json", ".csv", ".xlsx", ".docx"}

// Encode renders a titled passage as a file of the given extension. Tabular formats
// put the passage in a single "title, body" row under a header.
func Encode(ext, title, body string) ([]byte, error) {
	switch ext {
	case ".txt":
		return []byte(title + "\n\n" + body + "\n"), nil
	case ".md":
		return []byte("# " + title + "\n\n" + body + "\n"), nil
	case ".html":
		return []byte(fmt.Sprintf("<html><head><title>%s</title><script>track()</script></head><body><nav>Home</nav><h1>%s</h1><p>%s</p></body></html>",
			html.EscapeString(title), html.EscapeString(title), html.EscapeString(body))), nil
	case ".json":
		return json.MarshalIndent(map[string]string{"title": title, "body": body}, "", "  ")
	case ".csv":
		return []byte("title,body\n" + csvField(title) + "," + csvField(body) + "\n"), nil
	case ".xlsx":
		return encodeXLSX(title, body)
	case ".docx":
		return encodeDOCX(title, body)
	default:
		return nil, fmt.Errorf("no fixture encoder for %q", ext)
	}
}

func csvField(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func encodeXLSX(title, body string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{{"title", "body"}, {title, body}}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeDOCX(title, body string) ([]byte, error) {
	var doc strings.Builder
	doc.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	doc.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range []string{title, body} {
		doc.WriteString(`<w:p><w:r><w:t xml:space="preserve">` + html.EscapeString(p) + `</w:t></w:r></w:p>`)
	}
	doc.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Create("word/document.xml")
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write([]byte(doc.String())); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
