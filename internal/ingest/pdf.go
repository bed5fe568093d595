package ingest

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// LoadPDFDir extracts text from every PDF in dir, one Unit per page.
// Pages with no extractable text are skipped. Files that fail to parse are
// logged and skipped so one corrupt manual does not abort a full ingest.
func LoadPDFDir(dir string, log *slog.Logger) ([]Unit, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ingest: failed to read data directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var units []Unit
	for _, name := range names {
		pageUnits, err := loadPDF(filepath.Join(dir, name), name)
		if err != nil {
			log.Warn("ingest: skipping unreadable PDF",
				slog.String("file", name),
				slog.String("error", err.Error()),
			)
			continue
		}
		units = append(units, pageUnits...)
		log.Info("ingest: loaded PDF",
			slog.String("file", name),
			slog.Int("pages", len(pageUnits)),
		)
	}

	return units, nil
}

// loadPDF extracts per-page text from a single PDF file.
func loadPDF(path, source string) ([]Unit, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: failed to open PDF: %w", err)
	}
	defer f.Close()

	var units []Unit
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single malformed page should not sink the whole document.
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		units = append(units, Unit{
			Text:   text,
			Source: source,
			Page:   pageNum,
			Metadata: map[string]string{
				"doc_type": "pdf",
			},
		})
	}

	return units, nil
}
