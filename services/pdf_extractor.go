package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"viola-chatbot/internal/logger"

	"github.com/ledongthuc/pdf"
)

// ExtractionError reports a corpus file that could not be read. Ingestion
// skips the file and continues.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// TextSource produces the raw corpus text for a folder.
type TextSource interface {
	ExtractFolder(ctx context.Context, dir string) (*ExtractionResult, error)
}

// ExtractionResult contains the concatenated text of every readable document.
type ExtractionResult struct {
	Text           string
	Files          int
	Pages          int
	Skipped        []*ExtractionError
	ProcessingTime time.Duration
}

// PDFExtractor reads every .pdf file in a folder page by page.
type PDFExtractor struct {
	extensions []string
}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{extensions: []string{".pdf"}}
}

// ExtractFolder concatenates the text of all documents in dir in directory
// listing order, with no separators between files or pages. A missing folder
// yields an empty result. Only context cancellation is returned as an error.
func (e *PDFExtractor) ExtractFolder(ctx context.Context, dir string) (*ExtractionResult, error) {
	start := time.Now()
	result := &ExtractionResult{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("Corpus folder unreadable, building empty index", "dir", dir, "error", err)
		return result, nil
	}

	var sb strings.Builder
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !e.recognized(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		text, pages, err := extractPDF(path)
		if err != nil {
			extErr := &ExtractionError{Path: path, Err: err}
			logger.Warn("Skipping unreadable document", "path", path, "error", err)
			result.Skipped = append(result.Skipped, extErr)
			continue
		}

		sb.WriteString(text)
		result.Files++
		result.Pages += pages
	}

	result.Text = sb.String()
	result.ProcessingTime = time.Since(start)

	logger.Info("Corpus extracted",
		"dir", dir,
		"files", result.Files,
		"pages", result.Pages,
		"skipped", len(result.Skipped),
		"chars", len(result.Text),
	)

	return result, nil
}

func (e *PDFExtractor) recognized(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range e.extensions {
		if ext == want {
			return true
		}
	}
	return false
}

// extractPDF returns the text of every page. Pages that yield no text
// contribute an empty string. The pdf package panics on some malformed
// inputs, which is reported as an error for this file only.
func extractPDF(path string) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, pages, err = "", 0, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	pages = reader.NumPage()
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Debug("No extractable text on page", "path", path, "page", i, "error", err)
			continue
		}
		sb.WriteString(pageText)
	}

	return sb.String(), pages, nil
}
