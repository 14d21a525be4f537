package pdfextract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/ledongthuc/pdf"
)

// MaxUploadBytes caps what ExtractText will read.
const MaxUploadBytes = 50 << 20

var ErrNoText = errors.New("pdf contains no extractable text")

// ExtractText reads a PDF and returns its plain text, one page after another
// separated by blank lines. Pages that fail to decode are skipped.
func ExtractText(r io.Reader) (string, error) {
	b, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return "", fmt.Errorf("read pdf failed: %w", err)
	}
	if len(b) > MaxUploadBytes {
		return "", fmt.Errorf("pdf larger than %d bytes", MaxUploadBytes)
	}
	if len(b) == 0 {
		return "", ErrNoText
	}

	pdfReader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", fmt.Errorf("open pdf failed: %w", err)
	}

	pages := make([]string, 0, pdfReader.NumPage())
	for i := 1; i <= pdfReader.NumPage(); i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := pageText(page)
		if err != nil {
			log.Printf("pdfextract: page %d skipped: %v", i, err)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return "", ErrNoText
	}
	return strings.Join(pages, "\n\n"), nil
}

// pageText recovers from the panics the pdf package raises on malformed content streams.
func pageText(page pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed page: %v", r)
		}
	}()
	return page.GetPlainText(nil)
}
