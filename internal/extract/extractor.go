// Package extract downloads documents and pulls plain text out of them.
package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aura-labs/aura/internal/domain"
)

// Document is the result of downloading and extracting a source document.
type Document struct {
	Text        string
	Content     []byte
	Format      string
	ContentType string
}

// Extractor turns a document URL into plain text.
type Extractor interface {
	Extract(ctx context.Context, documentURL string) (*Document, error)
}

// HTTPExtractor downloads documents over HTTP and extracts text based on
// the URL extension, falling back to the Content-Type header.
type HTTPExtractor struct {
	client   *http.Client
	maxBytes int64
}

func NewHTTPExtractor(maxBytes int64) *HTTPExtractor {
	return &HTTPExtractor{
		client:   &http.Client{Timeout: 30 * time.Second},
		maxBytes: maxBytes,
	}
}

func (e *HTTPExtractor) Extract(ctx context.Context, documentURL string) (*Document, error) {
	content, contentType, err := e.download(ctx, documentURL)
	if err != nil {
		return nil, err
	}

	format := detectFormat(documentURL, contentType)

	var text string
	switch format {
	case "txt":
		text, err = extractPlainText(content)
	case "html":
		text, err = extractHTML(content)
	case "docx":
		text, err = extractDOCX(content)
	default:
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported document format %q", format), domain.ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyDocument
	}

	return &Document{
		Text:        text,
		Content:     content,
		Format:      format,
		ContentType: contentType,
	}, nil
}

func (e *HTTPExtractor) download(ctx context.Context, documentURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, documentURL, nil)
	if err != nil {
		return nil, "", domain.NewDomainErrorWithCause(domain.ErrCodeDownloadFailed, "invalid request", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", domain.NewDomainErrorWithCause(domain.ErrCodeDownloadFailed, "failed to download document", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", domain.NewDomainErrorWithCause(domain.ErrCodeDownloadFailed,
			fmt.Sprintf("unexpected status %d", resp.StatusCode), domain.ErrDownloadFailed)
	}

	if e.maxBytes > 0 && resp.ContentLength > e.maxBytes {
		return nil, "", domain.NewDomainErrorWithCause(domain.ErrCodeFileTooLarge,
			fmt.Sprintf("document is %d bytes, maximum is %d", resp.ContentLength, e.maxBytes), domain.ErrFileTooLarge)
	}

	reader := io.Reader(resp.Body)
	if e.maxBytes > 0 {
		// Read one extra byte to detect bodies exceeding the cap without
		// a Content-Length header.
		reader = io.LimitReader(resp.Body, e.maxBytes+1)
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", domain.NewDomainErrorWithCause(domain.ErrCodeDownloadFailed, "failed to read document body", err)
	}
	if e.maxBytes > 0 && int64(len(content)) > e.maxBytes {
		return nil, "", domain.NewDomainErrorWithCause(domain.ErrCodeFileTooLarge,
			fmt.Sprintf("document exceeds maximum of %d bytes", e.maxBytes), domain.ErrFileTooLarge)
	}

	return content, resp.Header.Get("Content-Type"), nil
}

func detectFormat(documentURL, contentType string) string {
	if u, err := url.Parse(documentURL); err == nil {
		switch strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), ".")) {
		case "txt", "text", "md":
			return "txt"
		case "html", "htm":
			return "html"
		case "docx":
			return "docx"
		case "":
			// fall through to content type
		default:
			return strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
		}
	}

	mediaType := contentType
	if idx := strings.Index(mediaType, ";"); idx >= 0 {
		mediaType = mediaType[:idx]
	}
	switch strings.TrimSpace(strings.ToLower(mediaType)) {
	case "text/plain", "text/markdown":
		return "txt"
	case "text/html", "application/xhtml+xml":
		return "html"
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return "docx"
	}
	return "unknown"
}

func extractPlainText(content []byte) (string, error) {
	if utf8.Valid(content) {
		return string(content), nil
	}

	// Latin-1 fallback: every byte maps to the same code point.
	runes := make([]rune, len(content))
	for i, b := range content {
		runes[i] = rune(b)
	}
	return string(runes), nil
}
