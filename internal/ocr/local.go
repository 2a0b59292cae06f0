package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/istmo-digital/docintel/constants"
)

// Results below this length carry no usable signal.
const minUsableTextLength = 20

// The local channel reports failure in-band so the degradation chain can
// keep moving without error plumbing.
const (
	errorPrefix   = "ERROR:"
	warningPrefix = "WARNING:"
)

// IsFailureSignal reports whether a local extraction result is a failure or
// degraded-quality marker rather than document text.
func IsFailureSignal(text string) bool {
	return strings.HasPrefix(text, errorPrefix) || strings.HasPrefix(text, warningPrefix)
}

// LocalConfig tunes the local fallback extractor.
type LocalConfig struct {
	// Pdftotext names the poppler binary used when the embedded reader
	// finds no text layer. Empty disables the shell-out.
	Pdftotext string
	MaxPages  int
}

// LocalExtractor pulls the text layer out of a PDF without calling the
// backend. Scanned documents without a text layer come back as a warning
// signal, not text.
type LocalExtractor struct {
	cfg    LocalConfig
	runner Runner
	logger *slog.Logger
}

func NewLocalExtractor(cfg LocalConfig, logger *slog.Logger) *LocalExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalExtractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// ExtractText returns the document's text layer, or an in-band
// ERROR:/WARNING: signal when local extraction cannot produce usable text.
func (e *LocalExtractor) ExtractText(ctx context.Context, data []byte, filename string) string {
	ext := constants.NormalizeExt(filepath.Ext(filename))
	if constants.FormatForExt(ext) != "PDF" {
		return fmt.Sprintf("%s local extraction supports PDF only, got %q", errorPrefix, ext)
	}
	if len(data) == 0 {
		return errorPrefix + " empty document"
	}

	text, pages, err := e.pdfTextLayer(data)
	if err != nil {
		e.logger.Warn("embedded pdf reader failed", "filename", filename, "error", err)
		text = ""
	}

	if strings.TrimSpace(text) == "" && e.cfg.Pdftotext != "" {
		text, err = e.pdftotext(ctx, data)
		if err != nil {
			return fmt.Sprintf("%s pdf text extraction failed: %v", errorPrefix, err)
		}
	}

	trimmed := strings.TrimSpace(text)
	switch {
	case trimmed == "":
		return warningPrefix + " no text layer found, document is likely scanned"
	case len(trimmed) < minUsableTextLength:
		return fmt.Sprintf("%s extracted text too short (%d characters)", warningPrefix, len(trimmed))
	}

	e.logger.Debug("local text extraction succeeded",
		"filename", filename, "pages", pages, "chars", len(trimmed))
	return text
}

// pdfTextLayer walks the page content streams and collects the text-show
// operands.
func (e *LocalExtractor) pdfTextLayer(data []byte) (string, int, error) {
	rctx, err := api.ReadContext(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return "", 0, fmt.Errorf("read pdf: %w", err)
	}
	if err := api.ValidateContext(rctx); err != nil {
		return "", 0, fmt.Errorf("validate pdf: %w", err)
	}

	pages := rctx.PageCount
	if e.cfg.MaxPages > 0 && pages > e.cfg.MaxPages {
		pages = e.cfg.MaxPages
	}

	var b strings.Builder
	for page := 1; page <= pages; page++ {
		reader, err := pdfcpu.ExtractPageContent(rctx, page)
		if err != nil || reader == nil {
			continue
		}
		content, err := io.ReadAll(reader)
		if err != nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n")
		}
		b.WriteString(scanContentText(content))
	}
	return b.String(), rctx.PageCount, nil
}

// pdftotext shells out to poppler, matching its stdin-less invocation:
// pdftotext -layout -enc UTF-8 -eol unix <path> -
func (e *LocalExtractor) pdftotext(ctx context.Context, data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "di-pdf-*.pdf")
	if err != nil {
		return "", err
	}
	defer func() {
		if err := os.Remove(tmp.Name()); err != nil {
			e.logger.Warn("failed to remove temp pdf", "path", tmp.Name(), "error", err)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", tmp.Name(), "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w: %s", err, truncate(string(errb), 512))
	}
	return string(out), nil
}

// scanContentText pulls literal strings shown inside BT/ET text blocks. It
// understands parenthesis nesting and backslash escapes but not CID-encoded
// fonts; those documents fall through to the length check.
func scanContentText(content []byte) string {
	var b strings.Builder
	inText := false
	i := 0
	for i < len(content) {
		c := content[i]
		switch {
		case !inText && c == 'B' && i+1 < len(content) && content[i+1] == 'T':
			inText = true
			i += 2
		case inText && c == 'E' && i+1 < len(content) && content[i+1] == 'T':
			inText = false
			b.WriteByte('\n')
			i += 2
		case inText && c == '(':
			literal, next := readLiteral(content, i)
			b.WriteString(literal)
			b.WriteByte(' ')
			i = next
		default:
			i++
		}
	}
	return b.String()
}

// readLiteral consumes one parenthesized string starting at open and
// returns the decoded text and the index past the closing parenthesis.
func readLiteral(content []byte, open int) (string, int) {
	var b strings.Builder
	depth := 0
	i := open
	for i < len(content) {
		c := content[i]
		switch c {
		case '\\':
			if i+1 < len(content) {
				b.WriteByte(unescapeLiteral(content[i+1]))
				i += 2
				continue
			}
			i++
		case '(':
			depth++
			if depth > 1 {
				b.WriteByte(c)
			}
			i++
		case ')':
			depth--
			if depth == 0 {
				return b.String(), i + 1
			}
			b.WriteByte(c)
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), i
}

func unescapeLiteral(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return c
	}
}
