package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/istmo-digital/docintel/internal/common"
	"github.com/istmo-digital/docintel/internal/extract"
)

// HTTPConfig configures the managed analysis backend client.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPClient implements Client against the backend's JSON API.
type HTTPClient struct {
	cfg    HTTPConfig
	http   *http.Client
	logger *slog.Logger
}

func NewHTTPClient(cfg HTTPConfig, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type analyzeRequest struct {
	Document string   `json:"document"` // base64
	Filename string   `json:"filename,omitempty"`
	Features []string `json:"features"`
	Queries  []struct {
		Text  string `json:"text"`
		Alias string `json:"alias"`
	} `json:"queries,omitempty"`
}

type analyzeResponse struct {
	FullText string `json:"full_text"`
	Pages    int    `json:"pages"`
	Lines    []struct {
		Text       string  `json:"text"`
		Page       int     `json:"page"`
		Confidence float64 `json:"confidence"`
	} `json:"lines"`
	Tables        [][][]string      `json:"tables"`
	KeyValuePairs map[string]string `json:"key_value_pairs"`
	Answers       []struct {
		Alias      string  `json:"alias"`
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	} `json:"answers"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *HTTPClient) AnalyzeDocument(ctx context.Context, input AnalysisInput) (*AnalysisOutput, error) {
	body := analyzeRequest{
		Document: base64.StdEncoding.EncodeToString(input.Document),
		Filename: input.Filename,
	}
	for _, f := range input.Features {
		body.Features = append(body.Features, string(f))
	}
	for _, q := range input.Questions {
		body.Queries = append(body.Queries, struct {
			Text  string `json:"text"`
			Alias string `json:"alias"`
		}{Text: q.Text, Alias: q.Alias})
	}

	raw, status, err := c.post(ctx, "/v1/analyze", body)
	if err != nil {
		return nil, c.mapError(status, raw, err)
	}

	var resp analyzeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode analyze response: %w", err)
	}

	out := &AnalysisOutput{
		Raw: extract.RawExtraction{
			FullText:      resp.FullText,
			Tables:        resp.Tables,
			KeyValuePairs: resp.KeyValuePairs,
		},
		Pages: resp.Pages,
	}
	for _, l := range resp.Lines {
		out.Raw.Lines = append(out.Raw.Lines, extract.Line{
			Text:       l.Text,
			Page:       l.Page,
			Confidence: l.Confidence,
		})
	}
	if len(resp.Answers) > 0 {
		out.Raw.TargetedAnswers = make(map[string]extract.Answer, len(resp.Answers))
		for _, a := range resp.Answers {
			out.Raw.TargetedAnswers[a.Alias] = extract.Answer{
				Text:       a.Text,
				Confidence: a.Confidence,
			}
		}
	}
	return out, nil
}

func (c *HTTPClient) DetectText(ctx context.Context, document []byte) (string, error) {
	body := map[string]string{
		"document": base64.StdEncoding.EncodeToString(document),
	}
	raw, status, err := c.post(ctx, "/v1/detect-text", body)
	if err != nil {
		return "", c.mapError(status, raw, err)
	}
	var resp struct {
		FullText string `json:"full_text"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode detect-text response: %w", err)
	}
	return resp.FullText, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body any) ([]byte, int, error) {
	// The request id set by the pipeline ties backend calls to one document
	// run across log lines. Direct callers get a fresh id.
	reqID := common.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.New().String()
	}
	start := time.Now()

	bs, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("encode request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", reqID)
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	logAttrs := []any{"req_id", reqID, "path", path, "content_length", len(bs)}
	if docID := common.DocumentIDFromContext(ctx); docID != "" {
		logAttrs = append(logAttrs, "document_id", docID)
	}
	c.logger.Info("ocr.http.request", logAttrs...)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("ocr.http.send_error",
			"req_id", reqID, "path", path, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, 0, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("ocr.http.body_close_error", "req_id", reqID, "error", err)
		}
	}()

	raw, _ := io.ReadAll(resp.Body)

	c.logger.Info("ocr.http.response",
		"req_id", reqID,
		"path", path,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds())

	if resp.StatusCode/100 != 2 {
		return raw, resp.StatusCode, fmt.Errorf("non-2xx status: %d", resp.StatusCode)
	}
	return raw, resp.StatusCode, nil
}

// mapError turns backend status codes into the typed conditions the
// orchestrator switches on.
func (c *HTTPClient) mapError(status int, raw []byte, err error) error {
	switch status {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", ErrThrottled, err)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		var ae apiError
		if json.Unmarshal(raw, &ae) == nil {
			switch {
			case strings.EqualFold(ae.Code, "QUERY_REJECTED"):
				return fmt.Errorf("%w: %s", ErrQuestionsRejected, ae.Message)
			case strings.EqualFold(ae.Code, "DOCUMENT_UNREADABLE"):
				return fmt.Errorf("%w: %s", common.ErrUnreadable, ae.Message)
			}
		}
	}
	return err
}
