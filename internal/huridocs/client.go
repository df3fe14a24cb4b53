// Package huridocs is the client for the HURIDOCS PDF document layout
// analysis service.
package huridocs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/geom"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/layout"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/logger"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/types"
)

const (
	// DefaultTimeout is the HTTP client timeout for an analysis call;
	// large scans can take minutes.
	DefaultTimeout = 600 * time.Second
	// MaxRetries is the retry count for network errors.
	MaxRetries = 3
	// BaseRetryDelay grows linearly with the attempt number.
	BaseRetryDelay = 2 * time.Second
	// requestsPerSecond caps the request rate against a shared service
	// instance.
	requestsPerSecond = 1
)

// endpointPaths are tried in order; service versions differ in where
// they mount the analysis handler.
var endpointPaths = []string{"", "analyze", "predict"}

// endpointNotFoundError marks a 404 from one mount point, which only
// means the next candidate path should be tried.
type endpointNotFoundError struct {
	url string
}

func (e *endpointNotFoundError) Error() string {
	return fmt.Sprintf("layout endpoint not found: %s", e.url)
}

// rawBlock is one element of the service response.
type rawBlock struct {
	Left       float64 `json:"left"`
	Top        float64 `json:"top"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	PageNumber int     `json:"page_number"`
	PageWidth  float64 `json:"page_width"`
	PageHeight float64 `json:"page_height"`
	Text       string  `json:"text"`
	Type       string  `json:"type"`
}

// AnalysisResult is the parsed service output for one document: raw
// elements grouped by physical page, plus page geometry.
type AnalysisResult struct {
	// ElementsByPage maps 0-based physical page index to elements.
	ElementsByPage map[int][]layout.RawElement
	// Pages holds one geometry per physical page seen in the response.
	Pages []layout.PageGeometry
}

// Client calls the layout analysis service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retryDelay time.Duration
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		retryDelay: BaseRetryDelay,
	}
}

// NewClientWithTimeout creates a client with a custom request timeout.
func NewClientWithTimeout(baseURL string, timeout time.Duration) *Client {
	c := NewClient(baseURL)
	c.httpClient.Timeout = timeout
	return c
}

// Analyze uploads the PDF at pdfPath and returns the parsed layout.
// Each endpoint path is tried with retries before falling through to
// the next one.
func (c *Client) Analyze(ctx context.Context, pdfPath string) (*AnalysisResult, error) {
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, types.NewAppError(types.ErrInvalidInput, "failed to read input PDF", err)
	}

	var lastErr error
	for _, path := range endpointPaths {
		url := c.baseURL
		if path != "" {
			url = c.baseURL + "/" + path
		}
		blocks, err := c.analyzeWithRetry(ctx, url, filepath.Base(pdfPath), data)
		if err == nil {
			return buildResult(blocks), nil
		}
		lastErr = err
		var notFound *endpointNotFoundError
		if errors.As(err, &notFound) {
			logger.Debug("layout endpoint not found, trying next",
				logger.String("url", url))
			continue
		}
		return nil, err
	}
	return nil, types.NewAppError(types.ErrDetect, "no layout endpoint responded", lastErr)
}

func (c *Client) analyzeWithRetry(ctx context.Context, url, filename string, pdf []byte) ([]rawBlock, error) {
	var lastErr error
	for attempt := 1; attempt <= MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, types.NewAppError(types.ErrInternal, "rate limiter interrupted", err)
		}

		blocks, err := c.analyzeOnce(ctx, url, filename, pdf)
		if err == nil {
			return blocks, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}
		logger.Warn("layout analysis attempt failed",
			logger.Int("attempt", attempt), logger.Err(err))
		if attempt < MaxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(attempt)):
			}
		}
	}
	return nil, types.NewAppErrorWithDetails(
		types.ErrNetwork,
		"layout analysis failed after multiple retries",
		fmt.Sprintf("attempted %d times", MaxRetries),
		lastErr,
	)
}

func (c *Client) analyzeOnce(ctx context.Context, url, filename string, pdf []byte) ([]rawBlock, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, types.NewAppError(types.ErrInternal, "failed to build multipart body", err)
	}
	if _, err := part.Write(pdf); err != nil {
		return nil, types.NewAppError(types.ErrInternal, "failed to build multipart body", err)
	}
	if err := mw.Close(); err != nil {
		return nil, types.NewAppError(types.ErrInternal, "failed to build multipart body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, types.NewAppError(types.ErrInternal, "failed to create HTTP request", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, types.NewAppError(types.ErrNetwork, "layout service request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, &endpointNotFoundError{url: url}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, types.NewAppError(types.ErrAPIRateLimit, "layout service rate limit exceeded", nil)
	case resp.StatusCode >= 500:
		return nil, types.NewAppErrorWithDetails(
			types.ErrNetwork, "layout service error",
			fmt.Sprintf("URL: %s returned %d", url, resp.StatusCode), nil)
	default:
		return nil, types.NewAppErrorWithDetails(
			types.ErrDetect, "layout analysis rejected",
			fmt.Sprintf("URL: %s returned %d", url, resp.StatusCode), nil)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewAppError(types.ErrNetwork, "failed to read layout response", err)
	}
	return parseBlocks(payload)
}

// parseBlocks accepts both response shapes the service has shipped: a
// bare array and a {"segments": [...]} wrapper.
func parseBlocks(payload []byte) ([]rawBlock, error) {
	var blocks []rawBlock
	if err := json.Unmarshal(payload, &blocks); err == nil {
		return blocks, nil
	}
	var wrapped struct {
		Segments []rawBlock `json:"segments"`
	}
	if err := json.Unmarshal(payload, &wrapped); err != nil {
		return nil, types.NewAppError(types.ErrDetect, "failed to parse layout response", err)
	}
	return wrapped.Segments, nil
}

// buildResult groups blocks by page and converts coordinates from the
// service's (left, top, width, height) form to corner boxes. Element
// ids are sequential across the document in response order.
func buildResult(blocks []rawBlock) *AnalysisResult {
	result := &AnalysisResult{
		ElementsByPage: make(map[int][]layout.RawElement),
	}
	seenPage := make(map[int]bool)

	for i, b := range blocks {
		pageIndex := b.PageNumber - 1
		if pageIndex < 0 {
			pageIndex = 0
		}
		elem := layout.RawElement{
			ID:        i + 1,
			PageIndex: pageIndex,
			Box: geom.Box{
				X0: b.Left,
				Y0: b.Top,
				X1: b.Left + b.Width,
				Y1: b.Top + b.Height,
			},
			Text:     b.Text,
			TypeHint: layout.ParseElementType(b.Type),
		}
		result.ElementsByPage[pageIndex] = append(result.ElementsByPage[pageIndex], elem)

		if !seenPage[pageIndex] {
			seenPage[pageIndex] = true
			result.Pages = append(result.Pages, layout.PageGeometry{
				PageIndex: pageIndex,
				Width:     b.PageWidth,
				Height:    b.PageHeight,
			})
		}
	}
	return result
}

func isRetryable(err error) bool {
	if appErr, ok := err.(*types.AppError); ok {
		return appErr.Code == types.ErrNetwork || appErr.Code == types.ErrAPIRateLimit
	}
	return false
}
