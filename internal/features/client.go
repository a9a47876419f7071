package features

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// Extractor measures the acoustic properties of a WAV recording
type Extractor interface {
	Measure(ctx context.Context, wavPath string) (*Measures, error)
}

// Praat analysis parameters sent with every request
const (
	PitchFloor          = 75.0
	PitchCeiling        = 500.0
	MaxPeriodFactor     = 1.3
	MaxAmplitudeFactor  = 1.6
	HNRTimeStep         = 0.01
	HNRSilenceThreshold = 0.1
	HNRPeriodsPerWindow = 1.0
)

// Config contains acoustic-analysis client configuration
type Config struct {
	Endpoint      string
	APIKey        string
	Timeout       time.Duration
	MaxRetries    int
	MaxConcurrent int
	BackoffBase   time.Duration
	PitchFloor    float64
	PitchCeiling  float64
}

// Client posts recordings to the acoustic-analysis service
type Client struct {
	config     Config
	httpClient *http.Client
	semaphore  chan struct{}

	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	totalRetries    uint64
	avgResponseTime time.Duration

	mu sync.RWMutex
}

// ClientStats represents client statistics
type ClientStats struct {
	TotalRequests   uint64        `json:"total_requests"`
	SuccessRequests uint64        `json:"success_requests"`
	FailedRequests  uint64        `json:"failed_requests"`
	SuccessRate     float64       `json:"success_rate"`
	TotalRetries    uint64        `json:"total_retries"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
	ActiveRequests  int           `json:"active_requests"`
}

// statusError carries a non-2xx response from the analysis service
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP error %d: %s", e.code, e.body)
}

// NewClient creates a new acoustic-analysis HTTP client
func NewClient(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	if config.MaxRetries < 0 {
		config.MaxRetries = 2
	}

	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 4
	}

	if config.BackoffBase <= 0 {
		config.BackoffBase = time.Second
	}

	if config.PitchFloor <= 0 {
		config.PitchFloor = PitchFloor
	}

	if config.PitchCeiling <= config.PitchFloor {
		config.PitchCeiling = PitchCeiling
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		semaphore:  make(chan struct{}, config.MaxConcurrent),
	}, nil
}

// Measure uploads the recording and returns the measures reported for it
func (c *Client) Measure(ctx context.Context, wavPath string) (*Measures, error) {
	audioData, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read audio %s: %v", ErrExtraction, wavPath, err)
	}

	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: waiting for a free slot: %w", ErrExtraction, ctx.Err())
	}

	startTime := time.Now()
	c.incrementTotalRequests()

	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			c.incrementTotalRetries()

			backoffTime := c.config.BackoffBase * time.Duration(math.Pow(2, float64(attempt-1)))
			if backoffTime > 30*time.Second {
				backoffTime = 30 * time.Second
			}

			select {
			case <-time.After(backoffTime):
			case <-ctx.Done():
				c.incrementFailedRequests()
				return nil, fmt.Errorf("%w: cancelled before retry %d: %w", ErrExtraction, attempt, ctx.Err())
			}
		}

		measures, err := c.doRequest(ctx, filepath.Base(wavPath), audioData)
		if err == nil {
			c.incrementSuccessRequests()
			c.updateAvgResponseTime(time.Since(startTime))
			return measures, nil
		}

		lastErr = err

		if !isRetryableError(err) {
			break
		}
	}

	c.incrementFailedRequests()
	return nil, fmt.Errorf("%w: analysis failed after %d attempts: %w", ErrExtraction, c.config.MaxRetries+1, lastErr)
}

// doRequest performs a single request against the analysis service
func (c *Client) doRequest(ctx context.Context, filename string, audioData []byte) (*Measures, error) {
	body, contentType, err := c.createMultipartRequest(filename, audioData)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{code: resp.StatusCode, body: string(bytes.TrimSpace(respBody))}
	}

	var measures Measures
	if err := json.Unmarshal(respBody, &measures); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}

	return &measures, nil
}

// createMultipartRequest builds the upload body with the analysis parameters
func (c *Client) createMultipartRequest(filename string, audioData []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := fileWriter.Write(audioData); err != nil {
		return nil, "", fmt.Errorf("failed to write audio data: %w", err)
	}

	fields := []struct {
		key   string
		value float64
	}{
		{"pitch_floor", c.config.PitchFloor},
		{"pitch_ceiling", c.config.PitchCeiling},
		{"max_period_factor", MaxPeriodFactor},
		{"max_amplitude_factor", MaxAmplitudeFactor},
		{"hnr_time_step", HNRTimeStep},
		{"hnr_silence_threshold", HNRSilenceThreshold},
		{"hnr_periods_per_window", HNRPeriodsPerWindow},
	}

	for _, f := range fields {
		if err := writer.WriteField(f.key, strconv.FormatFloat(f.value, 'f', -1, 64)); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", f.key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}

// isRetryableError reports whether a failed attempt is worth repeating:
// 5xx and 429 responses, timeouts and transport failures.
func isRetryableError(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func (c *Client) incrementTotalRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
}

func (c *Client) incrementSuccessRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successRequests++
}

func (c *Client) incrementFailedRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedRequests++
}

func (c *Client) incrementTotalRetries() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRetries++
}

func (c *Client) updateAvgResponseTime(responseTime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.avgResponseTime == 0 {
		c.avgResponseTime = responseTime
	} else {
		c.avgResponseTime = (c.avgResponseTime + responseTime) / 2
	}
}

// GetStats returns current client statistics
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	return ClientStats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
		TotalRetries:    c.totalRetries,
		AvgResponseTime: c.avgResponseTime,
		ActiveRequests:  len(c.semaphore),
	}
}
