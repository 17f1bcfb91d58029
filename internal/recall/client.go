package recall

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultRegion          = "us-west-2"
	defaultAPITimeout      = 30 * time.Second
	defaultDownloadTimeout = 120 * time.Second
	defaultRatePerSecond   = 5
	maxErrorBody           = 500
)

// ErrNoAPIKey is returned by calls that need provider credentials when none are set.
var ErrNoAPIKey = errors.New("recall: RECALLAI_API_KEY is not set")

// APIError is a non-2xx answer from the provider.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("recall %s %s: http %d: %s", e.Method, e.URL, e.StatusCode, strings.TrimSpace(e.Body))
}

// Config holds what the client needs to reach the bot API.
type Config struct {
	APIKey        string
	Region        string
	BaseURL       string  // overrides the region derived URL when set
	RatePerSecond float64 // outbound request throttle, 0 uses the default
}

// Client talks to the Recall.ai bot API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	download   *http.Client
	limiter    *rate.Limiter
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the client used for API and download calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
			c.download = hc
		}
	}
}

// NewClient builds a provider client from cfg.
func NewClient(cfg Config, opts ...Option) *Client {
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = defaultRegion
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.recall.ai/api/v1", region)
	}
	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = defaultRatePerSecond
	}
	c := &Client{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultAPITimeout},
		download:   &http.Client{Timeout: defaultDownloadTimeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), int(rps*2)+1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client is bound to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CreateBotRequest describes a bot joining a meeting.
type CreateBotRequest struct {
	MeetingURL string
	BotName    string
	Project    string
}

type createBotPayload struct {
	MeetingURL       string            `json:"meeting_url"`
	BotName          string            `json:"bot_name"`
	RecordingConfig  recordingConfig   `json:"recording_config"`
	StartRecordingOn string            `json:"start_recording_on"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

type recordingConfig struct {
	Transcript struct {
		Provider struct {
			MeetingCaptions struct{} `json:"meeting_captions"`
		} `json:"provider"`
	} `json:"transcript"`
}

// CreateBot asks the provider to send a bot to the meeting. The project name
// rides along in bot metadata so the later webhook can be attributed.
func (c *Client) CreateBot(ctx context.Context, req CreateBotRequest) (*Bot, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	payload := createBotPayload{
		MeetingURL:       req.MeetingURL,
		BotName:          req.BotName,
		StartRecordingOn: "participant_join",
	}
	if req.Project != "" {
		payload.Metadata = map[string]string{"project": req.Project}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal bot request: %w", err)
	}

	raw, err := c.do(ctx, http.MethodPost, "/bot/", body)
	if err != nil {
		return nil, err
	}
	bot, err := decodeBot(raw)
	if err != nil {
		return nil, err
	}
	log.Printf("[Recall] Bot created: %s (project: %s)", bot.ID, req.Project)
	return bot, nil
}

// GetBot fetches bot details, including metadata and recordings.
func (c *Client) GetBot(ctx context.Context, botID string) (*Bot, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if botID == "" {
		return nil, errors.New("recall: bot id is required")
	}
	raw, err := c.do(ctx, http.MethodGet, "/bot/"+botID+"/", nil)
	if err != nil {
		return nil, err
	}
	return decodeBot(raw)
}

// TranscriptDownloadURL looks up a transcript artifact and returns its
// download URL, or "" when the provider has not published one yet.
func (c *Client) TranscriptDownloadURL(ctx context.Context, transcriptID string) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}
	if transcriptID == "" {
		return "", errors.New("recall: transcript id is required")
	}
	raw, err := c.do(ctx, http.MethodGet, "/transcript/"+transcriptID+"/", nil)
	if err != nil {
		return "", err
	}
	var detail struct {
		Data        json.RawMessage `json:"data"`
		DownloadURL string          `json:"download_url"`
	}
	if err := json.Unmarshal(raw, &detail); err != nil {
		return "", fmt.Errorf("decode transcript detail: %w", err)
	}
	var data struct {
		DownloadURL string `json:"download_url"`
	}
	if len(detail.Data) > 0 && json.Unmarshal(detail.Data, &data) == nil && data.DownloadURL != "" {
		return data.DownloadURL, nil
	}
	return detail.DownloadURL, nil
}

// Download fetches a transcript artifact. Download URLs are pre-signed, so no
// credentials are attached.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}
	resp, err := c.download.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download transcript: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read transcript body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Method: http.MethodGet, URL: url, StatusCode: resp.StatusCode, Body: truncate(string(body))}
	}
	log.Printf("[Recall] Downloaded transcript: %d bytes", len(body))
	return body, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("recall rate limit wait: %w", err)
	}

	url := c.baseURL + path
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recall %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[Recall] API error: %s %s status %d", method, path, resp.StatusCode)
		return nil, &APIError{Method: method, URL: url, StatusCode: resp.StatusCode, Body: truncate(string(respBody))}
	}
	return respBody, nil
}

func truncate(s string) string {
	if len(s) <= maxErrorBody {
		return s
	}
	return s[:maxErrorBody] + "..."
}
