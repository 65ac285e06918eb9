package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/lingualverse/domain/repositories"
)

const (
	defaultBaseURL      = "http://localhost:5001"
	defaultTimeout      = 60 * time.Second
	defaultProbeTimeout = 3 * time.Second

	// AutoDetect lets the gateway detect the source language
	AutoDetect = "auto"

	speechFieldName = "audio"
	speechFileName  = "recording.wav"
	speechMIMEType  = "audio/wav"
)

// ErrGatewayStatus is wrapped by every error caused by a non-2xx gateway response
var ErrGatewayStatus = errors.New("gateway returned non-success status")

// Config holds configuration for the gateway Client
type Config struct {
	BaseURL      string        // Optional: gateway root (default "http://localhost:5001")
	Timeout      time.Duration // Optional: per-call timeout (default 60s)
	ProbeTimeout time.Duration // Optional: connectivity probe timeout (default 3s)
	SocksProxy   string        // Optional: SOCKS5 proxy address, host:port
}

// Client calls the remote NLP gateway over HTTP
type Client struct {
	baseURL      string
	httpClient   *http.Client
	probeTimeout time.Duration
	logger       *zap.Logger
}

// Ensure Client implements the Gateway interface
var _ repositories.Gateway = (*Client)(nil)

type messageRequest struct {
	Message    string `json:"message"`
	TargetLang string `json:"target_lang,omitempty"`
	SourceLang string `json:"source_lang,omitempty"`
}

type gatewayResponse struct {
	Reply    string `json:"reply"`
	AudioURL string `json:"audio_url"`
}

// NewClient creates a new gateway client
func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
		logger.Info("Using default gateway URL", zap.String("baseURL", baseURL))
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	probeTimeout := config.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = defaultProbeTimeout
	}

	httpClient := &http.Client{Timeout: timeout}
	if config.SocksProxy != "" {
		transport, err := NewSocksTransport(config.SocksProxy)
		if err != nil {
			return nil, fmt.Errorf("failed to create socks transport: %w", err)
		}
		httpClient.Transport = transport
		logger.Info("Routing gateway traffic through SOCKS5 proxy", zap.String("proxy", config.SocksProxy))
	}

	return &Client{
		baseURL:      baseURL,
		httpClient:   httpClient,
		probeTimeout: probeTimeout,
		logger:       logger,
	}, nil
}

// BaseURL returns the gateway root URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Correct calls POST /correct
func (c *Client) Correct(ctx context.Context, message string) (string, error) {
	resp, err := c.postJSON(ctx, "/correct", messageRequest{Message: message})
	if err != nil {
		return "", err
	}
	return resp.Reply, nil
}

// Translate calls POST /translate
func (c *Client) Translate(ctx context.Context, message, targetLang string) (string, error) {
	resp, err := c.postJSON(ctx, "/translate", messageRequest{Message: message, TargetLang: targetLang})
	if err != nil {
		return "", err
	}
	return resp.Reply, nil
}

// AnalyzeSentiment calls POST /sentiment
func (c *Client) AnalyzeSentiment(ctx context.Context, message string) (string, error) {
	resp, err := c.postJSON(ctx, "/sentiment", messageRequest{Message: message})
	if err != nil {
		return "", err
	}
	return resp.Reply, nil
}

// ProcessMultilingual calls POST /multilingual
func (c *Client) ProcessMultilingual(ctx context.Context, message, sourceLang, targetLang string) (string, error) {
	resp, err := c.postJSON(ctx, "/multilingual", messageRequest{
		Message:    message,
		SourceLang: sourceLang,
		TargetLang: targetLang,
	})
	if err != nil {
		return "", err
	}
	return resp.Reply, nil
}

// Synthesize calls POST /tts and returns the audio URL
func (c *Client) Synthesize(ctx context.Context, text string) (string, error) {
	resp, err := c.postJSON(ctx, "/tts", messageRequest{Message: text})
	if err != nil {
		return "", err
	}
	return resp.AudioURL, nil
}

// Transcribe uploads one recording to POST /speech and returns the raw reply
func (c *Client) Transcribe(ctx context.Context, audio []byte) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`, speechFieldName, speechFileName))
	header.Set("Content-Type", speechMIMEType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to write audio payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	resp, err := c.do(ctx, "/speech", writer.FormDataContentType(), body)
	if err != nil {
		return "", err
	}
	return resp.Reply, nil
}

// Probe sends a HEAD request to the gateway root and reports whether it answered 2xx
func (c *Client) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL, nil)
	if err != nil {
		c.logger.Error("Failed to create probe request", zap.Error(err))
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Gateway probe failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	return isSuccess(resp.StatusCode)
}

func (c *Client) postJSON(ctx context.Context, path string, payload messageRequest) (*gatewayResponse, error) {
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, path, "application/json", bytes.NewReader(requestBody))
}

func (c *Client) do(ctx context.Context, path, contentType string, body io.Reader) (*gatewayResponse, error) {
	url := c.baseURL + path

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("Gateway returned error",
			zap.String("path", path),
			zap.Int("statusCode", resp.StatusCode),
			zap.String("response", string(errorBody)))
		return nil, fmt.Errorf("%w: %s returned %d", ErrGatewayStatus, path, resp.StatusCode)
	}

	var result gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", path, err)
	}

	c.logger.Debug("Gateway call completed",
		zap.String("path", path),
		zap.Duration("duration", time.Since(start)))
	return &result, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
