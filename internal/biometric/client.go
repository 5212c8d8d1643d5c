package biometric

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/checkin-kiosk-go/internal/metrics"
)

const (
	defaultTimeout   = 10 * time.Second
	maxResponseBytes = 4 << 20
	maxErrorMessage  = 256
)

var faceProcessings = []string{"detect", "analyze", "templify"}

// Client relays calls to the remote face-processing service. It never
// interprets vendor statuses beyond 2xx/204; see StatusError.
type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		http:    &http.Client{},
	}
}

// ProcessFace runs detection, analysis and template extraction.
// An empty slice means no face was found.
func (c *Client) ProcessFace(ctx context.Context, imageBase64 string) ([]DetectedFace, error) {
	var faces []DetectedFace
	err := c.do(ctx, "process", http.MethodPost, "/face/process", processRequest{
		Image:       imageBase64,
		Processings: faceProcessings,
	}, &faces)
	if err != nil {
		return nil, err
	}
	return faces, nil
}

// Identify returns candidates best-first. The vendor drops candidates below
// MinimumScore, so an empty result is the "no match" signal.
func (c *Client) Identify(ctx context.Context, params IdentifyParams) ([]Candidate, error) {
	var candidates []Candidate
	err := c.do(ctx, "identify", http.MethodPost, "/face/identify", identifyRequest{
		Template:            params.Template,
		GalleryID:           params.GalleryID,
		CandidateListLength: params.CandidateListLength,
		MinimumScore:        params.MinimumScore,
	}, &candidates)
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

func (c *Client) CreateGallery(ctx context.Context, galleryID string) error {
	return c.do(ctx, "create_gallery", http.MethodPost, galleryPath(galleryID), nil, nil)
}

func (c *Client) DeleteGallery(ctx context.Context, galleryID string) error {
	return c.do(ctx, "delete_gallery", http.MethodDelete, galleryPath(galleryID), nil, nil)
}

func (c *Client) Enroll(ctx context.Context, galleryID, personID, template string) error {
	return c.do(ctx, "enroll", http.MethodPost, personPath(galleryID, personID), enrollRequest{Template: template}, nil)
}

func (c *Client) RemovePerson(ctx context.Context, galleryID, personID string) error {
	return c.do(ctx, "remove_person", http.MethodDelete, personPath(galleryID, personID), nil, nil)
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, "health", http.MethodGet, "/health", nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, payload any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("biometric %s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("biometric %s: create request: %w", op, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		metrics.BiometricRequestDuration.WithLabelValues(op, metrics.StatusClass(0)).Observe(elapsed.Seconds())
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	metrics.BiometricRequestDuration.WithLabelValues(op, metrics.StatusClass(resp.StatusCode)).Observe(elapsed.Seconds())

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	log.Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Msg("biometric call")

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(respBody, resp.Status)}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &DecodeError{Op: op, Err: err}
	}
	return nil
}

func errorMessage(body []byte, fallback string) string {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		for _, msg := range []string{parsed.Message, parsed.Error, parsed.Detail} {
			if msg != "" {
				return truncate(msg)
			}
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return truncate(text)
	}
	return fallback
}

func truncate(s string) string {
	if len(s) > maxErrorMessage {
		return s[:maxErrorMessage]
	}
	return s
}

func galleryPath(galleryID string) string {
	return "/gallery/" + url.PathEscape(galleryID)
}

func personPath(galleryID, personID string) string {
	return galleryPath(galleryID) + "/" + url.PathEscape(personID)
}
