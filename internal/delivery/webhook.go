package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"media-relay/internal/logging"
)

// DefaultWebhookTimeout bounds a single upload.
const DefaultWebhookTimeout = 2 * time.Minute

// WebhookSink uploads files to a chat webhook as multipart/form-data with a
// payload_json part and one files[n] part per attachment.
type WebhookSink struct {
	url    string
	client *http.Client
}

type webhookAttachment struct {
	ID          int    `json:"id"`
	Filename    string `json:"filename"`
	Description string `json:"description,omitempty"`
}

type webhookPayload struct {
	Content     string              `json:"content,omitempty"`
	Attachments []webhookAttachment `json:"attachments,omitempty"`
}

// NewWebhookSink creates a sink for url. A nil client uses one with
// DefaultWebhookTimeout.
func NewWebhookSink(url string, client *http.Client) (*WebhookSink, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook URL not set")
	}
	if client == nil {
		client = &http.Client{Timeout: DefaultWebhookTimeout}
	}
	return &WebhookSink{url: url, client: client}, nil
}

func (s *WebhookSink) Name() string { return "webhook" }

// WantsPreview reports true; the poster is attached as a second file.
func (s *WebhookSink) WantsPreview() bool { return true }

// Deliver uploads the file, then posts the announcement as its own message.
// A failed announcement is logged but does not fail the delivery.
func (s *WebhookSink) Deliver(ctx context.Context, item Item) error {
	files := []string{item.Path}
	if item.PosterPath != "" {
		files = append(files, item.PosterPath)
	}

	payload := webhookPayload{}
	for i, path := range files {
		name := filepath.Base(path)
		if i == 0 {
			name = FileName(item)
		}
		payload.Attachments = append(payload.Attachments, webhookAttachment{
			ID: i, Filename: name, Description: item.DisplayName,
		})
	}

	body, contentType, err := buildMultipart(payload, files)
	if err != nil {
		return fmt.Errorf("failed to build upload: %w", err)
	}
	if err := s.post(ctx, contentType, body); err != nil {
		return fmt.Errorf("webhook upload failed: %w", err)
	}

	if item.Announcement != "" {
		msg, err := json.Marshal(webhookPayload{Content: item.Announcement})
		if err == nil {
			err = s.post(ctx, "application/json", bytes.NewReader(msg))
		}
		if err != nil {
			logging.Warn("Webhook announcement failed: %v", err)
		}
	}
	return nil
}

func buildMultipart(payload webhookPayload, files []string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, "", err
	}
	if err := w.WriteField("payload_json", string(data)); err != nil {
		return nil, "", err
	}

	for i, path := range files {
		part, err := w.CreateFormFile(fmt.Sprintf("files[%d]", i), payload.Attachments[i].Filename)
		if err != nil {
			return nil, "", err
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, "", err
		}
		_, err = io.Copy(part, f)
		f.Close()
		if err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func (s *WebhookSink) post(ctx context.Context, contentType string, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
