package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/nao1215/changemon/internal/model"
)

// Webhook posts change events to a Discord-compatible webhook URL.
type Webhook struct {
	url      string
	identity Identity
	client   *http.Client
	logger   *slog.Logger
}

// WebhookOption configures a Webhook.
type WebhookOption func(*Webhook)

// WithIdentity sets the sender name and avatar. Empty fields keep the default.
func WithIdentity(id Identity) WebhookOption {
	return func(w *Webhook) {
		if id.Username != "" {
			w.identity.Username = id.Username
		}
		if id.AvatarURL != "" {
			w.identity.AvatarURL = id.AvatarURL
		}
	}
}

// WithClient sets the HTTP client.
func WithClient(client *http.Client) WebhookOption {
	return func(w *Webhook) {
		if client != nil {
			w.client = client
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) WebhookOption {
	return func(w *Webhook) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWebhook creates a notifier posting to url with the default identity
// of kind.
func NewWebhook(url string, kind model.Kind, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:      url,
		identity: DefaultIdentity(kind),
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// webhookPayload is the JSON body, and the form fields of multipart posts.
type webhookPayload struct {
	Content   string `json:"content"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Notify posts the event. The artifact, if any, is attached as a file.
func (w *Webhook) Notify(ctx context.Context, event *model.ChangeEvent) error {
	payload := webhookPayload{
		Content:   Message(event),
		Username:  w.identity.Username,
		AvatarURL: w.identity.AvatarURL,
	}

	var (
		body        []byte
		contentType string
		err         error
	)
	if event.Artifact != nil && len(event.Artifact.Data) > 0 {
		body, contentType, err = multipartBody(payload, event.Artifact)
	} else {
		body, err = json.Marshal(payload)
		contentType = "application/json"
	}
	if err != nil {
		return fmt.Errorf("%w: failed to encode payload: %w", ErrNotify, err)
	}

	if err := w.post(ctx, body, contentType); err != nil {
		return err
	}
	w.logger.Debug("notification delivered", "target", event.Target, "kind", event.Kind)
	return nil
}

// post sends one request. Non-2xx responses, 429 included, are errors.
func (w *Webhook) post(ctx context.Context, body []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %w", ErrNotify, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotify, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512)) //nolint:errcheck // best effort detail
	return fmt.Errorf("%w: webhook returned %s: %s", ErrNotify, resp.Status, bytes.TrimSpace(snippet))
}

// multipartBody encodes the payload fields and the artifact as multipart/form-data.
func multipartBody(payload webhookPayload, artifact *model.Artifact) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"content", payload.Content},
		{"username", payload.Username},
		{"avatar_url", payload.AvatarURL},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := mw.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, artifact.Name, artifact.Name))
	contentType := artifact.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(artifact.Data); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}
