// Package gateway forwards chat messages and description-generation
// requests to the external n8n automation webhook and translates its
// semi-structured responses into typed results.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/todozap/api/internal/models"
)

// ErrNotConfigured is returned when the required webhook URL is
// missing from the environment.
var ErrNotConfigured = errors.New("webhook url not configured")

// UpstreamError reports a failed webhook call. StatusCode is 0 for
// transport-level failures (timeout, connection refused).
type UpstreamError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("webhook returned status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("webhook call failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

type Delegate interface {
	// SendChat posts a chat message together with the user's task
	// context and returns the rendered reply. Never retried.
	SendChat(ctx context.Context, params ChatParams) (*ChatReply, error)

	// GenerateDescription asks the upstream to draft a task
	// description and returns it rendered as HTML.
	GenerateDescription(ctx context.Context, params DescriptionParams) (string, error)

	// ForwardCommand relays an inbound WhatsApp command to the
	// Evolution automation webhook.
	ForwardCommand(ctx context.Context, remoteJid, message string) error
}

type Client struct {
	logger              zerolog.Logger
	httpClient          *http.Client
	chatWebhookURL      string
	evolutionWebhookURL string
	apiKey              string
}

func NewClient(
	logger zerolog.Logger,
	chatWebhookURL string,
	evolutionWebhookURL string,
	apiKey string,
	timeout time.Duration,
) *Client {
	return &Client{
		logger:              logger,
		httpClient:          &http.Client{Timeout: timeout},
		chatWebhookURL:      chatWebhookURL,
		evolutionWebhookURL: evolutionWebhookURL,
		apiKey:              apiKey,
	}
}

type ChatParams struct {
	Message      string
	UserKey      string
	UserEmail    string
	UserWhatsApp *string
	Tasks        []*models.Task
}

type ChatReply struct {
	// ReplyHTML is the upstream reply rendered from Markdown.
	ReplyHTML string
	// UserEmail is the email echoed back by the upstream, falling
	// back to the request's user key.
	UserEmail string
}

type chatWebhookRequest struct {
	Message      string     `json:"message"`
	UserKey      string     `json:"user_key"`
	UserEmail    string     `json:"user_email"`
	UserWhatsApp *string    `json:"user_whatsapp"`
	Tasks        []chatTask `json:"tasks"`
	Source       string     `json:"source"`
	Timestamp    time.Time  `json:"timestamp"`
}

type chatTask struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Completed   bool     `json:"completed"`
	Priority    string   `json:"priority"`
	Tags        []string `json:"tags"`
	DueDate     *string  `json:"due_date"`
}

func (c *Client) SendChat(ctx context.Context, params ChatParams) (*ChatReply, error) {
	if c.chatWebhookURL == "" {
		return nil, ErrNotConfigured
	}

	tasks := make([]chatTask, len(params.Tasks))
	for i, task := range params.Tasks {
		var dueDate *string
		if task.DueDate != nil {
			formatted := task.DueDate.Format(time.DateOnly)
			dueDate = &formatted
		}
		tasks[i] = chatTask{
			ID:          task.ID,
			Title:       task.Title,
			Description: task.Description,
			Completed:   task.Completed,
			Priority:    task.Priority,
			Tags:        task.Tags,
			DueDate:     dueDate,
		}
	}

	body, err := c.post(ctx, c.chatWebhookURL, chatWebhookRequest{
		Message:      params.Message,
		UserKey:      params.UserKey,
		UserEmail:    params.UserEmail,
		UserWhatsApp: params.UserWhatsApp,
		Tasks:        tasks,
		Source:       "web",
		Timestamp:    time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	rawReply, userEmail := parseChatReply(body, params.UserKey)

	replyHTML, err := renderMarkdown(rawReply)
	if err != nil {
		c.logger.Error().
			Err(err).
			Msg("failed to render chat reply")
		return nil, err
	}

	c.logger.Info().
		Str("user_key", params.UserKey).
		Int("reply_len", len(replyHTML)).
		Msg("received chat reply")
	return &ChatReply{
		ReplyHTML: replyHTML,
		UserEmail: userEmail,
	}, nil
}

type DescriptionParams struct {
	Title       string
	Description string
	UserKey     string
}

type descriptionWebhookRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Action      string `json:"action"`
	UserKey     string `json:"user_key"`
}

func (c *Client) GenerateDescription(ctx context.Context, params DescriptionParams) (string, error) {
	if c.chatWebhookURL == "" {
		return "", ErrNotConfigured
	}

	body, err := c.post(ctx, c.chatWebhookURL, descriptionWebhookRequest{
		Title:       params.Title,
		Description: params.Description,
		Action:      "generate_description",
		UserKey:     params.UserKey,
	})
	if err != nil {
		return "", err
	}

	description := parseDescription(body)

	rendered, err := renderMarkdown(splitParagraphs(description))
	if err != nil {
		c.logger.Error().
			Err(err).
			Msg("failed to render description")
		return "", err
	}

	c.logger.Info().
		Str("user_key", params.UserKey).
		Msg("generated description")
	return rendered, nil
}

type commandWebhookRequest struct {
	RemoteJid string    `json:"remoteJid"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (c *Client) ForwardCommand(ctx context.Context, remoteJid, message string) error {
	if c.evolutionWebhookURL == "" {
		return ErrNotConfigured
	}

	_, err := c.post(ctx, c.evolutionWebhookURL, commandWebhookRequest{
		RemoteJid: remoteJid,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	c.logger.Info().
		Str("remote_jid", remoteJid).
		Msg("forwarded whatsapp command")
	return nil
}

func (c *Client) post(ctx context.Context, url string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("url", url).
			Msg("webhook call failed")
		return nil, &UpstreamError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("url", url).
			Msg("webhook returned non-2xx status")
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}
	return body, nil
}

var (
	replyPattern     = regexp.MustCompile(`(?s)"reply":\s*"(.*?)",\s*"user_email"`)
	userEmailPattern = regexp.MustCompile(`"user_email":\s*"([^"]+)"`)
)

const defaultReply = "Resposta recebida"

// parseChatReply extracts the reply text and echoed email out of the
// upstream body. The upstream contract is semi-structured: the fields
// are matched wherever they appear instead of decoding a schema. When
// the reply pattern is absent the whole body is used as the reply.
func parseChatReply(body []byte, fallbackEmail string) (string, string) {
	reply := defaultReply
	if m := replyPattern.FindSubmatch(body); m != nil {
		reply = strings.ReplaceAll(string(m[1]), `\n`, "\n")
	} else if len(body) > 0 {
		reply = string(body)
	}

	email := fallbackEmail
	if m := userEmailPattern.FindSubmatch(body); m != nil {
		email = string(m[1])
	}
	return reply, email
}

type descriptionResponse struct {
	Output      string `json:"output"`
	Description string `json:"description"`
}

// parseDescription accepts either a plain string body, a JSON string,
// or an object carrying the text in "output" or "description".
func parseDescription(body []byte) string {
	trimmed := bytes.TrimSpace(body)

	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}

	if len(trimmed) > 0 && trimmed[0] == '{' {
		var obj descriptionResponse
		if err := json.Unmarshal(trimmed, &obj); err == nil {
			if obj.Output != "" {
				return obj.Output
			}
			if obj.Description != "" {
				return obj.Description
			}
		}
	}
	return string(trimmed)
}

// splitParagraphs turns the upstream convention of joining paragraphs
// with a literal " -- " separator into blank-line paragraph breaks.
func splitParagraphs(s string) string {
	parts := strings.Split(s, " -- ")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return strings.Join(parts, "\n\n")
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
		html.WithUnsafe(),
	),
)

func renderMarkdown(s string) (string, error) {
	var buf bytes.Buffer
	err := markdown.Convert([]byte(s), &buf)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}
