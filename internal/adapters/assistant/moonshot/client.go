// Package moonshot implementa el puerto del asistente contra la API
// de Moonshot (compatible OpenAI).
package moonshot

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"medication-tracker/internal/platform/logger"
	"medication-tracker/internal/ports/assistant"
)

const (
	moonshotBaseURL = "https://api.moonshot.cn/v1"
	defaultModel    = "moonshot-v1-8k"
	defaultTimeout  = 30 * time.Second
)

// systemPrompt fija la persona del asistente: acompaña la adherencia,
// no diagnostica ni prescribe.
const systemPrompt = `You are a warm, supportive medication assistant inside a personal ` +
	`medication tracking app. You help the user stay consistent with their ` +
	`medication routine, explain general information about medications, and ` +
	`encourage healthy habits. You are not a doctor: never diagnose, never ` +
	`prescribe, and always recommend consulting a healthcare professional for ` +
	`medical decisions, dosage changes, or concerning side effects. Keep ` +
	`answers concise and kind.`

type Client struct {
	api   *openai.Client
	model string
	log   logger.Logger
}

// NewClient arma el cliente. Con apiKey vacía igual se construye: cada
// Send devuelve ErrNotConfigured, así el resto del server funciona sin
// credenciales.
func NewClient(apiKey, model string, log logger.Logger) *Client {
	if model == "" {
		model = defaultModel
	}
	if log == nil {
		log = logger.Nop{}
	}

	var api *openai.Client
	if apiKey != "" {
		cfg := openai.DefaultConfig(apiKey)
		cfg.BaseURL = moonshotBaseURL
		api = openai.NewClientWithConfig(cfg)
	}

	return &Client{api: api, model: model, log: log}
}

func (c *Client) Send(ctx context.Context, userText string, history []assistant.Turn) (string, error) {
	if c.api == nil {
		return "", assistant.ErrNotConfigured
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, t := range history {
		role := openai.ChatMessageRoleUser
		if t.Role == assistant.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userText,
	})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: msgs,
	})
	if err != nil {
		return "", c.classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", assistant.ErrUnavailable
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// classify mapea los errores del transporte a los sentinels del puerto.
func (c *Client) classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return assistant.ErrTimeout
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusUnauthorized,
			apiErr.HTTPStatusCode == http.StatusForbidden:
			return assistant.ErrUnauthorized
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return assistant.ErrRateLimited
		case apiErr.HTTPStatusCode >= 500:
			return assistant.ErrUnavailable
		}
	}

	c.log.Warn("assistant request failed", map[string]any{"error": err.Error()})
	return assistant.ErrUnavailable
}
