// Package pushover entrega los recordatorios a través de la API de
// Pushover. El adapter mantiene la agenda en memoria y un worker la
// dispara a la hora de cada franja.
package pushover

import (
	"context"
	"net/http"
	"time"

	"medication-tracker/internal/platform/httpclient"
)

const messagesURL = "https://api.pushover.net/1/messages.json"

// Client habla con la API de mensajes de Pushover.
type Client struct {
	http  *httpclient.Client
	token string
	user  string
}

func NewClient(token, user string, hc *httpclient.Client) *Client {
	if hc == nil {
		hc = httpclient.New(10 * time.Second)
	}
	return &Client{http: hc, token: token, user: user}
}

func (c *Client) Configured() bool {
	return c.token != "" && c.user != ""
}

type messageRequest struct {
	Token   string `json:"token"`
	User    string `json:"user"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

func (c *Client) Send(ctx context.Context, title, message string) error {
	req := messageRequest{
		Token:   c.token,
		User:    c.user,
		Title:   title,
		Message: message,
	}
	return c.http.DoJSON(ctx, http.MethodPost, messagesURL, nil, req, nil)
}
