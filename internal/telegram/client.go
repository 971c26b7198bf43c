// Package telegram covers the few Bot API calls the bridge makes:
// sending messages (plain and with the Mini App button) and long-polling
// getUpdates for the summary bot. It is not a general Bot API client.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultAPIBaseURL = "https://api.telegram.org/bot"

// pollTimeout is the server-side getUpdates long-poll window, in seconds.
// The HTTP client timeout must stay above it.
const pollTimeout = 25

type Client struct {
	botToken   string
	apiBaseURL string
	httpClient *http.Client
}

// Update is one getUpdates entry, reduced to the fields the bot reads.
type Update struct {
	UpdateID      int64    `json:"update_id"`
	Message       *Message `json:"message"`
	EditedMessage *Message `json:"edited_message"`
}

type Message struct {
	Text string `json:"text"`
	Chat struct {
		ID int64 `json:"id"`
	} `json:"chat"`
	From *struct {
		ID int64 `json:"id"`
	} `json:"from"`
}

func NewClient(botToken string) (*Client, error) {
	if botToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	return &Client{
		botToken:   botToken,
		apiBaseURL: defaultAPIBaseURL,
		httpClient: &http.Client{Timeout: (pollTimeout + 10) * time.Second},
	}, nil
}

// SendWebAppButton sends text with a single inline button that opens the
// Mini App at webAppURL.
func (c *Client) SendWebAppButton(ctx context.Context, chatID int64, text, webAppURL string) error {
	if text == "" {
		return fmt.Errorf("message text is required")
	}

	payload := map[string]any{
		"chat_id": chatID,
		"text":    text,
		"reply_markup": map[string]any{
			"inline_keyboard": [][]map[string]any{
				{
					{
						"text":    "✏️ Редактировать",
						"web_app": map[string]string{"url": webAppURL},
					},
				},
			},
		},
		"disable_web_page_preview": true,
	}
	return c.call(ctx, "sendMessage", payload, nil)
}

// SendMessage sends a plain text message with link previews disabled.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	if text == "" {
		return fmt.Errorf("message text is required")
	}

	payload := map[string]any{
		"chat_id":                  chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}
	return c.call(ctx, "sendMessage", payload, nil)
}

// GetUpdates long-polls for new updates after offset. A zero offset asks
// for everything Telegram still holds.
func (c *Client) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	query := url.Values{}
	query.Set("timeout", strconv.Itoa(pollTimeout))
	if offset != 0 {
		query.Set("offset", strconv.FormatInt(offset, 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.apiBaseURL+c.botToken+"/getUpdates?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var updates []Update
	if err := c.do(req, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

func (c *Client) call(ctx context.Context, method string, payload, out any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBaseURL+c.botToken+"/"+method, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API error (status %d)", resp.StatusCode)
	}

	var result struct {
		OK          bool            `json:"ok"`
		Description string          `json:"description"`
		Result      json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("telegram API error: %s", result.Description)
	}
	if out != nil && len(result.Result) > 0 {
		if err := json.Unmarshal(result.Result, out); err != nil {
			return fmt.Errorf("parsing result: %w", err)
		}
	}
	return nil
}
