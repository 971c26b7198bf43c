package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewClient_RequiresToken(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)
}

func TestSendWebAppButton(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/sendMessage", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client, err := NewClient("test-token")
	assert.NoError(t, err)
	client.apiBaseURL = srv.URL + "/bot"

	err = client.SendWebAppButton(context.Background(), 777, "Lunch logged", "https://app.example.com/webapp/?cid=cid-1")
	assert.NoError(t, err)

	assert.Equal(t, float64(777), payload["chat_id"])
	assert.Equal(t, "Lunch logged", payload["text"])

	markup := payload["reply_markup"].(map[string]any)
	rows := markup["inline_keyboard"].([]any)
	button := rows[0].([]any)[0].(map[string]any)
	webApp := button["web_app"].(map[string]any)
	assert.Equal(t, "https://app.example.com/webapp/?cid=cid-1", webApp["url"])
}

func TestSendMessage(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/sendMessage", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client, err := NewClient("test-token")
	assert.NoError(t, err)
	client.apiBaseURL = srv.URL + "/bot"

	err = client.SendMessage(context.Background(), 777, "📅 10.08.2026\nНет записей.")
	assert.NoError(t, err)

	assert.Equal(t, float64(777), payload["chat_id"])
	assert.Equal(t, "📅 10.08.2026\nНет записей.", payload["text"])
	assert.Equal(t, true, payload["disable_web_page_preview"])
	assert.NotContains(t, payload, "reply_markup")
}

func TestGetUpdates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/getUpdates", r.URL.Path)
		assert.Equal(t, "42", r.URL.Query().Get("offset"))
		assert.Equal(t, "25", r.URL.Query().Get("timeout"))
		_, _ = w.Write([]byte(`{"ok":true,"result":[
			{"update_id":42,"message":{"text":"/today","chat":{"id":777},"from":{"id":12345}}},
			{"update_id":43,"edited_message":{"text":"/help","chat":{"id":777}}}
		]}`))
	}))
	defer srv.Close()

	client, err := NewClient("test-token")
	assert.NoError(t, err)
	client.apiBaseURL = srv.URL + "/bot"

	updates, err := client.GetUpdates(context.Background(), 42)
	assert.NoError(t, err)
	assert.Len(t, updates, 2)
	assert.Equal(t, int64(42), updates[0].UpdateID)
	assert.Equal(t, "/today", updates[0].Message.Text)
	assert.Equal(t, int64(777), updates[0].Message.Chat.ID)
	assert.Equal(t, int64(12345), updates[0].Message.From.ID)
	assert.Nil(t, updates[1].Message)
	assert.Equal(t, "/help", updates[1].EditedMessage.Text)
}

func TestGetUpdates_ZeroOffsetOmitted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("offset"))
		_, _ = w.Write([]byte(`{"ok":true,"result":[]}`))
	}))
	defer srv.Close()

	client, err := NewClient("test-token")
	assert.NoError(t, err)
	client.apiBaseURL = srv.URL + "/bot"

	updates, err := client.GetUpdates(context.Background(), 0)
	assert.NoError(t, err)
	assert.Empty(t, updates)
}

func TestGetUpdates_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"bad token"}`))
	}))
	defer srv.Close()

	client, err := NewClient("test-token")
	assert.NoError(t, err)
	client.apiBaseURL = srv.URL + "/bot"

	_, err = client.GetUpdates(context.Background(), 0)
	assert.ErrorContains(t, err, "bad token")
}

func TestSendWebAppButton_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	client, err := NewClient("test-token")
	assert.NoError(t, err)
	client.apiBaseURL = srv.URL + "/bot"

	err = client.SendWebAppButton(context.Background(), 777, "text", "https://app.example.com")
	assert.ErrorContains(t, err, "chat not found")
}

func TestSendWebAppButton_EmptyText(t *testing.T) {
	client, err := NewClient("test-token")
	assert.NoError(t, err)

	err = client.SendWebAppButton(context.Background(), 777, "", "https://app.example.com")
	assert.Error(t, err)
}
