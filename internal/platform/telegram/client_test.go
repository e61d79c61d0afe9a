package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage_EncodesWebAppKeyboard(t *testing.T) {
	var got http.Header
	var form map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bot123:abc/sendMessage", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		got = r.Header
		form = map[string]string{
			"chat_id":      r.PostForm.Get("chat_id"),
			"text":         r.PostForm.Get("text"),
			"reply_markup": r.PostForm.Get("reply_markup"),
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":42,"chat":{"id":777,"type":"private"},"date":1}}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("123:abc", srv.URL, srv.Client())
	markup := &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{{
		{Text: "Открыть магазин", WebApp: &WebAppInfo{URL: "https://shop.example"}},
	}}}

	msg, err := c.SendMessage(context.Background(), 777, "hi", markup)
	require.NoError(t, err)
	assert.Equal(t, int64(42), msg.MessageID)

	assert.Equal(t, "application/x-www-form-urlencoded", got.Get("Content-Type"))
	assert.Equal(t, "777", form["chat_id"])
	assert.Equal(t, "hi", form["text"])

	var decoded InlineKeyboardMarkup
	require.NoError(t, json.Unmarshal([]byte(form["reply_markup"]), &decoded))
	assert.Equal(t, "https://shop.example", decoded.InlineKeyboard[0][0].WebApp.URL)
}

func TestCall_APIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/botT/getMe":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
		default:
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":3}}`))
		}
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("T", srv.URL, srv.Client())

	_, err := c.GetMe(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 401, apiErr.Code)

	_, err = c.GetUpdates(context.Background(), 0, 0)
	var rpsErr *RPSError
	require.True(t, errors.As(err, &rpsErr))
	assert.Equal(t, 3*time.Second, rpsErr.RetryAfter)
}

func TestCall_EmptyToken(t *testing.T) {
	c := NewClient("")
	_, err := c.GetMe(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
}
