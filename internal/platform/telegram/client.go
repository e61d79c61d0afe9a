package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"avastore-backend/internal/common/logger"
)

const defaultBaseURL = "https://api.telegram.org"

var ErrNoToken = errors.New("telegram bot token is empty")

type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// RPSError представляет ошибку превышения лимита запросов
type RPSError struct {
	Msg        string
	RetryAfter time.Duration
}

func (e *RPSError) Error() string {
	return e.Msg
}

// APIError: ответ Bot API с ok=false
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram API error in %s: %d %s", e.Method, e.Code, e.Description)
}

// Response представляет ответ от Telegram API
type Response struct {
	Ok          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters,omitempty"`
}

type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

type Chat struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title,omitempty"`
	Username string `json:"username,omitempty"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Date      int64  `json:"date"`
	Text      string `json:"text,omitempty"`
}

type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

type WebAppInfo struct {
	URL string `json:"url"`
}

type InlineKeyboardButton struct {
	Text         string      `json:"text"`
	URL          string      `json:"url,omitempty"`
	CallbackData string      `json:"callback_data,omitempty"`
	WebApp       *WebAppInfo `json:"web_app,omitempty"`
}

type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

func NewClient(token string) *Client {
	return NewClientWithBaseURL(token, defaultBaseURL, nil)
}

// NewClientWithBaseURL используется для локального Bot API сервера и тестов
func NewClientWithBaseURL(token, baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		// long polling держит соединение до timeout getUpdates
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
	}
}

// GetMe возвращает профиль бота; используется как проверка токена
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var me User
	if err := c.call(ctx, "getMe", nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// GetUpdates делает long polling. timeout в секундах, 0 означает короткий опрос.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	params := url.Values{
		"offset":          {strconv.FormatInt(offset, 10)},
		"timeout":         {strconv.Itoa(timeout)},
		"allowed_updates": {`["message","callback_query"]`},
	}

	var updates []Update
	if err := c.call(ctx, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage отправляет текст; markup может быть nil
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, markup *InlineKeyboardMarkup) (*Message, error) {
	params := url.Values{
		"chat_id": {strconv.FormatInt(chatID, 10)},
		"text":    {text},
	}
	if markup != nil {
		raw, err := json.Marshal(markup)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal reply markup: %w", err)
		}
		params.Set("reply_markup", string(raw))
	}

	var msg Message
	if err := c.call(ctx, "sendMessage", params, &msg); err != nil {
		logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
		return nil, err
	}

	logger.Debug().Int64("chat_id", chatID).Int64("message_id", msg.MessageID).Msg("Message sent")
	return &msg, nil
}

func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	params := url.Values{"callback_query_id": {callbackID}}
	if text != "" {
		params.Set("text", text)
	}

	var ok bool
	return c.call(ctx, "answerCallbackQuery", params, &ok)
}

func (c *Client) call(ctx context.Context, method string, params url.Values, result interface{}) error {
	if c.token == "" {
		return ErrNoToken
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)

	var response Response
	if err := c.makeRequest(ctx, endpoint, params, &response); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	if !response.Ok {
		if response.ErrorCode == http.StatusTooManyRequests {
			rpsErr := &RPSError{Msg: response.Description}
			if response.Parameters != nil {
				rpsErr.RetryAfter = time.Duration(response.Parameters.RetryAfter) * time.Second
			}
			return rpsErr
		}
		return &APIError{Method: method, Code: response.ErrorCode, Description: response.Description}
	}

	if result == nil || len(response.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(response.Result, result); err != nil {
		return fmt.Errorf("%s: failed to parse result: %w", method, err)
	}
	return nil
}

func (c *Client) makeRequest(ctx context.Context, endpoint string, data url.Values, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// токен входит в URL, поэтому наружу отдаем ошибку без него
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return fmt.Errorf("failed to send request: %w", urlErr.Err)
		}
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to parse response (status %d): %w", resp.StatusCode, err)
	}

	return nil
}
