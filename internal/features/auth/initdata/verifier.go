// Package initdata проверяет подпись init data, которую Telegram передает Mini App.
package initdata

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	tginitdata "github.com/telegram-mini-apps/init-data-golang"
)

const (
	hashKey     = "hash"
	userKey     = "user"
	authDateKey = "auth_date"
	queryIDKey  = "query_id"
	startKey    = "start_param"

	// Константа из схемы подписи Telegram Web Apps
	webAppDataKey = "WebAppData"
)

var (
	ErrMissingParams = errors.New("missing_params")
	ErrMissingHash   = errors.New("missing_hash")
	ErrInvalidHash   = errors.New("invalid_hash")
	ErrExpired       = errors.New("expired")
)

// Result содержит поля init data после успешной проверки подписи.
type Result struct {
	// nil, если поле user отсутствует или не разбирается как JSON
	User       *tginitdata.User
	AuthDate   time.Time
	QueryID    string
	StartParam string
	Raw        url.Values
}

// Verify проверяет подпись payload ключом, производным от токена бота.
func Verify(payload, botToken string) (*Result, error) {
	payload = strings.TrimPrefix(payload, "?")
	if payload == "" {
		return nil, ErrMissingParams
	}

	values, err := url.ParseQuery(payload)
	if err != nil || len(values) == 0 {
		return nil, ErrMissingParams
	}

	provided := values.Get(hashKey)
	if provided == "" {
		return nil, ErrMissingHash
	}
	values.Del(hashKey)

	expected := sign(checkString(values), botToken)
	if !hmac.Equal([]byte(expected), []byte(provided)) {
		return nil, ErrInvalidHash
	}

	return buildResult(values), nil
}

// Sign вычисляет hash для набора полей; поле hash, если есть, игнорируется.
func Sign(values url.Values, botToken string) string {
	fields := make(url.Values, len(values))
	for k, v := range values {
		if k == hashKey {
			continue
		}
		fields[k] = v
	}
	return sign(checkString(fields), botToken)
}

// Reason возвращает машинное имя причины отказа.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrMissingParams):
		return ErrMissingParams.Error()
	case errors.Is(err, ErrMissingHash):
		return ErrMissingHash.Error()
	case errors.Is(err, ErrInvalidHash):
		return ErrInvalidHash.Error()
	case errors.Is(err, ErrExpired):
		return ErrExpired.Error()
	default:
		return "invalid_init_data"
	}
}

// checkString: пары key=value, отсортированные по ключу побайтово, через \n.
// Повторяющиеся ключи сохраняют исходный порядок значений.
func checkString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		for _, v := range values[k] {
			lines = append(lines, k+"="+v)
		}
	}
	return strings.Join(lines, "\n")
}

// sign: ключ подписи = HMAC-SHA256(key="WebAppData", msg=токен бота)
func sign(data, botToken string) string {
	secret := hmac.New(sha256.New, []byte(webAppDataKey))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

func buildResult(values url.Values) *Result {
	res := &Result{
		QueryID:    values.Get(queryIDKey),
		StartParam: values.Get(startKey),
		Raw:        values,
	}

	if raw := values.Get(authDateKey); raw != "" {
		if sec, err := strconv.ParseInt(raw, 10, 64); err == nil {
			res.AuthDate = time.Unix(sec, 0)
		}
	}

	// Подпись уже подтверждена, поэтому битый user не считается ошибкой
	if raw := values.Get(userKey); raw != "" {
		var user tginitdata.User
		if err := json.Unmarshal([]byte(raw), &user); err == nil {
			res.User = &user
		}
	}

	return res
}

// Verifier добавляет к Verify проверку свежести auth_date.
type Verifier struct {
	BotToken string
	// 0 отключает проверку срока
	ExpIn time.Duration
	Now   func() time.Time
}

func NewVerifier(botToken string, expIn time.Duration) *Verifier {
	return &Verifier{BotToken: botToken, ExpIn: expIn, Now: time.Now}
}

func (v *Verifier) Verify(payload string) (*Result, error) {
	res, err := Verify(payload, v.BotToken)
	if err != nil {
		return nil, err
	}

	if v.ExpIn > 0 {
		now := time.Now
		if v.Now != nil {
			now = v.Now
		}
		if res.AuthDate.IsZero() || res.AuthDate.Add(v.ExpIn).Before(now()) {
			return nil, ErrExpired
		}
	}

	return res, nil
}
