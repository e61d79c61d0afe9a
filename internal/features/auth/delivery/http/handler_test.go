package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"avastore-backend/internal/common/middleware"
	"avastore-backend/internal/features/auth/initdata"
	"avastore-backend/internal/features/auth/service"
	"avastore-backend/internal/features/auth/token"
	usermodels "avastore-backend/internal/features/user/models"
	usermemory "avastore-backend/internal/features/user/repository/memory"
	userservice "avastore-backend/internal/features/user/service"
	"avastore-backend/internal/platform/memory"
)

const botToken = "1234567890:AAF-test-bot-token"

func signedInitData(authDate time.Time) string {
	values := url.Values{}
	values.Set("query_id", "AAHdF6IQAAAAAN0XohDhrOrc")
	values.Set("user", `{"id":279058397,"first_name":"Vladislav","last_name":"Kibenko","username":"vdkfrost"}`)
	values.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	values.Set("hash", initdata.Sign(values, botToken))
	return values.Encode()
}

func setupRouter(t *testing.T) (*gin.Engine, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	store := memory.NewStore()
	users := userservice.NewUserService(usermemory.NewMemoryRepository(store), logger)
	auth := service.NewAuthService(
		initdata.NewVerifier(botToken, 24*time.Hour),
		token.NewManager("test-secret", time.Hour),
		users,
		nil,
		logger,
	)

	router := gin.New()
	router.Use(middleware.RequestID())
	api := router.Group("/api")
	NewAuthHandler(auth, logger).RegisterRoutes(api, middleware.RequireAuth(auth, logger))
	return router, store
}

func do(router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type verifyBody struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	User  *struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

func TestVerify_ValidInitDataHasNoSideEffects(t *testing.T) {
	router, store := setupRouter(t)

	w := do(router, http.MethodPost, "/api/verify", gin.H{"initData": signedInitData(time.Now())}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body verifyBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.OK)
	require.NotNil(t, body.User)
	assert.Equal(t, int64(279058397), body.User.ID)
	assert.Equal(t, "vdkfrost", body.User.Username)

	assert.Zero(t, memory.GetTable[usermodels.User](store, memory.TableUsers).Len())
}

func TestVerify_Rejections(t *testing.T) {
	router, _ := setupRouter(t)

	tampered := signedInitData(time.Now()) + "&extra=1"

	cases := []struct {
		name   string
		body   interface{}
		status int
		reason string
	}{
		{"tampered", gin.H{"initData": tampered}, http.StatusUnauthorized, "invalid_hash"},
		{"no hash", gin.H{"initData": "auth_date=1700000000&user=%7B%7D"}, http.StatusUnauthorized, "missing_hash"},
		{"empty", gin.H{"initData": ""}, http.StatusBadRequest, "missing_params"},
		{"no body", nil, http.StatusBadRequest, "missing_params"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(router, http.MethodPost, "/api/verify", tc.body, nil)
			assert.Equal(t, tc.status, w.Code)

			var body verifyBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.OK)
			assert.Equal(t, tc.reason, body.Error)
		})
	}
}

func TestLogin_IssuesTokenAcceptedByMe(t *testing.T) {
	router, _ := setupRouter(t)

	w := do(router, http.MethodPost, "/api/auth/telegram", gin.H{"initData": signedInitData(time.Now())}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var login struct {
		Data struct {
			Token string `json:"token"`
			User  struct {
				ID         int64  `json:"id"`
				TelegramID int64  `json:"telegram_id"`
				Role       string `json:"role"`
			} `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	require.NotEmpty(t, login.Data.Token)
	assert.Equal(t, int64(279058397), login.Data.User.TelegramID)
	assert.Equal(t, usermodels.RoleCustomer, login.Data.User.Role)

	w = do(router, http.MethodGet, "/api/auth/me", nil, map[string]string{"Authorization": "Bearer " + login.Data.Token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var me struct {
		Data struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, login.Data.User.ID, me.Data.ID)
}

func TestMe_AcceptsInitDataHeader(t *testing.T) {
	router, _ := setupRouter(t)

	w := do(router, http.MethodGet, "/api/auth/me", nil, map[string]string{middleware.InitDataHeader: signedInitData(time.Now())})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestMe_Unauthorized(t *testing.T) {
	router, _ := setupRouter(t)

	cases := map[string]map[string]string{
		"no credentials":  nil,
		"garbage token":   {"Authorization": "Bearer not-a-jwt"},
		"stale init data": {middleware.InitDataHeader: signedInitData(time.Now().Add(-48 * time.Hour))},
	}
	for name, headers := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(router, http.MethodGet, "/api/auth/me", nil, headers)
			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var body middleware.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, "UNAUTHORIZED", string(body.Code))
		})
	}
}
