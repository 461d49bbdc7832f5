package api_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"sydai_backend/internal/api"
	"sydai_backend/internal/middleware"
	"sydai_backend/internal/repository/memory"
	"sydai_backend/internal/repository/storetest"
	"sydai_backend/internal/service"
	"sydai_backend/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type memoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func (m *memoryRevoker) Revoke(_ context.Context, tokenID string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[tokenID] = true
	return nil
}

func (m *memoryRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revoked[tokenID], nil
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string, string, int, time.Duration) (bool, error) {
	return false, nil
}

type fixture struct {
	store  *memory.Store
	hub    *service.NotificationHub
	router *gin.Engine
}

type fixtureOption func(*api.Dependencies)

func withLimiter(l middleware.Limiter) fixtureOption {
	return func(d *api.Dependencies) {
		d.Limiter = l
	}
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.New()
	hub := service.NewNotificationHub()
	clock := func() time.Time { return testNow }

	ledger := service.NewLedgerService(store)
	notifications := service.NewNotificationService(store, store, hub)
	referrals := service.NewReferralService(store, notifications, "https://sydai.app")
	svc := service.NewService(
		service.NewUserService(store, store, notifications, referrals, service.WithHashCost(bcrypt.MinCost)),
		service.NewCheckinService(ledger, notifications, service.WithClock(clock)),
		referrals,
		service.NewLeaderboardService(store),
		notifications,
		service.NewChatService(store, ledger),
		service.NewSettingsService(store),
	)

	deps := api.Dependencies{
		Service:  svc,
		Sessions: auth.NewSessionManager("test-secret", time.Hour, &memoryRevoker{revoked: map[string]bool{}}, false),
		Limits:   api.RateLimits{Messages: 30, Checkins: 10, Window: time.Minute},
	}
	for _, opt := range opts {
		opt(&deps)
	}

	router := gin.New()
	api.RegisterRoutes(router.Group("/api/v1"), deps)

	return &fixture{store: store, hub: hub, router: router}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

type registered struct {
	ID    string
	Token string
}

func (f *fixture) register(t *testing.T, username, referralCode string) registered {
	t.Helper()

	w := f.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":           username + "@example.com",
		"username":        username,
		"password":        "secret123",
		"confirmPassword": "secret123",
		"referralCode":    referralCode,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var out struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		Token string `json:"token"`
	}
	decode(t, w, &out)
	require.NotEmpty(t, out.Token)
	return registered{ID: out.User.ID, Token: out.Token}
}

func (f *fixture) points(t *testing.T, userID string) int {
	t.Helper()
	u, err := f.store.GetUserByID(context.Background(), userID)
	require.NoError(t, err)
	return u.Points
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestAuth_RegisterLoginMe(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":           "quinn@example.com",
		"username":        "quinn",
		"password":        "secret123",
		"confirmPassword": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), auth.CookieName+"=")

	w = f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "quinn@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var login struct {
		User struct {
			Username string `json:"username"`
			Points   int    `json:"points"`
		} `json:"user"`
		Token string `json:"token"`
	}
	decode(t, w, &login)
	assert.Equal(t, "quinn", login.User.Username)
	assert.Equal(t, 0, login.User.Points)

	w = f.do(t, http.MethodGet, "/api/v1/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"quinn"`)

	w = f.do(t, http.MethodGet, "/api/v1/user", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"quinn@example.com"`)
}

func TestAuth_RegisterErrors(t *testing.T) {
	f := newFixture(t)
	f.register(t, "taken", "")

	tests := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{
			name:   "Missing fields",
			body:   map[string]string{"email": "a@example.com"},
			status: http.StatusBadRequest,
		},
		{
			name: "Password mismatch",
			body: map[string]string{
				"email": "new@example.com", "username": "newbie",
				"password": "secret123", "confirmPassword": "secret124",
			},
			status: http.StatusBadRequest,
		},
		{
			name: "Email taken",
			body: map[string]string{
				"email": "taken@example.com", "username": "other",
				"password": "secret123", "confirmPassword": "secret123",
			},
			status: http.StatusConflict,
		},
		{
			name: "Username taken",
			body: map[string]string{
				"email": "other@example.com", "username": "taken",
				"password": "secret123", "confirmPassword": "secret123",
			},
			status: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/v1/auth/register", "", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestAuth_LoginWrongPassword(t *testing.T) {
	f := newFixture(t)
	f.register(t, "quinn", "")

	w := f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "quinn@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_LogoutRevokesToken(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "quinn", "")

	w := f.do(t, http.MethodPost, "/api/v1/auth/logout", u.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")

	w = f.do(t, http.MethodGet, "/api/v1/auth/me", u.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	f := newFixture(t)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodGet, "/api/v1/user"},
		{http.MethodPost, "/api/v1/checkin"},
		{http.MethodGet, "/api/v1/referral"},
		{http.MethodPost, "/api/v1/referral/complete"},
		{http.MethodGet, "/api/v1/messages"},
		{http.MethodGet, "/api/v1/notifications"},
		{http.MethodGet, "/api/v1/settings"},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w := f.do(t, rt.method, rt.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)

			w = f.do(t, rt.method, rt.path, "not-a-token", nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestCheckin(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "quinn", "")

	w := f.do(t, http.MethodGet, "/api/v1/checkin", u.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"never_checked_in"`)

	w = f.do(t, http.MethodPost, "/api/v1/checkin", u.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var first struct {
		Success       bool `json:"success"`
		PointsAwarded int  `json:"pointsAwarded"`
		User          struct {
			Points int `json:"points"`
		} `json:"user"`
	}
	decode(t, w, &first)
	assert.True(t, first.Success)
	assert.Equal(t, service.CheckinReward, first.PointsAwarded)
	assert.Equal(t, service.CheckinReward, first.User.Points)

	w = f.do(t, http.MethodPost, "/api/v1/checkin", u.Token, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var second struct {
		Success       bool   `json:"success"`
		PointsAwarded int    `json:"pointsAwarded"`
		Error         string `json:"error"`
	}
	decode(t, w, &second)
	assert.False(t, second.Success)
	assert.Equal(t, 0, second.PointsAwarded)
	assert.Equal(t, "Already checked in today", second.Error)
	assert.Equal(t, service.CheckinReward, f.points(t, u.ID))

	w = f.do(t, http.MethodGet, "/api/v1/checkin", u.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"checkedInToday":true`)
	assert.Contains(t, w.Body.String(), `"nextAvailableAt":"2024-03-11T00:00:00Z"`)
}

func TestCheckin_RateLimited(t *testing.T) {
	f := newFixture(t, withLimiter(denyLimiter{}))
	u := f.register(t, "quinn", "")

	w := f.do(t, http.MethodPost, "/api/v1/checkin", u.Token, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, 0, f.points(t, u.ID))
}

func TestLeaderboard(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 25; i++ {
		require.NoError(t, f.store.CreateUser(context.Background(), storetest.NewUser("player"+string(rune('a'+i)), 1000-i)))
	}

	type page struct {
		Entries []struct {
			Username string `json:"username"`
			Rank     int    `json:"rank"`
			Points   int    `json:"points"`
		} `json:"entries"`
		TotalUsers int  `json:"totalUsers"`
		HasMore    bool `json:"hasMore"`
		Page       int  `json:"page"`
		Limit      int  `json:"limit"`
	}

	tests := []struct {
		query     string
		count     int
		firstRank int
		hasMore   bool
	}{
		{query: "", count: 10, firstRank: 1, hasMore: true},
		{query: "?page=1", count: 10, firstRank: 11, hasMore: true},
		{query: "?page=2", count: 5, firstRank: 21, hasMore: false},
		{query: "?page=0&limit=25", count: 25, firstRank: 1, hasMore: true},
	}

	for _, tt := range tests {
		t.Run("query "+tt.query, func(t *testing.T) {
			w := f.do(t, http.MethodGet, "/api/v1/leaderboard"+tt.query, "", nil)
			require.Equal(t, http.StatusOK, w.Code)

			var out page
			decode(t, w, &out)
			require.Len(t, out.Entries, tt.count)
			assert.Equal(t, tt.firstRank, out.Entries[0].Rank)
			assert.Equal(t, tt.hasMore, out.HasMore)
			assert.Equal(t, service.LeaderboardFloor, out.TotalUsers)
		})
	}
}

func TestLeaderboard_InvalidQuery(t *testing.T) {
	f := newFixture(t)

	for _, q := range []string{"?page=abc", "?page=-1", "?limit=0", "?limit=x"} {
		t.Run(q, func(t *testing.T) {
			w := f.do(t, http.MethodGet, "/api/v1/leaderboard"+q, "", nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestReferralFlow(t *testing.T) {
	f := newFixture(t)
	referrer := f.register(t, "referrer", "")

	w := f.do(t, http.MethodGet, "/api/v1/referral", referrer.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats struct {
		ReferralCode   string `json:"referralCode"`
		ReferralLink   string `json:"referralLink"`
		TotalReferrals int    `json:"totalReferrals"`
		TotalPoints    int    `json:"totalPoints"`
	}
	decode(t, w, &stats)
	require.Len(t, stats.ReferralCode, service.ReferralCodeLength)
	assert.Equal(t, "https://sydai.app/signup?ref="+stats.ReferralCode, stats.ReferralLink)
	assert.Zero(t, stats.TotalReferrals)

	t.Run("Self referral", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/v1/referral/complete", referrer.Token, map[string]string{"referralCode": stats.ReferralCode})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	invitee := f.register(t, "invitee", "")
	w = f.do(t, http.MethodPost, "/api/v1/referral/complete", invitee.Token, map[string]string{"referralCode": strings.ToLower(stats.ReferralCode)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, service.ReferralReward, f.points(t, referrer.ID))

	late := f.register(t, "latecomer", "")
	w = f.do(t, http.MethodPost, "/api/v1/referral/complete", late.Token, map[string]string{"referralCode": stats.ReferralCode})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, service.ReferralReward, f.points(t, referrer.ID))

	w = f.do(t, http.MethodPost, "/api/v1/referral/complete", late.Token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/referral", referrer.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &stats)
	assert.Equal(t, 1, stats.TotalReferrals)
	assert.Equal(t, service.ReferralReward, stats.TotalPoints)
}

func TestReferral_CompletedAtRegistration(t *testing.T) {
	f := newFixture(t)
	referrer := f.register(t, "referrer", "")

	w := f.do(t, http.MethodGet, "/api/v1/referral", referrer.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		ReferralCode string `json:"referralCode"`
	}
	decode(t, w, &stats)

	f.register(t, "invitee", stats.ReferralCode)
	assert.Equal(t, service.ReferralReward, f.points(t, referrer.ID))

	// An unknown code does not fail the registration.
	f.register(t, "another", "ZZZZZZZZ")
}

func TestMessages(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "quinn", "")

	w := f.do(t, http.MethodPost, "/api/v1/messages", u.Token, map[string]string{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/messages", u.Token, map[string]string{"content": " hello "})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var sent struct {
		Content    string `json:"content"`
		IsFromUser bool   `json:"isFromUser"`
		Points     int    `json:"points"`
	}
	decode(t, w, &sent)
	assert.Equal(t, "hello", sent.Content)
	assert.True(t, sent.IsFromUser)
	assert.Equal(t, service.MessageReward, sent.Points)

	w = f.do(t, http.MethodGet, "/api/v1/messages", u.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []struct {
		Content    string `json:"content"`
		IsFromUser bool   `json:"isFromUser"`
	}
	decode(t, w, &list)
	require.Len(t, list, 2)
	assert.True(t, list[0].IsFromUser)
	assert.False(t, list[1].IsFromUser)
	assert.Contains(t, service.CannedReplies, list[1].Content)
}

func TestMessages_RateLimited(t *testing.T) {
	f := newFixture(t, withLimiter(denyLimiter{}))
	u := f.register(t, "quinn", "")

	w := f.do(t, http.MethodPost, "/api/v1/messages", u.Token, map[string]string{"content": "hello"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/messages", u.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

type notification struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	IsRead bool   `json:"isRead"`
}

func TestNotifications(t *testing.T) {
	f := newFixture(t)
	owner := f.register(t, "owner", "")
	other := f.register(t, "other", "")

	w := f.do(t, http.MethodPost, "/api/v1/checkin", owner.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/notifications", owner.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []notification
	decode(t, w, &list)
	require.Len(t, list, 2)

	var id string
	for _, n := range list {
		if n.Title == "Daily Check-in Complete!" {
			id = n.ID
		}
	}
	require.NotEmpty(t, id)

	w = f.do(t, http.MethodGet, "/api/v1/notifications/unread-count", owner.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":2}`, w.Body.String())

	t.Run("Other users cannot touch it", func(t *testing.T) {
		w := f.do(t, http.MethodPatch, "/api/v1/notifications/"+id+"/read", other.Token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = f.do(t, http.MethodDelete, "/api/v1/notifications/"+id, other.Token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	w = f.do(t, http.MethodPatch, "/api/v1/notifications/"+id+"/read", owner.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var read notification
	decode(t, w, &read)
	assert.True(t, read.IsRead)

	w = f.do(t, http.MethodPost, "/api/v1/notifications/mark-all-read", owner.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"updated":1}`, w.Body.String())

	w = f.do(t, http.MethodDelete, "/api/v1/notifications/"+id, owner.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodDelete, "/api/v1/notifications/"+id, owner.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/notifications", owner.Token, map[string]string{"title": "Hi"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/notifications", owner.Token, map[string]string{"title": "Hi", "message": "there"})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestNotifications_DisabledInSettings(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "quinn", "")

	w := f.do(t, http.MethodPatch, "/api/v1/settings", u.Token, map[string]bool{"notifications": false})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/checkin", u.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/notifications", u.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []notification
	decode(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Welcome to SydAI!", list[0].Title)
}

func TestNotifications_WebSocket(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "quinn", "")

	srv := httptest.NewServer(f.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/notifications/ws?token=" + u.Token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return f.hub.Subscribers(u.ID) == 1
	}, time.Second, 10*time.Millisecond)

	w := f.do(t, http.MethodPost, "/api/v1/checkin", u.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	var event struct {
		Type    string       `json:"type"`
		Payload notification `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(frame, &event))
	assert.Equal(t, service.EventNotificationCreated, event.Type)
	assert.Equal(t, "Daily Check-in Complete!", event.Payload.Title)

	conn.Close()
	require.Eventually(t, func() bool {
		return f.hub.Subscribers(u.ID) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestSettings(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "quinn", "")

	w := f.do(t, http.MethodGet, "/api/v1/settings", u.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":"`+u.ID+`","theme":"light","notifications":true,"emailNotifications":false}`, w.Body.String())

	w = f.do(t, http.MethodPatch, "/api/v1/settings", u.Token, map[string]any{"theme": "dark", "emailNotifications": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":"`+u.ID+`","theme":"dark","notifications":true,"emailNotifications":true}`, w.Body.String())

	w = f.do(t, http.MethodPatch, "/api/v1/settings", u.Token, map[string]any{"theme": "neon"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
