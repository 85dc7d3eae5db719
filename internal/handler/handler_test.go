package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/portfolio-api/internal/domain/entity"
	"github.com/yourusername/portfolio-api/internal/domain/repository"
	"github.com/yourusername/portfolio-api/internal/middleware"
	apperrors "github.com/yourusername/portfolio-api/internal/pkg/errors"
	redisRepo "github.com/yourusername/portfolio-api/internal/repository/redis"
	"github.com/yourusername/portfolio-api/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const adminPassword = "correct horse"

// ============================================================================
// Фейки репозиториев и доставки
// ============================================================================

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uint]*entity.User
}

func (r *fakeUserRepo) Create(user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(id uint) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeUserRepo) GetByUsername(username string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeUserRepo) TouchLastLogin(id uint) error {
	return nil
}

type fakeContactRepo struct {
	mu       sync.Mutex
	contacts []entity.Contact
}

func (r *fakeContactRepo) Create(contact *entity.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	contact.ID = uint(len(r.contacts) + 1)
	contact.CreatedAt = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	r.contacts = append(r.contacts, *contact)
	return nil
}

func (r *fakeContactRepo) List(filters repository.ContactFilters, limit, offset int) ([]entity.Contact, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []entity.Contact
	for i := len(r.contacts) - 1; i >= 0; i-- {
		c := r.contacts[i]
		if filters.Search == "" || strings.Contains(c.Name+c.Email+c.Subject+c.Message, filters.Search) {
			matched = append(matched, c)
		}
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return []entity.Contact{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

type recordingDeliverer struct {
	mu   sync.Mutex
	sent []entity.Notification
}

func (d *recordingDeliverer) Deliver(ctx context.Context, n entity.Notification) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, n)
	return true
}

func (d *recordingDeliverer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

func (d *recordingDeliverer) lastOTP(t *testing.T) string {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := len(d.sent) - 1; i >= 0; i-- {
		if d.sent[i].OTP != nil {
			return d.sent[i].OTP.Code
		}
	}
	t.Fatal("no otp delivered")
	return ""
}

type staticAvailability bool

func (a staticAvailability) IsAvailable(ctx context.Context) bool { return bool(a) }

// ============================================================================
// Тестовое окружение: роутер с теми же маршрутами, что и в cmd/api
// ============================================================================

type testEnv struct {
	router   *gin.Engine
	delivery *recordingDeliverer
	contacts *fakeContactRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)
	users := &fakeUserRepo{users: map[uint]*entity.User{
		1: {ID: 1, Username: "admin", Email: "siteowner@example.com", Password: string(hash), IsActive: true, IsStaff: true},
	}}

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	sessions, err := redisRepo.NewLoginSessionRepo(client, "test:session", time.Hour)
	require.NoError(t, err)

	delivery := &recordingDeliverer{}
	loginService, err := service.NewLoginService(users, sessions, service.NewOTPIssuer(), delivery, 61*time.Second)
	require.NoError(t, err)

	contacts := &fakeContactRepo{}
	contactService, err := service.NewContactService(contacts, delivery)
	require.NoError(t, err)

	loginHandler := NewAdminLoginHandler(loginService, false)
	contactHandler := NewContactHandler(contactService)
	adminContactHandler := NewAdminContactHandler(contactService)
	healthHandler := NewHealthHandler(staticAvailability(true))

	r := gin.New()
	r.GET("/health", healthHandler.Health)
	r.POST("/api/contact", contactHandler.Submit)

	adminAuth := r.Group("/admin", middleware.SessionCookie(false))
	adminAuth.GET("/login", loginHandler.GetLogin)
	adminAuth.POST("/login", loginHandler.PostLogin)
	adminAuth.POST("/reset", loginHandler.Reset)
	adminAuth.POST("/logout", loginHandler.Logout)

	adminAPI := r.Group("/api/admin", middleware.SessionCookie(false), middleware.RequireAdmin(loginService))
	adminAPI.GET("/contacts", adminContactHandler.List)
	adminAPI.GET("/contacts/export", adminContactHandler.Export)

	return &testEnv{router: r, delivery: delivery, contacts: contacts}
}

// client хранит cookie сессии между запросами, как браузер
type client struct {
	env *testEnv
	sid string
}

func (c *client) do(t *testing.T, method, path string, form url.Values, jsonBody interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	switch {
	case form != nil:
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	case jsonBody != nil:
		body, err := json.Marshal(jsonBody)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	default:
		req = httptest.NewRequest(method, path, nil)
	}
	if c.sid != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: c.sid})
	}

	w := httptest.NewRecorder()
	c.env.router.ServeHTTP(w, req)

	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == middleware.SessionCookieName {
			c.sid = cookie.Value
		}
	}
	return w
}

func parseJSONResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err, "Response body should be valid JSON: %s", w.Body.String())
	return resp
}
