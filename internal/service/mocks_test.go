package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/portfolio-api/internal/domain/entity"
	"github.com/yourusername/portfolio-api/internal/domain/repository"
)

// ============================================================================
// Моки и фейки для тестирования сервисов
// ============================================================================

// MockUserRepository реализует repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(user *entity.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(id uint) (*entity.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(username string) (*entity.User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) TouchLastLogin(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockContactRepository реализует repository.ContactRepository
type MockContactRepository struct {
	mock.Mock
}

func (m *MockContactRepository) Create(contact *entity.Contact) error {
	args := m.Called(contact)
	return args.Error(0)
}

func (m *MockContactRepository) List(filters repository.ContactFilters, limit, offset int) ([]entity.Contact, int64, error) {
	args := m.Called(filters, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.Contact), args.Get(1).(int64), args.Error(2)
}

// memorySessionRepo хранит сессии в памяти; значения копируются через Save/Get
type memorySessionRepo struct {
	mu       sync.Mutex
	sessions map[string]entity.LoginSession
	saveErr  error
}

func newMemorySessionRepo() *memorySessionRepo {
	return &memorySessionRepo{sessions: make(map[string]entity.LoginSession)}
}

func (r *memorySessionRepo) Get(ctx context.Context, sessionID string) (*entity.LoginSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return &entity.LoginSession{}, nil
	}
	return &s, nil
}

func (r *memorySessionRepo) Save(ctx context.Context, sessionID string, session *entity.LoginSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.sessions[sessionID] = *session
	return nil
}

func (r *memorySessionRepo) Delete(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

func (r *memorySessionRepo) has(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[sessionID]
	return ok
}

// fakeDeliverer запоминает переданные уведомления
type fakeDeliverer struct {
	mu     sync.Mutex
	result bool
	sent   []entity.Notification
}

func (d *fakeDeliverer) Deliver(ctx context.Context, n entity.Notification) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, n)
	return d.result
}

func (d *fakeDeliverer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

func (d *fakeDeliverer) lastCode(t *testing.T) string {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	require.NotEmpty(t, d.sent)
	last := d.sent[len(d.sent)-1]
	require.NotNil(t, last.OTP)
	return last.OTP.Code
}

// fakeClock: управляемые часы
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

var errBoom = errors.New("boom")

func hashedPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}
