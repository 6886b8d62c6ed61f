package handlers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bomanihosts/backend/internal/auth"
	"github.com/bomanihosts/backend/internal/domain/contact"
	"github.com/bomanihosts/backend/internal/domain/users"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memoryContacts struct {
	mu       sync.Mutex
	messages []contact.Message
	err      error
}

func (r *memoryContacts) Create(_ context.Context, msg contact.Message) (*contact.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	msg.ID = int64(len(r.messages) + 1)
	msg.CreatedAt = time.Now().UTC()
	r.messages = append(r.messages, msg)
	return &msg, nil
}

func (r *memoryContacts) GetByID(_ context.Context, id int64) (*contact.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			m := m
			return &m, nil
		}
	}
	return nil, contact.ErrNotFound
}

func (r *memoryContacts) List(context.Context, contact.ListFilter) ([]contact.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]contact.Message(nil), r.messages...), nil
}

func (r *memoryContacts) MarkResolved(context.Context, int64) error { return nil }

func (r *memoryContacts) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

type countingNotifier struct {
	mu            sync.Mutex
	confirmations []string
	alerts        []int64
	err           error
}

func (n *countingNotifier) SendConfirmation(_ context.Context, msg contact.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmations = append(n.confirmations, msg.Email)
	return n.err
}

func (n *countingNotifier) SendAdminAlert(_ context.Context, msg contact.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, msg.ID)
	return n.err
}

func (n *countingNotifier) AdminAddress() string { return "admin@bomanihosts.com" }

type memoryUsers struct {
	mu    sync.Mutex
	users []users.User
}

func (r *memoryUsers) Create(_ context.Context, params users.NewUser) (*users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == params.Email {
			return nil, users.ErrEmailTaken
		}
		if u.Username == params.Username {
			return nil, users.ErrUsernameTaken
		}
	}
	now := time.Now().UTC()
	u := users.User{
		ID:           int64(len(r.users) + 1),
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		Phone:        params.Phone,
		IsHost:       params.IsHost,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.users = append(r.users, u)
	return &u, nil
}

func (r *memoryUsers) find(match func(users.User) bool) (*users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			u := u
			return &u, nil
		}
	}
	return nil, users.ErrUserNotFound
}

func (r *memoryUsers) GetByID(_ context.Context, id int64) (*users.User, error) {
	return r.find(func(u users.User) bool { return u.ID == id })
}

func (r *memoryUsers) FindByUsername(_ context.Context, username string) (*users.User, error) {
	return r.find(func(u users.User) bool { return u.Username == username })
}

func (r *memoryUsers) FindByEmail(_ context.Context, email string) (*users.User, error) {
	return r.find(func(u users.User) bool { return u.Email == email })
}

func (r *memoryUsers) deactivate(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.users {
		if r.users[i].ID == id {
			r.users[i].IsActive = false
		}
	}
}

func (r *memoryUsers) remove(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.users[:0]
	for _, u := range r.users {
		if u.ID != id {
			kept = append(kept, u)
		}
	}
	r.users = kept
}

type failingUsers struct{ memoryUsers }

func (*failingUsers) FindByUsername(context.Context, string) (*users.User, error) {
	return nil, errors.New("connection reset by peer")
}

func newUsersService(t *testing.T, repo users.Repository) *users.Service {
	t.Helper()
	hasher, err := auth.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	return users.NewService(repo, hasher, zerolog.Nop())
}

func newTestJWT() *auth.JWTManager {
	return auth.NewJWTManager("handlers-test-secret-handlers-test-secret", time.Hour, 24*time.Hour, "bomanihosts-test")
}
