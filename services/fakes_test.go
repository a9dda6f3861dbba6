package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sanjiv-madhavan/natours-api/database"
	"github.com/sanjiv-madhavan/natours-api/mailer"
	"github.com/sanjiv-madhavan/natours-api/models"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// memoryUsers mimics the Mongo repository: records are copied in and out and
// FindByID leaves the password hash behind.
type memoryUsers struct {
	mu      sync.Mutex
	byID    map[primitive.ObjectID]models.User
	saveErr error
	saves   int
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: map[primitive.ObjectID]models.User{}}
}

func (m *memoryUsers) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == user.Email {
			return errors.Join(database.ErrDuplicateKey, errors.New("E11000 duplicate key error"))
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	m.byID[user.ID] = *user
	return nil
}

func (m *memoryUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *memoryUsers) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, err := m.FindByIDWithPassword(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Password = ""
	return u, nil
}

func (m *memoryUsers) FindByIDWithPassword(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &u, nil
}

func (m *memoryUsers) FindByResetToken(_ context.Context, hashedToken string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.PasswordResetToken != "" && u.PasswordResetToken == hashedToken {
			return &u, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *memoryUsers) Save(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	stored, ok := m.byID[user.ID]
	if !ok {
		return database.ErrNotFound
	}
	next := *user
	if next.Password == "" {
		next.Password = stored.Password
	}
	m.byID[user.ID] = next
	return nil
}

func (m *memoryUsers) Delete(id primitive.ObjectID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
}

func (m *memoryUsers) Get(id primitive.ObjectID) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id]
}

type outbox struct {
	sent []mailer.Message
	err  error
}

func (o *outbox) Send(_ context.Context, msg mailer.Message) error {
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, msg)
	return nil
}

type memoryRevoker struct {
	users  map[string]time.Time
	global time.Time
	err    error
}

func newMemoryRevoker() *memoryRevoker {
	return &memoryRevoker{users: map[string]time.Time{}}
}

func (r *memoryRevoker) RevokeUser(_ context.Context, userID string, at time.Time) error {
	if r.err != nil {
		return r.err
	}
	r.users[userID] = at
	return nil
}

func (r *memoryRevoker) RevokeAll(_ context.Context, at time.Time) error {
	if r.err != nil {
		return r.err
	}
	r.global = at
	return nil
}

func (r *memoryRevoker) RevokedAt(_ context.Context, userID string) (time.Time, error) {
	if r.err != nil {
		return time.Time{}, r.err
	}
	at := r.users[userID]
	if r.global.After(at) {
		at = r.global
	}
	return at, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
