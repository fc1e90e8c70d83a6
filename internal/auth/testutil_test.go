package auth

import (
	"context"
	"sync"
	"time"

	"github.com/redmonkez12/account-service/internal/user"
)

// fakeStore is an in-memory UserStore with the same uniqueness semantics as
// the real repository.
type fakeStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*user.User
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[int64]*user.User)}
}

func clone(u *user.User) *user.User {
	c := *u
	return &c
}

func (s *fakeStore) Insert(ctx context.Context, u *user.User) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == u.Email {
			return nil, user.ErrDuplicateEmail
		}
	}

	s.nextID++
	stored := clone(u)
	stored.ID = s.nextID
	s.users[stored.ID] = stored
	return clone(stored), nil
}

func (s *fakeStore) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == email {
			return clone(existing), nil
		}
	}
	return nil, user.ErrNotFound
}

func (s *fakeStore) FindByID(ctx context.Context, id int64) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return clone(existing), nil
}

func (s *fakeStore) Update(ctx context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; !ok {
		return user.ErrNotFound
	}
	for _, existing := range s.users {
		if existing.ID != u.ID && existing.Email == u.Email {
			return user.ErrDuplicateEmail
		}
	}
	s.users[u.ID] = clone(u)
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return user.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

// fakeLedger is an in-memory revocation ledger
type fakeLedger struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{revoked: make(map[string]time.Time)}
}

func (l *fakeLedger) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.revoked[tokenID]
	return ok, nil
}

func (l *fakeLedger) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revoked[tokenID] = expiresAt
	return nil
}

// sentMail records one gateway send
type sentMail struct {
	Address  string
	Template Template
	Params   MailParams
}

// fakeMailer records sends and can be told to fail
type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail error
}

func (m *fakeMailer) Send(ctx context.Context, address string, template Template, params MailParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, sentMail{Address: address, Template: template, Params: params})
	return nil
}

func (m *fakeMailer) last() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}
