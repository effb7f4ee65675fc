package auth

import (
	"context"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/padraicbc/todoapi/models"
	"github.com/padraicbc/todoapi/store"
)

// memStore is a CredentialStore kept in a map, for tests only.
type memStore struct {
	mu    sync.Mutex
	users map[string]*models.User
	err   error
	cost  int
}

func newMemStore() *memStore {
	return &memStore{users: map[string]*models.User{}, cost: bcrypt.MinCost}
}

func (m *memStore) Register(_ context.Context, username, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.users[username]; ok {
		return store.ErrDuplicateUser
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.cost)
	if err != nil {
		return err
	}
	m.users[username] = &models.User{Username: username, PasswordHash: string(hash)}
	return nil
}

func (m *memStore) FindByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[username]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) FindBySessionToken(_ context.Context, token string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var found *models.User
	for _, u := range m.users {
		if u.SessionToken != nil && *u.SessionToken == token {
			if found != nil {
				return nil, store.ErrTokenCollision
			}
			cp := *u
			found = &cp
		}
	}
	return found, nil
}

func (m *memStore) SetSessionToken(_ context.Context, username, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	u, ok := m.users[username]
	if !ok {
		return store.ErrUserNotFound
	}
	u.SessionToken = &token
	return nil
}

func (m *memStore) fail(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}
