// Package testutil provides in-memory fakes for repository interfaces.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/veilport/veilport/internal/domain/premium"
	"github.com/veilport/veilport/internal/domain/user"
	"github.com/veilport/veilport/internal/pkg/errors"
)

// MockUserRepository is an in-memory implementation of user.Repository
type MockUserRepository struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*user.User

	// UpdateErr, when set, is returned by Update to simulate storage failure.
	UpdateErr error

	// GetErr, when set, is returned by all lookups to simulate a store
	// outage (as opposed to a not-found miss).
	GetErr error
}

// NewMockUserRepository creates a new mock user repository
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		nextID: 1,
		users:  make(map[int64]*user.User),
	}
}

func (m *MockUserRepository) Create(ctx context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Username == u.Username {
			return errors.Conflict("Username already taken")
		}
		if existing.Email == u.Email {
			return errors.Conflict("Email already registered")
		}
	}

	u.ID = m.nextID
	m.nextID++
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	m.users[u.ID] = cloneUser(u)
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}

	u, ok := m.users[id]
	if !ok {
		return nil, errors.NotFound("User")
	}
	return cloneUser(u), nil
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}

	for _, u := range m.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, errors.NotFound("User")
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}

	for _, u := range m.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, errors.NotFound("User")
}

func (m *MockUserRepository) Update(ctx context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	if _, ok := m.users[u.ID]; !ok {
		return errors.NotFound("User")
	}
	u.UpdatedAt = time.Now()
	m.users[u.ID] = cloneUser(u)
	return nil
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*user.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]*user.User, 0, len(m.users))
	for id := int64(1); id < m.nextID; id++ {
		if u, ok := m.users[id]; ok {
			all = append(all, cloneUser(u))
		}
	}
	total := int64(len(all))

	if offset >= len(all) {
		return []*user.User{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func cloneUser(u *user.User) *user.User {
	cp := *u
	if u.RecoveryCodes != nil {
		cp.RecoveryCodes = append([]string(nil), u.RecoveryCodes...)
	}
	if u.PremiumExpiry != nil {
		t := *u.PremiumExpiry
		cp.PremiumExpiry = &t
	}
	if u.LastLogin != nil {
		t := *u.LastLogin
		cp.LastLogin = &t
	}
	return &cp
}

// MockCodeRepository is an in-memory implementation of premium.Repository.
// Claim is guarded by the same mutex as everything else, so it behaves like
// the conditional UPDATE in the SQL implementation.
type MockCodeRepository struct {
	mu     sync.Mutex
	nextID int64
	codes  map[int64]*premium.Code
}

// NewMockCodeRepository creates a new mock code repository
func NewMockCodeRepository() *MockCodeRepository {
	return &MockCodeRepository{
		nextID: 1,
		codes:  make(map[int64]*premium.Code),
	}
}

func (m *MockCodeRepository) Create(ctx context.Context, c *premium.Code) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.codes {
		if existing.Code == c.Code {
			return errors.Conflict("Code already exists")
		}
	}

	c.ID = m.nextID
	m.nextID++
	c.CreatedAt = time.Now()
	m.codes[c.ID] = cloneCode(c)
	return nil
}

func (m *MockCodeRepository) GetByCode(ctx context.Context, code string) (*premium.Code, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.codes {
		if c.Code == code {
			return cloneCode(c), nil
		}
	}
	return nil, errors.NotFound("Premium code")
}

func (m *MockCodeRepository) Claim(ctx context.Context, codeID, userID int64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.codes[codeID]
	if !ok {
		return false, fmt.Errorf("code %d not found", codeID)
	}
	if c.IsUsed {
		return false, nil
	}
	c.IsUsed = true
	c.UsedBy = &userID
	usedAt := at
	c.UsedAt = &usedAt
	return true, nil
}

func (m *MockCodeRepository) Release(ctx context.Context, codeID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.codes[codeID]
	if !ok {
		return fmt.Errorf("code %d not found", codeID)
	}
	if !c.IsUsed || c.UsedBy == nil || *c.UsedBy != userID {
		return nil
	}
	c.IsUsed = false
	c.UsedBy = nil
	c.UsedAt = nil
	return nil
}

func (m *MockCodeRepository) List(ctx context.Context, limit, offset int) ([]*premium.Code, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]*premium.Code, 0, len(m.codes))
	for id := int64(1); id < m.nextID; id++ {
		if c, ok := m.codes[id]; ok {
			all = append(all, cloneCode(c))
		}
	}
	total := int64(len(all))

	if offset >= len(all) {
		return []*premium.Code{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func cloneCode(c *premium.Code) *premium.Code {
	cp := *c
	if c.UsedBy != nil {
		id := *c.UsedBy
		cp.UsedBy = &id
	}
	if c.UsedAt != nil {
		t := *c.UsedAt
		cp.UsedAt = &t
	}
	return &cp
}
