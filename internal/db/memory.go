package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/usersvc/backend/internal/model"
)

// Memory is a process-local user store with the same contract as Postgres.
// Emails are unique case-sensitively, matching the users.email constraint.
type Memory struct {
	mu     sync.RWMutex
	users  map[int64]model.User
	nextID int64
	now    func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		users:  make(map[int64]model.User),
		nextID: 1,
		now:    time.Now,
	}
}

func (m *Memory) FindUserByID(_ context.Context, id int64) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (m *Memory) FindUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) UserExistsByID(_ context.Context, id int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.users[id]
	return ok, nil
}

func (m *Memory) UserExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.FindUserByEmail(ctx, email)
	if err == ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (m *Memory) SaveUser(_ context.Context, user *model.User) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, existing := range m.users {
		if id != user.ID && existing.Email == user.Email {
			return nil, ErrDuplicateEmail
		}
	}

	saved := *user
	now := m.now().UTC()
	if saved.ID == 0 {
		saved.ID = m.nextID
		m.nextID++
		saved.CreatedAt = now
	} else {
		existing, ok := m.users[saved.ID]
		if !ok {
			return nil, ErrNotFound
		}
		saved.CreatedAt = existing.CreatedAt
	}
	saved.UpdatedAt = now
	m.users[saved.ID] = saved

	out := saved
	return &out, nil
}

func (m *Memory) DeleteUserByID(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *Memory) FindUserPage(_ context.Context, page model.PageRequest) ([]model.User, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slicePage(m.sorted(func(model.User) bool { return true }), page)
}

func (m *Memory) FindUsersByBirthDateRange(_ context.Context, from, to model.Date, page model.PageRequest) ([]model.User, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := m.sorted(func(u model.User) bool {
		return !u.BirthDate.Before(from) && !u.BirthDate.After(to)
	})
	return slicePage(matches, page)
}

// sorted returns the users accepted by keep, ordered by id. Callers hold mu.
func (m *Memory) sorted(keep func(model.User) bool) []model.User {
	list := make([]model.User, 0, len(m.users))
	for _, user := range m.users {
		if keep(user) {
			list = append(list, user)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func slicePage(list []model.User, page model.PageRequest) ([]model.User, int64, error) {
	total := int64(len(list))
	start := page.Offset()
	if start < 0 || start >= len(list) || page.Size <= 0 {
		return []model.User{}, total, nil
	}
	end := start + page.Size
	if end > len(list) {
		end = len(list)
	}
	return append([]model.User(nil), list[start:end]...), total, nil
}
