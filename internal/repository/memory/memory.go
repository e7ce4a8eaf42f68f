// Package memory keeps accounts in process. It backs the demo host and service tests and
// behaves like the postgres repository, including running the flush hook before a password
// write is applied.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/password-policy/internal/model"
	"github.com/jwalitptl/password-policy/internal/repository"
	"github.com/jwalitptl/password-policy/pkg/policy"
)

type key struct {
	accountType string
	id          uuid.UUID
}

// Store implements AccountRepository and PasswordHistoryRepository.
type Store struct {
	mu       sync.RWMutex
	accounts map[key]model.Principal
	history  map[key][]*model.PasswordHistory
	hook     repository.FlushHook
}

func NewStore(hook repository.FlushHook) *Store {
	return &Store{
		accounts: make(map[key]model.Principal),
		history:  make(map[key][]*model.PasswordHistory),
		hook:     hook,
	}
}

// SetFlushHook replaces the hook. Used when the hook is built after the store.
func (s *Store) SetFlushHook(hook repository.FlushHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

func keyOf(a policy.Account) (key, error) {
	id, err := uuid.Parse(a.AccountID())
	if err != nil {
		return key{}, err
	}
	return key{accountType: a.AccountType(), id: id}, nil
}

func known(accountType string) bool {
	return accountType == model.AccountTypeUser || accountType == model.AccountTypeClinician
}

func (s *Store) Create(_ context.Context, account model.Principal) error {
	if !known(account.AccountType()) {
		return repository.ErrUnknownEntity
	}
	k, err := keyOf(account)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[k]; exists {
		return repository.ErrDuplicate
	}
	for other, a := range s.accounts {
		if other.accountType == k.accountType && strings.EqualFold(a.EmailAddress(), account.EmailAddress()) {
			return repository.ErrDuplicate
		}
	}
	s.accounts[k] = account
	return nil
}

func (s *Store) Get(_ context.Context, accountType string, id uuid.UUID) (model.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[key{accountType: accountType, id: id}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	s.loadHistory(a)
	return a, nil
}

func (s *Store) GetByEmail(_ context.Context, accountType, email string) (model.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, a := range s.accounts {
		if k.accountType == accountType && strings.EqualFold(a.EmailAddress(), email) {
			s.loadHistory(a)
			return a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) List(_ context.Context, accountType string, page model.Pagination) ([]model.Principal, error) {
	if !known(accountType) {
		return nil, repository.ErrUnknownEntity
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []model.Principal
	for k, a := range s.accounts {
		if k.accountType == accountType {
			all = append(all, a)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].AccountID() < all[j].AccountID() })

	start := page.Offset()
	if start >= len(all) {
		return nil, nil
	}
	end := start + page.Limit()
	if end > len(all) {
		end = len(all)
	}
	out := all[start:end]
	for _, a := range out {
		s.loadHistory(a)
	}
	return out, nil
}

// UpdatePassword runs the flush hook and applies its batch under the write lock. Held
// policy events are dispatched once the batch is applied.
func (s *Store) UpdatePassword(ctx context.Context, account model.Principal, oldHash string) error {
	k, err := keyOf(account)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[k]; !ok {
		return repository.ErrNotFound
	}

	batch := policy.NewBatch()
	if s.hook != nil {
		batch, err = s.hook.OnBeforeFlush(ctx, []policy.Change{{
			Account:  account,
			Field:    repository.PasswordField,
			OldValue: oldHash,
			NewValue: account.Password(),
		}})
		if err != nil {
			return err
		}
	}

	rows := s.history[k]
	rows = append(rows, repository.HistoryRows(batch.Created())...)
	evicted := make(map[uuid.UUID]struct{})
	for _, e := range repository.HistoryRows(batch.Evicted()) {
		evicted[e.ID] = struct{}{}
	}
	kept := rows[:0]
	for _, r := range rows {
		if _, gone := evicted[r.ID]; !gone {
			kept = append(kept, r)
		}
	}
	s.history[k] = kept
	s.accounts[k] = account
	batch.Commit(ctx)
	return nil
}

func (s *Store) ListByAccount(_ context.Context, accountType string, accountID uuid.UUID) ([]*model.PasswordHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := append([]*model.PasswordHistory(nil), s.history[key{accountType: accountType, id: accountID}]...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Created.After(rows[j].Created) })
	return rows, nil
}

func (s *Store) Delete(_ context.Context, ids []uuid.UUID) (int64, error) {
	drop := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, rows := range s.history {
		kept := rows[:0]
		for _, r := range rows {
			if _, ok := drop[r.ID]; ok {
				n++
				continue
			}
			kept = append(kept, r)
		}
		s.history[k] = kept
	}
	return n, nil
}

// Seed stores a history row directly, bypassing the flush hook. Used to import legacy
// history and in tests.
func (s *Store) Seed(accountType string, accountID uuid.UUID, hash string, createdAt time.Time) *model.PasswordHistory {
	row := &model.PasswordHistory{
		ID:          uuid.New(),
		AccountType: accountType,
		AccountID:   accountID,
		Hash:        hash,
		Created:     createdAt,
	}
	k := key{accountType: accountType, id: accountID}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[k] = append(s.history[k], row)
	return row
}

// loadHistory must be called with the lock held.
func (s *Store) loadHistory(a model.Principal) {
	k, err := keyOf(a)
	if err != nil {
		return
	}
	if loader, ok := a.(interface {
		LoadPasswordHistory([]*model.PasswordHistory)
	}); ok {
		rows := append([]*model.PasswordHistory(nil), s.history[k]...)
		loader.LoadPasswordHistory(rows)
	}
}
