package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/password-policy/internal/model"
	"github.com/jwalitptl/password-policy/internal/repository"
	"github.com/jwalitptl/password-policy/pkg/policy"
)

func newHookedStore(t *testing.T, limit int) *Store {
	t.Helper()
	cfg, err := policy.NewConfig(model.AccountTypeUser, "reset", model.NewPasswordHistory, policy.WithHistoryLimit(limit))
	require.NoError(t, err)
	reg, err := policy.NewRegistry(nil, cfg)
	require.NoError(t, err)
	return NewStore(policy.NewFlushHook(reg, policy.NewInterceptor(reg, policy.InterceptorConfig{})))
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)
	u := model.NewUser("ada@example.com", "Ada", "$hash")

	require.NoError(t, s.Create(ctx, u))
	assert.ErrorIs(t, s.Create(ctx, model.NewUser("ADA@example.com", "Other", "$h")), repository.ErrDuplicate)

	got, err := s.Get(ctx, model.AccountTypeUser, u.ID)
	require.NoError(t, err)
	assert.Same(t, u, got)

	got, err = s.GetByEmail(ctx, model.AccountTypeUser, "ada@example.com")
	require.NoError(t, err)
	assert.Same(t, u, got)

	_, err = s.Get(ctx, model.AccountTypeClinician, u.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdatePasswordAppliesBatch(t *testing.T) {
	ctx := context.Background()
	s := newHookedStore(t, 2)
	u := model.NewUser("ada@example.com", "Ada", "$hash$0")
	require.NoError(t, s.Create(ctx, u))
	oldest := s.Seed(model.AccountTypeUser, u.ID, "$hash$old1", time.Now().Add(-72*time.Hour))
	s.Seed(model.AccountTypeUser, u.ID, "$hash$old2", time.Now().Add(-24*time.Hour))

	loaded, err := s.Get(ctx, model.AccountTypeUser, u.ID)
	require.NoError(t, err)
	loaded.SetPassword("$hash$1")
	require.NoError(t, s.UpdatePassword(ctx, loaded, "$hash$0"))

	rows, err := s.ListByAccount(ctx, model.AccountTypeUser, u.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "$hash$0", rows[0].Hash)
	assert.Equal(t, "$hash$old2", rows[1].Hash)
	for _, r := range rows {
		assert.NotEqual(t, oldest.ID, r.ID)
	}
	assert.NotNil(t, loaded.PasswordChangedAt())
}

func TestUpdatePasswordUnknownAccount(t *testing.T) {
	s := NewStore(nil)
	err := s.UpdatePassword(context.Background(), model.NewUser("x@example.com", "X", "$h"), "")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListPaginates(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Create(ctx, model.NewClinician(uuid.NewString()+"@example.com", "C", "LIC", "$h")))
	}
	require.NoError(t, s.Create(ctx, model.NewUser("u@example.com", "U", "$h")))

	first, err := s.List(ctx, model.AccountTypeClinician, model.Pagination{Page: 1, PageSize: 3})
	require.NoError(t, err)
	second, err := s.List(ctx, model.AccountTypeClinician, model.Pagination{Page: 2, PageSize: 3})
	require.NoError(t, err)

	assert.Len(t, first, 3)
	assert.Len(t, second, 2)

	_, err = s.List(ctx, "admin", model.Pagination{})
	assert.ErrorIs(t, err, repository.ErrUnknownEntity)
}

func TestDeleteHistory(t *testing.T) {
	s := NewStore(nil)
	id := uuid.New()
	a := s.Seed(model.AccountTypeUser, id, "$a", time.Now())
	s.Seed(model.AccountTypeUser, id, "$b", time.Now())

	n, err := s.Delete(context.Background(), []uuid.UUID{a.ID, uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rows, err := s.ListByAccount(context.Background(), model.AccountTypeUser, id)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
