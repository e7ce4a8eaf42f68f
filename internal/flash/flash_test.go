package flash

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/password-policy/internal/model"
	"github.com/jwalitptl/password-policy/internal/service/auth"
	"github.com/jwalitptl/password-policy/pkg/cache"
	"github.com/jwalitptl/password-policy/pkg/policy"
)

func TestNotifyAndPop(t *testing.T) {
	bag := NewBag(cache.NewMemoryStore(time.Minute, time.Minute), auth.Resolver(), 0)
	u := model.NewUser("ada@example.com", "Ada", "$h")
	ctx := auth.WithPrincipal(context.Background(), u)
	msg := policy.Message{Title: "Password expired", Text: "Change it"}

	require.NoError(t, bag.Notify(ctx, "error", msg))
	require.NoError(t, bag.Notify(ctx, "error", msg))
	require.NoError(t, bag.Notify(ctx, "warning", policy.Message{Text: "heads up"}))

	got, err := bag.Pop(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, []policy.Message{msg}, got["error"])
	assert.Len(t, got["warning"], 1)

	got, err = bag.Pop(ctx, u)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNotifyIsPerAccount(t *testing.T) {
	bag := NewBag(cache.NewMemoryStore(time.Minute, time.Minute), auth.Resolver(), time.Minute)
	ada := model.NewUser("ada@example.com", "Ada", "$h")
	grace := model.NewUser("grace@example.com", "Grace", "$h")

	require.NoError(t, bag.Notify(auth.WithPrincipal(context.Background(), ada), "error", policy.Message{Text: "x"}))

	got, err := bag.Pop(context.Background(), grace)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNotifyWithoutPrincipal(t *testing.T) {
	bag := NewBag(cache.NewMemoryStore(time.Minute, time.Minute), auth.Resolver(), 0)
	assert.ErrorIs(t, bag.Notify(context.Background(), "error", policy.Message{Text: "x"}), ErrNoPrincipal)
}
