package policy

import "context"

// Change is one pending field change seen by the host's persistence layer before commit.
type Change struct {
	Account  Account
	Field    string
	OldValue string
	NewValue string
}

// FlushHook feeds pending changes to the Interceptor. Call OnBeforeFlush once per flush,
// before the transaction commits.
type FlushHook struct {
	registry    *Registry
	interceptor *Interceptor
}

func NewFlushHook(reg *Registry, interceptor *Interceptor) *FlushHook {
	return &FlushHook{registry: reg, interceptor: interceptor}
}

// OnBeforeFlush archives the previous password of every configured account whose
// configured password field changed. Other account types and other fields are ignored.
// The returned batch lists the history rows to insert and delete. The caller must end it
// with Commit or Rollback. When an account fails, the accounts already handled are
// rolled back and no batch is returned.
func (h *FlushHook) OnBeforeFlush(ctx context.Context, changes []Change) (*Batch, error) {
	batch := NewBatch()
	for _, c := range changes {
		if c.Account == nil {
			continue
		}
		cfg := h.registry.ResolveAccount(c.Account)
		if cfg == nil || c.Field != cfg.PasswordField() {
			continue
		}
		if c.OldValue == c.NewValue && c.OldValue != "" {
			continue
		}
		if _, err := h.interceptor.OnPasswordChanged(ctx, batch, c.Account, c.OldValue); err != nil {
			batch.Rollback()
			return nil, err
		}
	}
	return batch, nil
}
