package repository

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"

	"github.com/jwalitptl/password-policy/internal/model"
	"github.com/jwalitptl/password-policy/pkg/policy"
)

var (
	ErrNotFound      = stderrors.New("record not found")
	ErrDuplicate     = stderrors.New("record already exists")
	ErrUnknownEntity = stderrors.New("unknown account type")
)

// PasswordField is the field name repositories report for password column changes.
const PasswordField = policy.DefaultPasswordField

// FlushHook is called inside the write transaction with the pending field changes. Its
// batch is written in the same transaction, then committed or rolled back with it.
type FlushHook interface {
	OnBeforeFlush(ctx context.Context, changes []policy.Change) (*policy.Batch, error)
}

// All repository interfaces in one file
type (
	// AccountRepository stores every account type. Accounts are returned with their
	// password history loaded.
	AccountRepository interface {
		Create(ctx context.Context, account model.Principal) error
		Get(ctx context.Context, accountType string, id uuid.UUID) (model.Principal, error)
		GetByEmail(ctx context.Context, accountType, email string) (model.Principal, error)
		List(ctx context.Context, accountType string, page model.Pagination) ([]model.Principal, error)
		// UpdatePassword persists account's current password hash. oldHash is the hash
		// before the change; the flush hook archives it in the same transaction.
		UpdatePassword(ctx context.Context, account model.Principal, oldHash string) error
	}

	// PasswordHistoryRepository gives the retention sweeper direct access to history rows.
	PasswordHistoryRepository interface {
		ListByAccount(ctx context.Context, accountType string, accountID uuid.UUID) ([]*model.PasswordHistory, error)
		Delete(ctx context.Context, ids []uuid.UUID) (int64, error)
	}
)

// HistoryRows converts archived policy entries back to rows, skipping foreign types.
func HistoryRows(archived []policy.Archived) []*model.PasswordHistory {
	rows := make([]*model.PasswordHistory, 0, len(archived))
	for _, a := range archived {
		if row, ok := a.Entry.(*model.PasswordHistory); ok {
			rows = append(rows, row)
		}
	}
	return rows
}
