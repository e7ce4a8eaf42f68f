package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/password-policy/internal/model"
	"github.com/jwalitptl/password-policy/internal/repository"
	"github.com/jwalitptl/password-policy/pkg/policy"
)

const (
	userColumns      = `id, email, name, status, preferred_language, password_hash, password_changed_at, created_at, updated_at, deleted_at`
	clinicianColumns = `id, email, name, license_number, status, password_hash, password_changed_at, created_at, updated_at, deleted_at`
)

type accountRepository struct {
	BaseRepository
	hook repository.FlushHook
}

// NewAccountRepository stores users and clinicians. hook may be nil, in which case password
// changes are written without history.
func NewAccountRepository(base BaseRepository, hook repository.FlushHook) repository.AccountRepository {
	return &accountRepository{BaseRepository: base, hook: hook}
}

func tableFor(accountType string) (string, error) {
	switch accountType {
	case model.AccountTypeUser:
		return "users", nil
	case model.AccountTypeClinician:
		return "clinicians", nil
	default:
		return "", fmt.Errorf("%w: %s", repository.ErrUnknownEntity, accountType)
	}
}

func (r *accountRepository) Create(ctx context.Context, account model.Principal) error {
	now := time.Now()

	var (
		query string
		args  []interface{}
	)
	switch a := account.(type) {
	case *model.User:
		a.CreatedAt, a.UpdatedAt = now, now
		query = `
			INSERT INTO users (
				id, email, name, status, preferred_language,
				password_hash, password_changed_at, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		args = []interface{}{a.ID, a.Email, a.Name, a.Status, a.PreferredLanguage,
			a.PasswordHash, a.PasswordUpdatedAt, a.CreatedAt, a.UpdatedAt}
	case *model.Clinician:
		a.CreatedAt, a.UpdatedAt = now, now
		query = `
			INSERT INTO clinicians (
				id, email, name, license_number, status,
				password_hash, password_changed_at, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		args = []interface{}{a.ID, a.Email, a.Name, a.LicenseNumber, a.Status,
			a.PasswordHash, a.PasswordUpdatedAt, a.CreatedAt, a.UpdatedAt}
	default:
		return fmt.Errorf("%w: %T", repository.ErrUnknownEntity, account)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == "23505" {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create %s: %w", account.AccountType(), err)
	}
	return nil
}

func (r *accountRepository) Get(ctx context.Context, accountType string, id uuid.UUID) (model.Principal, error) {
	return r.getOne(ctx, accountType, "id = $1", id)
}

func (r *accountRepository) GetByEmail(ctx context.Context, accountType, email string) (model.Principal, error) {
	return r.getOne(ctx, accountType, "email = $1", email)
}

func (r *accountRepository) getOne(ctx context.Context, accountType, where string, arg interface{}) (model.Principal, error) {
	var (
		account model.Principal
		err     error
	)
	switch accountType {
	case model.AccountTypeUser:
		var u model.User
		err = r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE `+where+` AND deleted_at IS NULL`, arg)
		account = &u
	case model.AccountTypeClinician:
		var c model.Clinician
		err = r.db.GetContext(ctx, &c, `SELECT `+clinicianColumns+` FROM clinicians WHERE `+where+` AND deleted_at IS NULL`, arg)
		account = &c
	default:
		return nil, fmt.Errorf("%w: %s", repository.ErrUnknownEntity, accountType)
	}
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", accountType, err)
	}

	if err := r.loadHistory(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (r *accountRepository) List(ctx context.Context, accountType string, page model.Pagination) ([]model.Principal, error) {
	var out []model.Principal
	switch accountType {
	case model.AccountTypeUser:
		var users []*model.User
		if err := r.db.SelectContext(ctx, &users,
			`SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL ORDER BY created_at, id LIMIT $1 OFFSET $2`,
			page.Limit(), page.Offset()); err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}
		for _, u := range users {
			out = append(out, u)
		}
	case model.AccountTypeClinician:
		var clinicians []*model.Clinician
		if err := r.db.SelectContext(ctx, &clinicians,
			`SELECT `+clinicianColumns+` FROM clinicians WHERE deleted_at IS NULL ORDER BY created_at, id LIMIT $1 OFFSET $2`,
			page.Limit(), page.Offset()); err != nil {
			return nil, fmt.Errorf("failed to list clinicians: %w", err)
		}
		for _, c := range clinicians {
			out = append(out, c)
		}
	default:
		return nil, fmt.Errorf("%w: %s", repository.ErrUnknownEntity, accountType)
	}

	for _, a := range out {
		if err := r.loadHistory(ctx, a); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *accountRepository) loadHistory(ctx context.Context, account model.Principal) error {
	var rows []*model.PasswordHistory
	if err := r.db.SelectContext(ctx, &rows, selectHistory, account.AccountType(), account.AccountID()); err != nil {
		return fmt.Errorf("failed to load password history: %w", err)
	}
	if loader, ok := account.(interface {
		LoadPasswordHistory([]*model.PasswordHistory)
	}); ok {
		loader.LoadPasswordHistory(rows)
	}
	return nil
}

func (r *accountRepository) UpdatePassword(ctx context.Context, account model.Principal, oldHash string) error {
	table, err := tableFor(account.AccountType())
	if err != nil {
		return err
	}
	id, err := uuid.Parse(account.AccountID())
	if err != nil {
		return fmt.Errorf("invalid account id %q: %w", account.AccountID(), err)
	}

	batch := policy.NewBatch()
	err = r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if r.hook != nil {
			batch, err = r.hook.OnBeforeFlush(ctx, []policy.Change{{
				Account:  account,
				Field:    repository.PasswordField,
				OldValue: oldHash,
				NewValue: account.Password(),
			}})
			if err != nil {
				return fmt.Errorf("password history: %w", err)
			}
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE `+table+` SET password_hash = $1, password_changed_at = $2, updated_at = $3 WHERE id = $4 AND deleted_at IS NULL`,
			account.Password(), account.PasswordChangedAt(), time.Now(), id)
		if err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return repository.ErrNotFound
		}

		if err := insertHistory(ctx, tx, repository.HistoryRows(batch.Created())); err != nil {
			return err
		}
		return deleteHistory(ctx, tx, historyIDs(repository.HistoryRows(batch.Evicted())))
	})
	if err != nil {
		batch.Rollback()
		return err
	}
	batch.Commit(ctx)
	return nil
}
