// Package users is the admin-facing account CRUD layer: create, list,
// update, delete. Credential checking and session tokens live in
// pkg/auth; this package only manages the row, the way shisho's
// pkg/users separates account management from pkg/auth's login path.
package users

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/dshein-alt/ropds-go/pkg/auth"
	"github.com/dshein-alt/ropds-go/pkg/errcodes"
	"github.com/dshein-alt/ropds-go/pkg/models"
)

// Service handles user account CRUD for the out-of-scope admin surface.
type Service struct {
	db *bun.DB
}

// NewService builds a users Service.
func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// CreateOptions configures Create.
type CreateOptions struct {
	Username               string
	Password               string
	IsSuperuser            bool
	AllowUpload            bool
	DisplayName            string
	PasswordChangeRequired bool
}

// Create registers a new account, hashing its password with pkg/auth's
// Argon2id scheme.
func (svc *Service) Create(ctx context.Context, opts CreateOptions) (*models.User, error) {
	exists, err := svc.db.NewSelect().
		Model((*models.User)(nil)).
		Where("LOWER(username) = LOWER(?)", opts.Username).
		Exists(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if exists {
		return nil, errcodes.ValidationError("username already exists")
	}

	hash, err := auth.HashPassword(opts.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:               opts.Username,
		PasswordHash:           hash,
		IsSuperuser:            opts.IsSuperuser,
		AllowUpload:            opts.AllowUpload,
		DisplayName:            opts.DisplayName,
		PasswordChangeRequired: opts.PasswordChangeRequired,
	}
	if _, err := svc.db.NewInsert().Model(user).Exec(ctx); err != nil {
		return nil, errors.WithStack(err)
	}
	return user, nil
}

// Retrieve loads a User by id.
func (svc *Service) Retrieve(ctx context.Context, id int) (*models.User, error) {
	user := &models.User{}
	err := svc.db.NewSelect().Model(user).Where("u.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("User")
		}
		return nil, errors.WithStack(err)
	}
	return user, nil
}

// List returns every account, ordered by username.
func (svc *Service) List(ctx context.Context) ([]*models.User, error) {
	var list []*models.User
	err := svc.db.NewSelect().Model(&list).OrderExpr("u.username ASC").Scan(ctx)
	return list, errors.WithStack(err)
}

// UpdateProfile rewrites the mutable display fields of a user, leaving
// password and superuser status untouched.
func (svc *Service) UpdateProfile(ctx context.Context, userID int, displayName string, allowUpload bool) error {
	_, err := svc.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("display_name = ?", displayName).
		Set("allow_upload = ?", allowUpload).
		Where("id = ?", userID).
		Exec(ctx)
	return errors.WithStack(err)
}

// ResetPassword rewrites userID's password hash.
func (svc *Service) ResetPassword(ctx context.Context, userID int, newPassword string, requireChange bool) error {
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	_, err = svc.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("password_hash = ?", hash).
		Set("password_change_required = ?", requireChange).
		Where("id = ?", userID).
		Exec(ctx)
	return errors.WithStack(err)
}

// Delete removes a user account along with its bookshelf and reading
// position rows (no ON DELETE CASCADE is declared on those FKs, so the
// child rows are cleaned up explicitly).
func (svc *Service) Delete(ctx context.Context, userID int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*models.Bookshelf)(nil)).Where("user_id = ?", userID).Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
		if _, err := tx.NewDelete().Model((*models.ReadingPosition)(nil)).Where("user_id = ?", userID).Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
		_, err := tx.NewDelete().Model((*models.User)(nil)).Where("id = ?", userID).Exec(ctx)
		return errors.WithStack(err)
	})
}

// Count returns the total number of accounts.
func (svc *Service) Count(ctx context.Context) (int, error) {
	count, err := svc.db.NewSelect().Model((*models.User)(nil)).Count(ctx)
	return count, errors.WithStack(err)
}
