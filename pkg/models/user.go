package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is a web/OPDS account. Password hashing is Argon2id for OPDS
// Basic Auth and bcrypt for the web session cookie (see pkg/auth);
// PasswordHash stores whichever scheme most recently wrote it.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID                     int        `bun:",pk,autoincrement" json:"id"`
	Username               string     `bun:",unique,notnull" json:"username"`
	PasswordHash           string     `bun:",notnull" json:"-"`
	IsSuperuser            bool       `bun:",notnull" json:"is_superuser"`
	CreatedAt              time.Time  `bun:",notnull" json:"created_at"`
	LastLogin              *time.Time `json:"last_login,omitempty"`
	PasswordChangeRequired bool       `bun:",notnull" json:"password_change_required"`
	DisplayName            string     `json:"display_name"`
	AllowUpload            bool       `bun:",notnull" json:"allow_upload"`
}
