// Package auth checks OPDS Basic Auth credentials against stored Argon2id
// hashes and issues the JWT session tokens the out-of-scope web UI login
// contract expects, the way the teacher's pkg/auth separates credential
// checking from token issuance.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/base64"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"

	"github.com/dshein-alt/ropds-go/pkg/errcodes"
	"github.com/dshein-alt/ropds-go/pkg/models"
)

const (
	// BcryptCost is the cost factor used for the web-session login path.
	BcryptCost = 12
	// TokenExpiry is how long an issued session JWT remains valid.
	TokenExpiry = 7 * 24 * time.Hour

	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32
	argon2SaltLen = 16
)

// JWTClaims is embedded in the session token issued for the out-of-scope
// web UI; the OPDS Basic Auth path never sees a token.
type JWTClaims struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Service checks credentials and issues session tokens.
type Service struct {
	db        *bun.DB
	jwtSecret []byte
}

// NewService creates an auth service bound to db, signing session tokens
// with jwtSecret (config's server.session_secret).
func NewService(db *bun.DB, jwtSecret string) *Service {
	return &Service{db: db, jwtSecret: []byte(jwtSecret)}
}

// Authenticate validates an OPDS Basic Auth username/password pair
// against the stored hash. Both Argon2id ("argon2id$...") and legacy
// bcrypt ("$2...") hashes are accepted so a password changed via the web
// UI (bcrypt) still unlocks OPDS access, and vice versa.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user := &models.User{}
	err := s.db.NewSelect().
		Model(user).
		Where("LOWER(u.username) = LOWER(?)", username).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.Unauthorized("invalid username or password")
		}
		return nil, errors.WithStack(err)
	}

	if !CheckPassword(password, user.PasswordHash) {
		return nil, errcodes.Unauthorized("invalid username or password")
	}

	now := time.Now()
	user.LastLogin = &now
	_, err = s.db.NewUpdate().
		Model(user).
		Column("last_login").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return user, nil
}

// IssueSessionToken signs a JWT for the out-of-scope web UI login flow.
// The core must be able to issue and validate this token even though the
// session middleware that reads it lives outside this module.
func (s *Service) IssueSessionToken(user *models.User) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return signed, nil
}

// ValidateSessionToken parses and verifies a session JWT.
func (s *Service) ValidateSessionToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// GetUserByID loads a user for session revalidation.
func (s *Service) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	user := &models.User{}
	err := s.db.NewSelect().Model(user).Where("u.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("User")
		}
		return nil, errors.WithStack(err)
	}
	return user, nil
}

// CountUsers returns the total number of registered users.
func (s *Service) CountUsers(ctx context.Context) (int, error) {
	count, err := s.db.NewSelect().Model((*models.User)(nil)).Count(ctx)
	return count, errors.WithStack(err)
}

// SetAdminPassword creates the superuser on first run, or rewrites the
// password of the existing superuser account ("admin") otherwise — the
// `--set-admin` CLI flag's backing operation.
func (s *Service) SetAdminPassword(ctx context.Context, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	user := &models.User{}
	err = s.db.NewSelect().Model(user).Where("u.is_superuser = ?", true).Limit(1).Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return errors.WithStack(err)
	}

	if err == nil {
		user.PasswordHash = hash
		user.PasswordChangeRequired = false
		_, err = s.db.NewUpdate().
			Model(user).
			Column("password_hash", "password_change_required").
			WherePK().
			Exec(ctx)
		return errors.WithStack(err)
	}

	user = &models.User{
		Username:     "admin",
		PasswordHash: hash,
		IsSuperuser:  true,
		CreatedAt:    time.Now(),
		AllowUpload:  true,
	}
	_, err = s.db.NewInsert().Model(user).Exec(ctx)
	return errors.WithStack(err)
}

// HashPassword hashes password with Argon2id, the primitive used for
// credentials checked on every OPDS request.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.WithStack(err)
	}

	key := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	encoded := strings.Join([]string{
		"argon2id",
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	}, "$")
	return encoded, nil
}

// HashPasswordBcrypt hashes password with bcrypt, kept for the
// out-of-scope web-session login path exactly as the teacher used it.
func HashPasswordBcrypt(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return string(hashed), nil
}

// CheckPassword compares password against hash, dispatching on the
// hash's own prefix since an account's PasswordHash column may have been
// most recently written by either scheme.
func CheckPassword(password, hash string) bool {
	if strings.HasPrefix(hash, "argon2id$") {
		return checkArgon2(password, hash)
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func checkArgon2(password, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 3 {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return false
	}

	got := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}
