package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshein-alt/ropds-go/pkg/auth"
	"github.com/dshein-alt/ropds-go/pkg/config"
	"github.com/dshein-alt/ropds-go/pkg/database"
	"github.com/dshein-alt/ropds-go/pkg/migrations"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	cfg := config.NewForTest(t.TempDir())
	db, _, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	_, err = migrations.BringUpToDate(ctx, db)
	require.NoError(t, err)

	return NewService(db)
}

func TestCreate_RejectsDuplicateUsername(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateOptions{Username: "alice", Password: "hunter22"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateOptions{Username: "ALICE", Password: "other"})
	assert.Error(t, err)
}

func TestResetPassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateOptions{Username: "bob", Password: "initial12"})
	require.NoError(t, err)

	require.NoError(t, svc.ResetPassword(ctx, user.ID, "changed123", true))

	reloaded, err := svc.Retrieve(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.PasswordChangeRequired)
	assert.True(t, auth.CheckPassword("changed123", reloaded.PasswordHash))
}

func TestDelete_RemovesUser(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateOptions{Username: "carol", Password: "secretpw1"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, user.ID))

	_, err = svc.Retrieve(ctx, user.ID)
	assert.Error(t, err)

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
