package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pixelbuilders001/whydesigns-backend-server/internal/database"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/logging"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/models"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestDB(t *testing.T) *database.SQLiteDB {
	t.Helper()
	db, err := database.NewSQLiteConnection(filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = database.Migrate(context.Background(), db)
	require.NoError(t, err)
	return db
}

func newTestRedis(t *testing.T) *database.RedisClient {
	t.Helper()
	_, client := testutil.NewMiniRedis(t)
	return &database.RedisClient{Client: client}
}

func newObservedLogger(level zapcore.Level) (*logging.StandardLogger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return logging.NewFromZap(zap.New(core)), logs
}

func createTestUser(t *testing.T, db database.DBPool, email string, mutate func(*models.User)) *models.User {
	t.Helper()
	ctx := context.Background()

	roles := database.NewRoleRepository(db)
	role, err := roles.GetByName(ctx, models.RoleUser)
	if database.IsNotFound(err) {
		role, err = roles.Create(ctx, models.RoleUser, nil)
	}
	require.NoError(t, err)

	u := &models.User{FirstName: "Test", LastName: "User", RoleID: role.ID, Email: email, Password: "unused"}
	if mutate != nil {
		mutate(u)
	}
	user, err := database.NewUserRepository(db).Create(ctx, u)
	require.NoError(t, err)
	return user
}

func strPtr(s string) *string { return &s }
