package database

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, db DBPool, email string) *models.User {
	t.Helper()
	ctx := context.Background()

	roles := NewRoleRepository(db)
	role, err := roles.GetByName(ctx, models.RoleUser)
	if IsNotFound(err) {
		role, err = roles.Create(ctx, models.RoleUser, nil)
	}
	require.NoError(t, err)

	user, err := NewUserRepository(db).Create(ctx, &models.User{
		FirstName: "Test",
		LastName:  "User",
		RoleID:    role.ID,
		Email:     email,
		Password:  "hash",
	})
	require.NoError(t, err)
	return user
}

func strPtr(s string) *string { return &s }

func TestOTPRepository_UpsertKeepsOneRowPerUserAndPurpose(t *testing.T) {
	db := newMigratedSQLite(t)
	ctx := context.Background()
	repo := NewOTPRepository(db)
	user := seedUser(t, db, "a@example.com")

	var last *models.OneTimeCode
	for _, code := range []string{"1111", "2222", "3333"} {
		otp, err := repo.Upsert(ctx, OTPUpsert{
			UserID:     user.ID,
			Purpose:    models.OTPPurposeEmailVerification,
			Identifier: strPtr("a@example.com"),
			Code:       code,
			TTLSeconds: 300,
			Metadata:   map[string]any{"email": "a@example.com"},
		})
		require.NoError(t, err)
		if last != nil {
			assert.Equal(t, last.ID, otp.ID)
		}
		last = otp
	}

	var count int
	require.NoError(t, db.QueryRow(ctx, `SELECT COUNT(*) FROM otps WHERE userid = $1 AND purpose = $2`,
		user.ID, string(models.OTPPurposeEmailVerification)).Scan(&count))
	assert.Equal(t, 1, count)

	assert.Equal(t, "3333", last.Code)
	assert.Nil(t, last.ConsumedAt)
	assert.Equal(t, "a@example.com", last.Metadata["email"])
	require.NotNil(t, last.Identifier)
	assert.Equal(t, "a@example.com", *last.Identifier)
	assert.WithinDuration(t, time.Now().UTC().Add(300*time.Second), last.ExpiresAt, 5*time.Second)

	other, err := repo.Upsert(ctx, OTPUpsert{UserID: user.ID, Purpose: models.OTPPurposePasswordReset, Code: "4444", TTLSeconds: 60})
	require.NoError(t, err)
	assert.NotEqual(t, last.ID, other.ID)
	assert.Nil(t, other.Identifier)
	assert.Nil(t, other.Metadata)
}

func TestOTPRepository_UpsertClearsConsumedMark(t *testing.T) {
	db := newMigratedSQLite(t)
	ctx := context.Background()
	repo := NewOTPRepository(db)
	user := seedUser(t, db, "b@example.com")

	otp, err := repo.Upsert(ctx, OTPUpsert{UserID: user.ID, Purpose: models.OTPPurposePasswordReset, Code: "1234", TTLSeconds: 300})
	require.NoError(t, err)

	_, err = db.Exec(ctx, `UPDATE otps SET consumedat = datetime('now') WHERE id = $1`, otp.ID)
	require.NoError(t, err)
	_, active, err := repo.Lookup(ctx, user.ID, models.OTPPurposePasswordReset)
	require.NoError(t, err)
	assert.False(t, active)

	otp, err = repo.Upsert(ctx, OTPUpsert{UserID: user.ID, Purpose: models.OTPPurposePasswordReset, Code: "5678", TTLSeconds: 300})
	require.NoError(t, err)
	assert.Nil(t, otp.ConsumedAt)

	found, err := repo.FindActive(ctx, user.ID, models.OTPPurposePasswordReset)
	require.NoError(t, err)
	assert.Equal(t, "5678", found.Code)
}

func TestOTPRepository_ExpiryUsesDatabaseClock(t *testing.T) {
	db := newMigratedSQLite(t)
	ctx := context.Background()
	repo := NewOTPRepository(db)
	user := seedUser(t, db, "c@example.com")

	otp, err := repo.Upsert(ctx, OTPUpsert{UserID: user.ID, Purpose: models.OTPPurposeEmailVerification, Code: "0001", TTLSeconds: 300})
	require.NoError(t, err)

	_, err = db.Exec(ctx, `UPDATE otps SET expiresat = datetime('now', '-1 seconds') WHERE id = $1`, otp.ID)
	require.NoError(t, err)

	_, err = repo.FindActive(ctx, user.ID, models.OTPPurposeEmailVerification)
	assert.ErrorIs(t, err, ErrNotFound)

	row, active, err := repo.Lookup(ctx, user.ID, models.OTPPurposeEmailVerification)
	require.NoError(t, err)
	assert.False(t, active)
	assert.Equal(t, otp.ID, row.ID)

	ok, err := repo.Consume(ctx, otp.ID, "0001")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOTPRepository_ConsumeIsSingleUse(t *testing.T) {
	db := newMigratedSQLite(t)
	ctx := context.Background()
	repo := NewOTPRepository(db)
	user := seedUser(t, db, "d@example.com")

	otp, err := repo.Upsert(ctx, OTPUpsert{UserID: user.ID, Purpose: models.OTPPurposeEmailVerification, Code: "9876", TTLSeconds: 300})
	require.NoError(t, err)

	ok, err := repo.Consume(ctx, otp.ID, "0000")
	require.NoError(t, err)
	assert.False(t, ok, "a different code must not consume the row")

	ok, err = repo.Consume(ctx, otp.ID, "9876")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Consume(ctx, otp.ID, "9876")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = repo.Lookup(ctx, user.ID, models.OTPPurposeEmailVerification)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOTPRepository_PurgeExpiredAndCascade(t *testing.T) {
	db := newMigratedSQLite(t)
	ctx := context.Background()
	repo := NewOTPRepository(db)
	alice := seedUser(t, db, "alice@example.com")
	bob := seedUser(t, db, "bob@example.com")

	stale, err := repo.Upsert(ctx, OTPUpsert{UserID: alice.ID, Purpose: models.OTPPurposeEmailVerification, Code: "1111", TTLSeconds: 300})
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, OTPUpsert{UserID: bob.ID, Purpose: models.OTPPurposeEmailVerification, Code: "2222", TTLSeconds: 300})
	require.NoError(t, err)
	_, err = db.Exec(ctx, `UPDATE otps SET expiresat = datetime('now', '-60 seconds') WHERE id = $1`, stale.ID)
	require.NoError(t, err)

	purged, err := repo.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	_, err = db.Exec(ctx, `DELETE FROM users WHERE id = $1`, bob.ID)
	require.NoError(t, err)
	_, _, err = repo.Lookup(ctx, bob.ID, models.OTPPurposeEmailVerification)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOTPRepository_PostgresStatements(t *testing.T) {
	db, mock, err := NewMockDBPoolFromNewPool()
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()
	repo := NewOTPRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(`INSERT INTO otps .* VALUES \(\$1, \$2, \$3, \$4, NOW\(\) \+ make_interval\(secs => \$5\), \$6, NOW\(\), NOW\(\)\)\s+ON CONFLICT \(userid, purpose\) DO UPDATE SET`).
		WithArgs(int64(7), "PASSWORD_RESET", pgxmock.AnyArg(), "4821", int64(300), `{"email":"x@example.com"}`).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectQuery(`SELECT id, userid, purpose, identifier, otp, expiresat, consumedat, metadata, createdat, updatedat FROM otps WHERE id = \$1`).
		WithArgs(int64(11)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "userid", "purpose", "identifier", "otp", "expiresat", "consumedat", "metadata", "createdat", "updatedat"}).
			AddRow(int64(11), int64(7), "PASSWORD_RESET", nil, "4821", now.Add(5*time.Minute), nil, []byte(`{"email":"x@example.com"}`), now, now))

	otp, err := repo.Upsert(ctx, OTPUpsert{
		UserID:     7,
		Purpose:    models.OTPPurposePasswordReset,
		Identifier: strPtr("x@example.com"),
		Code:       "4821",
		TTLSeconds: 300,
		Metadata:   map[string]any{"email": "x@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), otp.ID)
	assert.Equal(t, models.OTPPurposePasswordReset, otp.Purpose)
	assert.Equal(t, "x@example.com", otp.Metadata["email"])

	mock.ExpectQuery(`DELETE FROM otps\s+WHERE id = \$1 AND otp = \$2 AND consumedat IS NULL AND expiresat > NOW\(\)\s+RETURNING id`).
		WithArgs(int64(11), "4821").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))
	ok, err := repo.Consume(ctx, 11, "4821")
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectQuery(`DELETE FROM otps`).
		WithArgs(int64(11), "4821").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	ok, err = repo.Consume(ctx, 11, "4821")
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectExec(`DELETE FROM otps WHERE expiresat <= NOW\(\) OR consumedat IS NOT NULL`).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	purged, err := repo.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), purged)

	assert.NoError(t, db.ExpectationsWereMet())
}
