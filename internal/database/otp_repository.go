package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pixelbuilders001/whydesigns-backend-server/internal/models"
)

const otpColumns = `id, userid, purpose, identifier, otp, expiresat, consumedat, metadata, createdat, updatedat`

// OTPRepository stores one-time codes. Every expiry decision is made against
// the database clock, never the application clock.
type OTPRepository struct {
	db      DBPool
	dialect Dialect
}

func NewOTPRepository(db DBPool) *OTPRepository {
	return &OTPRepository{db: db, dialect: DialectOf(db)}
}

// OTPUpsert is the payload written by Upsert.
type OTPUpsert struct {
	UserID     int64
	Purpose    models.OTPPurpose
	Identifier *string
	Code       string
	TTLSeconds int64
	Metadata   map[string]any
}

// Upsert writes the single code for (userId, purpose). An existing row is
// overwritten in place and its consumed mark cleared, so the previous code
// stops verifying.
func (r *OTPRepository) Upsert(ctx context.Context, in OTPUpsert) (*models.OneTimeCode, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	var metadata any
	if in.Metadata != nil {
		raw, err := json.Marshal(in.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to encode otp metadata: %w", err)
		}
		metadata = string(raw)
	}

	now := r.dialect.Now()
	query := fmt.Sprintf(`
		INSERT INTO otps (userid, purpose, identifier, otp, expiresat, metadata, createdat, updatedat)
		VALUES ($1, $2, $3, $4, %s, $6, %s, %s)
		ON CONFLICT (userid, purpose) DO UPDATE SET
			otp = EXCLUDED.otp,
			identifier = EXCLUDED.identifier,
			expiresat = EXCLUDED.expiresat,
			metadata = EXCLUDED.metadata,
			consumedat = NULL,
			updatedat = EXCLUDED.updatedat
		RETURNING id`, r.dialect.NowPlusSeconds("$5"), now, now)

	var id int64
	err := r.db.QueryRow(ctx, query,
		in.UserID, string(in.Purpose), in.Identifier, in.Code, in.TTLSeconds, metadata,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert otp: %w", translateError(err))
	}

	return r.GetByID(ctx, id)
}

func (r *OTPRepository) GetByID(ctx context.Context, id int64) (*models.OneTimeCode, error) {
	row := r.db.QueryRow(ctx, `SELECT `+otpColumns+` FROM otps WHERE id = $1`, id)
	otp, err := scanOTP(row)
	if err != nil {
		return nil, translateError(err)
	}
	return otp, nil
}

// Lookup returns the row for (userId, purpose) whatever its state, and whether
// it is active: not consumed and expiring strictly after the database now.
func (r *OTPRepository) Lookup(ctx context.Context, userID int64, purpose models.OTPPurpose) (*models.OneTimeCode, bool, error) {
	query := fmt.Sprintf(`
		SELECT %s, (consumedat IS NULL AND expiresat > %s) AS active
		FROM otps
		WHERE userid = $1 AND purpose = $2`, otpColumns, r.dialect.Now())

	var active bool
	otp, err := scanOTP(r.db.QueryRow(ctx, query, userID, string(purpose)), &active)
	if err != nil {
		return nil, false, translateError(err)
	}
	return otp, active, nil
}

// FindActive returns the active code for (userId, purpose) or ErrNotFound.
func (r *OTPRepository) FindActive(ctx context.Context, userID int64, purpose models.OTPPurpose) (*models.OneTimeCode, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM otps
		WHERE userid = $1 AND purpose = $2 AND consumedat IS NULL AND expiresat > %s`,
		otpColumns, r.dialect.Now())

	otp, err := scanOTP(r.db.QueryRow(ctx, query, userID, string(purpose)))
	if err != nil {
		return nil, translateError(err)
	}
	return otp, nil
}

// Consume deletes the row if it still holds code and is still active. It
// reports false when a concurrent verify or a re-issue got there first.
func (r *OTPRepository) Consume(ctx context.Context, id int64, code string) (bool, error) {
	query := fmt.Sprintf(`
		DELETE FROM otps
		WHERE id = $1 AND otp = $2 AND consumedat IS NULL AND expiresat > %s
		RETURNING id`, r.dialect.Now())

	var deleted int64
	err := r.db.QueryRow(ctx, query, id, code).Scan(&deleted)
	if err != nil {
		if err = translateError(err); IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to consume otp: %w", err)
	}
	return true, nil
}

// Delete removes the code for (userId, purpose), active or not.
func (r *OTPRepository) Delete(ctx context.Context, userID int64, purpose models.OTPPurpose) error {
	_, err := r.db.Exec(ctx, `DELETE FROM otps WHERE userid = $1 AND purpose = $2`, userID, string(purpose))
	if err != nil {
		return fmt.Errorf("failed to delete otp: %w", err)
	}
	return nil
}

// PurgeExpired removes expired and consumed rows and returns how many went.
func (r *OTPRepository) PurgeExpired(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM otps WHERE expiresat <= %s OR consumedat IS NOT NULL`, r.dialect.Now())
	result, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired otps: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

func scanOTP(row Row, extra ...any) (*models.OneTimeCode, error) {
	var otp models.OneTimeCode
	var purpose string
	var metadata []byte

	dest := []any{
		&otp.ID, &otp.UserID, &purpose, &otp.Identifier, &otp.Code,
		&otp.ExpiresAt, &otp.ConsumedAt, &metadata, &otp.CreatedAt, &otp.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	otp.Purpose = models.OTPPurpose(purpose)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &otp.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode otp metadata: %w", err)
		}
	}
	return &otp, nil
}
