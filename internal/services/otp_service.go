package services

import (
	"context"
	cryptorand "crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/pixelbuilders001/whydesigns-backend-server/internal/database"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/logging"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/models"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	defaultOTPLength      = 4
	defaultOTPExpiry      = 5 * time.Minute
	defaultOTPMaxAttempts = 5
)

// OTPOptions tunes code generation and guessing limits. Zero values fall
// back to the defaults above; a zero ResendCooldown disables the cooldown.
type OTPOptions struct {
	Length         int
	TTL            time.Duration
	MaxAttempts    int
	ResendCooldown time.Duration
}

type IssueRequest struct {
	UserID     int64
	Purpose    models.OTPPurpose
	Identifier string
	// TTL overrides the configured lifetime for this code.
	TTL      time.Duration
	Metadata map[string]any
}

type VerifyRequest struct {
	UserID     int64
	Purpose    models.OTPPurpose
	Code       string
	Identifier string
}

// OTPService issues and verifies one-time codes. A (user, purpose) pair holds
// at most one code; issuing again replaces it.
type OTPService struct {
	repo   *database.OTPRepository
	guard  *OTPAttemptGuard
	opts   OTPOptions
	logger *logging.StandardLogger
}

func NewOTPService(repo *database.OTPRepository, guard *OTPAttemptGuard, opts OTPOptions, logger *logging.StandardLogger) *OTPService {
	if opts.Length <= 0 {
		opts.Length = defaultOTPLength
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultOTPExpiry
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultOTPMaxAttempts
	}
	if guard == nil {
		guard = NewOTPAttemptGuard(nil)
	}
	if logger == nil {
		logger = logging.NewFromZap(nil)
	}
	return &OTPService{
		repo:   repo,
		guard:  guard,
		opts:   opts,
		logger: logger.WithComponent("otp"),
	}
}

// Issue generates a fresh code for (userId, purpose), replacing any earlier
// one. It has no delivery side effect.
func (s *OTPService) Issue(ctx context.Context, req IssueRequest) (*models.OneTimeCode, error) {
	if !req.Purpose.Valid() {
		return nil, ErrInvalidOTPPurpose
	}

	if s.opts.ResendCooldown > 0 {
		started, err := s.guard.StartCooldown(ctx, req.UserID, req.Purpose, s.opts.ResendCooldown)
		if err != nil {
			s.logger.WithError(err).Warn("otp cooldown check failed, issuing anyway")
		} else if !started {
			return nil, ErrOTPCooldown
		}
	}

	code, err := generateNumericCode(s.opts.Length)
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}

	ttl := req.TTL
	if ttl <= 0 {
		ttl = s.opts.TTL
	}
	seconds := int64(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	var identifier *string
	if normalized := normalizeIdentifier(req.Identifier); normalized != "" {
		identifier = &normalized
	}

	otp, err := s.repo.Upsert(ctx, database.OTPUpsert{
		UserID:     req.UserID,
		Purpose:    req.Purpose,
		Identifier: identifier,
		Code:       code,
		TTLSeconds: seconds,
		Metadata:   req.Metadata,
	})
	if err != nil {
		if s.opts.ResendCooldown > 0 {
			_ = s.guard.ClearCooldown(ctx, req.UserID, req.Purpose)
		}
		return nil, fmt.Errorf("failed to issue one-time code: %w", err)
	}

	if err := s.guard.ResetAttempts(ctx, req.UserID, req.Purpose); err != nil {
		s.logger.WithError(err).Warn("failed to reset otp attempt counter")
	}
	return otp, nil
}

// Verify checks the code and consumes it. A code verifies at most once.
func (s *OTPService) Verify(ctx context.Context, req VerifyRequest) (*models.OneTimeCode, error) {
	otp, err := s.check(ctx, req)
	if err != nil {
		return nil, err
	}

	consumed, err := s.repo.Consume(ctx, otp.ID, otp.Code)
	if err != nil {
		return nil, err
	}
	if !consumed {
		s.reject(req, "consumed concurrently")
		return nil, ErrOTPNotFound
	}

	if err := s.guard.ResetAttempts(ctx, req.UserID, req.Purpose); err != nil {
		s.logger.WithError(err).Warn("failed to reset otp attempt counter")
	}
	return otp, nil
}

// Peek checks the code like Verify but leaves it active.
func (s *OTPService) Peek(ctx context.Context, req VerifyRequest) (*models.OneTimeCode, error) {
	otp, err := s.check(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.guard.ResetAttempts(ctx, req.UserID, req.Purpose); err != nil {
		s.logger.WithError(err).Warn("failed to reset otp attempt counter")
	}
	return otp, nil
}

// PurgeExpired deletes expired and consumed codes.
func (s *OTPService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.PurgeExpired(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info("purged one-time codes", zap.Int64("count", n))
	return n, nil
}

func (s *OTPService) check(ctx context.Context, req VerifyRequest) (*models.OneTimeCode, error) {
	if !req.Purpose.Valid() {
		return nil, ErrInvalidOTPPurpose
	}

	otp, active, err := s.repo.Lookup(ctx, req.UserID, req.Purpose)
	if err != nil {
		if database.IsNotFound(err) {
			s.reject(req, "never requested")
			return nil, ErrOTPNotFound
		}
		return nil, fmt.Errorf("failed to look up one-time code: %w", err)
	}
	if !active {
		reason := "expired"
		if otp.ConsumedAt != nil {
			reason = "consumed"
		}
		s.reject(req, reason)
		return nil, ErrOTPNotFound
	}

	if want := normalizeIdentifier(req.Identifier); want != "" && otp.Identifier != nil && *otp.Identifier != want {
		s.reject(req, "identifier mismatch")
		return nil, ErrOTPNotFound
	}

	attempts, err := s.guard.Hit(ctx, req.UserID, req.Purpose, s.attemptWindow(otp))
	if err != nil {
		s.logger.WithError(err).Warn("otp attempt counter unavailable")
	} else if attempts > int64(s.opts.MaxAttempts) {
		if err := s.repo.Delete(ctx, req.UserID, req.Purpose); err != nil {
			s.logger.WithError(err).Error("failed to burn one-time code")
		}
		_ = s.guard.ResetAttempts(ctx, req.UserID, req.Purpose)
		s.reject(req, "too many attempts")
		return nil, ErrOTPTooManyAttempts
	}

	if subtle.ConstantTimeCompare([]byte(otp.Code), []byte(req.Code)) != 1 {
		s.reject(req, "code mismatch")
		return nil, ErrOTPInvalid
	}
	return otp, nil
}

// attemptWindow is the lifetime the code was issued with. Both timestamps come
// from the database clock when the row is written.
func (s *OTPService) attemptWindow(otp *models.OneTimeCode) time.Duration {
	if lifetime := otp.ExpiresAt.Sub(otp.UpdatedAt); lifetime > 0 {
		return lifetime
	}
	return s.opts.TTL
}

func (s *OTPService) reject(req VerifyRequest, reason string) {
	s.logger.Debug("otp verification rejected",
		zap.Int64("user_id", req.UserID),
		zap.String("purpose", string(req.Purpose)),
		zap.String("reason", reason),
	)
}

func normalizeIdentifier(identifier string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(identifier))
}

// generateNumericCode returns a uniformly random decimal code of exactly
// length digits, zero padded.
func generateNumericCode(length int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := cryptorand.Int(cryptorand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", length, n.Int64()), nil
}
