package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pixelbuilders001/whydesigns-backend-server/internal/crypto"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/database"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/logging"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/models"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	dateLayout = "2006-01-02"

	signupMailSubject = "Welcome to Why Designers | Please verify your email"
	resetMailSubject  = "CTMS | OTP for forgot password"
)

// UserServiceDeps wires a UserService. Google may be nil, in which case
// Google sign-in is rejected.
type UserServiceDeps struct {
	Users  *database.UserRepository
	Roles  *database.RoleRepository
	OTPs   *OTPService
	Mailer Mailer
	Hasher *crypto.PasswordHasher
	Tokens *TokenService
	Google GoogleIdentity
	// OTPTTL is quoted in the verification email.
	OTPTTL time.Duration
	Logger *logging.StandardLogger
}

// UserService owns accounts, sign-in and the email OTP flows.
type UserService struct {
	users  *database.UserRepository
	roles  *database.RoleRepository
	otps   *OTPService
	mailer Mailer
	hasher *crypto.PasswordHasher
	tokens *TokenService
	google GoogleIdentity
	otpTTL time.Duration
	logger *logging.StandardLogger
}

func NewUserService(deps UserServiceDeps) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewFromZap(nil)
	}
	mailer := deps.Mailer
	if mailer == nil {
		mailer = NewLogMailer(logger)
	}
	hasher := deps.Hasher
	if hasher == nil {
		hasher = crypto.NewPasswordHasher(0)
	}
	ttl := deps.OTPTTL
	if ttl <= 0 {
		ttl = defaultOTPExpiry
	}
	return &UserService{
		users:  deps.Users,
		roles:  deps.Roles,
		otps:   deps.OTPs,
		mailer: mailer,
		hasher: hasher,
		tokens: deps.Tokens,
		google: deps.Google,
		otpTTL: ttl,
		logger: logger.WithComponent("user_service"),
	}
}

func (s *UserService) SignUp(ctx context.Context, req models.SignUpRequest) (*models.User, error) {
	email := normalizeEmail(req.Email)

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, NewConflict("User with this email already exists")
	} else if !database.IsNotFound(err) {
		return nil, NewInternal("Failed to create user", err)
	}

	phone := strings.TrimSpace(req.PhoneNumber)
	if phone != "" {
		if _, err := s.users.GetByPhone(ctx, phone); err == nil {
			return nil, NewConflict("User with this phone number already exists")
		} else if !database.IsNotFound(err) {
			return nil, NewInternal("Failed to create user", err)
		}
	}

	var dob *time.Time
	if req.DateOfBirth != "" {
		parsed, err := time.Parse(dateLayout, req.DateOfBirth)
		if err != nil {
			return nil, NewBadRequest("Invalid date of birth")
		}
		dob = &parsed
	}

	role, err := s.ensureRole(ctx, models.RoleUser, "User role")
	if err != nil {
		return nil, NewInternal("Failed to create user", err)
	}

	hash, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		return nil, NewInternal("Failed to create user", err)
	}

	user, err := s.users.Create(ctx, &models.User{
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		RoleID:         role.ID,
		DateOfBirth:    dob,
		Email:          email,
		Password:       hash,
		PhoneNumber:    optionalString(phone),
		Address:        optionalString(req.Address),
		ProfilePicture: optionalString(req.ProfilePicture),
		Gender:         optionalString(req.Gender),
		Provider:       models.ProviderLocal,
	})
	if err != nil {
		if errors.Is(err, database.ErrUniqueViolation) {
			return nil, NewConflict("User with this email already exists")
		}
		return nil, NewInternal("Failed to create user", err)
	}

	if err := s.sendEmailOTP(ctx, user, models.OTPPurposeEmailVerification, signupMailSubject, "Verify your email"); err != nil {
		var appErr *AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, NewInternal("Failed to send email verification OTP", err)
	}

	event := map[string]interface{}{
		"user_id": user.ID,
		"email":   utils.MaskEmail(user.Email),
	}
	if user.PhoneNumber != nil {
		event["phone"] = utils.MaskPhone(*user.PhoneNumber)
	}
	s.logger.LogBusinessEvent("user_signed_up", event)
	return user, nil
}

// ResendEmailOTP issues a fresh verification code. Delivery failures are
// logged, not returned.
func (s *UserService) ResendEmailOTP(ctx context.Context, email string) error {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.sendEmailOTP(ctx, user, models.OTPPurposeEmailVerification, signupMailSubject, "Verify your email"); err != nil {
		var appErr *AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		s.logger.WithError(err).Warn("failed to resend verification email", zap.Int64("user_id", user.ID))
	}
	return nil
}

func (s *UserService) VerifyEmail(ctx context.Context, email, code string) (*models.User, error) {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	_, err = s.otps.Verify(ctx, VerifyRequest{
		UserID:     user.ID,
		Purpose:    models.OTPPurposeEmailVerification,
		Code:       code,
		Identifier: user.Email,
	})
	if err != nil {
		return nil, otpError(err, NewBadRequest("OTP has expired"))
	}

	verified := true
	updated, err := s.users.Update(ctx, user.ID, models.UserUpdate{IsEmailVerified: &verified, IsActive: &verified})
	if err != nil {
		return nil, NewInternal("Failed to verify email", err)
	}
	return updated, nil
}

func (s *UserService) SignIn(ctx context.Context, emailOrPhone, password string) (*models.User, *models.AuthTokens, error) {
	identifier := strings.TrimSpace(emailOrPhone)
	if strings.Contains(identifier, "@") {
		identifier = normalizeEmail(identifier)
	}

	user, err := s.users.GetByEmailOrPhone(ctx, identifier)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, nil, NewNotFound("User not found")
		}
		return nil, nil, NewInternal("Failed to sign in", err)
	}
	if !user.IsActive {
		return nil, nil, NewUnauthorized("User is not active")
	}
	if !user.IsEmailVerified {
		return nil, nil, NewUnauthorized("User is not verified")
	}

	ok, err := s.hasher.VerifyPassword(password, user.Password)
	if err != nil || !ok {
		return nil, nil, NewUnauthorized("Invalid credentials")
	}

	if s.hasher.NeedsRehash(user.Password) {
		if hash, err := s.hasher.HashPassword(password); err == nil {
			if _, err := s.users.Update(ctx, user.ID, models.UserUpdate{Password: &hash}); err != nil {
				s.logger.WithError(err).Warn("failed to upgrade password hash", zap.Int64("user_id", user.ID))
			}
		}
	}

	tokens, err := s.issueTokens(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// RefreshAccessToken exchanges a refresh token for a new access token. The
// token must be the one stored at the last sign-in.
func (s *UserService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return "", NewUnauthorized("Refresh token is required")
	}

	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return "", NewUnauthorized("Invalid token")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if database.IsNotFound(err) {
			return "", NewUnauthorized("Invalid token")
		}
		return "", NewInternal("Failed to refresh token", err)
	}
	if user.RefreshToken == nil || *user.RefreshToken != crypto.HashToken(refreshToken) {
		return "", NewUnauthorized("Invalid token")
	}

	access, err := s.tokens.GenerateAccessToken(user.ID)
	if err != nil {
		return "", NewInternal("Failed to refresh token", err)
	}
	return access, nil
}

func (s *UserService) Logout(ctx context.Context, userID int64) error {
	if err := s.users.UpdateRefreshToken(ctx, userID, nil); err != nil {
		if database.IsNotFound(err) {
			return NewNotFound("User not found")
		}
		return NewInternal("Failed to logout", err)
	}
	return nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, NewNotFound("User not found")
		}
		return nil, NewInternal("Failed to fetch user", err)
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, page models.Page, filter models.UserFilter) ([]models.User, models.Pagination, error) {
	page = page.Normalize()
	if filter.Email != "" {
		filter.Email = normalizeEmail(filter.Email)
	}
	users, total, err := s.users.List(ctx, page, filter)
	if err != nil {
		return nil, models.Pagination{}, NewInternal("Failed to fetch users", err)
	}
	return users, models.NewPagination(page, total), nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req models.UpdateProfileRequest) (*models.User, error) {
	upd := models.UserUpdate{
		FirstName:      trimmed(req.FirstName),
		LastName:       trimmed(req.LastName),
		Address:        req.Address,
		ProfilePicture: req.ProfilePicture,
		Gender:         req.Gender,
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse(dateLayout, *req.DateOfBirth)
		if err != nil {
			return nil, NewBadRequest("Invalid date of birth")
		}
		upd.DateOfBirth = &dob
	}

	user, err := s.users.Update(ctx, userID, upd)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, NewNotFound("User not found")
		}
		return nil, NewInternal("Failed to update profile", err)
	}
	return user, nil
}

// RequestPasswordReset issues a PASSWORD_RESET code and mails it.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.sendEmailOTP(ctx, user, models.OTPPurposePasswordReset, resetMailSubject, "Reset your password"); err != nil {
		var appErr *AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		s.logger.WithError(err).Warn("failed to send password reset email", zap.Int64("user_id", user.ID))
	}
	return nil
}

// VerifyPasswordResetOTP checks a reset code without consuming it, so the
// same code still completes ResetPassword. A correct code also proves the
// mailbox, so the account is marked verified and active.
func (s *UserService) VerifyPasswordResetOTP(ctx context.Context, email, code string) error {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}

	_, err = s.otps.Peek(ctx, VerifyRequest{
		UserID:     user.ID,
		Purpose:    models.OTPPurposePasswordReset,
		Code:       code,
		Identifier: user.Email,
	})
	if err != nil {
		return otpError(err, NewBadRequest("OTP has expired"))
	}

	verified := true
	if _, err := s.users.Update(ctx, user.ID, models.UserUpdate{IsEmailVerified: &verified, IsActive: &verified}); err != nil {
		return NewInternal("Failed to verify OTP", err)
	}
	return nil
}

func (s *UserService) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error {
	user, err := s.findByEmail(ctx, req.Email)
	if err != nil {
		return err
	}

	_, err = s.otps.Verify(ctx, VerifyRequest{
		UserID:     user.ID,
		Purpose:    models.OTPPurposePasswordReset,
		Code:       req.OTP,
		Identifier: user.Email,
	})
	if err != nil {
		return otpError(err, NewNotFound("Password reset link has expired"))
	}

	hash, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		return NewInternal("Failed to reset password", err)
	}
	if _, err := s.users.Update(ctx, user.ID, models.UserUpdate{Password: &hash}); err != nil {
		return NewInternal("Failed to reset password", err)
	}
	if err := s.users.UpdateRefreshToken(ctx, user.ID, nil); err != nil {
		s.logger.WithError(err).Warn("failed to revoke refresh token after reset", zap.Int64("user_id", user.ID))
	}

	s.logger.LogBusinessEvent("password_reset", map[string]interface{}{"user_id": user.ID})
	return nil
}

// GoogleAuth signs in with a Google token, creating the account on first use.
func (s *UserService) GoogleAuth(ctx context.Context, googleToken string) (*models.User, *models.AuthTokens, error) {
	if s.google == nil {
		return nil, nil, NewNotFound("Invalid credentials")
	}

	profile, err := s.google.Profile(ctx, googleToken)
	if err != nil || profile == nil || strings.TrimSpace(profile.Email) == "" {
		if err != nil {
			s.logger.WithError(err).Debug("google profile lookup failed")
		}
		return nil, nil, NewNotFound("Invalid credentials")
	}
	email := normalizeEmail(profile.Email)

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case database.IsNotFound(err):
		user, err = s.createGoogleUser(ctx, email, profile)
		if err != nil {
			return nil, nil, err
		}
	case err != nil:
		return nil, nil, NewInternal("Failed to sign in with Google", err)
	default:
		upd := models.UserUpdate{}
		active := true
		provider := models.ProviderGoogle
		if user.ProfilePicture == nil && profile.Picture != "" {
			upd.ProfilePicture = &profile.Picture
		}
		if !user.IsActive {
			upd.IsActive = &active
		}
		if user.Provider != models.ProviderGoogle {
			upd.Provider = &provider
		}
		if !upd.Empty() {
			user, err = s.users.Update(ctx, user.ID, upd)
			if err != nil {
				return nil, nil, NewInternal("Failed to sign in with Google", err)
			}
		}
	}

	tokens, err := s.issueTokens(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

func (s *UserService) createGoogleUser(ctx context.Context, email string, profile *GoogleProfile) (*models.User, error) {
	role, err := s.ensureRole(ctx, models.RoleUser, "User role")
	if err != nil {
		return nil, NewInternal("Failed to sign in with Google", err)
	}

	firstName := strings.TrimSpace(profile.GivenName)
	if firstName == "" {
		firstName = strings.SplitN(email, "@", 2)[0]
	}

	user, err := s.users.Create(ctx, &models.User{
		FirstName:       cases.Title(language.Und).String(firstName),
		LastName:        strings.TrimSpace(profile.FamilyName),
		RoleID:          role.ID,
		Email:           email,
		ProfilePicture:  optionalString(profile.Picture),
		IsEmailVerified: true,
		IsActive:        true,
		Provider:        models.ProviderGoogle,
	})
	if err != nil {
		return nil, NewInternal("Failed to sign in with Google", err)
	}
	return user, nil
}

func (s *UserService) issueTokens(ctx context.Context, userID int64) (*models.AuthTokens, error) {
	access, err := s.tokens.GenerateAccessToken(userID)
	if err != nil {
		return nil, NewInternal("Failed to generate tokens", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(userID)
	if err != nil {
		return nil, NewInternal("Failed to generate tokens", err)
	}

	digest := crypto.HashToken(refresh)
	if err := s.users.UpdateRefreshToken(ctx, userID, &digest); err != nil {
		return nil, NewInternal("Failed to store refresh token", err)
	}
	return &models.AuthTokens{AccessToken: access, RefreshToken: refresh}, nil
}

// sendEmailOTP issues a code for purpose and mails it to the user. OTP
// refusals come back as *AppError; delivery problems as plain errors.
func (s *UserService) sendEmailOTP(ctx context.Context, user *models.User, purpose models.OTPPurpose, subject, heading string) error {
	otp, err := s.otps.Issue(ctx, IssueRequest{
		UserID:     user.ID,
		Purpose:    purpose,
		Identifier: user.Email,
		Metadata:   map[string]any{"email": user.Email},
	})
	if err != nil {
		return otpError(err, NewInternal("Failed to issue OTP", err))
	}

	body, err := renderOTPEmail(otpEmail{
		Heading: heading,
		Name:    user.FirstName,
		Code:    otp.Code,
		Minutes: int(s.otpTTL / time.Minute),
	})
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, user.Email, subject, body); err != nil {
		return fmt.Errorf("failed to send %s email: %w", strings.ToLower(string(purpose)), err)
	}
	return nil
}

func (s *UserService) findByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if database.IsNotFound(err) {
			return nil, NewNotFound("User not found")
		}
		return nil, NewInternal("Failed to fetch user", err)
	}
	return user, nil
}

// ensureRole fetches a role by name, creating it when missing.
func (s *UserService) ensureRole(ctx context.Context, name, description string) (*models.Role, error) {
	role, err := s.roles.GetByName(ctx, name)
	if err == nil {
		return role, nil
	}
	if !database.IsNotFound(err) {
		return nil, err
	}
	role, err = s.roles.Create(ctx, name, &description)
	if errors.Is(err, database.ErrUniqueViolation) {
		return s.roles.GetByName(ctx, name)
	}
	return role, err
}

// otpError maps OTP sentinels to client errors. notFound is what an
// expired, consumed or never issued code turns into for the caller.
func otpError(err error, notFound *AppError) error {
	switch {
	case errors.Is(err, ErrOTPNotFound):
		return notFound
	case errors.Is(err, ErrOTPInvalid):
		return NewUnauthorized("Invalid OTP")
	case errors.Is(err, ErrOTPTooManyAttempts):
		return NewTooManyRequests("Too many invalid attempts. Please request a new OTP.", err)
	case errors.Is(err, ErrOTPCooldown):
		return NewTooManyRequests("Please wait before requesting another OTP.", err)
	default:
		return NewInternal("Failed to process OTP", err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
