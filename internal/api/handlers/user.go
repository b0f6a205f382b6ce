package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/logging"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/middleware"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/models"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/services"
)

const (
	RefreshTokenCookie = "refreshToken"
	refreshCookiePath  = "/api/v1/user/refresh-token"
)

// UserAPI is the account surface the user handler drives.
type UserAPI interface {
	SignUp(ctx context.Context, req models.SignUpRequest) (*models.User, error)
	ResendEmailOTP(ctx context.Context, email string) error
	VerifyEmail(ctx context.Context, email, code string) (*models.User, error)
	SignIn(ctx context.Context, emailOrPhone, password string) (*models.User, *models.AuthTokens, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, userID int64) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context, page models.Page, filter models.UserFilter) ([]models.User, models.Pagination, error)
	UpdateProfile(ctx context.Context, userID int64, req models.UpdateProfileRequest) (*models.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	VerifyPasswordResetOTP(ctx context.Context, email, code string) error
	ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error
	GoogleAuth(ctx context.Context, googleToken string) (*models.User, *models.AuthTokens, error)
}

// CookieConfig controls the auth cookies set on sign-in.
type CookieConfig struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type UserHandler struct {
	responder
	users   UserAPI
	cookies CookieConfig
}

func NewUserHandler(users UserAPI, cookies CookieConfig, logger *logging.StandardLogger) *UserHandler {
	if cookies.AccessTTL <= 0 {
		cookies.AccessTTL = time.Hour
	}
	if cookies.RefreshTTL <= 0 {
		cookies.RefreshTTL = 7 * 24 * time.Hour
	}
	return &UserHandler{responder: newResponder(logger), users: users, cookies: cookies}
}

// signedIn is a user with the tokens issued for it.
type signedIn struct {
	*models.User
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (h *UserHandler) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, err)
		return
	}
	user, err := h.users.SignUp(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, "user.signup")
		return
	}
	respondSuccess(c, http.StatusCreated, user, "Sign up successfully.")
}

func (h *UserHandler) SignIn(c *gin.Context) {
	var req models.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, services.NewBadRequest("Please provide credentials."), "user.signin")
		return
	}
	user, tokens, err := h.users.SignIn(c.Request.Context(), req.EmailOrPhone, req.Password)
	if err != nil {
		h.fail(c, err, "user.signin")
		return
	}
	h.setAuthCookies(c, tokens)
	respondSuccess(c, http.StatusOK, signedIn{User: user, AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, "Logged in successfully.")
}

// RefreshToken takes the token from the body, falling back to the cookie.
func (h *UserHandler) RefreshToken(c *gin.Context) {
	var req models.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.bindFailed(c, err)
		return
	}
	token := req.RefreshToken
	if token == "" {
		token, _ = c.Cookie(RefreshTokenCookie)
	}
	if token == "" {
		h.fail(c, services.NewBadRequest("Please provide refresh token."), "user.refresh")
		return
	}

	access, err := h.users.RefreshAccessToken(c.Request.Context(), token)
	if err != nil {
		h.fail(c, err, "user.refresh")
		return
	}
	h.setCookie(c, middleware.AccessTokenCookie, access, h.cookies.AccessTTL, "/")
	respondSuccess(c, http.StatusOK, gin.H{"accessToken": access}, "")
}

func (h *UserHandler) Logout(c *gin.Context) {
	if err := h.users.Logout(c.Request.Context(), middleware.UserID(c)); err != nil {
		h.fail(c, err, "user.logout")
		return
	}
	h.setCookie(c, middleware.AccessTokenCookie, "", -1, "/")
	h.setCookie(c, RefreshTokenCookie, "", -1, refreshCookiePath)
	respondSuccess(c, http.StatusOK, gin.H{}, "Successfully logged out")
}

// Me serves both /me and /loggedin-user-details.
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err, "user.me")
		return
	}
	respondSuccess(c, http.StatusOK, user, "")
}

func (h *UserHandler) GetByID(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	user, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "user.get")
		return
	}
	respondSuccess(c, http.StatusOK, user, "")
}

func (h *UserHandler) List(c *gin.Context) {
	var filter models.UserFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.bindFailed(c, err)
		return
	}
	users, pagination, err := h.users.List(c.Request.Context(), bindPage(c), filter)
	if err != nil {
		h.fail(c, err, "user.list")
		return
	}
	respondList(c, users, pagination)
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, err)
		return
	}
	user, err := h.users.UpdateProfile(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		h.fail(c, err, "user.profile")
		return
	}
	respondSuccess(c, http.StatusOK, user, "Profile updated successfully.")
}

func (h *UserHandler) VerifyEmail(c *gin.Context) {
	var req models.EmailOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, services.NewBadRequest("Please provide email and otp."), "user.verify_email")
		return
	}
	if _, err := h.users.VerifyEmail(c.Request.Context(), req.Email, req.OTP); err != nil {
		h.fail(c, err, "user.verify_email")
		return
	}
	respondSuccess(c, http.StatusOK, "Email verified successfully.", "")
}

func (h *UserHandler) ResendEmailOTP(c *gin.Context) {
	var req models.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, services.NewBadRequest("Please provide email."), "user.resend_otp")
		return
	}
	if err := h.users.ResendEmailOTP(c.Request.Context(), req.Email); err != nil {
		h.fail(c, err, "user.resend_otp")
		return
	}
	respondSuccess(c, http.StatusOK, "OTP sent successfully.", "")
}

func (h *UserHandler) RequestPasswordReset(c *gin.Context) {
	var req models.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, services.NewBadRequest("Please provide email."), "user.forgot_password")
		return
	}
	if err := h.users.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		h.fail(c, err, "user.forgot_password")
		return
	}
	respondSuccess(c, http.StatusOK, "OTP sent successfully.", "")
}

func (h *UserHandler) VerifyPasswordResetOTP(c *gin.Context) {
	var req models.EmailOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, services.NewBadRequest("Please provide email and otp."), "user.verify_reset_otp")
		return
	}
	if err := h.users.VerifyPasswordResetOTP(c.Request.Context(), req.Email, req.OTP); err != nil {
		h.fail(c, err, "user.verify_reset_otp")
		return
	}
	respondSuccess(c, http.StatusOK, "OTP verified successfully.", "")
}

func (h *UserHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, err)
		return
	}
	if err := h.users.ResetPassword(c.Request.Context(), req); err != nil {
		h.fail(c, err, "user.reset_password")
		return
	}
	respondSuccess(c, http.StatusOK, "Password reset successfully.", "")
}

func (h *UserHandler) GoogleAuth(c *gin.Context) {
	var req models.GoogleAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, services.NewBadRequest("Please provide token."), "user.google_auth")
		return
	}
	user, tokens, err := h.users.GoogleAuth(c.Request.Context(), req.GoogleToken)
	if err != nil {
		h.fail(c, err, "user.google_auth")
		return
	}
	h.setAuthCookies(c, tokens)
	respondSuccess(c, http.StatusOK, signedIn{User: user, AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, "Logged in successfully.")
}

func (h *UserHandler) setAuthCookies(c *gin.Context, tokens *models.AuthTokens) {
	h.setCookie(c, middleware.AccessTokenCookie, tokens.AccessToken, h.cookies.AccessTTL, "/")
	h.setCookie(c, RefreshTokenCookie, tokens.RefreshToken, h.cookies.RefreshTTL, refreshCookiePath)
}

// setCookie writes an httpOnly, SameSite=Lax cookie. A negative ttl clears it.
func (h *UserHandler) setCookie(c *gin.Context, name, value string, ttl time.Duration, path string) {
	maxAge := int(ttl.Seconds())
	if ttl < 0 {
		maxAge = -1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, path, "", h.cookies.Secure, true)
}
