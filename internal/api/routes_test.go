package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/api/handlers"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/cache"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/config"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/crypto"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/database"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/middleware"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/models"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/services"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/services/distributedlock"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type capturedMail struct {
	mu   sync.Mutex
	sent int
}

func (m *capturedMail) Send(context.Context, string, string, string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent++
	return nil
}

type testServer struct {
	router *gin.Engine
	db     database.DBPool
	otps   *database.OTPRepository
	users  *database.UserRepository
	roles  *database.RoleRepository
	mail   *capturedMail
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	require.NoError(t, handlers.RegisterValidators())

	db, err := database.NewSQLiteConnection(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = database.Migrate(context.Background(), db)
	require.NoError(t, err)

	_, redisClient := testutil.NewMiniRedis(t)
	rc := &database.RedisClient{Client: redisClient}

	userRepo := database.NewUserRepository(db)
	roleRepo := database.NewRoleRepository(db)
	otpRepo := database.NewOTPRepository(db)
	counselorRepo := database.NewCounselorRepository(db)
	bookingRepo := database.NewBookingRepository(db)

	tokens := services.NewTokenService(config.AuthConfig{
		AccessSecret:  testutil.GenerateTestSecret(),
		RefreshSecret: testutil.GenerateTestSecret(),
	})
	mail := &capturedMail{}

	users := services.NewUserService(services.UserServiceDeps{
		Users:  userRepo,
		Roles:  roleRepo,
		OTPs:   services.NewOTPService(otpRepo, services.NewOTPAttemptGuard(rc), services.OTPOptions{}, nil),
		Mailer: mail,
		Hasher: crypto.NewPasswordHasher(4),
		Tokens: tokens,
	})

	router := gin.New()
	SetupRoutes(router, Dependencies{
		Users:      users,
		Roles:      services.NewRoleService(roleRepo, nil),
		Counselors: services.NewCounselorService(counselorRepo, userRepo, cache.NewQueryResultCache(redisClient, time.Minute), nil),
		Bookings:   services.NewBookingService(bookingRepo, counselorRepo, nil, distributedlock.NewLocker(redisClient), nil),
		Database:   db,
		Redis:      rc,
		Auth:       middleware.NewAuthMiddleware(tokens, userRepo, nil),
		OTPLimiter: middleware.NewRateLimiter(middleware.OTPRateLimitConfig(3, time.Minute), redisClient, nil),
		Version:    "test",
	})

	return &testServer{router: router, db: db, otps: otpRepo, users: userRepo, roles: roleRepo, mail: mail}
}

type apiResponse struct {
	Data       json.RawMessage    `json:"data"`
	Message    string             `json:"message"`
	Pagination *models.Pagination `json:"pagination"`
	Success    bool               `json:"success"`
}

func (s *testServer) do(t *testing.T, method, path, token string, payload any) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var reader *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "192.0.2.10:4000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
	}
	return w, resp
}

// signUpAndSignIn walks the public account flow and returns an access token.
func (s *testServer) signUpAndSignIn(t *testing.T, email string) (int64, string) {
	t.Helper()
	ctx := context.Background()

	w, resp := s.do(t, http.MethodPost, "/api/v1/user/signup", "", map[string]any{
		"firstName": "Riya", "lastName": "Kapoor", "email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var user models.User
	require.NoError(t, json.Unmarshal(resp.Data, &user))

	w, _ = s.do(t, http.MethodPost, "/api/v1/user/signin", "", map[string]any{"emailOrPhone": email, "password": "secret123"})
	require.Equal(t, http.StatusUnauthorized, w.Code, "unverified accounts cannot sign in")

	otp, err := s.otps.FindActive(ctx, user.ID, models.OTPPurposeEmailVerification)
	require.NoError(t, err)
	w, _ = s.do(t, http.MethodPost, "/api/v1/user/verify-email", "", map[string]any{"email": email, "otp": otp.Code})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, resp = s.do(t, http.MethodPost, "/api/v1/user/signin", "", map[string]any{"emailOrPhone": email, "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var signed struct {
		ID          int64  `json:"id"`
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &signed))
	require.NotEmpty(t, signed.AccessToken)
	return signed.ID, signed.AccessToken
}

func (s *testServer) promote(t *testing.T, userID int64) {
	t.Helper()
	ctx := context.Background()
	admin, err := s.roles.GetByName(ctx, models.RoleAdmin)
	if database.IsNotFound(err) {
		admin, err = s.roles.Create(ctx, models.RoleAdmin, nil)
	}
	require.NoError(t, err)
	_, err = s.db.Exec(ctx, `UPDATE users SET roleid = $1 WHERE id = $2`, admin.ID, userID)
	require.NoError(t, err)

	user, err := s.users.GetByID(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, user.RoleName)
}

func TestRoutes_Probes(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/health", "/ready", "/live"} {
		w, _ := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestRoutes_AccountFlow(t *testing.T) {
	s := newTestServer(t)
	userID, token := s.signUpAndSignIn(t, "riya@example.com")

	w, resp := s.do(t, http.MethodGet, "/api/v1/user/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me models.User
	require.NoError(t, json.Unmarshal(resp.Data, &me))
	assert.Equal(t, userID, me.ID)
	assert.True(t, me.IsEmailVerified)

	w, _ = s.do(t, http.MethodGet, "/api/v1/user/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/user/me", "garbage", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp = s.do(t, http.MethodPut, "/api/v1/user/profile", token, map[string]any{"address": "12 MG Road", "gender": "female"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(resp.Data), "12 MG Road")

	w, resp = s.do(t, http.MethodGet, "/api/v1/user/all-users?limit=5", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, resp.Pagination)
	assert.Equal(t, int64(1), resp.Pagination.TotalRecords)

	w, _ = s.do(t, http.MethodPost, "/api/v1/user/logout", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutes_RoleMutationsNeedAdmin(t *testing.T) {
	s := newTestServer(t)
	userID, token := s.signUpAndSignIn(t, "riya@example.com")

	w, _ := s.do(t, http.MethodPost, "/api/v1/role", "", map[string]any{"name": "editor"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/role", token, map[string]any{"name": "editor"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	s.promote(t, userID)
	w, _ = s.do(t, http.MethodPost, "/api/v1/role", token, map[string]any{"name": "editor"})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, resp := s.do(t, http.MethodGet, "/api/v1/role", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var roles models.RoleList
	require.NoError(t, json.Unmarshal(resp.Data, &roles))
	assert.Equal(t, int64(3), roles.TotalRecords)
}

func TestRoutes_BookingFlow(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signUpAndSignIn(t, "riya@example.com")

	w, resp := s.do(t, http.MethodPost, "/api/v1/counselor", token, map[string]any{
		"fullName": "Dr. Meera Shah", "title": "Career Counselor", "yearsOfExperience": 8, "specialties": []string{"portfolio"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var counselor models.Counselor
	require.NoError(t, json.Unmarshal(resp.Data, &counselor))

	w, resp = s.do(t, http.MethodGet, "/api/v1/counselor?search=meera", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, resp.Pagination)
	assert.Equal(t, int64(1), resp.Pagination.TotalRecords)

	session := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Minute).Format(time.RFC3339)
	booking := map[string]any{"counselorId": counselor.ID, "sessionDate": session, "duration": 60}

	w, resp = s.do(t, http.MethodPost, "/api/v1/booking", token, booking)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Booking
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.Equal(t, models.BookingStatusPending, created.Status)

	w, _ = s.do(t, http.MethodPost, "/api/v1/booking", token, booking)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(t, http.MethodPut, "/api/v1/booking/"+itoa(created.ID)+"/confirm", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp = s.do(t, http.MethodGet, "/api/v1/booking/upcoming", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var upcoming []models.Booking
	require.NoError(t, json.Unmarshal(resp.Data, &upcoming))
	assert.Len(t, upcoming, 1)

	w, resp = s.do(t, http.MethodPut, "/api/v1/booking/"+itoa(created.ID)+"/cancel", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(resp.Data), `"cancelled"`)

	w, _ = s.do(t, http.MethodDelete, "/api/v1/booking/"+itoa(created.ID), token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRoutes_ImageWithoutStorage(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signUpAndSignIn(t, "riya@example.com")

	w, _ := s.do(t, http.MethodDelete, "/api/v1/image/avatar", token, map[string]any{"fileUrl": "https://x/y.png"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRoutes_OTPEndpointsAreRateLimited(t *testing.T) {
	s := newTestServer(t)
	s.signUpAndSignIn(t, "riya@example.com")

	// the limiter allows three calls per route and client
	for i := 0; i < 3; i++ {
		w, _ := s.do(t, http.MethodPost, "/api/v1/user/forgot-password/request-otp", "", map[string]any{"email": "riya@example.com"})
		require.NotEqual(t, http.StatusTooManyRequests, w.Code, "call %d", i+1)
	}
	w, resp := s.do(t, http.MethodPost, "/api/v1/user/forgot-password/request-otp", "", map[string]any{"email": "riya@example.com"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.False(t, resp.Success)

	// sign-in is not behind the OTP limiter
	w, _ = s.do(t, http.MethodPost, "/api/v1/user/signin", "", map[string]any{"emailOrPhone": "riya@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
