package database

import (
	"context"
	"testing"
	"time"

	"github.com/pixelbuilders001/whydesigns-backend-server/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCounselor(t *testing.T, db DBPool, name string) *models.Counselor {
	t.Helper()
	c, err := NewCounselorRepository(db).Create(context.Background(), &models.Counselor{
		FullName:    name,
		Title:       "Career Coach",
		Specialties: []string{"portfolio", "interviews"},
		IsActive:    true,
		Rating:      decimal.NewNullDecimal(decimal.RequireFromString("4.50")),
	})
	require.NoError(t, err)
	return c
}

func TestUserRepository_CreateLookupAndUpdate(t *testing.T) {
	db := newMigratedSQLite(t)
	ctx := context.Background()
	repo := NewUserRepository(db)

	user := seedUser(t, db, "jane@example.com")
	assert.Equal(t, models.RoleUser, user.RoleName)
	assert.Equal(t, models.ProviderLocal, user.Provider)
	assert.False(t, user.IsActive)

	_, err := repo.Create(ctx, &models.User{FirstName: "Dup", RoleID: user.RoleID, Email: "jane@example.com"})
	assert.ErrorIs(t, err, ErrUniqueViolation)

	byEmail, err := repo.GetByEmailOrPhone(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	active, verified := true, true
	dob := time.Date(1995, 4, 12, 0, 0, 0, 0, time.UTC)
	updated, err := repo.Update(ctx, user.ID, models.UserUpdate{
		IsActive:        &active,
		IsEmailVerified: &verified,
		DateOfBirth:     &dob,
		Address:         strPtr("12 Main St"),
	})
	require.NoError(t, err)
	assert.True(t, updated.IsActive)
	assert.True(t, updated.IsEmailVerified)
	require.NotNil(t, updated.DateOfBirth)
	assert.True(t, dob.Equal(*updated.DateOfBirth))

	require.NoError(t, repo.UpdateRefreshToken(ctx, user.ID, strPtr("token")))
	withToken, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, withToken.RefreshToken)
	assert.Equal(t, "token", *withToken.RefreshToken)

	require.NoError(t, repo.UpdateRefreshToken(ctx, user.ID, nil))
	cleared, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, cleared.RefreshToken)

	_, err = repo.Update(ctx, 9999, models.UserUpdate{IsActive: &active})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_ListFilters(t *testing.T) {
	db := newMigratedSQLite(t)
	ctx := context.Background()
	repo := NewUserRepository(db)

	for _, email := range []string{"ann@example.com", "bob@example.com", "annie@example.com"} {
		seedUser(t, db, email)
	}
	_, err := db.Exec(ctx, `UPDATE users SET firstname = 'Annabel' WHERE email LIKE 'ann%'`)
	require.NoError(t, err)

	users, total, err := repo.List(ctx, models.Page{Limit: 10, Page: 1}, models.UserFilter{FirstName: "ANNA"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, users, 2)

	users, total, err = repo.List(ctx, models.Page{Limit: 1, Page: 2}, models.UserFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, users, 1)

	inactive := false
	_, total, err = repo.List(ctx, models.Page{Limit: 10, Page: 1}, models.UserFilter{IsActive: &inactive, Email: "bob@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestRoleRepository_CRUD(t *testing.T) {
	db := newMigratedSQLite(t)
	ctx := context.Background()
	repo := NewRoleRepository(db)

	admin, err := repo.Create(ctx, models.RoleAdmin, strPtr("Administrators"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, models.RoleAdmin, nil)
	assert.ErrorIs(t, err, ErrUniqueViolation)

	renamed, err := repo.Update(ctx, admin.ID, strPtr("staff"), nil)
	require.NoError(t, err)
	assert.Equal(t, "staff", renamed.Name)
	require.NotNil(t, renamed.Description)

	roles, total, err := repo.List(ctx, models.Page{Limit: 10, Page: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, roles, 1)

	require.NoError(t, repo.Delete(ctx, admin.ID))
	assert.ErrorIs(t, repo.Delete(ctx, admin.ID), ErrNotFound)
}

func TestCounselorRepository_SearchAndUpdate(t *testing.T) {
	db := newMigratedSQLite(t)
	ctx := context.Background()
	repo := NewCounselorRepository(db)

	maya := seedCounselor(t, db, "Maya Patel")
	seedCounselor(t, db, "Leo Gomez")

	assert.Equal(t, []string{"portfolio", "interviews"}, maya.Specialties)
	require.True(t, maya.Rating.Valid)
	assert.True(t, decimal.RequireFromString("4.5").Equal(maya.Rating.Decimal))

	found, total, err := repo.List(ctx, models.Page{Limit: 10, Page: 1}, models.CounselorFilter{Search: "maya"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, found, 1)
	assert.Equal(t, maya.ID, found[0].ID)

	_, total, err = repo.List(ctx, models.Page{Limit: 10, Page: 1}, models.CounselorFilter{Search: "coach"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	inactive := false
	noRating := decimal.NullDecimal{}
	updated, err := repo.Update(ctx, maya.ID, models.CounselorUpdate{IsActive: &inactive, Specialties: []string{"ux"}, Rating: &noRating})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, []string{"ux"}, updated.Specialties)
	assert.False(t, updated.Rating.Valid)

	_, total, err = repo.List(ctx, models.Page{Limit: 10, Page: 1}, models.CounselorFilter{IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	exists, err := repo.Exists(ctx, maya.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, repo.Delete(ctx, maya.ID))
	_, err = repo.GetByID(ctx, maya.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBookingRepository_ConflictQueries(t *testing.T) {
	db := newMigratedSQLite(t)
	ctx := context.Background()
	repo := NewBookingRepository(db)
	user := seedUser(t, db, "client@example.com")
	other := seedUser(t, db, "other@example.com")
	counselor := seedCounselor(t, db, "Maya Patel")

	start := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Hour)
	booking, err := repo.Create(ctx, &models.Booking{
		UserID:      user.ID,
		CounselorID: counselor.ID,
		SessionDate: start,
		Duration:    60,
		Notes:       strPtr("portfolio review"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPending, booking.Status)
	assert.True(t, start.Equal(booking.SessionDate))
	require.NotNil(t, booking.User)
	assert.Equal(t, "client@example.com", booking.User.Email)
	require.NotNil(t, booking.Counselor)
	assert.Equal(t, "Maya Patel", booking.Counselor.FullName)

	clash, err := repo.FindByCounselorAndDate(ctx, counselor.ID, start, 0)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, clash.ID)

	_, err = repo.FindByCounselorAndDate(ctx, counselor.ID, start, booking.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.FindByUserAndDate(ctx, other.ID, start, 0)
	assert.ErrorIs(t, err, ErrNotFound)

	overlapping, err := repo.FindOverlapping(ctx, counselor.ID, start.Add(30*time.Minute), start.Add(90*time.Minute), 0)
	require.NoError(t, err)
	assert.Len(t, overlapping, 1)

	adjacent, err := repo.FindOverlapping(ctx, counselor.ID, start.Add(60*time.Minute), start.Add(120*time.Minute), 0)
	require.NoError(t, err)
	assert.Empty(t, adjacent, "a session ending at start does not overlap")

	cancelled := models.BookingStatusCancelled
	_, err = repo.Update(ctx, booking.ID, models.BookingUpdate{Status: &cancelled, ClearGoogleEvent: true})
	require.NoError(t, err)
	_, err = repo.FindByCounselorAndDate(ctx, counselor.ID, start, 0)
	assert.ErrorIs(t, err, ErrNotFound, "cancelled bookings free the slot")
}

func TestBookingRepository_ListAndUpcoming(t *testing.T) {
	db := newMigratedSQLite(t)
	ctx := context.Background()
	repo := NewBookingRepository(db)
	user := seedUser(t, db, "client@example.com")
	counselor := seedCounselor(t, db, "Maya Patel")

	base := time.Now().UTC().Truncate(time.Minute)
	past, err := repo.Create(ctx, &models.Booking{UserID: user.ID, CounselorID: counselor.ID, SessionDate: base.Add(-24 * time.Hour), Duration: 30})
	require.NoError(t, err)
	soon, err := repo.Create(ctx, &models.Booking{UserID: user.ID, CounselorID: counselor.ID, SessionDate: base.Add(24 * time.Hour), Duration: 30})
	require.NoError(t, err)
	later, err := repo.Create(ctx, &models.Booking{UserID: user.ID, CounselorID: counselor.ID, SessionDate: base.Add(72 * time.Hour), Duration: 30, Notes: strPtr("Resume feedback")})
	require.NoError(t, err)

	upcoming, err := repo.Upcoming(ctx, 0, user.ID)
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, soon.ID, upcoming[0].ID)
	assert.Equal(t, later.ID, upcoming[1].ID)

	list, total, err := repo.List(ctx, models.Page{Limit: 10, Page: 1}, BookingListFilter{UserID: user.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, list, 3)
	assert.Equal(t, later.ID, list[0].ID)
	assert.Equal(t, past.ID, list[2].ID)

	from := base
	_, total, err = repo.List(ctx, models.Page{Limit: 10, Page: 1}, BookingListFilter{StartDate: &from})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	found, total, err := repo.List(ctx, models.Page{Limit: 10, Page: 1}, BookingListFilter{Search: "RESUME"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, later.ID, found[0].ID)

	require.NoError(t, repo.Delete(ctx, past.ID))
	assert.ErrorIs(t, repo.Delete(ctx, past.ID), ErrNotFound)
}
