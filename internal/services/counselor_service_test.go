package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/pixelbuilders001/whydesigns-backend-server/internal/cache"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/database"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCounselorService(t *testing.T, withCache bool) (*CounselorService, *database.SQLiteDB) {
	t.Helper()
	db := newTestDB(t)
	var qc *cache.QueryResultCache
	if withCache {
		qc = cache.NewQueryResultCache(newTestRedis(t).Client, time.Minute)
	}
	return NewCounselorService(database.NewCounselorRepository(db), database.NewUserRepository(db), qc, nil), db
}

func TestCounselorService_CreateAndUpdate(t *testing.T) {
	svc, _ := newCounselorService(t, false)
	ctx := context.Background()

	years := 7
	rating := 4.567
	created, err := svc.Create(ctx, models.CreateCounselorRequest{
		FullName:          " Maya Patel ",
		Title:             "Portfolio Coach",
		YearsOfExperience: &years,
		Specialties:       []string{"portfolio", " ", "ux "},
		Rating:            &rating,
	})
	require.NoError(t, err)
	assert.Equal(t, "Maya Patel", created.FullName)
	assert.True(t, created.IsActive)
	assert.Equal(t, []string{"portfolio", "ux"}, created.Specialties)
	require.True(t, created.Rating.Valid)
	assert.True(t, decimal.RequireFromString("4.57").Equal(created.Rating.Decimal))

	inactive := false
	updated, err := svc.Update(ctx, created.ID, models.UpdateCounselorRequest{Title: strPtr("Career Coach"), IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "Career Coach", updated.Title)
	assert.False(t, updated.IsActive)
	assert.Equal(t, []string{"portfolio", "ux"}, updated.Specialties, "untouched fields are kept")

	_, err = svc.Update(ctx, 9999, models.UpdateCounselorRequest{Title: strPtr("Ghost")})
	requireAppError(t, err, http.StatusNotFound, "Counselor not found")

	require.NoError(t, svc.Delete(ctx, created.ID))
	requireAppError(t, svc.Delete(ctx, created.ID), http.StatusNotFound, "Counselor not found")
	_, err = svc.GetByID(ctx, created.ID)
	requireAppError(t, err, http.StatusNotFound, "Counselor not found")
}

func TestCounselorService_LinksUser(t *testing.T) {
	svc, db := newCounselorService(t, false)
	ctx := context.Background()
	user := createTestUser(t, db, "maya@example.com", nil)

	missing := int64(9999)
	_, err := svc.Create(ctx, models.CreateCounselorRequest{FullName: "Maya Patel", Title: "Coach", UserID: &missing})
	requireAppError(t, err, http.StatusNotFound, "User not found")

	page, err := svc.List(ctx, models.Page{}, models.CounselorFilter{})
	require.NoError(t, err)
	assert.Empty(t, page.Counselors, "a failed link creates nothing")

	created, err := svc.Create(ctx, models.CreateCounselorRequest{FullName: "Maya Patel", Title: "Coach", UserID: &user.ID})
	require.NoError(t, err)

	linked, err := database.NewUserRepository(db).GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, linked.CounselorID)
	assert.Equal(t, created.ID, *linked.CounselorID)
}

func TestCounselorService_ListSearch(t *testing.T) {
	svc, _ := newCounselorService(t, false)
	ctx := context.Background()
	for _, name := range []string{"Maya Patel", "Leo Gomez", "Mayra Lopez"} {
		_, err := svc.Create(ctx, models.CreateCounselorRequest{FullName: name, Title: "Coach"})
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, models.Page{Limit: 10}, models.CounselorFilter{Search: "  MAY "})
	require.NoError(t, err)
	assert.Len(t, page.Counselors, 2)
	assert.Equal(t, models.Pagination{CurrentPage: 1, TotalRecords: 2, TotalPages: 1}, page.Pagination)
}

func TestCounselorService_CacheServesReadsUntilMutation(t *testing.T) {
	svc, db := newCounselorService(t, true)
	ctx := context.Background()

	created, err := svc.Create(ctx, models.CreateCounselorRequest{FullName: "Maya Patel", Title: "Coach"})
	require.NoError(t, err)

	first, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	listed, err := svc.List(ctx, models.Page{}, models.CounselorFilter{})
	require.NoError(t, err)
	require.Len(t, listed.Counselors, 1)

	// change the row behind the service's back
	_, err = db.Exec(ctx, `UPDATE counselors SET fullname = 'Stale Name' WHERE id = $1`, created.ID)
	require.NoError(t, err)

	cached, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, first.FullName, cached.FullName)
	cachedList, err := svc.List(ctx, models.Page{}, models.CounselorFilter{})
	require.NoError(t, err)
	assert.Equal(t, "Maya Patel", cachedList.Counselors[0].FullName)

	_, err = svc.Update(ctx, created.ID, models.UpdateCounselorRequest{Bio: strPtr("Ten years of UX hiring")})
	require.NoError(t, err)

	fresh, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Stale Name", fresh.FullName)
	freshList, err := svc.List(ctx, models.Page{}, models.CounselorFilter{})
	require.NoError(t, err)
	assert.Equal(t, "Stale Name", freshList.Counselors[0].FullName)
}
