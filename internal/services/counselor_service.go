package services

import (
	"context"
	"strings"

	"github.com/pixelbuilders001/whydesigns-backend-server/internal/cache"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/database"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/logging"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const counselorCacheModule = "counselor"

// CounselorPage is one page of counselors as cached and returned.
type CounselorPage struct {
	Counselors []models.Counselor `json:"counselors"`
	Pagination models.Pagination  `json:"pagination"`
}

// CounselorService manages counselor profiles. Reads go through the query
// cache; every mutation drops the whole counselor module from it.
type CounselorService struct {
	counselors *database.CounselorRepository
	users      *database.UserRepository
	cache      *cache.QueryResultCache
	logger     *logging.StandardLogger
}

func NewCounselorService(counselors *database.CounselorRepository, users *database.UserRepository, queryCache *cache.QueryResultCache, logger *logging.StandardLogger) *CounselorService {
	if logger == nil {
		logger = logging.NewFromZap(nil)
	}
	return &CounselorService{
		counselors: counselors,
		users:      users,
		cache:      queryCache,
		logger:     logger.WithComponent("counselor_service"),
	}
}

func (s *CounselorService) Create(ctx context.Context, req models.CreateCounselorRequest) (*models.Counselor, error) {
	c := &models.Counselor{
		FullName:    strings.TrimSpace(req.FullName),
		Title:       strings.TrimSpace(req.Title),
		Bio:         req.Bio,
		AvatarURL:   req.AvatarURL,
		Specialties: cleanSpecialties(req.Specialties),
		IsActive:    true,
	}
	if req.YearsOfExperience != nil {
		c.YearsOfExperience = *req.YearsOfExperience
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	if req.Rating != nil {
		c.Rating = ratingFromFloat(*req.Rating)
	}

	if req.UserID != nil {
		if err := s.requireUser(ctx, *req.UserID); err != nil {
			return nil, err
		}
	}

	created, err := s.counselors.Create(ctx, c)
	if err != nil {
		return nil, NewInternal("Failed to create counselor", err)
	}
	if req.UserID != nil {
		if err := s.linkUser(ctx, *req.UserID, created.ID); err != nil {
			return nil, err
		}
	}

	s.invalidate(ctx)
	s.logger.Info("counselor created", zap.Int64("counselor_id", created.ID))
	return created, nil
}

func (s *CounselorService) Update(ctx context.Context, id int64, req models.UpdateCounselorRequest) (*models.Counselor, error) {
	upd := models.CounselorUpdate{
		FullName:          trimmed(req.FullName),
		Title:             trimmed(req.Title),
		YearsOfExperience: req.YearsOfExperience,
		Bio:               req.Bio,
		AvatarURL:         req.AvatarURL,
		IsActive:          req.IsActive,
	}
	if req.Specialties != nil {
		upd.Specialties = cleanSpecialties(req.Specialties)
	}
	if req.Rating != nil {
		rating := ratingFromFloat(*req.Rating)
		upd.Rating = &rating
	}

	updated, err := s.counselors.Update(ctx, id, upd)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, NewNotFound("Counselor not found")
		}
		return nil, NewInternal("Failed to update counselor", err)
	}
	if req.UserID != nil {
		if err := s.linkUser(ctx, *req.UserID, id); err != nil {
			return nil, err
		}
	}

	s.invalidate(ctx)
	return updated, nil
}

func (s *CounselorService) GetByID(ctx context.Context, id int64) (*models.Counselor, error) {
	key := cache.Key(counselorCacheModule, "get", map[string]int64{"id": id}, nil)
	var cached models.Counselor
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	c, err := s.counselors.GetByID(ctx, id)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, NewNotFound("Counselor not found")
		}
		return nil, NewInternal("Failed to fetch counselor", err)
	}
	s.store(ctx, key, c)
	return c, nil
}

func (s *CounselorService) List(ctx context.Context, page models.Page, filter models.CounselorFilter) (*CounselorPage, error) {
	page = page.Normalize()
	filter.Search = strings.TrimSpace(filter.Search)

	key := cache.Key(counselorCacheModule, "list", struct {
		Page   models.Page
		Filter models.CounselorFilter
	}{page, filter}, nil)
	var cached CounselorPage
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	counselors, total, err := s.counselors.List(ctx, page, filter)
	if err != nil {
		return nil, NewInternal("Failed to fetch counselors", err)
	}
	result := &CounselorPage{Counselors: counselors, Pagination: models.NewPagination(page, total)}
	s.store(ctx, key, result)
	return result, nil
}

func (s *CounselorService) Delete(ctx context.Context, id int64) error {
	if err := s.counselors.Delete(ctx, id); err != nil {
		if database.IsNotFound(err) {
			return NewNotFound("Counselor not found")
		}
		return NewInternal("Failed to delete counselor", err)
	}
	s.invalidate(ctx)
	s.logger.Info("counselor deleted", zap.Int64("counselor_id", id))
	return nil
}

func (s *CounselorService) requireUser(ctx context.Context, userID int64) error {
	if s.users == nil {
		return NewBadRequest("Linking a user is not supported")
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if database.IsNotFound(err) {
			return NewNotFound("User not found")
		}
		return NewInternal("Failed to fetch user", err)
	}
	return nil
}

func (s *CounselorService) linkUser(ctx context.Context, userID, counselorID int64) error {
	if s.users == nil {
		return NewBadRequest("Linking a user is not supported")
	}
	if err := s.users.SetCounselor(ctx, userID, &counselorID); err != nil {
		if database.IsNotFound(err) {
			return NewNotFound("User not found")
		}
		return NewInternal("Failed to link user to counselor", err)
	}
	return nil
}

func (s *CounselorService) store(ctx context.Context, key string, value any) {
	if err := s.cache.Set(ctx, key, value); err != nil {
		s.logger.WithError(err).Warn("failed to cache counselor result")
	}
}

func (s *CounselorService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateModule(ctx, counselorCacheModule); err != nil {
		s.logger.WithError(err).Warn("failed to invalidate counselor cache")
	}
}

// ratingFromFloat keeps two decimal places, matching the rating column.
func ratingFromFloat(v float64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromFloat(v).Round(2))
}

func cleanSpecialties(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
