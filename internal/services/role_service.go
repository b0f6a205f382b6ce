package services

import (
	"context"
	"errors"
	"strings"

	"github.com/pixelbuilders001/whydesigns-backend-server/internal/database"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/logging"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/models"
	"go.uber.org/zap"
)

type RoleService struct {
	roles  *database.RoleRepository
	logger *logging.StandardLogger
}

func NewRoleService(roles *database.RoleRepository, logger *logging.StandardLogger) *RoleService {
	if logger == nil {
		logger = logging.NewFromZap(nil)
	}
	return &RoleService{roles: roles, logger: logger.WithComponent("role_service")}
}

func (s *RoleService) Create(ctx context.Context, req models.CreateRoleRequest) (*models.Role, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, NewBadRequest("Role name is required")
	}

	role, err := s.roles.Create(ctx, name, req.Description)
	if err != nil {
		if errors.Is(err, database.ErrUniqueViolation) {
			return nil, NewConflict("Role already exists")
		}
		return nil, NewInternal("Failed to create role", err)
	}
	s.logger.Info("role created", zap.Int64("role_id", role.ID), zap.String("name", role.Name))
	return role, nil
}

func (s *RoleService) Update(ctx context.Context, id int64, req models.UpdateRoleRequest) (*models.Role, error) {
	name := trimmed(req.Name)
	if name != nil && *name == "" {
		return nil, NewBadRequest("Role name is required")
	}

	role, err := s.roles.Update(ctx, id, name, req.Description)
	switch {
	case err == nil:
		return role, nil
	case database.IsNotFound(err):
		return nil, NewNotFound("Role not found")
	case errors.Is(err, database.ErrUniqueViolation):
		return nil, NewConflict("Role already exists")
	default:
		return nil, NewInternal("Failed to update role", err)
	}
}

func (s *RoleService) GetByID(ctx context.Context, id int64) (*models.Role, error) {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, NewNotFound("Role not found")
		}
		return nil, NewInternal("Failed to fetch role", err)
	}
	return role, nil
}

func (s *RoleService) List(ctx context.Context, page models.Page) (*models.RoleList, error) {
	page = page.Normalize()
	roles, total, err := s.roles.List(ctx, page)
	if err != nil {
		return nil, NewInternal("Failed to fetch roles", err)
	}
	p := models.NewPagination(page, total)
	return &models.RoleList{
		Roles:        roles,
		CurrentPage:  p.CurrentPage,
		TotalRecords: p.TotalRecords,
		TotalPages:   p.TotalPages,
	}, nil
}

// Delete removes a role. Roles still assigned to users cannot be deleted.
func (s *RoleService) Delete(ctx context.Context, id int64) error {
	err := s.roles.Delete(ctx, id)
	switch {
	case err == nil:
		s.logger.Info("role deleted", zap.Int64("role_id", id))
		return nil
	case database.IsNotFound(err):
		return NewNotFound("Role not found")
	case errors.Is(err, database.ErrForeignKeyViolation):
		return NewConflict("Role is assigned to users")
	default:
		return NewInternal("Failed to delete role", err)
	}
}
