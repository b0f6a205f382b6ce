package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/logging"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/models"
)

type RoleAPI interface {
	Create(ctx context.Context, req models.CreateRoleRequest) (*models.Role, error)
	Update(ctx context.Context, id int64, req models.UpdateRoleRequest) (*models.Role, error)
	GetByID(ctx context.Context, id int64) (*models.Role, error)
	List(ctx context.Context, page models.Page) (*models.RoleList, error)
	Delete(ctx context.Context, id int64) error
}

type RoleHandler struct {
	responder
	roles RoleAPI
}

func NewRoleHandler(roles RoleAPI, logger *logging.StandardLogger) *RoleHandler {
	return &RoleHandler{responder: newResponder(logger), roles: roles}
}

func (h *RoleHandler) Create(c *gin.Context) {
	var req models.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, err)
		return
	}
	role, err := h.roles.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err, "role.create")
		return
	}
	respondSuccess(c, http.StatusCreated, role, "")
}

// List answers with the role page itself as data.
func (h *RoleHandler) List(c *gin.Context) {
	roles, err := h.roles.List(c.Request.Context(), bindPage(c))
	if err != nil {
		h.fail(c, err, "role.list")
		return
	}
	respondSuccess(c, http.StatusOK, roles, "")
}

func (h *RoleHandler) GetByID(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	role, err := h.roles.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "role.get")
		return
	}
	respondSuccess(c, http.StatusOK, role, "")
}

func (h *RoleHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req models.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindFailed(c, err)
		return
	}
	role, err := h.roles.Update(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err, "role.update")
		return
	}
	respondSuccess(c, http.StatusOK, role, "")
}

func (h *RoleHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.roles.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err, "role.delete")
		return
	}
	respondSuccess(c, http.StatusNoContent, nil, "")
}
