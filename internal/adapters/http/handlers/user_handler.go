package handlers

import (
	"errors"

	"xmllibrary/internal/adapters/http/middleware"
	"xmllibrary/internal/core/services"
	"xmllibrary/internal/pkg/pagination"
	"xmllibrary/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// UserHandler handles account management endpoints
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// ListUsers handles listing all users (Admin only)
// @Summary List all users
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(10)
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /users [get]
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	result, err := h.userService.ListUsers(c.Context(), pagination.GetParams(c))
	if err != nil {
		return respondError(c, err, "Failed to list users")
	}
	return response.Success(c, "Users retrieved successfully", result)
}

// UpdateRole handles changing a user's role (Admin only)
// @Summary Update user role
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body RoleRequest true "New role"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id}/role [put]
func (h *UserHandler) UpdateRole(c *fiber.Ctx) error {
	adminID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}
	req, ok, err := parseBody(c, roleSchema)
	if !ok {
		return err
	}

	user, err := h.userService.UpdateRole(c.Context(), id, adminID, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCannotChangeOwnRole):
			return response.BadRequest(c, "Cannot change your own role")
		case errors.Is(err, services.ErrInvalidRole):
			return response.BadRequest(c, "Role must be Admin or Librarian")
		default:
			return respondError(c, err, "Failed to update role")
		}
	}
	return response.Success(c, "Role updated successfully", user)
}

// DeleteUser handles deleting a user (Admin only)
// @Summary Delete user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id} [delete]
func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	adminID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	if err := h.userService.DeleteUser(c.Context(), id, adminID); err != nil {
		if errors.Is(err, services.ErrCannotDeleteSelf) {
			return response.BadRequest(c, "Cannot delete your own account")
		}
		return respondError(c, err, "Failed to delete user")
	}
	return response.Success(c, "User deleted successfully", nil)
}

// ChangePassword handles the caller changing their own password
// @Summary Change password
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.ChangePasswordInput true "Old and new password"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /profile/password [put]
func (h *UserHandler) ChangePassword(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	input, ok, err := parseBody(c, changePasswordSchema)
	if !ok {
		return err
	}

	if err := h.userService.ChangePassword(c.Context(), userID, &input); err != nil {
		if errors.Is(err, services.ErrOldPasswordWrong) {
			return response.BadRequest(c, "Old password is incorrect")
		}
		return respondError(c, err, "Failed to change password")
	}
	return response.Success(c, "Password changed successfully, please login again", nil)
}
