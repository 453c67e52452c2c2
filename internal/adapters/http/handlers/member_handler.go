package handlers

import (
	"xmllibrary/internal/adapters/persistence/models"
	"xmllibrary/internal/core/services"
	"xmllibrary/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// MemberHandler handles member endpoints
type MemberHandler struct {
	memberService *services.MemberService
}

// NewMemberHandler creates a new member handler
func NewMemberHandler(memberService *services.MemberService) *MemberHandler {
	return &MemberHandler{memberService: memberService}
}

// List handles listing members
// @Summary List members
// @Tags Members
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /members [get]
func (h *MemberHandler) List(c *fiber.Ctx) error {
	members, err := h.memberService.List(c.Context())
	if err != nil {
		return respondError(c, err, "Failed to list members")
	}
	return response.Success(c, "Members retrieved successfully", models.ToMemberResponses(members))
}

// Get handles getting a member by ID
// @Summary Get member
// @Tags Members
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /members/{id} [get]
func (h *MemberHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid member ID")
	}

	member, err := h.memberService.GetByID(c.Context(), id)
	if err != nil {
		return respondError(c, err, "Failed to get member")
	}
	return response.Success(c, "Member retrieved successfully", models.ToMemberResponse(member))
}

// Create handles registering a member
// @Summary Create member
// @Description New members are Active from today
// @Tags Members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.MemberInput true "Member"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /members [post]
func (h *MemberHandler) Create(c *fiber.Ctx) error {
	input, ok, err := parseBody(c, memberSchema)
	if !ok {
		return err
	}

	member, err := h.memberService.Create(c.Context(), &input)
	if err != nil {
		return respondError(c, err, "Failed to create member")
	}
	return response.Created(c, "Member created successfully", models.ToMemberResponse(member))
}

// Update handles replacing a member's details
// @Summary Update member
// @Description An empty status keeps the current one
// @Tags Members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Param body body services.MemberInput true "Member"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /members/{id} [put]
func (h *MemberHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid member ID")
	}
	input, ok, err := parseBody(c, memberSchema)
	if !ok {
		return err
	}

	member, err := h.memberService.Update(c.Context(), id, &input)
	if err != nil {
		return respondError(c, err, "Failed to update member")
	}
	return response.Success(c, "Member updated successfully", models.ToMemberResponse(member))
}

// Delete handles removing a member
// @Summary Delete member
// @Description Refused while the member has a book out
// @Tags Members
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /members/{id} [delete]
func (h *MemberHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid member ID")
	}

	if err := h.memberService.Delete(c.Context(), id); err != nil {
		return respondError(c, err, "Failed to delete member")
	}
	return response.Success(c, "Member deleted successfully", nil)
}
