package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campus-service/internal/api/dto"
	"github.com/spec-kit/campus-service/internal/service"
	apperrors "github.com/spec-kit/campus-service/pkg/util/errorutil"
)

// DiscussionsHandler serves discussion and message endpoints.
type DiscussionsHandler struct {
	service DiscussionService
}

// NewDiscussionsHandler constructs handler.
func NewDiscussionsHandler(svc DiscussionService) *DiscussionsHandler {
	return &DiscussionsHandler{service: svc}
}

// Create POST /discussions.
func (h *DiscussionsHandler) Create(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateDiscussionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	discussion, err := h.service.CreateDiscussion(c.UserContext(), service.DiscussionCreateInput{
		Title:       req.Title,
		Content:     req.Content,
		AuthorID:    principal.ID(),
		CommunityID: req.CommunityID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(data(discussion))
}

// Get GET /discussions/:id.
func (h *DiscussionsHandler) Get(c *fiber.Ctx) error {
	var q dto.MessageListQuery
	if err := c.QueryParser(&q); err != nil {
		return apperrors.NewValidationError("invalid query parameters", nil)
	}
	discussion, err := h.service.GetDiscussionByID(c.UserContext(), c.Params("id"), service.MessageQuery{
		Limit:  q.Limit,
		Offset: q.Offset,
		Order:  q.Order,
	})
	if err != nil {
		return err
	}
	return c.JSON(data(discussion))
}

// Search GET /discussions/search.
func (h *DiscussionsHandler) Search(c *fiber.Ctx) error {
	var q dto.SearchQuery
	if err := c.QueryParser(&q); err != nil {
		return apperrors.NewValidationError("invalid query parameters", nil)
	}
	found, err := h.service.SearchDiscussions(c.UserContext(), q.Query, q.Limit)
	if err != nil {
		return err
	}
	return c.JSON(data(found))
}

// Delete DELETE /discussions/:id.
func (h *DiscussionsHandler) Delete(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteDiscussion(c.UserContext(), c.Params("id"), principal.ID(), principal.Role()); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// SendMessage POST /discussions/:id/messages.
func (h *DiscussionsHandler) SendMessage(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.MessageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	msg, err := h.service.SendMessage(c.UserContext(), c.Params("id"), req.Content, principal.ID())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(data(msg))
}

// UpdateMessage PATCH /messages/:id.
func (h *DiscussionsHandler) UpdateMessage(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.MessageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	msg, err := h.service.UpdateMessage(c.UserContext(), c.Params("id"), req.Content, principal.ID(), principal.Role())
	if err != nil {
		return err
	}
	return c.JSON(data(msg))
}

// DeleteMessage DELETE /messages/:id.
func (h *DiscussionsHandler) DeleteMessage(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteMessage(c.UserContext(), c.Params("id"), principal.ID(), principal.Role()); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
