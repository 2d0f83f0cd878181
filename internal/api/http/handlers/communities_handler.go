package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campus-service/internal/api/dto"
	"github.com/spec-kit/campus-service/internal/service"
)

// CommunitiesHandler serves community endpoints.
type CommunitiesHandler struct {
	communities CommunityService
	discussions DiscussionService
}

// NewCommunitiesHandler constructs handler.
func NewCommunitiesHandler(communities CommunityService, discussions DiscussionService) *CommunitiesHandler {
	return &CommunitiesHandler{communities: communities, discussions: discussions}
}

// List GET /communities.
func (h *CommunitiesHandler) List(c *fiber.Ctx) error {
	list, err := h.communities.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(data(list))
}

// Get GET /communities/:id.
func (h *CommunitiesHandler) Get(c *fiber.Ctx) error {
	community, err := h.communities.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(data(community))
}

// Create POST /communities.
func (h *CommunitiesHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateCommunityRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	community, err := h.communities.Create(c.UserContext(), service.CommunityCreateInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(data(community))
}

// Join PATCH /communities/:id/join.
func (h *CommunitiesHandler) Join(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	user, err := h.communities.Join(c.UserContext(), principal.ID(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(data(user))
}

// Discussions GET /communities/:id/discussions.
func (h *CommunitiesHandler) Discussions(c *fiber.Ctx) error {
	list, err := h.discussions.ListCommunityDiscussions(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(data(list))
}
