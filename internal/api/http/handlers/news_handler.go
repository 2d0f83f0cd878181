package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campus-service/internal/api/dto"
	"github.com/spec-kit/campus-service/internal/service"
)

// NewsHandler serves announcements and push subscriptions.
type NewsHandler struct {
	service NewsService
}

// NewNewsHandler constructs handler.
func NewNewsHandler(svc NewsService) *NewsHandler {
	return &NewsHandler{service: svc}
}

// Create POST /news.
func (h *NewsHandler) Create(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateNewsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	news, err := h.service.Create(c.UserContext(), service.NewsCreateInput{
		Title:    req.Title,
		Content:  req.Content,
		AuthorID: principal.ID(),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(data(news))
}

// List GET /news.
func (h *NewsHandler) List(c *fiber.Ctx) error {
	list, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(data(list))
}

// Subscribe POST /news/subscriptions.
func (h *NewsHandler) Subscribe(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.PushSubscriptionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	sub, err := h.service.Subscribe(c.UserContext(), principal.ID(), service.SubscriptionInput{
		Endpoint: req.Endpoint,
		P256DH:   req.Keys.P256DH,
		Auth:     req.Keys.Auth,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(data(sub))
}
