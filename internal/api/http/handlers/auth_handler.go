package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campus-service/internal/api/dto"
	"github.com/spec-kit/campus-service/internal/service"
)

// AuthHandler manages signup and login endpoints.
type AuthHandler struct {
	service AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Signup POST /auth/signup.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.service.Register(c.UserContext(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(data(authResponse(res)))
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.service.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(data(authResponse(res)))
}

func authResponse(res *service.AuthResult) dto.AuthResponse {
	return dto.AuthResponse{User: res.User, Token: res.Token, ExpiresAt: res.ExpiresAt}
}
