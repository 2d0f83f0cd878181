package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campus-service/internal/auth"
	"github.com/spec-kit/campus-service/internal/domain"
	"github.com/spec-kit/campus-service/internal/service"
	apperrors "github.com/spec-kit/campus-service/pkg/util/errorutil"
)

// DiscussionService is the subset of service.DiscussionService the handlers use.
type DiscussionService interface {
	CreateDiscussion(ctx context.Context, input service.DiscussionCreateInput) (*domain.Discussion, error)
	SendMessage(ctx context.Context, discussionID, content, authorID string) (*domain.Message, error)
	GetDiscussionByID(ctx context.Context, id string, query service.MessageQuery) (*domain.Discussion, error)
	UpdateMessage(ctx context.Context, messageID, content, actorID string, actorRole domain.Role) (*domain.Message, error)
	DeleteMessage(ctx context.Context, messageID, actorID string, actorRole domain.Role) error
	SearchDiscussions(ctx context.Context, query string, limit int) ([]domain.Discussion, error)
	ListCommunityDiscussions(ctx context.Context, communityID string) ([]domain.Discussion, error)
	DeleteDiscussion(ctx context.Context, discussionID, actorID string, actorRole domain.Role) error
}

// CommunityService is the subset of service.CommunityService the handlers use.
type CommunityService interface {
	List(ctx context.Context) ([]domain.Community, error)
	Get(ctx context.Context, id string) (*domain.Community, error)
	Create(ctx context.Context, input service.CommunityCreateInput) (*domain.Community, error)
	Join(ctx context.Context, userID, communityID string) (*domain.User, error)
}

// NewsService is the subset of service.NewsService the handlers use.
type NewsService interface {
	Create(ctx context.Context, input service.NewsCreateInput) (*domain.News, error)
	List(ctx context.Context) ([]domain.News, error)
	Subscribe(ctx context.Context, userID string, input service.SubscriptionInput) (*domain.PushSubscription, error)
}

// AuthService is the subset of service.AuthService the handlers use.
type AuthService interface {
	Register(ctx context.Context, input service.RegisterInput) (*service.AuthResult, error)
	Login(ctx context.Context, username, password string) (*service.AuthResult, error)
}

func requirePrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func data(v any) fiber.Map {
	return fiber.Map{"data": v}
}
