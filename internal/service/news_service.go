package service

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/campus-service/internal/domain"
	"github.com/spec-kit/campus-service/internal/events"
	"github.com/spec-kit/campus-service/internal/repository"
	"github.com/spec-kit/campus-service/pkg/util/errorutil"
)

// NewsService publishes announcements and stores push subscriptions.
type NewsService struct {
	news          repository.NewsRepository
	users         repository.UserRepository
	subscriptions repository.SubscriptionRepository
	events        eventPublisher
	logger        *zap.Logger
}

// NewsDependencies bundles collaborators for the news service.
type NewsDependencies struct {
	NewsRepo         repository.NewsRepository
	UserRepo         repository.UserRepository
	SubscriptionRepo repository.SubscriptionRepository
	Publisher        events.Publisher
	Logger           *zap.Logger
}

// NewsCreateInput describes a news post.
type NewsCreateInput struct {
	Title    string
	Content  string
	AuthorID string
}

// SubscriptionInput is a browser push subscription.
type SubscriptionInput struct {
	Endpoint string
	P256DH   string
	Auth     string
}

// NewNewsService constructs the service.
func NewNewsService(deps NewsDependencies) *NewsService {
	logger := nopIfNil(deps.Logger)
	return &NewsService{
		news:          deps.NewsRepo,
		users:         deps.UserRepo,
		subscriptions: deps.SubscriptionRepo,
		events:        eventPublisher{publisher: deps.Publisher, logger: logger},
		logger:        logger,
	}
}

// Create stores a news post and announces it to the news room and push subscribers.
func (s *NewsService) Create(ctx context.Context, input NewsCreateInput) (*domain.News, error) {
	if err := requireFields(map[string]string{
		"title":    input.Title,
		"content":  input.Content,
		"authorId": input.AuthorID,
	}); err != nil {
		return nil, err
	}

	author, err := s.users.GetByID(ctx, input.AuthorID)
	if err != nil {
		return nil, storeErr(err, "user", input.AuthorID)
	}

	news := &domain.News{
		ID:       uuid.NewString(),
		Title:    strings.TrimSpace(input.Title),
		Content:  strings.TrimSpace(input.Content),
		AuthorID: author.ID,
	}
	if err := s.news.Create(ctx, news); err != nil {
		return nil, errorutil.NewStoreError(err)
	}
	news.Author = author

	s.events.publish(ctx, events.Event{
		Type:    events.EventNewsCreated,
		Room:    events.NewsRoom,
		ActorID: author.ID,
		Payload: events.NewsCreatedPayload{News: *news},
	})
	return news, nil
}

// List returns every news post with its author, newest first.
func (s *NewsService) List(ctx context.Context) ([]domain.News, error) {
	list, err := s.news.ListWithAuthors(ctx)
	if err != nil {
		return nil, errorutil.NewStoreError(err)
	}
	return list, nil
}

// Subscribe registers a push endpoint for userID.
func (s *NewsService) Subscribe(ctx context.Context, userID string, input SubscriptionInput) (*domain.PushSubscription, error) {
	if err := requireFields(map[string]string{
		"endpoint": input.Endpoint,
		"p256dh":   input.P256DH,
		"auth":     input.Auth,
	}); err != nil {
		return nil, err
	}
	endpoint, err := url.Parse(strings.TrimSpace(input.Endpoint))
	if err != nil || (endpoint.Scheme != "https" && endpoint.Scheme != "http") || endpoint.Host == "" {
		return nil, errorutil.NewValidationError("endpoint must be an absolute http(s) URL", map[string]any{"fields": []string{"endpoint"}})
	}

	sub := &domain.PushSubscription{
		ID:       uuid.NewString(),
		UserID:   userID,
		Endpoint: endpoint.String(),
		P256DH:   input.P256DH,
		Auth:     input.Auth,
	}
	if err := s.subscriptions.Upsert(ctx, sub); err != nil {
		return nil, errorutil.NewStoreError(err)
	}
	return sub, nil
}
