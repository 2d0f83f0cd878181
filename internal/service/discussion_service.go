package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/campus-service/internal/domain"
	"github.com/spec-kit/campus-service/internal/events"
	"github.com/spec-kit/campus-service/internal/policy"
	"github.com/spec-kit/campus-service/internal/repository"
	"github.com/spec-kit/campus-service/pkg/util/errorutil"
)

const maxMessagePage = 200

// Message orderings accepted by GetDiscussionByID.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// DiscussionService coordinates discussion and message workflows.
type DiscussionService struct {
	discussions repository.DiscussionRepository
	messages    repository.MessageRepository
	users       repository.UserRepository
	communities repository.CommunityRepository
	tx          repository.TxRunner
	policy      policy.Policy
	events      eventPublisher
	logger      *zap.Logger
}

// DiscussionDependencies bundles collaborators for the discussion service.
type DiscussionDependencies struct {
	DiscussionRepo repository.DiscussionRepository
	MessageRepo    repository.MessageRepository
	UserRepo       repository.UserRepository
	CommunityRepo  repository.CommunityRepository
	TxRunner       repository.TxRunner
	Publisher      events.Publisher
	Policy         policy.Policy
	Logger         *zap.Logger
}

// DiscussionCreateInput describes discussion creation payload.
type DiscussionCreateInput struct {
	Title       string
	Content     string
	AuthorID    string
	CommunityID string
}

// MessageQuery pages through a discussion's messages. Limit 0 returns all of them.
type MessageQuery struct {
	Limit  int
	Offset int
	Order  string
}

// NewDiscussionService constructs the service.
func NewDiscussionService(deps DiscussionDependencies) *DiscussionService {
	logger := nopIfNil(deps.Logger)
	return &DiscussionService{
		discussions: deps.DiscussionRepo,
		messages:    deps.MessageRepo,
		users:       deps.UserRepo,
		communities: deps.CommunityRepo,
		tx:          deps.TxRunner,
		policy:      deps.Policy,
		events:      eventPublisher{publisher: deps.Publisher, logger: logger},
		logger:      logger,
	}
}

// CreateDiscussion persists a discussion in an existing community and announces it to the community room.
func (s *DiscussionService) CreateDiscussion(ctx context.Context, input DiscussionCreateInput) (*domain.Discussion, error) {
	if err := requireFields(map[string]string{
		"title":       input.Title,
		"content":     input.Content,
		"authorId":    input.AuthorID,
		"communityId": input.CommunityID,
	}); err != nil {
		return nil, err
	}

	if _, err := s.communities.GetByID(ctx, input.CommunityID); err != nil {
		return nil, storeErr(err, "community", input.CommunityID)
	}

	discussion := &domain.Discussion{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(input.Title),
		Content:     strings.TrimSpace(input.Content),
		AuthorID:    input.AuthorID,
		CommunityID: input.CommunityID,
	}
	if err := s.discussions.Create(ctx, discussion); err != nil {
		return nil, errorutil.NewStoreError(err)
	}

	s.events.publish(ctx, events.Event{
		Type:    events.EventDiscussionCreated,
		Room:    events.CommunityRoom(discussion.CommunityID),
		ActorID: discussion.AuthorID,
		Payload: *discussion,
	})
	return discussion, nil
}

// SendMessage posts a message to a discussion and fans it out to the discussion room.
func (s *DiscussionService) SendMessage(ctx context.Context, discussionID, content, authorID string) (*domain.Message, error) {
	if err := requireFields(map[string]string{"content": content, "authorId": authorID}); err != nil {
		return nil, err
	}

	if _, err := s.discussions.GetByID(ctx, discussionID); err != nil {
		return nil, storeErr(err, "discussion", discussionID)
	}
	author, err := s.users.GetByID(ctx, authorID)
	if err != nil {
		return nil, storeErr(err, "user", authorID)
	}

	msg := &domain.Message{
		ID:           uuid.NewString(),
		DiscussionID: discussionID,
		AuthorID:     author.ID,
		AuthorRole:   author.Role,
		Content:      strings.TrimSpace(content),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, errorutil.NewStoreError(err)
	}

	s.events.publish(ctx, events.Event{
		Type:    events.EventMessageCreated,
		Room:    events.DiscussionRoom(discussionID),
		ActorID: author.ID,
		Payload: *msg,
	})
	return msg, nil
}

// GetDiscussionByID returns the discussion with a page of its messages, oldest first by default.
func (s *DiscussionService) GetDiscussionByID(ctx context.Context, id string, query MessageQuery) (*domain.Discussion, error) {
	filter, err := query.filter()
	if err != nil {
		return nil, err
	}

	discussion, err := s.discussions.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "discussion", id)
	}
	msgs, err := s.messages.ListByDiscussion(ctx, id, filter)
	if err != nil {
		return nil, errorutil.NewStoreError(err)
	}
	discussion.Messages = msgs
	return discussion, nil
}

func (q MessageQuery) filter() (repository.MessageFilter, error) {
	if q.Limit < 0 || q.Offset < 0 {
		return repository.MessageFilter{}, errorutil.NewValidationError("limit and offset must not be negative", nil)
	}
	filter := repository.MessageFilter{Limit: q.Limit, Offset: q.Offset}
	if filter.Limit > maxMessagePage {
		filter.Limit = maxMessagePage
	}
	switch strings.ToLower(q.Order) {
	case "", OrderAsc:
	case OrderDesc:
		filter.Desc = true
	default:
		return repository.MessageFilter{}, errorutil.NewValidationError("order must be asc or desc", map[string]any{"order": q.Order})
	}
	return filter, nil
}

// UpdateMessage replaces a message's content. Only the author may edit.
func (s *DiscussionService) UpdateMessage(ctx context.Context, messageID, content, actorID string, actorRole domain.Role) (*domain.Message, error) {
	if blank(content) {
		return nil, errorutil.NewValidationError("content is required", map[string]any{"fields": []string{"content"}})
	}

	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, storeErr(err, "message", messageID)
	}
	if s.policy.CanMutate(*msg, actorID, actorRole, policy.OpUpdate) == policy.Deny {
		return nil, errorutil.NewForbidden("only the author can edit this message")
	}

	msg.Content = strings.TrimSpace(content)
	if err := s.messages.UpdateContent(ctx, msg); err != nil {
		return nil, storeErr(err, "message", messageID)
	}

	s.events.publish(ctx, events.Event{
		Type:    events.EventMessageUpdated,
		Room:    events.DiscussionRoom(msg.DiscussionID),
		ActorID: actorID,
		Payload: *msg,
	})
	return msg, nil
}

// DeleteMessage removes a message. Authors and privileged roles may delete.
func (s *DiscussionService) DeleteMessage(ctx context.Context, messageID, actorID string, actorRole domain.Role) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return storeErr(err, "message", messageID)
	}
	if s.policy.CanMutate(*msg, actorID, actorRole, policy.OpDelete) == policy.Deny {
		return errorutil.NewForbidden("not allowed to delete this message")
	}

	if err := s.messages.Delete(ctx, messageID); err != nil {
		return storeErr(err, "message", messageID)
	}

	s.events.publish(ctx, events.Event{
		Type:    events.EventMessageDeleted,
		Room:    events.DiscussionRoom(msg.DiscussionID),
		ActorID: actorID,
		Payload: events.MessageDeletedPayload{ID: msg.ID, DiscussionID: msg.DiscussionID},
	})
	return nil
}

// SearchDiscussions matches query case-insensitively against titles and content, newest first.
func (s *DiscussionService) SearchDiscussions(ctx context.Context, query string, limit int) ([]domain.Discussion, error) {
	if blank(query) {
		return nil, errorutil.NewValidationError("query is required", map[string]any{"fields": []string{"query"}})
	}
	if limit < 0 {
		return nil, errorutil.NewValidationError("limit must not be negative", nil)
	}
	found, err := s.discussions.Search(ctx, strings.TrimSpace(query), limit)
	if err != nil {
		return nil, errorutil.NewStoreError(err)
	}
	return found, nil
}

// ListCommunityDiscussions returns a community's discussions, newest first.
func (s *DiscussionService) ListCommunityDiscussions(ctx context.Context, communityID string) ([]domain.Discussion, error) {
	if _, err := s.communities.GetByID(ctx, communityID); err != nil {
		return nil, storeErr(err, "community", communityID)
	}
	list, err := s.discussions.ListByCommunity(ctx, communityID)
	if err != nil {
		return nil, errorutil.NewStoreError(err)
	}
	return list, nil
}

// DeleteDiscussion removes a discussion and its messages in one transaction.
func (s *DiscussionService) DeleteDiscussion(ctx context.Context, discussionID, actorID string, actorRole domain.Role) error {
	discussion, err := s.discussions.GetByID(ctx, discussionID)
	if err != nil {
		return storeErr(err, "discussion", discussionID)
	}
	if s.policy.CanModerate(discussion.AuthorID, actorID, actorRole) == policy.Deny {
		return errorutil.NewForbidden("not allowed to delete this discussion")
	}

	var removed int64
	err = s.tx.WithTx(ctx, func(stores repository.Stores) error {
		n, err := stores.Messages().DeleteByDiscussion(ctx, discussionID)
		if err != nil {
			return err
		}
		removed = n
		return stores.Discussions().Delete(ctx, discussionID)
	})
	if err != nil {
		return storeErr(err, "discussion", discussionID)
	}

	s.logger.Info("discussion deleted",
		zap.String("discussion_id", discussionID),
		zap.String("actor_id", actorID),
		zap.Int64("messages_deleted", removed))

	payload := events.DiscussionDeletedPayload{
		ID:              discussionID,
		CommunityID:     discussion.CommunityID,
		MessagesDeleted: removed,
	}
	for _, room := range []string{events.DiscussionRoom(discussionID), events.CommunityRoom(discussion.CommunityID)} {
		s.events.publish(ctx, events.Event{
			Type:    events.EventDiscussionDeleted,
			Room:    room,
			ActorID: actorID,
			Payload: payload,
		})
	}
	return nil
}
