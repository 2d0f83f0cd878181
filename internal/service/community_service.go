package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/campus-service/internal/domain"
	"github.com/spec-kit/campus-service/internal/repository"
	"github.com/spec-kit/campus-service/pkg/util/errorutil"
)

// CommunityService manages communities and membership.
type CommunityService struct {
	communities repository.CommunityRepository
	users       repository.UserRepository
	logger      *zap.Logger
}

// CommunityDependencies bundles repositories for the community service.
type CommunityDependencies struct {
	CommunityRepo repository.CommunityRepository
	UserRepo      repository.UserRepository
	Logger        *zap.Logger
}

// CommunityCreateInput describes community creation payload.
type CommunityCreateInput struct {
	Name        string
	Description string
}

// NewCommunityService constructs the service.
func NewCommunityService(deps CommunityDependencies) *CommunityService {
	return &CommunityService{
		communities: deps.CommunityRepo,
		users:       deps.UserRepo,
		logger:      nopIfNil(deps.Logger),
	}
}

// List returns every community with its members.
func (s *CommunityService) List(ctx context.Context) ([]domain.Community, error) {
	list, err := s.communities.List(ctx)
	if err != nil {
		return nil, errorutil.NewStoreError(err)
	}
	for i := range list {
		members, err := s.users.ListByCommunity(ctx, list[i].ID)
		if err != nil {
			return nil, errorutil.NewStoreError(err)
		}
		list[i].Members = members
	}
	return list, nil
}

// Get returns one community with its members.
func (s *CommunityService) Get(ctx context.Context, id string) (*domain.Community, error) {
	community, err := s.communities.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "community", id)
	}
	members, err := s.users.ListByCommunity(ctx, id)
	if err != nil {
		return nil, errorutil.NewStoreError(err)
	}
	community.Members = members
	return community, nil
}

// Create adds a community. Names are unique ignoring case.
func (s *CommunityService) Create(ctx context.Context, input CommunityCreateInput) (*domain.Community, error) {
	name := strings.TrimSpace(input.Name)
	if err := requireFields(map[string]string{"name": name}); err != nil {
		return nil, err
	}

	if _, err := s.communities.GetByName(ctx, name); err == nil {
		return nil, duplicateCommunity(name)
	} else if !errorutil.IsNotFound(err) {
		return nil, errorutil.NewStoreError(err)
	}

	community := &domain.Community{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Members:     []domain.User{},
	}
	if err := s.communities.Create(ctx, community); err != nil {
		if isUniqueViolation(err) {
			return nil, duplicateCommunity(name)
		}
		return nil, errorutil.NewStoreError(err)
	}
	s.logger.Info("community created", zap.String("community_id", community.ID))
	return community, nil
}

// Join moves the user into the community and returns the updated user.
func (s *CommunityService) Join(ctx context.Context, userID, communityID string) (*domain.User, error) {
	community, err := s.communities.GetByID(ctx, communityID)
	if err != nil {
		return nil, storeErr(err, "community", communityID)
	}
	user, err := s.users.SetCommunity(ctx, userID, communityID)
	if err != nil {
		return nil, storeErr(err, "user", userID)
	}
	user.Community = community
	return user, nil
}

func duplicateCommunity(name string) error {
	return errorutil.NewValidationError("community name already exists", map[string]any{"name": name})
}
