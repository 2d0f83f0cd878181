package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/campus-service/internal/api/http"
	"github.com/spec-kit/campus-service/internal/api/http/handlers"
	"github.com/spec-kit/campus-service/internal/auth"
	"github.com/spec-kit/campus-service/internal/domain"
	"github.com/spec-kit/campus-service/internal/observability"
	"github.com/spec-kit/campus-service/internal/policy"
	"github.com/spec-kit/campus-service/internal/service"
	apperrors "github.com/spec-kit/campus-service/pkg/util/errorutil"
)

var _ = Describe("Routes", func() {
	var (
		app         *fiber.App
		tokens      *auth.TokenManager
		discussions *mockDiscussionService
		communities *mockCommunityService
		news        *mockNewsService
		authSvc     *mockAuthService
	)

	BeforeEach(func() {
		discussions = &mockDiscussionService{}
		communities = &mockCommunityService{}
		news = &mockNewsService{}
		authSvc = &mockAuthService{}
		tokens = auth.NewTokenManager("test-secret", 5)
		users := userLookup{
			"u1": {ID: "u1", Username: "ada", Role: domain.RoleStudent},
			"u2": {ID: "u2", Username: "grace", Role: domain.RoleStudent},
			"t1": {ID: "t1", Username: "turing", Role: domain.RoleTeacher},
		}

		registry := prometheus.NewRegistry()
		metrics := observability.NewMetrics(registry)

		app = fiber.New()
		httptransport.RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
		httptransport.RegisterRoutes(app, httptransport.RouteConfig{
			Health: handlers.NewHealthHandler("campus-service", "test", stubCounter(3),
				handlers.DependencyCheck{Name: "postgres", Pinger: stubPinger{}},
				handlers.DependencyCheck{Name: "redis", Pinger: stubPinger{err: errors.New("connection refused")}},
			),
			Auth:           handlers.NewAuthHandler(authSvc),
			Discussions:    handlers.NewDiscussionsHandler(discussions),
			Communities:    handlers.NewCommunitiesHandler(communities, discussions),
			News:           handlers.NewNewsHandler(news),
			AuthMiddleware: auth.NewAuthMiddleware(tokens, users),
			Policy:         policy.New(domain.RoleTeacher, domain.RoleAdmin),
			Metrics:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		})
	})

	bearer := func(userID string) string {
		token, _, err := tokens.GenerateToken(userID, domain.RoleStudent)
		Expect(err).NotTo(HaveOccurred())
		return "Bearer " + token
	}

	do := func(method, path, body, authz string) (*http.Response, map[string]any) {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, path, reader)
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		resp, err := app.Test(req, -1)
		Expect(err).NotTo(HaveOccurred())

		raw, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		var decoded map[string]any
		if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
			Expect(json.Unmarshal(raw, &decoded)).To(Succeed())
		}
		return resp, decoded
	}

	errorCode := func(body map[string]any) any {
		return body["error"].(map[string]any)["code"]
	}

	Describe("discussions", func() {
		It("requires authentication to create", func() {
			resp, body := do(http.MethodPost, "/api/discussions", `{"title":"T"}`, "")
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(errorCode(body)).To(Equal(apperrors.CodeUnauthorized))
		})

		It("rejects tokens for unknown users", func() {
			resp, _ := do(http.MethodPost, "/api/discussions", `{"title":"T"}`, bearer("ghost"))
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("creates a discussion authored by the caller", func() {
			var got service.DiscussionCreateInput
			discussions.createFn = func(_ context.Context, input service.DiscussionCreateInput) (*domain.Discussion, error) {
				got = input
				return &domain.Discussion{ID: "d1", Title: input.Title, Content: input.Content, AuthorID: input.AuthorID, CommunityID: input.CommunityID}, nil
			}

			resp, body := do(http.MethodPost, "/api/discussions",
				`{"title":"T","content":"C","communityId":"c1","authorId":"spoofed"}`, bearer("u1"))
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			Expect(got).To(Equal(service.DiscussionCreateInput{Title: "T", Content: "C", AuthorID: "u1", CommunityID: "c1"}))
			Expect(body["data"]).To(HaveKeyWithValue("title", "T"))
		})

		It("routes search ahead of the id route", func() {
			var query string
			var limit int
			discussions.searchFn = func(_ context.Context, q string, l int) ([]domain.Discussion, error) {
				query, limit = q, l
				return []domain.Discussion{{ID: "d2"}}, nil
			}
			discussions.getFn = func(context.Context, string, service.MessageQuery) (*domain.Discussion, error) {
				Fail("search must not hit the id route")
				return nil, nil
			}

			resp, body := do(http.MethodGet, "/api/discussions/search?query=AI&limit=5", "", "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(query).To(Equal("AI"))
			Expect(limit).To(Equal(5))
			Expect(body["data"]).To(HaveLen(1))
		})

		It("passes message paging through", func() {
			var got service.MessageQuery
			discussions.getFn = func(_ context.Context, id string, q service.MessageQuery) (*domain.Discussion, error) {
				got = q
				return &domain.Discussion{ID: id}, nil
			}

			resp, _ := do(http.MethodGet, "/api/discussions/d1?limit=2&offset=4&order=desc", "", "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(got).To(Equal(service.MessageQuery{Limit: 2, Offset: 4, Order: "desc"}))
		})

		It("rejects non-numeric paging", func() {
			resp, body := do(http.MethodGet, "/api/discussions/d1?limit=lots", "", "")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(errorCode(body)).To(Equal(apperrors.CodeValidation))
		})

		It("renders not found as a 404 envelope", func() {
			discussions.getFn = func(context.Context, string, service.MessageQuery) (*domain.Discussion, error) {
				return nil, apperrors.NewNotFound("discussion", map[string]any{"id": "missing"})
			}

			resp, body := do(http.MethodGet, "/api/discussions/missing", "", "")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			Expect(errorCode(body)).To(Equal(apperrors.CodeNotFound))
			Expect(body["error"]).To(HaveKeyWithValue("message", "discussion not found"))
		})

		It("posts a message as the caller", func() {
			discussions.sendFn = func(_ context.Context, discussionID, content, authorID string) (*domain.Message, error) {
				return &domain.Message{ID: "m1", DiscussionID: discussionID, Content: content, AuthorID: authorID}, nil
			}

			resp, body := do(http.MethodPost, "/api/discussions/d1/messages", `{"content":"hi"}`, bearer("u2"))
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			Expect(body["data"]).To(HaveKeyWithValue("authorId", "u2"))
		})

		It("rejects malformed json", func() {
			resp, body := do(http.MethodPost, "/api/discussions/d1/messages", `{"content":`, bearer("u1"))
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(errorCode(body)).To(Equal(apperrors.CodeValidation))
		})

		It("deletes a discussion with no body", func() {
			resp, _ := do(http.MethodDelete, "/api/discussions/d1", "", bearer("t1"))
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
		})
	})

	Describe("messages", func() {
		It("surfaces forbidden edits", func() {
			discussions.updateFn = func(context.Context, string, string, string, domain.Role) (*domain.Message, error) {
				return nil, apperrors.NewForbidden("only the author can edit this message")
			}

			resp, body := do(http.MethodPatch, "/api/messages/m1", `{"content":"x"}`, bearer("u2"))
			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
			Expect(errorCode(body)).To(Equal(apperrors.CodeForbidden))
		})

		It("deletes with the caller's stored role", func() {
			var role domain.Role
			discussions.deleteFn = func(_ context.Context, _, _ string, r domain.Role) error {
				role = r
				return nil
			}

			resp, _ := do(http.MethodDelete, "/api/messages/m1", "", bearer("t1"))
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(role).To(Equal(domain.RoleTeacher))
		})
	})

	Describe("communities", func() {
		BeforeEach(func() {
			communities.createFn = func(_ context.Context, input service.CommunityCreateInput) (*domain.Community, error) {
				if input.Name == "Robotics" {
					return nil, apperrors.NewValidationError("community name already exists", nil)
				}
				return &domain.Community{ID: "c9", Name: input.Name}, nil
			}
		})

		It("lets privileged roles create", func() {
			resp, _ := do(http.MethodPost, "/api/communities", `{"name":"Chess"}`, bearer("t1"))
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
		})

		It("forbids students from creating", func() {
			resp, _ := do(http.MethodPost, "/api/communities", `{"name":"Chess"}`, bearer("u1"))
			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
		})

		It("reports a duplicate name as 400", func() {
			resp, _ := do(http.MethodPost, "/api/communities", `{"name":"Robotics"}`, bearer("t1"))
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("joins the caller to a community", func() {
			communities.joinFn = func(_ context.Context, userID, communityID string) (*domain.User, error) {
				return &domain.User{ID: userID, CommunityID: &communityID}, nil
			}

			resp, body := do(http.MethodPatch, "/api/communities/c1/join", "", bearer("u1"))
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body["data"]).To(HaveKeyWithValue("communityId", "c1"))
		})
	})

	Describe("news", func() {
		It("maps browser subscription keys", func() {
			var got service.SubscriptionInput
			news.subscribeFn = func(_ context.Context, userID string, input service.SubscriptionInput) (*domain.PushSubscription, error) {
				got = input
				return &domain.PushSubscription{ID: "s1", UserID: userID, Endpoint: input.Endpoint}, nil
			}

			resp, _ := do(http.MethodPost, "/api/news/subscriptions",
				`{"endpoint":"https://push.example/a","keys":{"p256dh":"pk","auth":"sec"}}`, bearer("u1"))
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			Expect(got).To(Equal(service.SubscriptionInput{Endpoint: "https://push.example/a", P256DH: "pk", Auth: "sec"}))
		})

		It("forbids students from publishing", func() {
			resp, _ := do(http.MethodPost, "/api/news", `{"title":"t","content":"c"}`, bearer("u1"))
			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
		})
	})

	Describe("auth", func() {
		It("returns the token on signup", func() {
			authSvc.registerFn = func(_ context.Context, input service.RegisterInput) (*service.AuthResult, error) {
				return &service.AuthResult{User: &domain.User{ID: "u9", Username: input.Username, PasswordHash: "secret-hash"}, Token: "tok"}, nil
			}

			resp, body := do(http.MethodPost, "/api/auth/signup", `{"username":"ada","email":"a@b.test","password":"hunter22"}`, "")
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			payload := body["data"].(map[string]any)
			Expect(payload).To(HaveKeyWithValue("token", "tok"))
			Expect(payload["user"]).NotTo(HaveKey("passwordHash"))
		})
	})

	Describe("operational endpoints", func() {
		It("reports liveness with the realtime client count", func() {
			resp, body := do(http.MethodGet, "/health/live", "", "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body).To(HaveKeyWithValue("realtimeClients", BeNumerically("==", 3)))
		})

		It("reports unready when a dependency fails", func() {
			resp, body := do(http.MethodGet, "/health/ready", "", "")
			Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
			Expect(body["error"].(map[string]any)["details"]).To(HaveKeyWithValue("postgres", "ok"))
		})

		It("renders unknown routes with the error envelope", func() {
			resp, body := do(http.MethodGet, "/api/nowhere", "", "")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			Expect(errorCode(body)).To(Equal(apperrors.CodeNotFound))
		})

		It("exposes request metrics", func() {
			do(http.MethodGet, "/health/live", "", "")

			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			resp, err := app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			raw, _ := io.ReadAll(resp.Body)
			Expect(string(raw)).To(ContainSubstring("campus_http_requests_total"))
		})
	})
})
