package service_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spec-kit/campus-service/internal/domain"
	"github.com/spec-kit/campus-service/internal/events"
	"github.com/spec-kit/campus-service/internal/policy"
	"github.com/spec-kit/campus-service/internal/repository"
	"github.com/spec-kit/campus-service/internal/service"
	"github.com/spec-kit/campus-service/pkg/util/errorutil"
)

var _ = Describe("DiscussionService", func() {
	var (
		ctx       context.Context
		store     *memStore
		msgs      messageRepo
		discs     discussionRepo
		txRunner  *mockTxRunner
		publisher *recordingPublisher
		svc       *service.DiscussionService
	)

	build := func() {
		svc = service.NewDiscussionService(service.DiscussionDependencies{
			DiscussionRepo: discs,
			MessageRepo:    msgs,
			UserRepo:       userRepo{s: store},
			CommunityRepo:  communityRepo{s: store},
			TxRunner:       txRunner,
			Publisher:      publisher,
			Policy:         policy.New(domain.RoleTeacher, domain.RoleAdmin),
		})
	}

	BeforeEach(func() {
		ctx = context.Background()
		store = newMemStore()
		msgs = messageRepo{s: store}
		discs = discussionRepo{s: store}
		txRunner = &mockTxRunner{s: store}
		publisher = &recordingPublisher{}

		store.addUser("u1", domain.RoleStudent)
		store.addUser("u2", domain.RoleStudent)
		store.addUser("t1", domain.RoleTeacher)
		store.addCommunity("c1", "Robotics")
		store.addDiscussion("d1", "Welcome", "Say hi", "u1", "c1")
		store.addMessage("m1", "d1", "u1", "first")
		build()
	})

	Describe("CreateDiscussion", func() {
		It("echoes the input and announces the discussion to its community", func() {
			d, err := svc.CreateDiscussion(ctx, service.DiscussionCreateInput{
				Title: "T", Content: "C", AuthorID: "u1", CommunityID: "c1",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(d.ID).NotTo(BeEmpty())
			Expect(d.Title).To(Equal("T"))
			Expect(d.Content).To(Equal("C"))
			Expect(d.CreatedAt.IsZero()).To(BeFalse())

			published := publisher.published()
			Expect(published).To(HaveLen(1))
			Expect(published[0].Type).To(Equal(events.EventDiscussionCreated))
			Expect(published[0].Room).To(Equal("community:c1"))
		})

		DescribeTable("rejects blank required fields",
			func(input service.DiscussionCreateInput) {
				_, err := svc.CreateDiscussion(ctx, input)
				Expect(errorutil.IsValidation(err)).To(BeTrue())
				Expect(publisher.published()).To(BeEmpty())
			},
			Entry("title", service.DiscussionCreateInput{Title: " ", Content: "C", AuthorID: "u1", CommunityID: "c1"}),
			Entry("content", service.DiscussionCreateInput{Title: "T", AuthorID: "u1", CommunityID: "c1"}),
			Entry("author", service.DiscussionCreateInput{Title: "T", Content: "C", CommunityID: "c1"}),
			Entry("community", service.DiscussionCreateInput{Title: "T", Content: "C", AuthorID: "u1"}),
		)

		It("requires an existing community", func() {
			_, err := svc.CreateDiscussion(ctx, service.DiscussionCreateInput{
				Title: "T", Content: "C", AuthorID: "u1", CommunityID: "nope",
			})
			Expect(errorutil.IsNotFound(err)).To(BeTrue())
		})

		It("does not publish when the store fails", func() {
			discs.createFn = func(context.Context, *domain.Discussion) error { return errors.New("disk full") }
			build()

			_, err := svc.CreateDiscussion(ctx, service.DiscussionCreateInput{
				Title: "T", Content: "C", AuthorID: "u1", CommunityID: "c1",
			})
			Expect(errorutil.CodeOf(err)).To(Equal(errorutil.CodeStore))
			Expect(publisher.published()).To(BeEmpty())
		})
	})

	Describe("SendMessage", func() {
		It("persists the message and publishes it to the discussion room", func() {
			msg, err := svc.SendMessage(ctx, "d1", "hello", "u2")
			Expect(err).NotTo(HaveOccurred())
			Expect(msg.AuthorRole).To(Equal(domain.RoleStudent))

			stored, err := msgs.GetByID(ctx, msg.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(cmp.Diff(*stored, *msg)).To(BeEmpty())

			published := publisher.published()
			Expect(published).To(HaveLen(1))
			Expect(published[0].Type).To(Equal(events.EventMessageCreated))
			Expect(published[0].Room).To(Equal(events.DiscussionRoom("d1")))
			Expect(cmp.Diff(*msg, published[0].Payload)).To(BeEmpty())
		})

		It("fails with not found for a missing discussion", func() {
			_, err := svc.SendMessage(ctx, "missing-id", "hello", "u1")
			Expect(errorutil.IsNotFound(err)).To(BeTrue())
			Expect(publisher.published()).To(BeEmpty())
		})

		It("fails with not found when the store rejects the id as malformed", func() {
			discs = discussionRepo{s: store, getFn: func(_ context.Context, id string) (*domain.Discussion, error) {
				if _, err := uuid.Parse(id); err != nil {
					return nil, fmt.Errorf("select discussion: %w", &pgconn.PgError{
						Code:    "22P02",
						Message: fmt.Sprintf("invalid input syntax for type uuid: %q", id),
					})
				}
				return nil, pgx.ErrNoRows
			}}
			build()

			for _, id := range []string{"missing-id", "9b2f7c9e-52a4-4d0c-9a43-6f1f0c3f2b11"} {
				_, err := svc.SendMessage(ctx, id, "hello", "u1")
				Expect(errorutil.IsNotFound(err)).To(BeTrue(), "id %q: %v", id, err)
			}
			Expect(publisher.published()).To(BeEmpty())
		})

		It("fails with not found for an unknown author", func() {
			_, err := svc.SendMessage(ctx, "d1", "hello", "ghost")
			Expect(errorutil.IsNotFound(err)).To(BeTrue())
		})

		It("rejects blank content", func() {
			_, err := svc.SendMessage(ctx, "d1", "   ", "u1")
			Expect(errorutil.IsValidation(err)).To(BeTrue())
		})

		It("still succeeds when publishing fails", func() {
			publisher.err = errors.New("redis down")

			msg, err := svc.SendMessage(ctx, "d1", "hello", "u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(msg).NotTo(BeNil())
		})

		It("does not publish when the insert fails", func() {
			msgs.createFn = func(context.Context, *domain.Message) error { return errors.New("timeout") }
			build()

			_, err := svc.SendMessage(ctx, "d1", "hello", "u1")
			Expect(err).To(HaveOccurred())
			Expect(publisher.published()).To(BeEmpty())
		})
	})

	Describe("GetDiscussionByID", func() {
		BeforeEach(func() {
			store.addMessage("m2", "d1", "u2", "second")
			store.addMessage("m3", "d1", "u1", "third")
		})

		ids := func(d *domain.Discussion) []string {
			out := []string{}
			for _, m := range d.Messages {
				out = append(out, m.ID)
			}
			return out
		}

		It("returns messages oldest first", func() {
			d, err := svc.GetDiscussionByID(ctx, "d1", service.MessageQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(d)).To(Equal([]string{"m1", "m2", "m3"}))
		})

		It("honours order, limit and offset", func() {
			d, err := svc.GetDiscussionByID(ctx, "d1", service.MessageQuery{Order: "desc", Limit: 2, Offset: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(d)).To(Equal([]string{"m2", "m1"}))
		})

		It("rejects an unknown order", func() {
			_, err := svc.GetDiscussionByID(ctx, "d1", service.MessageQuery{Order: "sideways"})
			Expect(errorutil.IsValidation(err)).To(BeTrue())
		})

		It("returns not found for a missing discussion", func() {
			_, err := svc.GetDiscussionByID(ctx, "missing-id", service.MessageQuery{})
			Expect(errorutil.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("UpdateMessage", func() {
		It("forbids non-authors", func() {
			_, err := svc.UpdateMessage(ctx, "m1", "edited", "u2", domain.RoleStudent)
			Expect(errorutil.IsForbidden(err)).To(BeTrue())

			stored, _ := msgs.GetByID(ctx, "m1")
			Expect(stored.Content).To(Equal("first"))
			Expect(publisher.published()).To(BeEmpty())
		})

		It("forbids privileged non-authors too", func() {
			_, err := svc.UpdateMessage(ctx, "m1", "edited", "t1", domain.RoleTeacher)
			Expect(errorutil.IsForbidden(err)).To(BeTrue())
		})

		It("lets the author edit and persists the new content", func() {
			before, _ := msgs.GetByID(ctx, "m1")

			updated, err := svc.UpdateMessage(ctx, "m1", "edited", "u1", domain.RoleStudent)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Content).To(Equal("edited"))
			Expect(updated.AuthorID).To(Equal("u1"))
			Expect(updated.UpdatedAt.After(before.UpdatedAt)).To(BeTrue())

			stored, _ := msgs.GetByID(ctx, "m1")
			Expect(stored.Content).To(Equal("edited"))

			published := publisher.published()
			Expect(published).To(HaveLen(1))
			Expect(published[0].Type).To(Equal(events.EventMessageUpdated))
		})

		It("returns not found when the message vanished before the write", func() {
			msgs.updateFn = func(context.Context, *domain.Message) error { return pgx.ErrNoRows }
			build()

			_, err := svc.UpdateMessage(ctx, "m1", "edited", "u1", domain.RoleStudent)
			Expect(errorutil.IsNotFound(err)).To(BeTrue())
			Expect(publisher.published()).To(BeEmpty())
		})

		It("returns not found for a missing message", func() {
			_, err := svc.UpdateMessage(ctx, "nope", "edited", "u1", domain.RoleStudent)
			Expect(errorutil.IsNotFound(err)).To(BeTrue())
		})

		It("rejects blank content", func() {
			_, err := svc.UpdateMessage(ctx, "m1", "", "u1", domain.RoleStudent)
			Expect(errorutil.IsValidation(err)).To(BeTrue())
		})
	})

	Describe("DeleteMessage", func() {
		It("lets a privileged role delete another user's message", func() {
			Expect(svc.DeleteMessage(ctx, "m1", "t1", domain.RoleTeacher)).To(Succeed())

			_, err := msgs.GetByID(ctx, "m1")
			Expect(err).To(HaveOccurred())

			published := publisher.published()
			Expect(published).To(HaveLen(1))
			Expect(published[0].Type).To(Equal(events.EventMessageDeleted))
			Expect(published[0].Payload).To(Equal(events.MessageDeletedPayload{ID: "m1", DiscussionID: "d1"}))
		})

		It("forbids non-privileged non-authors", func() {
			err := svc.DeleteMessage(ctx, "m1", "u2", domain.RoleStudent)
			Expect(errorutil.IsForbidden(err)).To(BeTrue())

			_, getErr := msgs.GetByID(ctx, "m1")
			Expect(getErr).NotTo(HaveOccurred())
		})

		It("reports not found on a second delete", func() {
			Expect(svc.DeleteMessage(ctx, "m1", "u1", domain.RoleStudent)).To(Succeed())
			err := svc.DeleteMessage(ctx, "m1", "u1", domain.RoleStudent)
			Expect(errorutil.IsNotFound(err)).To(BeTrue())
			Expect(publisher.published()).To(HaveLen(1))
		})
	})

	Describe("SearchDiscussions", func() {
		BeforeEach(func() {
			store.addDiscussion("d2", "Intro to AI", "neural nets", "u1", "c1")
			store.addDiscussion("d3", "Lunch", "where do we eat?", "u2", "c1")
			store.addDiscussion("d4", "Ethics", "fair ai systems", "u2", "c1")
		})

		It("matches title or content case-insensitively, newest first", func() {
			found, err := svc.SearchDiscussions(ctx, "AI", 0)
			Expect(err).NotTo(HaveOccurred())

			ids := []string{}
			for _, d := range found {
				ids = append(ids, d.ID)
			}
			Expect(ids).To(Equal([]string{"d4", "d2"}))
		})

		It("returns an empty slice when nothing matches", func() {
			found, err := svc.SearchDiscussions(ctx, "quantum", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeEmpty())
		})

		It("rejects a blank query", func() {
			_, err := svc.SearchDiscussions(ctx, "  ", 10)
			Expect(errorutil.IsValidation(err)).To(BeTrue())
		})
	})

	Describe("ListCommunityDiscussions", func() {
		It("returns the community's discussions", func() {
			list, err := svc.ListCommunityDiscussions(ctx, "c1")
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(1))
		})

		It("returns not found for an unknown community", func() {
			_, err := svc.ListCommunityDiscussions(ctx, "nope")
			Expect(errorutil.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("DeleteDiscussion", func() {
		It("removes the discussion and its messages in one transaction", func() {
			store.addMessage("m2", "d1", "u2", "second")

			Expect(svc.DeleteDiscussion(ctx, "d1", "u1", domain.RoleStudent)).To(Succeed())
			Expect(txRunner.callCount).To(Equal(1))
			Expect(store.discussions).NotTo(HaveKey("d1"))
			Expect(store.messages).To(BeEmpty())

			rooms := []string{}
			for _, e := range publisher.published() {
				Expect(e.Type).To(Equal(events.EventDiscussionDeleted))
				rooms = append(rooms, e.Room)
			}
			Expect(rooms).To(ConsistOf("discussion:d1", "community:c1"))
		})

		It("forbids other students", func() {
			err := svc.DeleteDiscussion(ctx, "d1", "u2", domain.RoleStudent)
			Expect(errorutil.IsForbidden(err)).To(BeTrue())
			Expect(txRunner.callCount).To(BeZero())
		})

		It("does not publish when the transaction fails", func() {
			txRunner.withTxFn = func(context.Context, func(repository.Stores) error) error {
				return errors.New("serialization failure")
			}

			err := svc.DeleteDiscussion(ctx, "d1", "t1", domain.RoleTeacher)
			Expect(errorutil.CodeOf(err)).To(Equal(errorutil.CodeStore))
			Expect(publisher.published()).To(BeEmpty())
		})
	})
})
