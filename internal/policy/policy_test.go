package policy_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spec-kit/campus-service/internal/domain"
	"github.com/spec-kit/campus-service/internal/policy"
)

var _ = Describe("Policy", func() {
	var (
		p   policy.Policy
		msg domain.Message
	)

	BeforeEach(func() {
		p = policy.New(domain.RoleTeacher, domain.RoleAdmin)
		msg = domain.Message{ID: "m1", AuthorID: "u1"}
	})

	Describe("update", func() {
		It("allows the author", func() {
			Expect(p.CanMutate(msg, "u1", domain.RoleStudent, policy.OpUpdate)).To(Equal(policy.Allow))
		})

		It("denies a non-author", func() {
			Expect(p.CanMutate(msg, "u2", domain.RoleStudent, policy.OpUpdate)).To(Equal(policy.Deny))
		})

		It("denies privileged roles that did not author the message", func() {
			Expect(p.CanMutate(msg, "u2", domain.RoleAdmin, policy.OpUpdate)).To(Equal(policy.Deny))
		})
	})

	Describe("delete", func() {
		DescribeTable("decisions",
			func(actorID string, role domain.Role, want policy.Decision) {
				Expect(p.CanMutate(msg, actorID, role, policy.OpDelete)).To(Equal(want))
			},
			Entry("author student", "u1", domain.RoleStudent, policy.Allow),
			Entry("other teacher", "u2", domain.RoleTeacher, policy.Allow),
			Entry("other admin", "u2", domain.RoleAdmin, policy.Allow),
			Entry("other student", "u2", domain.RoleStudent, policy.Deny),
			Entry("anonymous", "", domain.RoleAdmin, policy.Deny),
		)
	})

	It("takes the privileged set from configuration", func() {
		adminsOnly, err := policy.FromNames([]string{"admin"})
		Expect(err).NotTo(HaveOccurred())
		Expect(adminsOnly.CanMutate(msg, "u2", domain.RoleTeacher, policy.OpDelete)).To(Equal(policy.Deny))
		Expect(adminsOnly.CanMutate(msg, "u2", domain.RoleAdmin, policy.OpDelete)).To(Equal(policy.Allow))
	})

	It("rejects unknown role names", func() {
		_, err := policy.FromNames([]string{"janitor"})
		Expect(err).To(HaveOccurred())
	})

	It("denies unknown operations", func() {
		Expect(p.CanMutate(msg, "u1", domain.RoleAdmin, policy.Operation("archive"))).To(Equal(policy.Deny))
	})

	It("grants nothing from the zero value", func() {
		var zero policy.Policy
		Expect(zero.IsPrivileged(domain.RoleAdmin)).To(BeFalse())
		Expect(zero.CanModerate("u1", "u1", domain.RoleStudent)).To(Equal(policy.Allow))
	})
})
