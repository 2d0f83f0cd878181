// Package policy decides who may mutate discussion content.
package policy

import "github.com/spec-kit/campus-service/internal/domain"

// Operation is a mutation kind subject to authorization.
type Operation string

const (
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Decision is the outcome of an authorization check.
type Decision bool

const (
	Allow Decision = true
	Deny  Decision = false
)

// Policy holds the configured privileged role set. The zero value grants no privileges.
type Policy struct {
	privileged map[domain.Role]struct{}
}

// New builds a policy treating the given roles as moderators.
func New(privileged ...domain.Role) Policy {
	set := make(map[domain.Role]struct{}, len(privileged))
	for _, role := range privileged {
		set[role] = struct{}{}
	}
	return Policy{privileged: set}
}

// FromNames builds a policy from role names, rejecting unknown ones.
func FromNames(names []string) (Policy, error) {
	roles := make([]domain.Role, 0, len(names))
	for _, name := range names {
		role, err := domain.ParseRole(name)
		if err != nil {
			return Policy{}, err
		}
		roles = append(roles, role)
	}
	return New(roles...), nil
}

// IsPrivileged reports whether role may moderate content authored by others.
func (p Policy) IsPrivileged(role domain.Role) bool {
	_, ok := p.privileged[role]
	return ok
}

// CanMutate decides whether actorID with actorRole may perform op on msg.
// Updates are author-only; deletes also allow privileged roles.
func (p Policy) CanMutate(msg domain.Message, actorID string, actorRole domain.Role, op Operation) Decision {
	if actorID == "" {
		return Deny
	}
	switch op {
	case OpUpdate:
		return Decision(msg.AuthorID == actorID)
	case OpDelete:
		return p.CanModerate(msg.AuthorID, actorID, actorRole)
	default:
		return Deny
	}
}

// CanModerate allows the author of a record or any privileged role.
func (p Policy) CanModerate(authorID, actorID string, actorRole domain.Role) Decision {
	if actorID == "" {
		return Deny
	}
	return Decision(authorID == actorID || p.IsPrivileged(actorRole))
}
