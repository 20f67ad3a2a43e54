package perms

import "context"

// RuleStore is the persistence collaborator for the permission rule table.
// This is purely a data access layer - no authorization logic.
//
// Implementations must keep the per-realm sequence contiguous and gap-free
// across InsertRule, DeleteRule, and MoveRule, performing the renumbering
// transactionally (or equivalently atomically for in-memory stores).
type RuleStore interface {
	// ListRules returns the rules of a realm ordered by ascending sequence.
	ListRules(ctx context.Context, realm int) ([]Rule, error)

	// GetRule retrieves a single rule by ID.
	GetRule(ctx context.Context, id string) (*Rule, error)

	// InsertRule stores a new rule at rule.Sequence, shifting rules at or
	// after that position down by one to make room.
	InsertRule(ctx context.Context, rule *Rule) error

	// UpdateRule replaces the non-ordering fields (gid, component,
	// instance, level, bond) of an existing rule. Sequence and realm are
	// not changed by UpdateRule; use MoveRule for reordering.
	UpdateRule(ctx context.Context, rule *Rule) error

	// DeleteRule removes a rule and closes the sequence gap it leaves.
	DeleteRule(ctx context.Context, id string) error

	// MoveRule reassigns a rule to newSequence within its realm, shifting
	// the rules in between by one position.
	MoveRule(ctx context.Context, id string, newSequence int) error

	// CountRules returns the number of rules in a realm.
	CountRules(ctx context.Context, realm int) (int, error)
}

// GroupResolver is the membership collaborator: it maps an actor to the
// set of real group ids the actor belongs to. Virtual group membership
// (unregistered / all users) is the engine's responsibility, not the
// resolver's. An unknown actor resolves to an empty set, not an error.
type GroupResolver interface {
	GroupsOf(ctx context.Context, actorID string) ([]int, error)
}

// GroupResolverFunc adapts a plain function to the GroupResolver interface.
type GroupResolverFunc func(ctx context.Context, actorID string) ([]int, error)

func (f GroupResolverFunc) GroupsOf(ctx context.Context, actorID string) ([]int, error) {
	return f(ctx, actorID)
}

// Invalidator fans a cache-invalidation signal out to other processes
// sharing the same rule store. The engine always invalidates its local
// cache first; the invalidator is best-effort remote notification.
type Invalidator interface {
	Broadcast(ctx context.Context) error
}
