package perms

import (
	"errors"
	"fmt"
	"time"
)

// Common errors
var (
	ErrNotFound     = errors.New("rule not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Group sentinels used in stored rule rows. Kept for wire/storage
// compatibility; code should use GroupRef instead of comparing gids
// against these directly.
const (
	// AllUsersGID marks a rule that applies to every actor,
	// registered or not.
	AllUsersGID = -1
	// UnregisteredGID marks a rule that applies only to actors with no
	// registered group membership (anonymous / unresolvable actors).
	UnregisteredGID = 0
)

// DefaultRealm is the only realm evaluated by the standard decision flow.
// Other realms are stored and managed but never consulted by HasPermission.
const DefaultRealm = 0

// Rule is one row of the ordered permission table. Within a realm, rules
// are evaluated ascending by Sequence and the first component+instance
// match wins.
type Rule struct {
	ID        string    `json:"id"`
	GID       int       `json:"gid"`
	Sequence  int       `json:"sequence"`
	Realm     int       `json:"realm"`
	Component string    `json:"component"`
	Instance  string    `json:"instance"`
	Level     Level     `json:"level"`
	Bond      int       `json:"bond"` // reserved linkage, not evaluated
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Group returns the tagged view of the rule's stored gid.
func (r *Rule) Group() GroupRef {
	return GroupFromGID(r.GID)
}

// Validate checks the fields that mutations must reject up front.
// Sequence bounds are checked by the engine against the live rule set.
func (r *Rule) Validate() error {
	if r.Component == "" {
		return fmt.Errorf("%w: component pattern is required", ErrInvalidInput)
	}
	if r.Instance == "" {
		return fmt.Errorf("%w: instance pattern is required", ErrInvalidInput)
	}
	if !r.Level.Valid() || r.Level == AccessInvalid {
		return fmt.Errorf("%w: unknown access level %d", ErrInvalidInput, r.Level)
	}
	if r.GID < AllUsersGID {
		return fmt.Errorf("%w: unknown group id %d", ErrInvalidInput, r.GID)
	}
	if r.Realm < 0 {
		return fmt.Errorf("%w: realm must be non-negative", ErrInvalidInput)
	}
	return nil
}

// GroupKind discriminates GroupRef variants.
type GroupKind int

const (
	// RealGroup is an ordinary stored group.
	RealGroup GroupKind = iota
	// Unregistered is the virtual group holding actors with no
	// registered membership.
	Unregistered
	// AllUsers is the virtual group every actor belongs to.
	AllUsers
)

// GroupRef is a tagged group reference. The legacy integer sentinels
// (0 = unregistered, -1 = all users) exist only at the storage boundary;
// everything above it passes GroupRefs around.
type GroupRef struct {
	Kind GroupKind
	GID  int // meaningful only when Kind == RealGroup
}

// GroupFromGID converts a stored gid into its tagged form.
func GroupFromGID(gid int) GroupRef {
	switch gid {
	case AllUsersGID:
		return GroupRef{Kind: AllUsers}
	case UnregisteredGID:
		return GroupRef{Kind: Unregistered}
	default:
		return GroupRef{Kind: RealGroup, GID: gid}
	}
}

// ToGID converts back to the stored sentinel encoding.
func (g GroupRef) ToGID() int {
	switch g.Kind {
	case AllUsers:
		return AllUsersGID
	case Unregistered:
		return UnregisteredGID
	default:
		return g.GID
	}
}

func (g GroupRef) String() string {
	switch g.Kind {
	case AllUsers:
		return "all-users"
	case Unregistered:
		return "unregistered"
	default:
		return fmt.Sprintf("group(%d)", g.GID)
	}
}
