package perms

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Engine resolves permission decisions against the sequence-ordered rule
// table and manages the table through the administrative operations.
//
// Decisions are read-only and run concurrently; the only shared mutable
// state is the projection cache. Administrative mutations serialize on an
// internal lock so the sequence-contiguity invariant cannot be violated by
// interleaved renumbering.
type Engine struct {
	store    RuleStore
	resolver GroupResolver
	matcher  *Matcher
	cache    *projectionCache
	logger   zerolog.Logger

	// notifier is optional cross-process invalidation fanout.
	notifier Invalidator

	// adminMu serializes rule mutations.
	adminMu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithInvalidator attaches a cross-process invalidation fanout. The engine
// still invalidates its local cache synchronously on every mutation.
func WithInvalidator(inv Invalidator) Option {
	return func(e *Engine) { e.notifier = inv }
}

// WithLogger sets the engine logger. Defaults to a no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.matcher = NewMatcher(logger)
	}
}

// NewEngine creates a permission engine over the given rule store and
// group resolver.
func NewEngine(store RuleStore, resolver GroupResolver, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		resolver: resolver,
		logger:   zerolog.Nop(),
		cache:    newProjectionCache(),
	}
	e.matcher = NewMatcher(e.logger)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// groupsForActor resolves an actor to its effective group set, including
// virtual groups. An empty actor id is anonymous. A resolver failure
// degrades to the anonymous set rather than erroring: the most
// restrictive applicable projection, never an open door.
func (e *Engine) groupsForActor(ctx context.Context, actorID string) []int {
	if actorID == "" {
		return []int{UnregisteredGID, AllUsersGID}
	}

	gids, err := e.resolver.GroupsOf(ctx, actorID)
	if err != nil {
		e.logger.Warn().Err(err).Str("actor", actorID).
			Msg("group resolution failed, treating actor as unregistered")
		return []int{UnregisteredGID, AllUsersGID}
	}
	if len(gids) == 0 {
		// Registered actor with no memberships still only reaches the
		// unregistered and all-users rule paths.
		return []int{UnregisteredGID, AllUsersGID}
	}
	return append(gids, AllUsersGID)
}

// ResolveGroupProjection returns the default-realm rules relevant to the
// given group set: rules whose gid is in the set or is the all-users
// sentinel, ordered by ascending sequence. Results are cached per distinct
// group set until the next rule mutation.
func (e *Engine) ResolveGroupProjection(ctx context.Context, groupIDs []int) ([]Rule, error) {
	key := projectionKey(groupIDs)
	if rules, ok := e.cache.get(key); ok {
		incCacheHit()
		return rules, nil
	}
	incCacheMiss()

	all, err := e.store.ListRules(ctx, DefaultRealm)
	if err != nil {
		return nil, fmt.Errorf("failed to load permission rules: %w", err)
	}

	wanted := make(map[int]bool, len(groupIDs)+1)
	wanted[AllUsersGID] = true
	for _, gid := range groupIDs {
		wanted[gid] = true
	}

	// ListRules returns sequence order, so filtering preserves it.
	projection := make([]Rule, 0, len(all))
	for _, rule := range all {
		if wanted[rule.GID] {
			projection = append(projection, rule)
		}
	}

	e.cache.put(key, projection)
	return projection, nil
}

// SecurityLevel scans the projection in stored order and returns the level
// of the first rule whose component and instance patterns both match.
// First-match-wins is intentional: administrators order specific exception
// rules ahead of broad catch-alls. No match yields AccessInvalid, which is
// below every valid level and therefore never satisfies a check.
func (e *Engine) SecurityLevel(projection []Rule, component, instance string) Level {
	for i := range projection {
		rule := &projection[i]
		if e.matcher.Matches(rule.Component, component) && e.matcher.Matches(rule.Instance, instance) {
			return rule.Level
		}
	}
	return AccessInvalid
}

// HasPermission reports whether the actor may act on component/instance at
// the required level. An empty actorID is an anonymous actor, which is
// evaluated against the unregistered and all-users rule paths only.
func (e *Engine) HasPermission(ctx context.Context, actorID, component, instance string, required Level) (bool, error) {
	projection, err := e.ResolveGroupProjection(ctx, e.groupsForActor(ctx, actorID))
	if err != nil {
		return false, err
	}

	level := e.SecurityLevel(projection, component, instance)
	allowed := level >= required && level != AccessInvalid
	incDecision(allowed)
	return allowed, nil
}

// SecurityLevelFor resolves the actor's effective level for a resource in
// one call. Used by the decision endpoint, which reports the level and its
// label alongside the verdict.
func (e *Engine) SecurityLevelFor(ctx context.Context, actorID, component, instance string) (Level, error) {
	projection, err := e.ResolveGroupProjection(ctx, e.groupsForActor(ctx, actorID))
	if err != nil {
		return AccessInvalid, err
	}
	return e.SecurityLevel(projection, component, instance), nil
}

// Invalidate drops all cached projections. Called internally after every
// mutation and externally when a remote invalidation signal arrives or an
// actor's group membership changes.
func (e *Engine) Invalidate() {
	e.cache.invalidate()
	incInvalidation()
	e.logger.Debug().Msg("projection cache invalidated")
}

func (e *Engine) broadcastInvalidation(ctx context.Context) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Broadcast(ctx); err != nil {
		e.logger.Warn().Err(err).Msg("failed to broadcast cache invalidation")
	}
}

// ============================================================================
// Administrative operations
// ============================================================================

// RuleInput carries the caller-supplied fields of a rule mutation.
type RuleInput struct {
	GID       int    `json:"gid"`
	Sequence  int    `json:"sequence"`
	Realm     int    `json:"realm"`
	Component string `json:"component"`
	Instance  string `json:"instance"`
	Level     Level  `json:"level"`
	Bond      int    `json:"bond"`
}

// AddRule validates the input, inserts the rule at the requested sequence
// (clamped to the end of the realm), and invalidates cached projections.
func (e *Engine) AddRule(ctx context.Context, input RuleInput) (*Rule, error) {
	e.adminMu.Lock()
	defer e.adminMu.Unlock()

	rule := &Rule{
		ID:        uuid.New().String(),
		GID:       input.GID,
		Sequence:  input.Sequence,
		Realm:     input.Realm,
		Component: input.Component,
		Instance:  input.Instance,
		Level:     input.Level,
		Bond:      input.Bond,
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	count, err := e.store.CountRules(ctx, rule.Realm)
	if err != nil {
		return nil, fmt.Errorf("failed to count rules: %w", err)
	}
	if rule.Sequence < 1 || rule.Sequence > count {
		rule.Sequence = count + 1
	}

	if err := e.store.InsertRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to insert rule: %w", err)
	}

	e.Invalidate()
	e.broadcastInvalidation(ctx)
	e.logger.Info().Str("rule_id", rule.ID).Int("gid", rule.GID).
		Int("sequence", rule.Sequence).Str("component", rule.Component).
		Msg("permission rule added")
	return rule, nil
}

// UpdateRule replaces the non-ordering fields of an existing rule and
// invalidates cached projections. Use MoveRule to change the sequence.
func (e *Engine) UpdateRule(ctx context.Context, id string, input RuleInput) (*Rule, error) {
	e.adminMu.Lock()
	defer e.adminMu.Unlock()

	rule, err := e.store.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}

	rule.GID = input.GID
	rule.Component = input.Component
	rule.Instance = input.Instance
	rule.Level = input.Level
	rule.Bond = input.Bond
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	if err := e.store.UpdateRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to update rule: %w", err)
	}

	e.Invalidate()
	e.broadcastInvalidation(ctx)
	return rule, nil
}

// DeleteRule removes a rule, closing the sequence gap, and invalidates
// cached projections.
func (e *Engine) DeleteRule(ctx context.Context, id string) error {
	e.adminMu.Lock()
	defer e.adminMu.Unlock()

	if err := e.store.DeleteRule(ctx, id); err != nil {
		return err
	}

	e.Invalidate()
	e.broadcastInvalidation(ctx)
	e.logger.Info().Str("rule_id", id).Msg("permission rule deleted")
	return nil
}

// MoveRule reorders a rule to the target sequence within its realm,
// shifting the rules in between, and invalidates cached projections.
// Targets outside [1, rule count] are rejected rather than clamped:
// reordering is explicit, unlike AddRule's append default.
func (e *Engine) MoveRule(ctx context.Context, id string, newSequence int) error {
	e.adminMu.Lock()
	defer e.adminMu.Unlock()

	rule, err := e.store.GetRule(ctx, id)
	if err != nil {
		return err
	}

	count, err := e.store.CountRules(ctx, rule.Realm)
	if err != nil {
		return fmt.Errorf("failed to count rules: %w", err)
	}
	if newSequence < 1 || newSequence > count {
		return fmt.Errorf("%w: sequence %d out of range 1..%d", ErrInvalidInput, newSequence, count)
	}
	if newSequence == rule.Sequence {
		return nil
	}

	if err := e.store.MoveRule(ctx, id, newSequence); err != nil {
		return fmt.Errorf("failed to move rule: %w", err)
	}

	e.Invalidate()
	e.broadcastInvalidation(ctx)
	return nil
}

// ListRules returns the rules of a realm in evaluation order.
func (e *Engine) ListRules(ctx context.Context, realm int) ([]Rule, error) {
	return e.store.ListRules(ctx, realm)
}

// GetRule retrieves a single rule by ID.
func (e *Engine) GetRule(ctx context.Context, id string) (*Rule, error) {
	return e.store.GetRule(ctx, id)
}
