package perms

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRuleStore is a RuleStore keeping the rule table in process memory.
// It backs tests and embedded single-process deployments, and serves as
// the read mirror when the engine is seeded from an external source.
type MemoryRuleStore struct {
	mu    sync.RWMutex
	rules map[string]*Rule // by ID
}

// NewMemoryRuleStore creates an empty in-memory rule store.
func NewMemoryRuleStore() *MemoryRuleStore {
	return &MemoryRuleStore{rules: make(map[string]*Rule)}
}

// Ensure MemoryRuleStore implements RuleStore
var _ RuleStore = (*MemoryRuleStore)(nil)

// Seed replaces the store contents with the given rules, assigning IDs
// where missing and renumbering each realm into a contiguous sequence.
func (s *MemoryRuleStore) Seed(rules []Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rules = make(map[string]*Rule, len(rules))
	for i := range rules {
		rule := rules[i]
		if rule.ID == "" {
			rule.ID = uuid.New().String()
		}
		s.rules[rule.ID] = &rule
	}
	for _, realm := range s.realmsLocked() {
		s.renumberLocked(realm)
	}
}

// realmsLocked returns the distinct realms present. Caller holds the lock.
func (s *MemoryRuleStore) realmsLocked() []int {
	seen := map[int]bool{}
	var realms []int
	for _, rule := range s.rules {
		if !seen[rule.Realm] {
			seen[rule.Realm] = true
			realms = append(realms, rule.Realm)
		}
	}
	return realms
}

// realmRulesLocked returns a realm's rules sorted by sequence.
// Caller holds the lock.
func (s *MemoryRuleStore) realmRulesLocked(realm int) []*Rule {
	var rules []*Rule
	for _, rule := range s.rules {
		if rule.Realm == realm {
			rules = append(rules, rule)
		}
	}
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Sequence < rules[j].Sequence
	})
	return rules
}

// renumberLocked rewrites a realm's sequences to 1..n preserving order.
// Caller holds the lock.
func (s *MemoryRuleStore) renumberLocked(realm int) {
	for i, rule := range s.realmRulesLocked(realm) {
		rule.Sequence = i + 1
	}
}

// ListRules returns copies of a realm's rules in sequence order.
func (s *MemoryRuleStore) ListRules(ctx context.Context, realm int) ([]Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ptrs := s.realmRulesLocked(realm)
	rules := make([]Rule, len(ptrs))
	for i, p := range ptrs {
		rules[i] = *p
	}
	return rules, nil
}

// GetRule retrieves a copy of a rule by ID.
func (s *MemoryRuleStore) GetRule(ctx context.Context, id string) (*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, ok := s.rules[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *rule
	return &copied, nil
}

// InsertRule stores the rule at its sequence, shifting later rules down.
func (s *MemoryRuleStore) InsertRule(ctx context.Context, rule *Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	now := time.Now()
	stored := *rule
	stored.CreatedAt = now
	stored.UpdatedAt = now

	for _, existing := range s.realmRulesLocked(stored.Realm) {
		if existing.Sequence >= stored.Sequence {
			existing.Sequence++
		}
	}
	s.rules[stored.ID] = &stored
	s.renumberLocked(stored.Realm)

	rule.CreatedAt = now
	rule.UpdatedAt = now
	return nil
}

// UpdateRule replaces the non-ordering fields of an existing rule.
func (s *MemoryRuleStore) UpdateRule(ctx context.Context, rule *Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.rules[rule.ID]
	if !ok {
		return ErrNotFound
	}
	existing.GID = rule.GID
	existing.Component = rule.Component
	existing.Instance = rule.Instance
	existing.Level = rule.Level
	existing.Bond = rule.Bond
	existing.UpdatedAt = time.Now()
	rule.Sequence = existing.Sequence
	rule.Realm = existing.Realm
	return nil
}

// DeleteRule removes a rule and closes the sequence gap.
func (s *MemoryRuleStore) DeleteRule(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, ok := s.rules[id]
	if !ok {
		return ErrNotFound
	}
	realm := rule.Realm
	delete(s.rules, id)
	s.renumberLocked(realm)
	return nil
}

// MoveRule reassigns a rule's sequence within its realm.
func (s *MemoryRuleStore) MoveRule(ctx context.Context, id string, newSequence int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, ok := s.rules[id]
	if !ok {
		return ErrNotFound
	}

	ordered := s.realmRulesLocked(rule.Realm)
	// Remove and reinsert at the target position, then renumber.
	idx := -1
	for i, r := range ordered {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrNotFound
	}
	ordered = append(ordered[:idx], ordered[idx+1:]...)
	target := newSequence - 1
	if target < 0 {
		target = 0
	}
	if target > len(ordered) {
		target = len(ordered)
	}
	ordered = append(ordered[:target], append([]*Rule{rule}, ordered[target:]...)...)
	for i, r := range ordered {
		r.Sequence = i + 1
	}
	rule.UpdatedAt = time.Now()
	return nil
}

// CountRules returns the number of rules in a realm.
func (s *MemoryRuleStore) CountRules(ctx context.Context, realm int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, rule := range s.rules {
		if rule.Realm == realm {
			count++
		}
	}
	return count, nil
}
