package perms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRuleStore_SeedRenumbers(t *testing.T) {
	store := NewMemoryRuleStore()
	// gaps and a duplicate sequence, as legacy dumps sometimes carry
	store.Seed([]Rule{
		{GID: 1, Sequence: 2, Component: "a", Instance: ".*", Level: AccessRead},
		{GID: 2, Sequence: 2, Component: "b", Instance: ".*", Level: AccessRead},
		{GID: 3, Sequence: 7, Component: "c", Instance: ".*", Level: AccessRead},
	})

	rules, err := store.ListRules(context.Background(), DefaultRealm)
	require.NoError(t, err)
	require.Len(t, rules, 3)
	for i, r := range rules {
		assert.Equal(t, i+1, r.Sequence)
	}
	assert.Equal(t, "c", rules[2].Component, "relative order must survive renumbering")
}

func TestMemoryRuleStore_RealmIsolation(t *testing.T) {
	store := NewMemoryRuleStore()
	ctx := context.Background()

	r0 := Rule{GID: 1, Sequence: 1, Realm: 0, Component: "a", Instance: ".*", Level: AccessRead}
	r1 := Rule{GID: 1, Sequence: 1, Realm: 1, Component: "b", Instance: ".*", Level: AccessRead}
	require.NoError(t, store.InsertRule(ctx, &r0))
	require.NoError(t, store.InsertRule(ctx, &r1))

	// inserting ahead of realm 0 must not renumber realm 1
	r2 := Rule{GID: 2, Sequence: 1, Realm: 0, Component: "c", Instance: ".*", Level: AccessRead}
	require.NoError(t, store.InsertRule(ctx, &r2))

	realm0, err := store.ListRules(ctx, 0)
	require.NoError(t, err)
	require.Len(t, realm0, 2)
	assert.Equal(t, "c", realm0[0].Component)

	realm1, err := store.ListRules(ctx, 1)
	require.NoError(t, err)
	require.Len(t, realm1, 1)
	assert.Equal(t, 1, realm1[0].Sequence)

	count, err := store.CountRules(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMemoryRuleStore_ListReturnsCopies(t *testing.T) {
	store := NewMemoryRuleStore()
	store.Seed([]Rule{{GID: 1, Sequence: 1, Component: "a", Instance: ".*", Level: AccessRead}})
	ctx := context.Background()

	rules, err := store.ListRules(ctx, DefaultRealm)
	require.NoError(t, err)
	rules[0].Level = AccessAdmin

	again, err := store.ListRules(ctx, DefaultRealm)
	require.NoError(t, err)
	assert.Equal(t, AccessRead, again[0].Level, "callers must not be able to mutate stored rules")
}
