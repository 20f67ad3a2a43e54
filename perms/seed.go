package perms

import "context"

// Well-known group ids used by the default rule set. Deployments define
// their own groups; these two only matter for the seed data.
const (
	// UsersGID is the default registered-users group.
	UsersGID = 1
	// AdminsGID is the default administrators group.
	AdminsGID = 2
)

// DefaultRules is the seed rule set installed into an empty realm:
// administrators get full access as top priority, everyone may switch to
// the non-HTML utility themes, registered users get comment access, and
// unregistered users fall through to read-only as the lowest priority.
func DefaultRules() []Rule {
	return []Rule{
		{
			GID:       AdminsGID,
			Sequence:  1,
			Realm:     DefaultRealm,
			Component: ".*",
			Instance:  ".*",
			Level:     AccessAdmin,
		},
		{
			GID:       AllUsersGID,
			Sequence:  2,
			Realm:     DefaultRealm,
			Component: "ThemeModule::ThemeChange",
			Instance:  ":(RssTheme|PrinterTheme|AtomTheme):",
			Level:     AccessComment,
		},
		{
			GID:       UsersGID,
			Sequence:  3,
			Realm:     DefaultRealm,
			Component: ".*",
			Instance:  ".*",
			Level:     AccessComment,
		},
		{
			GID:       UnregisteredGID,
			Sequence:  4,
			Realm:     DefaultRealm,
			Component: ".*",
			Instance:  ".*",
			Level:     AccessRead,
		},
	}
}

// SeedDefaults inserts the default rule set through the store. Intended
// for fresh installs; callers should check the realm is empty first.
func SeedDefaults(ctx context.Context, store RuleStore) error {
	for _, rule := range DefaultRules() {
		rule := rule
		if err := store.InsertRule(ctx, &rule); err != nil {
			return err
		}
	}
	return nil
}
