package perms

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLGroupResolver resolves an actor's group memberships from the
// user_groups table. An actor with no rows resolves to an empty set; the
// engine then degrades it to the unregistered virtual group.
type SQLGroupResolver struct {
	db *sql.DB
}

// NewSQLGroupResolver creates a SQLGroupResolver over the given connection.
func NewSQLGroupResolver(db *sql.DB) *SQLGroupResolver {
	return &SQLGroupResolver{db: db}
}

// Ensure SQLGroupResolver implements GroupResolver
var _ GroupResolver = (*SQLGroupResolver)(nil)

// GroupsOf returns the real group ids the actor belongs to.
func (r *SQLGroupResolver) GroupsOf(ctx context.Context, actorID string) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT gid FROM user_groups
		WHERE user_id = $1
		ORDER BY gid
	`, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve groups: %w", err)
	}
	defer rows.Close()

	var gids []int
	for rows.Next() {
		var gid int
		if err := rows.Scan(&gid); err != nil {
			return nil, fmt.Errorf("failed to scan group id: %w", err)
		}
		gids = append(gids, gid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read groups: %w", err)
	}
	return gids, nil
}

// StaticGroupResolver serves a fixed actor-to-groups table. Used by tests
// and embedded callers that manage membership elsewhere.
type StaticGroupResolver struct {
	Groups map[string][]int
}

// Ensure StaticGroupResolver implements GroupResolver
var _ GroupResolver = (*StaticGroupResolver)(nil)

func (r *StaticGroupResolver) GroupsOf(ctx context.Context, actorID string) ([]int, error) {
	return r.Groups[actorID], nil
}
