package perms

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SQLRuleStore implements RuleStore over PostgreSQL. Renumbering runs
// inside a transaction so the per-realm sequence stays gap-free even if a
// statement fails partway through.
//
// The permission_rules table carries a deferred UNIQUE (realm, sequence)
// constraint, so the intermediate states inside a renumbering transaction
// are allowed and the invariant is re-checked at commit.
type SQLRuleStore struct {
	db *sql.DB
}

// NewSQLRuleStore creates a SQLRuleStore over the given connection.
func NewSQLRuleStore(db *sql.DB) *SQLRuleStore {
	return &SQLRuleStore{db: db}
}

// Ensure SQLRuleStore implements RuleStore
var _ RuleStore = (*SQLRuleStore)(nil)

const ruleColumns = `id, gid, sequence, realm, component, instance, level, bond, created_at, updated_at`

func scanRule(row interface {
	Scan(dest ...interface{}) error
}) (*Rule, error) {
	var rule Rule
	err := row.Scan(&rule.ID, &rule.GID, &rule.Sequence, &rule.Realm,
		&rule.Component, &rule.Instance, &rule.Level, &rule.Bond,
		&rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListRules returns the rules of a realm ordered by ascending sequence.
func (s *SQLRuleStore) ListRules(ctx context.Context, realm int) ([]Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ruleColumns+`
		FROM permission_rules
		WHERE realm = $1
		ORDER BY sequence ASC
	`, realm)
	if err != nil {
		return nil, fmt.Errorf("failed to list permission rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan permission rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read permission rules: %w", err)
	}
	return rules, nil
}

// GetRule retrieves a single rule by ID.
func (s *SQLRuleStore) GetRule(ctx context.Context, id string) (*Rule, error) {
	rule, err := scanRule(s.db.QueryRowContext(ctx, `
		SELECT `+ruleColumns+`
		FROM permission_rules
		WHERE id = $1
	`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get permission rule: %w", err)
	}
	return rule, nil
}

// InsertRule stores a new rule at rule.Sequence, shifting rules at or
// after that position down by one inside a single transaction.
func (s *SQLRuleStore) InsertRule(ctx context.Context, rule *Rule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE permission_rules
			SET sequence = sequence + 1, updated_at = $3
			WHERE realm = $1 AND sequence >= $2
		`, rule.Realm, rule.Sequence, now)
		if err != nil {
			return fmt.Errorf("failed to shift sequences: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO permission_rules (id, gid, sequence, realm, component, instance, level, bond, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, rule.ID, rule.GID, rule.Sequence, rule.Realm, rule.Component,
			rule.Instance, rule.Level, rule.Bond, rule.CreatedAt, rule.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert permission rule: %w", err)
		}
		return nil
	})
}

// UpdateRule replaces the non-ordering fields of an existing rule.
func (s *SQLRuleStore) UpdateRule(ctx context.Context, rule *Rule) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE permission_rules
		SET gid = $2, component = $3, instance = $4, level = $5, bond = $6, updated_at = $7
		WHERE id = $1
	`, rule.ID, rule.GID, rule.Component, rule.Instance, rule.Level, rule.Bond, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update permission rule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update permission rule: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRule removes a rule and closes the sequence gap it leaves.
func (s *SQLRuleStore) DeleteRule(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var realm, sequence int
		err := tx.QueryRowContext(ctx, `
			SELECT realm, sequence FROM permission_rules WHERE id = $1
		`, id).Scan(&realm, &sequence)
		if err != nil {
			if err == sql.ErrNoRows {
				return ErrNotFound
			}
			return fmt.Errorf("failed to find permission rule: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM permission_rules WHERE id = $1
		`, id); err != nil {
			return fmt.Errorf("failed to delete permission rule: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE permission_rules
			SET sequence = sequence - 1, updated_at = $3
			WHERE realm = $1 AND sequence > $2
		`, realm, sequence, time.Now()); err != nil {
			return fmt.Errorf("failed to close sequence gap: %w", err)
		}
		return nil
	})
}

// MoveRule reassigns a rule to newSequence within its realm, shifting the
// rules in between by one position.
func (s *SQLRuleStore) MoveRule(ctx context.Context, id string, newSequence int) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var realm, oldSequence int
		err := tx.QueryRowContext(ctx, `
			SELECT realm, sequence FROM permission_rules WHERE id = $1
		`, id).Scan(&realm, &oldSequence)
		if err != nil {
			if err == sql.ErrNoRows {
				return ErrNotFound
			}
			return fmt.Errorf("failed to find permission rule: %w", err)
		}
		if newSequence == oldSequence {
			return nil
		}

		now := time.Now()
		if newSequence < oldSequence {
			// Moving up: push the block [new, old) down by one.
			_, err = tx.ExecContext(ctx, `
				UPDATE permission_rules
				SET sequence = sequence + 1, updated_at = $4
				WHERE realm = $1 AND sequence >= $2 AND sequence < $3
			`, realm, newSequence, oldSequence, now)
		} else {
			// Moving down: pull the block (old, new] up by one.
			_, err = tx.ExecContext(ctx, `
				UPDATE permission_rules
				SET sequence = sequence - 1, updated_at = $4
				WHERE realm = $1 AND sequence > $2 AND sequence <= $3
			`, realm, oldSequence, newSequence, now)
		}
		if err != nil {
			return fmt.Errorf("failed to shift sequences: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE permission_rules
			SET sequence = $2, updated_at = $3
			WHERE id = $1
		`, id, newSequence, now); err != nil {
			return fmt.Errorf("failed to move permission rule: %w", err)
		}
		return nil
	})
}

// CountRules returns the number of rules in a realm.
func (s *SQLRuleStore) CountRules(ctx context.Context, realm int) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM permission_rules WHERE realm = $1
	`, realm).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count permission rules: %w", err)
	}
	return count, nil
}

func (s *SQLRuleStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
