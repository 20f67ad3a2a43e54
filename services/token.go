package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidToken = errors.New("invalid or revoked API token")

// APIToken is a long-lived credential for non-interactive callers of the
// management API (CI jobs, sync scripts). Only the bcrypt hash is stored;
// the plaintext is shown once at creation.
type APIToken struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ActorID   string    `json:"actor_id"`
	CreatedAt time.Time `json:"created_at"`
	LastUsed  time.Time `json:"last_used,omitempty"`
}

// TokenService issues and validates API tokens.
type TokenService struct {
	PG *sql.DB
}

func NewTokenService(pg *sql.DB) *TokenService {
	return &TokenService{PG: pg}
}

// CreateToken mints a token for an actor and returns the plaintext secret
// alongside the stored record. The secret cannot be recovered later.
func (s *TokenService) CreateToken(ctx context.Context, actorID, name string) (*APIToken, string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}
	secret := "pgt_" + hex.EncodeToString(raw)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash token: %w", err)
	}

	token := &APIToken{
		ID:        uuid.New().String(),
		Name:      name,
		ActorID:   actorID,
		CreatedAt: time.Now(),
	}
	_, err = s.PG.ExecContext(ctx, `
		INSERT INTO api_tokens (id, name, actor_id, token_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, token.ID, token.Name, token.ActorID, string(hash), token.CreatedAt)
	if err != nil {
		return nil, "", fmt.Errorf("failed to store token: %w", err)
	}

	return token, secret, nil
}

// ValidateToken checks a presented secret against the stored hashes and
// returns the owning token record. Bounded: bcrypt comparison per stored
// row, acceptable at the expected handful of tokens.
func (s *TokenService) ValidateToken(ctx context.Context, secret string) (*APIToken, error) {
	rows, err := s.PG.QueryContext(ctx, `
		SELECT id, name, actor_id, token_hash, created_at
		FROM api_tokens
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokens: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var token APIToken
		var hash string
		if err := rows.Scan(&token.ID, &token.Name, &token.ActorID, &hash, &token.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil {
			// Update last used timestamp (async, don't block request)
			go func(id string) {
				_, _ = s.PG.Exec(`UPDATE api_tokens SET last_used = $2 WHERE id = $1`, id, time.Now())
			}(token.ID)
			return &token, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tokens: %w", err)
	}
	return nil, ErrInvalidToken
}

// RevokeToken deletes a token by ID.
func (s *TokenService) RevokeToken(ctx context.Context, id string) error {
	result, err := s.PG.ExecContext(ctx, `DELETE FROM api_tokens WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	if affected == 0 {
		return ErrInvalidToken
	}
	return nil
}
