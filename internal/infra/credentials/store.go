// Package credentials keeps provider API keys in the database so operators
// can rotate them with cmd/geminikey instead of redeploying.
package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"shortshive/internal/infra"
	"shortshive/internal/sqlinline"
)

const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
)

// Key is a stored provider key.
type Key struct {
	Token     string
	UpdatedAt time.Time
}

type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// Lookup returns the stored key for provider. ok is false when none is stored.
func (s *Store) Lookup(ctx context.Context, provider string) (Key, bool, error) {
	var key Key
	err := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider).Scan(&key.Token, &key.UpdatedAt)
	switch {
	case infra.IsNoRows(err):
		return Key{}, false, nil
	case err != nil:
		return Key{}, false, fmt.Errorf("load %s key: %w", provider, err)
	}
	key.Token = strings.TrimSpace(key.Token)
	return key, key.Token != "", nil
}

// Resolve prefers an explicitly configured key and falls back to the stored one.
func (s *Store) Resolve(ctx context.Context, provider, configured string) (string, error) {
	if v := strings.TrimSpace(configured); v != "" {
		return v, nil
	}
	if s == nil {
		return "", nil
	}
	key, _, err := s.Lookup(ctx, provider)
	return key.Token, err
}

// SetToken stores the key for provider and reports whether it replaced an
// existing one. source is kept in the row's properties.
func (s *Store) SetToken(ctx context.Context, provider, token, source string) (bool, error) {
	provider = strings.TrimSpace(provider)
	token = strings.TrimSpace(token)
	switch {
	case provider == "":
		return false, fmt.Errorf("provider is required")
	case token == "":
		return false, fmt.Errorf("%s api key is required", provider)
	}
	props, err := json.Marshal(map[string]string{"source": source})
	if err != nil {
		return false, err
	}
	var rotated bool
	if err := s.sql.QueryRow(ctx, sqlinline.QUpsertIntegrationToken, provider, token, props).Scan(&rotated); err != nil {
		return false, fmt.Errorf("store %s key: %w", provider, err)
	}
	return rotated, nil
}
