// Package redis stores console sessions in Redis hashes.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/Vignesh6104/sims-console/internal/domain/auth"
	"github.com/Vignesh6104/sims-console/internal/ports"
)

// DefaultPrefix is the key prefix used for console sessions.
const DefaultPrefix = "sims:session:"

// Hash fields of a session record. The session id is the key suffix.
const (
	fieldUserID       = "user_id"
	fieldRole         = "role"
	fieldAccessToken  = "access_token"
	fieldRefreshToken = "refresh_token"
	fieldExpiresAt    = "expires_at"
)

// setAccessToken writes one field of an existing hash. HSET keeps the key's TTL.
var setAccessToken = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
return 1
`)

// SessionStore keeps each session in a hash that expires at the session's ExpiresAt.
type SessionStore struct {
	client redis.UniversalClient
	prefix string
}

var (
	_ ports.SessionStore      = (*SessionStore)(nil)
	_ ports.AccessTokenWriter = (*SessionStore)(nil)
)

// NewSessionStore creates a session store using DefaultPrefix.
func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return NewSessionStoreWithPrefix(client, DefaultPrefix)
}

// NewSessionStoreWithPrefix creates a session store whose keys start with prefix.
func NewSessionStoreWithPrefix(client redis.UniversalClient, prefix string) *SessionStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &SessionStore{client: client, prefix: prefix}
}

func (s *SessionStore) key(id string) string { return s.prefix + id }

// Save replaces the whole record and sets its expiry.
func (s *SessionStore) Save(ctx context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	if !sess.ExpiresAt.After(time.Now()) {
		return errors.New("session is expired")
	}

	key := s.key(sess.ID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			fieldUserID, sess.UserID,
			fieldRole, string(sess.Role),
			fieldAccessToken, sess.AccessToken,
			fieldRefreshToken, sess.RefreshToken,
			fieldExpiresAt, sess.ExpiresAt.UTC().Format(time.RFC3339Nano),
		)
		pipe.PExpireAt(ctx, key, sess.ExpiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	return nil
}

// SetAccessToken swaps the access token of a stored session without touching its TTL.
func (s *SessionStore) SetAccessToken(ctx context.Context, id, token string) error {
	if id == "" {
		return ports.ErrSessionNotFound
	}
	n, err := setAccessToken.Run(ctx, s.client, []string{s.key(id)}, fieldAccessToken, token).Int()
	if err != nil {
		return fmt.Errorf("redis set access token: %w", err)
	}
	if n == 0 {
		return ports.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (domainauth.Session, error) {
	if id == "" {
		return domainauth.Session{}, ports.ErrSessionNotFound
	}

	fields, err := s.client.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("redis get session: %w", err)
	}
	if len(fields) == 0 {
		return domainauth.Session{}, ports.ErrSessionNotFound
	}

	expiresAt, err := time.Parse(time.RFC3339Nano, fields[fieldExpiresAt])
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("decode session expiry: %w", err)
	}

	// Key expiry normally wins; clock skew between hosts can leave a stale record.
	if time.Now().After(expiresAt) {
		if deleteErr := s.Delete(ctx, id); deleteErr != nil {
			return domainauth.Session{}, fmt.Errorf("cleanup expired session: %w", deleteErr)
		}
		return domainauth.Session{}, ports.ErrSessionNotFound
	}

	return domainauth.Session{
		ID:           id,
		UserID:       fields[fieldUserID],
		Role:         domainauth.Role(fields[fieldRole]),
		AccessToken:  fields[fieldAccessToken],
		RefreshToken: fields[fieldRefreshToken],
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.client.Del(ctx, s.key(id)).Err()
}
