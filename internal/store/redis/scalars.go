package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/pocketsnooze/snoozerd/internal/domain"
	"github.com/redis/go-redis/v9"
)

// AccessToken returns the stored Pocket access token, or "" when the user is
// not authenticated.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, KeyAccessToken).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get access token: %w", err)
	}
	return token, nil
}

// SetCredentials stores the access token and username after a successful
// authorization.
func (s *Store) SetCredentials(ctx context.Context, token, username string) error {
	pipe := s.client.Pipeline()
	pipe.Set(ctx, KeyAccessToken, token, 0)
	pipe.Set(ctx, KeyUsername, username, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// ClearAccessToken deletes the stored token, forcing re-authentication on
// the next authenticated call.
func (s *Store) ClearAccessToken(ctx context.Context) error {
	if err := s.client.Del(ctx, KeyAccessToken).Err(); err != nil {
		return fmt.Errorf("failed to clear access token: %w", err)
	}
	return nil
}

// Username returns the stored Pocket account username, or "" when unknown.
func (s *Store) Username(ctx context.Context) (string, error) {
	username, err := s.client.Get(ctx, KeyUsername).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get username: %w", err)
	}
	return username, nil
}

// LastSynced returns the epoch second of the last completed metadata sync,
// or 0 when no sync has completed yet.
func (s *Store) LastSynced(ctx context.Context) (int64, error) {
	raw, err := s.client.Get(ctx, KeyLastSynced).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get last sync timestamp: %w", err)
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed last sync timestamp %q: %w", raw, err)
	}
	return ts, nil
}

// SetLastSynced records the epoch second of a completed metadata sync.
func (s *Store) SetLastSynced(ctx context.Context, ts int64) error {
	if err := s.client.Set(ctx, KeyLastSynced, strconv.FormatInt(ts, 10), 0).Err(); err != nil {
		return fmt.Errorf("failed to set last sync timestamp: %w", err)
	}
	return nil
}

// Settings returns the stored wake-time preferences, falling back to
// defaults when the user never changed them. Fields missing from an old
// record keep their default values.
func (s *Store) Settings(ctx context.Context, defaults domain.Settings) (domain.Settings, error) {
	data, err := s.client.Get(ctx, KeySettings).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return defaults, nil
		}
		return defaults, fmt.Errorf("failed to get settings: %w", err)
	}

	settings := defaults
	if err := json.Unmarshal(data, &settings); err != nil {
		return defaults, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	return settings, nil
}

// SetSettings persists the wake-time preferences.
func (s *Store) SetSettings(ctx context.Context, settings domain.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := s.client.Set(ctx, KeySettings, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
