// Package store keeps per-match submissions in Redis until both players have uploaded.
package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 24 * time.Hour

type Store struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{rdb: rdb, ttl: ttl, now: time.Now}
}

func (s *Store) keySubs(matchID string) string  { return "match:" + strings.TrimSpace(matchID) + ":subs" }
func (s *Store) keyOrder(matchID string) string { return "match:" + strings.TrimSpace(matchID) + ":order" }

// Save stores or replaces the user's submission. A replacement keeps the
// user's original position in the match order.
func (s *Store) Save(ctx context.Context, sub *Submission) error {
	if sub == nil || strings.TrimSpace(sub.MatchID) == "" || strings.TrimSpace(sub.UserID) == "" {
		return ErrInvalidArgs
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.ReceivedAt.IsZero() {
		sub.ReceivedAt = s.now().UTC()
	}
	raw, err := json.Marshal(sub)
	if err != nil {
		return err
	}

	subsKey, orderKey := s.keySubs(sub.MatchID), s.keyOrder(sub.MatchID)
	added, err := s.rdb.HSet(ctx, subsKey, sub.UserID, raw).Result()
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if added > 0 {
			p.RPush(ctx, orderKey, sub.UserID)
		}
		p.Expire(ctx, subsKey, s.ttl)
		p.Expire(ctx, orderKey, s.ttl)
		return nil
	})
	return err
}

// Load returns nil, nil when the user has not submitted.
func (s *Store) Load(ctx context.Context, matchID, userID string) (*Submission, error) {
	raw, err := s.rdb.HGet(ctx, s.keySubs(matchID), strings.TrimSpace(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sub Submission
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// Submissions lists the match's submissions in the order they first arrived.
func (s *Store) Submissions(ctx context.Context, matchID string) ([]*Submission, error) {
	users, err := s.rdb.LRange(ctx, s.keyOrder(matchID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*Submission, 0, len(users))
	for _, u := range users {
		sub, err := s.Load(ctx, matchID, u)
		if err != nil {
			return nil, err
		}
		if sub != nil {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, matchID string) error {
	return s.rdb.Del(ctx, s.keySubs(matchID), s.keyOrder(matchID)).Err()
}
