package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps the custom rules of each session.
//
// Remove deletes the rule at index. When want is non-nil the slot must still
// hold that rule, so a repeated submit of the same removal reports
// ErrRuleNotFound instead of deleting the rule that moved into its place.
type Store interface {
	List(ctx context.Context, session string) ([]Rule, error)
	Add(ctx context.Context, session string, r Rule) error
	Remove(ctx context.Context, session string, index int, want *Rule) error
	Clear(ctx context.Context, session string) error
}

type memorySession struct {
	rules   []Rule
	expires time.Time
}

// MemoryStore is the in-process Store used when no Redis is configured.
// Expired sessions are swept at most once per TTL, on Add.
type MemoryStore struct {
	mu        sync.Mutex
	ttl       time.Duration
	sessions  map[string]*memorySession
	now       func() time.Time
	lastSweep time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		sessions: make(map[string]*memorySession),
		now:      time.Now,
	}
}

// touch returns the live session entry, dropping it first if it expired.
// Caller holds mu.
func (s *MemoryStore) touch(session string, create bool) *memorySession {
	now := s.now()
	sess, ok := s.sessions[session]
	if ok && s.ttl > 0 && now.After(sess.expires) {
		delete(s.sessions, session)
		sess, ok = nil, false
	}
	if !ok {
		if !create {
			return nil
		}
		sess = &memorySession{}
		s.sessions[session] = sess
	}
	sess.expires = now.Add(s.ttl)
	return sess
}

func (s *MemoryStore) List(_ context.Context, session string) ([]Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.touch(session, false)
	if sess == nil {
		return nil, nil
	}
	out := make([]Rule, len(sess.rules))
	copy(out, sess.rules)
	return out, nil
}

// sweep drops every expired session. Caller holds mu.
func (s *MemoryStore) sweep() {
	if s.ttl <= 0 {
		return
	}
	now := s.now()
	if now.Sub(s.lastSweep) < s.ttl {
		return
	}
	s.lastSweep = now
	for id, sess := range s.sessions {
		if now.After(sess.expires) {
			delete(s.sessions, id)
		}
	}
}

func (s *MemoryStore) Add(_ context.Context, session string, r Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	sess := s.touch(session, true)
	sess.rules = append(sess.rules, r)
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, session string, index int, want *Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.touch(session, false)
	if sess == nil || index < 0 || index >= len(sess.rules) {
		return ErrRuleNotFound
	}
	if want != nil && sess.rules[index] != *want {
		return ErrRuleNotFound
	}
	sess.rules = append(sess.rules[:index], sess.rules[index+1:]...)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, session)
	return nil
}

const (
	ruleKeyFmt = "rules:%s"
	tombstone  = "__removed__"
)

// removeScript checks and deletes one slot atomically. ARGV: index,
// expected JSON ("" skips the check), tombstone, ttl seconds (0 keeps the
// current expiry). Returns 1 when a rule was removed, 0 when the slot is
// missing or holds another rule.
var removeScript = redis.NewScript(`
local idx = tonumber(ARGV[1])
local cur = redis.call('LINDEX', KEYS[1], idx)
if not cur then
	return 0
end
if ARGV[2] ~= '' and cur ~= ARGV[2] then
	return 0
end
redis.call('LSET', KEYS[1], idx, ARGV[3])
redis.call('LREM', KEYS[1], 1, ARGV[3])
if tonumber(ARGV[4]) > 0 then
	redis.call('EXPIRE', KEYS[1], tonumber(ARGV[4]))
end
return 1
`)

// RedisStore keeps each session's rules in a Redis list with a sliding TTL.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) key(session string) string {
	return fmt.Sprintf(ruleKeyFmt, session)
}

func (s *RedisStore) List(ctx context.Context, session string) ([]Rule, error) {
	key := s.key(session)
	raw, err := s.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	s.rdb.Expire(ctx, key, s.ttl)

	out := make([]Rule, 0, len(raw))
	for _, item := range raw {
		var r Rule
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			return nil, fmt.Errorf("decode rule: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *RedisStore) Add(ctx context.Context, session string, r Rule) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	key := s.key(session)
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	return err
}

// Remove deletes by position: the slot is overwritten with a tombstone and
// the tombstone removed, since Redis lists have no delete-at-index. Both
// steps run in one script so concurrent removals cannot shift each other.
func (s *RedisStore) Remove(ctx context.Context, session string, index int, want *Rule) error {
	if index < 0 {
		return ErrRuleNotFound
	}
	expected := ""
	if want != nil {
		data, err := json.Marshal(want)
		if err != nil {
			return err
		}
		expected = string(data)
	}
	ttl := int64(s.ttl / time.Second)
	removed, err := removeScript.Run(ctx, s.rdb, []string{s.key(session)}, index, expected, tombstone, ttl).Int()
	if err != nil {
		return err
	}
	if removed == 0 {
		return ErrRuleNotFound
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, session string) error {
	return s.rdb.Del(ctx, s.key(session)).Err()
}
