package calls

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each call in a hash at "{prefix}call:{conversation_id}" and
// a provider index at "{prefix}call_sid:{provider_call_id}". All writes are
// Lua scripts so a check and its write are atomic.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore builds a store. ttl bounds how long finished calls linger; 0
// keeps them forever.
func NewRedisStore(rdb redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

const (
	fieldTo             = "to_phone_number"
	fieldFrom           = "from_phone_number"
	fieldProviderCallID = "provider_call_id"
	fieldStatus         = "status"
	fieldAMD            = "amd_classification"
	fieldRecord         = "record_requested"
	fieldRecordingURL   = "recording_url"
	fieldCreatedAt      = "created_at"
	fieldUpdatedAt      = "updated_at"
)

var createCallScript = redis.NewScript(`
-- KEYS[1] = call hash
-- ARGV    = field/value pairs, then ttl_ms as the last argument
--
-- Returns:
--  1 if created
--  0 if the call already exists
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
local ttl = tonumber(ARGV[#ARGV])
for i = 1, #ARGV - 1, 2 do
  redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 1])
end
if ttl > 0 then
  redis.call('PEXPIRE', KEYS[1], ttl)
end
return 1
`)

var compareAndSetScript = redis.NewScript(`
-- KEYS[1] = call hash
-- ARGV[1] = field
-- ARGV[2] = expected value
-- ARGV[3] = new value
-- ARGV[4] = updated_at (unix nanos)
--
-- Returns:
--  1  swapped
--  0  current value differs
--  -1 call not found
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
if redis.call('HGET', KEYS[1], ARGV[1]) ~= ARGV[2] then
  return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[3], 'updated_at', ARGV[4])
return 1
`)

var setFieldScript = redis.NewScript(`
-- KEYS[1] = call hash
-- KEYS[2] = provider index key, or empty when not indexing
-- ARGV[1] = field
-- ARGV[2] = value
-- ARGV[3] = updated_at (unix nanos)
-- ARGV[4] = conversation id
-- ARGV[5] = ttl_ms
--
-- Returns 1 on success, -1 if the call does not exist.
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2], 'updated_at', ARGV[3])
if KEYS[2] ~= '' then
  redis.call('SET', KEYS[2], ARGV[4])
  local ttl = tonumber(ARGV[5])
  if ttl > 0 then
    redis.call('PEXPIRE', KEYS[2], ttl)
  end
end
return 1
`)

func (s *RedisStore) callKey(conversationID string) string {
	return s.prefix + "call:" + conversationID
}

func (s *RedisStore) sidKey(providerCallID string) string {
	return s.prefix + "call_sid:" + providerCallID
}

func (s *RedisStore) Create(ctx context.Context, c Call) error {
	fields := encodeCallHash(c)
	args := make([]any, 0, len(fields)*2+1)
	for _, f := range callHashFields {
		args = append(args, f, fields[f])
	}
	args = append(args, s.ttl.Milliseconds())

	res, err := createCallScript.Run(ctx, s.rdb, []string{s.callKey(c.ConversationID)}, args...).Int()
	if err != nil {
		return err
	}
	if res == 0 {
		return ErrAlreadyExists
	}
	if c.ProviderCallID != "" {
		return s.SetProviderCallID(ctx, c.ConversationID, c.ProviderCallID, c.UpdatedAt)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, conversationID string) (Call, error) {
	m, err := s.rdb.HGetAll(ctx, s.callKey(conversationID)).Result()
	if err != nil {
		return Call{}, err
	}
	if len(m) == 0 {
		return Call{}, ErrNotFound
	}
	return decodeCallHash(conversationID, m)
}

func (s *RedisStore) FindByProviderCallID(ctx context.Context, providerCallID string) (Call, error) {
	id, err := s.rdb.Get(ctx, s.sidKey(providerCallID)).Result()
	if errors.Is(err, redis.Nil) {
		return Call{}, ErrNotFound
	}
	if err != nil {
		return Call{}, err
	}
	return s.Get(ctx, id)
}

func (s *RedisStore) CompareAndSetStatus(ctx context.Context, conversationID string, from, to Status, at time.Time) (bool, error) {
	return s.compareAndSet(ctx, conversationID, fieldStatus, string(from), string(to), at)
}

func (s *RedisStore) CompareAndSetClassification(ctx context.Context, conversationID string, from, to Classification, at time.Time) (bool, error) {
	return s.compareAndSet(ctx, conversationID, fieldAMD, string(from), string(to), at)
}

func (s *RedisStore) SetProviderCallID(ctx context.Context, conversationID, providerCallID string, at time.Time) error {
	return s.setField(ctx, conversationID, fieldProviderCallID, providerCallID, s.sidKey(providerCallID), at)
}

func (s *RedisStore) SetRecordingURL(ctx context.Context, conversationID, url string, at time.Time) error {
	return s.setField(ctx, conversationID, fieldRecordingURL, url, "", at)
}

func (s *RedisStore) compareAndSet(ctx context.Context, conversationID, field, from, to string, at time.Time) (bool, error) {
	res, err := compareAndSetScript.Run(ctx, s.rdb, []string{s.callKey(conversationID)}, field, from, to, at.UnixNano()).Int()
	if err != nil {
		return false, err
	}
	switch res {
	case 1:
		return true, nil
	case -1:
		return false, ErrNotFound
	default:
		return false, nil
	}
}

func (s *RedisStore) setField(ctx context.Context, conversationID, field, value, indexKey string, at time.Time) error {
	keys := []string{s.callKey(conversationID), indexKey}
	res, err := setFieldScript.Run(ctx, s.rdb, keys, field, value, at.UnixNano(), conversationID, s.ttl.Milliseconds()).Int()
	if err != nil {
		return err
	}
	if res == -1 {
		return ErrNotFound
	}
	return nil
}

var callHashFields = []string{
	fieldTo, fieldFrom, fieldProviderCallID, fieldStatus, fieldAMD,
	fieldRecord, fieldRecordingURL, fieldCreatedAt, fieldUpdatedAt,
}

func encodeCallHash(c Call) map[string]string {
	return map[string]string{
		fieldTo:             c.ToPhoneNumber,
		fieldFrom:           c.FromPhoneNumber,
		fieldProviderCallID: c.ProviderCallID,
		fieldStatus:         string(c.Status),
		fieldAMD:            string(c.AMDClassification),
		fieldRecord:         strconv.FormatBool(c.RecordRequested),
		fieldRecordingURL:   c.RecordingURL,
		fieldCreatedAt:      strconv.FormatInt(c.CreatedAt.UnixNano(), 10),
		fieldUpdatedAt:      strconv.FormatInt(c.UpdatedAt.UnixNano(), 10),
	}
}

func decodeCallHash(conversationID string, m map[string]string) (Call, error) {
	c := Call{
		ConversationID:    conversationID,
		ToPhoneNumber:     m[fieldTo],
		FromPhoneNumber:   m[fieldFrom],
		ProviderCallID:    m[fieldProviderCallID],
		Status:            Status(m[fieldStatus]),
		AMDClassification: Classification(m[fieldAMD]),
		RecordingURL:      m[fieldRecordingURL],
	}
	if v := m[fieldRecord]; v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Call{}, fmt.Errorf("calls: decode %s: %w", fieldRecord, err)
		}
		c.RecordRequested = b
	}
	var err error
	if c.CreatedAt, err = parseUnixNano(m[fieldCreatedAt]); err != nil {
		return Call{}, fmt.Errorf("calls: decode %s: %w", fieldCreatedAt, err)
	}
	if c.UpdatedAt, err = parseUnixNano(m[fieldUpdatedAt]); err != nil {
		return Call{}, fmt.Errorf("calls: decode %s: %w", fieldUpdatedAt, err)
	}
	return c, nil
}

func parseUnixNano(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, n).UTC(), nil
}
