package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"lucy/internal/memory/models"
)

const (
	keyPrefix     = "lucy:memory:"
	namespacesKey = keyPrefix + "namespaces"
)

// Keys for one namespace. The braces are a Redis hash tag, so a namespace's
// keys share a slot and the scripts below can touch all of them.
func recordsKey(ns string) string    { return keyPrefix + "{" + ns + "}:records" }
func categoriesKey(ns string) string { return keyPrefix + "{" + ns + "}:categories" }
func seqKey(ns string) string        { return keyPrefix + "{" + ns + "}:seq" }
func metaKey(ns string) string       { return keyPrefix + "{" + ns + "}:meta" }

// appendScript stores a record once and bumps its category only on the
// first write, so a replayed append is harmless. The sequence only moves
// forward.
var appendScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2]) == 1 then
  redis.call('HINCRBY', KEYS[2], ARGV[3], 1)
end
local cur = tonumber(redis.call('GET', KEYS[3]) or '0')
if tonumber(ARGV[4]) > cur then
  redis.call('SET', KEYS[3], ARGV[4])
end
return 1
`)

var removeScript = redis.NewScript(`
if redis.call('HDEL', KEYS[1], ARGV[1]) == 1 then
  if redis.call('HINCRBY', KEYS[2], ARGV[2], -1) <= 0 then
    redis.call('HDEL', KEYS[2], ARGV[2])
  end
end
return 1
`)

// RedisStore persists namespaces to Redis. It holds no state of its own and
// every method is idempotent, so failed writes can be retried as-is.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) SaveNamespace(ctx context.Context, info models.Namespace) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, namespacesKey, info.Name)
		pipe.HSetNX(ctx, metaKey(info.Name), "description", info.Description)
		pipe.HSetNX(ctx, metaKey(info.Name), "created_at", info.CreatedAt.Format(time.RFC3339Nano))
		return nil
	})
	if err != nil {
		return fmt.Errorf("save namespace %s: %w", info.Name, err)
	}
	return nil
}

// Append writes a newly added record.
func (s *RedisStore) Append(ctx context.Context, rec models.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	seq, err := models.SeqOf(rec.Namespace, rec.ID)
	if err != nil {
		return err
	}
	if err := s.client.SAdd(ctx, namespacesKey, rec.Namespace).Err(); err != nil {
		return fmt.Errorf("register namespace: %w", err)
	}
	keys := []string{recordsKey(rec.Namespace), categoriesKey(rec.Namespace), seqKey(rec.Namespace)}
	if err := appendScript.Run(ctx, s.client, keys, rec.ID, payload, rec.Category, seq).Err(); err != nil {
		return fmt.Errorf("append record %s: %w", rec.ID, err)
	}
	return nil
}

// Put overwrites an existing record after an update.
func (s *RedisStore) Put(ctx context.Context, rec models.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := s.client.HSet(ctx, recordsKey(rec.Namespace), rec.ID, payload).Err(); err != nil {
		return fmt.Errorf("put record %s: %w", rec.ID, err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, rec models.Record) error {
	keys := []string{recordsKey(rec.Namespace), categoriesKey(rec.Namespace)}
	if err := removeScript.Run(ctx, s.client, keys, rec.ID, rec.Category).Err(); err != nil {
		return fmt.Errorf("remove record %s: %w", rec.ID, err)
	}
	return nil
}

// Replace swaps the stored namespace for snap in one transaction.
func (s *RedisStore) Replace(ctx context.Context, snap models.Snapshot) error {
	ns := snap.Name
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, recordsKey(ns), categoriesKey(ns))
		pipe.SAdd(ctx, namespacesKey, ns)
		pipe.HSet(ctx, metaKey(ns),
			"description", snap.Description,
			"created_at", snap.CreatedAt.Format(time.RFC3339Nano),
		)
		pipe.Set(ctx, seqKey(ns), snap.Seq, 0)
		if len(snap.Memories) > 0 {
			fields := make([]any, 0, 2*len(snap.Memories))
			for _, rec := range snap.Memories {
				payload, err := json.Marshal(rec)
				if err != nil {
					return fmt.Errorf("marshal record %s: %w", rec.ID, err)
				}
				fields = append(fields, rec.ID, payload)
			}
			pipe.HSet(ctx, recordsKey(ns), fields...)
		}
		if len(snap.Categories) > 0 {
			fields := make([]any, 0, 2*len(snap.Categories))
			for cat, n := range snap.Categories {
				fields = append(fields, cat, n)
			}
			pipe.HSet(ctx, categoriesKey(ns), fields...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace namespace %s: %w", ns, err)
	}
	return nil
}

// Load reads every namespace back, records ordered by sequence.
func (s *RedisStore) Load(ctx context.Context) ([]models.Snapshot, error) {
	names, err := s.client.SMembers(ctx, namespacesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list namespaces: %w", err)
	}
	sort.Strings(names)

	out := make([]models.Snapshot, 0, len(names))
	for _, ns := range names {
		snap, err := s.loadNamespace(ctx, ns)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

func (s *RedisStore) loadNamespace(ctx context.Context, ns string) (models.Snapshot, error) {
	pipe := s.client.Pipeline()
	recordsCmd := pipe.HGetAll(ctx, recordsKey(ns))
	categoriesCmd := pipe.HGetAll(ctx, categoriesKey(ns))
	seqCmd := pipe.Get(ctx, seqKey(ns))
	metaCmd := pipe.HGetAll(ctx, metaKey(ns))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return models.Snapshot{}, fmt.Errorf("load namespace %s: %w", ns, err)
	}

	snap := models.Snapshot{
		Namespace:  models.Namespace{Name: ns, Description: metaCmd.Val()["description"]},
		Categories: make(map[string]int),
	}
	if created, err := time.Parse(time.RFC3339Nano, metaCmd.Val()["created_at"]); err == nil {
		snap.CreatedAt = created
	}
	if seq, err := seqCmd.Uint64(); err == nil {
		snap.Seq = seq
	}
	for cat, v := range categoriesCmd.Val() {
		n, err := strconv.Atoi(v)
		if err != nil {
			return models.Snapshot{}, fmt.Errorf("category %s in %s: %w", cat, ns, err)
		}
		snap.Categories[cat] = n
	}

	type seqRecord struct {
		seq uint64
		rec models.Record
	}
	ordered := make([]seqRecord, 0, len(recordsCmd.Val()))
	for id, payload := range recordsCmd.Val() {
		var rec models.Record
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return models.Snapshot{}, fmt.Errorf("decode record %s: %w", id, err)
		}
		seq, err := models.SeqOf(ns, id)
		if err != nil {
			return models.Snapshot{}, err
		}
		ordered = append(ordered, seqRecord{seq: seq, rec: rec})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].seq < ordered[j].seq })
	snap.Memories = make([]models.Record, len(ordered))
	for i, o := range ordered {
		snap.Memories[i] = o.rec
	}
	return snap, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
