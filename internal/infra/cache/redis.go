package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"staydesk/internal/app/policies"
	"staydesk/internal/domain/availability"
	"staydesk/internal/domain/inventory"
	"staydesk/internal/domain/shared/daterange"
)

// Redis shares cached verdicts between instances. Each room keeps an index set
// of its entry keys so invalidation does not need SCAN.
type Redis struct {
	Client redis.UniversalClient
	Prefix string
	TTL    time.Duration
}

func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{Client: client, Prefix: prefix, TTL: ttl}
}

func (r *Redis) Get(ctx context.Context, roomID inventory.RoomID, dr daterange.DateRange) (availability.Result, bool, error) {
	raw, err := r.Client.Get(ctx, r.entryKey(roomID, dr)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return availability.Result{}, false, nil
		}
		return availability.Result{}, false, err
	}
	var res availability.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return availability.Result{}, false, err
	}
	return res, true, nil
}

func (r *Redis) Put(ctx context.Context, res availability.Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return err
	}
	key := r.entryKey(res.RoomID, res.Range)
	index := r.indexKey(res.RoomID)
	_, err = r.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, payload, r.TTL)
		pipe.SAdd(ctx, index, key)
		pipe.Expire(ctx, index, 2*r.TTL)
		return nil
	})
	return err
}

func (r *Redis) InvalidateRoom(ctx context.Context, roomID inventory.RoomID, dr daterange.DateRange) error {
	index := r.indexKey(roomID)
	keys, err := r.Client.SMembers(ctx, index).Result()
	if err != nil {
		return err
	}
	var stale []string
	for _, key := range keys {
		if dr.CheckIn.IsZero() {
			stale = append(stale, key)
			continue
		}
		cached, ok := rangeFromKey(key)
		if !ok || cached.Touches(dr) {
			stale = append(stale, key)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	members := make([]any, len(stale))
	for i, k := range stale {
		members[i] = k
	}
	_, err = r.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, stale...)
		pipe.SRem(ctx, index, members...)
		return nil
	})
	return err
}

func (r *Redis) entryKey(roomID inventory.RoomID, dr daterange.DateRange) string {
	return r.Prefix + "avail:" + string(roomID) + ":" + dr.String()
}

func (r *Redis) indexKey(roomID inventory.RoomID) string {
	return r.Prefix + "avail-idx:" + string(roomID)
}

func rangeFromKey(key string) (daterange.DateRange, bool) {
	idx := strings.LastIndexByte(key, ':')
	if idx < 0 {
		return daterange.DateRange{}, false
	}
	in, out, ok := strings.Cut(key[idx+1:], "/")
	if !ok {
		return daterange.DateRange{}, false
	}
	dr, err := daterange.Parse(in, out)
	return dr, err == nil
}

var _ policies.AvailabilityCache = (*Redis)(nil)
