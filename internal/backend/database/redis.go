package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jo-hoe/gogallery/internal/common"
	"github.com/redis/go-redis/v9"
)

const (
	redisSequenceKey  = "gallery:records:seq"
	redisIndexKey     = "gallery:records"
	redisCountriesKey = "gallery:countries"
	redisRecordPrefix = "gallery:record:"
)

// RedisDatabase keeps each record in a hash, an id-scored sorted set as the insertion index
// and a set of countries. Ids come from INCR and are never reused.
type RedisDatabase struct {
	client  *redis.Client
	options Options
}

// NewRedisDatabase connects to a redis:// URL.
func NewRedisDatabase(connectionString string, options Options) (*RedisDatabase, error) {
	redisOptions, err := redis.ParseURL(connectionString)
	if err != nil {
		return nil, fmt.Errorf("invalid redis connection string: %w", err)
	}
	return &RedisDatabase{
		client:  redis.NewClient(redisOptions),
		options: options,
	}, nil
}

func recordKey(id int64) string {
	return redisRecordPrefix + strconv.FormatInt(id, 10)
}

// CreateDatabase only checks connectivity; Redis needs no schema.
func (r *RedisDatabase) CreateDatabase(ctx context.Context) error {
	return r.Ping(ctx)
}

func (r *RedisDatabase) Ping(ctx context.Context) error {
	return common.WrapStorage("ping", r.client.Ping(ctx).Err())
}

func (r *RedisDatabase) Close() error {
	return r.client.Close()
}

func (r *RedisDatabase) InsertRecord(ctx context.Context, record NewRecord) (int64, error) {
	id, err := r.client.Incr(ctx, redisSequenceKey).Result()
	if err != nil {
		return 0, common.WrapStorage("insert", err)
	}

	fields := map[string]any{
		"name":          record.Name,
		"country":       record.Country,
		"artwork_image": record.ArtworkImage,
		"website":       record.Website,
		"sort_name":     r.options.sortName(record.Name),
		"created_at":    r.options.now().Format(time.RFC3339Nano),
	}
	if record.PersonalImage != nil {
		fields["personal_image"] = *record.PersonalImage
	}
	if record.Description != nil {
		fields["description"] = *record.Description
	}

	// MULTI/EXEC so a record is either fully indexed or not written at all
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, recordKey(id), fields)
		pipe.ZAdd(ctx, redisIndexKey, redis.Z{Score: float64(id), Member: strconv.FormatInt(id, 10)})
		pipe.SAdd(ctx, redisCountriesKey, record.Country)
		return nil
	})
	if err != nil {
		return 0, common.WrapStorage("insert", err)
	}
	return id, nil
}

func (r *RedisDatabase) ListRecords(ctx context.Context, query RecordQuery) ([]*Record, error) {
	ids, err := r.client.ZRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return nil, common.WrapStorage("list", err)
	}
	if len(ids) == 0 {
		return make([]*Record, 0), nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, redisRecordPrefix+id)
		}
		return nil
	})
	if err != nil {
		return nil, common.WrapStorage("list", err)
	}

	records := make([]*Record, 0, len(ids))
	for i, cmd := range cmds {
		record, err := recordFromHash(ids[i], cmd.Val())
		if err != nil {
			return nil, common.WrapStorage("list", err)
		}
		records = append(records, record)
	}
	return query.apply(records), nil
}

func (r *RedisDatabase) DistinctCountries(ctx context.Context) ([]string, error) {
	countries, err := r.client.SMembers(ctx, redisCountriesKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, common.WrapStorage("countries", err)
	}
	out := make([]string, 0, len(countries))
	for _, c := range countries {
		if c != "" {
			out = append(out, c)
		}
	}
	return out, nil
}

func recordFromHash(id string, fields map[string]string) (*Record, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("record %s is indexed but missing", id)
	}
	parsedID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid record id %q: %w", id, err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("invalid created_at for record %s: %w", id, err)
	}

	record := &Record{
		ID:           parsedID,
		Name:         fields["name"],
		Country:      fields["country"],
		ArtworkImage: fields["artwork_image"],
		Website:      fields["website"],
		SortName:     fields["sort_name"],
		CreatedAt:    createdAt.UTC(),
	}
	if v, ok := fields["personal_image"]; ok {
		record.PersonalImage = &v
	}
	if v, ok := fields["description"]; ok {
		record.Description = &v
	}
	return record, nil
}
