package embedding

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	bolt "go.etcd.io/bbolt"
	"lukechampine.com/blake3"

	"github.com/rohankatakam/kgbuilder/internal/errors"
)

// Cache stores vectors keyed by model and text. Get reports a miss with
// ok=false and a nil error.
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Put(ctx context.Context, key string, vec []float32) error
	Close() error
}

// CacheKey derives the cache key for text embedded by model
func CacheKey(model, text string) string {
	sum := blake3.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("corrupt cached vector: %d bytes", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec, nil
}

var embeddingsBucket = []byte("embeddings")

// BoltCache is a single-file embedding cache backed by bbolt
type BoltCache struct {
	db *bolt.DB
}

// OpenBoltCache opens (or creates) the cache file at path
func OpenBoltCache(path string) (*BoltCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(embeddingsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create embeddings bucket: %w", err)
	}
	return &BoltCache{db: db}, nil
}

func (c *BoltCache) Get(_ context.Context, key string) ([]float32, bool, error) {
	var vec []float32
	err := c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(embeddingsBucket).Get([]byte(key))
		if data == nil {
			return nil
		}
		v, err := decodeVector(data)
		vec = v
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return vec, vec != nil, nil
}

func (c *BoltCache) Put(_ context.Context, key string, vec []float32) error {
	err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(embeddingsBucket).Put([]byte(key), encodeVector(vec))
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFileSystem, errors.SeverityLow, "embedding cache put")
	}
	return nil
}

func (c *BoltCache) Close() error {
	return c.db.Close()
}

// RedisCache shares embeddings between machines through Redis
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to addr and verifies the connection. A zero ttl
// keeps entries forever.
func NewRedisCache(ctx context.Context, addr, password string, db int, prefix string, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.NetworkErrorf(err, "failed to connect to redis at %s", addr)
	}
	if prefix == "" {
		prefix = "kgbuilder:emb:"
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	vec, err := decodeVector(data)
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

func (c *RedisCache) Put(ctx context.Context, key string, vec []float32) error {
	if err := c.client.Set(ctx, c.prefix+key, encodeVector(vec), c.ttl).Err(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeNetwork, errors.SeverityLow, "redis set")
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
