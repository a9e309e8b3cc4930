package orchestrator

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/developer-mesh/tieredcache/internal/cerrors"
	"github.com/developer-mesh/tieredcache/internal/observability"
)

// RemoteConfig configures the optional remote L3 tier (spec §6).
type RemoteConfig struct {
	Host                      string        `mapstructure:"host"`
	Port                      int           `mapstructure:"port"`
	KeyPrefix                 string        `mapstructure:"key_prefix"`
	CompressionEnabled        bool          `mapstructure:"compression_enabled"`
	CompressionThresholdBytes int           `mapstructure:"compression_threshold_bytes"`
	CircuitBreakerThreshold   uint32        `mapstructure:"circuit_breaker_threshold"`
	CircuitBreakerCooldown    time.Duration `mapstructure:"circuit_breaker_cooldown"`
	DialTimeout               time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout               time.Duration `mapstructure:"read_timeout"`
	WriteTimeout              time.Duration `mapstructure:"write_timeout"`
	PoolSize                  int           `mapstructure:"pool_size"`
}

// NewDefaultRemoteConfig returns the defaults from spec §5's circuit
// breaker section and common Redis client tuning.
func NewDefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		Host:                      "localhost",
		Port:                      6379,
		KeyPrefix:                 "tieredcache",
		CompressionEnabled:        true,
		CompressionThresholdBytes: 1024,
		CircuitBreakerThreshold:   5,
		CircuitBreakerCooldown:    30 * time.Second,
		DialTimeout:               5 * time.Second,
		ReadTimeout:               3 * time.Second,
		WriteTimeout:              3 * time.Second,
		PoolSize:                  10,
	}
}

// envelope is the self-describing wire format for the remote tier
// (spec §6): version, creation time, TTL, and a compression flag so a
// reader can always tell whether Payload needs decompressing.
type envelope struct {
	Version   int           `json:"version"`
	CreatedAt time.Time     `json:"created_at"`
	TTL       time.Duration `json:"ttl"`
	Compressed bool         `json:"compressed"`
	Tags      []string      `json:"tags,omitempty"`
	Payload   []byte        `json:"payload"`
}

func (e *envelope) expired(now time.Time) bool {
	if e.TTL <= 0 {
		return false
	}
	return now.Sub(e.CreatedAt) > e.TTL
}

// RemoteTier is a Backend implementation over go-redis, guarded by a
// gobreaker circuit breaker per spec §5: after CircuitBreakerThreshold
// consecutive failures the tier opens for CircuitBreakerCooldown, reads
// miss, writes silently drop, and deletes are treated as already
// satisfied until a probe closes the circuit again.
type RemoteTier struct {
	client  redis.UniversalClient
	cfg     RemoteConfig
	cb      *gobreaker.CircuitBreaker
	logger  observability.Logger
	metrics observability.MetricsClient
}

// NewRemoteTier wraps an existing redis client (tests inject a
// miniredis-backed client; production wires a real one).
func NewRemoteTier(cfg RemoteConfig, client redis.UniversalClient, logger observability.Logger, metrics observability.MetricsClient) *RemoteTier {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	if metrics == nil {
		metrics = observability.NewNoopMetrics()
	}
	threshold := cfg.CircuitBreakerThreshold
	if threshold == 0 {
		threshold = 5
	}
	cooldown := cfg.CircuitBreakerCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	l := logger.WithPrefix("orchestrator.remote")
	settings := gobreaker.Settings{
		Name:    "remote-tier",
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warnf("circuit breaker %s: %s -> %s", name, from, to)
		},
	}
	return &RemoteTier{
		client:  client,
		cfg:     cfg,
		cb:      gobreaker.NewCircuitBreaker(settings),
		logger:  l,
		metrics: metrics,
	}
}

// classify wraps a raw redis/gobreaker error with a stack-annotated
// cause and the engine's BackendUnavailable classification, matching
// spec §7's treatment of an unreachable remote tier.
func (r *RemoteTier) classify(operation string, err error) *cerrors.Error {
	return cerrors.BackendUnavailable(operation, pkgerrors.Wrap(err, "redis"))
}

func (r *RemoteTier) redisKey(key string) string {
	return r.cfg.KeyPrefix + "|" + key
}

func (r *RemoteTier) tagKey(tag string) string {
	return r.cfg.KeyPrefix + "|tag|" + tag
}

func (r *RemoteTier) encode(value interface{}, ttl time.Duration, tags []string) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	compressed := false
	payload := raw
	threshold := r.cfg.CompressionThresholdBytes
	if r.cfg.CompressionEnabled && threshold > 0 && len(raw) >= threshold {
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		if _, err := gw.Write(raw); err == nil && gw.Close() == nil {
			payload = buf.Bytes()
			compressed = true
		}
	}
	env := envelope{
		Version:    1,
		CreatedAt:  time.Now(),
		TTL:        ttl,
		Compressed: compressed,
		Tags:       tags,
		Payload:    payload,
	}
	return json.Marshal(&env)
}

func (r *RemoteTier) decode(raw []byte) (interface{}, *envelope, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, nil, err
	}
	payload := env.Payload
	if env.Compressed {
		gr, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, &env, err
		}
		defer gr.Close()
		decompressed, err := io.ReadAll(gr)
		if err != nil {
			return nil, &env, err
		}
		payload = decompressed
	}
	var value interface{}
	if err := json.Unmarshal(payload, &value); err != nil {
		return nil, &env, err
	}
	return value, &env, nil
}

func (r *RemoteTier) Get(ctx context.Context, key string) (interface{}, bool) {
	res, err := r.cb.Execute(func() (interface{}, error) {
		raw, err := r.client.Get(ctx, r.redisKey(key)).Bytes()
		if err != nil {
			if err == redis.Nil {
				return nil, nil
			}
			return nil, err
		}
		return raw, nil
	})
	if err != nil {
		r.logger.Debug("remote get failed", map[string]interface{}{"key": key, "error": r.classify("get", err).Error()})
		return nil, false
	}
	if res == nil {
		return nil, false
	}
	value, env, err := r.decode(res.([]byte))
	if err != nil {
		r.logger.Warnf("remote envelope decode failed for %s: %v", key, err)
		return nil, false
	}
	if env.expired(time.Now()) {
		_, _ = r.client.Del(ctx, r.redisKey(key)).Result()
		return nil, false
	}
	return value, true
}

func (r *RemoteTier) Has(ctx context.Context, key string) bool {
	_, ok := r.Get(ctx, key)
	return ok
}

func (r *RemoteTier) Set(ctx context.Context, key string, value interface{}, ttl time.Duration, tags []string) bool {
	body, err := r.encode(value, ttl, tags)
	if err != nil {
		r.logger.Warnf("remote encode failed for %s: %v", key, err)
		return false
	}
	_, err = r.cb.Execute(func() (interface{}, error) {
		if err := r.client.Set(ctx, r.redisKey(key), body, ttl).Err(); err != nil {
			return nil, err
		}
		for _, tag := range tags {
			if err := r.client.SAdd(ctx, r.tagKey(tag), key).Err(); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		r.logger.Debug("remote set failed", map[string]interface{}{"key": key, "error": r.classify("set", err).Error()})
		return false
	}
	return true
}

func (r *RemoteTier) Delete(ctx context.Context, key string) bool {
	res, err := r.cb.Execute(func() (interface{}, error) {
		return r.client.Del(ctx, r.redisKey(key)).Result()
	})
	if err != nil {
		// Spec §5: in OPEN state, deletes succeed locally — there is no
		// local shadow copy here, so a dropped delete is reported as
		// satisfied rather than surfaced as a failure.
		r.logger.Debug("remote delete failed", map[string]interface{}{"key": key, "error": r.classify("delete", err).Error()})
		return true
	}
	n, _ := res.(int64)
	return n > 0
}

func (r *RemoteTier) InvalidateByTag(ctx context.Context, tag string) int {
	res, err := r.cb.Execute(func() (interface{}, error) {
		members, err := r.client.SMembers(ctx, r.tagKey(tag)).Result()
		if err != nil {
			return nil, err
		}
		if len(members) == 0 {
			return 0, nil
		}
		keys := make([]string, len(members))
		for i, m := range members {
			keys[i] = r.redisKey(m)
		}
		deleted, err := r.client.Del(ctx, keys...).Result()
		if err != nil {
			return nil, err
		}
		_ = r.client.Del(ctx, r.tagKey(tag)).Err()
		return int(deleted), nil
	})
	if err != nil {
		r.logger.Debug("remote invalidate_by_tag failed", map[string]interface{}{"tag": tag, "error": r.classify("invalidate_by_tag", err).Error()})
		return 0
	}
	if res == nil {
		return 0
	}
	return res.(int)
}
