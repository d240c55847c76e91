package xconf

import (
	"fmt"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
)

// Encode 将配置序列化为 format 格式，输出可被 LoadBytes 读回。
// 时长以 "1.5s" 形式输出；Redis 与 etcd 的密码不会被输出。
func Encode(s *Settings, format Format) ([]byte, error) {
	if s == nil {
		s = new(Settings)
		*s = Defaults()
	}

	var (
		out []byte
		err error
	)
	switch format {
	case FormatYAML:
		out, err = yaml.Parser().Marshal(s.toMap())
	case FormatJSON:
		out, err = json.Parser().Marshal(s.toMap())
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("xconf: encode %s: %w", format, err)
	}
	return out, nil
}

func (s *Settings) toMap() map[string]any {
	log := map[string]any{
		"level":        s.Log.Level,
		"format":       s.Log.Format,
		"add_source":   s.Log.AddSource,
		"max_size_mb":  s.Log.MaxSizeMB,
		"max_backups":  s.Log.MaxBackups,
		"max_age_days": s.Log.MaxAgeDays,
		"compress":     s.Log.Compress,
	}
	if s.Log.File != "" {
		log["file"] = s.Log.File
	}

	redis := map[string]any{
		"db":         s.Lock.Redis.DB,
		"key_prefix": s.Lock.Redis.KeyPrefix,
		"expiry":     s.Lock.Redis.Expiry.String(),
	}
	if s.Lock.Redis.Addr != "" {
		redis["addr"] = s.Lock.Redis.Addr
	}

	etcd := map[string]any{
		"key_prefix":   s.Lock.Etcd.KeyPrefix,
		"ttl":          s.Lock.Etcd.TTL.String(),
		"dial_timeout": s.Lock.Etcd.DialTimeout.String(),
	}
	if len(s.Lock.Etcd.Endpoints) > 0 {
		etcd["endpoints"] = s.Lock.Etcd.Endpoints
	}
	if s.Lock.Etcd.Username != "" {
		etcd["username"] = s.Lock.Etcd.Username
	}

	return map[string]any{
		"log": log,
		"pool": map[string]any{
			"core_size":        s.Pool.CoreSize,
			"max_size":         s.Pool.MaxSize,
			"queue_capacity":   s.Pool.QueueCapacity,
			"idle_timeout":     s.Pool.IdleTimeout.String(),
			"rejection_policy": s.Pool.Policy.String(),
		},
		"buffer": map[string]any{
			"capacity":  s.Buffer.Capacity,
			"producers": s.Buffer.Producers,
			"consumers": s.Buffer.Consumers,
			"items":     s.Buffer.Items,
		},
		"lock": map[string]any{
			"timeout_a":  s.Lock.TimeoutA.String(),
			"timeout_b":  s.Lock.TimeoutB.String(),
			"hold":       s.Lock.Hold.String(),
			"attempts":   s.Lock.Attempts,
			"backoff":    s.Lock.Backoff.String(),
			"max_jitter": s.Lock.MaxJitter.String(),
			"redis":      redis,
			"etcd":       etcd,
			"breaker": map[string]any{
				"threshold":    s.Lock.Breaker.Threshold,
				"open_timeout": s.Lock.Breaker.OpenTimeout.String(),
			},
		},
	}
}
