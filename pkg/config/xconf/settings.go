package xconf

import (
	"errors"
	"fmt"
	"time"

	"github.com/omeyang/xconc/pkg/concurrency/xpool"
)

// Settings 是 xconc 的完整配置。
type Settings struct {
	Log    LogSettings    `koanf:"log" json:"log"`
	Pool   xpool.Config   `koanf:"pool" json:"pool"`
	Buffer BufferSettings `koanf:"buffer" json:"buffer"`
	Lock   LockSettings   `koanf:"lock" json:"lock"`
}

// LogSettings 日志配置。File 为空时输出到 stderr。
type LogSettings struct {
	Level      string `koanf:"level" json:"level"`
	Format     string `koanf:"format" json:"format"`
	AddSource  bool   `koanf:"add_source" json:"add_source"`
	File       string `koanf:"file" json:"file,omitempty"`
	MaxSizeMB  int    `koanf:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups" json:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days" json:"max_age_days"`
	Compress   bool   `koanf:"compress" json:"compress"`
}

// BufferSettings 有界缓冲区配置。Producers、Consumers、Items 供演示命令使用。
type BufferSettings struct {
	Capacity  int `koanf:"capacity" json:"capacity"`
	Producers int `koanf:"producers" json:"producers"`
	Consumers int `koanf:"consumers" json:"consumers"`
	Items     int `koanf:"items" json:"items"`
}

// LockSettings 成对加锁配置。
type LockSettings struct {
	// TimeoutA 获取第一把锁的超时。
	TimeoutA time.Duration `koanf:"timeout_a" json:"timeout_a"`
	// TimeoutB 获取第二把锁的超时，0 表示与 TimeoutA 共享预算。
	TimeoutB time.Duration `koanf:"timeout_b" json:"timeout_b"`
	// Hold 演示命令中持有第一把锁后的处理时长。
	Hold time.Duration `koanf:"hold" json:"hold"`

	Attempts  uint          `koanf:"attempts" json:"attempts"`
	Backoff   time.Duration `koanf:"backoff" json:"backoff"`
	MaxJitter time.Duration `koanf:"max_jitter" json:"max_jitter"`

	Redis RedisSettings `koanf:"redis" json:"redis"`
	Etcd  EtcdSettings  `koanf:"etcd" json:"etcd"`

	// Breaker 保护 Redis 与 etcd 后端的熔断参数，进程内锁不使用。
	Breaker BreakerSettings `koanf:"breaker" json:"breaker"`
}

// BreakerSettings 远程锁后端的熔断配置。
type BreakerSettings struct {
	Threshold   uint32        `koanf:"threshold" json:"threshold"`
	OpenTimeout time.Duration `koanf:"open_timeout" json:"open_timeout"`
}

// RedisSettings Redis 锁后端配置。Addr 为空时使用进程内锁。
type RedisSettings struct {
	Addr      string        `koanf:"addr" json:"addr,omitempty"`
	Password  string        `koanf:"password" json:"-"`
	DB        int           `koanf:"db" json:"db"`
	KeyPrefix string        `koanf:"key_prefix" json:"key_prefix"`
	Expiry    time.Duration `koanf:"expiry" json:"expiry"`
}

// EtcdSettings etcd 锁后端配置。Endpoints 为空时不启用。
// 与 Redis 后端互斥，两者同时配置时校验失败。
type EtcdSettings struct {
	Endpoints   []string      `koanf:"endpoints" json:"endpoints,omitempty"`
	Username    string        `koanf:"username" json:"username,omitempty"`
	Password    string        `koanf:"password" json:"-"`
	KeyPrefix   string        `koanf:"key_prefix" json:"key_prefix"`
	TTL         time.Duration `koanf:"ttl" json:"ttl"`
	DialTimeout time.Duration `koanf:"dial_timeout" json:"dial_timeout"`
}

// Defaults 返回默认配置。
func Defaults() Settings {
	return Settings{
		Log: LogSettings{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 7,
			MaxAgeDays: 30,
		},
		Pool: xpool.DefaultConfig(),
		Buffer: BufferSettings{
			Capacity:  10,
			Producers: 1,
			Consumers: 1,
			Items:     20,
		},
		Lock: LockSettings{
			TimeoutA:  10 * time.Second,
			TimeoutB:  10 * time.Second,
			Hold:      2 * time.Second,
			Attempts:  5,
			Backoff:   10 * time.Millisecond,
			MaxJitter: 20 * time.Millisecond,
			Redis: RedisSettings{
				KeyPrefix: "xconc:lock:",
				Expiry:    8 * time.Second,
			},
			Etcd: EtcdSettings{
				KeyPrefix:   "/xconc/lock/",
				TTL:         10 * time.Second,
				DialTimeout: 5 * time.Second,
			},
			Breaker: BreakerSettings{
				Threshold:   5,
				OpenTimeout: 30 * time.Second,
			},
		},
	}
}

// Validate 校验全部配置节，返回所有问题的合并错误。
func (s *Settings) Validate() error {
	var errs []error
	if err := s.Pool.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("pool: %w", err))
	}
	switch s.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", s.Log.Format))
	}
	if s.Buffer.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("buffer.capacity must be positive, got %d", s.Buffer.Capacity))
	}
	if s.Buffer.Producers < 0 || s.Buffer.Consumers < 0 || s.Buffer.Items < 0 {
		errs = append(errs, errors.New("buffer: producers, consumers and items must be >= 0"))
	}
	if s.Lock.TimeoutA <= 0 {
		errs = append(errs, fmt.Errorf("lock.timeout_a must be positive, got %s", s.Lock.TimeoutA))
	}
	if s.Lock.TimeoutB < 0 {
		errs = append(errs, fmt.Errorf("lock.timeout_b must be >= 0, got %s", s.Lock.TimeoutB))
	}
	if s.Lock.Redis.Addr != "" && len(s.Lock.Etcd.Endpoints) > 0 {
		errs = append(errs, errors.New("lock: redis and etcd backends are mutually exclusive"))
	}
	if s.Lock.Etcd.TTL < time.Second {
		errs = append(errs, fmt.Errorf("lock.etcd.ttl must be at least 1s, got %s", s.Lock.Etcd.TTL))
	}
	if s.Lock.Etcd.DialTimeout <= 0 {
		errs = append(errs, fmt.Errorf("lock.etcd.dial_timeout must be positive, got %s", s.Lock.Etcd.DialTimeout))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidSettings, errors.Join(errs...))
}
