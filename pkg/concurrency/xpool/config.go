package xpool

import (
	"fmt"
	"strings"
	"time"
)

// RejectionPolicy 决定 worker 与队列都饱和时如何处理新任务。
// 零值为 PolicyAbort。
type RejectionPolicy int

const (
	// PolicyAbort 拒绝提交，Submit 返回 ErrPoolSaturated。
	PolicyAbort RejectionPolicy = iota
	// PolicyDiscardOldest 丢弃队头任务（不执行）后将新任务入队；
	// 队列为空时退化为 PolicyAbort。
	PolicyDiscardOldest
	// PolicyDiscardNewest 静默丢弃新任务，Submit 返回 nil。
	PolicyDiscardNewest
	// PolicyCallerRuns 在调用方 goroutine 同步执行任务，执行完后 Submit 返回。
	PolicyCallerRuns
)

var policyNames = [...]string{
	PolicyAbort:         "abort",
	PolicyDiscardOldest: "discard_oldest",
	PolicyDiscardNewest: "discard_newest",
	PolicyCallerRuns:    "caller_runs",
}

// String 返回策略名称。
func (p RejectionPolicy) String() string {
	if p.valid() {
		return policyNames[p]
	}
	return fmt.Sprintf("RejectionPolicy(%d)", int(p))
}

func (p RejectionPolicy) valid() bool {
	return p >= PolicyAbort && int(p) < len(policyNames)
}

// MarshalText 实现 encoding.TextMarshaler。
func (p RejectionPolicy) MarshalText() ([]byte, error) {
	if !p.valid() {
		return nil, fmt.Errorf("%w: unknown rejection policy %d", ErrInvalidConfig, int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler，支持配置文件直接写策略名。
func (p *RejectionPolicy) UnmarshalText(data []byte) error {
	parsed, err := ParsePolicy(string(data))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePolicy 解析策略名（大小写不敏感，允许 - 代替 _）。
// 另接受 run_by_caller 作为 caller_runs 的别名。
func ParsePolicy(s string) (RejectionPolicy, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	switch normalized {
	case "", "abort":
		return PolicyAbort, nil
	case "discard_oldest":
		return PolicyDiscardOldest, nil
	case "discard_newest", "discard":
		return PolicyDiscardNewest, nil
	case "caller_runs", "run_by_caller":
		return PolicyCallerRuns, nil
	default:
		return PolicyAbort, fmt.Errorf("%w: unknown rejection policy %q", ErrInvalidConfig, s)
	}
}

// Config 定义 pool 的容量与策略。
type Config struct {
	// CoreSize 常驻 worker 数，空闲时不退出。
	CoreSize int `koanf:"core_size" json:"core_size"`
	// MaxSize 同时存活的 worker 上限，至少为 1。
	MaxSize int `koanf:"max_size" json:"max_size"`
	// QueueCapacity 等待队列容量，0 表示不排队。
	QueueCapacity int `koanf:"queue_capacity" json:"queue_capacity"`
	// IdleTimeout 非核心 worker 空闲多久后退出，0 表示空闲立即退出。
	IdleTimeout time.Duration `koanf:"idle_timeout" json:"idle_timeout"`
	// Policy 饱和时的拒绝策略。
	Policy RejectionPolicy `koanf:"rejection_policy" json:"rejection_policy"`
}

// DefaultConfig 返回默认配置：核心 3、最大 5、队列 10、空闲 10s、Abort。
func DefaultConfig() Config {
	return Config{
		CoreSize:      3,
		MaxSize:       5,
		QueueCapacity: 10,
		IdleTimeout:   10 * time.Second,
		Policy:        PolicyAbort,
	}
}

// Validate 检查配置是否有效。
func (c Config) Validate() error {
	switch {
	case c.CoreSize < 0:
		return fmt.Errorf("%w: core_size must be >= 0, got %d", ErrInvalidConfig, c.CoreSize)
	case c.MaxSize < 1:
		return fmt.Errorf("%w: max_size must be >= 1, got %d", ErrInvalidConfig, c.MaxSize)
	case c.CoreSize > c.MaxSize:
		return fmt.Errorf("%w: core_size %d exceeds max_size %d", ErrInvalidConfig, c.CoreSize, c.MaxSize)
	case c.QueueCapacity < 0:
		return fmt.Errorf("%w: queue_capacity must be >= 0, got %d", ErrInvalidConfig, c.QueueCapacity)
	case c.IdleTimeout < 0:
		return fmt.Errorf("%w: idle_timeout must be >= 0, got %s", ErrInvalidConfig, c.IdleTimeout)
	case !c.Policy.valid():
		return fmt.Errorf("%w: unknown rejection policy %d", ErrInvalidConfig, int(c.Policy))
	}
	return nil
}
