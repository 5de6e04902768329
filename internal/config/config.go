package config

import (
	"fmt"
	"os"
	"time"

	"clmm-admin-sol/internal/consts"
	"clmm-admin-sol/internal/ledger"
	"clmm-admin-sol/internal/types"
	"clmm-admin-sol/pkg/logger"
	"clmm-admin-sol/pkg/mq"

	"gopkg.in/yaml.v3"
)

type LogConfig struct {
	Format   string `yaml:"format"`   // 日志格式，支持 "console" 或 "json"
	LogDir   string `yaml:"log_dir"`  // 日志目录（可为相对路径或绝对路径）
	Level    string `yaml:"level"`    // 日志级别：debug / info / warn / error
	Compress bool   `yaml:"compress"` // 是否压缩旧日志文件
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

// RPCConfig Solana JSON-RPC 节点配置
type RPCConfig struct {
	Endpoint          string `yaml:"endpoint"`            // RPC 地址，例如 https://api.devnet.solana.com
	RequestTimeoutMs  int    `yaml:"request_timeout_ms"`  // 单次请求超时（毫秒）
	ConfirmTimeoutSec int    `yaml:"confirm_timeout_sec"` // 等待交易确认的超时（秒）
	ConfirmIntervalMs int    `yaml:"confirm_interval_ms"` // 轮询签名状态的间隔（毫秒）
}

func (c *RPCConfig) ToRPCOptions() ledger.RPCOptions {
	return ledger.RPCOptions{
		Endpoint:        c.Endpoint,
		RequestTimeout:  time.Duration(c.RequestTimeoutMs) * time.Millisecond,
		ConfirmTimeout:  time.Duration(c.ConfirmTimeoutSec) * time.Second,
		ConfirmInterval: time.Duration(c.ConfirmIntervalMs) * time.Millisecond,
	}
}

// ProgramsConfig 程序地址，为空时使用内置的主网地址
type ProgramsConfig struct {
	Clmm     string `yaml:"clmm"`     // CLMM 程序地址
	Multisig string `yaml:"multisig"` // Squads v4 程序地址
}

// MultisigConfig 提案流程使用的多签
type MultisigConfig struct {
	Address    string `yaml:"address"`     // multisig 账户地址
	VaultIndex uint8  `yaml:"vault_index"` // vault 序号，默认 0
}

// ComputeBudgetConfig 交易前置的计算预算指令，均为 0 时不附加
type ComputeBudgetConfig struct {
	UnitLimit uint32 `yaml:"unit_limit"` // SetComputeUnitLimit
	UnitPrice uint64 `yaml:"unit_price"` // SetComputeUnitPrice（micro-lamports）
}

func (c *ComputeBudgetConfig) ToComputeBudget() ledger.ComputeBudget {
	return ledger.ComputeBudget{UnitLimit: c.UnitLimit, UnitPrice: c.UnitPrice}
}

// KafkaProducerConfig 表示 Kafka 生产者相关配置
type KafkaProducerConfig struct {
	Brokers   string `yaml:"brokers"`    // Kafka broker 地址，多个用英文逗号分隔
	BatchSize int    `yaml:"batch_size"` // 批处理大小（单位字节）
	LingerMs  int    `yaml:"linger_ms"`  // 批处理最大延迟（毫秒）

	Topics struct {
		Proposal string `yaml:"proposal"` // 提案生命周期事件的 Kafka topic
	} `yaml:"topics"`

	Partitions struct {
		Proposal int `yaml:"proposal"` // proposal topic 的分区数
	} `yaml:"partitions"`
}

func (c *KafkaProducerConfig) ToKafkaOption() mq.KafkaProducerOption {
	return mq.KafkaProducerOption{
		Brokers:   c.Brokers,
		BatchSize: c.BatchSize,
		LingerMs:  c.LingerMs,
		Topics: []struct {
			Topic      string
			Partitions int
		}{
			{Topic: c.Topics.Proposal, Partitions: c.Partitions.Proposal},
		},
	}
}

// WatcherConfig 提案状态轮询配置
type WatcherConfig struct {
	PollIntervalSec int `yaml:"poll_interval_sec"` // 轮询间隔（秒）
	ScanWindow      int `yaml:"scan_window"`       // 每轮最多回看的提案数量，0 表示从 stale index 之后全部扫描
}

// TimeConfig 表示各种超时配置（单位：毫秒）
type TimeConfig struct {
	EventSendTimeoutMs int `yaml:"event_send_timeout_ms"` // 单条事件发送到 Kafka 并等待 ack 的超时时间
	RedisTimeoutMs     int `yaml:"redis_timeout_ms"`      // 单次 Redis 读写超时
}

// GrpcConfig yellowstone 账户订阅配置，endpoint 为空时不启用
type GrpcConfig struct {
	Endpoint string `yaml:"endpoint"` // gRPC 服务端地址
	XToken   string `yaml:"x_token"`  // x-token 认证

	// 应用级逻辑心跳（ping）配置
	StreamPingIntervalSec int `yaml:"stream_ping_interval_sec"` // 应用层 ping 心跳间隔（秒）

	// gRPC Keepalive 底层连接检测配置
	KeepalivePingIntervalSec int `yaml:"keepalive_ping_interval_sec"` // 底层 keepalive 间隔（秒）
	KeepalivePingTimeoutSec  int `yaml:"keepalive_ping_timeout_sec"`  // 底层 keepalive 超时（秒）

	// 消息体大小限制
	MaxCallSendMsgSize int `yaml:"max_call_send_msg_size"` // 单条消息最大发送字节数
	MaxCallRecvMsgSize int `yaml:"max_call_recv_msg_size"` // 单条消息最大接收字节数

	// 超时与重连策略
	ReconnectIntervalSec int `yaml:"reconnect_interval_sec"` // 重连最小间隔（秒）
	ConnectTimeoutSec    int `yaml:"connect_timeout_sec"`    // 连接建立超时（秒）
	SendTimeoutSec       int `yaml:"send_timeout_sec"`       // 发送超时（秒）
}

// Config 是主配置结构体，CLI 与 watcher 共用
type Config struct {
	LogConf           LogConfig           `yaml:"logger"`         // 日志配置
	RPC               RPCConfig           `yaml:"rpc"`            // RPC 节点
	Programs          ProgramsConfig      `yaml:"programs"`       // 程序地址
	Multisig          MultisigConfig      `yaml:"multisig"`       // 多签
	ComputeBudget     ComputeBudgetConfig `yaml:"compute_budget"` // 计算预算
	Keypair           string              `yaml:"keypair"`        // 默认签名者 keypair 文件（JSON 数组或 base58）
	KafkaProducerConf KafkaProducerConfig `yaml:"kafka_producer"` // Kafka 生产者配置，brokers 为空时不投递事件
	RedisAddr         string              `yaml:"redis_addr"`     // Redis 地址，watcher 进度存储
	Watcher           WatcherConfig       `yaml:"watcher"`        // watcher 配置
	Grpc              GrpcConfig          `yaml:"grpc"`           // gRPC 账户订阅
	TimeConf          TimeConfig          `yaml:"time_conf"`      // 时间相关配置
}

// Load 读取 YAML 配置并补齐默认值
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.setDefaults()
	return &c, nil
}

func (c *Config) setDefaults() {
	if c.Watcher.PollIntervalSec <= 0 {
		c.Watcher.PollIntervalSec = 10
	}
	if c.TimeConf.EventSendTimeoutMs <= 0 {
		c.TimeConf.EventSendTimeoutMs = 5000
	}
	if c.TimeConf.RedisTimeoutMs <= 0 {
		c.TimeConf.RedisTimeoutMs = 1000
	}
	if c.Grpc.StreamPingIntervalSec <= 0 {
		c.Grpc.StreamPingIntervalSec = 10
	}
	if c.Grpc.ReconnectIntervalSec <= 0 {
		c.Grpc.ReconnectIntervalSec = 3
	}
	if c.Grpc.ConnectTimeoutSec <= 0 {
		c.Grpc.ConnectTimeoutSec = 10
	}
	if c.Grpc.SendTimeoutSec <= 0 {
		c.Grpc.SendTimeoutSec = 5
	}
}

// ClmmProgram 配置的 CLMM 程序地址，未配置时使用内置地址
func (c *Config) ClmmProgram() (types.Pubkey, error) {
	if c.Programs.Clmm == "" {
		return consts.ClmmProgram, nil
	}
	return types.TryPubkeyFromBase58(c.Programs.Clmm)
}

// MultisigProgram 配置的 Squads 程序地址，未配置时使用内置地址
func (c *Config) MultisigProgram() (types.Pubkey, error) {
	if c.Programs.Multisig == "" {
		return consts.SquadsProgram, nil
	}
	return types.TryPubkeyFromBase58(c.Programs.Multisig)
}

// MultisigAddress 未配置时返回错误
func (c *Config) MultisigAddress() (types.Pubkey, error) {
	if c.Multisig.Address == "" {
		return types.Pubkey{}, fmt.Errorf("multisig.address is not configured")
	}
	return types.TryPubkeyFromBase58(c.Multisig.Address)
}

func (c *TimeConfig) EventSendTimeout() time.Duration {
	return time.Duration(c.EventSendTimeoutMs) * time.Millisecond
}

func (c *TimeConfig) RedisTimeout() time.Duration {
	return time.Duration(c.RedisTimeoutMs) * time.Millisecond
}
