package svc

import (
	"context"
	"fmt"

	"clmm-admin-sol/internal/config"
	"clmm-admin-sol/internal/ledger"
	"clmm-admin-sol/internal/logic/clmm"
	"clmm-admin-sol/internal/logic/progress"
	"clmm-admin-sol/internal/logic/proposal"
	"clmm-admin-sol/internal/mq"
	"clmm-admin-sol/internal/types"
	"clmm-admin-sol/pkg/logger"
	pkgmq "clmm-admin-sol/pkg/mq"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/redis/go-redis/v9"
)

// ServiceContext CLI 与 watcher 共用的资源
type ServiceContext struct {
	Config          *config.Config
	Ledger          *ledger.RPCLedger
	Assembler       *clmm.Assembler
	Mints           *clmm.MintResolver
	MultisigProgram types.Pubkey
	Orchestrator    *proposal.Orchestrator // 未配置 multisig.address 时为 nil
	Producer        *kafka.Producer        // 未配置 kafka brokers 时为 nil
	Redis           *redis.Client          // 未配置 redis_addr 时为 nil
	Progress        progress.Store
	Sink            proposal.EventSink
}

// NewServiceContext 初始化 RPC、事件投递与进度存储
func NewServiceContext(c *config.Config) (*ServiceContext, error) {
	// 1. RPC 账本
	l, err := ledger.NewRPCLedger(c.RPC.ToRPCOptions())
	if err != nil {
		return nil, err
	}

	clmmProgram, err := c.ClmmProgram()
	if err != nil {
		return nil, fmt.Errorf("programs.clmm: %w", err)
	}
	msProgram, err := c.MultisigProgram()
	if err != nil {
		return nil, fmt.Errorf("programs.multisig: %w", err)
	}

	sc := &ServiceContext{
		Config:          c,
		Ledger:          l,
		Assembler:       clmm.NewAssembler(clmmProgram),
		Mints:           clmm.NewMintResolver(l),
		MultisigProgram: msProgram,
	}

	// 2. Kafka 生产者（可选）
	if c.KafkaProducerConf.Brokers != "" {
		producer, err := pkgmq.NewKafkaProducer(c.KafkaProducerConf.ToKafkaOption())
		if err != nil {
			logger.Errorf("[svc] Kafka producer 初始化失败: %v", err)
			return nil, err
		}
		sc.Producer = producer
		sc.Sink = mq.NewProposalSink(producer, c.KafkaProducerConf.Topics.Proposal,
			c.KafkaProducerConf.Partitions.Proposal, c.TimeConf.EventSendTimeout())
	} else {
		sc.Sink = LogSink()
	}

	// 3. 进度存储：Redis 优先，否则使用内存
	if c.RedisAddr != "" {
		sc.Redis = redis.NewClient(&redis.Options{
			Addr:         c.RedisAddr,
			ReadTimeout:  c.TimeConf.RedisTimeout(),
			WriteTimeout: c.TimeConf.RedisTimeout(),
		})
		sc.Progress = progress.NewRedisProgressStore(sc.Redis)
	} else {
		sc.Progress = progress.NewMemoryProgressStore()
	}

	// 4. 提案编排器（可选）
	if c.Multisig.Address != "" {
		msAddr, err := c.MultisigAddress()
		if err != nil {
			sc.Close()
			return nil, fmt.Errorf("multisig.address: %w", err)
		}
		sc.Orchestrator = proposal.NewOrchestrator(l, msProgram, msAddr,
			proposal.WithVaultIndex(c.Multisig.VaultIndex),
			proposal.WithEventSink(sc.Sink),
			proposal.WithComputeBudget(c.ComputeBudget.ToComputeBudget()),
			proposal.WithInstructionNamer(clmmProgram, clmm.InstructionName),
		)
	}

	logger.Infof("[svc] 服务上下文初始化完成: rpc=%s, kafka=%t, redis=%t", c.RPC.Endpoint, sc.Producer != nil, sc.Redis != nil)
	return sc, nil
}

// RequireOrchestrator 提案相关命令使用
func (sc *ServiceContext) RequireOrchestrator() (*proposal.Orchestrator, error) {
	if sc.Orchestrator == nil {
		return nil, fmt.Errorf("multisig.address is not configured")
	}
	return sc.Orchestrator, nil
}

// Close 关闭服务上下文中的资源，未投递完的事件最多等待 5 秒
func (sc *ServiceContext) Close() {
	if sc.Producer != nil {
		if remaining := sc.Producer.Flush(5000); remaining > 0 {
			logger.Warnf("[svc] %d 条 Kafka 消息未投递", remaining)
		}
		sc.Producer.Close()
	}
	if sc.Redis != nil {
		_ = sc.Redis.Close()
	}
}

// LogSink 未配置 Kafka 时只把事件写入日志
func LogSink() proposal.EventSink {
	return proposal.EventSinkFunc(func(_ context.Context, ev proposal.Event) error {
		logger.Infof("[Event] type=%s, multisig=%s, index=%d, status=%s, approved=%d, rejected=%d, sig=%s",
			ev.Type, ev.Multisig.ToBase58(), ev.TransactionIndex, ev.Status, ev.Approved, ev.Rejected, ev.Signature)
		return nil
	})
}
