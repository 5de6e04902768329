package mq

import (
	"context"
	"fmt"
	"time"

	"clmm-admin-sol/pkg/logger"
	"clmm-admin-sol/pkg/utils"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

const (
	defaultBatchSize = 16 * 1024
	defaultLingerMs  = 5
	metadataTimeout  = 10 * time.Second
)

type KafkaProducerOption struct {
	Brokers   string // Kafka broker 地址，多个用英文逗号分隔（如 "localhost:9092,localhost:9093"）
	BatchSize int    // 批处理大小（单位字节）
	LingerMs  int    // 批处理最大延迟（毫秒）；提案事件量很小，保持较低延迟

	Topics []struct {
		Topic      string // topic名称
		Partitions int    // 分区数
	}
}

// NewKafkaProducer 确保 topic 存在后创建幂等生产者
func NewKafkaProducer(cfg KafkaProducerOption) (*kafka.Producer, error) {
	if cfg.Brokers == "" {
		return nil, fmt.Errorf("kafka brokers is empty")
	}
	if err := ensureTopics(cfg); err != nil {
		return nil, err
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	lingerMs := cfg.LingerMs
	if lingerMs < 0 {
		lingerMs = defaultLingerMs
	}

	localIP, _ := utils.GetLocalIP()
	if localIP == "" {
		localIP = "unknown"
	}

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"client.id":         fmt.Sprintf("clmm-admin-%s", localIP),

		// 可靠性保障：同一 multisig 的事件依赖分区内有序
		"acks":                                  "all",
		"enable.idempotence":                    true,
		"max.in.flight.requests.per.connection": 5, // 幂等场景下最大值为 5

		// 超时与重试
		"delivery.timeout.ms": 30000,
		"request.timeout.ms":  30000,
		"retries":             5,
		"retry.backoff.ms":    100,

		"batch.size":        batchSize,
		"linger.ms":         lingerMs,
		"compression.type":  "none",
		"message.max.bytes": 1024 * 1024,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}
	return producer, nil
}

// ensureTopics 创建缺失的 topic，副本数按 broker 数量决定
func ensureTopics(cfg KafkaProducerOption) error {
	adminClient, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer adminClient.Close()

	meta, err := adminClient.GetMetadata(nil, true, int(metadataTimeout.Milliseconds()))
	if err != nil {
		return fmt.Errorf("failed to get metadata: %w", err)
	}

	replicationFactor := 1
	if len(meta.Brokers) > 1 {
		replicationFactor = 2
	}
	logger.Infof("[mq] Kafka broker count = %d, using replication factor = %d", len(meta.Brokers), replicationFactor)

	var topicsToCreate []kafka.TopicSpecification
	for _, topic := range cfg.Topics {
		if topic.Topic == "" {
			continue
		}
		if _, ok := meta.Topics[topic.Topic]; ok {
			continue
		}
		partitions := topic.Partitions
		if partitions <= 0 {
			partitions = 1
		}
		topicsToCreate = append(topicsToCreate, kafka.TopicSpecification{
			Topic:             topic.Topic,
			NumPartitions:     partitions,
			ReplicationFactor: replicationFactor,
		})
	}
	if len(topicsToCreate) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), metadataTimeout)
	defer cancel()
	results, err := adminClient.CreateTopics(ctx, topicsToCreate)
	if err != nil {
		return fmt.Errorf("failed to create topics: %w", err)
	}
	for _, result := range results {
		if code := result.Error.Code(); code != kafka.ErrNoError && code != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("failed to create topic %s: %w", result.Topic, result.Error)
		}
		logger.Infof("[mq] topic ready: %s", result.Topic)
	}
	return nil
}
