package mq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clmm-admin-sol/pkg/logger"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

var ErrDeliveryTimeout = errors.New("mq: delivery timeout")

// Producer *kafka.Producer 满足该接口，测试时可替换
type Producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
}

// KafkaJob 表示一条需要发送的 Kafka 消息
type KafkaJob struct {
	Topic     string
	Partition int32
	Key       []byte // multisig 地址，消费端据此聚合
	Value     []byte
}

// KafkaSendResult 表示每条消息的发送结果
type KafkaSendResult struct {
	Job *KafkaJob
	Err error
}

// Sender 一批消息共用一个 delivery channel，回执按 Opaque 中的序号对应到消息
type Sender struct {
	producer Producer
	timeout  time.Duration
}

func NewSender(producer Producer, timeout time.Duration) *Sender {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Sender{producer: producer, timeout: timeout}
}

// Send 等待整批回执，超时或 ctx 取消时尚未回执的消息记为失败
func (s *Sender) Send(ctx context.Context, jobs []*KafkaJob) (ok []*KafkaJob, failed []KafkaSendResult) {
	// 容量覆盖全部回执，提前返回后迟到的回执也不会阻塞 librdkafka
	deliveryChan := make(chan kafka.Event, len(jobs))
	pending := make(map[int]*KafkaJob, len(jobs))
	for i, job := range jobs {
		err := s.producer.Produce(&kafka.Message{
			TopicPartition: kafka.TopicPartition{Topic: &job.Topic, Partition: job.Partition},
			Key:            job.Key,
			Value:          job.Value,
			Opaque:         i,
		}, deliveryChan)
		if err != nil {
			failed = append(failed, KafkaSendResult{Job: job, Err: fmt.Errorf("produce error: %w", err)})
			continue
		}
		pending[i] = job
	}

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	for len(pending) > 0 {
		select {
		case e := <-deliveryChan:
			msg, isMsg := e.(*kafka.Message)
			if !isMsg {
				logger.Warnf("[KafkaSender] 忽略非消息回执: %T", e)
				continue
			}
			i, _ := msg.Opaque.(int)
			job, found := pending[i]
			if !found {
				continue
			}
			delete(pending, i)
			if msg.TopicPartition.Error != nil {
				failed = append(failed, KafkaSendResult{Job: job, Err: msg.TopicPartition.Error})
			} else {
				ok = append(ok, job)
			}
		case <-timer.C:
			return ok, expire(failed, jobs, pending, fmt.Errorf("%w (>%v)", ErrDeliveryTimeout, s.timeout))
		case <-ctx.Done():
			return ok, expire(failed, jobs, pending, fmt.Errorf("ctx cancelled: %w", ctx.Err()))
		}
	}
	return ok, failed
}

// expire 按原始顺序把未回执的消息记为失败
func expire(failed []KafkaSendResult, jobs []*KafkaJob, pending map[int]*KafkaJob, err error) []KafkaSendResult {
	for i := range jobs {
		if job, found := pending[i]; found {
			failed = append(failed, KafkaSendResult{Job: job, Err: err})
		}
	}
	return failed
}
