package mq

import (
	"context"
	"time"

	"clmm-admin-sol/internal/logic/proposal"
	"clmm-admin-sol/pkg/logger"
	"clmm-admin-sol/pkg/utils"
)

// ProposalSink 把提案事件写入 Kafka，同一 multisig 的事件落在同一分区以保证顺序
type ProposalSink struct {
	sender     *Sender
	topic      string
	partitions uint32
}

func NewProposalSink(producer Producer, topic string, partitions int, timeout time.Duration) *ProposalSink {
	if partitions <= 0 {
		partitions = 1
	}
	return &ProposalSink{
		sender:     NewSender(producer, timeout),
		topic:      topic,
		partitions: uint32(partitions),
	}
}

func (s *ProposalSink) Publish(ctx context.Context, ev proposal.Event) error {
	value, err := EncodeProposalEvent(ev)
	if err != nil {
		return err
	}
	key := ev.Multisig.Bytes()
	job := &KafkaJob{
		Topic:     s.topic,
		Partition: int32(utils.PartitionHashBytes(key, s.partitions)),
		Key:       key,
		Value:     value,
	}

	_, failed := s.sender.Send(ctx, []*KafkaJob{job})
	if len(failed) > 0 {
		return failed[0].Err
	}
	logger.Debugf("[ProposalSink] 事件已投递: type=%s, index=%d, partition=%d", ev.Type, ev.TransactionIndex, job.Partition)
	return nil
}
