package mq

import (
	"encoding/binary"
	"errors"
	"fmt"

	"clmm-admin-sol/internal/logic/proposal"
	"clmm-admin-sol/internal/types"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// 事件类型编码，写入消息前 4 字节，新增类型只能追加
const (
	EventCodeUnknown uint32 = iota
	EventCodeProposalCreated
	EventCodeApproved
	EventCodeRejected
	EventCodeCancelled
	EventCodeExecuted
	EventCodeStatusChanged
	EventCodeMultisigCreated
)

var eventCodes = map[proposal.EventType]uint32{
	proposal.EventProposalCreated: EventCodeProposalCreated,
	proposal.EventApproved:        EventCodeApproved,
	proposal.EventRejected:        EventCodeRejected,
	proposal.EventCancelled:       EventCodeCancelled,
	proposal.EventExecuted:        EventCodeExecuted,
	proposal.EventStatusChanged:   EventCodeStatusChanged,
	proposal.EventMultisigCreated: EventCodeMultisigCreated,
}

var ErrShortEvent = errors.New("mq: event payload shorter than type prefix")

// EventCode 未登记的类型返回 EventCodeUnknown
func EventCode(t proposal.EventType) uint32 {
	return eventCodes[t]
}

// EncodeEvent 将 protobuf 消息编码为带事件类型前缀的二进制数据：
// - 前 4 字节为事件类型（uint32，小端序）
// - 后续为 protobuf 序列化数据
func EncodeEvent(eventType uint32, msg proto.Message) ([]byte, error) {
	buf := make([]byte, 4, 4+proto.Size(msg))
	binary.LittleEndian.PutUint32(buf[:4], eventType)

	opts := proto.MarshalOptions{Deterministic: true}
	result, err := opts.MarshalAppend(buf, msg)
	if err != nil {
		return nil, fmt.Errorf("EncodeEvent: marshal %T: %w", msg, err)
	}
	return result, nil
}

// DecodeEvent EncodeEvent 的逆过程，payload 固定为 structpb.Struct
func DecodeEvent(raw []byte) (uint32, *structpb.Struct, error) {
	if len(raw) < 4 {
		return 0, nil, ErrShortEvent
	}
	var s structpb.Struct
	if err := proto.Unmarshal(raw[4:], &s); err != nil {
		return 0, nil, fmt.Errorf("DecodeEvent: %w", err)
	}
	return binary.LittleEndian.Uint32(raw[:4]), &s, nil
}

// EncodeProposalEvent 提案事件转为 structpb 后编码
func EncodeProposalEvent(ev proposal.Event) ([]byte, error) {
	fields := map[string]any{
		"type":              string(ev.Type),
		"multisig":          ev.Multisig.ToBase58(),
		"transaction_index": ev.TransactionIndex,
		"status":            ev.Status,
		"approved":          ev.Approved,
		"rejected":          ev.Rejected,
		"threshold":         uint32(ev.Threshold),
		"timestamp":         ev.Timestamp,
	}
	if !types.IsZero(ev.Actor) {
		fields["actor"] = ev.Actor.ToBase58()
	}
	if ev.Signature != "" {
		fields["signature"] = ev.Signature
	}
	payload, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("EncodeProposalEvent: %w", err)
	}
	return EncodeEvent(EventCode(ev.Type), payload)
}
