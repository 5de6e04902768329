package multisig

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"clmm-admin-sol/internal/types"

	soltypes "github.com/blocto/solana-go-sdk/types"
	bin "github.com/gagliardetto/binary"
)

const (
	maxMessageKeys  = 255
	maxIxDataLength = 65535
)

var (
	ErrTooManyAccounts     = errors.New("multisig: transaction message exceeds 255 account keys")
	ErrInstructionTooLarge = errors.New("multisig: instruction data exceeds 65535 bytes")
	ErrEmptyMessage        = errors.New("multisig: no instructions to wrap")
	ErrMalformedMessage    = errors.New("multisig: malformed transaction message")
)

type CompiledInstruction struct {
	ProgramIDIndex uint8
	AccountIndexes []uint8
	Data           []byte
}

type AddressTableLookup struct {
	AccountKey      types.Pubkey
	WritableIndexes []uint8
	ReadonlyIndexes []uint8
}

// TransactionMessage vault 交易里保存的消息体。
// 账户顺序：可写签名者、只读签名者、可写非签名者、只读非签名者。
type TransactionMessage struct {
	NumSigners            uint8
	NumWritableSigners    uint8
	NumWritableNonSigners uint8
	AccountKeys           []types.Pubkey
	Instructions          []CompiledInstruction
	AddressTableLookups   []AddressTableLookup
}

type keyMeta struct {
	key        types.Pubkey
	isSigner   bool
	isWritable bool
}

// CompileTransactionMessage 按 web3 CompiledKeys 的规则把指令编译成 vault 消息，payer 固定排第一。
// 同组内保持首次出现的顺序。
func CompileTransactionMessage(payer types.Pubkey, ixs []soltypes.Instruction) (*TransactionMessage, error) {
	if len(ixs) == 0 {
		return nil, ErrEmptyMessage
	}

	metas := []*keyMeta{{key: payer, isSigner: true, isWritable: true}}
	index := map[types.Pubkey]*keyMeta{payer: metas[0]}
	getOrInsert := func(k types.Pubkey) *keyMeta {
		if m, ok := index[k]; ok {
			return m
		}
		m := &keyMeta{key: k}
		index[k] = m
		metas = append(metas, m)
		return m
	}

	for _, ix := range ixs {
		if len(ix.Data) > maxIxDataLength {
			return nil, fmt.Errorf("%w: program %s has %d bytes", ErrInstructionTooLarge, ix.ProgramID.ToBase58(), len(ix.Data))
		}
		getOrInsert(ix.ProgramID)
		for _, a := range ix.Accounts {
			m := getOrInsert(a.PubKey)
			m.isSigner = m.isSigner || a.IsSigner
			m.isWritable = m.isWritable || a.IsWritable
		}
	}
	if len(metas) > maxMessageKeys {
		return nil, fmt.Errorf("%w: got %d", ErrTooManyAccounts, len(metas))
	}

	var ws, rs, wn, rn []types.Pubkey
	for _, m := range metas {
		switch {
		case m.isSigner && m.isWritable:
			ws = append(ws, m.key)
		case m.isSigner:
			rs = append(rs, m.key)
		case m.isWritable:
			wn = append(wn, m.key)
		default:
			rn = append(rn, m.key)
		}
	}

	keys := make([]types.Pubkey, 0, len(metas))
	keys = append(keys, ws...)
	keys = append(keys, rs...)
	keys = append(keys, wn...)
	keys = append(keys, rn...)

	pos := make(map[types.Pubkey]uint8, len(keys))
	for i, k := range keys {
		pos[k] = uint8(i)
	}

	msg := &TransactionMessage{
		NumSigners:            uint8(len(ws) + len(rs)),
		NumWritableSigners:    uint8(len(ws)),
		NumWritableNonSigners: uint8(len(wn)),
		AccountKeys:           keys,
		Instructions:          make([]CompiledInstruction, 0, len(ixs)),
		AddressTableLookups:   []AddressTableLookup{},
	}
	for _, ix := range ixs {
		ci := CompiledInstruction{
			ProgramIDIndex: pos[ix.ProgramID],
			AccountIndexes: make([]uint8, 0, len(ix.Accounts)),
			Data:           append([]byte(nil), ix.Data...),
		}
		for _, a := range ix.Accounts {
			ci.AccountIndexes = append(ci.AccountIndexes, pos[a.PubKey])
		}
		msg.Instructions = append(msg.Instructions, ci)
	}
	return msg, nil
}

func (m *TransactionMessage) IsSigner(i int) bool {
	return i >= 0 && i < int(m.NumSigners)
}

func (m *TransactionMessage) IsWritable(i int) bool {
	if i < 0 || i >= len(m.AccountKeys) {
		return false
	}
	if i < int(m.NumSigners) {
		return i < int(m.NumWritableSigners)
	}
	return i-int(m.NumSigners) < int(m.NumWritableNonSigners)
}

// Encode vault_transaction_create 参数里的 SmallVec 编码：
// key/指令/索引/lookup 数量用 u8，指令 data 长度用 u16
func (m *TransactionMessage) Encode() ([]byte, error) {
	if len(m.AccountKeys) > maxMessageKeys || len(m.Instructions) > maxMessageKeys || len(m.AddressTableLookups) > maxMessageKeys {
		return nil, ErrTooManyAccounts
	}

	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	write := func(fns ...func() error) error {
		for _, fn := range fns {
			if err := fn(); err != nil {
				return err
			}
		}
		return nil
	}

	err := write(
		func() error { return enc.WriteUint8(m.NumSigners) },
		func() error { return enc.WriteUint8(m.NumWritableSigners) },
		func() error { return enc.WriteUint8(m.NumWritableNonSigners) },
		func() error { return enc.WriteUint8(uint8(len(m.AccountKeys))) },
	)
	if err != nil {
		return nil, err
	}
	for _, k := range m.AccountKeys {
		if err := enc.WriteBytes(k[:], false); err != nil {
			return nil, err
		}
	}

	if err := enc.WriteUint8(uint8(len(m.Instructions))); err != nil {
		return nil, err
	}
	for _, ix := range m.Instructions {
		if len(ix.AccountIndexes) > maxMessageKeys {
			return nil, ErrTooManyAccounts
		}
		if len(ix.Data) > maxIxDataLength {
			return nil, ErrInstructionTooLarge
		}
		err := write(
			func() error { return enc.WriteUint8(ix.ProgramIDIndex) },
			func() error { return enc.WriteUint8(uint8(len(ix.AccountIndexes))) },
			func() error { return enc.WriteBytes(ix.AccountIndexes, false) },
			func() error { return enc.WriteUint16(uint16(len(ix.Data)), binary.LittleEndian) },
			func() error { return enc.WriteBytes(ix.Data, false) },
		)
		if err != nil {
			return nil, err
		}
	}

	if err := enc.WriteUint8(uint8(len(m.AddressTableLookups))); err != nil {
		return nil, err
	}
	for _, l := range m.AddressTableLookups {
		err := write(
			func() error { return enc.WriteBytes(l.AccountKey[:], false) },
			func() error { return enc.WriteUint8(uint8(len(l.WritableIndexes))) },
			func() error { return enc.WriteBytes(l.WritableIndexes, false) },
			func() error { return enc.WriteUint8(uint8(len(l.ReadonlyIndexes))) },
			func() error { return enc.WriteBytes(l.ReadonlyIndexes, false) },
		)
		if err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DecodeTransactionMessage Encode 的逆过程（SmallVec 编码）
func DecodeTransactionMessage(data []byte) (*TransactionMessage, error) {
	dec := bin.NewBorshDecoder(data)
	msg, err := decodeMessage(dec, smallVecLen)
	if err != nil {
		return nil, err
	}
	if dec.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedMessage, dec.Remaining())
	}
	return msg, nil
}

// lengthReader 区分 SmallVec（u8/u16）和账户里 borsh Vec（u32）两种长度前缀
type lengthReader func(dec *bin.Decoder, wide bool) (int, error)

func smallVecLen(dec *bin.Decoder, wide bool) (int, error) {
	if wide {
		n, err := dec.ReadUint16(binary.LittleEndian)
		return int(n), err
	}
	n, err := dec.ReadUint8()
	return int(n), err
}

func borshVecLen(dec *bin.Decoder, _ bool) (int, error) {
	n, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return 0, err
	}
	if int(n) > dec.Remaining() {
		return 0, fmt.Errorf("%w: vec length %d exceeds remaining %d", ErrMalformedMessage, n, dec.Remaining())
	}
	return int(n), nil
}

func decodeMessage(dec *bin.Decoder, readLen lengthReader) (*TransactionMessage, error) {
	var (
		msg TransactionMessage
		err error
	)
	if msg.NumSigners, err = dec.ReadUint8(); err != nil {
		return nil, wrapMalformed(err)
	}
	if msg.NumWritableSigners, err = dec.ReadUint8(); err != nil {
		return nil, wrapMalformed(err)
	}
	if msg.NumWritableNonSigners, err = dec.ReadUint8(); err != nil {
		return nil, wrapMalformed(err)
	}

	nKeys, err := readLen(dec, false)
	if err != nil {
		return nil, wrapMalformed(err)
	}
	msg.AccountKeys = make([]types.Pubkey, nKeys)
	for i := range msg.AccountKeys {
		if msg.AccountKeys[i], err = readPubkey(dec); err != nil {
			return nil, wrapMalformed(err)
		}
	}

	nIxs, err := readLen(dec, false)
	if err != nil {
		return nil, wrapMalformed(err)
	}
	msg.Instructions = make([]CompiledInstruction, nIxs)
	for i := range msg.Instructions {
		ix := &msg.Instructions[i]
		if ix.ProgramIDIndex, err = dec.ReadUint8(); err != nil {
			return nil, wrapMalformed(err)
		}
		if ix.AccountIndexes, err = readBytes(dec, readLen, false); err != nil {
			return nil, wrapMalformed(err)
		}
		if ix.Data, err = readBytes(dec, readLen, true); err != nil {
			return nil, wrapMalformed(err)
		}
		if int(ix.ProgramIDIndex) >= nKeys {
			return nil, fmt.Errorf("%w: program index %d out of %d keys", ErrMalformedMessage, ix.ProgramIDIndex, nKeys)
		}
	}

	nLookups, err := readLen(dec, false)
	if err != nil {
		return nil, wrapMalformed(err)
	}
	msg.AddressTableLookups = make([]AddressTableLookup, nLookups)
	for i := range msg.AddressTableLookups {
		l := &msg.AddressTableLookups[i]
		if l.AccountKey, err = readPubkey(dec); err != nil {
			return nil, wrapMalformed(err)
		}
		if l.WritableIndexes, err = readBytes(dec, readLen, false); err != nil {
			return nil, wrapMalformed(err)
		}
		if l.ReadonlyIndexes, err = readBytes(dec, readLen, false); err != nil {
			return nil, wrapMalformed(err)
		}
	}
	return &msg, nil
}

func readBytes(dec *bin.Decoder, readLen lengthReader, wide bool) ([]byte, error) {
	n, err := readLen(dec, wide)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []byte{}, nil
	}
	return dec.ReadNBytes(n)
}

func readPubkey(dec *bin.Decoder) (types.Pubkey, error) {
	var p types.Pubkey
	b, err := dec.ReadNBytes(32)
	if err != nil {
		return p, err
	}
	copy(p[:], b)
	return p, nil
}

func wrapMalformed(err error) error {
	if errors.Is(err, ErrMalformedMessage) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
}
