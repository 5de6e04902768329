package pda

import (
	"encoding/binary"

	"clmm-admin-sol/internal/consts"
	"clmm-admin-sol/internal/types"
)

// Deriver 绑定 CLMM 程序地址的派生器。
// 注意：CLMM 的数值 seed（config index、tick index）一律大端序，与程序端 to_be_bytes 保持一致。
type Deriver struct {
	programID types.Pubkey
}

func NewDeriver(programID types.Pubkey) *Deriver {
	return &Deriver{programID: programID}
}

func (d *Deriver) ProgramID() types.Pubkey {
	return d.programID
}

func (d *Deriver) AdminGroup() (DerivedAddress, error) {
	return Derive([][]byte{[]byte(consts.SeedAdminGroup)}, d.programID)
}

func (d *Deriver) AmmConfig(index uint16) (DerivedAddress, error) {
	return Derive([][]byte{[]byte(consts.SeedAmmConfig), u16BE(index)}, d.programID)
}

// Pool 派生池子地址，mint 对先按字节序排序，参数顺序不影响结果
func (d *Deriver) Pool(ammConfig, mintA, mintB types.Pubkey) (DerivedAddress, error) {
	mint0, mint1 := SortMints(mintA, mintB)
	return Derive([][]byte{[]byte(consts.SeedPool), ammConfig[:], mint0[:], mint1[:]}, d.programID)
}

func (d *Deriver) PoolVault(pool, mint types.Pubkey) (DerivedAddress, error) {
	return Derive([][]byte{[]byte(consts.SeedPoolVault), pool[:], mint[:]}, d.programID)
}

func (d *Deriver) PoolRewardVault(pool, rewardMint types.Pubkey) (DerivedAddress, error) {
	return Derive([][]byte{[]byte(consts.SeedPoolRewardVault), pool[:], rewardMint[:]}, d.programID)
}

func (d *Deriver) Observation(pool types.Pubkey) (DerivedAddress, error) {
	return Derive([][]byte{[]byte(consts.SeedObservation), pool[:]}, d.programID)
}

func (d *Deriver) TickArrayBitmapExtension(pool types.Pubkey) (DerivedAddress, error) {
	return Derive([][]byte{[]byte(consts.SeedTickArrayBitmapExtension), pool[:]}, d.programID)
}

func (d *Deriver) TickArray(pool types.Pubkey, startIndex int32) (DerivedAddress, error) {
	return Derive([][]byte{[]byte(consts.SeedTickArray), pool[:], i32BE(startIndex)}, d.programID)
}

func (d *Deriver) ProtocolPosition(pool types.Pubkey, tickLower, tickUpper int32) (DerivedAddress, error) {
	return Derive([][]byte{[]byte(consts.SeedPosition), pool[:], i32BE(tickLower), i32BE(tickUpper)}, d.programID)
}

func (d *Deriver) PersonalPosition(nftMint types.Pubkey) (DerivedAddress, error) {
	return Derive([][]byte{[]byte(consts.SeedPosition), nftMint[:]}, d.programID)
}

func (d *Deriver) SupportMint(mint types.Pubkey) (DerivedAddress, error) {
	return Derive([][]byte{[]byte(consts.SeedSupportMint), mint[:]}, d.programID)
}

func (d *Deriver) OffchainReward(pool types.Pubkey) (DerivedAddress, error) {
	return Derive([][]byte{[]byte(consts.SeedOffchainReward), pool[:]}, d.programID)
}

func (d *Deriver) Operation() (DerivedAddress, error) {
	return Derive([][]byte{[]byte(consts.SeedOperation)}, d.programID)
}

// AssociatedTokenAddress ATA 地址，tokenProgram 为空时按 SPL Token 处理
func AssociatedTokenAddress(owner, mint, tokenProgram types.Pubkey) (DerivedAddress, error) {
	if types.IsZero(tokenProgram) {
		tokenProgram = consts.TokenProgram
	}
	return Derive([][]byte{owner[:], tokenProgram[:], mint[:]}, consts.AssociatedTokenProgram)
}

// SortMints 按字节序返回 (mint0, mint1)
func SortMints(a, b types.Pubkey) (types.Pubkey, types.Pubkey) {
	if types.ComparePubkey(a, b) > 0 {
		return b, a
	}
	return a, b
}

func u16BE(v uint16) []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, v)
	return buf
}

func i32BE(v int32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(v))
	return buf
}
