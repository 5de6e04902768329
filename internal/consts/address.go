package consts

import "clmm-admin-sol/internal/types"

// Base58 地址常量（可读性高，适合配置与日志使用）
const (
	// Programs
	SystemProgramStr          = "11111111111111111111111111111111"
	TokenProgramStr           = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	TokenProgram2022Str       = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
	AssociatedTokenProgramStr = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
	ComputeBudgetProgramIdStr = "ComputeBudget111111111111111111111111111111"
	MemoProgramStr            = "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr"
	SysvarRentStr             = "SysvarRent111111111111111111111111111111111"

	// CLMM 主网程序
	ClmmProgramStr = "REALQqNEomY6cQGZJUGwywTBD2UmDT32rZcNnfxQ5N2"

	// Squads v4 多签程序
	SquadsProgramStr = "SQDS4ep65T869zMMBKyuUq6aD6EgTu8psMjkvj52pCf"

	// 常用 mint
	WSOLMintStr = "So11111111111111111111111111111111111111112"
	USDCMintStr = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDTMintStr = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

var (
	// Programs
	SystemProgram          = types.PubkeyFromBase58(SystemProgramStr)
	TokenProgram           = types.PubkeyFromBase58(TokenProgramStr)
	TokenProgram2022       = types.PubkeyFromBase58(TokenProgram2022Str)
	AssociatedTokenProgram = types.PubkeyFromBase58(AssociatedTokenProgramStr)
	ComputeBudgetProgram   = types.PubkeyFromBase58(ComputeBudgetProgramIdStr)
	MemoProgram            = types.PubkeyFromBase58(MemoProgramStr)
	SysvarRent             = types.PubkeyFromBase58(SysvarRentStr)

	ClmmProgram   = types.PubkeyFromBase58(ClmmProgramStr)
	SquadsProgram = types.PubkeyFromBase58(SquadsProgramStr)

	WSOLMint = types.PubkeyFromBase58(WSOLMintStr)
	USDCMint = types.PubkeyFromBase58(USDCMintStr)
	USDTMint = types.PubkeyFromBase58(USDTMintStr)
)

// IsTokenProgram 判断是否为 SPL Token 或 Token-2022 程序
func IsTokenProgram(p types.Pubkey) bool {
	return p == TokenProgram || p == TokenProgram2022
}
