package clmm

import (
	"errors"
	"fmt"

	"clmm-admin-sol/internal/types"
)

// 本地校验错误，全部在发起网络请求前返回，不应自动重试
var (
	ErrIncompleteAccounts         = errors.New("clmm: incomplete accounts")
	ErrMissingAuxiliaryAccount    = errors.New("clmm: address-typed update requires exactly one auxiliary account")
	ErrUnexpectedAuxiliaryAccount = errors.New("clmm: numeric update does not take auxiliary accounts")
	ErrUnknownUpdateTag           = errors.New("clmm: unknown update tag")
	ErrInvalidFeeRate             = errors.New("clmm: invalid fee rate")
	ErrSameMint                   = errors.New("clmm: mint0 and mint1 must differ")
	ErrInvalidPrice               = errors.New("clmm: invalid price")
	ErrDiscriminatorMismatch      = errors.New("clmm: account discriminator mismatch")
)

type field struct {
	name string
	key  types.Pubkey
}

// checkAccounts 返回第一个未提供（全 0）的必填账户
func checkAccounts(op string, fields ...field) error {
	for _, f := range fields {
		if types.IsZero(f.key) {
			return fmt.Errorf("%w: %s requires %s", ErrIncompleteAccounts, op, f.name)
		}
	}
	return nil
}
