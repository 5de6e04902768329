package main

import (
	"flag"
	"fmt"
	"sort"
	"strings"

	"clmm-admin-sol/internal/types"

	"github.com/shopspring/decimal"
)

// pubkeyFlag base58 公钥参数，set 区分“未提供”与全 0 地址
type pubkeyFlag struct {
	key types.Pubkey
	set bool
}

func (f *pubkeyFlag) String() string {
	if f == nil || !f.set {
		return ""
	}
	return f.key.ToBase58()
}

func (f *pubkeyFlag) Set(s string) error {
	k, err := types.TryPubkeyFromBase58(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	f.key, f.set = k, true
	return nil
}

// ptr 未提供时返回 nil
func (f *pubkeyFlag) ptr() *types.Pubkey {
	if !f.set {
		return nil
	}
	k := f.key
	return &k
}

// or 未提供时返回默认值
func (f *pubkeyFlag) or(def types.Pubkey) types.Pubkey {
	if !f.set {
		return def
	}
	return f.key
}

// pubkeyListFlag 逗号分隔或重复出现
type pubkeyListFlag []types.Pubkey

func (f *pubkeyListFlag) String() string {
	parts := make([]string, 0, len(*f))
	for _, k := range *f {
		parts = append(parts, k.ToBase58())
	}
	return strings.Join(parts, ",")
}

func (f *pubkeyListFlag) Set(s string) error {
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, err := types.TryPubkeyFromBase58(part)
		if err != nil {
			return err
		}
		*f = append(*f, k)
	}
	return nil
}

type decimalFlag struct {
	v   decimal.Decimal
	set bool
}

func (f *decimalFlag) String() string {
	if f == nil || !f.set {
		return ""
	}
	return f.v.String()
}

func (f *decimalFlag) Set(s string) error {
	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	f.v, f.set = v, true
	return nil
}

// newFlagSet 子命令参数解析失败时返回错误而不是退出
func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

func pubkeyVar(fs *flag.FlagSet, name, usage string) *pubkeyFlag {
	f := &pubkeyFlag{}
	fs.Var(f, name, usage)
	return f
}

func decimalVar(fs *flag.FlagSet, name, usage string) *decimalFlag {
	f := &decimalFlag{}
	fs.Var(f, name, usage)
	return f
}

// required 列出所有未提供的必填参数
func required(flags map[string]*pubkeyFlag) error {
	var missing []string
	for name, f := range flags {
		if !f.set {
			missing = append(missing, "-"+name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
	}
	return nil
}
