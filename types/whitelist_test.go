package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultshare/types"
)

func fiveAddrs(base byte) []types.Address {
	out := make([]types.Address, 5)
	for i := range out {
		out[i] = types.Address{base + byte(i) + 1}
	}
	return out
}

func TestVerifySigners3of5(t *testing.T) {
	list := fiveAddrs(0)
	info := &types.InvestmentInfo{
		ExecuteWhitelist: list,
		UpdateWhitelist:  fiveAddrs(10),
	}

	require.NoError(t, info.VerifySigners3of5(list[:3], types.WhitelistExecute))
	require.NoError(t, info.VerifySigners3of5(list, types.WhitelistExecute))

	err := info.VerifySigners3of5(list[:2], types.WhitelistExecute)
	assert.True(t, types.ErrIs(err, types.CodeUnauthorizedSigner))

	// 重复签名只算一次
	err = info.VerifySigners3of5([]types.Address{list[0], list[0], list[0]}, types.WhitelistExecute)
	assert.True(t, types.ErrIs(err, types.CodeUnauthorizedSigner))

	// 错表签名
	err = info.VerifySigners3of5(list[:3], types.WhitelistUpdate)
	assert.True(t, types.ErrIs(err, types.CodeUnauthorizedSigner))

	// 提现名单没有签名权
	err = info.VerifySigners3of5(list[:3], types.WhitelistWithdraw)
	assert.True(t, types.ErrIs(err, types.CodeUnauthorizedSigner))

	// 名单不足 5 人直接拒绝
	short := &types.InvestmentInfo{ExecuteWhitelist: list[:4]}
	err = short.VerifySigners3of5(list[:3], types.WhitelistExecute)
	assert.True(t, types.ErrIs(err, types.CodeWhitelistMustBeFive))
}

func TestPatchWhitelist(t *testing.T) {
	list := fiveAddrs(0)
	orig := append([]types.Address(nil), list...)
	to := types.Address{99}

	require.NoError(t, types.PatchWhitelist(list, orig[2], to))
	assert.Equal(t, to, list[2])
	// 其余四槽不动
	for i, a := range list {
		if i == 2 {
			continue
		}
		assert.Equal(t, orig[i], a)
	}
}

func TestPatchWhitelistErrors(t *testing.T) {
	list := fiveAddrs(0)

	err := types.PatchWhitelist(list, types.Address{42}, types.Address{43})
	assert.True(t, types.ErrIs(err, types.CodeWhitelistAddressNotFound))

	err = types.PatchWhitelist(list, list[0], list[1])
	assert.True(t, types.ErrIs(err, types.CodeWhitelistAddressExists))

	// from == to 固定按 "已存在" 拒绝
	err = types.PatchWhitelist(list, list[0], list[0])
	assert.True(t, types.ErrIs(err, types.CodeWhitelistAddressExists))
}

func TestValidateWithdrawSet(t *testing.T) {
	require.NoError(t, types.ValidateWithdrawSet(fiveAddrs(0)[:1]))
	require.NoError(t, types.ValidateWithdrawSet(fiveAddrs(0)))

	err := types.ValidateWithdrawSet(nil)
	assert.True(t, types.ErrIs(err, types.CodeWhitelistLengthInvalid))

	six := append(fiveAddrs(0), types.Address{77})
	err = types.ValidateWithdrawSet(six)
	assert.True(t, types.ErrIs(err, types.CodeWhitelistLengthInvalid))

	dup := fiveAddrs(0)
	dup[4] = dup[0]
	err = types.ValidateWithdrawSet(dup)
	assert.True(t, types.ErrIs(err, types.CodeWhitelistAddressExists))

	zero := fiveAddrs(0)
	zero[1] = types.ZeroAddress
	err = types.ValidateWithdrawSet(zero)
	assert.True(t, types.ErrIs(err, types.CodeInvalidRecipientAddress))
}
