package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultshare/types"
)

func TestDeriveAddressDeterministic(t *testing.T) {
	a := types.DeriveAddress([]byte("investment"), []byte("abc"))
	b := types.DeriveAddress([]byte("investment"), []byte("abc"))
	assert.Equal(t, a, b)

	// 种子边界不同则地址不同（长度前缀防拼接歧义）
	c := types.DeriveAddress([]byte("investmenta"), []byte("bc"))
	assert.NotEqual(t, a, c)
}

func TestIDValidation(t *testing.T) {
	_, err := types.NewInvestmentID("short")
	assert.True(t, types.ErrIs(err, types.CodeInvalidInvestmentIdLength))

	_, err = types.NewAccountID("short")
	assert.True(t, types.ErrIs(err, types.CodeInvalidAccountIdLength))

	_, err = types.NewVersion("v1")
	assert.Error(t, err)
}

func TestSeedSchemesDistinct(t *testing.T) {
	id, ver, acct := testIDs(t)

	addrs := []types.Address{
		types.InvestmentAddress(id, ver),
		types.VaultAddress(id, ver),
		types.RecordAddress(id, ver, 1, 1, acct),
		types.RecordAddress(id, ver, 1, 2, acct),
		types.ProfitCacheAddress(id, ver, 1),
		types.ProfitCacheAddress(id, ver, 2),
		types.RefundCacheAddress(id, ver, 1, 3),
		types.RefundCacheAddress(id, ver, 1, 4),
		types.LookupTableAddress(types.LookupKindRecord, id, ver, 1, 0),
		types.LookupTableAddress(types.LookupKindCache, id, ver, 1, 0),
		types.TokenAccountAddress(types.Address{1}, types.UsdtMint),
		types.TokenAccountAddress(types.Address{1}, types.HcoinMint),
	}
	seen := make(map[types.Address]struct{}, len(addrs))
	for i, a := range addrs {
		require.False(t, a.IsZero())
		_, dup := seen[a]
		require.False(t, dup, "addr %d collides", i)
		seen[a] = struct{}{}
	}
}

func TestAddressString(t *testing.T) {
	a := types.Address{0xDE, 0xAD}
	assert.NotEmpty(t, a.String())
	back := a.String()
	assert.Equal(t, back, a.String())
	assert.NotEqual(t, a.String(), types.Address{0xBE}.String())
}
