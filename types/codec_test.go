package types_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultshare/types"
)

func testIDs(t *testing.T) (types.InvestmentID, types.Version, types.AccountID) {
	t.Helper()
	id, err := types.NewInvestmentID("inv000000000001")
	require.NoError(t, err)
	ver, err := types.NewVersion("v001")
	require.NoError(t, err)
	acct, err := types.NewAccountID("acct00000000001")
	require.NoError(t, err)
	return id, ver, acct
}

// 记录账户的字节布局是外部接口契约：区间过滤按固定偏移比对原始字节。
func TestInvestmentRecordLayout(t *testing.T) {
	id, ver, acct := testIDs(t)
	rec := &types.InvestmentRecord{
		BatchID:      3,
		RecordID:     77,
		AccountID:    acct,
		InvestmentID: id,
		Version:      ver,
		Wallet:       types.Address{0xAA},
		AmountUsdt:   123456,
		AmountHcoin:  654321,
		Stage:        2,
		RevokedAt:    0,
		CreatedAt:    1700000000,
	}
	raw := rec.Marshal()
	require.Len(t, raw, types.RecordSize)

	assert.Equal(t, types.DiscInvestmentRecord[:], raw[:8])
	assert.Equal(t, uint16(3), binary.LittleEndian.Uint16(raw[types.RecordOffBatchID:]))
	assert.Equal(t, uint64(77), binary.LittleEndian.Uint64(raw[types.RecordOffRecordID:]))
	assert.Equal(t, acct[:], raw[types.RecordOffAccountID:types.RecordOffAccountID+15])
	assert.Equal(t, id[:], raw[types.RecordOffInvestmentID:types.RecordOffInvestmentID+15])
	assert.Equal(t, ver[:], raw[types.RecordOffVersion:types.RecordOffVersion+4])
	assert.Equal(t, uint64(123456), binary.LittleEndian.Uint64(raw[types.RecordOffAmountUsdt:]))
	assert.Equal(t, uint64(654321), binary.LittleEndian.Uint64(raw[types.RecordOffAmountHcoin:]))
	assert.Equal(t, uint8(2), raw[types.RecordOffStage])

	back, err := types.UnmarshalInvestmentRecord(raw)
	require.NoError(t, err)
	assert.Equal(t, rec, back)
}

func TestInvestmentRecordBadInput(t *testing.T) {
	id, ver, acct := testIDs(t)
	rec := &types.InvestmentRecord{BatchID: 1, RecordID: 1, AccountID: acct, InvestmentID: id, Version: ver}
	raw := rec.Marshal()

	_, err := types.UnmarshalInvestmentRecord(raw[:116])
	assert.Error(t, err)

	wrongDisc := append([]byte(nil), raw...)
	wrongDisc[0] ^= 0xFF
	_, err = types.UnmarshalInvestmentRecord(wrongDisc)
	assert.Error(t, err)
}

func TestInvestmentInfoRoundtrip(t *testing.T) {
	id, ver, _ := testIDs(t)
	info := &types.InvestmentInfo{
		InvestmentID:         id,
		Version:              ver,
		InvestmentType:       types.InvestmentTypeCsr,
		StageRatio:           validStageRatio(),
		StartAt:              1690000000,
		EndAt:                1790000000,
		InvestmentUpperLimit: 5_000_000,
		ExecuteWhitelist:     fiveAddrs(0),
		UpdateWhitelist:      fiveAddrs(10),
		WithdrawWhitelist:    fiveAddrs(20)[:2],
		Vault:                types.VaultAddress(id, ver),
		State:                types.StatePending,
		IsActive:             true,
		CreatedAt:            1680000000,
	}
	back, err := types.UnmarshalInvestmentInfo(info.Marshal())
	require.NoError(t, err)
	assert.Equal(t, info, back)
}

func TestProfitShareCacheRoundtrip(t *testing.T) {
	id, ver, acct := testIDs(t)
	cache := &types.ProfitShareCache{
		BatchID:                2,
		InvestmentID:           id,
		Version:                ver,
		SubtotalProfitUsdt:     999_000,
		SubtotalEstimateNative: types.EstimateNativeBase + 2*types.EstimateNativePerEntry,
		CreatedAt:              1700000000,
		Entries: []types.ProfitEntry{
			{AccountID: acct, Wallet: types.Address{1}, AmountUsdt: 500_000, RatioBp: 5000,
				RecipientToken: types.TokenAccountAddress(types.Address{1}, types.UsdtMint)},
			{AccountID: acct, Wallet: types.Address{2}, AmountUsdt: 499_000, RatioBp: 4990,
				RecipientToken: types.TokenAccountAddress(types.Address{2}, types.UsdtMint)},
		},
	}
	back, err := types.UnmarshalProfitShareCache(cache.Marshal())
	require.NoError(t, err)
	assert.Equal(t, cache, back)
}

func TestRefundShareCacheRoundtrip(t *testing.T) {
	id, ver, acct := testIDs(t)
	cache := &types.RefundShareCache{
		BatchID:             1,
		YearIndex:           4,
		InvestmentID:        id,
		Version:             ver,
		SubtotalRefundHcoin: 88_000,
		ExecutedAt:          1701000000,
		CreatedAt:           1700000000,
		Entries: []types.RefundEntry{
			{AccountID: acct, Wallet: types.Address{3}, AmountHcoin: 88_000, Stage: 1,
				RecipientToken: types.TokenAccountAddress(types.Address{3}, types.HcoinMint)},
		},
	}
	back, err := types.UnmarshalRefundShareCache(cache.Marshal())
	require.NoError(t, err)
	assert.Equal(t, cache, back)
}

func TestLookupTableRoundtrip(t *testing.T) {
	id, ver, _ := testIDs(t)
	table := &types.LookupTable{
		Kind:             types.LookupKindCache,
		InvestmentID:     id,
		Version:          ver,
		BatchID:          2,
		YearIndex:        5,
		Addresses:        []types.Address{{1}, {2}, {3}},
		Chunks:           []types.LookupChunk{{Offset: 0, Len: 3, Checksum: 42}},
		CreatedSlot:      10,
		LastExtendedSlot: 12,
		CreatedAt:        1700000000,
	}
	back, err := types.UnmarshalLookupTable(table.Marshal())
	require.NoError(t, err)
	assert.Equal(t, table, back)

	assert.False(t, back.Resolvable(12))
	assert.True(t, back.Resolvable(13))
}
