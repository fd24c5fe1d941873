package lookup_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultshare/config"
	"vaultshare/db"
	"vaultshare/lookup"
	"vaultshare/types"
	"vaultshare/utils"
)

func setup(t *testing.T) (*db.Manager, *lookup.Orchestrator, types.InvestmentID, types.Version, types.AccountID) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Lookup.ChunkSize = 4
	mgr, err := db.NewManager(t.TempDir(), cfg.Database)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })

	id, err := types.NewInvestmentID("inv00000000lkp1")
	require.NoError(t, err)
	ver, err := types.NewVersion("v001")
	require.NoError(t, err)
	acct, err := types.NewAccountID("acct00000000001")
	require.NoError(t, err)
	return mgr, lookup.NewOrchestrator(mgr, cfg.Lookup), id, ver, acct
}

func insertRecords(t *testing.T, mgr *db.Manager, id types.InvestmentID, ver types.Version, acct types.AccountID, n int) {
	t.Helper()
	require.NoError(t, mgr.Update(func(tx *db.Tx) error {
		for rid := uint64(1); rid <= uint64(n); rid++ {
			rec := &types.InvestmentRecord{
				BatchID:      types.BatchIDForRecord(rid),
				RecordID:     rid,
				AccountID:    acct,
				InvestmentID: id,
				Version:      ver,
				Wallet:       types.Address{byte(rid)},
				AmountUsdt:   1000,
				AmountHcoin:  1000,
				Stage:        1,
				CreatedAt:    1700000000,
			}
			if err := tx.CreateRecord(rec); err != nil {
				return err
			}
		}
		return nil
	}))
}

func TestBuildRecordTableChunked(t *testing.T) {
	mgr, orch, id, ver, acct := setup(t)
	insertRecords(t, mgr, id, ver, acct, 10)

	addr, err := orch.Build(types.LookupKindRecord, id, ver, 1, 0, 1700000000)
	require.NoError(t, err)
	assert.Equal(t, types.LookupTableAddress(types.LookupKindRecord, id, ver, 1, 0), addr)

	// 最后一次 extend 刚提交，当前槽位还不够新
	_, err = orch.Resolve(addr)
	assert.True(t, types.ErrIs(err, types.CodeLookupNotResolvable))

	// 任意一笔后续提交推进槽位后即可引用
	require.NoError(t, mgr.Update(func(tx *db.Tx) error { return nil }))
	table, err := orch.Resolve(addr)
	require.NoError(t, err)

	assert.Len(t, table.Addresses, 10)
	require.Len(t, table.Chunks, 3) // 4+4+2
	assert.Equal(t, uint16(4), table.Chunks[0].Len)
	assert.Equal(t, uint16(4), table.Chunks[1].Len)
	assert.Equal(t, uint16(2), table.Chunks[2].Len)
	assert.Equal(t, uint32(8), table.Chunks[2].Offset)

	// 每个分块的校验和与其覆盖的地址字节一致
	for _, c := range table.Chunks {
		raw := make([]byte, 0, int(c.Len)*32)
		for _, a := range table.Addresses[c.Offset : c.Offset+uint32(c.Len)] {
			raw = append(raw, a.Bytes()...)
		}
		assert.Equal(t, utils.MurmurSum64(raw), c.Checksum)
	}
}

func TestExtendRejectsOversizedChunk(t *testing.T) {
	_, orch, _, _, _ := setup(t)
	addrs := make([]types.Address, 5) // ChunkSize=4
	err := orch.Extend(types.Address{1}, addrs)
	assert.True(t, types.ErrIs(err, types.CodeLookupChunkTooLarge))
}

func TestBuildDuplicateFails(t *testing.T) {
	mgr, orch, id, ver, acct := setup(t)
	insertRecords(t, mgr, id, ver, acct, 3)

	_, err := orch.Build(types.LookupKindRecord, id, ver, 1, 0, 1700000000)
	require.NoError(t, err)
	_, err = orch.Build(types.LookupKindRecord, id, ver, 1, 0, 1700000000)
	assert.ErrorIs(t, err, db.ErrKeyExists)
}

func TestResolveUnknownTable(t *testing.T) {
	_, orch, _, _, _ := setup(t)
	_, err := orch.Resolve(types.Address{0xEE})
	assert.True(t, types.ErrIs(err, types.CodeLookupTableNotFound))
}

func TestWaitResolvableBounded(t *testing.T) {
	mgr, orch, id, ver, acct := setup(t)
	insertRecords(t, mgr, id, ver, acct, 2)

	addr, err := orch.Build(types.LookupKindRecord, id, ver, 1, 0, 1700000000)
	require.NoError(t, err)

	// 轮询间隙里推进一次槽位，模拟链上时间前进
	advanced := false
	orch.SetSleep(func(ctx context.Context, cfg config.LookupConfig, attempt int) error {
		if !advanced {
			advanced = true
			return mgr.Update(func(tx *db.Tx) error { return nil })
		}
		return nil
	})

	table, err := orch.WaitResolvable(context.Background(), addr)
	require.NoError(t, err)
	assert.Len(t, table.Addresses, 2)
}

func TestWaitResolvableGivesUp(t *testing.T) {
	mgr, orch, id, ver, acct := setup(t)
	insertRecords(t, mgr, id, ver, acct, 1)

	addr, err := orch.Build(types.LookupKindRecord, id, ver, 1, 0, 1700000000)
	require.NoError(t, err)

	calls := 0
	orch.SetSleep(func(ctx context.Context, cfg config.LookupConfig, attempt int) error {
		calls++
		return nil // 槽位从不推进
	})

	_, err = orch.WaitResolvable(context.Background(), addr)
	assert.True(t, types.ErrIs(err, types.CodeLookupNotResolvable))
	assert.Equal(t, config.DefaultConfig().Lookup.ResolveAttempts-1, calls, "重试有界")
}

func TestCacheTableForMissingCache(t *testing.T) {
	_, orch, id, ver, _ := setup(t)
	_, err := orch.Build(types.LookupKindCache, id, ver, 1, 0, 1700000000)
	assert.True(t, types.ErrIs(err, types.CodeProfitCacheNotFound))

	_, err = orch.Build(types.LookupKindCache, id, ver, 1, 2, 1700000000)
	assert.True(t, types.ErrIs(err, types.CodeRefundPeriodInvalid))
}
