package db

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/dgraph-io/badger/v2"

	"vaultshare/types"
)

// Tx wraps one badger transaction with typed account accessors. Bitmap and
// cache updates are staged and applied only after the transaction commits.
type Tx struct {
	m        *Manager
	txn      *badger.Txn
	readonly bool

	idxDeltas  []idxDelta
	dirtyInfos []types.Address
}

func (tx *Tx) getRaw(key string) ([]byte, error) {
	item, err := tx.txn.Get([]byte(key))
	if err == badger.ErrKeyNotFound {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (tx *Tx) exists(key string) (bool, error) {
	_, err := tx.txn.Get([]byte(key))
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// createRaw 在未占用的键上写入；键已存在时返回 ErrKeyExists。
func (tx *Tx) createRaw(key string, data []byte) error {
	ok, err := tx.exists(key)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%w: %s", ErrKeyExists, key)
	}
	return tx.txn.Set([]byte(key), data)
}

// ===================== InvestmentInfo =====================

func (tx *Tx) GetInvestmentInfo(addr types.Address) (*types.InvestmentInfo, error) {
	if cached, ok := tx.m.infoCache.Get(addr); ok {
		return cached.(*types.InvestmentInfo).Clone(), nil
	}
	raw, err := tx.getRaw(KeyAccount(addr))
	if err != nil {
		return nil, err
	}
	info, err := types.UnmarshalInvestmentInfo(raw)
	if err != nil {
		return nil, err
	}
	tx.m.infoCache.Add(addr, info.Clone())
	return info, nil
}

func (tx *Tx) CreateInvestmentInfo(info *types.InvestmentInfo) error {
	addr := types.InvestmentAddress(info.InvestmentID, info.Version)
	if err := tx.createRaw(KeyAccount(addr), info.Marshal()); err != nil {
		return err
	}
	tx.dirtyInfos = append(tx.dirtyInfos, addr)
	return nil
}

func (tx *Tx) PutInvestmentInfo(info *types.InvestmentInfo) error {
	addr := types.InvestmentAddress(info.InvestmentID, info.Version)
	if err := tx.txn.Set([]byte(KeyAccount(addr)), info.Marshal()); err != nil {
		return err
	}
	tx.dirtyInfos = append(tx.dirtyInfos, addr)
	return nil
}

// ===================== InvestmentRecord =====================

func (tx *Tx) GetRecordByAddress(addr types.Address) (*types.InvestmentRecord, error) {
	raw, err := tx.getRaw(KeyAccount(addr))
	if err != nil {
		return nil, err
	}
	return types.UnmarshalInvestmentRecord(raw)
}

// CreateRecord 写入记录账户和批次索引键，并暂存位图增量。
func (tx *Tx) CreateRecord(rec *types.InvestmentRecord) error {
	if rec.RecordID > math.MaxUint32 {
		return fmt.Errorf("record id %d exceeds index capacity", rec.RecordID)
	}
	addr := rec.Address()
	if err := tx.createRaw(KeyAccount(addr), rec.Marshal()); err != nil {
		return err
	}
	idxKey := KeyRecordIndex(rec.InvestmentID, rec.Version, rec.BatchID, rec.RecordID)
	if err := tx.txn.Set([]byte(idxKey), addr.Bytes()); err != nil {
		return err
	}
	tx.idxDeltas = append(tx.idxDeltas, idxDelta{
		key: batchIdxKey(rec.InvestmentID, rec.Version, rec.BatchID),
		id:  uint32(rec.RecordID),
	})
	return nil
}

// PutRecord 覆写已有记录；wasLive 指更新前记录是否在册，
// 用于在撤销时同步位图。
func (tx *Tx) PutRecord(rec *types.InvestmentRecord, wasLive bool) error {
	addr := rec.Address()
	if err := tx.txn.Set([]byte(KeyAccount(addr)), rec.Marshal()); err != nil {
		return err
	}
	if wasLive && rec.RevokedAt != 0 {
		tx.idxDeltas = append(tx.idxDeltas, idxDelta{
			key:    batchIdxKey(rec.InvestmentID, rec.Version, rec.BatchID),
			id:     uint32(rec.RecordID),
			remove: true,
		})
	}
	return nil
}

// LiveRecordCount 含本事务暂存的增删。
func (tx *Tx) LiveRecordCount(id types.InvestmentID, ver types.Version, batchID uint16) int {
	count := tx.m.LiveRecordCount(id, ver, batchID)
	key := batchIdxKey(id, ver, batchID)
	for _, d := range tx.idxDeltas {
		if d.key != key {
			continue
		}
		if d.remove {
			count--
		} else {
			count++
		}
	}
	return count
}

// RecordsByBatch 按批次范围扫描记录。解码前先按固定偏移核对批次号，
// 与外部接口的字节布局保持一致。
func (tx *Tx) RecordsByBatch(id types.InvestmentID, ver types.Version, batchID uint16) ([]*types.InvestmentRecord, error) {
	var out []*types.InvestmentRecord
	err := tx.scanBatch(id, ver, batchID, func(addr types.Address, raw []byte) error {
		rec, err := types.UnmarshalInvestmentRecord(raw)
		if err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

// RecordAddressesByBatch 返回批次内全部记录账户地址（含已撤销），
// 供查表编排生成 record 类查表。
func (tx *Tx) RecordAddressesByBatch(id types.InvestmentID, ver types.Version, batchID uint16) ([]types.Address, error) {
	var out []types.Address
	err := tx.scanBatch(id, ver, batchID, func(addr types.Address, raw []byte) error {
		out = append(out, addr)
		return nil
	})
	return out, err
}

// RecordsByInvestment 扫描该投资下全部批次的记录。
func (tx *Tx) RecordsByInvestment(id types.InvestmentID, ver types.Version) ([]*types.InvestmentRecord, error) {
	var out []*types.InvestmentRecord
	err := tx.scanPrefix([]byte(KeyRecordBatchPrefix(id, ver)), 0, false, func(addr types.Address, raw []byte) error {
		rec, err := types.UnmarshalInvestmentRecord(raw)
		if err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

func (tx *Tx) scanBatch(id types.InvestmentID, ver types.Version, batchID uint16, fn func(types.Address, []byte) error) error {
	return tx.scanPrefix([]byte(KeyRecordIndexPrefix(id, ver, batchID)), batchID, true, fn)
}

func (tx *Tx) scanPrefix(prefix []byte, batchID uint16, checkBatch bool, fn func(types.Address, []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	it := tx.txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var addrRaw []byte
		if err := it.Item().Value(func(val []byte) error {
			addrRaw = append([]byte(nil), val...)
			return nil
		}); err != nil {
			return err
		}
		addr, err := types.AddressFromBytes(addrRaw)
		if err != nil {
			return err
		}
		raw, err := tx.getRaw(KeyAccount(addr))
		if err != nil {
			return fmt.Errorf("record %s: %w", addr, err)
		}
		if len(raw) < types.RecordOffRecordID {
			return fmt.Errorf("record %s: truncated data", addr)
		}
		if checkBatch {
			// offset 8: batchId (2B LE)
			got := uint16(raw[types.RecordOffBatchID]) | uint16(raw[types.RecordOffBatchID+1])<<8
			if got != batchID {
				return fmt.Errorf("record %s: batch %d under index for batch %d", addr, got, batchID)
			}
		}
		if err := fn(addr, raw); err != nil {
			return err
		}
	}
	return nil
}

// ===================== Share caches =====================

func (tx *Tx) GetProfitCache(addr types.Address) (*types.ProfitShareCache, error) {
	raw, err := tx.getRaw(KeyAccount(addr))
	if err != nil {
		return nil, err
	}
	return types.UnmarshalProfitShareCache(raw)
}

func (tx *Tx) CreateProfitCache(c *types.ProfitShareCache) error {
	return tx.createRaw(KeyAccount(c.Address()), c.Marshal())
}

func (tx *Tx) PutProfitCache(c *types.ProfitShareCache) error {
	return tx.txn.Set([]byte(KeyAccount(c.Address())), c.Marshal())
}

func (tx *Tx) GetRefundCache(addr types.Address) (*types.RefundShareCache, error) {
	raw, err := tx.getRaw(KeyAccount(addr))
	if err != nil {
		return nil, err
	}
	return types.UnmarshalRefundShareCache(raw)
}

func (tx *Tx) CreateRefundCache(c *types.RefundShareCache) error {
	return tx.createRaw(KeyAccount(c.Address()), c.Marshal())
}

func (tx *Tx) PutRefundCache(c *types.RefundShareCache) error {
	return tx.txn.Set([]byte(KeyAccount(c.Address())), c.Marshal())
}

// ===================== Vault 与代币账户 =====================

func (tx *Tx) GetVault(addr types.Address) (*types.Vault, error) {
	raw, err := tx.getRaw(KeyAccount(addr))
	if err != nil {
		return nil, err
	}
	return types.UnmarshalVault(raw)
}

func (tx *Tx) CreateVault(v *types.Vault) error {
	return tx.createRaw(KeyAccount(v.Address()), v.Marshal())
}

func (tx *Tx) PutVault(v *types.Vault) error {
	return tx.txn.Set([]byte(KeyAccount(v.Address())), v.Marshal())
}

func (tx *Tx) GetTokenAccount(wallet, mint types.Address) (*types.TokenAccount, error) {
	raw, err := tx.getRaw(KeyAccount(types.TokenAccountAddress(wallet, mint)))
	if err != nil {
		return nil, err
	}
	return types.UnmarshalTokenAccount(raw)
}

func (tx *Tx) PutTokenAccount(t *types.TokenAccount) error {
	return tx.txn.Set([]byte(KeyAccount(t.Address())), t.Marshal())
}

// EnsureTokenAccount 返回 (wallet, mint) 的代币账户，缺失时创建零余额
// 账户；created 告知调用方是否需要计提开户成本。
func (tx *Tx) EnsureTokenAccount(wallet, mint types.Address, now int64) (t *types.TokenAccount, created bool, err error) {
	t, err = tx.GetTokenAccount(wallet, mint)
	if err == nil {
		return t, false, nil
	}
	if err != ErrKeyNotFound {
		return nil, false, err
	}
	t = &types.TokenAccount{Wallet: wallet, Mint: mint, Balance: 0, CreatedAt: now}
	if err := tx.PutTokenAccount(t); err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// ===================== 查表 =====================

func (tx *Tx) GetLookupTable(addr types.Address) (*types.LookupTable, error) {
	raw, err := tx.getRaw(KeyAccount(addr))
	if err != nil {
		return nil, err
	}
	return types.UnmarshalLookupTable(raw)
}

func (tx *Tx) CreateLookupTable(t *types.LookupTable) error {
	return tx.createRaw(KeyAccount(t.Address()), t.Marshal())
}

func (tx *Tx) PutLookupTable(t *types.LookupTable) error {
	return tx.txn.Set([]byte(KeyAccount(t.Address())), t.Marshal())
}

// ===================== 事件日志 =====================

// AppendEvent 给事件分配序号并追加到日志。
func (tx *Tx) AppendEvent(evt *types.Event) error {
	seq, err := tx.m.nextEventSeq()
	if err != nil {
		return err
	}
	evt.Seq = seq
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return tx.txn.Set([]byte(KeyEvent(seq)), data)
}

// EventsByPrefix 顺序读取全部事件（测试与审计用）。
func (tx *Tx) Events() ([]*types.Event, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	it := tx.txn.NewIterator(opts)
	defer it.Close()

	var out []*types.Event
	prefix := []byte(KeyEventPrefix())
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var evt types.Event
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &evt)
		}); err != nil {
			return nil, err
		}
		e := evt
		out = append(out, &e)
	}
	return out, nil
}
