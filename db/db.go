package db

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring"
	"github.com/dgraph-io/badger/v2"
	lru "github.com/hashicorp/golang-lru"

	"vaultshare/config"
	"vaultshare/logs"
	"vaultshare/types"
)

var (
	// ErrKeyNotFound 账户或键不存在
	ErrKeyNotFound = errors.New("key not found")
	// ErrKeyExists 在已占用的派生地址上创建账户（create-once 语义）
	ErrKeyExists = errors.New("key already exists")
)

// Manager 封装 BadgerDB 的管理器。
// 每个指令在一个 badger 事务里原子落库；派生地址上的 insert-if-absent
// 充当唯一性/CAS 原语。
type Manager struct {
	Db  *badger.DB
	cfg config.DatabaseConfig

	// InvestmentInfo 读缓存（解码后的副本）
	infoCache *lru.Cache

	// 每个 (investment, version, batch) 的在册记录位图索引
	idxMu    sync.RWMutex
	batchIdx map[string]*roaring.Bitmap

	// 事件发号器
	seq *badger.Sequence

	// 已提交事务的槽位计数（查表可解析性判定用）
	slot uint64

	closeOnce sync.Once
}

// NewManager 打开数据库并重建内存索引
func NewManager(dir string, cfg config.DatabaseConfig) (*Manager, error) {
	opts := badger.DefaultOptions(dir).
		WithSyncWrites(cfg.SyncWrites).
		WithValueLogFileSize(cfg.ValueLogFileSize).
		WithLogger(nil)

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}

	cacheSize := cfg.InfoCacheSize
	if cacheSize <= 0 {
		cacheSize = 128
	}
	cache, _ := lru.New(cacheSize)

	bandwidth := cfg.SequenceBandwidth
	if bandwidth == 0 {
		bandwidth = 128
	}
	seq, err := bdb.GetSequence([]byte(KeyEventSeq()), bandwidth)
	if err != nil {
		_ = bdb.Close()
		return nil, fmt.Errorf("open event sequence: %w", err)
	}

	m := &Manager{
		Db:        bdb,
		cfg:       cfg,
		infoCache: cache,
		batchIdx:  make(map[string]*roaring.Bitmap),
		seq:       seq,
	}
	if err := m.loadSlot(); err != nil {
		_ = seq.Release()
		_ = bdb.Close()
		return nil, err
	}
	if err := m.rebuildBatchIndex(); err != nil {
		_ = seq.Release()
		_ = bdb.Close()
		return nil, err
	}
	return m, nil
}

func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		if m.seq != nil {
			if e := m.seq.Release(); e != nil {
				err = e
			}
		}
		if e := m.Db.Close(); e != nil {
			err = e
		}
	})
	return err
}

// CurrentSlot 返回已提交事务数
func (m *Manager) CurrentSlot() uint64 {
	return atomic.LoadUint64(&m.slot)
}

func (m *Manager) loadSlot() error {
	return m.Db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(KeySlot()))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) == 8 {
				atomic.StoreUint64(&m.slot, binary.LittleEndian.Uint64(val))
			}
			return nil
		})
	})
}

// Update 在单个 badger 事务里执行 fn；提交成功后推进槽位并应用索引增量。
func (m *Manager) Update(fn func(tx *Tx) error) error {
	next := atomic.LoadUint64(&m.slot) + 1
	var deltas []idxDelta
	var dirtyInfos []types.Address

	err := m.Db.Update(func(txn *badger.Txn) error {
		tx := &Tx{m: m, txn: txn}
		if err := fn(tx); err != nil {
			return err
		}
		// 槽位随每笔已提交事务前进
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], next)
		if err := txn.Set([]byte(KeySlot()), buf[:]); err != nil {
			return err
		}
		deltas = tx.idxDeltas
		dirtyInfos = tx.dirtyInfos
		return nil
	})
	if err != nil {
		return err
	}

	atomic.StoreUint64(&m.slot, next)
	if len(deltas) > 0 {
		m.applyIdxDeltas(deltas)
	}
	for _, addr := range dirtyInfos {
		m.infoCache.Remove(addr)
	}
	return nil
}

// View 只读事务
func (m *Manager) View(fn func(tx *Tx) error) error {
	return m.Db.View(func(txn *badger.Txn) error {
		return fn(&Tx{m: m, txn: txn, readonly: true})
	})
}

func (m *Manager) nextEventSeq() (uint64, error) {
	return m.seq.Next()
}

// ===================== 批次位图索引 =====================

type idxDelta struct {
	key    string
	id     uint32
	remove bool
}

func batchIdxKey(id types.InvestmentID, ver types.Version, batchID uint16) string {
	return fmt.Sprintf("%x_%x_%d", id[:], ver[:], batchID)
}

func (m *Manager) applyIdxDeltas(deltas []idxDelta) {
	m.idxMu.Lock()
	defer m.idxMu.Unlock()
	for _, d := range deltas {
		bm, ok := m.batchIdx[d.key]
		if !ok {
			if d.remove {
				continue
			}
			bm = roaring.New()
			m.batchIdx[d.key] = bm
		}
		if d.remove {
			bm.Remove(d.id)
		} else {
			bm.Add(d.id)
		}
	}
}

// LiveRecordCount 返回某批次的在册（未撤销）记录数
func (m *Manager) LiveRecordCount(id types.InvestmentID, ver types.Version, batchID uint16) int {
	m.idxMu.RLock()
	defer m.idxMu.RUnlock()
	bm, ok := m.batchIdx[batchIdxKey(id, ver, batchID)]
	if !ok {
		return 0
	}
	return int(bm.GetCardinality())
}

// 启动时扫描索引键，恢复在册记录位图。
func (m *Manager) rebuildBatchIndex() error {
	count := 0
	err := m.Db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(withVer("recidx_"))
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
				return fmt.Errorf("record index %s: %w", it.Item().Key(), err)
			}
			item, err := txn.Get([]byte(KeyAccount(addr)))
			if err != nil {
				return fmt.Errorf("record account %s: %w", addr, err)
			}
			var rec *types.InvestmentRecord
			if err := item.Value(func(val []byte) error {
				var derr error
				rec, derr = types.UnmarshalInvestmentRecord(val)
				return derr
			}); err != nil {
				return err
			}
			if rec.RevokedAt != 0 {
				continue
			}
			key := batchIdxKey(rec.InvestmentID, rec.Version, rec.BatchID)
			bm, ok := m.batchIdx[key]
			if !ok {
				bm = roaring.New()
				m.batchIdx[key] = bm
			}
			bm.Add(uint32(rec.RecordID))
			count++
		}
		return nil
	})
	if err != nil {
		return err
	}
	if count > 0 {
		logs.Info("[db] rebuilt batch index with %d live records", count)
	}
	return nil
}
