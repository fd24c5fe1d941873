package lookup

import (
	"context"
	"time"

	"vaultshare/config"
	"vaultshare/db"
	"vaultshare/logs"
	"vaultshare/types"
	"vaultshare/utils"
)

// Orchestrator drives the build-then-poll-then-reference lifecycle of
// lookup tables. A table is created empty, grown in bounded chunks (one
// committed transaction per chunk), and becomes referenceable only after
// the slot counter has moved past its last extension.
type Orchestrator struct {
	store *db.Manager
	cfg   config.LookupConfig

	// sleep is swapped out in tests
	sleep func(ctx context.Context, d config.LookupConfig, attempt int) error
}

func NewOrchestrator(store *db.Manager, cfg config.LookupConfig) *Orchestrator {
	return &Orchestrator{store: store, cfg: cfg, sleep: defaultSleep}
}

// SetSleep 测试用
func (o *Orchestrator) SetSleep(fn func(ctx context.Context, cfg config.LookupConfig, attempt int) error) {
	o.sleep = fn
}

func defaultSleep(ctx context.Context, cfg config.LookupConfig, attempt int) error {
	t := time.NewTimer(cfg.ResolveBackoff * (1 << uint(attempt)))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Build derives the address list for (kind, batch) from storage, creates
// the table, and extends it chunk by chunk. Each extension commits its own
// transaction so the table's LastExtendedSlot tracks real slot progress.
func (o *Orchestrator) Build(kind types.LookupKind, id types.InvestmentID, ver types.Version, batchID uint16, yearIndex uint8, now int64) (types.Address, error) {
	addrs, err := o.deriveAddresses(kind, id, ver, batchID, yearIndex)
	if err != nil {
		return types.Address{}, err
	}

	table := &types.LookupTable{
		Kind:         kind,
		InvestmentID: id,
		Version:      ver,
		BatchID:      batchID,
		YearIndex:    yearIndex,
		CreatedAt:    now,
	}
	tableAddr := table.Address()

	err = o.store.Update(func(tx *db.Tx) error {
		table.CreatedSlot = o.store.CurrentSlot() + 1
		table.LastExtendedSlot = table.CreatedSlot
		return tx.CreateLookupTable(table)
	})
	if err != nil {
		return types.Address{}, err
	}

	for off := 0; off < len(addrs); off += o.cfg.ChunkSize {
		end := off + o.cfg.ChunkSize
		if end > len(addrs) {
			end = len(addrs)
		}
		if err := o.Extend(tableAddr, addrs[off:end]); err != nil {
			return types.Address{}, err
		}
	}
	logs.Debug("lookup table %s built: kind=%s batch=%d addrs=%d chunks=%d",
		tableAddr.Short(), kind, batchID, len(addrs), (len(addrs)+o.cfg.ChunkSize-1)/o.cfg.ChunkSize)
	return tableAddr, nil
}

// Extend appends one chunk of addresses to an existing table.
func (o *Orchestrator) Extend(tableAddr types.Address, addrs []types.Address) error {
	if len(addrs) > o.cfg.ChunkSize {
		return types.NewCodedError(types.CodeLookupChunkTooLarge,
			"chunk of %d addresses exceeds limit %d", len(addrs), o.cfg.ChunkSize)
	}
	return o.store.Update(func(tx *db.Tx) error {
		table, err := tx.GetLookupTable(tableAddr)
		if err == db.ErrKeyNotFound {
			return types.NewCodedError(types.CodeLookupTableNotFound, "table %s", tableAddr.Short())
		}
		if err != nil {
			return err
		}
		raw := make([]byte, 0, len(addrs)*32)
		for _, a := range addrs {
			raw = append(raw, a[:]...)
		}
		table.Chunks = append(table.Chunks, types.LookupChunk{
			Offset:   uint32(len(table.Addresses)),
			Len:      uint16(len(addrs)),
			Checksum: utils.MurmurSum64(raw),
		})
		table.Addresses = append(table.Addresses, addrs...)
		table.LastExtendedSlot = o.store.CurrentSlot() + 1
		return tx.PutLookupTable(table)
	})
}

// Resolve loads a table if it is referenceable at the current slot.
func (o *Orchestrator) Resolve(tableAddr types.Address) (*types.LookupTable, error) {
	var table *types.LookupTable
	err := o.store.View(func(tx *db.Tx) error {
		t, err := tx.GetLookupTable(tableAddr)
		if err == db.ErrKeyNotFound {
			return types.NewCodedError(types.CodeLookupTableNotFound, "table %s", tableAddr.Short())
		}
		if err != nil {
			return err
		}
		table = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	if slot := o.store.CurrentSlot(); !table.Resolvable(slot) {
		return nil, types.NewCodedError(types.CodeLookupNotResolvable,
			"table %s extended at slot %d, current slot %d", tableAddr.Short(), table.LastExtendedSlot, slot)
	}
	return table, nil
}

// WaitResolvable polls Resolve with backoff until the table becomes
// referenceable, the attempt budget runs out, or ctx is cancelled.
func (o *Orchestrator) WaitResolvable(ctx context.Context, tableAddr types.Address) (*types.LookupTable, error) {
	var lastErr error
	for attempt := 0; attempt < o.cfg.ResolveAttempts; attempt++ {
		table, err := o.Resolve(tableAddr)
		if err == nil {
			return table, nil
		}
		if !types.ErrIs(err, types.CodeLookupNotResolvable) {
			return nil, err
		}
		lastErr = err
		logs.Trace("lookup table %s not yet resolvable, attempt %d/%d",
			tableAddr.Short(), attempt+1, o.cfg.ResolveAttempts)
		if attempt == o.cfg.ResolveAttempts-1 {
			break
		}
		if err := o.sleep(ctx, o.cfg, attempt); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (o *Orchestrator) deriveAddresses(kind types.LookupKind, id types.InvestmentID, ver types.Version, batchID uint16, yearIndex uint8) ([]types.Address, error) {
	var addrs []types.Address
	err := o.store.View(func(tx *db.Tx) error {
		switch kind {
		case types.LookupKindRecord:
			out, err := tx.RecordAddressesByBatch(id, ver, batchID)
			if err != nil {
				return err
			}
			addrs = out
			return nil
		case types.LookupKindCache:
			if yearIndex == 0 {
				cache, err := tx.GetProfitCache(types.ProfitCacheAddress(id, ver, batchID))
				if err == db.ErrKeyNotFound {
					return types.NewCodedError(types.CodeProfitCacheNotFound,
						"batch %d has no profit cache", batchID)
				}
				if err != nil {
					return err
				}
				for _, e := range cache.Entries {
					addrs = append(addrs, types.TokenAccountAddress(e.Wallet, types.UsdtMint))
				}
				return nil
			}
			if yearIndex < types.StartYearIndex || yearIndex > types.MaxYearIndex {
				return types.NewCodedError(types.CodeRefundPeriodInvalid, "year index %d", yearIndex)
			}
			cache, err := tx.GetRefundCache(types.RefundCacheAddress(id, ver, batchID, yearIndex))
			if err == db.ErrKeyNotFound {
				return types.NewCodedError(types.CodeRefundCacheNotFound,
					"batch %d year %d has no refund cache", batchID, yearIndex)
			}
			if err != nil {
				return err
			}
			for _, e := range cache.Entries {
				addrs = append(addrs, types.TokenAccountAddress(e.Wallet, types.HcoinMint))
			}
			return nil
		default:
			return types.NewCodedError(types.CodeLookupTableMismatch, "unknown kind %d", kind)
		}
	})
	return addrs, err
}
