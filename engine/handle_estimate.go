package engine

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"

	"vaultshare/db"
	"vaultshare/logs"
	"vaultshare/types"
)

var decBpScale = decimal.NewFromInt(10000)

// bpShare computes floor(amountUsdt * 10000 / totalInvested) as basis points.
func bpShare(amountUsdt, totalInvested uint64) (uint16, error) {
	q, _ := decimal.NewFromUint64(amountUsdt).Mul(decBpScale).QuoRem(decimal.NewFromUint64(totalInvested), 0)
	bi := q.BigInt()
	if !bi.IsUint64() || bi.Uint64() > 10000 {
		return 0, types.NewCodedError(types.CodeBpRatioOverflow,
			"amount %d over invested %d exceeds 10000 bp", amountUsdt, totalInvested)
	}
	return uint16(bi.Uint64()), nil
}

// mulDiv computes floor(a * b / div) with exact integer arithmetic.
func mulDiv(a, b, div uint64) (uint64, error) {
	q, _ := decimal.NewFromUint64(a).Mul(decimal.NewFromUint64(b)).QuoRem(decimal.NewFromUint64(div), 0)
	bi := q.BigInt()
	if !bi.IsUint64() {
		return 0, types.NewCodedError(types.CodeNumericalOverflow, "%d * %d / %d", a, b, div)
	}
	return bi.Uint64(), nil
}

func addU64(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, types.NewCodedError(types.CodeNumericalOverflow, "%d + %d", a, b)
	}
	return a + b, nil
}

// loadBatchForEstimate resolves the batch's record lookup table, loads the
// batch's live records, and verifies every record is covered by the table.
func (e *Engine) loadBatchForEstimate(tx *db.Tx, id types.InvestmentID, ver types.Version,
	batchID uint16, recordTable types.Address) ([]*types.InvestmentRecord, error) {
	table, err := e.lk.Resolve(recordTable)
	if err != nil {
		return nil, err
	}
	if table.Kind != types.LookupKindRecord || table.InvestmentID != id ||
		table.Version != ver || table.BatchID != batchID {
		return nil, types.NewCodedError(types.CodeLookupTableMismatch,
			"table %s is not the record table of batch %d", recordTable.Short(), batchID)
	}
	covered := make(map[types.Address]struct{}, len(table.Addresses))
	for _, a := range table.Addresses {
		covered[a] = struct{}{}
	}

	all, err := tx.RecordsByBatch(id, ver, batchID)
	if err != nil {
		return nil, err
	}
	var live []*types.InvestmentRecord
	seen := make(map[uint64]struct{}, len(all))
	for _, rec := range all {
		if rec.RevokedAt != 0 {
			continue
		}
		if _, dup := seen[rec.RecordID]; dup {
			return nil, types.NewCodedError(types.CodeDuplicateRecord, "record %d loaded twice", rec.RecordID)
		}
		seen[rec.RecordID] = struct{}{}
		if _, ok := covered[rec.Address()]; !ok {
			return nil, types.NewCodedError(types.CodeLookupTableMismatch,
				"record %d missing from lookup table %s", rec.RecordID, recordTable.Short())
		}
		live = append(live, rec)
	}
	if len(live) > types.MaxEntriesPerBatch {
		return nil, types.NewCodedError(types.CodeTooManyRecordsLoaded,
			"batch %d has %d live records, limit %d", batchID, len(live), types.MaxEntriesPerBatch)
	}
	return live, nil
}

// EstimateProfitShare computes each live record's basis-point share of the
// batch and writes the immutable profit cache. The derived cache address is
// the idempotency guard: re-estimation fails with AccountAlreadyExists.
// Standard-type investments only.
func (e *Engine) EstimateProfitShare(id types.InvestmentID, ver types.Version, signers []types.Address,
	batchID uint16, totalProfitUsdt, totalInvestedUsdt uint64, recordTable types.Address) error {
	if totalInvestedUsdt == 0 || totalProfitUsdt == 0 {
		return types.NewCodedError(types.CodeInvalidTotalUsdt,
			"profit %d over invested %d", totalProfitUsdt, totalInvestedUsdt)
	}
	now := e.now()
	return e.store.Update(func(tx *db.Tx) error {
		info, err := loadInfo(tx, id, ver)
		if err != nil {
			return err
		}
		if err := info.VerifySigners3of5(signers, types.WhitelistUpdate); err != nil {
			return err
		}
		if err := requireActive(info); err != nil {
			return err
		}
		if err := requireCompleted(info); err != nil {
			return err
		}
		if info.InvestmentType != types.InvestmentTypeStandard {
			return types.NewCodedError(types.CodeStandardOnly,
				"profit sharing is standard-only, investment is %s", info.InvestmentType)
		}

		records, err := e.loadBatchForEstimate(tx, id, ver, batchID, recordTable)
		if err != nil {
			return err
		}

		cache := &types.ProfitShareCache{
			BatchID:      batchID,
			InvestmentID: id,
			Version:      ver,
			CreatedAt:    now,
		}
		var subtotal uint64
		for _, rec := range records {
			bp, err := bpShare(rec.AmountUsdt, totalInvestedUsdt)
			if err != nil {
				return err
			}
			amount, err := mulDiv(totalProfitUsdt, uint64(bp), 10000)
			if err != nil {
				return err
			}
			if subtotal, err = addU64(subtotal, amount); err != nil {
				return err
			}
			cache.Entries = append(cache.Entries, types.ProfitEntry{
				AccountID:      rec.AccountID,
				Wallet:         rec.Wallet,
				AmountUsdt:     amount,
				RatioBp:        bp,
				RecipientToken: types.TokenAccountAddress(rec.Wallet, types.UsdtMint),
			})
		}
		if subtotal == 0 {
			return types.NewCodedError(types.CodeInvalidTotalUsdt,
				"batch %d rounds to a zero subtotal", batchID)
		}
		cache.SubtotalProfitUsdt = subtotal
		cache.SubtotalEstimateNative = types.EstimateNativeBase +
			types.EstimateNativePerEntry*uint64(len(cache.Entries))

		if err := tx.CreateProfitCache(cache); err != nil {
			if errors.Is(err, db.ErrKeyExists) {
				return types.NewCodedError(types.CodeAccountAlreadyExists,
					"profit cache for batch %d already exists", batchID)
			}
			return err
		}
		logs.Info("profit estimated %s/%s batch %d: %d entries, subtotal %d",
			id, ver, batchID, len(cache.Entries), subtotal)
		return appendEvent(tx, types.EventProfitShareEstimated, id, ver, now, signers,
			correlate(id, ver, byte(batchID), byte(batchID>>8)), map[string]interface{}{
				"batch_id":        batchID,
				"entries":         len(cache.Entries),
				"subtotal_usdt":   subtotal,
				"estimate_native": cache.SubtotalEstimateNative,
			})
	})
}

// EstimateRefundShare computes each live record's HCOIN refund for one
// refund year and writes the immutable refund cache. Years run from the
// third through the ninth anniversary; the record's stage selects which
// ratio row applies.
func (e *Engine) EstimateRefundShare(id types.InvestmentID, ver types.Version, signers []types.Address,
	batchID uint16, yearIndex uint8, recordTable types.Address) error {
	if yearIndex < types.StartYearIndex || yearIndex > types.MaxYearIndex {
		return types.NewCodedError(types.CodeRefundPeriodInvalid,
			"year index %d outside %d..%d", yearIndex, types.StartYearIndex, types.MaxYearIndex)
	}
	now := e.now()
	return e.store.Update(func(tx *db.Tx) error {
		info, err := loadInfo(tx, id, ver)
		if err != nil {
			return err
		}
		if err := info.VerifySigners3of5(signers, types.WhitelistUpdate); err != nil {
			return err
		}
		if err := requireActive(info); err != nil {
			return err
		}
		if err := requireCompleted(info); err != nil {
			return err
		}

		records, err := e.loadBatchForEstimate(tx, id, ver, batchID, recordTable)
		if err != nil {
			return err
		}

		cache := &types.RefundShareCache{
			BatchID:      batchID,
			YearIndex:    yearIndex,
			InvestmentID: id,
			Version:      ver,
			CreatedAt:    now,
		}
		var subtotal uint64
		for _, rec := range records {
			percent := info.StageRatio.Percentage(rec.Stage, yearIndex)
			amount, err := mulDiv(rec.AmountHcoin, uint64(percent), 100)
			if err != nil {
				return err
			}
			if subtotal, err = addU64(subtotal, amount); err != nil {
				return err
			}
			cache.Entries = append(cache.Entries, types.RefundEntry{
				AccountID:      rec.AccountID,
				Wallet:         rec.Wallet,
				AmountHcoin:    amount,
				Stage:          rec.Stage,
				RecipientToken: types.TokenAccountAddress(rec.Wallet, types.HcoinMint),
			})
		}
		if subtotal == 0 {
			return types.NewCodedError(types.CodeInvalidTotalHcoin,
				"batch %d year %d rounds to a zero subtotal", batchID, yearIndex)
		}
		cache.SubtotalRefundHcoin = subtotal
		cache.SubtotalEstimateNative = types.EstimateNativeBase +
			types.EstimateNativePerEntry*uint64(len(cache.Entries))

		if err := tx.CreateRefundCache(cache); err != nil {
			if errors.Is(err, db.ErrKeyExists) {
				return types.NewCodedError(types.CodeAccountAlreadyExists,
					"refund cache for batch %d year %d already exists", batchID, yearIndex)
			}
			return err
		}
		logs.Info("refund estimated %s/%s batch %d year %d: %d entries, subtotal %d",
			id, ver, batchID, yearIndex, len(cache.Entries), subtotal)
		return appendEvent(tx, types.EventRefundShareEstimated, id, ver, now, signers,
			correlate(id, ver, byte(batchID), byte(batchID>>8), yearIndex), map[string]interface{}{
				"batch_id":        batchID,
				"year_index":      yearIndex,
				"entries":         len(cache.Entries),
				"subtotal_hcoin":  subtotal,
				"estimate_native": cache.SubtotalEstimateNative,
			})
	})
}
