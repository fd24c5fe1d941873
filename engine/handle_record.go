package engine

import (
	"errors"

	"vaultshare/db"
	"vaultshare/logs"
	"vaultshare/types"
)

// RecordParams is one investor entry for add_investment_record.
type RecordParams struct {
	BatchID     uint16
	RecordID    uint64
	AccountID   types.AccountID
	Wallet      types.Address
	AmountUsdt  uint64
	AmountHcoin uint64
	Stage       uint8
}

func (p RecordParams) validate() error {
	if got := types.BatchIDForRecord(p.RecordID); got != p.BatchID {
		return types.NewCodedError(types.CodeRecordIdMismatch,
			"record %d belongs to batch %d, got %d", p.RecordID, got, p.BatchID)
	}
	if p.Stage < 1 || p.Stage > types.MaxStage {
		return types.NewCodedError(types.CodeInvalidStage, "stage %d out of range 1..%d", p.Stage, types.MaxStage)
	}
	if p.Wallet.IsZero() {
		return types.NewCodedError(types.CodeInvalidRecipientAddress, "record %d wallet is zero", p.RecordID)
	}
	return nil
}

// AddInvestmentRecord registers one investor record while the investment has
// not completed. Requires 3-of-5 update-whitelist signatures. The derived
// record address makes re-insertion fail with AccountAlreadyExists.
func (e *Engine) AddInvestmentRecord(id types.InvestmentID, ver types.Version, signers []types.Address, p RecordParams) error {
	return e.addRecords(id, ver, signers, []RecordParams{p})
}

// AddInvestmentRecords inserts many records, chunked so that no single
// transaction carries more than MaxRecordsPerTxn inserts. Chunks committed
// before a failing chunk stay committed; the caller retries the remainder.
func (e *Engine) AddInvestmentRecords(id types.InvestmentID, ver types.Version, signers []types.Address, records []RecordParams) (int, error) {
	added := 0
	for off := 0; off < len(records); off += e.cfg.MaxRecordsPerTxn {
		end := off + e.cfg.MaxRecordsPerTxn
		if end > len(records) {
			end = len(records)
		}
		if err := e.addRecords(id, ver, signers, records[off:end]); err != nil {
			return added, err
		}
		added += end - off
	}
	logs.Debug("investment %s/%s: %d records added", id, ver, added)
	return added, nil
}

func (e *Engine) addRecords(id types.InvestmentID, ver types.Version, signers []types.Address, records []RecordParams) error {
	for _, p := range records {
		if err := p.validate(); err != nil {
			return err
		}
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
		if err := requireNotCompleted(info); err != nil {
			return err
		}
		for _, p := range records {
			if tx.LiveRecordCount(id, ver, p.BatchID) >= types.MaxEntriesPerBatch {
				return types.NewCodedError(types.CodeTooManyRecordsLoaded,
					"batch %d already holds %d live records", p.BatchID, types.MaxEntriesPerBatch)
			}
			rec := &types.InvestmentRecord{
				BatchID:      p.BatchID,
				RecordID:     p.RecordID,
				AccountID:    p.AccountID,
				InvestmentID: id,
				Version:      ver,
				Wallet:       p.Wallet,
				AmountUsdt:   p.AmountUsdt,
				AmountHcoin:  p.AmountHcoin,
				Stage:        p.Stage,
				CreatedAt:    now,
			}
			if err := tx.CreateRecord(rec); err != nil {
				if errors.Is(err, db.ErrKeyExists) {
					return types.NewCodedError(types.CodeAccountAlreadyExists,
						"record %d already registered", p.RecordID)
				}
				return err
			}
			if err := appendEvent(tx, types.EventRecordAdded, id, ver, now, signers,
				correlate(id, ver, byte(p.BatchID), byte(p.BatchID>>8)), map[string]interface{}{
					"batch_id":  p.BatchID,
					"record_id": p.RecordID,
					"account":   p.AccountID.String(),
				}); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateInvestmentRecordWallets repoints the wallet of every record sharing
// the given account id. Zero matches is an error, not a silent no-op.
func (e *Engine) UpdateInvestmentRecordWallets(id types.InvestmentID, ver types.Version, signers []types.Address,
	accountID types.AccountID, newWallet types.Address) (int, error) {
	if newWallet.IsZero() {
		return 0, types.NewCodedError(types.CodeInvalidRecipientAddress, "new wallet is zero")
	}
	now := e.now()
	updated := 0
	err := e.store.Update(func(tx *db.Tx) error {
		updated = 0
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
		records, err := tx.RecordsByInvestment(id, ver)
		if err != nil {
			return err
		}
		for _, rec := range records {
			if rec.AccountID != accountID || rec.Wallet == newWallet {
				continue
			}
			rec.Wallet = newWallet
			if err := tx.PutRecord(rec, false); err != nil {
				return err
			}
			updated++
		}
		if updated == 0 {
			return types.NewCodedError(types.CodeNoRecordsUpdated,
				"no records for account %s", accountID)
		}
		return appendEvent(tx, types.EventRecordWalletsUpdated, id, ver, now, signers,
			correlate(id, ver), map[string]interface{}{
				"account": accountID.String(),
				"wallet":  newWallet.String(),
				"count":   updated,
			})
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// RevokeInvestmentRecord marks a record revoked, excluding it from all
// downstream sums. Only valid once the investment has completed.
func (e *Engine) RevokeInvestmentRecord(id types.InvestmentID, ver types.Version, signers []types.Address,
	batchID uint16, recordID uint64, accountID types.AccountID) error {
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
		addr := types.RecordAddress(id, ver, batchID, recordID, accountID)
		rec, err := tx.GetRecordByAddress(addr)
		if err == db.ErrKeyNotFound {
			return types.NewCodedError(types.CodeInvestmentRecordNotFound,
				"record %d batch %d account %s", recordID, batchID, accountID)
		}
		if err != nil {
			return err
		}
		if rec.RevokedAt != 0 {
			return types.NewCodedError(types.CodeRecordAlreadyRevoked,
				"record %d revoked at %d", recordID, rec.RevokedAt)
		}
		rec.RevokedAt = now
		if err := tx.PutRecord(rec, true); err != nil {
			return err
		}
		return appendEvent(tx, types.EventRecordRevoked, id, ver, now, signers,
			correlate(id, ver), map[string]interface{}{
				"batch_id":  batchID,
				"record_id": recordID,
				"account":   accountID.String(),
			})
	})
}
