package engine

import (
	"vaultshare/db"
	"vaultshare/logs"
	"vaultshare/types"
)

// resolveCacheTable loads the batch's "cache" lookup table and verifies it
// covers every recipient token account the distribution will touch.
func (e *Engine) resolveCacheTable(cacheTable types.Address, id types.InvestmentID, ver types.Version,
	batchID uint16, yearIndex uint8, recipients []types.Address) error {
	table, err := e.lk.Resolve(cacheTable)
	if err != nil {
		return err
	}
	if table.Kind != types.LookupKindCache || table.InvestmentID != id ||
		table.Version != ver || table.BatchID != batchID || table.YearIndex != yearIndex {
		return types.NewCodedError(types.CodeLookupTableMismatch,
			"table %s is not the cache table of batch %d", cacheTable.Short(), batchID)
	}
	covered := make(map[types.Address]struct{}, len(table.Addresses))
	for _, a := range table.Addresses {
		covered[a] = struct{}{}
	}
	for _, r := range recipients {
		if _, ok := covered[r]; !ok {
			return types.NewCodedError(types.CodeLookupTableMismatch,
				"recipient %s missing from lookup table %s", r.Short(), cacheTable.Short())
		}
	}
	return nil
}

// payEntry moves amount from the vault's token account to the recipient,
// provisioning the recipient account if it does not exist yet. Returns the
// native provisioning cost incurred (0 if the account already existed).
func (e *Engine) payEntry(tx *db.Tx, vaultTok *types.TokenAccount, wallet types.Address,
	mint types.Address, amount uint64, now int64) (uint64, error) {
	recip, created, err := tx.EnsureTokenAccount(wallet, mint, now)
	if err != nil {
		return 0, err
	}
	if vaultTok.Balance < amount {
		return 0, types.NewCodedError(types.CodeInsufficientTokenBalance,
			"vault holds %d, entry needs %d", vaultTok.Balance, amount)
	}
	vaultTok.Balance -= amount
	newBal, err := addU64(recip.Balance, amount)
	if err != nil {
		return 0, err
	}
	recip.Balance = newBal
	if err := tx.PutTokenAccount(recip); err != nil {
		return 0, err
	}
	var cost uint64
	if created {
		cost = types.EstimateNativePerEntry
	}
	return cost, nil
}

// ExecuteProfitShare consumes a batch's profit cache: transfers every cached
// USDT amount from the vault to the entry's recipient token account, then
// marks the cache executed in the same transaction. A consumed or expired
// cache cannot be executed again.
func (e *Engine) ExecuteProfitShare(id types.InvestmentID, ver types.Version, signers []types.Address,
	batchID uint16, cacheTable types.Address) error {
	now := e.now()
	return e.store.Update(func(tx *db.Tx) error {
		info, err := loadInfo(tx, id, ver)
		if err != nil {
			return err
		}
		if err := info.VerifySigners3of5(signers, types.WhitelistExecute); err != nil {
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

		cache, err := tx.GetProfitCache(types.ProfitCacheAddress(id, ver, batchID))
		if err == db.ErrKeyNotFound {
			return types.NewCodedError(types.CodeProfitCacheNotFound, "batch %d", batchID)
		}
		if err != nil {
			return err
		}
		if cache.ExecutedAt != 0 {
			return types.NewCodedError(types.CodeProfitAlreadyExecuted,
				"batch %d executed at %d", batchID, cache.ExecutedAt)
		}
		if cache.Expired(now) {
			return types.NewCodedError(types.CodeProfitCacheExpired,
				"batch %d cache created at %d", batchID, cache.CreatedAt)
		}

		recipients := make([]types.Address, len(cache.Entries))
		for i, entry := range cache.Entries {
			recipients[i] = entry.RecipientToken
		}
		if err := e.resolveCacheTable(cacheTable, id, ver, batchID, 0, recipients); err != nil {
			return err
		}

		vault, err := tx.GetVault(info.Vault)
		if err != nil {
			return err
		}
		vaultTok, err := tx.GetTokenAccount(info.Vault, types.UsdtMint)
		if err == db.ErrKeyNotFound {
			return types.NewCodedError(types.CodeMissingTokenAccount, "vault has no USDT account")
		}
		if err != nil {
			return err
		}
		if vaultTok.Balance < cache.SubtotalProfitUsdt {
			return types.NewCodedError(types.CodeInsufficientTokenBalance,
				"vault USDT %d, batch needs %d", vaultTok.Balance, cache.SubtotalProfitUsdt)
		}

		var nativeCost uint64
		for _, entry := range cache.Entries {
			cost, err := e.payEntry(tx, vaultTok, entry.Wallet, types.UsdtMint, entry.AmountUsdt, now)
			if err != nil {
				return err
			}
			if nativeCost, err = addU64(nativeCost, cost); err != nil {
				return err
			}
			if err := appendEvent(tx, types.EventProfitPaid, id, ver, now, nil,
				correlate(id, ver, byte(batchID), byte(batchID>>8)), map[string]interface{}{
					"account":     entry.AccountID.String(),
					"wallet":      entry.Wallet.String(),
					"amount_usdt": entry.AmountUsdt,
				}); err != nil {
				return err
			}
		}
		if vault.NativeBalance < nativeCost {
			return types.NewCodedError(types.CodeInsufficientNativeBalance,
				"vault native %d, provisioning needs %d", vault.NativeBalance, nativeCost)
		}
		vault.NativeBalance -= nativeCost
		if err := tx.PutTokenAccount(vaultTok); err != nil {
			return err
		}
		if err := tx.PutVault(vault); err != nil {
			return err
		}

		cache.ExecutedAt = now
		if err := tx.PutProfitCache(cache); err != nil {
			return err
		}
		logs.Info("profit executed %s/%s batch %d: %d entries, %d USDT",
			id, ver, batchID, len(cache.Entries), cache.SubtotalProfitUsdt)
		return appendEvent(tx, types.EventProfitShareExecuted, id, ver, now, signers,
			correlate(id, ver, byte(batchID), byte(batchID>>8)), map[string]interface{}{
				"batch_id":      batchID,
				"entries":       len(cache.Entries),
				"subtotal_usdt": cache.SubtotalProfitUsdt,
				"native_cost":   nativeCost,
			})
	})
}

// ExecuteRefundShare consumes a batch's refund cache for one year, paying
// HCOIN from the vault to each recipient.
func (e *Engine) ExecuteRefundShare(id types.InvestmentID, ver types.Version, signers []types.Address,
	batchID uint16, yearIndex uint8, cacheTable types.Address) error {
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
		if err := info.VerifySigners3of5(signers, types.WhitelistExecute); err != nil {
			return err
		}
		if err := requireActive(info); err != nil {
			return err
		}
		if err := requireCompleted(info); err != nil {
			return err
		}

		cache, err := tx.GetRefundCache(types.RefundCacheAddress(id, ver, batchID, yearIndex))
		if err == db.ErrKeyNotFound {
			return types.NewCodedError(types.CodeRefundCacheNotFound,
				"batch %d year %d", batchID, yearIndex)
		}
		if err != nil {
			return err
		}
		if cache.ExecutedAt != 0 {
			return types.NewCodedError(types.CodeRefundAlreadyExecuted,
				"batch %d year %d executed at %d", batchID, yearIndex, cache.ExecutedAt)
		}
		if cache.Expired(now) {
			return types.NewCodedError(types.CodeRefundCacheExpired,
				"batch %d year %d cache created at %d", batchID, yearIndex, cache.CreatedAt)
		}

		recipients := make([]types.Address, len(cache.Entries))
		for i, entry := range cache.Entries {
			recipients[i] = entry.RecipientToken
		}
		if err := e.resolveCacheTable(cacheTable, id, ver, batchID, yearIndex, recipients); err != nil {
			return err
		}

		vault, err := tx.GetVault(info.Vault)
		if err != nil {
			return err
		}
		vaultTok, err := tx.GetTokenAccount(info.Vault, types.HcoinMint)
		if err == db.ErrKeyNotFound {
			return types.NewCodedError(types.CodeMissingTokenAccount, "vault has no HCOIN account")
		}
		if err != nil {
			return err
		}
		if vaultTok.Balance < cache.SubtotalRefundHcoin {
			return types.NewCodedError(types.CodeInsufficientTokenBalance,
				"vault HCOIN %d, batch needs %d", vaultTok.Balance, cache.SubtotalRefundHcoin)
		}

		var nativeCost uint64
		for _, entry := range cache.Entries {
			if entry.AmountHcoin == 0 {
				continue
			}
			cost, err := e.payEntry(tx, vaultTok, entry.Wallet, types.HcoinMint, entry.AmountHcoin, now)
			if err != nil {
				return err
			}
			if nativeCost, err = addU64(nativeCost, cost); err != nil {
				return err
			}
			if err := appendEvent(tx, types.EventRefundPaid, id, ver, now, nil,
				correlate(id, ver, byte(batchID), byte(batchID>>8), yearIndex), map[string]interface{}{
					"account":      entry.AccountID.String(),
					"wallet":       entry.Wallet.String(),
					"amount_hcoin": entry.AmountHcoin,
				}); err != nil {
				return err
			}
		}
		if vault.NativeBalance < nativeCost {
			return types.NewCodedError(types.CodeInsufficientNativeBalance,
				"vault native %d, provisioning needs %d", vault.NativeBalance, nativeCost)
		}
		vault.NativeBalance -= nativeCost
		if err := tx.PutTokenAccount(vaultTok); err != nil {
			return err
		}
		if err := tx.PutVault(vault); err != nil {
			return err
		}

		cache.ExecutedAt = now
		if err := tx.PutRefundCache(cache); err != nil {
			return err
		}
		logs.Info("refund executed %s/%s batch %d year %d: %d entries, %d HCOIN",
			id, ver, batchID, yearIndex, len(cache.Entries), cache.SubtotalRefundHcoin)
		return appendEvent(tx, types.EventRefundShareExecuted, id, ver, now, signers,
			correlate(id, ver, byte(batchID), byte(batchID>>8), yearIndex), map[string]interface{}{
				"batch_id":       batchID,
				"year_index":     yearIndex,
				"entries":        len(cache.Entries),
				"subtotal_hcoin": cache.SubtotalRefundHcoin,
				"native_cost":    nativeCost,
			})
	})
}
