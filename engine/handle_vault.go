package engine

import (
	"vaultshare/db"
	"vaultshare/logs"
	"vaultshare/types"
)

func loadVault(tx *db.Tx, id types.InvestmentID, ver types.Version) (*types.Vault, error) {
	v, err := tx.GetVault(types.VaultAddress(id, ver))
	if err == db.ErrKeyNotFound {
		return nil, types.NewCodedError(types.CodeInvestmentInfoNotFound,
			"no vault for %s version %s", id, ver)
	}
	return v, err
}

// DepositNativeToVault credits native currency to the vault. Unrestricted:
// any payer may deposit.
func (e *Engine) DepositNativeToVault(id types.InvestmentID, ver types.Version, amount uint64) error {
	now := e.now()
	return e.store.Update(func(tx *db.Tx) error {
		vault, err := loadVault(tx, id, ver)
		if err != nil {
			return err
		}
		if vault.NativeBalance, err = addU64(vault.NativeBalance, amount); err != nil {
			return err
		}
		if err := tx.PutVault(vault); err != nil {
			return err
		}
		return appendEvent(tx, types.EventVaultDepositNative, id, ver, now, nil,
			correlate(id, ver), map[string]uint64{"amount": amount})
	})
}

// DepositTokenToVault credits USDT or HCOIN to the vault's token account,
// opening it on first deposit. Unrestricted.
func (e *Engine) DepositTokenToVault(id types.InvestmentID, ver types.Version, mint types.Address, amount uint64) error {
	if mint != types.UsdtMint && mint != types.HcoinMint {
		return types.NewCodedError(types.CodeInvalidTokenMint, "mint %s", mint.Short())
	}
	now := e.now()
	return e.store.Update(func(tx *db.Tx) error {
		vault, err := loadVault(tx, id, ver)
		if err != nil {
			return err
		}
		tok, _, err := tx.EnsureTokenAccount(vault.Address(), mint, now)
		if err != nil {
			return err
		}
		if tok.Balance, err = addU64(tok.Balance, amount); err != nil {
			return err
		}
		if err := tx.PutTokenAccount(tok); err != nil {
			return err
		}
		return appendEvent(tx, types.EventVaultDepositToken, id, ver, now, nil,
			correlate(id, ver), map[string]interface{}{
				"mint":   mint.String(),
				"amount": amount,
			})
	})
}

// WithdrawFromVault sweeps the vault's full native and token balances to a
// withdraw-whitelisted recipient. Requires 3-of-5 execute signatures and a
// completed investment; deactivation does not block the sweep, it is the
// intended end-of-lifecycle path.
func (e *Engine) WithdrawFromVault(id types.InvestmentID, ver types.Version, signers []types.Address, recipient types.Address) error {
	now := e.now()
	return e.store.Update(func(tx *db.Tx) error {
		info, err := loadInfo(tx, id, ver)
		if err != nil {
			return err
		}
		if err := info.VerifySigners3of5(signers, types.WhitelistExecute); err != nil {
			return err
		}
		if err := requireCompleted(info); err != nil {
			return err
		}
		allowed := false
		for _, w := range info.WithdrawWhitelist {
			if w == recipient {
				allowed = true
				break
			}
		}
		if !allowed {
			return types.NewCodedError(types.CodeUnauthorizedRecipient,
				"recipient %s not in withdraw whitelist", recipient.Short())
		}

		vault, err := tx.GetVault(info.Vault)
		if err != nil {
			return err
		}

		swept := map[string]uint64{}
		var nativeCost uint64
		for _, mint := range []types.Address{types.UsdtMint, types.HcoinMint} {
			vaultTok, err := tx.GetTokenAccount(info.Vault, mint)
			if err == db.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}
			if vaultTok.Balance == 0 {
				continue
			}
			amount := vaultTok.Balance
			cost, err := e.payEntry(tx, vaultTok, recipient, mint, amount, now)
			if err != nil {
				return err
			}
			if nativeCost, err = addU64(nativeCost, cost); err != nil {
				return err
			}
			if err := tx.PutTokenAccount(vaultTok); err != nil {
				return err
			}
			swept[mint.String()] = amount
		}
		if vault.NativeBalance < nativeCost {
			return types.NewCodedError(types.CodeInsufficientNativeBalance,
				"vault native %d, provisioning needs %d", vault.NativeBalance, nativeCost)
		}
		nativeOut := vault.NativeBalance - nativeCost
		vault.NativeBalance = 0
		if err := tx.PutVault(vault); err != nil {
			return err
		}
		logs.Info("vault %s swept to %s: native %d, tokens %v",
			info.Vault.Short(), recipient.Short(), nativeOut, swept)
		return appendEvent(tx, types.EventVaultWithdrawn, id, ver, now, signers,
			correlate(id, ver), map[string]interface{}{
				"recipient": recipient.String(),
				"native":    nativeOut,
				"tokens":    swept,
			})
	})
}
