package engine

import (
	"vaultshare/db"
	"vaultshare/types"
)

// PatchExecuteWhitelist replaces one slot of the execute whitelist.
// The execute whitelist governs itself: 3-of-5 execute signatures.
func (e *Engine) PatchExecuteWhitelist(id types.InvestmentID, ver types.Version, signers []types.Address, from, to types.Address) error {
	return e.patchFixedWhitelist(id, ver, signers, from, to, types.WhitelistExecute, types.WhitelistExecute)
}

// PatchUpdateWhitelist replaces one slot of the update whitelist, signed by
// 3-of-5 of the update whitelist itself.
func (e *Engine) PatchUpdateWhitelist(id types.InvestmentID, ver types.Version, signers []types.Address, from, to types.Address) error {
	return e.patchFixedWhitelist(id, ver, signers, from, to, types.WhitelistUpdate, types.WhitelistUpdate)
}

func (e *Engine) patchFixedWhitelist(id types.InvestmentID, ver types.Version, signers []types.Address,
	from, to types.Address, signedBy, target types.WhitelistKind) error {
	if to.IsZero() {
		return types.NewCodedError(types.CodeInvalidRecipientAddress, "replacement address is zero")
	}
	now := e.now()
	return e.store.Update(func(tx *db.Tx) error {
		info, err := loadInfo(tx, id, ver)
		if err != nil {
			return err
		}
		if err := info.VerifySigners3of5(signers, signedBy); err != nil {
			return err
		}
		if err := requireActive(info); err != nil {
			return err
		}
		var list []types.Address
		switch target {
		case types.WhitelistExecute:
			list = info.ExecuteWhitelist
		case types.WhitelistUpdate:
			list = info.UpdateWhitelist
		}
		if err := types.PatchWhitelist(list, from, to); err != nil {
			return err
		}
		if err := tx.PutInvestmentInfo(info); err != nil {
			return err
		}
		return appendEvent(tx, types.EventWhitelistPatched, id, ver, now, signers,
			correlate(id, ver, byte(target)), map[string]string{
				"list": target.String(),
				"from": from.String(),
				"to":   to.String(),
			})
	})
}

// PatchWithdrawWhitelist replaces the withdraw whitelist atomically with the
// supplied set. Gated by 3-of-5 execute signatures.
func (e *Engine) PatchWithdrawWhitelist(id types.InvestmentID, ver types.Version, signers []types.Address, wallets []types.Address) error {
	if err := types.ValidateWithdrawSet(wallets); err != nil {
		return err
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
		info.WithdrawWhitelist = append([]types.Address(nil), wallets...)
		if err := tx.PutInvestmentInfo(info); err != nil {
			return err
		}
		return appendEvent(tx, types.EventWithdrawWhitelistReset, id, ver, now, signers,
			correlate(id, ver, byte(types.WhitelistWithdraw)), map[string]interface{}{
				"wallets": signerStrings(wallets),
			})
	})
}
