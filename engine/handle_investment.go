package engine

import (
	"errors"

	"vaultshare/db"
	"vaultshare/logs"
	"vaultshare/types"
)

// InitializeParams carries everything initialize_investment_info needs.
// The caller is any payer; no whitelist gates creation.
type InitializeParams struct {
	InvestmentID         types.InvestmentID
	Version              types.Version
	InvestmentType       types.InvestmentType
	StageRatio           types.StageRatio
	StartAt              int64
	EndAt                int64
	InvestmentUpperLimit uint64
	ExecuteWhitelist     []types.Address
	UpdateWhitelist      []types.Address
	WithdrawWhitelist    []types.Address
}

func validateFixedWhitelist(kind types.WhitelistKind, list []types.Address) error {
	if len(list) != types.MaxWhitelistLen {
		return types.NewCodedError(types.CodeWhitelistMustBeFive,
			"%s whitelist has %d members, want %d", kind, len(list), types.MaxWhitelistLen)
	}
	seen := make(map[types.Address]struct{}, len(list))
	for _, a := range list {
		if a.IsZero() {
			return types.NewCodedError(types.CodeInvalidRecipientAddress,
				"%s whitelist contains the zero address", kind)
		}
		if _, dup := seen[a]; dup {
			return types.NewCodedError(types.CodeWhitelistAddressExists,
				"%s whitelist has duplicate %s", kind, a.Short())
		}
		seen[a] = struct{}{}
	}
	return nil
}

// InitializeInvestment creates the InvestmentInfo and its vault at their
// derived addresses. Re-running with the same (id, version) fails with
// AccountAlreadyExists; the derived address is the uniqueness guard.
func (e *Engine) InitializeInvestment(p InitializeParams) error {
	if err := p.StageRatio.Validate(); err != nil {
		return err
	}
	if err := validateFixedWhitelist(types.WhitelistExecute, p.ExecuteWhitelist); err != nil {
		return err
	}
	if err := validateFixedWhitelist(types.WhitelistUpdate, p.UpdateWhitelist); err != nil {
		return err
	}
	if err := types.ValidateWithdrawSet(p.WithdrawWhitelist); err != nil {
		return err
	}

	now := e.now()
	vault := &types.Vault{InvestmentID: p.InvestmentID, Version: p.Version, CreatedAt: now}
	info := &types.InvestmentInfo{
		InvestmentID:         p.InvestmentID,
		Version:              p.Version,
		InvestmentType:       p.InvestmentType,
		StageRatio:           p.StageRatio,
		StartAt:              p.StartAt,
		EndAt:                p.EndAt,
		InvestmentUpperLimit: p.InvestmentUpperLimit,
		ExecuteWhitelist:     append([]types.Address(nil), p.ExecuteWhitelist...),
		UpdateWhitelist:      append([]types.Address(nil), p.UpdateWhitelist...),
		WithdrawWhitelist:    append([]types.Address(nil), p.WithdrawWhitelist...),
		Vault:                vault.Address(),
		State:                types.StatePending,
		IsActive:             true,
		CreatedAt:            now,
	}

	err := e.store.Update(func(tx *db.Tx) error {
		if err := tx.CreateInvestmentInfo(info); err != nil {
			if errors.Is(err, db.ErrKeyExists) {
				return types.NewCodedError(types.CodeAccountAlreadyExists,
					"investment %s version %s already initialized", p.InvestmentID, p.Version)
			}
			return err
		}
		if err := tx.CreateVault(vault); err != nil {
			if errors.Is(err, db.ErrKeyExists) {
				return types.NewCodedError(types.CodeAccountAlreadyExists,
					"vault for %s version %s already exists", p.InvestmentID, p.Version)
			}
			return err
		}
		return appendEvent(tx, types.EventInvestmentInitialized, p.InvestmentID, p.Version,
			now, nil, correlate(p.InvestmentID, p.Version), map[string]interface{}{
				"type":  p.InvestmentType.String(),
				"vault": vault.Address().String(),
			})
	})
	if err != nil {
		return err
	}
	logs.Info("investment %s/%s initialized, vault %s", p.InvestmentID, p.Version, vault.Address().Short())
	return nil
}

// UpdateInfoParams patches mutable InvestmentInfo metadata. Nil fields are
// left untouched; the lifecycle state only moves through CompleteInvestment.
type UpdateInfoParams struct {
	StageRatio *types.StageRatio
	StartAt    *int64
	EndAt      *int64
	UpperLimit *uint64
}

// UpdateInvestmentInfo edits metadata while the investment has not
// completed. Requires 3-of-5 update-whitelist signatures.
func (e *Engine) UpdateInvestmentInfo(id types.InvestmentID, ver types.Version, signers []types.Address, p UpdateInfoParams) error {
	if p.StageRatio != nil {
		if err := p.StageRatio.Validate(); err != nil {
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
		if p.StageRatio != nil {
			info.StageRatio = *p.StageRatio
		}
		if p.StartAt != nil {
			info.StartAt = *p.StartAt
		}
		if p.EndAt != nil {
			info.EndAt = *p.EndAt
		}
		if p.UpperLimit != nil {
			info.InvestmentUpperLimit = *p.UpperLimit
		}
		if err := tx.PutInvestmentInfo(info); err != nil {
			return err
		}
		return appendEvent(tx, types.EventInvestmentUpdated, id, ver, now, signers,
			correlate(id, ver), nil)
	})
}

// CompleteInvestment moves the investment one-way to completed.
func (e *Engine) CompleteInvestment(id types.InvestmentID, ver types.Version, signers []types.Address) error {
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
		info.State = types.StateCompleted
		if err := tx.PutInvestmentInfo(info); err != nil {
			return err
		}
		return appendEvent(tx, types.EventInvestmentCompleted, id, ver, now, signers,
			correlate(id, ver), nil)
	})
}

// DeactivateInvestment marks a completed investment inactive. This is the
// terminal state; only vault withdrawal remains meaningful afterwards.
func (e *Engine) DeactivateInvestment(id types.InvestmentID, ver types.Version, signers []types.Address) error {
	now := e.now()
	return e.store.Update(func(tx *db.Tx) error {
		info, err := loadInfo(tx, id, ver)
		if err != nil {
			return err
		}
		if err := info.VerifySigners3of5(signers, types.WhitelistUpdate); err != nil {
			return err
		}
		if err := requireCompleted(info); err != nil {
			return err
		}
		if err := requireActive(info); err != nil {
			return err
		}
		info.IsActive = false
		if err := tx.PutInvestmentInfo(info); err != nil {
			return err
		}
		return appendEvent(tx, types.EventInvestmentDeactivated, id, ver, now, signers,
			correlate(id, ver), nil)
	})
}
