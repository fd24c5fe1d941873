package engine

import (
	"time"

	"vaultshare/config"
	"vaultshare/db"
	"vaultshare/lookup"
	"vaultshare/types"
)

// Engine executes governed instructions against the store. Every handler is
// one atomic store transaction: it either commits all of its writes or none.
// Signer sets are pre-recovered addresses (see Envelope); handlers only check
// thresholds against the governed whitelists.
type Engine struct {
	store *db.Manager
	cfg   config.EngineConfig
	lk    *lookup.Orchestrator

	now func() int64
}

func New(store *db.Manager, cfg config.EngineConfig, lk *lookup.Orchestrator) *Engine {
	return &Engine{
		store: store,
		cfg:   cfg,
		lk:    lk,
		now:   func() int64 { return time.Now().Unix() },
	}
}

// SetClock 测试用
func (e *Engine) SetClock(fn func() int64) { e.now = fn }

func (e *Engine) Lookup() *lookup.Orchestrator { return e.lk }

// loadInfo resolves the InvestmentInfo account or reports the domain code.
func loadInfo(tx *db.Tx, id types.InvestmentID, ver types.Version) (*types.InvestmentInfo, error) {
	info, err := tx.GetInvestmentInfo(types.InvestmentAddress(id, ver))
	if err == db.ErrKeyNotFound {
		return nil, types.NewCodedError(types.CodeInvestmentInfoNotFound,
			"investment %s version %s", id, ver)
	}
	return info, err
}

func requireActive(info *types.InvestmentInfo) error {
	if !info.IsActive {
		return types.NewCodedError(types.CodeInvestmentInfoDeactivated,
			"investment %s is deactivated", info.InvestmentID)
	}
	return nil
}

func requireCompleted(info *types.InvestmentInfo) error {
	if info.State != types.StateCompleted {
		return types.NewCodedError(types.CodeInvestmentInfoNotCompleted,
			"investment %s state is %s", info.InvestmentID, info.State)
	}
	return nil
}

func requireNotCompleted(info *types.InvestmentInfo) error {
	if info.State == types.StateCompleted {
		return types.NewCodedError(types.CodeInvestmentInfoHasCompleted,
			"investment %s already completed", info.InvestmentID)
	}
	return nil
}

func signerStrings(signers []types.Address) []string {
	out := make([]string, len(signers))
	for i, s := range signers {
		out[i] = s.String()
	}
	return out
}
