package engine

import (
	"encoding/json"
	"fmt"

	"vaultshare/types"
)

// Instruction 是签名信封内携带的 JSON 指令体。各 op 一对一映射到受名单
// 门限保护的处理器；创建与入金不收签名，直接走类型化 API。
type Instruction struct {
	Op           string          `json:"op"`
	InvestmentID string          `json:"investment_id"`
	Version      string          `json:"version"`
	Args         json.RawMessage `json:"args,omitempty"`
}

const (
	OpUpdateInvestmentInfo = "update_investment_info"
	OpCompleteInvestment   = "complete_investment_info"
	OpDeactivateInvestment = "deactivate_investment_info"
	OpRevokeRecord         = "revoke_investment_record"
)

type updateInfoArgs struct {
	StageRatio *types.StageRatio `json:"stage_ratio,omitempty"`
	StartAt    *int64            `json:"start_at,omitempty"`
	EndAt      *int64            `json:"end_at,omitempty"`
	UpperLimit *uint64           `json:"upper_limit,omitempty"`
}

type revokeRecordArgs struct {
	BatchID   uint16 `json:"batch_id"`
	RecordID  uint64 `json:"record_id"`
	AccountID string `json:"account_id"`
}

// Dispatch 恢复信封签名人并把指令路由到对应处理器。签名人授权仍在各
// 处理器内部完成，这里只做签名恢复与载荷解码。
func (e *Engine) Dispatch(env *Envelope) error {
	var ins Instruction
	if err := json.Unmarshal(env.Payload, &ins); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	signers, err := env.Signers()
	if err != nil {
		return err
	}
	id, err := types.NewInvestmentID(ins.InvestmentID)
	if err != nil {
		return err
	}
	ver, err := types.NewVersion(ins.Version)
	if err != nil {
		return err
	}

	switch ins.Op {
	case OpUpdateInvestmentInfo:
		var args updateInfoArgs
		if err := json.Unmarshal(ins.Args, &args); err != nil {
			return fmt.Errorf("dispatch %s: %w", ins.Op, err)
		}
		return e.UpdateInvestmentInfo(id, ver, signers, UpdateInfoParams{
			StageRatio: args.StageRatio,
			StartAt:    args.StartAt,
			EndAt:      args.EndAt,
			UpperLimit: args.UpperLimit,
		})
	case OpCompleteInvestment:
		return e.CompleteInvestment(id, ver, signers)
	case OpDeactivateInvestment:
		return e.DeactivateInvestment(id, ver, signers)
	case OpRevokeRecord:
		var args revokeRecordArgs
		if err := json.Unmarshal(ins.Args, &args); err != nil {
			return fmt.Errorf("dispatch %s: %w", ins.Op, err)
		}
		acct, err := types.NewAccountID(args.AccountID)
		if err != nil {
			return err
		}
		return e.RevokeInvestmentRecord(id, ver, signers, args.BatchID, args.RecordID, acct)
	default:
		return fmt.Errorf("dispatch: unknown op %q", ins.Op)
	}
}
