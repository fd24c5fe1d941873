package types

import "encoding/json"

// ============================================
// 审计事件
// ============================================

type EventType string

const (
	EventInvestmentInitialized  EventType = "investment.initialized"
	EventInvestmentUpdated      EventType = "investment.updated"
	EventInvestmentCompleted    EventType = "investment.completed"
	EventInvestmentDeactivated  EventType = "investment.deactivated"
	EventWhitelistPatched       EventType = "whitelist.patched"
	EventWithdrawWhitelistReset EventType = "whitelist.withdraw_reset"
	EventRecordAdded            EventType = "record.added"
	EventRecordWalletsUpdated   EventType = "record.wallets_updated"
	EventRecordRevoked          EventType = "record.revoked"
	EventProfitShareEstimated   EventType = "profit.estimated"
	EventProfitShareExecuted    EventType = "profit.executed"
	EventProfitPaid             EventType = "profit.paid"
	EventRefundShareEstimated   EventType = "refund.estimated"
	EventRefundShareExecuted    EventType = "refund.executed"
	EventRefundPaid             EventType = "refund.paid"
	EventVaultDepositNative     EventType = "vault.deposit_native"
	EventVaultDepositToken      EventType = "vault.deposit_token"
	EventVaultWithdrawn         EventType = "vault.withdrawn"
)

// Event is one append-only audit log entry. Seq is assigned by the store.
type Event struct {
	Seq          uint64          `json:"seq"`
	Type         EventType       `json:"type"`
	InvestmentID string          `json:"investment_id"`
	Version      string          `json:"version"`
	At           int64           `json:"at"`
	Signers      []string        `json:"signers,omitempty"`
	Correlation  uint64          `json:"correlation,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
}
