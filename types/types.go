package types

// InvestmentType distinguishes campaigns that distribute profit (standard)
// from CSR campaigns that only refund principal.
type InvestmentType uint8

const (
	InvestmentTypeStandard InvestmentType = 0
	InvestmentTypeCsr      InvestmentType = 1
)

func (t InvestmentType) String() string {
	switch t {
	case InvestmentTypeStandard:
		return "standard"
	case InvestmentTypeCsr:
		return "csr"
	default:
		return "unknown"
	}
}

// InvestmentState is the campaign lifecycle state.
// pending --complete()--> completed; deactivate() layers is_active=false on
// top of completed as the stronger terminal condition.
type InvestmentState uint16

const (
	StatePending   InvestmentState = 1
	StateCompleted InvestmentState = 999
)

func (s InvestmentState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// StageRatio is the 3-stage × 10-slot refund ratio table. Per stage:
// slots 0..2 are the zero years, 3..8 the mid years, 9 the last year.
// Values are integer percentages.
type StageRatio [MaxStage][StageRatioSlots]uint8

// Validate enforces the table rules: every value 0..=100, per-stage sum
// ≤ 100, non-zero values contiguous once started, and at least one non-zero
// value across all stages.
func (r StageRatio) Validate() error {
	anyNonzero := false
	for stage := 0; stage < MaxStage; stage++ {
		sum := uint32(0)
		started := false
		for i, val := range r[stage] {
			if val > 100 {
				return NewCodedError(CodeInvalidStageRatioValue,
					"stage %d slot %d: value %d out of range", stage+1, i, val)
			}
			if val > 0 {
				anyNonzero = true
				started = true
			}
			if started && val == 0 && i < StageRatioSlots-1 {
				// once started, only trailing zeros are allowed
				for _, rest := range r[stage][i+1:] {
					if rest != 0 {
						return NewCodedError(CodeNonContiguousStage,
							"stage %d: zero slot %d before further non-zero values", stage+1, i)
					}
				}
				break
			}
			sum += uint32(val)
		}
		if sum > 100 {
			return NewCodedError(CodeInvalidStageRatioSum,
				"stage %d: ratio sum %d exceeds 100", stage+1, sum)
		}
	}
	if !anyNonzero {
		return NewCodedError(CodeEmptyStageRatio, "all stage ratio values are zero")
	}
	return nil
}

// Percentage returns the refund percentage for a stage (1..=3) in a given
// year index (0..=9). Out-of-range input yields 0.
func (r StageRatio) Percentage(stage uint8, yearIndex uint8) uint8 {
	if stage < 1 || stage > MaxStage || yearIndex > MaxYearIndex {
		return 0
	}
	return r[stage-1][yearIndex]
}

// InvestmentInfo is the campaign metadata plus lifecycle state. Created once
// per (investmentId, version); never deleted.
type InvestmentInfo struct {
	InvestmentID         InvestmentID
	Version              Version
	InvestmentType       InvestmentType
	StageRatio           StageRatio
	StartAt              int64
	EndAt                int64
	InvestmentUpperLimit uint64
	ExecuteWhitelist     []Address
	UpdateWhitelist      []Address
	WithdrawWhitelist    []Address
	Vault                Address
	State                InvestmentState
	IsActive             bool
	CreatedAt            int64
}

// Clone returns a deep copy. Callers that mutate a cached InvestmentInfo
// must work on a copy so that an aborted transaction leaves the cache clean.
func (info *InvestmentInfo) Clone() *InvestmentInfo {
	out := *info
	out.ExecuteWhitelist = append([]Address(nil), info.ExecuteWhitelist...)
	out.UpdateWhitelist = append([]Address(nil), info.UpdateWhitelist...)
	out.WithdrawWhitelist = append([]Address(nil), info.WithdrawWhitelist...)
	return &out
}

// InvestmentRecord is one investor position inside a batch. Revoked records
// stay on the ledger but are excluded from downstream sums.
type InvestmentRecord struct {
	BatchID      uint16
	RecordID     uint64
	AccountID    AccountID
	InvestmentID InvestmentID
	Version      Version
	Wallet       Address
	AmountUsdt   uint64
	AmountHcoin  uint64
	Stage        uint8
	RevokedAt    int64 // 0 = active
	CreatedAt    int64
}

func (r *InvestmentRecord) Address() Address {
	return RecordAddress(r.InvestmentID, r.Version, r.BatchID, r.RecordID, r.AccountID)
}

// BatchIDForRecord assigns the batch for a record id (1-based):
// batch = ceil(recordId / 30).
func BatchIDForRecord(recordID uint64) uint16 {
	if recordID == 0 {
		return 0
	}
	return uint16((recordID + MaxEntriesPerBatch - 1) / MaxEntriesPerBatch)
}

// ProfitEntry is one investor's computed profit share.
type ProfitEntry struct {
	AccountID      AccountID
	Wallet         Address
	AmountUsdt     uint64
	RatioBp        uint16
	RecipientToken Address
}

// ProfitShareCache holds the computed profit distribution for one batch.
// Immutable once created; ExecutedAt != 0 marks it consumed.
type ProfitShareCache struct {
	BatchID                uint16
	InvestmentID           InvestmentID
	Version                Version
	SubtotalProfitUsdt     uint64
	SubtotalEstimateNative uint64
	ExecutedAt             int64
	CreatedAt              int64
	Entries                []ProfitEntry
}

func (c *ProfitShareCache) Address() Address {
	return ProfitCacheAddress(c.InvestmentID, c.Version, c.BatchID)
}

// Expired reports whether the cache is past its validity window at time now.
func (c *ProfitShareCache) Expired(now int64) bool {
	return now-c.CreatedAt > ShareCacheExpireSecs
}

// RefundEntry is one investor's computed refund share for a year.
type RefundEntry struct {
	AccountID      AccountID
	Wallet         Address
	AmountHcoin    uint64
	Stage          uint8
	RecipientToken Address
}

// RefundShareCache holds the computed refund distribution for one batch in
// one refund year. Immutable once created; ExecutedAt != 0 marks it consumed.
type RefundShareCache struct {
	BatchID                uint16
	YearIndex              uint8
	InvestmentID           InvestmentID
	Version                Version
	SubtotalRefundHcoin    uint64
	SubtotalEstimateNative uint64
	ExecutedAt             int64
	CreatedAt              int64
	Entries                []RefundEntry
}

func (c *RefundShareCache) Address() Address {
	return RefundCacheAddress(c.InvestmentID, c.Version, c.BatchID, c.YearIndex)
}

func (c *RefundShareCache) Expired(now int64) bool {
	return now-c.CreatedAt > ShareCacheExpireSecs
}

// Vault is the custodial account for one (investmentId, version). Token
// balances live in TokenAccounts owned by the vault address.
type Vault struct {
	InvestmentID  InvestmentID
	Version       Version
	NativeBalance uint64
	CreatedAt     int64
}

func (v *Vault) Address() Address {
	return VaultAddress(v.InvestmentID, v.Version)
}

// TokenAccount holds one wallet's balance of one mint.
type TokenAccount struct {
	Wallet    Address
	Mint      Address
	Balance   uint64
	CreatedAt int64
}

func (t *TokenAccount) Address() Address {
	return TokenAccountAddress(t.Wallet, t.Mint)
}
