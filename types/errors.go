package types

import (
	"errors"
	"fmt"
)

// Code is a stable, enumerable error identifier surfaced to callers. Every
// failed operation aborts its enclosing transaction and reports exactly one
// code; callers re-derive fresh state and retry with corrected inputs.
type Code string

const (
	// 通用
	CodeNumericalOverflow    Code = "NumericalOverflow"
	CodeUnauthorizedSigner   Code = "UnauthorizedSigner"
	CodeAccountAlreadyExists Code = "AccountAlreadyExists"

	// Investment info 生命周期
	CodeInvalidInvestmentIdLength Code = "InvalidInvestmentIdLength"
	CodeInvalidStageRatioLength   Code = "InvalidStageRatioLength"
	CodeInvalidStageRatioValue    Code = "InvalidStageRatioValue"
	CodeInvalidStageRatioSum      Code = "InvalidStageRatioSum"
	CodeNonContiguousStage        Code = "NonContiguousStage"
	CodeEmptyStageRatio           Code = "EmptyStageRatio"
	CodeInvestmentInfoNotFound    Code = "InvestmentInfoNotFound"
	CodeInvestmentInfoNotCompleted Code = "InvestmentInfoNotCompleted"
	CodeInvestmentInfoHasCompleted Code = "InvestmentInfoHasCompleted"
	CodeInvestmentInfoDeactivated  Code = "InvestmentInfoDeactivated"

	// Investment records
	CodeRecordIdMismatch          Code = "RecordIdMismatch"
	CodeAccountIdMismatch         Code = "AccountIdMismatch"
	CodeInvalidAccountIdLength    Code = "InvalidAccountIdLength"
	CodeInvestmentRecordNotFound  Code = "InvestmentRecordNotFound"
	CodeRecordAlreadyRevoked      Code = "RecordAlreadyRevoked"
	CodeInvalidStage              Code = "InvalidStage"
	CodeNoRecordsUpdated          Code = "NoRecordsUpdated"

	// 白名单治理
	CodeWhitelistMustBeFive      Code = "WhitelistMustBeFive"
	CodeWhitelistLengthInvalid   Code = "WhitelistLengthInvalid"
	CodeWhitelistAddressExists   Code = "WhitelistAddressExists"
	CodeWhitelistAddressNotFound Code = "WhitelistAddressNotFound"

	// 代币与金额
	CodeInvalidTokenMint         Code = "InvalidTokenMint"
	CodeInsufficientTokenBalance Code = "InsufficientTokenBalance"
	CodeInsufficientNativeBalance Code = "InsufficientNativeBalance"

	// Profit share cache
	CodeStandardOnly         Code = "StandardOnly"
	CodeTotalShareMismatch   Code = "TotalShareMismatch"
	CodeProfitCacheNotFound  Code = "ProfitCacheNotFound"
	CodeProfitCacheExpired   Code = "ProfitCacheExpired"
	CodeProfitAlreadyExecuted Code = "ProfitAlreadyExecuted"
	CodeInvalidTotalUsdt     Code = "InvalidTotalUsdt"
	CodeBatchIdMismatch      Code = "BatchIdMismatch"
	CodeTooManyRecordsLoaded Code = "TooManyRecordsLoaded"
	CodeMissingTokenAccount  Code = "MissingTokenAccount"
	CodeBpRatioOverflow      Code = "BpRatioOverflow"
	CodeDuplicateRecord      Code = "DuplicateRecord"

	// Refund share cache
	CodeRefundCacheNotFound   Code = "RefundCacheNotFound"
	CodeRefundCacheExpired    Code = "RefundCacheExpired"
	CodeRefundPeriodInvalid   Code = "RefundPeriodInvalid"
	CodeRefundAlreadyExecuted Code = "RefundAlreadyExecuted"
	CodeInvalidTotalHcoin     Code = "InvalidTotalHcoin"

	// 查表
	CodeLookupTableNotFound Code = "LookupTableNotFound"
	CodeLookupNotResolvable Code = "LookupNotResolvable"
	CodeLookupChunkTooLarge Code = "LookupChunkTooLarge"
	CodeLookupTableMismatch Code = "LookupTableMismatch"

	// 出入金
	CodeEmptyWhitelist          Code = "EmptyWhitelist"
	CodeInvalidRecipientAddress Code = "InvalidRecipientAddress"
	CodeUnauthorizedRecipient   Code = "UnauthorizedRecipient"
)

// CodedError carries a stable code plus a human-readable message.
type CodedError struct {
	Code Code
	Msg  string
}

func (e *CodedError) Error() string {
	if e.Msg == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Msg
}

func NewCodedError(code Code, format string, args ...interface{}) *CodedError {
	return &CodedError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// ErrIs reports whether err carries the given code.
func ErrIs(err error, code Code) bool {
	var ce *CodedError
	return errors.As(err, &ce) && ce.Code == code
}

// CodeOf returns the code carried by err, or "" if err is not a CodedError.
func CodeOf(err error) Code {
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
