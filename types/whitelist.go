package types

// WhitelistKind names one of the three governed signer lists.
type WhitelistKind uint8

const (
	WhitelistExecute WhitelistKind = iota
	WhitelistUpdate
	WhitelistWithdraw
)

func (k WhitelistKind) String() string {
	switch k {
	case WhitelistExecute:
		return "execute"
	case WhitelistUpdate:
		return "update"
	case WhitelistWithdraw:
		return "withdraw"
	default:
		return "unknown"
	}
}

func containsAddress(list []Address, a Address) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}

// VerifySigners3of5 checks that at least 3 of the given (already verified)
// signer addresses are drawn from the named 5-member list. Threshold checks
// are a pure function over the signer set of the current transaction.
func (info *InvestmentInfo) VerifySigners3of5(signers []Address, kind WhitelistKind) error {
	var list []Address
	switch kind {
	case WhitelistExecute:
		list = info.ExecuteWhitelist
	case WhitelistUpdate:
		list = info.UpdateWhitelist
	default:
		return NewCodedError(CodeUnauthorizedSigner, "whitelist %s has no signing authority", kind)
	}
	if len(list) != MaxWhitelistLen {
		return NewCodedError(CodeWhitelistMustBeFive,
			"%s whitelist has %d members, want %d", kind, len(list), MaxWhitelistLen)
	}
	matched := 0
	seen := make(map[Address]struct{}, len(signers))
	for _, s := range signers {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		if containsAddress(list, s) {
			matched++
		}
	}
	if matched < SignerThreshold {
		return NewCodedError(CodeUnauthorizedSigner,
			"%d of %d required %s-whitelist signatures", matched, SignerThreshold, kind)
	}
	return nil
}

// PatchWhitelist replaces a single slot of a 5-member list in place.
// from == to is rejected deterministically with WhitelistAddressExists
// before any membership check.
func PatchWhitelist(list []Address, from, to Address) error {
	if from == to {
		return NewCodedError(CodeWhitelistAddressExists,
			"replacement target equals the replaced address %s", from.Short())
	}
	if !containsAddress(list, from) {
		return NewCodedError(CodeWhitelistAddressNotFound,
			"address %s not in whitelist", from.Short())
	}
	if containsAddress(list, to) {
		return NewCodedError(CodeWhitelistAddressExists,
			"address %s already in whitelist", to.Short())
	}
	for i, x := range list {
		if x == from {
			list[i] = to
			return nil
		}
	}
	// containsAddress above makes this unreachable
	return NewCodedError(CodeWhitelistAddressNotFound, "address %s not in whitelist", from.Short())
}

// ValidateWithdrawSet validates a full replacement set for the withdraw
// whitelist: 1..=5 entries, no duplicates, no zero address.
func ValidateWithdrawSet(wallets []Address) error {
	if len(wallets) == 0 || len(wallets) > MaxWhitelistLen {
		return NewCodedError(CodeWhitelistLengthInvalid,
			"withdraw whitelist must have 1..=%d entries, got %d", MaxWhitelistLen, len(wallets))
	}
	seen := make(map[Address]struct{}, len(wallets))
	for _, w := range wallets {
		if w.IsZero() {
			return NewCodedError(CodeInvalidRecipientAddress, "zero address in withdraw whitelist")
		}
		if _, dup := seen[w]; dup {
			return NewCodedError(CodeWhitelistAddressExists,
				"duplicate address %s in withdraw whitelist", w.Short())
		}
		seen[w] = struct{}{}
	}
	return nil
}
