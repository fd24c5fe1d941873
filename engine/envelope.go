package engine

import (
	"vaultshare/types"
	"vaultshare/utils"
)

// Envelope is the signed wrapper callers submit around an instruction
// payload. Signature verification itself is the platform's job; here we only
// recover the signer addresses so handlers can count them against the
// governed whitelists.
type Envelope struct {
	Payload    []byte
	Signatures [][]byte
}

// Signers recovers the distinct signer addresses from the envelope's
// signatures over sha256(payload). A malformed signature fails the whole
// envelope.
func (env *Envelope) Signers() ([]types.Address, error) {
	digest := utils.Sha256Digest(env.Payload)
	seen := make(map[types.Address]struct{}, len(env.Signatures))
	out := make([]types.Address, 0, len(env.Signatures))
	for _, sig := range env.Signatures {
		pub, err := utils.RecoverPubKey(digest, sig)
		if err != nil {
			return nil, err
		}
		addr := types.AddressFromPubKey(pub)
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out, nil
}

// Correlation derives a stable correlation id for audit events from the
// payload bytes.
func (env *Envelope) Correlation() uint64 {
	return utils.CorrelationID(env.Payload)
}
