package engine_test

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultshare/engine"
	"vaultshare/types"
	"vaultshare/utils"
)

// 信封 → 恢复签名人 → 3-of-5 门限的完整链路
func TestEnvelopeSignerRecovery(t *testing.T) {
	payload := []byte(`{"op":"complete_investment_info"}`)
	digest := utils.Sha256Digest(payload)

	var keys []*btcec.PrivateKey
	var addrs []types.Address
	for i := 0; i < 5; i++ {
		priv, err := btcec.NewPrivateKey()
		require.NoError(t, err)
		keys = append(keys, priv)
		addrs = append(addrs, types.AddressFromPubKey(priv.PubKey()))
	}

	env := &engine.Envelope{Payload: payload}
	for _, priv := range keys[:3] {
		sig, err := utils.SignDigest(priv.ToECDSA(), digest)
		require.NoError(t, err)
		env.Signatures = append(env.Signatures, sig)
	}
	// 同一把钥签两次只算一个签名人
	dup, err := utils.SignDigest(keys[0].ToECDSA(), digest)
	require.NoError(t, err)
	env.Signatures = append(env.Signatures, dup)

	signers, err := env.Signers()
	require.NoError(t, err)
	require.Len(t, signers, 3)
	assert.ElementsMatch(t, addrs[:3], signers)

	info := &types.InvestmentInfo{UpdateWhitelist: addrs, ExecuteWhitelist: addrs}
	require.NoError(t, info.VerifySigners3of5(signers, types.WhitelistUpdate))

	assert.NotZero(t, env.Correlation())
	assert.Equal(t, env.Correlation(), (&engine.Envelope{Payload: payload}).Correlation())
}

func TestEnvelopeRejectsMalformedSignature(t *testing.T) {
	env := &engine.Envelope{
		Payload:    []byte("x"),
		Signatures: [][]byte{make([]byte, 10)},
	}
	_, err := env.Signers()
	assert.ErrorIs(t, err, utils.ErrBadSignature)
}
