package utils_test

import (
	"crypto/sha256"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultshare/utils"
)

func TestSignRecoverRoundtrip(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	digest := sha256.Sum256([]byte("payload bytes"))
	sig, err := utils.SignDigest(priv.ToECDSA(), digest)
	require.NoError(t, err)
	require.Len(t, sig, utils.SignatureLen)

	pub, err := utils.RecoverPubKey(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, priv.PubKey().SerializeCompressed(), pub.SerializeCompressed())
}

func TestRecoverRejectsBadInput(t *testing.T) {
	digest := sha256.Sum256([]byte("x"))

	_, err := utils.RecoverPubKey(digest, make([]byte, 10))
	assert.ErrorIs(t, err, utils.ErrBadSignature)

	// 改动摘要后恢复出的公钥不再匹配
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	sig, err := utils.SignDigest(priv.ToECDSA(), digest)
	require.NoError(t, err)

	other := sha256.Sum256([]byte("y"))
	pub, err := utils.RecoverPubKey(other, sig)
	if err == nil {
		assert.NotEqual(t, priv.PubKey().SerializeCompressed(), pub.SerializeCompressed())
	}
}

func TestParseCompressedPubKey(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	pub, err := utils.ParseCompressedPubKey(priv.PubKey().SerializeCompressed())
	require.NoError(t, err)
	assert.Equal(t, priv.PubKey().SerializeCompressed(), pub.SerializeCompressed())

	_, err = utils.ParseCompressedPubKey([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestCorrelationIDStable(t *testing.T) {
	a := utils.CorrelationID([]byte("batch-1"))
	b := utils.CorrelationID([]byte("batch-1"))
	c := utils.CorrelationID([]byte("batch-2"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestMurmurSum64(t *testing.T) {
	assert.Equal(t, utils.MurmurSum64([]byte("abc")), utils.MurmurSum64([]byte("abc")))
	assert.NotEqual(t, utils.MurmurSum64([]byte("abc")), utils.MurmurSum64([]byte("abd")))
	assert.Len(t, utils.MurmurHash([]byte("abc")), 8)
}
