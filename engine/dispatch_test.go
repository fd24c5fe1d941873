package engine_test

import (
	"encoding/json"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultshare/db"
	"vaultshare/engine"
	"vaultshare/types"
	"vaultshare/utils"
)

func genKeys(t *testing.T, n int) ([]*btcec.PrivateKey, []types.Address) {
	t.Helper()
	keys := make([]*btcec.PrivateKey, n)
	addrs := make([]types.Address, n)
	for i := range keys {
		priv, err := btcec.NewPrivateKey()
		require.NoError(t, err)
		keys[i] = priv
		addrs[i] = types.AddressFromPubKey(priv.PubKey())
	}
	return keys, addrs
}

func signEnvelope(t *testing.T, keys []*btcec.PrivateKey, payload []byte) *engine.Envelope {
	t.Helper()
	digest := utils.Sha256Digest(payload)
	env := &engine.Envelope{Payload: payload}
	for _, priv := range keys {
		sig, err := utils.SignDigest(priv.ToECDSA(), digest)
		require.NoError(t, err)
		env.Signatures = append(env.Signatures, sig)
	}
	return env
}

func instruction(t *testing.T, e *env, op string, args interface{}) []byte {
	t.Helper()
	ins := engine.Instruction{Op: op, InvestmentID: e.id.String(), Version: e.ver.String()}
	if args != nil {
		raw, err := json.Marshal(args)
		require.NoError(t, err)
		ins.Args = raw
	}
	payload, err := json.Marshal(ins)
	require.NoError(t, err)
	return payload
}

// 签名信封 → 恢复签名人 → 路由到处理器的完整链路
func TestDispatchSignedInstructions(t *testing.T) {
	keys, addrs := genKeys(t, 5)
	e := newEnvWithUpdateList(t, types.InvestmentTypeStandard, addrs)

	payload := instruction(t, e, engine.OpUpdateInvestmentInfo,
		map[string]uint64{"upper_limit": 77})
	require.NoError(t, e.eng.Dispatch(signEnvelope(t, keys[:3], payload)))

	require.NoError(t, e.mgr.View(func(tx *db.Tx) error {
		info, err := tx.GetInvestmentInfo(types.InvestmentAddress(e.id, e.ver))
		require.NoError(t, err)
		assert.Equal(t, uint64(77), info.InvestmentUpperLimit)
		return nil
	}))

	// 两个名单内签名不过门限
	complete := instruction(t, e, engine.OpCompleteInvestment, nil)
	err := e.eng.Dispatch(signEnvelope(t, keys[:2], complete))
	assert.True(t, types.ErrIs(err, types.CodeUnauthorizedSigner))

	// 名单外钥匙签满三个也无效
	outsiders, _ := genKeys(t, 3)
	err = e.eng.Dispatch(signEnvelope(t, outsiders, complete))
	assert.True(t, types.ErrIs(err, types.CodeUnauthorizedSigner))

	require.NoError(t, e.eng.Dispatch(signEnvelope(t, keys[:3], complete)))
	require.NoError(t, e.mgr.View(func(tx *db.Tx) error {
		info, err := tx.GetInvestmentInfo(types.InvestmentAddress(e.id, e.ver))
		require.NoError(t, err)
		assert.Equal(t, types.StateCompleted, info.State)
		return nil
	}))

	require.NoError(t, e.eng.Dispatch(signEnvelope(t, keys[1:4],
		instruction(t, e, engine.OpDeactivateInvestment, nil))))
}

func TestDispatchRevokeRecord(t *testing.T) {
	keys, addrs := genKeys(t, 5)
	e := newEnvWithUpdateList(t, types.InvestmentTypeStandard, addrs)

	require.NoError(t, e.eng.AddInvestmentRecord(e.id, e.ver, addrs[:3], engine.RecordParams{
		BatchID: 1, RecordID: 1, AccountID: e.acct(1), Wallet: e.wallet(1),
		AmountUsdt: 1000, AmountHcoin: 1000, Stage: 1,
	}))
	require.NoError(t, e.eng.CompleteInvestment(e.id, e.ver, addrs[:3]))

	payload := instruction(t, e, engine.OpRevokeRecord, map[string]interface{}{
		"batch_id": 1, "record_id": 1, "account_id": e.acct(1).String(),
	})
	require.NoError(t, e.eng.Dispatch(signEnvelope(t, keys[:3], payload)))

	err := e.eng.Dispatch(signEnvelope(t, keys[:3], payload))
	assert.True(t, types.ErrIs(err, types.CodeRecordAlreadyRevoked))
}

func TestDispatchRejectsBadPayloads(t *testing.T) {
	keys, addrs := genKeys(t, 5)
	e := newEnvWithUpdateList(t, types.InvestmentTypeStandard, addrs)

	err := e.eng.Dispatch(signEnvelope(t, keys[:3], []byte("not json")))
	assert.Error(t, err)

	err = e.eng.Dispatch(signEnvelope(t, keys[:3],
		instruction(t, e, "no_such_op", nil)))
	assert.ErrorContains(t, err, "unknown op")

	// 坏签名在路由前就拦下
	payload := instruction(t, e, engine.OpCompleteInvestment, nil)
	bad := &engine.Envelope{Payload: payload, Signatures: [][]byte{make([]byte, 10)}}
	err = e.eng.Dispatch(bad)
	assert.ErrorIs(t, err, utils.ErrBadSignature)
}
