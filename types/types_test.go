package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultshare/types"
)

func validStageRatio() types.StageRatio {
	var r types.StageRatio
	// 每阶段：3 个零年 + 6 个中期年 + 1 个末年
	for stage := 0; stage < types.MaxStage; stage++ {
		for i := 3; i < 9; i++ {
			r[stage][i] = 10
		}
		r[stage][9] = 40
	}
	return r
}

func TestStageRatioValidate(t *testing.T) {
	require.NoError(t, validStageRatio().Validate())

	var empty types.StageRatio
	err := empty.Validate()
	assert.True(t, types.ErrIs(err, types.CodeEmptyStageRatio))

	over := validStageRatio()
	over[0][3] = 101
	err = over.Validate()
	assert.True(t, types.ErrIs(err, types.CodeInvalidStageRatioValue))

	sum := validStageRatio()
	sum[1][9] = 50 // 10*6 + 50 > 100
	err = sum.Validate()
	assert.True(t, types.ErrIs(err, types.CodeInvalidStageRatioSum))

	gap := validStageRatio()
	gap[2][5] = 0 // 中间出现零槽
	err = gap.Validate()
	assert.True(t, types.ErrIs(err, types.CodeNonContiguousStage))
}

func TestStageRatioPercentage(t *testing.T) {
	r := validStageRatio()
	assert.Equal(t, uint8(0), r.Percentage(1, 0))
	assert.Equal(t, uint8(10), r.Percentage(1, 3))
	assert.Equal(t, uint8(40), r.Percentage(3, 9))
	assert.Equal(t, uint8(0), r.Percentage(0, 3), "stage 0 不存在")
	assert.Equal(t, uint8(0), r.Percentage(4, 3))
	assert.Equal(t, uint8(0), r.Percentage(1, 10))
}

func TestBatchIDForRecord(t *testing.T) {
	assert.Equal(t, uint16(0), types.BatchIDForRecord(0))
	assert.Equal(t, uint16(1), types.BatchIDForRecord(1))
	assert.Equal(t, uint16(1), types.BatchIDForRecord(30))
	assert.Equal(t, uint16(2), types.BatchIDForRecord(31))
	assert.Equal(t, uint16(3), types.BatchIDForRecord(90))
	assert.Equal(t, uint16(4), types.BatchIDForRecord(91))
}

func TestInvestmentInfoClone(t *testing.T) {
	id, err := types.NewInvestmentID("inv000000000001")
	require.NoError(t, err)
	ver, err := types.NewVersion("v001")
	require.NoError(t, err)

	info := &types.InvestmentInfo{
		InvestmentID:     id,
		Version:          ver,
		ExecuteWhitelist: []types.Address{{1}, {2}, {3}, {4}, {5}},
	}
	clone := info.Clone()
	clone.ExecuteWhitelist[0] = types.Address{9}
	assert.Equal(t, types.Address{1}, info.ExecuteWhitelist[0], "克隆后修改不应影响原对象")
}

func TestCacheExpiry(t *testing.T) {
	c := &types.ProfitShareCache{CreatedAt: 1000}
	assert.False(t, c.Expired(1000+types.ShareCacheExpireSecs))
	assert.True(t, c.Expired(1000+types.ShareCacheExpireSecs+1))

	rc := &types.RefundShareCache{CreatedAt: 1000}
	assert.False(t, rc.Expired(1000))
	assert.True(t, rc.Expired(1000+types.ShareCacheExpireSecs+1))
}
