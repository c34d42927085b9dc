package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntAddOverflowPanics(t *testing.T) {
	_, err := IntAdd(math.MaxInt64, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOverflow)

	r, err := IntAdd(1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), r)
}

func TestIntSubOverflowPanics(t *testing.T) {
	_, err := IntSub(math.MinInt64, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestIntMulOverflow(t *testing.T) {
	_, err := IntMul(math.MaxInt64, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOverflow)

	r, err := IntMul(math.MinInt64, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MinInt64), r)

	r, err = IntMul(-3, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(-12), r)
}

func TestIntDivByZeroPanics(t *testing.T) {
	_, err := IntDiv(10, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDivideByZero)
}

func TestIntDivMinIntByNegOneOverflows(t *testing.T) {
	_, err := IntDiv(math.MinInt64, -1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestIntModByZeroPanics(t *testing.T) {
	_, err := IntMod(10, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDivideByZero)
}

func TestIntShlOutOfRangePanics(t *testing.T) {
	_, err := IntShl(1, 64)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrShiftOutOfRange)

	_, err = IntShl(1, -1)
	require.Error(t, err)
}

func TestIntShlOverflowPanics(t *testing.T) {
	_, err := IntShl(1<<62, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestIntShrOutOfRangePanics(t *testing.T) {
	_, err := IntShr(1, 64)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrShiftOutOfRange)
}

func TestIntPow(t *testing.T) {
	r, err := IntPow(2, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1024), r)

	r, err = IntPow(5, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), r)
}

func TestFloatToIntDeterministicEdgeCases(t *testing.T) {
	assert.Equal(t, int64(0), FloatToInt(math.NaN()))
	assert.Equal(t, int64(math.MaxInt64), FloatToInt(math.Inf(1)))
	assert.Equal(t, int64(math.MinInt64), FloatToInt(math.Inf(-1)))
	assert.Equal(t, int64(3), FloatToInt(3.9))
}

func TestFloatIsInfIsNaN(t *testing.T) {
	assert.True(t, FloatIsInf(math.Inf(1)))
	assert.True(t, FloatIsInf(math.Inf(-1)))
	assert.False(t, FloatIsInf(1.0))
	assert.True(t, FloatIsNaN(math.NaN()))
	assert.False(t, FloatIsNaN(1.0))
}

func TestFloatCeilFloorRound(t *testing.T) {
	assert.Equal(t, 2.0, FloatCeil(1.2))
	assert.Equal(t, 1.0, FloatFloor(1.8))
	assert.Equal(t, 2.0, FloatRound(2.5))
	assert.Equal(t, 2.0, FloatRound(1.5))
}
