package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/blockprice/internal/core/domain"
	"github.com/vietddude/blockprice/internal/core/series"
)

func TestInterpolateAt(t *testing.T) {
	prices := series.Series[float64]{1000: 10.0, 1010: 12.0, 1030: 8.0}

	tests := []struct {
		name string
		t    int64
		want float64
	}{
		{"midpoint", 1005, 11.0},
		{"exact first", 1000, 10.0},
		{"exact inner", 1010, 12.0},
		{"exact last", 1030, 8.0},
		{"descending segment", 1020, 10.0},
		{"clamp below", 500, 10.0},
		{"clamp above", 9999, 8.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InterpolateAt(prices, tt.t)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestInterpolateAt_ExactKeysRoundTrip(t *testing.T) {
	prices := series.Series[float64]{}
	for i := int64(0); i < 50; i++ {
		prices[1_600_000_000+i*3600] = 1800.0 + float64(i*i)/7
	}

	for ts, want := range prices {
		got, err := InterpolateAt(prices, ts)
		require.NoError(t, err)
		assert.InDelta(t, want, got, 1e-9, "timestamp %d", ts)
	}
}

func TestInterpolate_Empty(t *testing.T) {
	_, err := InterpolateAt(series.Series[float64]{}, 10)
	assert.ErrorIs(t, err, ErrNoPriceData)
}

func TestInterpolate_SinglePoint(t *testing.T) {
	got, err := InterpolateAt(series.Series[float64]{50: 3.5}, 10)
	require.NoError(t, err)
	assert.Equal(t, 3.5, got)
}

func TestAlignToBlocks_ClipsToPriceCoverage(t *testing.T) {
	prices := series.Series[float64]{150: 1.0, 350: 3.0}
	blocks := series.Series[int64]{1: 100, 2: 200, 3: 300}

	got, err := AlignToBlocks(prices, blocks, domain.QueryWindow{Start: 0, End: 1000})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].Block)
	assert.Equal(t, int64(200), got[0].Timestamp)
	assert.InDelta(t, 1.5, got[0].Price, 1e-9)
	assert.Equal(t, int64(3), got[1].Block)
	assert.InDelta(t, 2.5, got[1].Price, 1e-9)
}

func TestAlignToBlocks_ClipsToWindow(t *testing.T) {
	prices := series.Series[float64]{0: 1.0, 1000: 1.0}
	blocks := series.Series[int64]{1: 100, 2: 200, 3: 300, 4: 400}

	got, err := AlignToBlocks(prices, blocks, domain.QueryWindow{Start: 100, End: 400})
	require.NoError(t, err)

	// both bounds are exclusive
	require.Len(t, got, 2)
	assert.Equal(t, int64(200), got[0].Timestamp)
	assert.Equal(t, int64(300), got[1].Timestamp)
}

func TestAlignToBlocks_OrderedByBlock(t *testing.T) {
	prices := series.Series[float64]{0: 1.0, 1000: 2.0}
	blocks := series.Series[int64]{30: 500, 10: 300, 20: 400}

	got, err := AlignToBlocks(prices, blocks, domain.QueryWindow{Start: 0, End: 1000})
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, []int64{10, 20, 30}, []int64{got[0].Block, got[1].Block, got[2].Block})
}

func TestAlignToBlocks_Errors(t *testing.T) {
	blocks := series.Series[int64]{1: 100}

	_, err := AlignToBlocks(series.Series[float64]{}, blocks, domain.QueryWindow{Start: 0, End: 1000})
	assert.ErrorIs(t, err, ErrNoPriceData)

	_, err = AlignToBlocks(series.Series[float64]{0: 1}, blocks, domain.QueryWindow{Start: 2000, End: 1000})
	assert.ErrorIs(t, err, domain.ErrInvalidWindow)
}
