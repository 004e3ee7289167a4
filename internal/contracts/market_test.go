package contracts

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func series(symbol string, closes ...float64) *AssetSeries {
	s := &AssetSeries{Symbol: symbol}
	for i, c := range closes {
		s.Bars = append(s.Bars, Bar{Date: day(i), Open: c, High: c, Low: c, Close: c})
	}
	return s
}

func TestAssetSeries_Validate(t *testing.T) {
	require.NoError(t, series("AAA", 1, 2, 3).Validate())

	dup := series("AAA", 1, 2)
	dup.Bars[1].Date = dup.Bars[0].Date
	assert.Error(t, dup.Validate())

	unsorted := series("AAA", 1, 2)
	unsorted.Bars[0], unsorted.Bars[1] = unsorted.Bars[1], unsorted.Bars[0]
	assert.Error(t, unsorted.Validate())

	assert.Error(t, (&AssetSeries{}).Validate())
}

func TestAssetSeries_IndexOf(t *testing.T) {
	s := series("AAA", 10, 11, 12)

	i, ok := s.IndexOf(day(2))
	require.True(t, ok)
	assert.Equal(t, 2, i)

	_, ok = s.IndexOf(day(5))
	assert.False(t, ok)

	var empty *AssetSeries
	_, ok = empty.IndexOf(day(0))
	assert.False(t, ok)
}

func TestAssetSeries_ClosesAndSlice(t *testing.T) {
	s := series("AAA", 10, 11, 12, 13)

	assert.Equal(t, []float64{10, 11}, s.Closes(1))
	assert.Equal(t, []float64{10, 11, 12, 13}, s.Closes(10))
	assert.Nil(t, s.Closes(-1))

	sliced := s.Slice(day(1), day(2))
	assert.Equal(t, 2, sliced.Len())
	assert.Equal(t, 11.0, sliced.Bars[0].Close)
	assert.Equal(t, 4, s.Len())
}

func TestValidPrice(t *testing.T) {
	assert.True(t, ValidPrice(1))
	assert.False(t, ValidPrice(0))
	assert.False(t, ValidPrice(-1))
	assert.False(t, ValidPrice(math.NaN()))
	assert.False(t, ValidPrice(math.Inf(1)))
}

func TestUniverse_DatesAndCloses(t *testing.T) {
	a := series("AAA", 10, 11, 12)
	b := &AssetSeries{Symbol: "BBB", Bars: []Bar{{Date: day(1), Close: 50}, {Date: day(3), Close: 51}}}
	u := Universe{"BBB": b, "AAA": a}

	assert.Equal(t, []string{"AAA", "BBB"}, u.Symbols())
	assert.Equal(t, []time.Time{day(0), day(1), day(2), day(3)}, u.Dates(time.Time{}, time.Time{}))
	assert.Equal(t, []time.Time{day(1), day(2)}, u.Dates(day(1), day(2)))

	assert.Equal(t, map[string]float64{"AAA": 11, "BBB": 50}, u.ClosesOn(day(1)))
	assert.Equal(t, map[string]float64{"BBB": 51}, u.ClosesOn(day(3)))
}
