package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMileage_RoundTripExample(t *testing.T) {
	dkilo := EncodeDkilo(713, 485)
	assert.Equal(t, 713.485, dkilo)
	assert.Equal(t, "DK713+485", FormatMileage("DK", dkilo))

	end := EndDkilo(dkilo, 1143)
	assert.Equal(t, 714.628, end)
	assert.Equal(t, "DK714+628", FormatMileage("DK", end))
}

func TestDecodeEncode_AllMeters(t *testing.T) {
	for _, km := range []int{0, 1, 99, 713, 1200} {
		for m := 0; m < 1000; m++ {
			gotKm, gotM := DecodeDkilo(EncodeDkilo(km, m))
			if gotKm != km || gotM != m {
				t.Fatalf("round trip %d+%03d => %d+%03d", km, m, gotKm, gotM)
			}
		}
	}
}

func TestEndDkilo_WrapsAcrossKilometer(t *testing.T) {
	end := EndDkilo(713.999, 2)
	assert.Equal(t, 714.001, end)
	assert.Equal(t, "DK714+001", FormatMileage("DK", end))

	// 负长度表示反方向
	back := EndDkilo(714.001, -2)
	assert.Equal(t, 713.999, back)
	assert.Equal(t, "DK713+999", FormatMileage("DK", back))
}

func TestFormatMileage_PadsMeters(t *testing.T) {
	assert.Equal(t, "DK12+005", FormatMileage("DK", 12.005))
	assert.Equal(t, "DK12+050", FormatMileage("DK", 12.05))
	assert.Equal(t, "YDK7+000", FormatMileage("YDK", 7))
}

func TestDecodeDkilo_CarriesRoundedMeters(t *testing.T) {
	km, m := DecodeDkilo(713.9996)
	assert.Equal(t, 714, km)
	assert.Equal(t, 0, m)
}

func TestParseMileage(t *testing.T) {
	prefix, dkilo, err := ParseMileage("DK713+485")
	require.NoError(t, err)
	assert.Equal(t, "DK", prefix)
	assert.Equal(t, 713.485, dkilo)

	prefix, dkilo, err = ParseMileage(" dk 5 + 7 ")
	require.NoError(t, err)
	assert.Equal(t, "DK", prefix)
	assert.Equal(t, 5.007, dkilo)

	_, _, err = ParseMileage("DK713-485")
	assert.ErrorIs(t, err, ErrInvalidMileage)
	_, _, err = ParseMileage("DK713+4850")
	assert.ErrorIs(t, err, ErrInvalidMileage)
}

func TestMileage_RangeAndDefaultPrefix(t *testing.T) {
	m := Mileage{Dkilo: 713.485, Length: 1143}
	assert.Equal(t, "DK713+485", m.Start())
	assert.Equal(t, "DK714+628", m.End())
	assert.Equal(t, "DK713+485 ~ DK714+628", m.String())
}

func TestWorkPoint_Span(t *testing.T) {
	wp := WorkPoint{ID: "wp-1", Mileage: 713485, Length: -300}
	span := wp.Span("DK")
	assert.Equal(t, "DK713+485", span.Start())
	assert.Equal(t, "DK713+185", span.End())
}
