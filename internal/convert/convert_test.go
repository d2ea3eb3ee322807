package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSquareMetersToPin(t *testing.T) {
	assert.Equal(t, 0.0, SquareMetersToPin(0))
	assert.InDelta(t, 1.0, SquareMetersToPin(3.305785), 1e-12)
	assert.InDelta(t, 30.25, SquareMetersToPin(100), 0.01)
}

func TestSquareMetersToPinRoundTrip(t *testing.T) {
	for _, sqm := range []float64{0, 0.5, 3.305785, 99.99, 12345.678} {
		assert.InDelta(t, sqm, SquareMetersToPin(sqm)*SqmPerPin, 1e-9)
	}
}

func TestMainBuildingArea(t *testing.T) {
	tests := []struct {
		name     string
		building float64
		parking  float64
		expected float64
	}{
		{"Parking smaller than building", 30, 5, 25},
		{"No parking", 30, 0, 30},
		{"Parking equals building", 10, 10, 0},
		{"Parking exceeds building clamps to zero", 10, 15, 0},
		{"Both zero", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MainBuildingArea(tt.building, tt.parking)
			assert.Equal(t, tt.expected, got)
			assert.GreaterOrEqual(t, got, 0.0)
		})
	}
}

func TestMainBuildingPricePerPin(t *testing.T) {
	// Area <= 0 always yields exactly zero, whatever the prices are
	assert.Equal(t, 0.0, MainBuildingPricePerPin(10000000, 0, 0))
	assert.Equal(t, 0.0, MainBuildingPricePerPin(10000000, 2000000, -1))
	assert.Equal(t, 0.0, MainBuildingPricePerPin(0, 0, 0))

	assert.InDelta(t, 400000, MainBuildingPricePerPin(10000000, 2000000, 20), 1e-9)
	assert.InDelta(t, 500000, MainBuildingPricePerPin(5000000, 0, 10), 1e-9)
}
