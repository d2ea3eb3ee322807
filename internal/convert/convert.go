// Package convert holds the unit conversions and derived-price arithmetic for
// presale transactions. All functions are pure and total.
package convert

// SqmPerPin is how many square meters one pin (坪) covers.
const SqmPerPin = 3.305785

// SquareMetersToPin converts an area in square meters to pin.
func SquareMetersToPin(sqm float64) float64 {
	return sqm / SqmPerPin
}

// MainBuildingArea derives the building-only area in pin by subtracting the
// parking share. The result is clamped at zero: reported parking area can
// exceed the building total in dirty exports.
func MainBuildingArea(buildingAreaPin, parkingAreaPin float64) float64 {
	area := buildingAreaPin - parkingAreaPin
	if area < 0 {
		return 0
	}
	return area
}

// MainBuildingPricePerPin derives the parking-excluded price per pin.
// Returns 0 when the main building area is zero or negative so that bad
// rows never produce division artifacts.
func MainBuildingPricePerPin(totalPrice, parkingPrice int64, mainBuildingAreaPin float64) float64 {
	if mainBuildingAreaPin <= 0 {
		return 0
	}
	return float64(totalPrice-parkingPrice) / mainBuildingAreaPin
}
