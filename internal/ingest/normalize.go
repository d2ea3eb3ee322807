package ingest

import (
	"strconv"
	"strings"

	"presale/server/config"
	"presale/server/internal/convert"
	"presale/server/internal/models"
)

// Column headers as the Ministry of the Interior exports them.
const (
	colDistrict        = "鄉鎮市區"
	colProjectName     = "建案名稱"
	colBuildingNumber  = "棟及號"
	colTransactionDate = "交易年月日"
	colAddress         = "土地位置建物門牌"
	colMainUse         = "主要用途"
	colBuildingAreaSqm = "建物移轉總面積平方公尺"
	colRooms           = "建物現況格局-房"
	colLivingRooms     = "建物現況格局-廳"
	colBathrooms       = "建物現況格局-衛"
	colTotalPrice      = "總價元"
	colUnitPricePerSqm = "單價元平方公尺"
	colParkingType     = "車位類別"
	colParkingAreaSqm  = "車位移轉總面積平方公尺"
	colParkingPrice    = "車位總價元"
)

// RequiredColumns must all appear in an upload's header row, otherwise the
// whole file is rejected.
var RequiredColumns = []string{
	colDistrict,
	colProjectName,
	colBuildingNumber,
	colTransactionDate,
	colAddress,
	colMainUse,
	colBuildingAreaSqm,
	colRooms,
	colLivingRooms,
	colBathrooms,
	colTotalPrice,
	colUnitPricePerSqm,
	colParkingType,
	colParkingAreaSqm,
	colParkingPrice,
}

// normalizeRow maps one raw CSV record onto the canonical transaction shape.
// It is total: numeric fields that are absent or unparseable become 0 and
// string fields pass through verbatim.
func normalizeRow(record map[string]string, region config.Region) models.House {
	buildingAreaSqm := parseFloat(record[colBuildingAreaSqm])
	parkingAreaSqm := parseFloat(record[colParkingAreaSqm])
	totalPrice := parseInt(record[colTotalPrice])
	parkingPrice := parseInt(record[colParkingPrice])
	unitPricePerSqm := parseFloat(record[colUnitPricePerSqm])

	buildingAreaPin := convert.SquareMetersToPin(buildingAreaSqm)
	parkingAreaPin := convert.SquareMetersToPin(parkingAreaSqm)
	mainBuildingAreaPin := convert.MainBuildingArea(buildingAreaPin, parkingAreaPin)

	return models.House{
		District:        record[colDistrict],
		ProjectName:     record[colProjectName],
		BuildingNumber:  record[colBuildingNumber],
		TransactionDate: record[colTransactionDate],
		Address:         record[colAddress],
		MainUse:         record[colMainUse],
		ParkingType:     record[colParkingType],

		BuildingAreaSqm: buildingAreaSqm,
		BuildingAreaPin: buildingAreaPin,
		ParkingAreaSqm:  parkingAreaSqm,
		ParkingAreaPin:  parkingAreaPin,

		Rooms:       parseInt0(record[colRooms]),
		LivingRooms: parseInt0(record[colLivingRooms]),
		Bathrooms:   parseInt0(record[colBathrooms]),

		TotalPriceNTD:   totalPrice,
		ParkingPriceNTD: parkingPrice,
		UnitPricePerSqm: unitPricePerSqm,
		UnitPricePerPin: unitPricePerSqm * convert.SqmPerPin,

		MainBuildingAreaPin:       mainBuildingAreaPin,
		MainBuildingPricePerPin:   convert.MainBuildingPricePerPin(totalPrice, parkingPrice, mainBuildingAreaPin),
		MainBuildingTotalPriceNTD: totalPrice - parkingPrice,

		Region: region.String(),
	}
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt0(s string) int {
	return int(parseInt(s))
}
