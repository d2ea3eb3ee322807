package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// House is one presale transaction, normalized from a government CSV export.
// The natural key is (district, projectName, buildingNumber, transactionDate)
// within a region; the surrogate ID only exists for storage.
//
// TransactionDate is a 7-character ROC date string (year-1911, month, day,
// zero padded). It sorts lexicographically in calendar order and is stored
// as-is.
type House struct {
	ID int64 `gorm:"primaryKey" json:"-"`

	District        string `gorm:"column:district" json:"district"`
	ProjectName     string `gorm:"column:project_name" json:"projectName"`
	BuildingNumber  string `gorm:"column:building_number" json:"buildingNumber"`
	TransactionDate string `gorm:"column:transaction_date" json:"transactionDate"`
	Address         string `gorm:"column:address" json:"address"`
	MainUse         string `gorm:"column:main_use" json:"mainUse"`
	ParkingType     string `gorm:"column:parking_type" json:"parkingType"`

	BuildingAreaSqm float64 `gorm:"column:building_area_sqm" json:"buildingAreaSqm"`
	BuildingAreaPin float64 `gorm:"column:building_area_pin" json:"totalBuildingAreaPin"`
	ParkingAreaSqm  float64 `gorm:"column:parking_area_sqm" json:"parkingAreaSqm"`
	ParkingAreaPin  float64 `gorm:"column:parking_area_pin" json:"parkingAreaPin"`

	Rooms       int `gorm:"column:rooms" json:"rooms"`
	LivingRooms int `gorm:"column:living_rooms" json:"livingRooms"`
	Bathrooms   int `gorm:"column:bathrooms" json:"bathrooms"`

	TotalPriceNTD   int64   `gorm:"column:total_price_ntd" json:"totalPriceNTD"`
	ParkingPriceNTD int64   `gorm:"column:parking_price_ntd" json:"parkingPriceNTD"`
	UnitPricePerSqm float64 `gorm:"column:unit_price_per_sqm" json:"unitPricePerSqm"`
	UnitPricePerPin float64 `gorm:"column:unit_price_per_pin" json:"unitPricePerPin"`

	MainBuildingAreaPin       float64 `gorm:"column:main_building_area_pin" json:"mainBuildingAreaPin"`
	MainBuildingPricePerPin   float64 `gorm:"column:main_building_price_per_pin" json:"mainBuildingPricePerPin"`
	MainBuildingTotalPriceNTD int64   `gorm:"column:main_building_total_price_ntd" json:"mainBuildingTotalPriceNTD"`

	Region string `gorm:"column:region" json:"region"`
}

// SameData reports whether two houses carry identical field values, ignoring
// the surrogate ID. Used to distinguish updated rows from unchanged ones
// during an upsert.
func (h House) SameData(other House) bool {
	h.ID = 0
	other.ID = 0
	return h == other
}

// DistrictPricePoint is one aggregated data point: the mean main-building
// price per pin across all transactions of one district on one calendar day.
type DistrictPricePoint struct {
	District           string    `json:"district"`
	Date               time.Time `json:"date"`
	Year               int       `json:"year"`
	Month              int       `json:"month"`
	Day                int       `json:"day"`
	AveragePricePerPin float64   `json:"averagePricePerPin"`
	Count              int       `json:"count"`
}

// DataPoints stores an ordered series of DistrictPricePoint as a JSON column.
type DataPoints []DistrictPricePoint

func (d DataPoints) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *DataPoints) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("unsupported type for DataPoints: %T", value)
	}
}

// DailyDistrictStat is a cached aggregation result for one date window.
// UpdatedAt doubles as the cache freshness marker.
type DailyDistrictStat struct {
	ID        int64      `gorm:"primaryKey" json:"-"`
	StartDate string     `gorm:"column:start_date" json:"startDate"`
	EndDate   string     `gorm:"column:end_date" json:"endDate"`
	Data      DataPoints `gorm:"column:data;type:text" json:"data"`
	UpdatedAt time.Time  `gorm:"column:updated_at" json:"updatedAt"`
}

// PaginatedHouses is the response shape of the trends listing.
type PaginatedHouses struct {
	Houses      []House `json:"houses"`
	TotalCount  int64   `json:"totalCount"`
	CurrentPage int     `json:"currentPage"`
	TotalPages  int     `json:"totalPages"`
}

// IngestSummary reports the outcome of one CSV ingestion.
type IngestSummary struct {
	TotalProcessed int `json:"totalProcessed"`
	InsertedCount  int `json:"insertedCount"`
	UpdatedCount   int `json:"updatedCount"`
}
