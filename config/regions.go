package config

import "fmt"

// Region identifies one of the supported metropolitan areas. Each region owns
// its own transaction and stats tables; table names are resolved here and
// nowhere else.
type Region string

const (
	RegionTaipei    Region = "taipei"
	RegionNewTaipei Region = "newTaipei"
	RegionTaoyuan   Region = "taoyuan"
)

// SupportedRegions is the fixed set of regions the service accepts.
var SupportedRegions = []Region{
	RegionTaipei,
	RegionNewTaipei,
	RegionTaoyuan,
}

// ParseRegion validates a raw region parameter.
func ParseRegion(name string) (Region, error) {
	for _, r := range SupportedRegions {
		if string(r) == name {
			return r, nil
		}
	}
	return "", fmt.Errorf("unsupported region: %q", name)
}

func (r Region) String() string {
	return string(r)
}

// HouseTable returns the per-region presale transaction table name.
func (r Region) HouseTable() string {
	return "presale_houses_" + string(r)
}

// StatsTable returns the per-region daily district stats cache table name.
func (r Region) StatsTable() string {
	return "daily_stats_" + string(r)
}
