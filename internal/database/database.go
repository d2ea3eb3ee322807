package database

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"presale/server/config"
	"presale/server/internal/models"
)

// Database wraps the shared GORM handle. It is constructed once in main and
// injected into every component; nothing else opens connections.
type Database struct {
	db *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Serialize writers instead of surfacing SQLITE_BUSY
	if err := db.Exec("PRAGMA busy_timeout = 5000").Error; err != nil {
		return nil, err
	}

	return &Database{db: db}, nil
}

// UpsertResult classifies the outcome of a single-row upsert.
type UpsertResult int

const (
	UpsertUnchanged UpsertResult = iota
	UpsertInserted
	UpsertUpdated
)

// UpsertHouse writes one transaction into the region's store, matching on the
// natural key (district, project name, building number, transaction date).
// A row identical to the stored one counts as unchanged.
func (d *Database) UpsertHouse(region config.Region, house *models.House) (UpsertResult, error) {
	table := region.HouseTable()

	var existing models.House
	err := d.db.Table(table).
		Where("district = ? AND project_name = ? AND building_number = ? AND transaction_date = ?",
			house.District, house.ProjectName, house.BuildingNumber, house.TransactionDate).
		First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := d.db.Table(table).Create(house).Error; err != nil {
			return UpsertUnchanged, fmt.Errorf("failed to insert house: %w", err)
		}
		return UpsertInserted, nil
	}
	if err != nil {
		return UpsertUnchanged, fmt.Errorf("failed to look up house: %w", err)
	}

	if existing.SameData(*house) {
		return UpsertUnchanged, nil
	}

	house.ID = existing.ID
	if err := d.db.Table(table).Save(house).Error; err != nil {
		return UpsertUnchanged, fmt.Errorf("failed to update house: %w", err)
	}
	return UpsertUpdated, nil
}

// GetDistricts returns the distinct districts present in the region's store,
// sorted ascending.
func (d *Database) GetDistricts(region config.Region) ([]string, error) {
	districts := make([]string, 0)
	err := d.db.Table(region.HouseTable()).
		Distinct("district").
		Order("district ASC").
		Pluck("district", &districts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list districts: %w", err)
	}
	return districts, nil
}

// GetRealEstateTrends returns one page of transactions, newest first,
// optionally filtered by exact district and by a case-insensitive substring
// match over project name, address and building number.
func (d *Database) GetRealEstateTrends(region config.Region, page, limit int, district, search string) (models.PaginatedHouses, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	filtered := func() *gorm.DB {
		q := d.db.Table(region.HouseTable())
		if district != "" && district != "all" {
			q = q.Where("district = ?", district)
		}
		if search != "" {
			pattern := "%" + strings.ToLower(search) + "%"
			q = q.Where("(LOWER(project_name) LIKE ? OR LOWER(address) LIKE ? OR LOWER(building_number) LIKE ?)",
				pattern, pattern, pattern)
		}
		return q
	}

	var totalCount int64
	if err := filtered().Count(&totalCount).Error; err != nil {
		return models.PaginatedHouses{}, fmt.Errorf("failed to count houses: %w", err)
	}

	houses := make([]models.House, 0)
	err := filtered().
		Order("transaction_date DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&houses).Error
	if err != nil {
		return models.PaginatedHouses{}, fmt.Errorf("failed to query houses: %w", err)
	}

	return models.PaginatedHouses{
		Houses:      houses,
		TotalCount:  totalCount,
		CurrentPage: page,
		TotalPages:  int(math.Ceil(float64(totalCount) / float64(limit))),
	}, nil
}

// GetHousesInDateRange returns all transactions whose date falls inside the
// inclusive ROC date window, newest first. District "" or "all" means no
// district filter.
func (d *Database) GetHousesInDateRange(region config.Region, startDate, endDate, district string) ([]models.House, error) {
	q := d.db.Table(region.HouseTable()).
		Where("transaction_date >= ? AND transaction_date <= ?", startDate, endDate)
	if district != "" && district != "all" {
		q = q.Where("district = ?", district)
	}

	houses := make([]models.House, 0)
	if err := q.Order("transaction_date DESC").Find(&houses).Error; err != nil {
		return nil, fmt.Errorf("failed to query houses in range: %w", err)
	}
	return houses, nil
}

// DistrictDayAggregate is one raw GROUP BY row of the price aggregation:
// the mean main-building price per pin over one district and one ROC day.
type DistrictDayAggregate struct {
	District        string
	TransactionDate string
	AveragePrice    float64
	Count           int
}

// AggregateDailyDistrictPrices groups the region's transactions inside the
// window by district and day. The fixed-width ROC encoding makes the string
// range comparison equivalent to a date comparison.
func (d *Database) AggregateDailyDistrictPrices(region config.Region, startDate, endDate string) ([]DistrictDayAggregate, error) {
	query := fmt.Sprintf(`
        SELECT
            district,
            transaction_date,
            AVG(main_building_price_per_pin) AS average_price,
            COUNT(*) AS count
        FROM %s
        WHERE transaction_date >= ? AND transaction_date <= ?
        GROUP BY district, transaction_date
        ORDER BY district ASC, transaction_date ASC
    `, region.HouseTable())

	rows := make([]DistrictDayAggregate, 0)
	if err := d.db.Raw(query, startDate, endDate).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate district prices: %w", err)
	}
	return rows, nil
}

// GetLatestStatUpdate returns the most recent updatedAt across the region's
// cached stats. The second return value is false when no cache entry exists.
func (d *Database) GetLatestStatUpdate(region config.Region) (time.Time, bool, error) {
	var stat models.DailyDistrictStat
	err := d.db.Table(region.StatsTable()).
		Order("updated_at DESC").
		First(&stat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read stats cache: %w", err)
	}
	return stat.UpdatedAt, true, nil
}

// GetOverlappingStat returns the most recently updated cache entry whose
// window overlaps [startDate, endDate], or nil when none does.
func (d *Database) GetOverlappingStat(region config.Region, startDate, endDate string) (*models.DailyDistrictStat, error) {
	var stat models.DailyDistrictStat
	err := d.db.Table(region.StatsTable()).
		Where("start_date <= ? AND end_date >= ?", endDate, startDate).
		Order("updated_at DESC, id DESC").
		First(&stat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read stats cache: %w", err)
	}
	return &stat, nil
}

// ReplaceContainedStats deletes every cache entry whose window lies fully
// inside the new entry's window, then stores the new entry.
func (d *Database) ReplaceContainedStats(region config.Region, stat *models.DailyDistrictStat) error {
	table := region.StatsTable()
	return d.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Table(table).
			Where("start_date >= ? AND end_date <= ?", stat.StartDate, stat.EndDate).
			Delete(&models.DailyDistrictStat{}).Error
		if err != nil {
			return fmt.Errorf("failed to invalidate stats cache: %w", err)
		}
		if err := tx.Table(table).Create(stat).Error; err != nil {
			return fmt.Errorf("failed to store stats cache: %w", err)
		}
		return nil
	})
}

// ClearAllData wipes every region's transaction and stats tables and returns
// the number of transactions removed.
func (d *Database) ClearAllData() (int64, error) {
	var deleted int64
	err := d.db.Transaction(func(tx *gorm.DB) error {
		for _, region := range config.SupportedRegions {
			result := tx.Table(region.HouseTable()).Where("1 = 1").Delete(&models.House{})
			if result.Error != nil {
				return fmt.Errorf("failed to clear %s: %w", region.HouseTable(), result.Error)
			}
			deleted += result.RowsAffected

			err := tx.Table(region.StatsTable()).Where("1 = 1").Delete(&models.DailyDistrictStat{}).Error
			if err != nil {
				return fmt.Errorf("failed to clear %s: %w", region.StatsTable(), err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// CountHouses returns the number of stored transactions for a region.
func (d *Database) CountHouses(region config.Region) (int64, error) {
	var count int64
	if err := d.db.Table(region.HouseTable()).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count houses: %w", err)
	}
	return count, nil
}

func (d *Database) GetDB() *gorm.DB {
	return d.db
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
