package database

import (
	"fmt"

	"presale/server/config"
	"presale/server/internal/models"
)

// RunMigrations creates the per-region transaction and stats tables plus the
// indexes backing the natural-key upsert and the date-range queries.
func (d *Database) RunMigrations() error {
	for _, region := range config.SupportedRegions {
		if err := d.db.Table(region.HouseTable()).AutoMigrate(&models.House{}); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", region.HouseTable(), err)
		}
		if err := d.db.Table(region.StatsTable()).AutoMigrate(&models.DailyDistrictStat{}); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", region.StatsTable(), err)
		}

		err := d.db.Exec(fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS idx_%s_natural_key
			ON %s(district, project_name, building_number, transaction_date);
		`, region.HouseTable(), region.HouseTable())).Error
		if err != nil {
			return fmt.Errorf("failed to create natural key index on %s: %w", region.HouseTable(), err)
		}

		err = d.db.Exec(fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS idx_%s_transaction_date
			ON %s(transaction_date);
		`, region.HouseTable(), region.HouseTable())).Error
		if err != nil {
			return fmt.Errorf("failed to create date index on %s: %w", region.HouseTable(), err)
		}
	}
	return nil
}
