// Package stats computes and caches the average main-building price per pin
// by district and day.
package stats

import (
	"math"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"presale/server/config"
	"presale/server/internal/database"
	"presale/server/internal/models"
	"presale/server/internal/rocdate"
)

const defaultCacheTTL = 24 * time.Hour

// Aggregator answers district price queries from a per-region cache,
// recomputing from the transaction store when the cache is stale or has no
// window overlapping a request.
type Aggregator struct {
	db     *database.Database
	logger *logrus.Logger
	ttl    time.Duration

	// now is swapped out in tests
	now func() time.Time
}

func NewAggregator(db *database.Database, logger *logrus.Logger, ttl time.Duration) *Aggregator {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Aggregator{
		db:     db,
		logger: logger,
		ttl:    ttl,
		now:    time.Now,
	}
}

// GetAveragePriceByDistrict returns the per-district daily averages for the
// inclusive ROC date window.
//
// Cache policy: a request is served from cache when the region's most recent
// cache write is younger than the TTL and some cached window overlaps the
// requested one; of those, the most recently updated entry wins. Otherwise
// the window is recomputed, every cached window fully contained in it is
// dropped, and the fresh result is stored.
func (a *Aggregator) GetAveragePriceByDistrict(region config.Region, startDate, endDate string) (models.DataPoints, error) {
	latest, found, err := a.db.GetLatestStatUpdate(region)
	if err != nil {
		return nil, err
	}

	if found && a.now().Sub(latest) < a.ttl {
		cached, err := a.db.GetOverlappingStat(region, startDate, endDate)
		if err != nil {
			return nil, err
		}
		if cached != nil {
			a.logger.WithFields(logrus.Fields{
				"region":    region.String(),
				"startDate": startDate,
				"endDate":   endDate,
			}).Debug("Serving district prices from cache")
			return cached.Data, nil
		}
	}

	return a.Refresh(region, startDate, endDate)
}

// Refresh recomputes the window from the transaction store and replaces the
// cached entries it fully contains.
func (a *Aggregator) Refresh(region config.Region, startDate, endDate string) (models.DataPoints, error) {
	rows, err := a.db.AggregateDailyDistrictPrices(region, startDate, endDate)
	if err != nil {
		return nil, err
	}

	points := make(models.DataPoints, 0, len(rows))
	for _, row := range rows {
		date, err := rocdate.ToTime(row.TransactionDate)
		if err != nil {
			a.logger.WithError(err).WithFields(logrus.Fields{
				"region":   region.String(),
				"district": row.District,
			}).Warn("Skipping group with malformed transaction date")
			continue
		}
		points = append(points, models.DistrictPricePoint{
			District:           row.District,
			Date:               date,
			Year:               date.Year(),
			Month:              int(date.Month()),
			Day:                date.Day(),
			AveragePricePerPin: math.Round(row.AveragePrice),
			Count:              row.Count,
		})
	}

	stat := &models.DailyDistrictStat{
		StartDate: startDate,
		EndDate:   endDate,
		Data:      points,
		UpdatedAt: a.now(),
	}
	if err := a.db.ReplaceContainedStats(region, stat); err != nil {
		return nil, err
	}

	a.logger.WithFields(logrus.Fields{
		"region":    region.String(),
		"startDate": startDate,
		"endDate":   endDate,
		"points":    len(points),
	}).Info("Recomputed district price stats")

	return points, nil
}
