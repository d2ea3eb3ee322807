// Package ingest turns uploaded presale transaction CSV exports into
// normalized rows and upserts them into the region's store.
package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"presale/server/config"
	"presale/server/internal/database"
	"presale/server/internal/models"
)

// Pipeline ingests CSV uploads for all regions through a shared store handle.
type Pipeline struct {
	db     *database.Database
	logger *logrus.Logger
}

func NewPipeline(db *database.Database, logger *logrus.Logger) *Pipeline {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Pipeline{
		db:     db,
		logger: logger,
	}
}

// Ingest parses fileBytes as a CSV export and upserts every row into the
// region's store, matching on the natural key. Parse and header validation
// failures reject the whole file before any write happens. A storage failure
// aborts further rows; rows upserted before it stay committed.
func (p *Pipeline) Ingest(fileBytes []byte, region config.Region) (models.IngestSummary, error) {
	houses, err := p.parse(fileBytes, region)
	if err != nil {
		return models.IngestSummary{}, err
	}

	summary := models.IngestSummary{TotalProcessed: len(houses)}
	for i := range houses {
		result, err := p.db.UpsertHouse(region, &houses[i])
		if err != nil {
			return models.IngestSummary{}, fmt.Errorf("failed to upsert row %d: %w", i+1, err)
		}
		switch result {
		case database.UpsertInserted:
			summary.InsertedCount++
		case database.UpsertUpdated:
			summary.UpdatedCount++
		}
	}

	p.logger.WithFields(logrus.Fields{
		"region":    region.String(),
		"processed": summary.TotalProcessed,
		"inserted":  summary.InsertedCount,
		"updated":   summary.UpdatedCount,
	}).Info("Ingestion completed")

	return summary, nil
}

// parse reads the whole file into normalized rows, validating the header
// first. It never writes to the store.
func (p *Pipeline) parse(fileBytes []byte, region config.Region) ([]models.House, error) {
	reader := csv.NewReader(bytes.NewReader(fileBytes))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, &ValidationError{Message: "file is not parseable as CSV"}
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	columnIndex := make(map[string]int, len(header))
	for i, name := range header {
		columnIndex[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := columnIndex[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &ValidationError{
			Message:        "missing required columns",
			MissingColumns: missing,
		}
	}

	var houses []models.House
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ValidationError{Message: fmt.Sprintf("malformed CSV row: %v", err)}
		}

		record := make(map[string]string, len(columnIndex))
		for name, idx := range columnIndex {
			if idx < len(row) {
				record[name] = row[idx]
			}
		}
		houses = append(houses, normalizeRow(record, region))
	}

	return houses, nil
}
