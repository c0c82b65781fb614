package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/crmgeek/backend/internal/contracts"
	"github.com/wonny/crmgeek/backend/internal/dataset"
	"github.com/wonny/crmgeek/backend/pkg/logger"
	"github.com/wonny/crmgeek/backend/pkg/redis"
)

// FactSource aggregates the weekly sales facts
type FactSource interface {
	Facts(ctx context.Context) ([]contracts.SalesFact, error)
}

// DatasetSnapshotJob publishes the latest weekly sales dataset to Redis and,
// optionally, to a file for offline model work
type DatasetSnapshotJob struct {
	source   FactSource
	cache    *redis.Cache
	path     string
	schedule string
	logger   *logger.Logger
}

// NewDatasetSnapshotJob creates a new snapshot job; cache and path may be empty
func NewDatasetSnapshotJob(source FactSource, cache *redis.Cache, path, schedule string, log *logger.Logger) *DatasetSnapshotJob {
	return &DatasetSnapshotJob{
		source:   source,
		cache:    cache,
		path:     path,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *DatasetSnapshotJob) Name() string {
	return "dataset_snapshot"
}

// Schedule returns the cron schedule
func (j *DatasetSnapshotJob) Schedule() string {
	return j.schedule
}

// Run builds the dataset and publishes it
func (j *DatasetSnapshotJob) Run(ctx context.Context) error {
	facts, err := j.source.Facts(ctx)
	if err != nil {
		return fmt.Errorf("build dataset: %w", err)
	}

	if j.cache != nil {
		if err := j.cache.Set(ctx, redis.DatasetKey(), facts, redis.TTLDaily); err != nil {
			return fmt.Errorf("publish dataset: %w", err)
		}
	}

	if j.path != "" {
		if err := dataset.WriteFile(j.path, facts); err != nil {
			return fmt.Errorf("write dataset snapshot: %w", err)
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"facts": len(facts),
		"path":  j.path,
	}).Info("Dataset snapshot published")

	return nil
}
