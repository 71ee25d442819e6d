package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"pulseboard/internal/services"
)

const refreshLockKey = "assistant:dataset:refresh-lock"

// DatasetRefresher reloads the knowledge-base snapshot on a fixed
// interval. With Redis available, a lock ensures only one instance pays
// the reload cost per interval.
type DatasetRefresher struct {
	scheduler  gocron.Scheduler
	dataset    *services.DatasetService
	redis      *redis.Client // optional
	interval   time.Duration
	instanceID string
}

// NewDatasetRefresher creates the refresh job (not yet started)
func NewDatasetRefresher(dataset *services.DatasetService, redisClient *redis.Client, interval time.Duration) (*DatasetRefresher, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &DatasetRefresher{
		scheduler:  scheduler,
		dataset:    dataset,
		redis:      redisClient,
		interval:   interval,
		instanceID: uuid.New().String(),
	}, nil
}

// Start registers and starts the periodic refresh
func (r *DatasetRefresher) Start() error {
	_, err := r.scheduler.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(r.refresh),
	)
	if err != nil {
		return fmt.Errorf("failed to register refresh job: %w", err)
	}

	r.scheduler.Start()
	log.Printf("⏰ [DATASET-REFRESH] Scheduled every %s", r.interval)
	return nil
}

// Stop shuts the scheduler down
func (r *DatasetRefresher) Stop() error {
	return r.scheduler.Shutdown()
}

func (r *DatasetRefresher) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if r.redis != nil {
		acquired, err := r.redis.SetNX(ctx, refreshLockKey, r.instanceID, 5*time.Minute).Result()
		if err != nil {
			log.Printf("⚠️ [DATASET-REFRESH] Lock check failed, refreshing anyway: %v", err)
		} else if !acquired {
			return // another instance holds the interval
		}
	}

	r.dataset.Invalidate()
	if _, err := r.dataset.Load(); err != nil {
		log.Printf("⚠️ [DATASET-REFRESH] Reload failed: %v", err)
		return
	}
	log.Printf("🔄 [DATASET-REFRESH] Knowledge base reloaded")
}
