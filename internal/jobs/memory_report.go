package jobs

import (
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"snapsolve/internal/services"
)

// MemoryReportJob periodically logs memory-store occupancy and refreshes the
// Prometheus gauges, so store growth is visible without hitting the API.
type MemoryReportJob struct {
	memory  *services.MemoryService
	metrics *services.Metrics
}

// NewMemoryReportJob creates a new memory report job
func NewMemoryReportJob(memory *services.MemoryService, metrics *services.Metrics) *MemoryReportJob {
	return &MemoryReportJob{memory: memory, metrics: metrics}
}

// Run reports the current store sizes
func (j *MemoryReportJob) Run() {
	topics, background, mentions := j.memory.Sizes()
	j.metrics.RecordMemorySizes(topics, background)
	log.Printf("🧠 [MEMORY-REPORT] %d active topic(s), %d background fact(s), %d total mention(s)",
		topics, background, mentions)
}

// StartScheduler starts a scheduler running the memory report at the given
// interval. The returned scheduler must be shut down on exit.
func StartScheduler(job *MemoryReportJob, interval time.Duration) (gocron.Scheduler, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	if _, err := scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(job.Run),
	); err != nil {
		return nil, fmt.Errorf("failed to register memory report job: %w", err)
	}

	scheduler.Start()
	log.Printf("⏰ [SCHEDULER] Memory report job scheduled every %v", interval)
	return scheduler, nil
}
