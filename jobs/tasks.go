package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskLowStockScan refreshes the cached low-stock list and warns about
	// every product at or below the threshold.
	TaskLowStockScan = "inventory:low_stock_scan"
	// TaskDashboardWarmup precomputes today's dashboard overview.
	TaskDashboardWarmup = "dashboard:warmup"
	// TaskLedgerCleanup drops expired order submission keys from the ledger.
	TaskLedgerCleanup = "ledger:cleanup"
)

// LedgerCleanupPayload sets how long submission keys are kept.
type LedgerCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewLowStockScanTask builds a low-stock scan task. The threshold is the
// worker's configured one.
func NewLowStockScanTask() *asynq.Task {
	return asynq.NewTask(TaskLowStockScan, []byte("{}"))
}

// NewDashboardWarmupTask builds a dashboard warmup task.
func NewDashboardWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskDashboardWarmup, []byte("{}"))
}

// NewLedgerCleanupTask builds a ledger cleanup task.
func NewLedgerCleanupTask(retentionHours int) (*asynq.Task, error) {
	if retentionHours <= 0 {
		retentionHours = 24
	}
	data, err := json.Marshal(LedgerCleanupPayload{RetentionHours: retentionHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerCleanup, data), nil
}

// ErrUnknownTask is returned for a name TaskNames does not list.
var ErrUnknownTask = errors.New("jobs: unknown task")

var taskBuilders = map[string]func() (*asynq.Task, error){
	TaskLowStockScan:    func() (*asynq.Task, error) { return NewLowStockScanTask(), nil },
	TaskDashboardWarmup: func() (*asynq.Task, error) { return NewDashboardWarmupTask(), nil },
	TaskLedgerCleanup:   func() (*asynq.Task, error) { return NewLedgerCleanupTask(0) },
}

// TaskNames lists the task types that can be triggered by name.
func TaskNames() []string {
	names := make([]string, 0, len(taskBuilders))
	for name := range taskBuilders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewTaskByName builds a task with default payload for a manual trigger.
func NewTaskByName(name string) (*asynq.Task, error) {
	build, ok := taskBuilders[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownTask, name)
	}
	return build()
}
