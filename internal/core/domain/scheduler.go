package domain

import "time"

// ScheduledTask is the state of a recurring maintenance task.
type ScheduledTask struct {
	ID       string
	Name     string
	Interval time.Duration

	LastRun     time.Time
	NextRun     time.Time
	LastSuccess time.Time
	LastError   string

	Enabled bool
}

// TaskResult is the outcome of one task run.
type TaskResult struct {
	TaskID    string
	StartedAt time.Time
	EndedAt   time.Time
	Success   bool
	Error     string

	// ItemsProcessed counts what the run removed or touched
	// (pruned sessions, swept cache entries).
	ItemsProcessed int
}

// Duration returns how long the run took.
func (r TaskResult) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// Enabled is the master switch for the scheduler.
	Enabled bool

	// TaskConfigs holds per-task configuration.
	TaskConfigs map[string]TaskConfig
}

// TaskConfig holds configuration for a single task.
type TaskConfig struct {
	Enabled  bool
	Interval time.Duration
}

// GetTaskConfig returns the configuration for a specific task.
// Returns a zero TaskConfig if the task is not configured.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	if c.TaskConfigs == nil {
		return TaskConfig{}
	}
	return c.TaskConfigs[taskID]
}

// Task IDs for built-in maintenance tasks.
const (
	TaskIDQuestionLogPrune = "question-log-prune"
	TaskIDCacheSweep       = "cache-sweep"
)

// DefaultSchedulerConfig returns the maintenance schedule used by
// long-running commands.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled: true,
		TaskConfigs: map[string]TaskConfig{
			TaskIDQuestionLogPrune: {
				Enabled:  true,
				Interval: 24 * time.Hour,
			},
			TaskIDCacheSweep: {
				Enabled:  true,
				Interval: 1 * time.Hour,
			},
		},
	}
}
