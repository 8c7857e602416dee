package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSchedulerConfig(t *testing.T) {
	config := DefaultSchedulerConfig()

	assert.True(t, config.Enabled)
	assert.Len(t, config.TaskConfigs, 2)

	prune := config.TaskConfigs[TaskIDQuestionLogPrune]
	assert.True(t, prune.Enabled)
	assert.Equal(t, 24*time.Hour, prune.Interval)

	sweep := config.TaskConfigs[TaskIDCacheSweep]
	assert.True(t, sweep.Enabled)
	assert.Equal(t, time.Hour, sweep.Interval)
}

func TestSchedulerConfig_GetTaskConfig(t *testing.T) {
	config := DefaultSchedulerConfig()

	assert.True(t, config.GetTaskConfig(TaskIDCacheSweep).Enabled)

	unknown := config.GetTaskConfig("unknown-task")
	assert.False(t, unknown.Enabled)
	assert.Zero(t, unknown.Interval)
}

func TestSchedulerConfig_GetTaskConfig_NilMap(t *testing.T) {
	config := SchedulerConfig{Enabled: true}

	cfg := config.GetTaskConfig("any-task")
	assert.False(t, cfg.Enabled)
	assert.Zero(t, cfg.Interval)
}

func TestTaskResult_Duration(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r := TaskResult{StartedAt: start, EndedAt: start.Add(1500 * time.Millisecond)}

	assert.Equal(t, 1500*time.Millisecond, r.Duration())
}
