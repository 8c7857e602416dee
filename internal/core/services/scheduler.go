package services

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// historyLimit is the number of results kept per task.
const historyLimit = 100

// MaintenanceTask is a recurring job. Run returns how many items it handled.
type MaintenanceTask struct {
	ID   string
	Name string
	Run  func(ctx context.Context) (int, error)
}

// QuestionLogPruneTask removes question sessions past the retention window.
func QuestionLogPruneTask(log driving.QuestionLogService) MaintenanceTask {
	return MaintenanceTask{
		ID:   domain.TaskIDQuestionLogPrune,
		Name: "Question log retention",
		Run:  log.Prune,
	}
}

// CacheSweepTask drops expired cache entries.
func CacheSweepTask(sweep func() int) MaintenanceTask {
	return MaintenanceTask{
		ID:   domain.TaskIDCacheSweep,
		Name: "Cache sweep",
		Run: func(context.Context) (int, error) {
			return sweep(), nil
		},
	}
}

// Scheduler runs maintenance tasks on their configured intervals. State is
// held in memory: every task runs once when the scheduler starts.
type Scheduler struct {
	config domain.SchedulerConfig
	jobs   map[string]MaintenanceTask
	tick   time.Duration
	now    func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	tasks   map[string]*domain.ScheduledTask
	active  map[string]bool
	history map[string][]domain.TaskResult
}

// NewScheduler creates a scheduler for jobs. Jobs without an enabled
// TaskConfig never run.
func NewScheduler(config domain.SchedulerConfig, jobs ...MaintenanceTask) *Scheduler {
	s := &Scheduler{
		config:  config,
		jobs:    make(map[string]MaintenanceTask, len(jobs)),
		tick:    time.Minute,
		now:     time.Now,
		tasks:   make(map[string]*domain.ScheduledTask),
		active:  make(map[string]bool),
		history: make(map[string][]domain.TaskResult),
	}
	for _, j := range jobs {
		if j.Run != nil {
			s.jobs[j.ID] = j
		}
	}
	return s
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		logger.Debug("scheduler: disabled")
		return nil
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.initialiseTasks()
	stopCh := s.stopCh
	s.mu.Unlock()

	return s.run(ctx, stopCh)
}

// Stop gracefully shuts down the scheduler and waits for running tasks.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// Tasks returns a snapshot of the scheduled tasks ordered by ID.
func (s *Scheduler) Tasks() []domain.ScheduledTask {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.ScheduledTask, 0, len(s.tasks))
	for _, id := range s.taskIDs() {
		out = append(out, *s.tasks[id])
	}
	return out
}

// History returns the recent results for a task, most recent first.
func (s *Scheduler) History(taskID string) []domain.TaskResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := slices.Clone(s.history[taskID])
	slices.Reverse(h)
	return h
}

// initialiseTasks builds the task table from config. Caller holds mu.
func (s *Scheduler) initialiseTasks() {
	now := s.now()
	for id, job := range s.jobs {
		cfg := s.config.GetTaskConfig(id)
		if !cfg.Enabled || cfg.Interval <= 0 {
			delete(s.tasks, id)
			continue
		}
		if task, ok := s.tasks[id]; ok {
			task.Interval = cfg.Interval
			continue
		}
		s.tasks[id] = &domain.ScheduledTask{
			ID:       id,
			Name:     job.Name,
			Interval: cfg.Interval,
			Enabled:  true,
			NextRun:  now,
		}
	}
}

func (s *Scheduler) run(ctx context.Context, stopCh <-chan struct{}) error {
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = s.Stop()
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	now := s.now()
	for _, id := range s.taskIDs() {
		task := s.tasks[id]
		if !task.Enabled || s.active[id] || now.Before(task.NextRun) {
			continue
		}
		s.active[id] = true
		s.wg.Add(1)
		go s.runTask(ctx, s.jobs[id])
	}
}

func (s *Scheduler) runTask(ctx context.Context, job MaintenanceTask) {
	defer s.wg.Done()

	result := domain.TaskResult{TaskID: job.ID, StartedAt: s.now()}
	n, err := job.Run(ctx)
	result.EndedAt = s.now()
	result.ItemsProcessed = n

	s.mu.Lock()
	defer s.mu.Unlock()

	s.active[job.ID] = false
	task := s.tasks[job.ID]
	task.LastRun = result.StartedAt
	task.NextRun = result.EndedAt.Add(task.Interval)
	if err != nil {
		result.Error = err.Error()
		task.LastError = result.Error
		logger.Warn("scheduler: %s failed: %v", job.ID, err)
	} else {
		result.Success = true
		task.LastError = ""
		task.LastSuccess = result.EndedAt
		logger.Debug("scheduler: %s handled %d items in %s", job.ID, n, result.Duration())
	}

	h := append(s.history[job.ID], result)
	if len(h) > historyLimit {
		h = h[len(h)-historyLimit:]
	}
	s.history[job.ID] = h
}

// taskIDs returns the task IDs in a stable order. Caller holds mu.
func (s *Scheduler) taskIDs() []string {
	ids := make([]string, 0, len(s.tasks))
	for id := range s.tasks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
