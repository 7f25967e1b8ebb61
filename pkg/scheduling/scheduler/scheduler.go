package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	gferrors "github.com/vnykmshr/fanout/pkg/common/errors"
	"github.com/vnykmshr/fanout/pkg/logging"
	"github.com/vnykmshr/fanout/pkg/scheduling/workerpool"
)

const (
	defaultTickInterval = 50 * time.Millisecond
	defaultMaxTasks     = 1000
	maxIDLength         = 255
)

// Task describes a scheduled task.
type Task struct {
	ID       string
	RunAt    time.Time
	Interval time.Duration // Zero for one-time and cron tasks
	Cron     string
	Runs     int64
	Created  time.Time
}

// Scheduler runs tasks at fixed times, intervals or cron schedules.
type Scheduler interface {
	Schedule(id string, task workerpool.Task, runAt time.Time) error
	ScheduleAfter(id string, task workerpool.Task, delay time.Duration) error
	ScheduleRepeating(id string, task workerpool.Task, interval time.Duration) error
	ScheduleCron(id string, cronExpr string, task workerpool.Task) error

	Cancel(id string) bool
	CancelAll()
	List() []Task

	Start() error
	Stop() <-chan struct{}
}

// Config holds scheduler configuration.
type Config struct {
	// WorkerPool runs the tasks. When nil the scheduler owns a small pool.
	// A supplied pool should set DiscardResults unless somebody reads Results.
	WorkerPool workerpool.Pool

	// Location is used to evaluate cron expressions. Defaults to time.Local.
	Location *time.Location

	// TickInterval is how often ready tasks are collected (default: 50ms).
	TickInterval time.Duration

	// MaxTasks caps the number of scheduled tasks (default: 1000).
	MaxTasks int

	// SkipIfRunning drops a run while the previous run of the same task is
	// still executing.
	SkipIfRunning bool

	Logger *logging.Logger
}

// Parser accepts standard five-field cron expressions, an optional leading
// seconds field and descriptors such as @hourly or @every 5s.
var Parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseCron parses expr with Parser.
func ParseCron(expr string) (cron.Schedule, error) {
	if expr == "" {
		return nil, gferrors.NewValidationError("scheduler", "cron", expr, "cannot be empty")
	}
	schedule, err := Parser.Parse(expr)
	if err != nil {
		return nil, gferrors.NewValidationError("scheduler", "cron", expr, err.Error()).
			WithHint("use a cron expression or a descriptor such as @every 10s")
	}
	return schedule, nil
}

type scheduledTask struct {
	id           string
	task         workerpool.Task
	runAt        time.Time
	interval     time.Duration
	cronExpr     string
	cronSchedule cron.Schedule
	created      time.Time

	runs    atomic.Int64
	running atomic.Bool
}

type scheduler struct {
	pool          workerpool.Pool
	ownPool       bool
	location      *time.Location
	tickInterval  time.Duration
	maxTasks      int
	skipIfRunning bool
	logger        *logging.Logger

	// ctx is handed to every run and canceled by Stop.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	tasks   map[string]*scheduledTask
	done    chan struct{}
	exited  chan struct{}
	running bool
	stopped bool
}

// New creates a scheduler with default configuration.
func New() Scheduler {
	return NewWithConfig(Config{})
}

// NewWithConfig creates a scheduler with custom configuration.
func NewWithConfig(cfg Config) Scheduler {
	pool := cfg.WorkerPool
	ownPool := false
	if pool == nil {
		pool = workerpool.NewWithConfig(workerpool.Config{
			WorkerCount:    4,
			QueueSize:      100,
			DiscardResults: true,
		})
		ownPool = true
	}

	location := cfg.Location
	if location == nil {
		location = time.Local
	}

	tickInterval := cfg.TickInterval
	if tickInterval <= 0 {
		tickInterval = defaultTickInterval
	}

	maxTasks := cfg.MaxTasks
	if maxTasks <= 0 {
		maxTasks = defaultMaxTasks
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &scheduler{
		pool:          pool,
		ownPool:       ownPool,
		location:      location,
		tickInterval:  tickInterval,
		maxTasks:      maxTasks,
		skipIfRunning: cfg.SkipIfRunning,
		logger:        cfg.Logger.With("component", "scheduler"),
		ctx:           ctx,
		cancel:        cancel,
		tasks:         make(map[string]*scheduledTask),
		done:          make(chan struct{}),
		exited:        make(chan struct{}),
	}
}

func validateTask(id string, task workerpool.Task) error {
	if id == "" {
		return gferrors.NewValidationError("scheduler", "id", id, "cannot be empty")
	}
	if len(id) > maxIDLength {
		return gferrors.NewValidationError("scheduler", "id", id, "too long").
			WithHint(fmt.Sprintf("use at most %d characters", maxIDLength))
	}
	if task == nil {
		return gferrors.NewValidationError("scheduler", "task", nil, "cannot be nil")
	}
	return nil
}

func (s *scheduler) add(st *scheduledTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return gferrors.NewOperationError("scheduler", "Schedule", gferrors.ErrClosed).WithContext("task " + st.id)
	}
	if _, exists := s.tasks[st.id]; exists {
		return fmt.Errorf("task with ID %q already exists, use a different ID or cancel the existing task first", st.id)
	}
	if len(s.tasks) >= s.maxTasks {
		return gferrors.NewOperationError("scheduler", "Schedule", gferrors.ErrCapacityExceeded).
			WithContext(fmt.Sprintf("maximum of %d tasks reached", s.maxTasks))
	}

	st.created = time.Now()
	s.tasks[st.id] = st
	s.logger.Debug("task scheduled", "task", st.id, "run_at", st.runAt)
	return nil
}

func (s *scheduler) Schedule(id string, task workerpool.Task, runAt time.Time) error {
	if err := validateTask(id, task); err != nil {
		return err
	}
	if runAt.IsZero() {
		return gferrors.NewValidationError("scheduler", "run_at", runAt, "cannot be zero")
	}
	return s.add(&scheduledTask{id: id, task: task, runAt: runAt})
}

func (s *scheduler) ScheduleAfter(id string, task workerpool.Task, delay time.Duration) error {
	return s.Schedule(id, task, time.Now().Add(delay))
}

// ScheduleRepeating runs task now and then every interval.
func (s *scheduler) ScheduleRepeating(id string, task workerpool.Task, interval time.Duration) error {
	if err := validateTask(id, task); err != nil {
		return err
	}
	if interval <= 0 {
		return gferrors.NewValidationError("scheduler", "interval", interval, "must be positive")
	}
	return s.add(&scheduledTask{id: id, task: task, runAt: time.Now(), interval: interval})
}

// ScheduleCron runs task whenever cronExpr next fires.
func (s *scheduler) ScheduleCron(id string, cronExpr string, task workerpool.Task) error {
	if err := validateTask(id, task); err != nil {
		return err
	}
	schedule, err := ParseCron(cronExpr)
	if err != nil {
		return err
	}
	return s.add(&scheduledTask{
		id:           id,
		task:         task,
		runAt:        schedule.Next(time.Now().In(s.location)),
		cronExpr:     cronExpr,
		cronSchedule: schedule,
	})
}

func (s *scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[id]; exists {
		delete(s.tasks, id)
		return true
	}
	return false
}

func (s *scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = make(map[string]*scheduledTask)
}

// List returns the scheduled tasks ordered by next run time.
func (s *scheduler) List() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, Task{
			ID:       t.id,
			RunAt:    t.runAt,
			Interval: t.interval,
			Cron:     t.cronExpr,
			Runs:     t.runs.Load(),
			Created:  t.created,
		})
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].RunAt.Before(tasks[j].RunAt)
	})

	return tasks
}

func (s *scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return gferrors.NewOperationError("scheduler", "Start", gferrors.ErrClosed)
	}
	if s.running {
		return fmt.Errorf("scheduler already running, call Stop() first")
	}

	s.running = true
	go s.run(time.NewTicker(s.tickInterval))
	return nil
}

// Stop halts scheduling and cancels the context of running tasks. The
// returned channel closes once the loop has exited and an owned pool has
// drained. A stopped scheduler cannot be restarted.
func (s *scheduler) Stop() <-chan struct{} {
	s.mu.Lock()
	wasRunning := s.running
	if !s.stopped {
		s.stopped = true
		s.running = false
		close(s.done)
		s.cancel()
	}
	s.mu.Unlock()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if wasRunning {
			<-s.exited
		}
		if s.ownPool {
			<-s.pool.Shutdown()
		}
	}()

	return stopped
}

func (s *scheduler) run(ticker *time.Ticker) {
	defer close(s.exited)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.processReadyTasks()
		}
	}
}

func (s *scheduler) processReadyTasks() {
	now := time.Now()

	s.mu.Lock()
	if len(s.tasks) == 0 {
		s.mu.Unlock()
		return
	}

	readyTasks := make([]*scheduledTask, 0, len(s.tasks))
	for id, task := range s.tasks {
		if now.Before(task.runAt) {
			continue
		}
		readyTasks = append(readyTasks, task)

		switch {
		case task.interval > 0:
			task.runAt = now.Add(task.interval)
		case task.cronSchedule != nil:
			task.runAt = task.cronSchedule.Next(now.In(s.location))
		default:
			delete(s.tasks, id)
		}
	}
	s.mu.Unlock()

	for _, task := range readyTasks {
		s.dispatch(task)
	}
}

func (s *scheduler) dispatch(st *scheduledTask) {
	if s.skipIfRunning && !st.running.CompareAndSwap(false, true) {
		s.logger.Debug("skipping run, previous run still in progress", "task", st.id)
		return
	}

	run := workerpool.TaskFunc(func(ctx context.Context) error {
		if s.skipIfRunning {
			defer st.running.Store(false)
		}
		st.runs.Add(1)
		err := st.task.Execute(ctx)
		if err != nil {
			s.logger.Warn("scheduled task failed", "task", st.id, "error", err)
		}
		return err
	})

	if err := s.pool.SubmitWithContext(s.ctx, run); err != nil {
		if s.skipIfRunning {
			st.running.Store(false)
		}
		s.logger.Warn("scheduled task not submitted", "task", st.id, "error", err)
	}
}
