package scheduler

import (
	"fmt"

	"github.com/crisramb665/FundChain/internal/logger"
	"github.com/go-co-op/gocron/v2"
)

// Job is a recurring background task.
type Job interface {
	GetName() string
	GetSchedule() gocron.JobDefinition
	Execute()
}

// Manager runs registered jobs on a gocron scheduler. A job never overlaps
// with itself; a run that overruns its interval is rescheduled.
type Manager struct {
	scheduler gocron.Scheduler
	jobs      []string
}

func NewManager() (*Manager, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Manager{scheduler: s}, nil
}

// Register adds job. Jobs registered after Start run as soon as they are due.
func (m *Manager) Register(job Job) error {
	_, err := m.scheduler.NewJob(
		job.GetSchedule(),
		gocron.NewTask(job.Execute),
		gocron.WithName(job.GetName()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to register job %s: %w", job.GetName(), err)
	}
	m.jobs = append(m.jobs, job.GetName())
	return nil
}

// Jobs lists registered job names.
func (m *Manager) Jobs() []string {
	return append([]string(nil), m.jobs...)
}

func (m *Manager) Start() {
	m.scheduler.Start()
	logger.Info("Task manager started with %d jobs", len(m.jobs))
}

func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logger.Error("Failed to shutdown scheduler: %v", err)
	}
	logger.Info("Task manager stopped")
}
