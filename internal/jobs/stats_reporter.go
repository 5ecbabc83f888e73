package jobs

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"pairprog/internal/metrics"
)

// RoomCounter is satisfied by rooms.Registry.
type RoomCounter interface {
	Count() int
}

// ConnectionCounter is satisfied by session.Hub.
type ConnectionCounter interface {
	TotalConnections() int
}

// Stats is one snapshot taken by the reporter.
type Stats struct {
	Rooms       int
	Connections int
}

// StatsReporter periodically publishes room and connection counts to the
// metrics gauges and the log.
type StatsReporter struct {
	rooms    RoomCounter
	conns    ConnectionCounter
	schedule string
	log      *zap.Logger
	cron     *cron.Cron
}

func NewStatsReporter(rooms RoomCounter, conns ConnectionCounter, schedule string, log *zap.Logger) *StatsReporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &StatsReporter{
		rooms:    rooms,
		conns:    conns,
		schedule: schedule,
		log:      log,
		cron:     cron.New(),
	}
}

// Start schedules the reporter. An empty schedule disables it.
func (s *StatsReporter) Start() error {
	if s.schedule == "" {
		s.log.Info("stats reporter disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunOnce() }); err != nil {
		return fmt.Errorf("failed to schedule stats reporter: %w", err)
	}
	s.cron.Start()
	s.log.Info("stats reporter started", zap.String("schedule", s.schedule))
	return nil
}

// Stop waits for a running report to finish.
func (s *StatsReporter) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

func (s *StatsReporter) RunOnce() Stats {
	st := Stats{
		Rooms:       s.rooms.Count(),
		Connections: s.conns.TotalConnections(),
	}
	metrics.Rooms.Set(float64(st.Rooms))
	metrics.ActiveConnections.Set(float64(st.Connections))
	s.log.Info("collab stats", zap.Int("rooms", st.Rooms), zap.Int("connections", st.Connections))
	return st
}
