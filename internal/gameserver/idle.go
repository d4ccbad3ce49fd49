package gameserver

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tilemud/internal/game/notification"
	"github.com/cory-johannsen/tilemud/internal/observability"
)

// IdleWarning is the message sent to a player about to be logged out.
const IdleWarning = "You have been idle for too long. You will be logged out soon."

// IdleSessions is the session view the idle sweep needs.
type IdleSessions interface {
	Idle(now time.Time, after time.Duration) []uint32
	MarkWarned(creatureID uint32) bool
	Disconnect(creatureID uint32) error
}

// LogOuter removes creatures from the world.
type LogOuter interface {
	LogOut(creatureID uint32) error
}

// IdleSweeper warns players idle for longer than the timeout and logs them
// out once the grace period has also passed.
type IdleSweeper struct {
	sessions IdleSessions
	game     LogOuter
	notifier notification.Notifier
	timeout  time.Duration
	grace    time.Duration
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewIdleSweeper returns a sweeper.
//
// Precondition: timeout > 0, grace >= 0, interval > 0; collaborators must not be nil.
func NewIdleSweeper(sessions IdleSessions, game LogOuter, notifier notification.Notifier, timeout, grace, interval time.Duration, logger *zap.Logger) *IdleSweeper {
	if timeout <= 0 || grace < 0 || interval <= 0 {
		panic("gameserver.NewIdleSweeper: timeout and interval must be > 0, grace >= 0")
	}
	if sessions == nil || game == nil || notifier == nil || logger == nil {
		panic("gameserver.NewIdleSweeper: sessions, game, notifier and logger must not be nil")
	}
	return &IdleSweeper{
		sessions: sessions,
		game:     game,
		notifier: notifier,
		timeout:  timeout,
		grace:    grace,
		interval: interval,
		now:      time.Now,
		logger:   observability.Component(logger, "idle"),
	}
}

// Sweep warns and logs out idle players as of now.
//
// Postcondition: returns the ids warned and the ids logged out.
func (s *IdleSweeper) Sweep(now time.Time) (warned, loggedOut []uint32) {
	expired := make(map[uint32]bool)
	for _, id := range s.sessions.Idle(now, s.timeout+s.grace) {
		expired[id] = true
		if err := s.game.LogOut(id); err != nil {
			s.logger.Warn("logging out idle player", zap.Uint32("creature", id), zap.Error(err))
		}
		if err := s.sessions.Disconnect(id); err != nil {
			s.logger.Warn("disconnecting idle player", zap.Uint32("creature", id), zap.Error(err))
		}
		loggedOut = append(loggedOut, id)
	}
	for _, id := range s.sessions.Idle(now, s.timeout) {
		if expired[id] || !s.sessions.MarkWarned(id) {
			continue
		}
		s.notifier.Notify(notification.ToCreature(id, notification.TextMessage{Kind: notification.TextWarning, Text: IdleWarning}))
		warned = append(warned, id)
	}
	if len(warned) > 0 || len(loggedOut) > 0 {
		s.logger.Info("idle sweep", zap.Int("warned", len(warned)), zap.Int("logged_out", len(loggedOut)))
	}
	return warned, loggedOut
}

// Run sweeps once per interval until ctx is cancelled.
func (s *IdleSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep(s.now())
		}
	}
}
