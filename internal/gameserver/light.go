package gameserver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tilemud/internal/game/notification"
	"github.com/cory-johannsen/tilemud/internal/observability"
)

// TimePeriod is a named phase of the game day.
type TimePeriod string

const (
	PeriodMidnight  TimePeriod = "Midnight"
	PeriodLateNight TimePeriod = "Late Night"
	PeriodDawn      TimePeriod = "Dawn"
	PeriodMorning   TimePeriod = "Morning"
	PeriodAfternoon TimePeriod = "Afternoon"
	PeriodDusk      TimePeriod = "Dusk"
	PeriodEvening   TimePeriod = "Evening"
	PeriodNight     TimePeriod = "Night"
)

// LightColor is the ambient light color sent with every level.
const LightColor uint8 = 215

var periodLight = map[TimePeriod]uint8{
	PeriodMidnight:  40,
	PeriodLateNight: 40,
	PeriodDawn:      120,
	PeriodMorning:   215,
	PeriodAfternoon: 250,
	PeriodDusk:      150,
	PeriodEvening:   100,
	PeriodNight:     60,
}

// GameHour is a game-clock hour in [0, 23].
type GameHour int32

// Period returns the named time period for this hour.
//
// Precondition: h is in [0, 23].
// Postcondition: Returns one of the eight TimePeriod constants.
func (h GameHour) Period() TimePeriod {
	switch {
	case h == 0:
		return PeriodMidnight
	case h <= 4:
		return PeriodLateNight
	case h <= 6:
		return PeriodDawn
	case h <= 11:
		return PeriodMorning
	case h <= 16:
		return PeriodAfternoon
	case h <= 18:
		return PeriodDusk
	case h <= 21:
		return PeriodEvening
	default:
		return PeriodNight
	}
}

// LightLevel returns the ambient light level of the hour's period.
func (h GameHour) LightLevel() uint8 {
	return periodLight[h.Period()]
}

// String returns the hour in "HH:00" format.
func (h GameHour) String() string {
	return fmt.Sprintf("%02d:00", int(h))
}

// PlayerLister enumerates connected players.
type PlayerLister interface {
	CreatureIDs() []uint32
}

// WorldLight runs the day cycle: the hour advances once per tick and every
// connected player is told the light level, with a line describing the new
// period, whenever the level changes.
type WorldLight struct {
	mu           sync.Mutex
	hour         GameHour
	tickInterval time.Duration
	notifier     notification.Notifier
	players      PlayerLister
	logger       *zap.Logger
}

// NewWorldLight returns a stopped light cycle starting at startHour.
//
// Precondition: tickInterval > 0; notifier, players and logger must not be nil.
func NewWorldLight(startHour int32, tickInterval time.Duration, notifier notification.Notifier, players PlayerLister, logger *zap.Logger) *WorldLight {
	if tickInterval <= 0 {
		panic("gameserver.NewWorldLight: tickInterval must be > 0")
	}
	if notifier == nil || players == nil || logger == nil {
		panic("gameserver.NewWorldLight: notifier, players and logger must not be nil")
	}
	return &WorldLight{
		hour:         GameHour(((startHour % 24) + 24) % 24),
		tickInterval: tickInterval,
		notifier:     notifier,
		players:      players,
		logger:       observability.Component(logger, "light"),
	}
}

// CurrentHour returns the current game hour.
func (w *WorldLight) CurrentHour() GameHour {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hour
}

// Packet returns the light packet for the current hour, for players that just
// logged in.
func (w *WorldLight) Packet() notification.WorldLight {
	return notification.WorldLight{Level: w.CurrentHour().LightLevel(), Color: LightColor}
}

// Tick advances the clock by one hour and broadcasts the light level when the
// period changed.
//
// Postcondition: returns the new hour.
func (w *WorldLight) Tick() GameHour {
	w.mu.Lock()
	prev := w.hour
	w.hour = (w.hour + 1) % 24
	h := w.hour
	w.mu.Unlock()

	if prev.LightLevel() == h.LightLevel() {
		return h
	}
	w.logger.Debug("light changed",
		zap.Stringer("hour", h),
		zap.String("period", string(h.Period())),
	)
	players := w.players
	w.notifier.Notify(notification.New(
		func(notification.ConnectionFinder) []uint32 { return players.CreatureIDs() },
		notification.WorldLight{Level: h.LightLevel(), Color: LightColor},
		notification.TextMessage{Kind: notification.TextInfo, Text: PeriodText(h.Period())},
	))
	return h
}

// Run ticks until ctx is cancelled.
//
// Postcondition: returns nil once ctx is done.
func (w *WorldLight) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.Tick()
		}
	}
}
