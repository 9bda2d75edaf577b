package api

import (
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// submitLimiter hands out at most limit submission slots per client inside a sliding window.
// A slot is reserved before the store write starts, so concurrent submits cannot overshoot.
type submitLimiter struct {
	limit  int
	window time.Duration

	mu    sync.Mutex
	next  uint64
	slots map[string][]submitSlot
}

type submitSlot struct {
	id uint64
	at time.Time
}

func newSubmitLimiter(limit int, window time.Duration) *submitLimiter {
	return &submitLimiter{
		limit:  limit,
		window: window,
		slots:  make(map[string][]submitSlot),
	}
}

// reserve takes a slot for client. The returned release gives the slot back; it is safe to call
// more than once and is a no-op after the slot has left the window.
func (l *submitLimiter) reserve(client string, now time.Time) (release func(), ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	active := l.activeLocked(client, now)
	if len(active) >= l.limit {
		return func() {}, false
	}

	l.next++
	slot := submitSlot{id: l.next, at: now}
	l.slots[client] = append(active, slot)

	var once sync.Once
	return func() {
		once.Do(func() { l.drop(client, slot.id) })
	}, true
}

func (l *submitLimiter) drop(client string, id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slots := l.slots[client]
	for index, slot := range slots {
		if slot.id == id {
			slots = append(slots[:index:index], slots[index+1:]...)
			break
		}
	}
	if len(slots) == 0 {
		delete(l.slots, client)
		return
	}
	l.slots[client] = slots
}

// activeLocked drops expired slots of client and returns the rest.
func (l *submitLimiter) activeLocked(client string, now time.Time) []submitSlot {
	slots := l.slots[client]
	threshold := now.Add(-l.window)
	active := slots[:0]
	for _, slot := range slots {
		if slot.at.After(threshold) {
			active = append(active, slot)
		}
	}
	if len(active) == 0 {
		delete(l.slots, client)
		return nil
	}
	l.slots[client] = active
	return active
}

func requestLimiterKey(c *fiber.Ctx) string {
	key := strings.TrimSpace(c.IP())
	if key == "" {
		return "unknown"
	}
	return key
}
