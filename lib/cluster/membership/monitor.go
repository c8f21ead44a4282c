package membership

import (
	"sync"
	"time"

	"github.com/hivecache/hivecache/lib/cache/util"
	"github.com/hivecache/hivecache/lib/logger"
)

var log = logger.GetLogger("cluster/membership")

// Event describes a peer status transition observed by the monitor
type Event struct {
	Peer PeerRecord
	Old  PeerStatus
	New  PeerStatus
}

// Monitor periodically ages the records of a Registry: peers fall to Suspect
// and Dead as they stay silent, and peers Dead beyond the retention window
// are forgotten. Status changes are reported through the optional event
// callback (called from the monitor goroutine, keep it fast).
//
// Thread-safety: all methods are safe for concurrent use.
type Monitor struct {
	registry *Registry
	config   Config
	now      func() int64
	onEvent  func(Event)

	mu        sync.Mutex
	reap      *util.DeadlineHeap // peers awaiting retention expiry
	stopCh    chan struct{}
	stoppedCh chan struct{}
	running   bool
}

// NewMonitor creates a monitor for the given registry. now may be nil, in
// which case the wall clock is used. onEvent may be nil.
func NewMonitor(registry *Registry, config Config, now func() int64, onEvent func(Event)) *Monitor {
	if now == nil {
		now = func() int64 { return time.Now().UnixNano() }
	}
	return &Monitor{
		registry: registry,
		config:   config,
		now:      now,
		onEvent:  onEvent,
		reap:     util.NewDeadlineHeap(),
	}
}

// Start launches the periodic sweep. The sweep runs at the heartbeat
// interval, giving the status timeouts a resolution of one interval.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.stoppedCh = make(chan struct{})

	interval := time.Duration(m.config.HeartbeatIntervalMs) * time.Millisecond
	go m.loop(interval, m.stopCh, m.stoppedCh)
}

// Stop halts the periodic sweep and waits for it to finish
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stopCh, stoppedCh := m.stopCh, m.stoppedCh
	m.mu.Unlock()

	close(stopCh)
	<-stoppedCh
}

func (m *Monitor) loop(interval time.Duration, stopCh, stoppedCh chan struct{}) {
	defer close(stoppedCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			m.Sweep(m.now())
		}
	}
}

// Sweep ages all peer records relative to the given time. Exported so tests
// can drive the monitor without waiting for the ticker.
func (m *Monitor) Sweep(now int64) {
	suspectAfter := int64(m.config.SuspectTimeoutMs) * int64(time.Millisecond)
	deadAfter := int64(m.config.DeadTimeoutMs) * int64(time.Millisecond)
	retention := int64(m.config.DeadRetentionMs) * int64(time.Millisecond)

	for _, record := range m.registry.Peers() {
		silence := now - record.LastSeen

		var target PeerStatus
		switch {
		case silence >= deadAfter:
			target = StatusDead
		case silence >= suspectAfter:
			target = StatusSuspect
		default:
			target = StatusAlive
		}
		if target == record.Status {
			continue
		}

		updated, changed := m.registry.transition(record.ID, record.LastSeen, target)
		if !changed {
			continue // a message arrived concurrently, the peer stays as is
		}

		if target == StatusDead {
			m.mu.Lock()
			m.reap.Add(record.ID, now+retention)
			m.mu.Unlock()
			log.Warnf("peer %s (%s) is dead after %v of silence", record.ID, record.Addr, time.Duration(silence))
		} else {
			log.Infof("peer %s (%s) is now %s", record.ID, record.Addr, target)
		}

		if m.onEvent != nil {
			m.onEvent(Event{Peer: updated, Old: record.Status, New: target})
		}
	}

	m.reapDue(now)
}

// reapDue forgets peers whose dead retention has expired. A peer that
// revived since it was scheduled is skipped.
func (m *Monitor) reapDue(now int64) {
	var reaped []PeerRecord

	m.mu.Lock()
	for {
		id, ok := m.reap.PopDue(now)
		if !ok {
			break
		}

		record, known := m.registry.Get(id)
		if !known {
			continue
		}
		if record.Status != StatusDead {
			continue // revived in the meantime
		}

		m.registry.Remove(id)
		reaped = append(reaped, record)
	}
	m.mu.Unlock()

	for _, record := range reaped {
		log.Infof("forgot dead peer %s (%s)", record.ID, record.Addr)
		if m.onEvent != nil {
			m.onEvent(Event{Peer: record, Old: StatusDead, New: StatusDead})
		}
	}
}
