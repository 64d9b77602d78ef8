package persist

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"magnate/internal/game"
)

// DefaultSaveID keys the single local snapshot record.
const DefaultSaveID = "primary"

var ErrNoRemoteSave = errors.New("no remote save found")

// PushStatus classifies a remote push outcome. Transient failures are
// logged and forgotten; the next cadence tick is the retry.
type PushStatus int

const (
	PushOK PushStatus = iota
	PushTransientFailure
)

// Summary rides along with a remote push so the sync service can index
// leaderboards without decoding the payload.
type Summary struct {
	BalanceMicros  int64 `json:"balance_micros"`
	NetWorthMicros int64 `json:"net_worth_micros"`
	Level          int   `json:"level"`
}

// RemoteStore is the optional best-effort sync target. Implementations
// must bound their own network calls; the manager additionally wraps every
// push in a timeout context so a hung call can never stall the local
// snapshot cadence.
type RemoteStore interface {
	Push(ctx context.Context, payload []byte, summary Summary) (PushStatus, error)
	Fetch(ctx context.Context) (payload []byte, lastUpdated time.Time, found bool, err error)
}

// Manager owns the snapshot cadence: coalesced local writes on a fixed
// period, fire-and-forget remote pushes, and the explicit-restore
// reconciliation path.
type Manager struct {
	engine        *game.Engine
	store         *LocalStore
	remote        RemoteStore
	saveID        string
	cadence       time.Duration
	remoteTimeout time.Duration
	log           *slog.Logger

	lastSavedSeq uint64
}

func NewManager(engine *game.Engine, store *LocalStore, remote RemoteStore, cadence, remoteTimeout time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cadence <= 0 {
		cadence = 5 * time.Second
	}
	if remoteTimeout <= 0 {
		remoteTimeout = 10 * time.Second
	}
	return &Manager{
		engine:        engine,
		store:         store,
		remote:        remote,
		saveID:        DefaultSaveID,
		cadence:       cadence,
		remoteTimeout: remoteTimeout,
		log:           logger,
	}
}

// Bootstrap loads the local snapshot into the engine if one exists. A
// missing snapshot leaves the cold-default aggregate in place; a corrupt
// one does the same and logs the condition rather than failing the
// session. Balance floor-correction and rate recomputation happen inside
// Engine.Replace.
func (m *Manager) Bootstrap(ctx context.Context) error {
	payload, _, found, err := m.store.Get(ctx, m.saveID)
	if err != nil {
		return err
	}
	if !found {
		m.log.Info("no local snapshot, starting cold")
		m.lastSavedSeq = m.engine.MutationSeq()
		return nil
	}
	snap, err := DecodeSnapshot(payload)
	if err != nil {
		m.log.Error("local snapshot unreadable, starting cold", "err", err)
		m.lastSavedSeq = m.engine.MutationSeq()
		return nil
	}
	agg := snap.Aggregate
	m.engine.Replace(&agg)
	m.lastSavedSeq = m.engine.MutationSeq()
	m.log.Info("loaded local snapshot", "saved_at", snap.SavedAt)
	return nil
}

// Run drives the snapshot cadence until the context is cancelled, then
// flushes a final snapshot.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cadence)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := m.Flush(flushCtx); err != nil {
				m.log.Error("final snapshot failed", "err", err)
			}
			cancel()
			return
		case <-ticker.C:
			if err := m.SaveIfDirty(ctx); err != nil {
				m.log.Error("snapshot write failed", "err", err)
			}
		}
	}
}

// SaveIfDirty writes the latest state if any mutation committed since the
// previous write. Intermediate states between cadence ticks are never
// persisted individually; only the newest survives.
func (m *Manager) SaveIfDirty(ctx context.Context) error {
	seq := m.engine.MutationSeq()
	if seq == m.lastSavedSeq {
		return nil
	}
	if err := m.save(ctx); err != nil {
		return err
	}
	m.lastSavedSeq = seq
	return nil
}

// Flush writes unconditionally. Used on session teardown.
func (m *Manager) Flush(ctx context.Context) error {
	if err := m.save(ctx); err != nil {
		return err
	}
	m.lastSavedSeq = m.engine.MutationSeq()
	return nil
}

func (m *Manager) save(ctx context.Context) error {
	agg := m.engine.Snapshot()
	now := time.Now()
	payload, err := EncodeSnapshot(agg, now)
	if err != nil {
		return err
	}
	if err := m.store.Put(ctx, m.saveID, payload, now); err != nil {
		return err
	}
	if m.remote != nil {
		summary := Summary{
			BalanceMicros:  agg.BalanceMicros,
			NetWorthMicros: agg.NetWorthMicros(m.engine.Catalog()),
			Level:          agg.Level,
		}
		go m.pushRemote(payload, summary)
	}
	return nil
}

// pushRemote is fire-and-forget: a bounded timeout, a warn log on
// failure, and no retry loop. The next cadence tick pushes again anyway.
func (m *Manager) pushRemote(payload []byte, summary Summary) {
	ctx, cancel := context.WithTimeout(context.Background(), m.remoteTimeout)
	defer cancel()
	status, err := m.remote.Push(ctx, payload, summary)
	if err != nil || status != PushOK {
		m.log.Warn("remote sync failed", "err", err)
		return
	}
}

// Restore adopts the remote snapshot wholesale. It runs only on explicit
// player request; the engine never merges local and remote field by
// field. The remote copy's own recorded timestamp wins.
func (m *Manager) Restore(ctx context.Context) error {
	if m.remote == nil {
		return ErrNoRemoteSave
	}
	fetchCtx, cancel := context.WithTimeout(ctx, m.remoteTimeout)
	defer cancel()
	payload, lastUpdated, found, err := m.remote.Fetch(fetchCtx)
	if err != nil {
		return err
	}
	if !found || lastUpdated.IsZero() {
		return ErrNoRemoteSave
	}
	snap, err := DecodeSnapshot(payload)
	if err != nil {
		return err
	}
	agg := snap.Aggregate
	m.engine.Replace(&agg)
	if err := m.store.Put(ctx, m.saveID, payload, lastUpdated); err != nil {
		return err
	}
	m.lastSavedSeq = m.engine.MutationSeq()
	m.log.Info("restored remote snapshot", "last_updated", lastUpdated)
	return nil
}

// Reset clears the local snapshot and replaces the aggregate with the
// cold default.
func (m *Manager) Reset(ctx context.Context) error {
	if err := m.store.Delete(ctx, m.saveID); err != nil {
		return err
	}
	m.engine.ResetProgress()
	m.lastSavedSeq = m.engine.MutationSeq()
	return nil
}
