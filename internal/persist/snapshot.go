package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"magnate/internal/game"
)

// SnapshotVersion is bumped on additive schema changes. Older payloads
// load with missing fields defaulted; newer payloads are refused.
const SnapshotVersion = 1

var ErrSnapshotCorrupt = errors.New("snapshot corrupt")

// SnapshotV1 is the persisted form of the aggregate. The cached
// passive_income_rate_micros inside travels along for display parity but
// is recomputed on every load; it is never trusted as ground truth.
type SnapshotV1 struct {
	Version   int            `json:"version"`
	SavedAt   time.Time      `json:"saved_at"`
	Aggregate game.Aggregate `json:"aggregate"`
}

var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// EncodeSnapshot serializes and compresses one aggregate state.
func EncodeSnapshot(agg *game.Aggregate, savedAt time.Time) ([]byte, error) {
	snap := SnapshotV1{
		Version:   SnapshotVersion,
		SavedAt:   savedAt,
		Aggregate: *agg,
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	return zstdEncoder.EncodeAll(raw, nil), nil
}

// DecodeSnapshot reverses EncodeSnapshot. Unknown JSON fields are ignored
// and missing ones default, so additive migrations never fail a load.
func DecodeSnapshot(blob []byte) (SnapshotV1, error) {
	var snap SnapshotV1
	raw, err := zstdDecoder.DecodeAll(blob, nil)
	if err != nil {
		return snap, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}
	if err := json.Unmarshal(raw, &snap); err != nil {
		return snap, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}
	if snap.Version > SnapshotVersion {
		return snap, fmt.Errorf("%w: version %d is newer than supported %d", ErrSnapshotCorrupt, snap.Version, SnapshotVersion)
	}
	return snap, nil
}
