package checkpoint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/rclib/bookweaver/internal/catalog"
)

// ErrNoCheckpoint is returned by LoadLatest when no snapshot exists yet.
var ErrNoCheckpoint = errors.New("no checkpoint available")

const (
	snapshotContentType = "text/csv"
	latestMarker        = "LATEST"
)

// Manager versions snapshots under a common prefix. Each Save writes an
// immutable snapshot named by run ID and sequence, then updates a marker
// object pointing at it; LoadLatest follows the marker. Snapshots are never
// overwritten, so a crash mid-save leaves the previous marker intact.
type Manager struct {
	store  BlobStore
	prefix string
	runID  string
	seq    int
	logger *zap.Logger
}

// NewManager creates a Manager scoped to one run.
func NewManager(store BlobStore, prefix, runID string, logger *zap.Logger) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if strings.TrimSpace(runID) == "" {
		return nil, fmt.Errorf("run id is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:  store,
		prefix: strings.Trim(prefix, "/"),
		runID:  runID,
		logger: logger,
	}, nil
}

// Save writes one snapshot of the full record set and repoints the latest
// marker at it. Returns the snapshot URI.
func (m *Manager) Save(ctx context.Context, records []catalog.Record) (string, error) {
	data, err := encodeRecords(records)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	m.seq++
	name := m.snapshotPath(m.seq)
	uri, err := m.store.Put(ctx, name, snapshotContentType, bytes.NewReader(data))
	if err != nil {
		m.seq--
		return "", fmt.Errorf("put snapshot: %w", err)
	}
	if _, err := m.store.Put(ctx, m.markerPath(), "text/plain", strings.NewReader(name)); err != nil {
		return "", fmt.Errorf("update latest marker: %w", err)
	}

	counts := catalog.Count(records)
	m.logger.Info("checkpoint saved",
		zap.String("uri", uri),
		zap.Int("sequence", m.seq),
		zap.Int("records", counts.Total),
		zap.Int("resolved", counts.Resolved),
		zap.Int("not_found", counts.NotFound),
	)
	return uri, nil
}

// LoadLatest reads the snapshot the marker points at. ErrNoCheckpoint means
// a fresh run; any other error means the store is unhealthy.
func (m *Manager) LoadLatest(ctx context.Context) ([]catalog.Record, error) {
	marker, err := m.store.Get(ctx, m.markerPath())
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNoCheckpoint
	}
	if err != nil {
		return nil, fmt.Errorf("read latest marker: %w", err)
	}
	name, err := io.ReadAll(marker)
	closeErr := marker.Close()
	if err != nil {
		return nil, fmt.Errorf("read latest marker: %w", err)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("close latest marker: %w", closeErr)
	}

	snap, err := m.store.Get(ctx, strings.TrimSpace(string(name)))
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("marker points at missing snapshot %q", strings.TrimSpace(string(name)))
	}
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer func() {
		if cerr := snap.Close(); cerr != nil {
			m.logger.Warn("close snapshot reader", zap.Error(cerr))
		}
	}()

	records, err := decodeRecords(snap)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	m.logger.Info("checkpoint loaded", zap.Int("records", len(records)))
	return records, nil
}

func (m *Manager) snapshotPath(seq int) string {
	return path.Join(m.prefix, m.runID, fmt.Sprintf("%06d.csv", seq))
}

func (m *Manager) markerPath() string {
	return path.Join(m.prefix, latestMarker)
}
