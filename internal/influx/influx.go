// Package influx records synchronization cycle timings as InfluxDB points.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"

	"github.com/M-Chimiste/DCSOlympus/internal/config"
)

// MeasurementSyncCycle is the measurement name for synchronization cycle timings.
const MeasurementSyncCycle = "sync_cycle"

const retention = 30 * 24 * time.Hour

// ErrNoSink is returned by WritePoint before Connect picked a destination.
var ErrNoSink = errors.New("no influx writer or backup file")

// Manager writes points to InfluxDB, or to a gzip line-protocol file when the
// server is unreachable.
type Manager struct {
	cfg        config.InfluxConfig
	log        zerolog.Logger
	backupPath string

	mu      sync.Mutex
	client  influxdb2.Client
	api     influxdb2_api.WriteAPI
	backup  *gzip.Writer
	file    io.Closer
	dropped int
}

func NewManager(cfg config.InfluxConfig, log zerolog.Logger, backupPath string) *Manager {
	return &Manager{cfg: cfg, log: log, backupPath: backupPath}
}

// Connect pings the server and prepares org, bucket and write API. A failed
// ping switches to the backup file and is not an error.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return errors.New("influx.enabled is false")
	}

	url := fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port)
	client := influxdb2.NewClientWithOptions(url, m.cfg.Token,
		influxdb2.DefaultOptions().SetBatchSize(500).SetFlushInterval(1000))

	if ok, err := client.Ping(ctx); err != nil || !ok {
		client.Close()
		m.log.Warn().Err(err).Str("url", url).Str("backupPath", m.backupPath).
			Msg("InfluxDB unreachable, writing points to backup file")
		return m.openBackup()
	}

	if err := m.ensureBucket(ctx, client); err != nil {
		client.Close()
		return err
	}

	api := client.WriteAPI(m.cfg.Org, m.cfg.Bucket)
	go m.drainErrors(api.Errors())

	m.mu.Lock()
	m.client, m.api = client, api
	m.mu.Unlock()
	m.log.Info().Str("url", url).Str("bucket", m.cfg.Bucket).Msg("InfluxDB writer ready")
	return nil
}

func (m *Manager) openBackup() error {
	f, err := os.OpenFile(m.backupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open influx backup %s: %w", m.backupPath, err)
	}
	m.mu.Lock()
	m.file = f
	m.backup = gzip.NewWriter(f)
	m.mu.Unlock()
	return nil
}

func (m *Manager) ensureBucket(ctx context.Context, client influxdb2.Client) error {
	orgs := client.OrganizationsAPI()
	org, err := orgs.FindOrganizationByName(ctx, m.cfg.Org)
	if err != nil {
		m.log.Info().Str("org", m.cfg.Org).Msg("Creating organization")
		if org, err = orgs.CreateOrganizationWithName(ctx, m.cfg.Org); err != nil {
			return fmt.Errorf("create org %s: %w", m.cfg.Org, err)
		}
	}

	buckets := client.BucketsAPI()
	if _, err := buckets.FindBucketByName(ctx, m.cfg.Bucket); err == nil {
		return nil
	}
	m.log.Info().Str("bucket", m.cfg.Bucket).Msg("Creating bucket")
	expire := domain.RetentionRuleTypeExpire
	rule := domain.RetentionRule{Type: &expire, EverySeconds: int64(retention.Seconds())}
	if _, err := buckets.CreateBucketWithName(ctx, org, m.cfg.Bucket, rule); err != nil {
		return fmt.Errorf("create bucket %s: %w", m.cfg.Bucket, err)
	}
	return nil
}

func (m *Manager) drainErrors(errs <-chan error) {
	for err := range errs {
		m.log.Error().Err(err).Str("bucket", m.cfg.Bucket).Msg("InfluxDB write failed")
	}
}

// Online reports whether points go to the server rather than the backup file.
func (m *Manager) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.api != nil
}

// WritePoint queues p on the write API or appends it to the backup file.
func (m *Manager) WritePoint(p *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.api != nil:
		m.api.WritePoint(p)
		return nil
	case m.backup != nil:
		if _, err := io.WriteString(m.backup, influxdb2_write.PointToLineProtocol(p, time.Nanosecond)); err != nil {
			return fmt.Errorf("write influx backup: %w", err)
		}
		return nil
	default:
		m.dropped++
		return ErrNoSink
	}
}

// RecordCycle writes one synchronization cycle timing.
func (m *Manager) RecordCycle(cycle string, duration time.Duration, applied bool) {
	if err := m.WritePoint(NewCyclePoint(cycle, duration, applied, time.Now())); err != nil {
		m.log.Debug().Err(err).Str("cycle", cycle).Msg("Dropped cycle timing")
	}
}

// Close flushes pending writes and releases the client and backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.api != nil {
		m.api.Flush()
		m.api = nil
	}
	if m.client != nil {
		m.client.Close()
		m.client = nil
	}
	var err error
	if m.backup != nil {
		err = m.backup.Close()
		m.backup = nil
	}
	if m.file != nil {
		err = errors.Join(err, m.file.Close())
		m.file = nil
	}
	return err
}

// NewCyclePoint builds the point for one cycle timing.
func NewCyclePoint(cycle string, duration time.Duration, applied bool, ts time.Time) *influxdb2_write.Point {
	return influxdb2.NewPoint(
		MeasurementSyncCycle,
		map[string]string{"cycle": cycle},
		map[string]any{
			"duration_ms": float64(duration) / float64(time.Millisecond),
			"applied":     applied,
		},
		ts,
	)
}
