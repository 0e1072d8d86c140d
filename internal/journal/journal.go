// Package journal persists session hash changes and issued area commands.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/M-Chimiste/DCSOlympus/internal/config"
	"github.com/M-Chimiste/DCSOlympus/pkg/core"
)

// Journal writes session events and command records to a gorm database.
type Journal struct {
	db     *gorm.DB
	now    func() time.Time
	Logger zerolog.Logger
}

// Open connects to the configured database and migrates the journal tables.
// Driver "postgres" uses the host settings; anything else opens SQLite at Path,
// or in memory when Path is empty.
func Open(cfg config.JournalConfig, log zerolog.Logger) (*Journal, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		db, err = openSqlite(cfg.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s journal: %w", cfg.Driver, err)
	}

	j := New(db, log)
	if err := j.Setup(); err != nil {
		return nil, err
	}
	return j, nil
}

// New wraps an open database. Call Setup before use.
func New(db *gorm.DB, log zerolog.Logger) *Journal {
	return &Journal{db: db, now: time.Now, Logger: log}
}

func openPostgres(cfg config.JournalConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
		cfg.Database,
	)

	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
}

func openSqlite(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if path == "" {
		// Every pooled connection would otherwise get its own empty database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sql interface: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %s", err)
		}
	}
	return db, nil
}

// Setup migrates the journal tables.
func (j *Journal) Setup() error {
	j.Logger.Info().Str("dialect", j.db.Dialector.Name()).Msg("Migrating journal schema")
	if err := j.db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to migrate journal schema: %w", err)
	}
	return nil
}

// BaselineCaptured records the first session hash seen.
func (j *Journal) BaselineCaptured(hash core.SessionHash) {
	j.writeSessionEvent(&SessionEvent{Kind: EventBaseline, Baseline: string(hash)})
}

// SessionChanged records a hash mismatch that forced a reload.
func (j *Journal) SessionChanged(baseline, candidate core.SessionHash) {
	j.writeSessionEvent(&SessionEvent{Kind: EventChanged, Baseline: string(baseline), Candidate: string(candidate)})
}

func (j *Journal) writeSessionEvent(ev *SessionEvent) {
	ev.Time = j.now()
	if err := j.db.Create(ev).Error; err != nil {
		j.Logger.Error().Err(err).Str("kind", ev.Kind).Msg("Failed to journal session event")
		return
	}
	j.Logger.Debug().Str("kind", ev.Kind).Str("baseline", ev.Baseline).Str("candidate", ev.Candidate).Msg("Session event journaled")
}

// Command describes an issued command for the journal.
type Command struct {
	Type        string
	AreaID      uint64
	Coalition   core.Coalition
	CommandMode core.CommandMode
	Payload     any
	Err         error
}

// RecordCommand writes one command record.
func (j *Journal) RecordCommand(ctx context.Context, cmd Command) error {
	payload, err := json.Marshal(cmd.Payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", cmd.Type, err)
	}

	rec := &CommandRecord{
		Time:        j.now(),
		Type:        cmd.Type,
		AreaID:      cmd.AreaID,
		Coalition:   string(cmd.Coalition),
		CommandMode: string(cmd.CommandMode),
		Payload:     datatypes.JSON(payload),
	}
	if cmd.Err != nil {
		rec.Error = cmd.Err.Error()
	}

	if err := j.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("journal %s command: %w", cmd.Type, err)
	}
	return nil
}

// SessionEvents returns session events oldest first.
func (j *Journal) SessionEvents(ctx context.Context) ([]SessionEvent, error) {
	var out []SessionEvent
	err := j.db.WithContext(ctx).Order("id asc").Find(&out).Error
	return out, err
}

// Commands returns command records oldest first, optionally limited to one area.
func (j *Journal) Commands(ctx context.Context, areaID uint64) ([]CommandRecord, error) {
	var out []CommandRecord
	q := j.db.WithContext(ctx).Order("id asc")
	if areaID != 0 {
		q = q.Where("area_id = ?", areaID)
	}
	err := q.Find(&out).Error
	return out, err
}

// Close releases the underlying connection.
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	return sqlDB.Close()
}
