package journal

import (
	"time"

	"gorm.io/datatypes"
)

// Session event kinds.
const (
	EventBaseline = "baseline"
	EventChanged  = "changed"
)

// SessionEvent records a session hash observation that mattered: the first
// baseline or a detected change.
type SessionEvent struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time" gorm:"NOT NULL;index:idx_session_event_time"`
	Kind      string    `json:"kind" gorm:"size:16;NOT NULL"`
	Baseline  string    `json:"baseline" gorm:"size:128"`
	Candidate string    `json:"candidate" gorm:"size:128"`
}

func (*SessionEvent) TableName() string {
	return "session_events"
}

// CommandRecord records an area command issued by the operator and its outcome.
type CommandRecord struct {
	ID          uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time        time.Time      `json:"time" gorm:"NOT NULL;index:idx_command_time"`
	Type        string         `json:"type" gorm:"size:64;NOT NULL"`
	AreaID      uint64         `json:"areaId" gorm:"index:idx_command_area"`
	Coalition   string         `json:"coalition" gorm:"size:16"`
	CommandMode string         `json:"commandMode" gorm:"size:32"`
	Payload     datatypes.JSON `json:"payload"`
	Error       string         `json:"error" gorm:"size:512"`
}

func (*CommandRecord) TableName() string {
	return "command_records"
}

// Models lists every table the journal owns.
var Models = []any{
	&SessionEvent{},
	&CommandRecord{},
}
