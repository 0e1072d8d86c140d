package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the name of the JSON configuration file looked up in the config dir.
const FileName = "olympus_console.cfg.json"

// ServerConfig holds the simulation server connection settings.
type ServerConfig struct {
	Address  string        `json:"address" mapstructure:"address"`
	Username string        `json:"username" mapstructure:"username"`
	Password string        `json:"password" mapstructure:"password"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
}

// SyncConfig holds the synchronization loop cadences.
type SyncConfig struct {
	UpdateInterval             time.Duration `json:"updateInterval" mapstructure:"updateInterval"`
	DisconnectedUpdateInterval time.Duration `json:"disconnectedUpdateInterval" mapstructure:"disconnectedUpdateInterval"`
	RefreshInterval            time.Duration `json:"refreshInterval" mapstructure:"refreshInterval"`
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// JournalConfig holds the session/command journal database settings.
// Driver is "sqlite" or "postgres".
type JournalConfig struct {
	Driver   string `json:"driver" mapstructure:"driver"`
	Path     string `json:"path" mapstructure:"path"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// InfluxConfig holds the performance time-series settings.
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// CommandsConfig selects how area commands reach the server.
// Transport is "http" or "websocket".
type CommandsConfig struct {
	Transport    string        `json:"transport" mapstructure:"transport"`
	WebsocketURL string        `json:"websocketUrl" mapstructure:"websocketUrl"`
	AckTimeout   time.Duration `json:"ackTimeout" mapstructure:"ackTimeout"`
	Mode         string        `json:"mode" mapstructure:"mode"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./olympuslogs")

	viper.SetDefault("server.address", "http://localhost:3001/olympus")
	viper.SetDefault("server.username", "")
	viper.SetDefault("server.password", "")
	viper.SetDefault("server.timeout", "5s")

	viper.SetDefault("sync.updateInterval", "250ms")
	viper.SetDefault("sync.disconnectedUpdateInterval", "1s")
	viper.SetDefault("sync.refreshInterval", "5s")

	viper.SetDefault("commands.transport", "http")
	viper.SetDefault("commands.websocketUrl", "")
	viper.SetDefault("commands.ackTimeout", "10s")
	viper.SetDefault("commands.mode", "Blue commander")

	viper.SetDefault("features.aic", false)
	viper.SetDefault("features.atc", false)
	viper.SetDefault("features.journal", true)
	viper.SetDefault("features.performance", false)

	viper.SetDefault("journal.driver", "sqlite")
	viper.SetDefault("journal.path", "./olympus_journal.db")
	viper.SetDefault("journal.host", "localhost")
	viper.SetDefault("journal.port", "5432")
	viper.SetDefault("journal.username", "postgres")
	viper.SetDefault("journal.password", "postgres")
	viper.SetDefault("journal.database", "olympus")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "olympus-metrics")
	viper.SetDefault("influx.bucket", "console_performance")

	viper.SetDefault("monitor.enabled", true)
	viper.SetDefault("monitor.interval", "5s")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "olympus-console")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetServerConfig returns the simulation server settings.
func GetServerConfig() ServerConfig {
	return ServerConfig{
		Address:  viper.GetString("server.address"),
		Username: viper.GetString("server.username"),
		Password: viper.GetString("server.password"),
		Timeout:  viper.GetDuration("server.timeout"),
	}
}

// GetSyncConfig returns the synchronization cadences.
func GetSyncConfig() SyncConfig {
	return SyncConfig{
		UpdateInterval:             viper.GetDuration("sync.updateInterval"),
		DisconnectedUpdateInterval: viper.GetDuration("sync.disconnectedUpdateInterval"),
		RefreshInterval:            viper.GetDuration("sync.refreshInterval"),
	}
}

// GetCommandsConfig returns the command transport settings.
func GetCommandsConfig() CommandsConfig {
	return CommandsConfig{
		Transport:    viper.GetString("commands.transport"),
		WebsocketURL: viper.GetString("commands.websocketUrl"),
		AckTimeout:   viper.GetDuration("commands.ackTimeout"),
		Mode:         viper.GetString("commands.mode"),
	}
}

// GetFeatures returns the raw feature switch table.
func GetFeatures() map[string]bool {
	out := make(map[string]bool)
	for _, key := range viper.AllKeys() {
		name, ok := strings.CutPrefix(key, "features.")
		if !ok || strings.Contains(name, ".") {
			continue
		}
		out[name] = viper.GetBool(key)
	}
	return out
}

// GetJournalConfig returns the journal database settings.
func GetJournalConfig() JournalConfig {
	return JournalConfig{
		Driver:   viper.GetString("journal.driver"),
		Path:     viper.GetString("journal.path"),
		Host:     viper.GetString("journal.host"),
		Port:     viper.GetString("journal.port"),
		Username: viper.GetString("journal.username"),
		Password: viper.GetString("journal.password"),
		Database: viper.GetString("journal.database"),
	}
}

// GetInfluxConfig returns the performance time-series settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}
