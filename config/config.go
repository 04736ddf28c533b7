package config

import (
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	mu sync.RWMutex `yaml:"-"`

	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Robot     RobotConfig     `yaml:"robot"`
	Shell     ShellConfig     `yaml:"shell"`
	Files     FilesConfig     `yaml:"files"`
	Workflow  WorkflowConfig  `yaml:"workflow"`
	Web       WebConfig       `yaml:"web"`
	Messaging MessagingConfig `yaml:"messaging"`
}

type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// RobotConfig addresses the vacuum's REST control surface.
type RobotConfig struct {
	ID           string        `yaml:"id"`
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
	// PushTTL is how long the last MQTT status report counts as live
	// before status reads fall back to REST polling.
	PushTTL time.Duration `yaml:"push_ttl"`
}

// ShellConfig addresses the robot's root shell.
type ShellConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	User     string        `yaml:"user"`
	Password string        `yaml:"password"`
	KeyFile  string        `yaml:"key_file"`
	Timeout  time.Duration `yaml:"timeout"`
}

// FilesConfig locates the firmware's map files on the robot filesystem.
// Defaults match Roborock-class firmware; other models override here
// rather than in code.
type FilesConfig struct {
	LiveDir         string   `yaml:"live_dir"`
	BackupRoot      string   `yaml:"backup_root"`
	PrimaryMap      string   `yaml:"primary_map"`
	ChargerPos      string   `yaml:"charger_pos"`
	PersistData     []string `yaml:"persist_data"`
	ConflictFiles   []string `yaml:"conflict_files"`
	AltPrimaryNames []string `yaml:"alt_primary_names"`
	MultiMapSlots   []string `yaml:"multi_map_slots"`
	FirmwareConfig  string   `yaml:"firmware_config"`
	RecoveryFlagKey string   `yaml:"recovery_flag_key"`
	SegmentFlagKey  string   `yaml:"segment_flag_key"`
}

// WorkflowConfig bounds the polling loops and settle delays used by the
// floor switch and new-floor mapping workflows.
type WorkflowConfig struct {
	SettleDelay         time.Duration `yaml:"settle_delay"`
	RebootPollInterval  time.Duration `yaml:"reboot_poll_interval"`
	RebootMaxWait       time.Duration `yaml:"reboot_max_wait"`
	SegmentPollInterval time.Duration `yaml:"segment_poll_interval"`
	SegmentTriggerAfter time.Duration `yaml:"segment_trigger_after"`
	AutoSaveTimeout     time.Duration `yaml:"auto_save_timeout"`
}

type WebConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	SessionSecret string `yaml:"session_secret"`
}

type MessagingConfig struct {
	Backend             string        `yaml:"backend"` // "mqtt" or "kafka"
	MQTT                MQTTConfig    `yaml:"mqtt"`
	Kafka               KafkaConfig   `yaml:"kafka"`
	StatusTopic         string        `yaml:"status_topic"`
	EventsTopic         string        `yaml:"events_topic"`
	OutboxDrainInterval time.Duration `yaml:"outbox_drain_interval"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	GroupID string   `yaml:"group_id"`
}

func Defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{Path: "floorpilot.db"},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "floorpilot",
				User:     "floorpilot",
				Password: "",
				SSLMode:  "disable",
			},
		},
		Redis: RedisConfig{
			Address:  "localhost:6379",
			Password: "",
			DB:       0,
		},
		Robot: RobotConfig{
			ID:           "vacuum",
			BaseURL:      "http://192.168.1.42",
			Timeout:      10 * time.Second,
			PollInterval: 5 * time.Second,
			PushTTL:      30 * time.Second,
		},
		Shell: ShellConfig{
			Host:    "192.168.1.42",
			Port:    22,
			User:    "root",
			Timeout: 15 * time.Second,
		},
		Files: FilesConfig{
			LiveDir:         "/mnt/data/rockrobo",
			BackupRoot:      "/mnt/data/floorpilot/floors",
			PrimaryMap:      "last_map",
			ChargerPos:      "ChargerPos.data",
			PersistData:     []string{"PersistData_1.data", "PersistData_2.data"},
			ConflictFiles:   []string{"DivideMap.data", "StartPos.data"},
			AltPrimaryNames: []string{"last_map.bak", "last_map.old"},
			MultiMapSlots:   []string{"user_map0", "user_map1", "user_map2", "user_map3"},
			FirmwareConfig:  "/mnt/data/rockrobo/RoboController.cfg",
			RecoveryFlagKey: "need_recover_map",
			SegmentFlagKey:  "need_segment",
		},
		Workflow: WorkflowConfig{
			SettleDelay:         5 * time.Second,
			RebootPollInterval:  10 * time.Second,
			RebootMaxWait:       5 * time.Minute,
			SegmentPollInterval: 10 * time.Second,
			SegmentTriggerAfter: 2 * time.Minute,
			AutoSaveTimeout:     10 * time.Minute,
		},
		Web: WebConfig{
			Host:          "0.0.0.0",
			Port:          8086,
			SessionSecret: "change-me-in-production",
		},
		Messaging: MessagingConfig{
			Backend: "mqtt",
			MQTT: MQTTConfig{
				Broker:   "localhost",
				Port:     1883,
				ClientID: "floorpilot",
			},
			Kafka: KafkaConfig{
				Brokers: []string{"localhost:9092"},
				GroupID: "floorpilot",
			},
			StatusTopic:         "valetudo/vacuum/StatusStateAttribute/status",
			EventsTopic:         "floorpilot/events",
			OutboxDrainInterval: 5 * time.Second,
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Save(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Lock()   { c.mu.Lock() }
func (c *Config) Unlock() { c.mu.Unlock() }
