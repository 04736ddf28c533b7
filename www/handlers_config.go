package www

import (
	"encoding/json"
	"log"
	"net/http"
	"time"
)

func (h *Handlers) apiGetConfig(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, h.engine.AppConfig())
}

// apiConfigSave updates one config section and persists the file. Robot
// and shell changes apply immediately; messaging and redis changes take
// effect on the next restart.
func (h *Handlers) apiConfigSave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Section string          `json:"section"`
		Values  json.RawMessage `json:"values"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}

	cfg := h.engine.AppConfig()

	switch req.Section {
	case "robot":
		var v struct {
			BaseURL      string `json:"base_url"`
			Timeout      string `json:"timeout"`
			PollInterval string `json:"poll_interval"`
			PushTTL      string `json:"push_ttl"`
		}
		if err := json.Unmarshal(req.Values, &v); err != nil {
			h.jsonError(w, "invalid values", http.StatusBadRequest)
			return
		}
		if v.BaseURL != "" {
			cfg.Robot.BaseURL = v.BaseURL
		}
		if d, err := time.ParseDuration(v.Timeout); err == nil {
			cfg.Robot.Timeout = d
		}
		if d, err := time.ParseDuration(v.PollInterval); err == nil {
			cfg.Robot.PollInterval = d
		}
		if d, err := time.ParseDuration(v.PushTTL); err == nil {
			cfg.Robot.PushTTL = d
		}
	case "shell":
		var v struct {
			Host     string `json:"host"`
			Port     int    `json:"port"`
			User     string `json:"user"`
			Password string `json:"password"`
			KeyFile  string `json:"key_file"`
		}
		if err := json.Unmarshal(req.Values, &v); err != nil {
			h.jsonError(w, "invalid values", http.StatusBadRequest)
			return
		}
		if v.Host != "" {
			cfg.Shell.Host = v.Host
		}
		if v.Port != 0 {
			cfg.Shell.Port = v.Port
		}
		if v.User != "" {
			cfg.Shell.User = v.User
		}
		cfg.Shell.Password = v.Password
		cfg.Shell.KeyFile = v.KeyFile
	case "workflow":
		var v struct {
			SettleDelay         string `json:"settle_delay"`
			RebootMaxWait       string `json:"reboot_max_wait"`
			AutoSaveTimeout     string `json:"auto_save_timeout"`
			SegmentTriggerAfter string `json:"segment_trigger_after"`
		}
		if err := json.Unmarshal(req.Values, &v); err != nil {
			h.jsonError(w, "invalid values", http.StatusBadRequest)
			return
		}
		if d, err := time.ParseDuration(v.SettleDelay); err == nil {
			cfg.Workflow.SettleDelay = d
		}
		if d, err := time.ParseDuration(v.RebootMaxWait); err == nil {
			cfg.Workflow.RebootMaxWait = d
		}
		if d, err := time.ParseDuration(v.AutoSaveTimeout); err == nil {
			cfg.Workflow.AutoSaveTimeout = d
		}
		if d, err := time.ParseDuration(v.SegmentTriggerAfter); err == nil {
			cfg.Workflow.SegmentTriggerAfter = d
		}
	case "messaging":
		var v struct {
			Backend     string   `json:"backend"`
			MQTTBroker  string   `json:"mqtt_broker"`
			MQTTPort    int      `json:"mqtt_port"`
			Brokers     []string `json:"kafka_brokers"`
			StatusTopic string   `json:"status_topic"`
			EventsTopic string   `json:"events_topic"`
		}
		if err := json.Unmarshal(req.Values, &v); err != nil {
			h.jsonError(w, "invalid values", http.StatusBadRequest)
			return
		}
		if v.Backend != "" {
			cfg.Messaging.Backend = v.Backend
		}
		if v.MQTTBroker != "" {
			cfg.Messaging.MQTT.Broker = v.MQTTBroker
		}
		if v.MQTTPort != 0 {
			cfg.Messaging.MQTT.Port = v.MQTTPort
		}
		if v.Brokers != nil {
			cfg.Messaging.Kafka.Brokers = v.Brokers
		}
		if v.StatusTopic != "" {
			cfg.Messaging.StatusTopic = v.StatusTopic
		}
		if v.EventsTopic != "" {
			cfg.Messaging.EventsTopic = v.EventsTopic
		}
	case "redis":
		var v struct {
			Address  string `json:"address"`
			Password string `json:"password"`
			DB       int    `json:"db"`
		}
		if err := json.Unmarshal(req.Values, &v); err != nil {
			h.jsonError(w, "invalid values", http.StatusBadRequest)
			return
		}
		cfg.Redis.Address = v.Address
		cfg.Redis.Password = v.Password
		cfg.Redis.DB = v.DB
	default:
		h.jsonError(w, "unknown section", http.StatusBadRequest)
		return
	}

	if err := cfg.Save(h.engine.ConfigPath()); err != nil {
		log.Printf("config: save error: %v", err)
		h.jsonError(w, "failed to save: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Hot-reload the affected subsystem
	switch req.Section {
	case "robot":
		h.engine.ReconfigureRobot()
	case "shell":
		h.engine.ReconfigureShell()
	}

	log.Printf("config: %s section saved", req.Section)
	h.jsonOK(w, map[string]string{"status": "ok", "section": req.Section})
}
