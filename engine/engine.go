package engine

import (
	"log"
	"time"

	"floorpilot/config"
	"floorpilot/device"
	"floorpilot/floors"
	"floorpilot/messaging"
	"floorpilot/shell"
	"floorpilot/store"
)

type LogFunc func(format string, args ...any)

// SnapshotFetcher pulls the raw live map payload for previews.
type SnapshotFetcher interface {
	GetMapSnapshot() ([]byte, error)
}

// PushFeed translates raw robot status payloads from the broker into
// the neutral status vocabulary.
type PushFeed interface {
	Update(payload []byte) device.Status
}

type Config struct {
	AppConfig  *config.Config
	ConfigPath string
	DB         *store.DB
	Device     device.Backend
	Source     device.StateSource
	Remote     floors.RemoteFS
	MsgClient  *messaging.Client
	Snapshot   SnapshotFetcher
	PushFeed   PushFeed
	Snapshots  *floors.SnapshotCache
	LogFunc    LogFunc
}

// Engine ties the floor manager, the status watcher, and the messaging
// client together and owns the event bus between them.
type Engine struct {
	cfg        *config.Config
	configPath string
	db         *store.DB
	dev        device.Backend
	source     device.StateSource
	remote     floors.RemoteFS
	msgClient  *messaging.Client
	snapshot   SnapshotFetcher
	pushFeed   PushFeed

	manager *floors.Manager
	watcher *device.Watcher
	Events  *EventBus

	commands map[string]CommandFunc

	logFn          LogFunc
	stopChan       chan struct{}
	robotConnected bool
	msgConnected   bool
}

func New(c Config) *Engine {
	logFn := c.LogFunc
	if logFn == nil {
		logFn = log.Printf
	}

	e := &Engine{
		cfg:        c.AppConfig,
		configPath: c.ConfigPath,
		db:         c.DB,
		dev:        c.Device,
		source:     c.Source,
		remote:     c.Remote,
		msgClient:  c.MsgClient,
		snapshot:   c.Snapshot,
		pushFeed:   c.PushFeed,
		Events:     NewEventBus(),
		logFn:      logFn,
		stopChan:   make(chan struct{}),
	}

	robotID := c.AppConfig.Robot.ID
	snapshots := c.Snapshots
	if snapshots == nil {
		snapshots = floors.NewSnapshotCache(nil, robotID)
	}

	registry := floors.NewRegistry(c.DB, robotID)
	e.manager = floors.NewManager(
		c.DB,
		registry,
		c.Remote,
		c.Device,
		&floorsEmitter{bus: e.Events},
		floors.NewPaths(c.AppConfig.Files),
		c.AppConfig.Workflow,
		robotID,
		snapshots,
	)
	e.watcher = device.NewWatcher(c.Source, &watcherEmitter{bus: e.Events}, c.AppConfig.Robot.PollInterval)

	e.registerCommands()
	return e
}

func (e *Engine) Start() {
	e.wireEventHandlers()

	// Robot status pushed over the broker beats polling on latency.
	// The watcher dedupes, so feeding it both paths is safe.
	if e.msgClient != nil && e.pushFeed != nil && e.cfg.Messaging.StatusTopic != "" {
		if err := e.msgClient.Subscribe(e.cfg.Messaging.StatusTopic, func(payload []byte) {
			e.watcher.Inject(e.pushFeed.Update(payload))
		}); err != nil {
			e.logFn("engine: subscribe %s: %v", e.cfg.Messaging.StatusTopic, err)
		}
	}

	e.watcher.Start()
	e.checkConnectionStatus()
	go e.connectionHealthLoop()

	e.logFn("engine: started")
}

func (e *Engine) Stop() {
	select {
	case e.stopChan <- struct{}{}:
	default:
	}
	e.watcher.Stop()
	e.logFn("engine: stopped")
}

// Accessors
func (e *Engine) DB() *store.DB             { return e.db }
func (e *Engine) AppConfig() *config.Config { return e.cfg }
func (e *Engine) ConfigPath() string        { return e.configPath }
func (e *Engine) Manager() *floors.Manager  { return e.manager }
func (e *Engine) Device() device.Backend    { return e.dev }
func (e *Engine) Source() device.StateSource {
	return e.source
}
func (e *Engine) MsgClient() *messaging.Client      { return e.msgClient }
func (e *Engine) Snapshots() *floors.SnapshotCache  { return e.manager.Snapshots() }

// ReconfigureRobot pushes the current robot config into the REST
// adapter, when the backend supports live reconfiguration.
func (e *Engine) ReconfigureRobot() {
	type reconfigurer interface {
		Reconfigure(baseURL string, timeout time.Duration)
	}
	if r, ok := e.dev.(reconfigurer); ok {
		r.Reconfigure(e.cfg.Robot.BaseURL, e.cfg.Robot.Timeout)
		e.logFn("engine: robot adapter reconfigured (%s)", e.cfg.Robot.BaseURL)
	}
}

// ReconfigureShell tears down the cached shell connection so the next
// remote operation dials with the current settings.
func (e *Engine) ReconfigureShell() {
	type reconfigurer interface {
		Reconfigure(cfg shell.Config)
	}
	if r, ok := e.remote.(reconfigurer); ok {
		s := e.cfg.Shell
		r.Reconfigure(shell.Config{
			Host:     s.Host,
			Port:     s.Port,
			User:     s.User,
			Password: s.Password,
			KeyFile:  s.KeyFile,
			Timeout:  s.Timeout,
		})
		e.logFn("engine: shell channel reconfigured (%s:%d)", s.Host, s.Port)
	}
}

func (e *Engine) checkConnectionStatus() {
	if e.source.IsReachable() {
		if !e.robotConnected {
			e.robotConnected = true
			e.Events.Emit(Event{Type: EventRobotConnected, Payload: ConnectionEvent{Detail: e.dev.Name() + " reachable"}})
		}
	} else {
		if e.robotConnected {
			e.robotConnected = false
			e.Events.Emit(Event{Type: EventRobotDisconnected, Payload: ConnectionEvent{Detail: e.dev.Name() + " unreachable"}})
		}
	}

	if e.msgClient != nil {
		if e.msgClient.IsConnected() {
			if !e.msgConnected {
				e.msgConnected = true
				e.Events.Emit(Event{Type: EventMessagingConnected, Payload: ConnectionEvent{Detail: "messaging connected"}})
			}
		} else {
			if e.msgConnected {
				e.msgConnected = false
				e.Events.Emit(Event{Type: EventMessagingDisconnected, Payload: ConnectionEvent{Detail: "messaging disconnected"}})
			}
		}
	}
}

func (e *Engine) connectionHealthLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.checkConnectionStatus()
		}
	}
}
