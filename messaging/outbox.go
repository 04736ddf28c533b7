package messaging

import (
	"log"
	"sync"
	"time"

	"floorpilot/config"
	"floorpilot/store"
)

const (
	drainBatchSize  = 50
	outboxRetention = 24 * time.Hour
)

// OutboxDrainer publishes pending outbox rows on a timer. Workflows
// write events to the outbox instead of the broker directly, so a
// broker outage never loses an event; this loop catches up once the
// connection is back.
type OutboxDrainer struct {
	db       *store.DB
	client   *Client
	cfg      *config.MessagingConfig
	stopChan chan struct{}
	wg       sync.WaitGroup

	lastPurge time.Time
}

func NewOutboxDrainer(db *store.DB, client *Client, cfg *config.MessagingConfig) *OutboxDrainer {
	return &OutboxDrainer{
		db:       db,
		client:   client,
		cfg:      cfg,
		stopChan: make(chan struct{}),
	}
}

func (d *OutboxDrainer) Start() {
	d.wg.Add(1)
	go d.drainLoop()
}

func (d *OutboxDrainer) Stop() {
	select {
	case <-d.stopChan:
	default:
		close(d.stopChan)
	}
	d.wg.Wait()
}

func (d *OutboxDrainer) drainLoop() {
	defer d.wg.Done()

	interval := d.cfg.OutboxDrainInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopChan:
			return
		case <-ticker.C:
			d.drain()
		}
	}
}

func (d *OutboxDrainer) drain() {
	if !d.client.IsConnected() {
		return
	}

	msgs, err := d.db.ListPendingOutbox(drainBatchSize)
	if err != nil {
		log.Printf("outbox: list pending: %v", err)
		return
	}

	for _, msg := range msgs {
		if err := d.client.Publish(msg.Topic, msg.Payload); err != nil {
			log.Printf("outbox: publish %s (id %d): %v", msg.MsgType, msg.ID, err)
			d.db.IncrementOutboxRetries(msg.ID)
			continue
		}
		if err := d.db.AckOutbox(msg.ID); err != nil {
			log.Printf("outbox: ack id %d: %v", msg.ID, err)
		}
	}

	d.maybePurge()
}

// maybePurge trims delivered rows once an hour so the table stays small
// on long-running installs.
func (d *OutboxDrainer) maybePurge() {
	if time.Since(d.lastPurge) < time.Hour {
		return
	}
	d.lastPurge = time.Now()
	n, err := d.db.PurgeSentOutbox(time.Now().Add(-outboxRetention))
	if err != nil {
		log.Printf("outbox: purge: %v", err)
		return
	}
	if n > 0 {
		log.Printf("outbox: purged %d delivered rows", n)
	}
}
