package store

import (
	"fmt"
	"time"
)

// maxOutboxRetries is the delivery attempt cap. Rows past it stay in
// the table for inspection but are no longer offered to the drainer.
const maxOutboxRetries = 20

type OutboxMessage struct {
	ID        int64
	Topic     string
	Payload   []byte
	MsgType   string
	RobotID   string
	Retries   int
	CreatedAt time.Time
	SentAt    *time.Time
}

func (db *DB) EnqueueOutbox(topic string, payload []byte, msgType, robotID string) error {
	_, err := db.Exec(db.Q(`INSERT INTO outbox (topic, payload, msg_type, robot_id) VALUES (?, ?, ?, ?)`),
		topic, payload, msgType, robotID)
	if err != nil {
		return fmt.Errorf("enqueue outbox: %w", err)
	}
	return nil
}

// ListPendingOutbox returns undelivered messages oldest first, skipping
// rows that exhausted their retry budget.
func (db *DB) ListPendingOutbox(limit int) ([]*OutboxMessage, error) {
	rows, err := db.Query(db.Q(`SELECT id, topic, payload, msg_type, robot_id, retries, created_at FROM outbox WHERE sent_at IS NULL AND retries < ? ORDER BY id LIMIT ?`),
		maxOutboxRetries, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []*OutboxMessage
	for rows.Next() {
		var m OutboxMessage
		var createdAt any
		if err := rows.Scan(&m.ID, &m.Topic, &m.Payload, &m.MsgType, &m.RobotID, &m.Retries, &createdAt); err != nil {
			return nil, err
		}
		m.CreatedAt = parseTime(createdAt)
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

func (db *DB) AckOutbox(id int64) error {
	_, err := db.Exec(db.Q(`UPDATE outbox SET sent_at=datetime('now','localtime') WHERE id=?`), id)
	return err
}

func (db *DB) IncrementOutboxRetries(id int64) error {
	_, err := db.Exec(db.Q(`UPDATE outbox SET retries=retries+1 WHERE id=?`), id)
	return err
}

// PurgeSentOutbox deletes delivered rows older than the cutoff and
// returns how many were removed.
func (db *DB) PurgeSentOutbox(before time.Time) (int64, error) {
	res, err := db.Exec(db.Q(`DELETE FROM outbox WHERE sent_at IS NOT NULL AND created_at < ?`),
		before.Format("2006-01-02 15:04:05"))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
