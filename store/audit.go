package store

import (
	"database/sql"
	"time"
)

type AuditEntry struct {
	ID         int64     `json:"id"`
	RobotID    string    `json:"robot_id"`
	RunID      string    `json:"run_id"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Action     string    `json:"action"`
	Detail     string    `json:"detail"`
	Actor      string    `json:"actor"`
	CreatedAt  time.Time `json:"created_at"`
}

func (db *DB) AppendAudit(robotID, runID, entityType, entityID, action, detail, actor string) error {
	_, err := db.Exec(db.Q(`INSERT INTO audit_log (robot_id, run_id, entity_type, entity_id, action, detail, actor) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		robotID, runID, entityType, entityID, action, detail, actor)
	return err
}

func (db *DB) ListAuditLog(limit int) ([]*AuditEntry, error) {
	rows, err := db.Query(db.Q(`SELECT id, robot_id, run_id, entity_type, entity_id, action, detail, actor, created_at FROM audit_log ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditRows(rows)
}

func (db *DB) ListEntityAudit(entityType, entityID string) ([]*AuditEntry, error) {
	rows, err := db.Query(db.Q(`SELECT id, robot_id, run_id, entity_type, entity_id, action, detail, actor, created_at FROM audit_log WHERE entity_type=? AND entity_id=? ORDER BY id DESC`), entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditRows(rows)
}

func (db *DB) ListRunAudit(runID string) ([]*AuditEntry, error) {
	rows, err := db.Query(db.Q(`SELECT id, robot_id, run_id, entity_type, entity_id, action, detail, actor, created_at FROM audit_log WHERE run_id=? ORDER BY id`), runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditRows(rows)
}

func scanAuditRows(rows *sql.Rows) ([]*AuditEntry, error) {
	var entries []*AuditEntry
	for rows.Next() {
		var e AuditEntry
		var createdAt any
		if err := rows.Scan(&e.ID, &e.RobotID, &e.RunID, &e.EntityType, &e.EntityID, &e.Action, &e.Detail, &e.Actor, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
