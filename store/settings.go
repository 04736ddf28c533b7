package store

import (
	"database/sql"
	"errors"
	"time"
)

// Setting is one opaque structured value scoped to a robot. The floor
// registry and its ephemeral extensions are each stored as a single
// setting and rewritten whole on every mutation.
type Setting struct {
	RobotID   string
	Key       string
	Value     []byte
	UpdatedAt time.Time
}

// GetSetting returns the stored value, or nil if the key has never been set.
func (db *DB) GetSetting(robotID, key string) ([]byte, error) {
	var value []byte
	err := db.QueryRow(db.Q(`SELECT value FROM settings WHERE robot_id=? AND key=?`), robotID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// SetSetting upserts the value for a robot-scoped key.
func (db *DB) SetSetting(robotID, key string, value []byte) error {
	_, err := db.Exec(db.Q(`
		INSERT INTO settings (robot_id, key, value, updated_at)
		VALUES (?, ?, ?, datetime('now','localtime'))
		ON CONFLICT(robot_id, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`), robotID, key, value)
	return err
}

// DeleteSetting removes a robot-scoped key. Missing keys are not an error.
func (db *DB) DeleteSetting(robotID, key string) error {
	_, err := db.Exec(db.Q(`DELETE FROM settings WHERE robot_id=? AND key=?`), robotID, key)
	return err
}

// ListSettings returns all keys stored for a robot.
func (db *DB) ListSettings(robotID string) ([]Setting, error) {
	rows, err := db.Query(db.Q(`SELECT robot_id, key, value, updated_at FROM settings WHERE robot_id=? ORDER BY key`), robotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var settings []Setting
	for rows.Next() {
		var s Setting
		var updatedAt any
		if err := rows.Scan(&s.RobotID, &s.Key, &s.Value, &updatedAt); err != nil {
			return nil, err
		}
		s.UpdatedAt = parseTime(updatedAt)
		settings = append(settings, s)
	}
	return settings, rows.Err()
}
