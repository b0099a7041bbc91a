package db

import (
	"fmt"

	"gorm.io/gorm"
)

// NextSequence advances the named counter inside tx and returns the new
// value. The UPDATE takes a row lock, so concurrent writers are serialized
// and values commit in the order they were handed out.
func NextSequence(tx *gorm.DB, name string) (int64, error) {
	res := tx.Exec("UPDATE counters SET value = value + 1 WHERE name = ?", name)
	if res.Error != nil {
		return 0, fmt.Errorf("advance counter %s: %w", name, res.Error)
	}
	if res.RowsAffected == 0 {
		if err := tx.Exec("INSERT INTO counters (name, value) VALUES (?, 1)", name).Error; err != nil {
			return 0, fmt.Errorf("seed counter %s: %w", name, err)
		}
		return 1, nil
	}
	return CurrentSequence(tx, name)
}

// CurrentSequence reads the named counter without advancing it. A missing
// counter reads as zero.
func CurrentSequence(conn *gorm.DB, name string) (int64, error) {
	var values []int64
	if err := conn.Raw("SELECT value FROM counters WHERE name = ?", name).Scan(&values).Error; err != nil {
		return 0, fmt.Errorf("read counter %s: %w", name, err)
	}
	if len(values) == 0 {
		return 0, nil
	}
	return values[0], nil
}
