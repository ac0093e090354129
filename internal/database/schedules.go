package database

import (
	"database/sql"
	"fmt"
)

const scheduleColumns = `id, office_id, frequency, next_run_at, last_run_at, last_slot_at, is_active, created_at`

// InsertSchedule creates an active report schedule.
func (db *DB) InsertSchedule(officeID int64, frequency, nextRunAt string) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO report_schedules (office_id, frequency, next_run_at) VALUES (?, ?, ?)`,
		officeID, frequency, nextRunAt,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting schedule: %w", err)
	}
	return result.LastInsertId()
}

// GetSchedule returns a single schedule by ID.
func (db *DB) GetSchedule(scheduleID int64) (*ReportSchedule, error) {
	row := db.conn.QueryRow(`SELECT `+scheduleColumns+` FROM report_schedules WHERE id = ?`, scheduleID)
	s, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListSchedules returns all schedules ordered by next run.
func (db *DB) ListSchedules() ([]ReportSchedule, error) {
	return db.querySchedules(`SELECT ` + scheduleColumns + ` FROM report_schedules ORDER BY next_run_at, id`)
}

// GetDueSchedules returns active schedules whose next run is at or before now.
func (db *DB) GetDueSchedules(now string) ([]ReportSchedule, error) {
	return db.querySchedules(
		`SELECT `+scheduleColumns+` FROM report_schedules
		WHERE is_active = 1 AND next_run_at <= ? ORDER BY next_run_at, id`, now,
	)
}

// MarkScheduleRun records a completed run: when it ran, the slot it covered
// and the next due time.
func (db *DB) MarkScheduleRun(scheduleID int64, ranAt, slotAt, nextRunAt string) error {
	_, err := db.conn.Exec(
		`UPDATE report_schedules SET last_run_at = ?, last_slot_at = ?, next_run_at = ? WHERE id = ?`,
		ranAt, slotAt, nextRunAt, scheduleID,
	)
	return err
}

// SetScheduleActive enables or pauses a schedule.
func (db *DB) SetScheduleActive(scheduleID int64, active bool) error {
	v := 0
	if active {
		v = 1
	}
	_, err := db.conn.Exec(`UPDATE report_schedules SET is_active = ? WHERE id = ?`, v, scheduleID)
	return err
}

// DeleteSchedule removes a schedule. Returns false if it did not exist.
func (db *DB) DeleteSchedule(scheduleID int64) (bool, error) {
	result, err := db.conn.Exec(`DELETE FROM report_schedules WHERE id = ?`, scheduleID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (db *DB) querySchedules(query string, args ...any) ([]ReportSchedule, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []ReportSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *s)
	}
	return schedules, rows.Err()
}

func scanSchedule(s scanner) (*ReportSchedule, error) {
	var r ReportSchedule
	var active int
	if err := s.Scan(&r.ID, &r.OfficeID, &r.Frequency, &r.NextRunAt, &r.LastRunAt, &r.LastSlotAt, &active, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.IsActive = active != 0
	return &r, nil
}
