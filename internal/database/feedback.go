package database

import (
	"database/sql"
	"fmt"
)

const feedbackColumns = `f.id, f.reference, f.office_id, f.rating, f.comment, f.created_at`

// InsertFeedback stores a submission. A nil createdAt uses the current time.
func (db *DB) InsertFeedback(reference string, officeID int64, rating *int, comment string, createdAt *string) (int64, error) {
	var (
		result sql.Result
		err    error
	)
	if createdAt != nil {
		result, err = db.conn.Exec(
			`INSERT INTO feedback (reference, office_id, rating, comment, created_at) VALUES (?, ?, ?, ?, ?)`,
			reference, officeID, rating, comment, *createdAt,
		)
	} else {
		result, err = db.conn.Exec(
			`INSERT INTO feedback (reference, office_id, rating, comment) VALUES (?, ?, ?, ?)`,
			reference, officeID, rating, comment,
		)
	}
	if err != nil {
		return 0, fmt.Errorf("inserting feedback: %w", err)
	}
	return result.LastInsertId()
}

// GetFeedbackByReference looks up a submission by its citizen-facing reference.
func (db *DB) GetFeedbackByReference(reference string) (*Feedback, error) {
	row := db.conn.QueryRow(`SELECT `+feedbackColumns+` FROM feedback f WHERE f.reference = ?`, reference)
	var f Feedback
	if err := row.Scan(&f.ID, &f.Reference, &f.OfficeID, &f.Rating, &f.Comment, &f.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

// GetUnclassifiedFeedback returns feedback rows without a classification, oldest first.
func (db *DB) GetUnclassifiedFeedback() ([]Feedback, error) {
	rows, err := db.conn.Query(
		`SELECT ` + feedbackColumns + `
		FROM feedback f LEFT JOIN classifications c ON f.id = c.feedback_id
		WHERE c.feedback_id IS NULL
		ORDER BY f.created_at, f.id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFeedback(rows)
}

// GetFeedbackSamples returns up to limit of the most recent comments for an
// office within a period.
func (db *DB) GetFeedbackSamples(officeID int64, periodID string, limit int) ([]string, error) {
	start, end, err := ParsePeriod(periodID)
	if err != nil {
		return nil, err
	}
	rows, err := db.conn.Query(
		`SELECT comment FROM feedback
		WHERE office_id = ? AND date(created_at) BETWEEN ? AND ?
		ORDER BY created_at DESC, id DESC LIMIT ?`,
		officeID, start, end, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

func scanFeedback(rows *sql.Rows) ([]Feedback, error) {
	var items []Feedback
	for rows.Next() {
		var f Feedback
		if err := rows.Scan(&f.ID, &f.Reference, &f.OfficeID, &f.Rating, &f.Comment, &f.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}
