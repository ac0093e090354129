package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

const reportColumns = `id, office_id, period_id, generator, total_feedback, positive_count,
	neutral_count, negative_count, top_issues, summary, key_insights, recommendations,
	trend_analysis, full_analysis, generated_at`

// InsertReport stores a generated report and returns its ID.
func (db *DB) InsertReport(r *Report) (int64, error) {
	issues, err := json.Marshal(r.TopIssues)
	if err != nil {
		return 0, err
	}
	insights, err := json.Marshal(r.KeyInsights)
	if err != nil {
		return 0, err
	}
	recs, err := json.Marshal(r.Recommendations)
	if err != nil {
		return 0, err
	}

	result, err := db.conn.Exec(
		`INSERT INTO reports (office_id, period_id, generator, total_feedback, positive_count,
		neutral_count, negative_count, top_issues, summary, key_insights, recommendations,
		trend_analysis, full_analysis)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.OfficeID, r.PeriodID, r.Generator, r.TotalFeedback, r.PositiveCount,
		r.NeutralCount, r.NegativeCount, string(issues), r.Summary, string(insights), string(recs),
		r.TrendAnalysis, r.FullAnalysis,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting report: %w", err)
	}
	return result.LastInsertId()
}

// GetReport returns a single report by ID.
func (db *DB) GetReport(reportID int64) (*Report, error) {
	row := db.conn.QueryRow(`SELECT `+reportColumns+` FROM reports WHERE id = ?`, reportID)
	r, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetLatestReport returns the most recent report for an office and period.
func (db *DB) GetLatestReport(officeID int64, periodID string) (*Report, error) {
	row := db.conn.QueryRow(
		`SELECT `+reportColumns+` FROM reports WHERE office_id = ? AND period_id = ?
		ORDER BY generated_at DESC, id DESC LIMIT 1`, officeID, periodID,
	)
	r, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListReports returns recent reports, optionally for one office, newest first.
func (db *DB) ListReports(officeID *int64, limit int) ([]Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports`
	var args []any
	if officeID != nil {
		query += " WHERE office_id = ?"
		args = append(args, *officeID)
	}
	query += " ORDER BY generated_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	return reports, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(s scanner) (*Report, error) {
	var (
		r                      Report
		issues, insights, recs *string
		trend, full            *string
	)
	if err := s.Scan(&r.ID, &r.OfficeID, &r.PeriodID, &r.Generator, &r.TotalFeedback,
		&r.PositiveCount, &r.NeutralCount, &r.NegativeCount, &issues, &r.Summary,
		&insights, &recs, &trend, &full, &r.GeneratedAt); err != nil {
		return nil, err
	}

	if issues != nil {
		if err := json.Unmarshal([]byte(*issues), &r.TopIssues); err != nil {
			r.TopIssues = nil
		}
	}
	if insights != nil {
		if err := json.Unmarshal([]byte(*insights), &r.KeyInsights); err != nil {
			r.KeyInsights = nil
		}
	}
	if recs != nil {
		if err := json.Unmarshal([]byte(*recs), &r.Recommendations); err != nil {
			r.Recommendations = nil
		}
	}
	if trend != nil {
		r.TrendAnalysis = *trend
	}
	if full != nil {
		r.FullAnalysis = *full
	}
	return &r, nil
}
