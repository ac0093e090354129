package database

import (
	"database/sql"

	"github.com/TobiSchelling/govpulse/internal/sentiment"
)

// InsertClassification stores the classification of a feedback row. An
// existing classification is kept unchanged.
func (db *DB) InsertClassification(feedbackID int64, rec sentiment.Record) error {
	var category *string
	if rec.Category != nil {
		s := string(*rec.Category)
		category = &s
	}
	_, err := db.conn.Exec(
		`INSERT OR IGNORE INTO classifications
		(feedback_id, sentiment, category, confidence, language)
		VALUES (?, ?, ?, ?, ?)`,
		feedbackID, string(rec.Sentiment), category, rec.Confidence, string(rec.Language),
	)
	return err
}

// GetClassification returns the classification of a feedback row.
func (db *DB) GetClassification(feedbackID int64) (*Classification, error) {
	row := db.conn.QueryRow(
		`SELECT feedback_id, sentiment, category, confidence, language, analyzed_at
		FROM classifications WHERE feedback_id = ?`, feedbackID,
	)
	var (
		c          Classification
		sent, lang string
		category   *string
	)
	if err := row.Scan(&c.FeedbackID, &sent, &category, &c.Confidence, &lang, &c.AnalyzedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	c.Sentiment = sentiment.Sentiment(sent)
	c.Language = sentiment.Language(lang)
	if category != nil {
		cat := sentiment.Category(*category)
		c.Category = &cat
	}
	return &c, nil
}

// GetClassifications returns the classifications of an office's feedback within
// a period, in submission order.
func (db *DB) GetClassifications(officeID int64, periodID string) ([]Classification, error) {
	start, end, err := ParsePeriod(periodID)
	if err != nil {
		return nil, err
	}
	rows, err := db.conn.Query(
		`SELECT c.feedback_id, c.sentiment, c.category, c.confidence, c.language, c.analyzed_at
		FROM classifications c JOIN feedback f ON f.id = c.feedback_id
		WHERE f.office_id = ? AND date(f.created_at) BETWEEN ? AND ?
		ORDER BY f.created_at, f.id`,
		officeID, start, end,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Classification
	for rows.Next() {
		var (
			c          Classification
			sent, lang string
			category   *string
		)
		if err := rows.Scan(&c.FeedbackID, &sent, &category, &c.Confidence, &lang, &c.AnalyzedAt); err != nil {
			return nil, err
		}
		c.Sentiment = sentiment.Sentiment(sent)
		c.Language = sentiment.Language(lang)
		if category != nil {
			cat := sentiment.Category(*category)
			c.Category = &cat
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Records converts classifications into sentiment records.
func Records(cs []Classification) []sentiment.Record {
	out := make([]sentiment.Record, len(cs))
	for i, c := range cs {
		out[i] = c.Record()
	}
	return out
}
