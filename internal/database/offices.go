package database

import (
	"database/sql"
	"fmt"
)

// InsertOffice creates an office. Returns the ID on success, 0 if the name is taken.
func (db *DB) InsertOffice(name string, region *string) (int64, error) {
	existing, err := db.GetOfficeByName(name)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return 0, nil
	}

	result, err := db.conn.Exec(`INSERT INTO offices (name, region) VALUES (?, ?)`, name, region)
	if err != nil {
		return 0, fmt.Errorf("inserting office: %w", err)
	}
	return result.LastInsertId()
}

// GetOffice returns a single office by ID.
func (db *DB) GetOffice(officeID int64) (*Office, error) {
	row := db.conn.QueryRow(`SELECT id, name, region, created_at FROM offices WHERE id = ?`, officeID)
	return scanOffice(row)
}

// GetOfficeByName returns an office by its unique name.
func (db *DB) GetOfficeByName(name string) (*Office, error) {
	row := db.conn.QueryRow(`SELECT id, name, region, created_at FROM offices WHERE name = ?`, name)
	return scanOffice(row)
}

// ListOffices returns all offices ordered by name.
func (db *DB) ListOffices() ([]Office, error) {
	rows, err := db.conn.Query(`SELECT id, name, region, created_at FROM offices ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offices []Office
	for rows.Next() {
		var o Office
		if err := rows.Scan(&o.ID, &o.Name, &o.Region, &o.CreatedAt); err != nil {
			return nil, err
		}
		offices = append(offices, o)
	}
	return offices, rows.Err()
}

func scanOffice(row *sql.Row) (*Office, error) {
	var o Office
	if err := row.Scan(&o.ID, &o.Name, &o.Region, &o.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}
