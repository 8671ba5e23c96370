package accessory

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Record is the persisted identity of an accessory registered with the hosts.
type Record struct {
	UUID         string    `json:"uuid"`
	DeviceID     string    `json:"device_id"`
	DisplayName  string    `json:"display_name"`
	Manufacturer string    `json:"manufacturer"`
	Model        string    `json:"model"`
	SerialNumber string    `json:"serial_number"`
	GatewayID    string    `json:"gateway_id,omitempty"`
	FirstSeen    time.Time `json:"first_seen"`
	LastSeen     time.Time `json:"last_seen"`
}

// Store persists known accessories between runs.
type Store interface {
	List(ctx context.Context) ([]Record, error)
	Save(ctx context.Context, r Record) error
}

// SQLiteStore implements Store on the accessories table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store on an already migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// List returns every stored accessory ordered by display name.
func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT uuid, device_id, display_name, manufacturer, model, serial_number,
		       COALESCE(gateway_id, ''), first_seen, last_seen
		FROM accessories
		ORDER BY display_name, uuid`)
	if err != nil {
		return nil, fmt.Errorf("querying accessories: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var firstSeen, lastSeen string
		if err := rows.Scan(&r.UUID, &r.DeviceID, &r.DisplayName, &r.Manufacturer,
			&r.Model, &r.SerialNumber, &r.GatewayID, &firstSeen, &lastSeen); err != nil {
			return nil, fmt.Errorf("scanning accessory: %w", err)
		}
		r.FirstSeen, _ = time.Parse(time.RFC3339, firstSeen) //nolint:errcheck // written by Save
		r.LastSeen, _ = time.Parse(time.RFC3339, lastSeen)   //nolint:errcheck // written by Save
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating accessories: %w", err)
	}
	return records, nil
}

// Save inserts r or refreshes an existing row, keeping its first_seen.
func (s *SQLiteStore) Save(ctx context.Context, r Record) error {
	if r.UUID == "" || r.DeviceID == "" {
		return fmt.Errorf("accessory record requires uuid and device id")
	}
	now := time.Now().UTC()
	if r.FirstSeen.IsZero() {
		r.FirstSeen = now
	}
	if r.LastSeen.IsZero() {
		r.LastSeen = now
	}

	var gatewayID any
	if r.GatewayID != "" {
		gatewayID = r.GatewayID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accessories (uuid, device_id, display_name, manufacturer, model,
		                         serial_number, gateway_id, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uuid) DO UPDATE SET
			display_name  = excluded.display_name,
			manufacturer  = excluded.manufacturer,
			model         = excluded.model,
			serial_number = excluded.serial_number,
			gateway_id    = excluded.gateway_id,
			last_seen     = excluded.last_seen`,
		r.UUID, r.DeviceID, r.DisplayName, r.Manufacturer, r.Model, r.SerialNumber,
		gatewayID, r.FirstSeen.Format(time.RFC3339), r.LastSeen.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving accessory %s: %w", r.UUID, err)
	}
	return nil
}
