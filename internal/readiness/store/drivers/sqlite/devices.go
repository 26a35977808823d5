package sqlite

import (
	"context"
	"time"

	"github.com/project-atlas/readiness/internal/readiness/domain"
)

type devicesRepo struct {
	q dbtx
}

func (r *devicesRepo) GetDeviceByDeviceID(ctx context.Context, deviceID string) (domain.Device, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, device_id, user_id, label, approved, last_seen_at
		 FROM devices WHERE device_id = ?`, deviceID)

	var d domain.Device
	err := row.Scan(&d.ID, &d.DeviceID, &d.UserID, &d.Label, &d.Approved, &d.LastSeenAt)
	if err != nil {
		return domain.Device{}, mapNotFound(err)
	}
	return d, nil
}

func (r *devicesRepo) CreateDevice(ctx context.Context, d domain.Device) error {
	lastSeen := d.LastSeenAt
	if lastSeen.IsZero() {
		lastSeen = time.Now().UTC()
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO devices (id, device_id, user_id, label, approved, last_seen_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.DeviceID, d.UserID, d.Label, d.Approved, lastSeen)
	return mapConstraint(err)
}

func (r *devicesRepo) TouchLastSeen(ctx context.Context, deviceID string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE devices SET last_seen_at = ? WHERE device_id = ?`,
		time.Now().UTC(), deviceID)
	return err
}

func (r *devicesRepo) SetApproved(ctx context.Context, deviceID string, approved bool) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE devices SET approved = ? WHERE device_id = ?`, approved, deviceID)
	return err
}
