package devicestorage

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/zanzhit/timelapse_recorder/internal/domain/errs"
	"github.com/zanzhit/timelapse_recorder/internal/domain/models"
	"github.com/zanzhit/timelapse_recorder/internal/storage/postgres"
)

type DeviceStorage struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *DeviceStorage {
	return &DeviceStorage{
		db: db,
	}
}

func (s *DeviceStorage) SaveDevice(dev models.Device) (models.Device, error) {
	const op = "storage.postgres.devices.SaveDevice"

	query := s.db.Rebind(fmt.Sprintf(`INSERT INTO %s (device_id, address, selected) VALUES (?, ?, ?)`, postgres.DevicesTable))

	if _, err := s.db.Exec(query, dev.DeviceID, dev.Address, dev.Selected); err != nil {
		if postgres.IsUniqueViolation(err) {
			return dev, fmt.Errorf("%s: %w", op, errs.ErrDeviceAlreadyExists)
		}

		return dev, fmt.Errorf("%s: %w", op, err)
	}

	return dev, nil
}

func (s *DeviceStorage) Devices() ([]models.Device, error) {
	const op = "storage.postgres.devices.Devices"

	var devices []models.Device
	query := fmt.Sprintf(`SELECT device_id, address, selected FROM %s ORDER BY address`, postgres.DevicesTable)

	if err := s.db.Select(&devices, query); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return devices, nil
}

func (s *DeviceStorage) SetSelected(deviceID string, selected bool) error {
	const op = "storage.postgres.devices.SetSelected"

	query := s.db.Rebind(fmt.Sprintf(`UPDATE %s SET selected = ? WHERE device_id = ?`, postgres.DevicesTable))

	result, err := s.db.Exec(query, selected, deviceID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, errs.ErrDeviceNotFound)
	}

	return nil
}
