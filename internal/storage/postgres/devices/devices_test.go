package devicestorage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zanzhit/timelapse_recorder/internal/domain/errs"
	"github.com/zanzhit/timelapse_recorder/internal/domain/models"
	"github.com/zanzhit/timelapse_recorder/internal/lib/testdb"
)

func TestDeviceStorage(t *testing.T) {
	s := New(testdb.New(t))

	_, err := s.SaveDevice(models.NewDevice("192.168.1.20"))
	require.NoError(t, err)
	_, err = s.SaveDevice(models.NewDevice("192.168.1.10"))
	require.NoError(t, err)

	_, err = s.SaveDevice(models.NewDevice("192.168.1.10"))
	assert.ErrorIs(t, err, errs.ErrDeviceAlreadyExists)

	require.NoError(t, s.SetSelected("192_168_1_20", false))
	assert.ErrorIs(t, s.SetSelected("missing", true), errs.ErrDeviceNotFound)

	devices, err := s.Devices()
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, models.Device{DeviceID: "192_168_1_10", Address: "192.168.1.10", Selected: true}, devices[0])
	assert.False(t, devices[1].Selected)
}
