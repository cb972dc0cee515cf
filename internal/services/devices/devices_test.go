package deviceservice

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zanzhit/timelapse_recorder/internal/domain/errs"
	"github.com/zanzhit/timelapse_recorder/internal/domain/models"
)

type memStorage struct {
	devices []models.Device
}

func (s *memStorage) SaveDevice(dev models.Device) (models.Device, error) {
	s.devices = append(s.devices, dev)
	return dev, nil
}

func (s *memStorage) Devices() ([]models.Device, error) {
	return s.devices, nil
}

func (s *memStorage) SetSelected(deviceID string, selected bool) error {
	for i := range s.devices {
		if s.devices[i].DeviceID == deviceID {
			s.devices[i].Selected = selected
		}
	}
	return nil
}

func newRegistry(storage DeviceStorage) *Registry {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), storage)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "IP.txt")
	require.NoError(t, os.WriteFile(path, []byte("192.168.1.10\n\n# garage\n192.168.1.11:8080\n192.168.1.10\n"), 0o644))

	storage := &memStorage{}
	r := newRegistry(storage)
	require.NoError(t, r.LoadFile(path))

	devices := r.Devices()
	require.Len(t, devices, 2)
	assert.Equal(t, "192_168_1_10", devices[0].DeviceID)
	assert.Equal(t, "192_168_1_11_8080", devices[1].DeviceID)
	assert.True(t, devices[1].Selected)
	assert.Len(t, storage.devices, 2)
}

func TestLoadFile_Missing(t *testing.T) {
	r := newRegistry(&memStorage{})
	assert.NoError(t, r.LoadFile(filepath.Join(t.TempDir(), "missing.txt")))
	assert.Empty(t, r.Devices())
}

func TestLoad_RestoresSelection(t *testing.T) {
	storage := &memStorage{devices: []models.Device{
		{DeviceID: "a", Address: "a", Selected: false},
		{DeviceID: "b", Address: "b", Selected: true},
	}}

	r := newRegistry(storage)
	require.NoError(t, r.Load())

	selected := r.Selected()
	require.Len(t, selected, 1)
	assert.Equal(t, "b", selected[0].DeviceID)
}

func TestSelect(t *testing.T) {
	storage := &memStorage{}
	r := newRegistry(storage)

	dev, err := r.Add("10.0.0.1")
	require.NoError(t, err)

	_, err = r.Add("10.0.0.1")
	assert.ErrorIs(t, err, errs.ErrDeviceAlreadyExists)

	_, err = r.Select(dev.DeviceID, false)
	require.NoError(t, err)
	assert.Empty(t, r.Selected())
	assert.False(t, storage.devices[0].Selected)

	_, err = r.Select("nope", true)
	assert.ErrorIs(t, err, errs.ErrDeviceNotFound)
}

func TestProbe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	closed, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	closedAddr := closed.Addr().String()
	closed.Close()

	r := newRegistry(&memStorage{})
	_, err = r.Add(ln.Addr().String())
	require.NoError(t, err)
	_, err = r.Add("http://" + closedAddr + "/")
	require.NoError(t, err)

	result := r.Probe(context.Background(), time.Second)
	require.Len(t, result, 2)
	assert.True(t, result[0].Available)
	assert.False(t, result[1].Available)
	assert.NotEmpty(t, result[1].Error)
}
