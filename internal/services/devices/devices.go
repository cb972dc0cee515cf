package deviceservice

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zanzhit/timelapse_recorder/internal/domain/errs"
	"github.com/zanzhit/timelapse_recorder/internal/domain/models"
	"github.com/zanzhit/timelapse_recorder/internal/lib/sl"
)

type DeviceStorage interface {
	SaveDevice(dev models.Device) (models.Device, error)
	Devices() ([]models.Device, error)
	SetSelected(deviceID string, selected bool) error
}

type Availability struct {
	DeviceID  string `json:"device_id"`
	Address   string `json:"address"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

// Registry is the set of known devices and their selection flags. Devices
// are only ever added during a run.
type Registry struct {
	log     *slog.Logger
	storage DeviceStorage

	mu      sync.RWMutex
	order   []string
	devices map[string]models.Device
}

func New(log *slog.Logger, storage DeviceStorage) *Registry {
	return &Registry{
		log:     log,
		storage: storage,
		devices: make(map[string]models.Device),
	}
}

// Load restores persisted devices.
func (r *Registry) Load() error {
	const op = "service.devices.Load"

	devices, err := r.storage.Devices()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range devices {
		if _, ok := r.devices[d.DeviceID]; ok {
			continue
		}
		r.order = append(r.order, d.DeviceID)
		r.devices[d.DeviceID] = d
	}

	return nil
}

// LoadFile adds one device per non-empty line of path. Lines starting with
// '#' are ignored. A missing file is not an error.
func (r *Registry) LoadFile(path string) error {
	const op = "service.devices.LoadFile"

	log := r.log.With(
		slog.String("op", op),
		slog.String("path", path),
	)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn("devices file not found")

			return nil
		}

		return fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if _, err := r.Add(line); err != nil && !errors.Is(err, errs.ErrDeviceAlreadyExists) {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *Registry) Add(address string) (models.Device, error) {
	const op = "service.devices.Add"

	log := r.log.With(
		slog.String("op", op),
		slog.String("address", address),
	)

	address = strings.TrimSpace(address)
	if address == "" {
		return models.Device{}, fmt.Errorf("%s: %w: empty address", op, errs.ErrInvalidConfiguration)
	}

	dev := models.NewDevice(address)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[dev.DeviceID]; ok {
		return models.Device{}, fmt.Errorf("%s: %w", op, errs.ErrDeviceAlreadyExists)
	}

	dev, err := r.storage.SaveDevice(dev)
	if err != nil {
		log.Error("failed to save device", sl.Err(err))

		return models.Device{}, fmt.Errorf("%s: %w", op, err)
	}

	r.order = append(r.order, dev.DeviceID)
	r.devices[dev.DeviceID] = dev

	log.Info("device added", slog.String("device_id", dev.DeviceID))

	return dev, nil
}

func (r *Registry) Devices() []models.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Device, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.devices[id])
	}

	return out
}

func (r *Registry) Selected() []models.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Device
	for _, id := range r.order {
		if d := r.devices[id]; d.Selected {
			out = append(out, d)
		}
	}

	return out
}

func (r *Registry) Select(deviceID string, selected bool) (models.Device, error) {
	const op = "service.devices.Select"

	r.mu.Lock()
	defer r.mu.Unlock()

	dev, ok := r.devices[deviceID]
	if !ok {
		return models.Device{}, fmt.Errorf("%s: %w", op, errs.ErrDeviceNotFound)
	}

	if err := r.storage.SetSelected(deviceID, selected); err != nil {
		r.log.Error("failed to persist selection", slog.String("op", op), sl.Err(err))

		return models.Device{}, fmt.Errorf("%s: %w", op, err)
	}

	dev.Selected = selected
	r.devices[deviceID] = dev

	return dev, nil
}

// Probe dials every device in parallel and reports which ones accept a TCP connection.
func (r *Registry) Probe(ctx context.Context, timeout time.Duration) []Availability {
	devices := r.Devices()
	result := make([]Availability, len(devices))

	g, ctx := errgroup.WithContext(ctx)
	for i, d := range devices {
		i, d := i, d
		g.Go(func() error {
			result[i] = Availability{DeviceID: d.DeviceID, Address: d.Address}

			if err := dial(ctx, d.Address, timeout); err != nil {
				result[i].Error = err.Error()

				return nil
			}

			result[i].Available = true

			return nil
		})
	}
	g.Wait()

	return result
}

func dial(ctx context.Context, address string, timeout time.Duration) error {
	host := strings.TrimPrefix(strings.TrimPrefix(address, "http://"), "https://")
	host = strings.SplitN(host, "/", 2)[0]

	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "80")
	}

	d := net.Dialer{Timeout: timeout}

	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return err
	}

	return conn.Close()
}
