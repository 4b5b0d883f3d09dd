// Package systemd toggles cloud connectivity by enabling or disabling the
// appliance's cloud service unit over the systemd D-Bus API.
package systemd

import (
	"context"
	"fmt"

	sd "github.com/coreos/go-systemd/v22/dbus"

	"github.com/owl-os/retina-console/pkg/logger"
)

// DefaultCloudUnit is the systemd unit that maintains the cloud connection.
const DefaultCloudUnit = "retina-cloud.service"

// Toggle enables or disables a managed service.
type Toggle interface {
	// SetEnabled enables and starts, or stops and disables, the service.
	SetEnabled(ctx context.Context, enabled bool) error
	// Status reports whether the service is currently active.
	Status(ctx context.Context) (bool, error)
}

// UnitToggle implements Toggle for a single systemd unit.
type UnitToggle struct {
	unit string
}

// NewUnitToggle creates a toggle for the given unit. An empty unit name
// falls back to DefaultCloudUnit.
func NewUnitToggle(unit string) *UnitToggle {
	if unit == "" {
		unit = DefaultCloudUnit
	}
	return &UnitToggle{unit: unit}
}

// SetEnabled flips the unit's enablement and activation state. Both are
// changed together so the setting survives reboots and takes effect now.
func (t *UnitToggle) SetEnabled(ctx context.Context, enabled bool) error {
	conn, err := sd.NewSystemConnectionContext(ctx)
	if err != nil {
		return fmt.Errorf("unable to connect to systemd: %w", err)
	}
	defer conn.Close()

	if enabled {
		if _, _, err := conn.EnableUnitFilesContext(ctx, []string{t.unit}, false, true); err != nil {
			return fmt.Errorf("failed to enable %s: %w", t.unit, err)
		}
		if err := t.runJob(ctx, conn.StartUnitContext); err != nil {
			return fmt.Errorf("failed to start %s: %w", t.unit, err)
		}
		logger.Infof("enabled %s", t.unit)
		return nil
	}

	if err := t.runJob(ctx, conn.StopUnitContext); err != nil {
		return fmt.Errorf("failed to stop %s: %w", t.unit, err)
	}
	if _, err := conn.DisableUnitFilesContext(ctx, []string{t.unit}, false); err != nil {
		return fmt.Errorf("failed to disable %s: %w", t.unit, err)
	}
	logger.Infof("disabled %s", t.unit)
	return nil
}

// runJob starts a systemd job and waits for its result.
func (t *UnitToggle) runJob(
	ctx context.Context,
	job func(context.Context, string, string, chan<- string) (int, error),
) error {
	result := make(chan string, 1)
	if _, err := job(ctx, t.unit, "replace", result); err != nil {
		return err
	}
	select {
	case r := <-result:
		if r != "done" {
			return fmt.Errorf("job finished with result %q", r)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status reports whether the unit is currently active.
func (t *UnitToggle) Status(ctx context.Context) (bool, error) {
	conn, err := sd.NewSystemConnectionContext(ctx)
	if err != nil {
		return false, fmt.Errorf("unable to connect to systemd: %w", err)
	}
	defer conn.Close()

	props, err := conn.GetUnitPropertiesContext(ctx, t.unit)
	if err != nil {
		return false, fmt.Errorf("failed to query %s: %w", t.unit, err)
	}
	state, _ := props["ActiveState"].(string)
	return state == "active", nil
}
