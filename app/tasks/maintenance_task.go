package tasks

import (
	"context"
	"log/slog"
)

// MaintenanceTask trims fingerprint tables and writes the state file.
type MaintenanceTask struct {
	Task
	relay Relay
}

func NewMaintenanceTask(r Relay) *MaintenanceTask {
	return &MaintenanceTask{
		Task:  NewTask(TaskTypeMaintenance, ""),
		relay: r,
	}
}

func (t *MaintenanceTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.relay.SaveState(); err != nil {
		return err
	}

	slog.Debug("Task completed", "type", string(t.Type), "duration", t.GetDuration().String())
	return nil
}
