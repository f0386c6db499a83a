package templates

import (
	"fmt"

	"jeeptrack-service/internal/domain/entity"
	"jeeptrack-service/internal/usecase"
	"jeeptrack-service/pkg/utils"
)

// CheckpointAdvanceHandler renders "jeepney passed a checkpoint" messages
type CheckpointAdvanceHandler struct{}

// NewCheckpointAdvanceHandler creates a new checkpoint advance template
func NewCheckpointAdvanceHandler() *CheckpointAdvanceHandler {
	return &CheckpointAdvanceHandler{}
}

// CanHandle determines if this handler renders the given event type
func (h *CheckpointAdvanceHandler) CanHandle(eventType entity.EventType) bool {
	return eventType == entity.EventCheckpointAdvance
}

// Render fills the advance templates; the terminal stop has no next stop
func (h *CheckpointAdvanceHandler) Render(event *entity.Event) usecase.Rendered {
	jeep := vehicleLabel(event)
	title := fmt.Sprintf(utils.MSG_ADVANCE_TITLE, jeep, event.Checkpoint.Name)

	var body string
	if event.NextCheckpoint.ID == "" {
		body = fmt.Sprintf(utils.MSG_TERMINAL_BODY, event.Route.Name, jeep, event.Checkpoint.Name)
	} else {
		body = fmt.Sprintf(utils.MSG_ADVANCE_BODY, event.Route.Name, jeep, event.Checkpoint.Name, event.NextCheckpoint.Name, event.ETA)
	}

	return usecase.Rendered{
		Title: title,
		Body:  body,
		Payload: map[string]interface{}{
			"route_id":            event.Route.ID,
			"driver_id":           event.Current.DriverID,
			"jeepney_number":      event.Jeepney.Number,
			"checkpoint_id":       event.Checkpoint.ID,
			"checkpoint_name":     event.Checkpoint.Name,
			"sequence_index":      event.Checkpoint.SequenceIndex,
			"next_checkpoint_id":  event.NextCheckpoint.ID,
			"next_checkpoint_eta": event.ETA,
			"scan_timestamp":      event.Current.ScanTimestamp,
			"passenger_count":     event.Current.PassengerCount,
			"rescan":              event.Rescan,
		},
	}
}

func vehicleLabel(event *entity.Event) string {
	if event.Jeepney.Number != "" {
		return event.Jeepney.Number
	}
	if event.Current != nil && event.Current.JeepneyID != "" {
		return event.Current.JeepneyID
	}
	if event.Previous != nil {
		return event.Previous.JeepneyID
	}
	return ""
}
