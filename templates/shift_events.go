package templates

import (
	"fmt"

	"jeeptrack-service/internal/domain/entity"
	"jeeptrack-service/internal/usecase"
	"jeeptrack-service/pkg/utils"
)

// ShiftEventHandler renders shift start and shift end messages
type ShiftEventHandler struct{}

func NewShiftEventHandler() *ShiftEventHandler {
	return &ShiftEventHandler{}
}

func (h *ShiftEventHandler) CanHandle(eventType entity.EventType) bool {
	return eventType == entity.EventShiftStart || eventType == entity.EventShiftEnd
}

func (h *ShiftEventHandler) Render(event *entity.Event) usecase.Rendered {
	jeep := vehicleLabel(event)
	driver := event.Driver.Name
	if driver == "" {
		driver = event.Driver.ID
	}

	payload := map[string]interface{}{
		"route_id":       event.Route.ID,
		"driver_id":      event.Driver.ID,
		"jeepney_number": jeep,
	}

	if event.Type == entity.EventShiftEnd {
		where := event.Checkpoint.Name
		if where == "" {
			where = event.Route.Name
		}
		return usecase.Rendered{
			Title:   fmt.Sprintf(utils.MSG_SHIFT_END, jeep, event.Route.Name),
			Body:    fmt.Sprintf(utils.MSG_SHIFT_END_B, driver, where),
			Payload: payload,
		}
	}

	from := event.Checkpoint.Name
	if from == "" {
		from = "the start of the route"
	}
	payload["checkpoint_id"] = event.Checkpoint.ID
	return usecase.Rendered{
		Title:   fmt.Sprintf(utils.MSG_SHIFT_START, jeep, event.Route.Name),
		Body:    fmt.Sprintf(utils.MSG_SHIFT_START_B, driver, event.Route.Name, from),
		Payload: payload,
	}
}
