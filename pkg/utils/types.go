package utils

// Notification message templates, filled with fmt.Sprintf.
const (
	MSG_ADVANCE_TITLE = "Jeepney %s is at %s"
	MSG_ADVANCE_BODY  = "Route %s: jeepney %s just passed %s. Next stop %s in about %s."
	MSG_TERMINAL_BODY = "Route %s: jeepney %s has reached %s, the end of the line."
	MSG_SHIFT_START   = "Jeepney %s is now running on route %s"
	MSG_SHIFT_START_B = "Driver %s started a trip on %s from %s."
	MSG_SHIFT_END     = "Jeepney %s has left route %s"
	MSG_SHIFT_END_B   = "Driver %s ended the shift at %s. It will no longer appear on the live map."
)

// Status colors shown by clients for each staleness band.
const (
	COLOR_LIVE   = "green"
	COLOR_RECENT = "orange"
	COLOR_STALE  = "red"
)
