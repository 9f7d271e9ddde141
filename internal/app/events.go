package app

// Event names for frontend communication.
const (
	EventRecordingStarted  = "recording-started"
	EventRecordingComplete = "recording-complete"
	EventRecordingFailed   = "recording-failed"
	EventHotkey            = "hotkey"
	EventHotkeyStatus      = "hotkey-status"
	EventConfigChanged     = "config-changed"
)
