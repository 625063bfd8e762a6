package live

// Message types sent to preview clients.
const (
	TypeState     = "state"
	TypeStatus    = "status"
	TypeRecording = "recording"
	TypeControl   = "control"
)

// Control actions accepted from preview clients.
const (
	ActionPlay   = "play"
	ActionPause  = "pause"
	ActionReset  = "reset"
	ActionScrub  = "scrub"
	ActionRecord = "record"
	ActionCancel = "cancel"
)

// Recording phases reported in RecordingMsg.Phase.
const (
	PhaseStarted   = "started"
	PhaseProgress  = "progress"
	PhaseFinished  = "finished"
	PhaseFailed    = "failed"
	PhaseCancelled = "cancelled"
)

// StateMsg mirrors the animation clock.
type StateMsg struct {
	Type       string  `json:"type"` // "state"
	ElapsedMs  int64   `json:"elapsedMs"`
	DurationMs int64   `json:"durationMs"`
	Playing    bool    `json:"playing"`
	Fraction   float64 `json:"fraction"`
	Date       string  `json:"date"`
}

// StatusMsg is a human-readable notice.
type StatusMsg struct {
	Type  string `json:"type"` // "status"
	Level string `json:"level"`
	Text  string `json:"text"`
}

// RecordingMsg reports export progress.
type RecordingMsg struct {
	Type  string `json:"type"` // "recording"
	Phase string `json:"phase"`
	Frame int    `json:"frame,omitempty"`
	Total int    `json:"total,omitempty"`
	File  string `json:"file,omitempty"`
	Error string `json:"error,omitempty"`
}

// ControlMsg is sent by clients.
type ControlMsg struct {
	Type     string  `json:"type"`   // "control"
	Action   string  `json:"action"` // play/pause/reset/scrub/record/cancel
	Fraction float64 `json:"fraction,omitempty"`
}
