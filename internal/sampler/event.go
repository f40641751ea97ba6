package sampler

// Phase is the state of a speed test run.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhasePing     Phase = "measuring_ping"
	PhaseDownload Phase = "measuring_download"
	PhaseComplete Phase = "complete"
)

// EventType discriminates [Event].
type EventType string

const (
	EventPhase    EventType = "phase"
	EventSpeed    EventType = "speed"
	EventProgress EventType = "progress"
	EventMaxSpeed EventType = "max_speed"
)

// Event is one progress notification from a run. Only the fields relevant
// to Type are set.
type Event struct {
	Type EventType `json:"type"`
	// Phase is set for EventPhase.
	Phase Phase `json:"phase,omitempty"`
	// Mbps is set for EventSpeed and EventMaxSpeed.
	Mbps float64 `json:"mbps,omitempty"`
	// Progress is the elapsed fraction of the download phase in percent.
	Progress float64 `json:"progress,omitempty"`
	// Final marks the aggregate EventSpeed emitted at completion.
	Final bool `json:"final,omitempty"`
}

// Callbacks is the callback form of the event stream. Nil fields are skipped.
type Callbacks struct {
	OnSpeedUpdate    func(mbps float64)
	OnProgressUpdate func(percent float64)
	OnMaxSpeedUpdate func(mbps float64)
	OnPhaseChange    func(phase Phase)
}

// Dispatch reads events until the channel is closed and invokes the
// matching callback for each.
func Dispatch(events <-chan Event, cb Callbacks) {
	for ev := range events {
		switch ev.Type {
		case EventSpeed:
			if cb.OnSpeedUpdate != nil {
				cb.OnSpeedUpdate(ev.Mbps)
			}
		case EventProgress:
			if cb.OnProgressUpdate != nil {
				cb.OnProgressUpdate(ev.Progress)
			}
		case EventMaxSpeed:
			if cb.OnMaxSpeedUpdate != nil {
				cb.OnMaxSpeedUpdate(ev.Mbps)
			}
		case EventPhase:
			if cb.OnPhaseChange != nil {
				cb.OnPhaseChange(ev.Phase)
			}
		}
	}
}
