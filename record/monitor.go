package record

import "time"

// SiteState is the reachability state of a monitored site.
type SiteState string

const (
	SiteOnline   SiteState = "online"
	SiteOffline  SiteState = "offline"
	SiteChecking SiteState = "checking"
)

// Target is a website the monitor sweeps.
type Target struct {
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url" yaml:"url"`
}

// SiteStatus is the result of probing one [Target].
type SiteStatus struct {
	URL    string    `json:"url"`
	Name   string    `json:"name"`
	Status SiteState `json:"status"`
	// ResponseTimeMs is nil for rows that were never probed.
	ResponseTimeMs *int64    `json:"responseTimeMs,omitempty"`
	LastChecked    time.Time `json:"lastChecked"`
	Error          string    `json:"error,omitempty"`
}

// MonitorSnapshot is the immutable outcome of one sweep. Results keep the
// configured target order.
type MonitorSnapshot struct {
	Timestamp time.Time    `json:"timestamp"`
	Results   []SiteStatus `json:"results"`
}

// OverallState classifies a snapshot as a whole.
type OverallState string

const (
	// StateOperational means every site is online.
	StateOperational OverallState = "operational"
	// StatePartial means some but not all sites are online.
	StatePartial OverallState = "partial"
	// StateOutage means no site is online.
	StateOutage OverallState = "outage"
)

// Overall summarizes a snapshot for the dashboard header.
type Overall struct {
	Online int          `json:"online"`
	Total  int          `json:"total"`
	State  OverallState `json:"state"`
}

// Summarize counts online sites in s.
//
// An empty snapshot counts as operational, since there is nothing down.
func Summarize(s MonitorSnapshot) Overall {
	online := 0
	for _, r := range s.Results {
		if r.Status == SiteOnline {
			online++
		}
	}
	o := Overall{Online: online, Total: len(s.Results)}
	switch {
	case online == o.Total:
		o.State = StateOperational
	case online == 0:
		o.State = StateOutage
	default:
		o.State = StatePartial
	}
	return o
}

// PendingStatuses returns a "checking" row per target, used before the
// first sweep has produced a snapshot.
func PendingStatuses(targets []Target, now time.Time) []SiteStatus {
	out := make([]SiteStatus, len(targets))
	for i, t := range targets {
		out[i] = SiteStatus{
			URL:         t.URL,
			Name:        t.Name,
			Status:      SiteChecking,
			LastChecked: now,
		}
	}
	return out
}
