// Package availabilityv1 is the wire contract of the availability service, shared by its
// HTTP and gRPC surfaces and by clients.
package availabilityv1

const (
	KindDay   = "day"
	KindSlots = "slots"
)

type EvaluateRequest struct {
	EventID string `json:"event_id"`
	Date    string `json:"date"`
}

type ExplainRequest struct {
	EventID   string `json:"event_id"`
	StartTime string `json:"start_time"`
}

type ListSlotsRequest struct {
	EventID string `json:"event_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

type SelectHostRequest struct {
	EventID   string `json:"event_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Evaluation is either a day-level answer (Kind "day", Code set, Slots empty) or a
// classified enumeration (Kind "slots", Summary set).
type Evaluation struct {
	Kind             string   `json:"kind"`
	EventID          string   `json:"event_id"`
	Date             string   `json:"date"`
	Timezone         string   `json:"timezone"`
	Code             string   `json:"code,omitempty"`
	Reason           string   `json:"reason,omitempty"`
	Slots            []Slot   `json:"slots"`
	Summary          *Summary `json:"summary,omitempty"`
	UnavailableHosts []string `json:"unavailable_hosts,omitempty"`
}

type Slot struct {
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
	Code      string   `json:"code"`
	Reason    string   `json:"reason"`
	Details   *Details `json:"details,omitempty"`
}

type Details struct {
	CandidateHosts []string `json:"candidate_hosts,omitempty"`
	ClearedHosts   []string `json:"cleared_hosts,omitempty"`
	ConflictStart  string   `json:"conflict_start,omitempty"`
	ConflictEnd    string   `json:"conflict_end,omitempty"`
}

type Summary struct {
	Total             int            `json:"total"`
	Available         int            `json:"available"`
	Blocked           int            `json:"blocked"`
	Counts            map[string]int `json:"counts"`
	TopBlockingReason string         `json:"top_blocking_reason,omitempty"`
}

type Window struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type SlotList struct {
	EventID string   `json:"event_id"`
	From    string   `json:"from"`
	To      string   `json:"to"`
	Slots   []Window `json:"slots"`
}

type SelectedHost struct {
	EventID string `json:"event_id"`
	HostID  string `json:"host_id"`
	Role    string `json:"role"`
	Weight  int    `json:"weight"`
}
