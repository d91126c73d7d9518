package model

type Role string

const (
	RoleOwner  Role = "owner"
	RoleHost   Role = "host"
	RoleBackup Role = "backup"
)

// Rotates reports whether the role takes part in host selection.
func (r Role) Rotates() bool {
	return r == RoleOwner || r == RoleHost
}

// Host is a person who owns availability. Nil caps mean unlimited.
type Host struct {
	ID                 string
	TenantID           string
	Name               string
	MaxMeetingsPerDay  *int
	MaxMeetingsPerWeek *int
	CalendarConnected  bool
}

// Participant is a host's membership in an event.
type Participant struct {
	Host   Host
	Role   Role
	Weight int
}

const (
	MinWeight = 1
	MaxWeight = 5
)

// PriorityWeight clamps Weight to [1,5]; unset weights are 1.
func (p Participant) PriorityWeight() int {
	switch {
	case p.Weight < MinWeight:
		return MinWeight
	case p.Weight > MaxWeight:
		return MaxWeight
	default:
		return p.Weight
	}
}
