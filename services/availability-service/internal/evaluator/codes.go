package evaluator

// Code classifies a candidate window, or a whole day when it short-circuits.
type Code string

const (
	CodeNoHost         Code = "NOHOST"
	CodePast           Code = "PAST"
	CodeTooSoon        Code = "TOOSOON"
	CodeTooLate        Code = "TOOLATE"
	CodeOutsideHours   Code = "OUTSIDEHOURS"
	CodeNoAvailability Code = "NOAVAILABILITY"
	CodeNoCalendar     Code = "NOCAL"
	CodeCalendar       Code = "CALENDAR"
	CodeDailyMax       Code = "DAILYMAX"
	CodeWeeklyMax      Code = "WEEKLYMAX"
	CodeBooked         Code = "BOOKED"
	CodeBuffer         Code = "BUFFER"
	CodeAvailable      Code = "AVAILABLE"
)

// order is the evaluation order of the checks. It also breaks ties in summaries.
var order = []Code{
	CodeNoHost,
	CodePast,
	CodeTooSoon,
	CodeTooLate,
	CodeOutsideHours,
	CodeNoAvailability,
	CodeNoCalendar,
	CodeCalendar,
	CodeDailyMax,
	CodeWeeklyMax,
	CodeBooked,
	CodeBuffer,
	CodeAvailable,
}

var reasons = map[Code]string{
	CodeNoHost:         "The event has no host assigned.",
	CodePast:           "This time has already passed.",
	CodeTooSoon:        "This time is inside the minimum booking notice.",
	CodeTooLate:        "This time is beyond how far ahead the event can be booked.",
	CodeOutsideHours:   "No host has availability covering this time.",
	CodeNoAvailability: "No host has any availability configured.",
	CodeNoCalendar:     "No host has a connected calendar to confirm this time.",
	CodeCalendar:       "Every available host has a calendar conflict at this time.",
	CodeDailyMax:       "The host has reached the daily meeting limit.",
	CodeWeeklyMax:      "The host has reached the weekly meeting limit.",
	CodeBooked:         "This time overlaps an existing booking.",
	CodeBuffer:         "This time falls inside the buffer around an existing booking.",
	CodeAvailable:      "This time can be booked.",
}

// Reason is the admin-facing explanation of the code.
func (c Code) Reason() string {
	if r, ok := reasons[c]; ok {
		return r
	}
	return "Unknown reason."
}

// Rank is the position of the code in the evaluation order; unknown codes sort last.
func (c Code) Rank() int {
	for i, o := range order {
		if o == c {
			return i
		}
	}
	return len(order)
}

// DayLevel reports whether the code can stand for a whole day.
func (c Code) DayLevel() bool {
	return c == CodeNoHost || c == CodeNoAvailability || c == CodeOutsideHours
}

// ParseCode accepts any known code.
func ParseCode(s string) (Code, bool) {
	c := Code(s)
	_, ok := reasons[c]
	return c, ok
}
