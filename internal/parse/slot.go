package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	clockRe    = regexp.MustCompile(`^(\d{2}):(\d{2})$`)
	slotRe     = regexp.MustCompile(`^(\d{2}:\d{2})-(\d{2}:\d{2})$`)
	idSplitRe  = regexp.MustCompile(`[,\s]+`)
	dateLayout = "2006-01-02"
)

// TimeSlot is a same-day window of wall-clock times in HH:mm form.
type TimeSlot struct {
	Start string
	End   string
}

// String renders the slot as HH:mm-HH:mm.
func (s TimeSlot) String() string {
	return s.Start + "-" + s.End
}

// Clock validates a HH:mm time of day.
func Clock(raw string) error {
	m := clockRe.FindStringSubmatch(raw)
	if m == nil {
		return fmt.Errorf("time %q is not in HH:mm form", raw)
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	if h > 23 || mm > 59 {
		return fmt.Errorf("time %q is out of range", raw)
	}
	return nil
}

// Window validates start and end times and requires end to be later than start.
// Zero-padded HH:mm strings order lexicographically the same way they order chronologically.
func Window(start, end string) error {
	if err := Clock(start); err != nil {
		return err
	}
	if err := Clock(end); err != nil {
		return err
	}
	if end <= start {
		return fmt.Errorf("end time %s must be later than start time %s", end, start)
	}
	return nil
}

// ParseTimeSlot parses "HH:mm-HH:mm" with end later than start.
func ParseTimeSlot(raw string) (TimeSlot, error) {
	m := slotRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return TimeSlot{}, fmt.Errorf("time slot %q must use format HH:mm-HH:mm (e.g., 10:00-12:00)", raw)
	}
	if err := Window(m[1], m[2]); err != nil {
		return TimeSlot{}, fmt.Errorf("time slot %q: %w", raw, err)
	}
	return TimeSlot{Start: m[1], End: m[2]}, nil
}

// Date validates a YYYY-MM-DD calendar date.
func Date(raw string) error {
	if _, err := time.Parse(dateLayout, raw); err != nil {
		return fmt.Errorf("date %q is not a valid YYYY-MM-DD date", raw)
	}
	return nil
}

// ParseSystemIDs parses a free-form list such as "1, 2 15" into system ids.
func ParseSystemIDs(raw string) ([]int, error) {
	var ids []int
	var bad []string
	for _, tok := range idSplitRe.Split(strings.TrimSpace(raw), -1) {
		if tok == "" {
			continue
		}
		n, err := strconv.Atoi(tok)
		if err != nil || n < 1 {
			bad = append(bad, tok)
			continue
		}
		ids = append(ids, n)
	}
	if len(bad) > 0 {
		return nil, fmt.Errorf("invalid system numbers: %s", strings.Join(bad, ", "))
	}
	return ids, nil
}

// Distinct drops repeated ids while keeping first-seen order.
func Distinct(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
