package reconcile

import (
	"strings"

	"github.com/zaakiraza/khd-adminPanel-sub000/internal/backendapi"
)

// Status is a per-student attendance decision.
type Status string

const (
	StatusPresent Status = "present"
	StatusLate    Status = "late"
	StatusAbsent  Status = "absent"
)

// presentThresholdMinutes is the minimum meeting time that counts as fully
// present. Fixed; the admin panel exposes no knob for it.
const presentThresholdMinutes = 30

// ValidStatus reports whether s is an accepted attendance status.
func ValidStatus(s Status) bool {
	return s == StatusPresent || s == StatusLate || s == StatusAbsent
}

// Classify derives the default status from minutes spent in the meeting.
// Reviewers may override the result afterwards.
func Classify(minutes int) Status {
	if minutes >= presentThresholdMinutes {
		return StatusPresent
	}
	if minutes > 0 {
		return StatusLate
	}
	return StatusAbsent
}

// MatchResult is the reconciliation decision for one enrolled student. An
// empty ZoomName means the student did not appear in the uploaded file.
type MatchResult struct {
	Student         backendapi.Student `json:"student"`
	ZoomName        string             `json:"zoomName,omitempty"`
	DurationMinutes int                `json:"durationMinutes"`
	JoinTime        string             `json:"joinTime,omitempty"`
	LeaveTime       string             `json:"leaveTime,omitempty"`
	Status          Status             `json:"status"`
	ManualOverride  *Status            `json:"manualOverride,omitempty"`
}

// EffectiveStatus is what gets persisted: the reviewer's override when set,
// otherwise the derived status.
func (r *MatchResult) EffectiveStatus() Status {
	if r.ManualOverride != nil {
		return *r.ManualOverride
	}
	return r.Status
}

// MatchOutcome is the full result of reconciling one participant list
// against one roster: exactly one MatchResult per roster student, plus the
// participant names that could not be placed.
type MatchOutcome struct {
	Results        []*MatchResult `json:"results"`
	UnmatchedNames []string       `json:"unmatchedNames"`
}

// MatchRoster reconciles parsed participants against the class roster.
// Deterministic for the same two input lists: exact lookup first, then an
// ordered bidirectional substring scan; each student is consumed at most
// once, and every roster student ends up with a result (absent when nobody
// matched them).
func MatchRoster(participants []Participant, roster []backendapi.Student) MatchOutcome {
	lookup := buildLookup(roster)
	consumed := make(map[string]bool, len(roster))
	matched := make(map[string]*MatchResult, len(roster))
	var unmatched []string

	for _, p := range participants {
		idx, ok := lookup[strings.ToLower(strings.TrimSpace(p.Name))]
		if !ok {
			idx, ok = substringScan(p.Name, roster)
		}
		if !ok || consumed[roster[idx].ID] {
			// Nobody on the roster fits, or a second participant resolved to
			// an already-matched student.
			unmatched = append(unmatched, p.Name)
			continue
		}
		student := roster[idx]
		consumed[student.ID] = true
		matched[student.ID] = &MatchResult{
			Student:         student,
			ZoomName:        p.Name,
			DurationMinutes: p.DurationMinutes,
			JoinTime:        p.JoinTime,
			LeaveTime:       p.LeaveTime,
			Status:          Classify(p.DurationMinutes),
		}
	}

	results := make([]*MatchResult, 0, len(roster))
	for _, student := range roster {
		if r, ok := matched[student.ID]; ok {
			results = append(results, r)
			continue
		}
		// Absence is set explicitly, not derived from the zero duration.
		results = append(results, &MatchResult{Student: student, Status: StatusAbsent})
	}
	return MatchOutcome{Results: results, UnmatchedNames: unmatched}
}

// buildLookup registers "first last", "first" and "last first" per student,
// lower-cased. On key collisions the first-registered student keeps the key,
// i.e. roster order decides.
func buildLookup(roster []backendapi.Student) map[string]int {
	lookup := make(map[string]int, len(roster)*3)
	register := func(key string, idx int) {
		if _, exists := lookup[key]; !exists {
			lookup[key] = idx
		}
	}
	for i, s := range roster {
		first := strings.ToLower(strings.TrimSpace(s.FirstName))
		last := strings.ToLower(strings.TrimSpace(s.LastName))
		register(first+" "+last, i)
		register(first, i)
		register(last+" "+first, i)
	}
	return lookup
}

// substringScan is the fuzzy fallback: the first roster student whose first,
// last or full name contains — or is contained in — the participant name
// wins. Order-dependent on purpose; callers rely on roster order as the
// tie-break.
func substringScan(participantName string, roster []backendapi.Student) (int, bool) {
	pname := strings.ToLower(strings.TrimSpace(participantName))
	for i, s := range roster {
		first := strings.ToLower(strings.TrimSpace(s.FirstName))
		last := strings.ToLower(strings.TrimSpace(s.LastName))
		full := first + " " + last
		for _, candidate := range []string{first, last, full} {
			if candidate == "" {
				continue
			}
			if strings.Contains(pname, candidate) || strings.Contains(candidate, pname) {
				return i, true
			}
		}
	}
	return 0, false
}
