package reconcile

import (
	"strings"

	"github.com/zaakiraza/khd-adminPanel-sub000/internal/tabular"
)

// Participant is one attendee row extracted from an uploaded meeting export.
// Name is never empty; rows without a name are dropped during parsing.
type Participant struct {
	Name            string   `json:"name"`
	DurationMinutes int      `json:"durationMinutes"`
	JoinTime        string   `json:"joinTime,omitempty"`
	LeaveTime       string   `json:"leaveTime,omitempty"`
	SourceRow       []string `json:"-"`
}

// columnLayout holds the detected column index per role; -1 means the export
// does not carry that column.
type columnLayout struct {
	name     int
	duration int
	join     int
	leave    int
}

// detectColumns assigns column roles by case-insensitive substring match on
// the header cells. Zoom and Meet exports use different header wording, hence
// the synonym lists. The name column falls back to column 0.
func detectColumns(header tabular.Row) columnLayout {
	layout := columnLayout{name: 0, duration: -1, join: -1, leave: -1}
	nameFound := false
	for i, cell := range header {
		h := strings.ToLower(strings.TrimSpace(cell))
		switch {
		case !nameFound && (strings.Contains(h, "name") || strings.Contains(h, "participant")):
			layout.name = i
			nameFound = true
		case layout.duration < 0 && (strings.Contains(h, "duration") || strings.Contains(h, "time in meeting")):
			layout.duration = i
		case layout.join < 0 && (strings.Contains(h, "join time") || strings.Contains(h, "joined")):
			layout.join = i
		case layout.leave < 0 && (strings.Contains(h, "leave time") || strings.Contains(h, "left")):
			layout.leave = i
		}
	}
	return layout
}

// ParseParticipants maps decoded rows to participants. Row 0 is the header;
// data rows with no usable name are skipped outright.
func ParseParticipants(rows []tabular.Row) []Participant {
	if len(rows) < 2 {
		return nil
	}
	layout := detectColumns(rows[0])

	var participants []Participant
	for _, row := range rows[1:] {
		if layout.name >= len(row) {
			continue // malformed row, shorter than the header promised
		}
		name := cleanCell(row[layout.name])
		if name == "" {
			continue
		}
		participants = append(participants, Participant{
			Name:            name,
			DurationMinutes: ParseDuration(cellAt(row, layout.duration)),
			JoinTime:        cleanCell(cellAt(row, layout.join)),
			LeaveTime:       cleanCell(cellAt(row, layout.leave)),
			SourceRow:       row,
		})
	}
	return participants
}

func cellAt(row tabular.Row, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func cleanCell(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"`))
}
