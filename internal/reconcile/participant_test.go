package reconcile

import (
	"testing"

	"github.com/zaakiraza/khd-adminPanel-sub000/internal/tabular"
)

func TestParseParticipants(t *testing.T) {
	rows := []tabular.Row{
		{"Participant Name", "Duration (Minutes)", "Join Time", "Leave Time"},
		{"Ali Khan", "40 mins", "09:00 AM", "09:45 AM"},
		{"  Sara Ahmed  ", "1:05:30", `"09:02 AM"`, ""},
		{"", "15", "09:10 AM", "09:25 AM"}, // no name, dropped
		{"Short Row"},                      // no duration cells, still valid
	}

	got := ParseParticipants(rows)
	if len(got) != 3 {
		t.Fatalf("ParseParticipants() = %d participants, want 3", len(got))
	}

	if got[0].Name != "Ali Khan" || got[0].DurationMinutes != 40 {
		t.Errorf("participant 0 = %+v", got[0])
	}
	if got[0].JoinTime != "09:00 AM" || got[0].LeaveTime != "09:45 AM" {
		t.Errorf("participant 0 times = %q / %q", got[0].JoinTime, got[0].LeaveTime)
	}
	if got[1].Name != "Sara Ahmed" {
		t.Errorf("participant 1 name = %q, want trimmed", got[1].Name)
	}
	if got[1].DurationMinutes != 65 {
		t.Errorf("participant 1 duration = %d, want 65", got[1].DurationMinutes)
	}
	if got[1].JoinTime != "09:02 AM" {
		t.Errorf("participant 1 join = %q, want quotes stripped", got[1].JoinTime)
	}
	if got[2].Name != "Short Row" || got[2].DurationMinutes != 0 {
		t.Errorf("participant 2 = %+v", got[2])
	}
}

func TestParseParticipantsHeaderSynonyms(t *testing.T) {
	tests := []struct {
		name   string
		rows   []tabular.Row
		expect Participant
	}{
		{
			name: "zoom style headers",
			rows: []tabular.Row{
				{"Name (Original Name)", "User Email", "Time in Meeting"},
				{"Ali Khan", "ali@example.com", "35"},
			},
			expect: Participant{Name: "Ali Khan", DurationMinutes: 35},
		},
		{
			name: "joined and left headers",
			rows: []tabular.Row{
				{"Participant", "Joined At", "Left At"},
				{"Ali Khan", "09:00", "09:40"},
			},
			expect: Participant{Name: "Ali Khan", JoinTime: "09:00", LeaveTime: "09:40"},
		},
		{
			name: "no recognizable headers defaults name to column 0",
			rows: []tabular.Row{
				{"col_a", "col_b"},
				{"Ali Khan", "whatever"},
			},
			expect: Participant{Name: "Ali Khan"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseParticipants(tt.rows)
			if len(got) != 1 {
				t.Fatalf("got %d participants, want 1", len(got))
			}
			p := got[0]
			if p.Name != tt.expect.Name || p.DurationMinutes != tt.expect.DurationMinutes ||
				p.JoinTime != tt.expect.JoinTime || p.LeaveTime != tt.expect.LeaveTime {
				t.Errorf("participant = %+v, want %+v", p, tt.expect)
			}
		})
	}
}

func TestParseParticipantsNameColumnBeyondRow(t *testing.T) {
	rows := []tabular.Row{
		{"Email", "Duration", "Name"},
		{"x@example.com", "30"}, // name column index 2 out of range
		{"y@example.com", "20", "Sara Ahmed"},
	}
	got := ParseParticipants(rows)
	if len(got) != 1 || got[0].Name != "Sara Ahmed" {
		t.Fatalf("ParseParticipants() = %+v, want only Sara Ahmed", got)
	}
}

func TestParseParticipantsHeaderOnly(t *testing.T) {
	if got := ParseParticipants([]tabular.Row{{"Name", "Duration"}}); len(got) != 0 {
		t.Fatalf("ParseParticipants() = %+v, want none", got)
	}
}
