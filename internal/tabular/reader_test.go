package tabular

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestReadCSV(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  [][]string
	}{
		{
			name:  "plain rows",
			input: "Name,Duration\nAli Khan,40\nSara Ahmed,12\n",
			want: [][]string{
				{"Name", "Duration"},
				{"Ali Khan", "40"},
				{"Sara Ahmed", "12"},
			},
		},
		{
			name:  "quoted comma stays literal",
			input: "Name,Duration,Join,Leave\n\"Smith, John\",45,\"09:00\",\"09:45\"",
			want: [][]string{
				{"Name", "Duration", "Join", "Leave"},
				{"Smith, John", "45", "09:00", "09:45"},
			},
		},
		{
			name:  "blank lines and CRLF discarded",
			input: "Name,Duration\r\n\r\nAli,30\r\n\n",
			want: [][]string{
				{"Name", "Duration"},
				{"Ali", "30"},
			},
		},
		{
			name:  "header only yields empty set",
			input: "Name,Duration\n",
			want:  nil,
		},
		{
			name:  "empty file yields empty set",
			input: "",
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := Read(strings.NewReader(tt.input), "participants.csv")
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			assertRows(t, rows, tt.want)
		})
	}
}

func TestReadUnsupportedExtension(t *testing.T) {
	_, err := Read(strings.NewReader("a,b\nc,d"), "participants.pdf")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("Read() error = %v, want ErrUnsupportedFormat", err)
	}
}

// A supported extension over an undecodable payload is a bad file, not an
// unsupported format and not a collaborator failure.
func TestReadCorruptWorkbook(t *testing.T) {
	// OLE/CFB container signature followed by garbage, the shape a truncated
	// legacy export arrives in.
	cfb := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, bytes.Repeat([]byte{0x00}, 4096)...)

	tests := []struct {
		name     string
		filename string
		payload  []byte
	}{
		{"garbage xlsx", "export.xlsx", []byte("this is not a zip archive")},
		{"truncated xls container", "export.xls", cfb},
		{"garbage xls", "export.xls", []byte("not a workbook at all")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(tt.payload), tt.filename)
			if !errors.Is(err, ErrBadFile) {
				t.Fatalf("Read() error = %v, want ErrBadFile", err)
			}
		})
	}
}

func TestReadWorkbook(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	cells := [][]interface{}{
		{"Participant", "Time in Meeting"},
		{"Ali Khan", "35 mins"},
		{"Sara Ahmed", 12},
	}
	for i, row := range cells {
		addr, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, addr, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}

	rows, err := Read(&buf, "export.xlsx")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Read() rows = %d, want 3", len(rows))
	}
	if rows[1][0] != "Ali Khan" || rows[1][1] != "35 mins" {
		t.Errorf("row 1 = %v, want [Ali Khan, 35 mins]", rows[1])
	}
	if rows[2][1] != "12" {
		t.Errorf("numeric cell = %q, want \"12\"", rows[2][1])
	}
}

func TestReadWorkbookHeaderOnly(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	header := []interface{}{"Name", "Duration"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		t.Fatalf("SetSheetRow: %v", err)
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}

	rows, err := Read(&buf, "export.xlsx")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("Read() rows = %d, want 0", len(rows))
	}
}

func assertRows(t *testing.T, got []Row, want [][]string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("rows = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if len(got[i]) != len(want[i]) {
			t.Fatalf("row %d = %v, want %v", i, got[i], want[i])
		}
		for j := range want[i] {
			if got[i][j] != want[i][j] {
				t.Errorf("row %d cell %d = %q, want %q", i, j, got[i][j], want[i][j])
			}
		}
	}
}
