package phomemo

import "testing"

func TestDecodeStatus(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Status
	}{
		// Lid open and paper-out bit both set.
		{"lid_open_no_paper", []byte{0x1A, 0x00, 0x11}, Status{LidOpen: true, PaperPresent: false}},
		{"all_clear", []byte{0x1A, 0x00, 0x00}, Status{LidOpen: false, PaperPresent: true}},
		{"lid_open_only", []byte{0x1A, 0x00, 0x01}, Status{LidOpen: true, PaperPresent: true}},
		{"paper_out_only", []byte{0x1A, 0x00, 0x10}, Status{LidOpen: false, PaperPresent: false}},
		// Unrelated bits are ignored.
		{"extra_bits", []byte{0x1A, 0x7F, 0xEE}, Status{LidOpen: false, PaperPresent: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeStatus(tt.data)
			if err != nil {
				t.Fatalf("DecodeStatus(% X) failed: %v", tt.data, err)
			}
			if got != tt.want {
				t.Errorf("DecodeStatus(% X) = %+v, want %+v", tt.data, got, tt.want)
			}
		})
	}
}

func TestDecodeStatus_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"wrong_marker", []byte{0x1B, 0x00, 0x00}},
		{"too_short", []byte{0x1A, 0x00}},
		{"empty", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeStatus(tt.data); err == nil {
				t.Errorf("DecodeStatus(% X) = nil error, want ErrNotStatus", tt.data)
			}
		})
	}
}

func TestStatusProblem(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		want   string
	}{
		{"ready", Status{PaperPresent: true}, ""},
		{"no_paper", Status{PaperPresent: false}, "out of paper"},
		{"lid_open", Status{LidOpen: true, PaperPresent: true}, "lid open"},
		// Lid takes priority when both conditions hold.
		{"lid_open_and_no_paper", Status{LidOpen: true, PaperPresent: false}, "lid open"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Problem(); got != tt.want {
				t.Errorf("Problem() = %q, want %q", got, tt.want)
			}
		})
	}
}
