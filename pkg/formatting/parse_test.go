package formatting_test

import (
	"errors"
	"testing"
	"time"

	"github.com/private-doc-vault/docvault/pkg/formatting"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "ISO date",
			input: "2024-03-15",
			want:  time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "RFC3339",
			input: "2024-03-15T10:30:00Z",
			want:  time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name:  "slash separated",
			input: "2024/03/15",
			want:  time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "US format",
			input: "03/15/2024",
			want:  time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "dotted European format",
			input: "15.03.2024",
			want:  time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "long month name",
			input: "March 15, 2024",
			want:  time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "surrounding whitespace",
			input: "  2024-03-15  ",
			want:  time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "garbage",
			input:   "not a date",
			wantErr: true,
		},
		{
			name:    "partial date",
			input:   "2024-03",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatting.ParseDate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDate(%q) expected error, got %v", tt.input, got)
				}
				if !errors.Is(err, formatting.ErrParseFailed) {
					t.Errorf("ParseDate(%q) error = %v, want ErrParseFailed", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDate(%q) unexpected error: %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCollapseWhitespace(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already collapsed", "invoice total due", "invoice total due"},
		{"runs of spaces", "invoice   total    due", "invoice total due"},
		{"tabs and newlines", "invoice\ttotal\n\ndue", "invoice total due"},
		{"leading and trailing", "  invoice total due \n", "invoice total due"},
		{"empty", "", ""},
		{"whitespace only", " \t\n ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatting.CollapseWhitespace(tt.input); got != tt.want {
				t.Errorf("CollapseWhitespace(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
