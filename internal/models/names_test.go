package models

import "testing"

func TestNormalizeTerm(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "Paris", "paris"},
		{"collapse whitespace", "  Aberdeen,\n  Scotland ", "aberdeen, scotland"},
		{"tabs", "Thomas\tJefferson", "thomas jefferson"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTerm(tt.in); got != tt.want {
				t.Errorf("NormalizeTerm(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStripParenthetical(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Jefferson, Thomas (1743-1826)", "Jefferson, Thomas"},
		{"Monticello (Va.) estate", "Monticello estate"},
		{"(see also) slavery", "slavery"},
		{"no parentheses", "no parentheses"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := StripParenthetical(tt.in); got != tt.want {
				t.Errorf("StripParenthetical(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestConvertName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Jefferson, Thomas", "Thomas Jefferson"},
		{"middle names", "Madison, James Jr.", "James Jr. Madison"},
		{"title", "Lafayette, Baron Henri", "Baron Henri de Lafayette"},
		{"two titles", "Buffon, Count de Georges", "Count de Georges de Buffon"},
		{"no comma", "Benjamin Franklin", "Benjamin Franklin"},
		{"too many parts", "Lafayette, Gilbert, marquis de", "Lafayette, Gilbert, marquis de"},
		{"title substring ignored", "Smith, Frederick", "Frederick Smith"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConvertName(tt.in); got != tt.want {
				t.Errorf("ConvertName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLabel(t *testing.T) {
	tests := []struct {
		in     string
		want   Label
		wantOK bool
	}{
		{"PERSON", LabelPerson, true},
		{" Place ", LabelPlace, true},
		{"GPE", LabelPlace, true},
		{"ORGANIZATION", LabelOrganization, true},
		{"term", LabelTerm, true},
		{"Unknown", LabelUnclassified, false},
		{"", LabelUnclassified, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLabel(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseLabel(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
