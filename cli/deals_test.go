package cli

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestClip(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"2015 Honda Civic", 30, "2015 Honda Civic"},
		{"2016 Toyota Corolla LE Low Miles", 20, "2016 Toyota Corol..."},
		{"éééééééééééééééééééé", 15, "éééééééééééé..."},
		{"Citroën C4 Picasso", 18, "Citroën C4 Picasso"},
	}
	for _, tt := range tests {
		got := clip(tt.in, tt.n)
		if got != tt.want {
			t.Errorf("clip(%q, %d) = %q; want %q", tt.in, tt.n, got, tt.want)
		}
		assert.True(t, utf8.ValidString(got))
		assert.LessOrEqual(t, utf8.RuneCountInString(got), tt.n)
	}
}
