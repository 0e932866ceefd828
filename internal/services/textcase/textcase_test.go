package textcase

import (
	"testing"

	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"github.com/phambaophuc/convert-toolkit/internal/models"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name string
		mode models.TextCase
		in   string
		want string
	}{
		{"upper", models.CaseUpper, "Olá mundo", "OLÁ MUNDO"},
		{"lower", models.CaseLower, "ÇA VA", "ça va"},
		{"sentence", models.CaseSentence, "hELLO there. how ARE you?  fine!ok", "Hello there. How are you?  Fine!Ok"},
		{"sentence leading space", models.CaseSentence, "   first words", "   First words"},
		{"title keeps inner case", models.CaseTitle, "hello wORLD, it's me", "Hello WORLD, It'S Me"},
		{"toggle", models.CaseToggle, "Hello World 1", "hELLO wORLD 1"},
		{"alternating skips non letters", models.CaseAlternating, "ab c-d", "Ab C-d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.in, tt.mode)
			if err != nil {
				t.Fatalf("Convert returned error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Convert(%q, %s) = %q, want %q", tt.in, tt.mode, got, tt.want)
			}
		})
	}
}

func TestConvertUnknownMode(t *testing.T) {
	if _, err := Convert("x", "snake"); !apperrors.Is(err, apperrors.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStats(t *testing.T) {
	got := Stats("Olá mundo\n  dois  ")
	want := models.TextStats{Characters: 18, CharactersNoSpace: 12, Words: 3, Lines: 2}
	if got != want {
		t.Fatalf("Stats() = %+v, want %+v", got, want)
	}
	if empty := Stats(""); empty != (models.TextStats{}) {
		t.Fatalf("expected zero stats for empty text, got %+v", empty)
	}
}
