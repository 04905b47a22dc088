package filename

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var canonicalDate = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`)

func fixedParser() *Parser {
	return &Parser{Now: func() time.Time {
		return time.Date(2025, time.March, 7, 15, 4, 5, 0, time.Local)
	}}
}

const fixedToday = "03-07-2025"

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		entity   string
		date     string
		fallback FallbackReason
	}{
		{"Month-first digits", "JohnEastern 08152024.xlsx", "JohnEastern", "08-15-2024", FallbackNone},
		{"ISO date", "JohnEastern 2023-01-01.xlsx", "JohnEastern", "01-01-2023", FallbackNone},
		{"Year-first digits", "Report_20240815.csv", "Report_", "08-15-2024", FallbackNone},
		{"No date", "NoDateHere.xlsx", "NoDateHere", fixedToday, FallbackNoMatch},
		{"Dotted date", "Acme Claims 08.15.2024.xlsx", "Acme Claims", "08-15-2024", FallbackNone},
		{"Dotted single digits", "Acme 8.5.2024.xlsx", "Acme", "08-05-2024", FallbackNone},
		{"Short dashed date", "Acme 8-15-2024.xlsx", "Acme", "08-15-2024", FallbackNone},
		{"Ten char dashed month-first is read as ISO", "Acme 08-15-2024.xlsx", "Acme 08-15-2024", fixedToday, FallbackInvalidDate},
		{"Seven digit run", "Acme 8152024.xlsx", "Acme", "08-15-2024", FallbackNone},
		{"Six digit run", "Acme 112024.xlsx", "Acme", "01-01-2024", FallbackNone},
		{"Invalid calendar day", "Acme 02302024.xlsx", "Acme 02302024", fixedToday, FallbackInvalidDate},
		{"Invalid year-first month", "Acme 20241315.xlsx", "Acme 20241315", fixedToday, FallbackInvalidDate},
		{"Zero month", "Acme 00152024.xlsx", "Acme 00152024", fixedToday, FallbackInvalidDate},
		{"Year zero", "Acme 01010000.xlsx", "Acme 01010000", fixedToday, FallbackInvalidDate},
		{"ISO year zero", "Acme 0000-01-01.xlsx", "Acme 0000-01-01", fixedToday, FallbackInvalidDate},
		{"Leap day", "Acme 02292024.xlsx", "Acme", "02-29-2024", FallbackNone},
		{"No extension", "JohnEastern 08152024", "JohnEastern", "08-15-2024", FallbackNone},
		{"Only last extension removed", "claims.2024.backup.xlsx", "claims.2024.backup", fixedToday, FallbackNoMatch},
		{"Date only", "08152024.xlsx", "", "08-15-2024", FallbackNone},
		{"Empty", "", "", fixedToday, FallbackNoMatch},
		{"Whitespace trimmed", "  Acme  .xlsx", "Acme", fixedToday, FallbackNoMatch},
		{"Repeated date removed everywhere", "A 08152024 B 08152024.xlsx", "A  B", "08-15-2024", FallbackNone},
		{"Dotted wins over digits", "20240101 Acme 1.2.2023.xlsx", "20240101 Acme", "01-02-2023", FallbackNone},
	}

	p := fixedParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Parse(tt.input)
			assert.Equal(t, tt.entity, got.EntityName)
			assert.Equal(t, tt.date, got.Date)
			assert.Equal(t, tt.fallback, got.Fallback)
		})
	}
}

func TestParseAlwaysCanonical(t *testing.T) {
	inputs := []string{
		"", ".", "..", "x.", ".xlsx", "99999999", "12-12-12", "1.1.1",
		"2024-13-45.xlsx", "Report 31.12.2024.xlsx", "abc 123456789012.csv",
		"TPA_2024-02-29_final.xlsx", "weird -- name 00000000",
	}
	p := fixedParser()
	for _, in := range inputs {
		got := p.Parse(in)
		assert.Regexp(t, canonicalDate, got.Date, "input %q", in)
	}
}

func TestParseIdempotentOnEntityName(t *testing.T) {
	p := fixedParser()
	for _, in := range []string{"JohnEastern 08152024.xlsx", "Report_20240815.csv", "JohnEastern 2023-01-01.xlsx"} {
		first := p.Parse(in)
		second := p.Parse(first.EntityName)
		assert.Equal(t, first.EntityName, second.EntityName, "input %q", in)
		assert.Equal(t, fixedToday, second.Date)
		assert.Equal(t, FallbackNoMatch, second.Fallback)
	}
}

func TestParseUsesWallClock(t *testing.T) {
	before := time.Now().Format(DateLayout)
	got := Parse("NoDateHere.xlsx")
	after := time.Now().Format(DateLayout)

	assert.Equal(t, "NoDateHere", got.EntityName)
	assert.Contains(t, []string{before, after}, got.Date)
	assert.True(t, got.UsedFallback())
}

func TestRemoveExtension(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"file.xlsx", "file"},
		{"file", "file"},
		{"a.b.c", "a.b"},
		{"trailing.", "trailing."},
		{".hidden", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, RemoveExtension(tt.input))
		})
	}
}

func TestFallbackReasonString(t *testing.T) {
	assert.Equal(t, "none", FallbackNone.String())
	assert.Equal(t, "no date found in filename", FallbackNoMatch.String())
	assert.Equal(t, "date in filename is not a valid calendar date", FallbackInvalidDate.String())
}
