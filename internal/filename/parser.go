// =============================================================================
// TPA Claim Loader - Filename Metadata Parser
// =============================================================================
//
// TPA exports arrive with names like "JohnEastern 08152024.xlsx" or
// "Report_20240815.csv". This package pulls the TPA (entity) name and the
// export date out of such a name and normalizes the date to MM-DD-YYYY.
//
// PARSING STEPS:
//   1. Strip the final ".<extension>" suffix.
//   2. Search for a date using an ordered list of patterns; first match wins.
//   3. Remove the matched text; what is left (trimmed) is the entity name.
//   4. Interpret the matched text according to which separators it carries.
//   5. If nothing matched, or the match is not a real calendar date, use
//      today's date and leave the name untouched.
//
// Parsing never fails. The reason a fallback date was used is kept on the
// result so callers can log it.
//
// =============================================================================

package filename

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical output format (MM-DD-YYYY).
const DateLayout = "01-02-2006"

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// FallbackReason explains why the current date was substituted.
type FallbackReason int

const (
	// FallbackNone means the date came from the filename.
	FallbackNone FallbackReason = iota

	// FallbackNoMatch means no date pattern matched the filename.
	FallbackNoMatch

	// FallbackInvalidDate means a pattern matched but the text is not a real
	// calendar date under its inferred layout.
	FallbackInvalidDate
)

func (r FallbackReason) String() string {
	switch r {
	case FallbackNone:
		return "none"
	case FallbackNoMatch:
		return "no date found in filename"
	case FallbackInvalidDate:
		return "date in filename is not a valid calendar date"
	default:
		return "unknown"
	}
}

// Metadata is the (entity name, date) pair extracted from a filename.
type Metadata struct {
	// EntityName is the filename without extension and date, trimmed.
	// It may be empty.
	EntityName string

	// Date is always a valid MM-DD-YYYY string.
	Date string

	// MatchedText is the substring recognized as a date, or "" when none was.
	MatchedText string

	// Fallback is FallbackNone when Date was read from the filename.
	Fallback FallbackReason
}

// UsedFallback reports whether Date is the current date rather than a date
// read from the filename.
func (m Metadata) UsedFallback() bool {
	return m.Fallback != FallbackNone
}

// =============================================================================
// DATE PATTERNS
// =============================================================================

// datePattern is one recognizer in the ordered search list.
type datePattern struct {
	name string
	re   *regexp.Regexp
}

// datePatterns are tried in order. Delimited forms come before the bare digit
// run so that a name like "2024-08-15" is never split by the digit scan.
var datePatterns = []datePattern{
	{name: "MM.DD.YYYY", re: regexp.MustCompile(`\d{1,2}\.\d{1,2}\.\d{4}`)},
	{name: "MM-DD-YYYY", re: regexp.MustCompile(`\d{1,2}-\d{1,2}-\d{4}`)},
	// MMDDYYYY and YYYYMMDD share one scan; disambiguateDate tells them apart.
	{name: "digits", re: regexp.MustCompile(`\d{6,8}`)},
	{name: "YYYY-MM-DD", re: regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)},
}

var extensionPattern = regexp.MustCompile(`\.[^.]+$`)

// =============================================================================
// PARSER
// =============================================================================

// Parser extracts Metadata from filenames. The zero value is not usable;
// create one with NewParser.
type Parser struct {
	// Now supplies the fallback date.
	Now func() time.Time
}

// NewParser returns a Parser whose fallback date is the wall-clock date.
func NewParser() *Parser {
	return &Parser{Now: time.Now}
}

// Parse extracts Metadata from raw using the wall-clock fallback date.
func Parse(raw string) Metadata {
	return NewParser().Parse(raw)
}

// Parse extracts the entity name and normalized date from raw.
func (p *Parser) Parse(raw string) Metadata {
	stem := RemoveExtension(raw)

	matched, name := findDate(stem)
	if matched == "" {
		return p.fallback(stem, "", FallbackNoMatch)
	}

	date, ok := disambiguateDate(matched)
	if !ok {
		return p.fallback(stem, matched, FallbackInvalidDate)
	}

	return Metadata{
		EntityName:  name,
		Date:        date.Format(DateLayout),
		MatchedText: matched,
		Fallback:    FallbackNone,
	}
}

func (p *Parser) fallback(stem, matched string, reason FallbackReason) Metadata {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return Metadata{
		EntityName:  strings.TrimSpace(stem),
		Date:        now().Format(DateLayout),
		MatchedText: matched,
		Fallback:    reason,
	}
}

// RemoveExtension strips the last ".<ext>" suffix. A name with no dot is
// returned unchanged.
func RemoveExtension(name string) string {
	return extensionPattern.ReplaceAllString(name, "")
}

// findDate returns the first substring matched by datePatterns and the stem
// with every occurrence of that substring removed and trimmed.
func findDate(stem string) (matched, rest string) {
	for _, p := range datePatterns {
		if m := p.re.FindString(stem); m != "" {
			return m, strings.TrimSpace(strings.ReplaceAll(stem, m, ""))
		}
	}
	return "", stem
}

// disambiguateDate picks a layout from the separators in s and parses it.
func disambiguateDate(s string) (time.Time, bool) {
	switch {
	case strings.Contains(s, "-"):
		// A ten character dashed date is read as ISO, so "08-15-2024" is
		// rejected here and takes the fallback.
		if len(s) == 10 {
			return parseLayout("2006-01-02", s)
		}
		return parseLayout("1-2-2006", s)
	case strings.Contains(s, "."):
		return parseLayout("1.2.2006", s)
	case len(s) == 8 && isDigits(s):
		// A leading value above 12 cannot be a month, so it is a year prefix.
		if lead, _ := strconv.Atoi(s[:2]); lead <= 12 {
			return parseCompactMonthFirst(s)
		}
		return parseLayout("20060102", s)
	default:
		return parseCompactMonthFirst(s)
	}
}

func parseLayout(layout, s string) (time.Time, bool) {
	t, err := time.Parse(layout, s)
	if err != nil || t.Year() < 1 {
		return time.Time{}, false
	}
	return t, true
}

// parseCompactMonthFirst reads an undelimited month-day-year run whose year is
// the last four digits and whose month and day are one or two digits each.
// A two digit month is preferred over a one digit month.
func parseCompactMonthFirst(s string) (time.Time, bool) {
	if len(s) < 6 || len(s) > 8 || !isDigits(s) {
		return time.Time{}, false
	}
	year, _ := strconv.Atoi(s[len(s)-4:])
	prefix := s[:len(s)-4]

	for _, monthLen := range []int{2, 1} {
		dayLen := len(prefix) - monthLen
		if monthLen > len(prefix) || dayLen < 1 || dayLen > 2 {
			continue
		}
		month, _ := strconv.Atoi(prefix[:monthLen])
		day, _ := strconv.Atoi(prefix[monthLen:])
		if t, ok := calendarDate(year, month, day); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// calendarDate builds a date and rejects values time.Date would normalize.
func calendarDate(year, month, day int) (time.Time, bool) {
	if year < 1 || month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
