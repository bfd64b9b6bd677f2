package scan

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
	"unicode"
)

var (
	ErrNotAAMVA       = errors.New("payload is not an AAMVA barcode")
	ErrMissingName    = errors.New("payload missing name elements")
	ErrUnparsableDOB  = errors.New("payload date of birth unparsable")
	ErrEmptyScan      = errors.New("empty scan payload")
)

// Kind classifies a raw scan payload, which determines the matching pipeline.
type Kind string

const (
	KindAAMVA      Kind = "AAMVA"
	KindMembership Kind = "MEMBERSHIP"
)

// Fields are the identity elements extracted from an AAMVA PDF417 payload.
type Fields struct {
	FirstName     string
	LastName      string
	DateOfBirth   time.Time
	LicenseNumber string
}

// Classify decides whether raw text looks like a structured state-ID barcode
// (AAMVA PDF417) or a generic membership barcode. AAMVA payloads start with
// the "@" compliance indicator and carry the ANSI file header; anything else
// is treated as a membership number.
func Classify(raw string) Kind {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "@") && strings.Contains(trimmed, "ANSI ") {
		return KindAAMVA
	}
	if containsElementTags(trimmed) {
		return KindAAMVA
	}
	return KindMembership
}

func containsElementTags(s string) bool {
	return strings.Contains(s, "DCS") && (strings.Contains(s, "DAC") || strings.Contains(s, "DCT")) && strings.Contains(s, "DBB")
}

// Normalize strips control characters, collapses whitespace, and uppercases a
// raw payload so hashing and equality checks are stable across scanner models.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	lastSpace := false
	for _, r := range raw {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			if !lastSpace {
				b.WriteByte('\n')
				lastSpace = true
			}
		case unicode.IsControl(r):
			// scanner framing bytes, drop
		default:
			b.WriteRune(unicode.ToUpper(r))
			lastSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}

// Hash is the content hash stored on the customer record for O(1) repeat
// matching. SHA-256 over the normalized payload.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(Normalize(raw)))
	return hex.EncodeToString(sum[:])
}

// Parse extracts identity fields from an AAMVA payload. Element tags: DCS
// (family name), DAC (first name, DCT on older revisions), DBB (date of
// birth), DAQ (license number).
func Parse(raw string) (Fields, error) {
	if strings.TrimSpace(raw) == "" {
		return Fields{}, ErrEmptyScan
	}
	if Classify(raw) != KindAAMVA {
		return Fields{}, ErrNotAAMVA
	}

	elements := parseElements(Normalize(raw))

	f := Fields{
		LastName:      elements["DCS"],
		FirstName:     elements["DAC"],
		LicenseNumber: elements["DAQ"],
	}
	if f.FirstName == "" {
		// pre-2009 revisions carry the full name in DCT as "LAST,FIRST,MIDDLE"
		if dct := elements["DCT"]; dct != "" {
			parts := strings.Split(dct, ",")
			if len(parts) >= 2 {
				if f.LastName == "" {
					f.LastName = strings.TrimSpace(parts[0])
				}
				f.FirstName = strings.TrimSpace(parts[1])
			}
		}
	}
	if f.FirstName == "" || f.LastName == "" {
		return Fields{}, ErrMissingName
	}

	dob, err := parseDOB(elements["DBB"])
	if err != nil {
		return Fields{}, err
	}
	f.DateOfBirth = dob
	return f, nil
}

func parseElements(normalized string) map[string]string {
	elements := make(map[string]string)
	for _, line := range strings.Split(normalized, "\n") {
		line = strings.TrimSpace(line)
		if idx := strings.Index(line, "ANSI "); idx >= 0 {
			line = line[idx+len("ANSI "):]
			if tagIdx := findFirstTag(line); tagIdx >= 0 {
				line = line[tagIdx:]
			} else {
				continue
			}
		}
		if len(line) < 3 {
			continue
		}
		tag := line[:3]
		if !isElementTag(tag) {
			continue
		}
		elements[tag] = strings.TrimSpace(line[3:])
	}
	return elements
}

func findFirstTag(s string) int {
	for i := 0; i+3 <= len(s); i++ {
		if isElementTag(s[i : i+3]) {
			return i
		}
	}
	return -1
}

func isElementTag(s string) bool {
	if len(s) != 3 {
		return false
	}
	if s[0] != 'D' && s[0] != 'Z' {
		return false
	}
	return s[1] >= 'A' && s[1] <= 'Z' && s[2] >= 'A' && s[2] <= 'Z'
}

// parseDOB handles both AAMVA encodings: MMDDCCYY (US, post-2000 spec) and
// CCYYMMDD (pre-2000 and Canadian issuers).
func parseDOB(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) != 8 {
		return time.Time{}, ErrUnparsableDOB
	}
	if t, err := time.Parse("01022006", s); err == nil && plausibleDOB(t) {
		return t, nil
	}
	if t, err := time.Parse("20060102", s); err == nil && plausibleDOB(t) {
		return t, nil
	}
	return time.Time{}, ErrUnparsableDOB
}

func plausibleDOB(t time.Time) bool {
	return t.Year() >= 1900 && t.Before(time.Now())
}

// ParseMembershipNumber extracts a membership number candidate from a
// non-AAMVA barcode: digits and letters only, scanner framing stripped.
func ParseMembershipNumber(raw string) string {
	var b strings.Builder
	for _, r := range Normalize(raw) {
		if unicode.IsDigit(r) || unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
