package trust

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	emailFormatRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	tenDigitsRe   = regexp.MustCompile(`^\d{10}$`)
	phoneNoiseRe  = regexp.MustCompile(`[\s\-()]`)
)

// Known placeholder and role-pattern addresses. Checked in order; the first
// match wins and stops pattern checking.
var suspiciousEmailPatterns = []func(email string) bool{
	func(e string) bool { return strings.Contains(e, "test@test.com") },
	func(e string) bool { return strings.Contains(e, "fake@fake.com") },
	func(e string) bool { return strings.Contains(e, "admin@admin.com") },
	func(e string) bool { return strings.Contains(e, "@example.com") },
	func(e string) bool { return strings.Contains(e, "@test.com") },
	func(e string) bool { return strings.Contains(e, "@fake.com") },
	hasRepeatBeforeAt,
}

// Disallowed handle shapes, first match wins.
var suspiciousHandlePatterns = []func(handle string) bool{
	func(h string) bool { return strings.HasPrefix(h, "test") },
	func(h string) bool { return strings.HasPrefix(h, "fake") },
	func(h string) bool { return strings.HasPrefix(h, "admin") },
	func(h string) bool { return strings.HasPrefix(h, "asdf") },
	func(h string) bool { return strings.HasPrefix(h, "qwerty") },
	func(h string) bool { return longestRun(h) >= 5 },
}

func (e *evaluation) checkEmail(email string) {
	if email == "" {
		e.flag("Missing email address", 30)
		return
	}
	if !emailFormatRe.MatchString(email) {
		e.flag("Invalid email format", 25)
	}
	lower := strings.ToLower(email)
	for _, match := range suspiciousEmailPatterns {
		if match(lower) {
			e.flag(fmt.Sprintf("Suspicious email pattern detected: %s", email), 40)
			break
		}
	}
}

func (e *evaluation) checkPhone(phone string) {
	if phone == "" {
		e.flag("Missing phone number", 15)
		return
	}
	clean := phoneNoiseRe.ReplaceAllString(phone, "")
	if !tenDigitsRe.MatchString(clean) {
		e.flag("Invalid phone number format (should be 10 digits)", 20)
	}
	// Independent of the format check: 7+ consecutive identical digits.
	if longestDigitRun(clean) >= 7 {
		e.flag("Suspicious phone number (repeated digits)", 25)
	}
}

func (e *evaluation) checkHandle(handle string) {
	if handle == "" {
		e.flag("Missing username", 20)
		return
	}
	lower := strings.ToLower(handle)
	for _, match := range suspiciousHandlePatterns {
		if match(lower) {
			e.flag(fmt.Sprintf("Suspicious username pattern: %s", handle), 30)
			break
		}
	}
}

func (e *evaluation) checkHospitalType(hospitalType string) {
	lower := strings.ToLower(hospitalType)
	switch lower {
	case "":
		e.flag("Missing hospital type", 15)
	case "government", "private", "trust", "charitable":
	default:
		e.flag(fmt.Sprintf("Invalid hospital type: %s", lower), 20)
	}
}

func (e *evaluation) checkCapacity(capacity string, min, max int, kind string) {
	if capacity == "" {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(capacity))
	if err != nil {
		e.flag("Invalid capacity format", 15)
		return
	}
	if n < min || n > max {
		e.flag(fmt.Sprintf("Unrealistic %s capacity: %d", kind, n), 20)
	}
}

// hasRepeatBeforeAt reports whether 4+ identical characters immediately
// precede the @.
func hasRepeatBeforeAt(email string) bool {
	at := strings.IndexByte(email, '@')
	if at < 4 {
		return false
	}
	c := email[at-1]
	run := 1
	for i := at - 2; i >= 0 && email[i] == c; i-- {
		run++
	}
	return run >= 4
}

// longestRun returns the length of the longest run of one repeated byte.
func longestRun(s string) int {
	longest, run := 0, 0
	var prev byte
	for i := 0; i < len(s); i++ {
		if i > 0 && s[i] == prev {
			run++
		} else {
			run = 1
			prev = s[i]
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// longestDigitRun is longestRun restricted to digit characters.
func longestDigitRun(s string) int {
	longest, run := 0, 0
	var prev byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			run = 0
			prev = 0
			continue
		}
		if c == prev {
			run++
		} else {
			run = 1
			prev = c
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}
