package policy

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jwalitptl/password-policy/pkg/metrics"
)

const (
	// ExtensionAlphabet holds the characters tried as single-character prefixes and suffixes.
	ExtensionAlphabet = "0123456789!@#$%"
	// MaxNumericRun is the longest digit run stripped from either end.
	MaxNumericRun = 3
	// MaxExtensionCandidates bounds the remainders tried per candidate password.
	MaxExtensionCandidates = 2*len(ExtensionAlphabet) + 2*MaxNumericRun
)

// ReuseDetector matches a plaintext against an account's password history. Hashes are only
// ever compared through the Verifier.
type ReuseDetector struct {
	verifier Verifier
	metrics  *metrics.Metrics
}

func NewReuseDetector(v Verifier, m *metrics.Metrics) *ReuseDetector {
	return &ReuseDetector{verifier: v, metrics: m}
}

// FindMatch returns the first history entry, in stored order, whose hash verifies against
// plain, or nil.
func (d *ReuseDetector) FindMatch(plain string, a Account) HistoryEntry {
	if plain == "" || a == nil {
		return nil
	}
	for _, e := range a.PasswordHistory() {
		if d.verify(plain, e) {
			return e
		}
	}
	return nil
}

// FindExtensionMatch reports whether plain is a trivial extension of an archived password,
// such as "Summer20231" for "Summer2023". Best effort: it only strips the patterns listed
// by ExtensionCandidates and misses every other mutation.
func (d *ReuseDetector) FindExtensionMatch(plain string, a Account, minBaseLength int) HistoryEntry {
	if a == nil || len(a.PasswordHistory()) == 0 {
		return nil
	}
	for _, base := range ExtensionCandidates(plain, minBaseLength) {
		if e := d.FindMatch(base, a); e != nil {
			return e
		}
	}
	return nil
}

func (d *ReuseDetector) verify(plain string, e HistoryEntry) bool {
	start := time.Now()
	defer func() { d.metrics.ObserveReuseLatency(time.Since(start).Seconds()) }()

	if salt := e.Salt(); salt != "" {
		if sv, ok := d.verifier.(SaltedVerifier); ok {
			return sv.VerifySalted(plain, e.PasswordHash(), salt)
		}
	}
	return d.verifier.Verify(plain, e.PasswordHash())
}

// ExtensionCandidates lists the base passwords plain could have been derived from, in the
// order they are tried: single-character suffixes, single-character prefixes, numeric
// suffixes of one to three digits, numeric prefixes of one to three digits. Single
// characters come before digit runs even when that puts a prefix ahead of a suffix;
// within each group suffixes come first. Duplicates and bases shorter than minBaseLength
// characters are dropped. The result never exceeds MaxExtensionCandidates entries.
func ExtensionCandidates(plain string, minBaseLength int) []string {
	if plain == "" {
		return nil
	}
	out := make([]string, 0, MaxExtensionCandidates)
	seen := make(map[string]struct{}, MaxExtensionCandidates)
	add := func(base string) {
		if base == "" || utf8.RuneCountInString(base) < minBaseLength {
			return
		}
		if _, ok := seen[base]; ok {
			return
		}
		seen[base] = struct{}{}
		out = append(out, base)
	}

	for _, c := range ExtensionAlphabet {
		if s := string(c); strings.HasSuffix(plain, s) {
			add(strings.TrimSuffix(plain, s))
		}
	}
	for _, c := range ExtensionAlphabet {
		if s := string(c); strings.HasPrefix(plain, s) {
			add(strings.TrimPrefix(plain, s))
		}
	}
	for n := 1; n <= MaxNumericRun && n < len(plain); n++ {
		if isDigits(plain[len(plain)-n:]) {
			add(plain[:len(plain)-n])
		}
	}
	for n := 1; n <= MaxNumericRun && n < len(plain); n++ {
		if isDigits(plain[:n]) {
			add(plain[n:])
		}
	}
	return out
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
