// Package timecode provides timestamp token parsing and break-point
// normalization for feature timelines.
package timecode

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrUnparseable is returned for time tokens that cannot be interpreted.
// Callers must not substitute a default offset for an unparseable token;
// break-list entries that fail to parse are dropped instead.
var ErrUnparseable = errors.New("unparseable time token")

// Window is the valid [Start, End) sub-range of a feature's timeline,
// in milliseconds. A nil EndMs means "play to natural end".
type Window struct {
	StartMs int64
	EndMs   *int64
}

// Contains reports whether the offset falls inside the window.
func (w Window) Contains(ms int64) bool {
	if ms < w.StartMs {
		return false
	}
	if w.EndMs != nil && ms >= *w.EndMs {
		return false
	}
	return true
}

// ParseToken parses a time token into integer milliseconds.
// Accepted forms: "H:MM:SS" or "H:MM:SS.ms", "MM:SS" or "MM:SS.ms", and
// plain seconds (integer or fractional).
func ParseToken(tok string) (int64, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return 0, errors.Wrap(ErrUnparseable, "empty token")
	}

	if !strings.Contains(tok, ":") {
		sec, err := strconv.ParseFloat(tok, 64)
		if err != nil || sec < 0 {
			return 0, errors.Wrapf(ErrUnparseable, "bad seconds token %q", tok)
		}
		return int64(sec * 1000), nil
	}

	parts := strings.Split(tok, ":")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	var hours, minutes int64
	var secPart string
	switch len(parts) {
	case 3:
		h, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil || h < 0 {
			return 0, errors.Wrapf(ErrUnparseable, "bad hours in %q", tok)
		}
		m, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || m < 0 {
			return 0, errors.Wrapf(ErrUnparseable, "bad minutes in %q", tok)
		}
		hours, minutes, secPart = h, m, parts[2]
	case 2:
		m, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil || m < 0 {
			return 0, errors.Wrapf(ErrUnparseable, "bad minutes in %q", tok)
		}
		minutes, secPart = m, parts[1]
	default:
		return 0, errors.Wrapf(ErrUnparseable, "unexpected token shape %q", tok)
	}

	// Seconds may carry a fractional part like "18.14".
	sec, err := strconv.ParseFloat(secPart, 64)
	if err != nil || sec < 0 {
		return 0, errors.Wrapf(ErrUnparseable, "bad seconds in %q", tok)
	}

	total := float64(hours*3600+minutes*60) + sec
	return int64(total * 1000), nil
}

// FilterBreaks normalizes a break-point list against a playback window:
// offsets before the window start or at/after the window end (when known)
// are dropped, duplicates are removed, and the result is sorted ascending.
// The operation is idempotent.
func FilterBreaks(breaks []int64, w Window) []int64 {
	seen := make(map[int64]struct{}, len(breaks))
	out := make([]int64, 0, len(breaks))
	for _, b := range breaks {
		if !w.Contains(b) {
			continue
		}
		if _, dup := seen[b]; dup {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
