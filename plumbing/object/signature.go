package object

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// Signature is an author or committer identity: a name, an email, and a
// point in time expressed as Unix seconds plus an explicit timezone offset
// in minutes (git's on-disk form is "<seconds> <+HHMM>", not a named zone).
type Signature struct {
	Name   string
	Email  string
	When   time.Time
	Offset int // minutes east of UTC
}

// Encode renders "Name <email> <seconds> <+HHMM>" as used in both commit and
// tag payloads.
func (s Signature) Encode() string {
	sign := '+'
	off := s.Offset
	if off < 0 {
		sign = '-'
		off = -off
	}
	return fmt.Sprintf("%s <%s> %d %c%02d%02d", s.Name, s.Email, s.When.Unix(), sign, off/60, off%60)
}

// ParseSignature parses the "Name <email> seconds +HHMM" form found in
// commit/tag payloads.
func ParseSignature(line []byte) (Signature, error) {
	var s Signature

	lt := bytes.IndexByte(line, '<')
	gt := bytes.IndexByte(line, '>')
	if lt < 0 || gt < 0 || gt < lt {
		return s, fmt.Errorf("malformed signature: %q", line)
	}
	s.Name = string(bytes.TrimSpace(line[:lt]))
	s.Email = string(line[lt+1 : gt])

	rest := bytes.TrimSpace(line[gt+1:])
	fields := bytes.Fields(rest)
	if len(fields) == 0 {
		return s, nil
	}

	sec, err := strconv.ParseInt(string(fields[0]), 10, 64)
	if err != nil {
		return s, fmt.Errorf("malformed signature timestamp: %q", fields[0])
	}

	offset := 0
	if len(fields) > 1 {
		offset, err = parseTZOffset(string(fields[1]))
		if err != nil {
			return s, err
		}
	}

	s.Offset = offset
	s.When = time.Unix(sec, 0).In(time.FixedZone("", offset*60))
	return s, nil
}

func parseTZOffset(tz string) (int, error) {
	if len(tz) != 5 || (tz[0] != '+' && tz[0] != '-') {
		return 0, fmt.Errorf("malformed timezone offset: %q", tz)
	}
	hh, err := strconv.Atoi(tz[1:3])
	if err != nil {
		return 0, err
	}
	mm, err := strconv.Atoi(tz[3:5])
	if err != nil {
		return 0, err
	}
	total := hh*60 + mm
	if tz[0] == '-' {
		total = -total
	}
	return total, nil
}
