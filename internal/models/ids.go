package models

import (
	"fmt"
	"strconv"
	"strings"
)

// The sheet has no primary-key column, so identifiers are synthesized from
// position and content: a booking id is room + row + time range, a fixed
// schedule id is row + room + morning/afternoon slot. Ids therefore stay
// valid only until somebody rearranges the sheet; callers re-resolve them
// against a fresh read before every mutation.

const (
	SlotMorning   = "am"
	SlotAfternoon = "pm"

	fixedIDPrefix = "fs"
)

// BookingID builds the positional identifier for a parsed booking row.
func BookingID(roomID string, row int, start, end Clock) string {
	return fmt.Sprintf("%s_%d_%s_%s", roomID, row, start.Compact(), end.Compact())
}

// ParseBookingID splits a positional booking id back into its parts. The
// room id may itself contain underscores, so parsing works from the right.
func ParseBookingID(id string) (roomID string, row int, start, end Clock, err error) {
	parts := strings.Split(id, "_")
	if len(parts) < 4 {
		return "", 0, Clock{}, Clock{}, fmt.Errorf("malformed booking id %q", id)
	}

	end, err = parseCompactClock(parts[len(parts)-1])
	if err != nil {
		return "", 0, Clock{}, Clock{}, fmt.Errorf("booking id %q: %w", id, err)
	}
	start, err = parseCompactClock(parts[len(parts)-2])
	if err != nil {
		return "", 0, Clock{}, Clock{}, fmt.Errorf("booking id %q: %w", id, err)
	}
	row, err = strconv.Atoi(parts[len(parts)-3])
	if err != nil || row < 1 {
		return "", 0, Clock{}, Clock{}, fmt.Errorf("booking id %q: bad row", id)
	}

	roomID = strings.Join(parts[:len(parts)-3], "_")
	if roomID == "" {
		return "", 0, Clock{}, Clock{}, fmt.Errorf("booking id %q: empty room", id)
	}
	return roomID, row, start, end, nil
}

// FixedScheduleID builds the identifier for a fixed-schedule entry. split
// is non-zero for entries recovered from a concatenated staff cell, which
// would otherwise collide on the same row/room/slot.
func FixedScheduleID(row int, roomID, slot string, split int) string {
	id := fmt.Sprintf("%s_%d_%s_%s", fixedIDPrefix, row, roomID, slot)
	if split > 0 {
		id += fmt.Sprintf("_s%d", split)
	}
	return id
}

// ParseFixedScheduleID splits a fixed-schedule id into row, room, slot and
// the optional split index.
func ParseFixedScheduleID(id string) (row int, roomID, slot string, split int, err error) {
	parts := strings.Split(id, "_")
	if len(parts) < 4 || parts[0] != fixedIDPrefix {
		return 0, "", "", 0, fmt.Errorf("malformed fixed schedule id %q", id)
	}

	row, err = strconv.Atoi(parts[1])
	if err != nil || row < 1 {
		return 0, "", "", 0, fmt.Errorf("fixed schedule id %q: bad row", id)
	}

	rest := parts[2:]
	last := rest[len(rest)-1]
	if n, ok := splitSuffix(last); ok {
		split = n
		rest = rest[:len(rest)-1]
	}
	if len(rest) < 2 {
		return 0, "", "", 0, fmt.Errorf("malformed fixed schedule id %q", id)
	}

	slot = rest[len(rest)-1]
	if slot != SlotMorning && slot != SlotAfternoon {
		return 0, "", "", 0, fmt.Errorf("fixed schedule id %q: bad slot %q", id, slot)
	}

	roomID = strings.Join(rest[:len(rest)-1], "_")
	if roomID == "" {
		return 0, "", "", 0, fmt.Errorf("fixed schedule id %q: empty room", id)
	}
	return row, roomID, slot, split, nil
}

func parseCompactClock(s string) (Clock, error) {
	if len(s) != 4 {
		return Clock{}, fmt.Errorf("bad time token %q", s)
	}
	hour, err := strconv.Atoi(s[:2])
	if err != nil {
		return Clock{}, fmt.Errorf("bad time token %q", s)
	}
	minute, err := strconv.Atoi(s[2:])
	if err != nil {
		return Clock{}, fmt.Errorf("bad time token %q", s)
	}
	if hour > 23 || minute > 59 {
		return Clock{}, fmt.Errorf("time token %q out of range", s)
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

func splitSuffix(s string) (int, bool) {
	if len(s) < 2 || s[0] != 's' {
		return 0, false
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
