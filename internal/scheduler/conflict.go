package scheduler

import "time"

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether the interval has a strictly positive length.
func (i Interval) Valid() bool {
	return i.Start.Before(i.End)
}

// Overlaps reports whether two half-open intervals share at least one instant.
// Intervals that only touch at a boundary do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// Contains reports whether t falls inside the closed range [Start, End].
// It is used for liveness checks, which include both ends.
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && !t.After(i.End)
}

// Booking is the minimal view of an active booking needed for conflict detection.
type Booking struct {
	ID       string
	Interval Interval
}

// Overlaps reports whether candidate collides with any of the existing bookings.
// Callers pass only active bookings for the target room.
func Overlaps(existing []Booking, candidate Interval) bool {
	for _, booking := range existing {
		if booking.Interval.Overlaps(candidate) {
			return true
		}
	}
	return false
}

// Conflicts returns the ids of the bookings that collide with candidate,
// skipping the booking identified by excludeID. An empty excludeID skips nothing.
func Conflicts(existing []Booking, candidate Interval, excludeID string) []string {
	var ids []string
	for _, booking := range existing {
		if excludeID != "" && booking.ID == excludeID {
			continue
		}
		if booking.Interval.Overlaps(candidate) {
			ids = append(ids, booking.ID)
		}
	}
	return ids
}
