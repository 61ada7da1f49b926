package domain

import "time"

// AgeOn returns completed years between dob and t, comparing calendar month
// and day so leap years do not shift birthdays. A 29 Feb birthday counts as
// reached on 1 Mar in common years.
func AgeOn(dob, t time.Time) int {
	age := t.Year() - dob.Year()
	if t.Month() < dob.Month() || (t.Month() == dob.Month() && t.Day() < dob.Day()) {
		age--
	}
	return age
}

// IsAdult reports whether someone born on dob is at least MinAge at t.
func IsAdult(dob, t time.Time) bool {
	return AgeOn(dob, t) >= MinAge
}
