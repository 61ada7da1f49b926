package models

import (
	"testing"
	"time"
)

func TestUserAge(t *testing.T) {
	t.Parallel()

	dob := time.Date(2006, time.March, 1, 0, 0, 0, 0, time.UTC)
	u := &User{DateOfBirth: &dob}
	if got := u.Age(time.Date(2024, time.February, 29, 12, 0, 0, 0, time.UTC)); got != 17 {
		t.Fatalf("Age on 29 Feb 2024 = %d, want 17", got)
	}
	if got := u.Age(time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)); got != 18 {
		t.Fatalf("Age on 1 Mar 2024 = %d, want 18", got)
	}
	if got := (&User{}).Age(time.Now()); got != 0 {
		t.Fatalf("Age without DOB = %d, want 0", got)
	}
}
