package domain

import (
	"testing"
	"time"
)

func TestAgeOn(t *testing.T) {
	t.Parallel()

	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 12, 0, 0, 0, time.UTC) }
	cases := []struct {
		name string
		dob  time.Time
		on   time.Time
		want int
	}{
		{name: "day before 1 Mar birthday on 29 Feb", dob: day(2006, time.March, 1), on: day(2024, time.February, 29), want: 17},
		{name: "1 Mar birthday in common year", dob: day(2008, time.March, 1), on: day(2026, time.March, 1), want: 18},
		{name: "leap-year dob, birthday in leap year", dob: day(2004, time.March, 15), on: day(2022, time.March, 15), want: 18},
		{name: "leap-year dob, day before birthday", dob: day(2004, time.March, 15), on: day(2022, time.March, 14), want: 17},
		{name: "29 Feb dob on 28 Feb common year", dob: day(2008, time.February, 29), on: day(2026, time.February, 28), want: 17},
		{name: "29 Feb dob on 1 Mar common year", dob: day(2008, time.February, 29), on: day(2026, time.March, 1), want: 18},
		{name: "29 Feb dob on 29 Feb", dob: day(2004, time.February, 29), on: day(2024, time.February, 29), want: 20},
		{name: "31 Dec dob on 1 Jan", dob: day(2000, time.December, 31), on: day(2019, time.January, 1), want: 18},
		{name: "1 Jan dob on 31 Dec", dob: day(2000, time.January, 1), on: day(2018, time.December, 31), want: 18},
	}
	for _, tc := range cases {
		if got := AgeOn(tc.dob, tc.on); got != tc.want {
			t.Fatalf("%s: AgeOn=%d want=%d", tc.name, got, tc.want)
		}
	}

	if IsAdult(day(2006, time.March, 1), day(2024, time.February, 29)) {
		t.Fatal("17-year-old passed the adult check on 29 Feb")
	}
	if !IsAdult(day(2008, time.March, 1), day(2026, time.March, 1)) {
		t.Fatal("18th birthday rejected by the adult check")
	}
}
