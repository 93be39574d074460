package posixtz

import "testing"

func TestParseFixedOnly(t *testing.T) {
	got, err := Parse("UTC0")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if got.StdName != "UTC" || got.StdOffset != 0 || got.HasDST {
		t.Errorf("Parse(UTC0) = %+v", got)
	}
}

func TestParseEuropeBerlin(t *testing.T) {
	got, err := Parse("CET-1CEST,M3.5.0,M10.5.0/3")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if got.StdName != "CET" || got.StdOffset != 3600 {
		t.Errorf("std = %q %d, want CET 3600", got.StdName, got.StdOffset)
	}
	if !got.HasDST || got.DSTName != "CEST" || got.DSTOffset != 7200 {
		t.Errorf("dst = %+v, want CEST 7200", got)
	}
	if got.Start.Form != MonthWeekDay || got.Start.Month != 3 || got.Start.Week != 5 || got.Start.Weekday != 0 {
		t.Errorf("start rule = %+v", got.Start)
	}
	if got.Start.TimeOfDay != 2*3600 {
		t.Errorf("start rule default time = %d, want 7200", got.Start.TimeOfDay)
	}
	if got.End.Form != MonthWeekDay || got.End.Month != 10 || got.End.Week != 5 || got.End.Weekday != 0 {
		t.Errorf("end rule = %+v", got.End)
	}
	if got.End.TimeOfDay != 3*3600 {
		t.Errorf("end rule time = %d, want 10800", got.End.TimeOfDay)
	}
}

func TestParseAmericaNewYork(t *testing.T) {
	got, err := Parse("EST5EDT,M3.2.0,M11.1.0")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if got.StdOffset != -18000 {
		t.Errorf("std offset = %d, want -18000", got.StdOffset)
	}
	if got.DSTOffset != -14400 {
		t.Errorf("dst offset = %d, want -14400 (default +1h)", got.DSTOffset)
	}
	if got.Start.Week != 2 || got.Start.Weekday != 0 {
		t.Errorf("start rule = %+v, want second Sunday", got.Start)
	}
}

func TestParseJulianForms(t *testing.T) {
	got, err := Parse("XXX0YYY,J60,J300")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if got.Start.Form != JulianNoLeap || got.Start.Day != 60 {
		t.Errorf("start = %+v", got.Start)
	}
	if got.End.Form != JulianNoLeap || got.End.Day != 300 {
		t.Errorf("end = %+v", got.End)
	}

	got2, err := Parse("XXX0YYY,60,300")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if got2.Start.Form != JulianLeap || got2.Start.Day != 60 {
		t.Errorf("start = %+v", got2.Start)
	}
}

func TestParseQuotedNames(t *testing.T) {
	got, err := Parse("<+03>-3")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if got.StdName != "+03" || got.StdOffset != 10800 {
		t.Errorf("got = %+v", got)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"ab1",      // too-short abbreviation
		"CET-1CEST", // DST named but missing rules is allowed; malformed rule below is not
		"CET-1CEST,M13.1.0,M10.5.0",
		"CET-25",
	}
	for _, c := range cases {
		_, err := Parse(c)
		if c == "CET-1CEST" {
			if err != nil {
				t.Errorf("Parse(%q) should be accepted (DST named, no rules), got %v", c, err)
			}
			continue
		}
		if err == nil {
			t.Errorf("Parse(%q) should fail", c)
		}
	}
}
