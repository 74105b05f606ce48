package google

import (
	"strings"
	"testing"
	"time"

	"github.com/ghxstship/atlvs-sub022/internal/model"
)

func TestParseRRule_Weekly(t *testing.T) {
	rule := ParseRRule("RRULE:FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE,FR")

	if rule.IsUnparsed() {
		t.Fatalf("expected parsed rule, got unparsed %q", rule.Unparsed)
	}
	if rule.Frequency != model.FreqWeekly {
		t.Errorf("frequency: got %v, want weekly", rule.Frequency)
	}
	if rule.Interval != 2 {
		t.Errorf("interval: got %d, want 2", rule.Interval)
	}
	if len(rule.ByDay) != 3 || rule.ByDay[0] != "MO" || rule.ByDay[2] != "FR" {
		t.Errorf("byday: got %v", rule.ByDay)
	}
}

func TestParseRRule_CountAndUntil(t *testing.T) {
	counted := ParseRRule("RRULE:FREQ=DAILY;COUNT=10")
	if counted.Count != 10 || !counted.Until.IsZero() {
		t.Errorf("counted rule: got count=%d until=%v", counted.Count, counted.Until)
	}

	bounded := ParseRRule("RRULE:FREQ=MONTHLY;UNTIL=20261231T000000Z;BYMONTHDAY=15")
	if bounded.Count != 0 {
		t.Errorf("bounded rule: got count=%d, want 0", bounded.Count)
	}
	wantUntil := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	if !bounded.Until.Equal(wantUntil) {
		t.Errorf("until: got %v, want %v", bounded.Until, wantUntil)
	}
	if len(bounded.ByMonthDay) != 1 || bounded.ByMonthDay[0] != 15 {
		t.Errorf("bymonthday: got %v", bounded.ByMonthDay)
	}
}

func TestParseRRule_UnparseableBecomesOpaque(t *testing.T) {
	for _, raw := range []string{
		"RRULE:FREQ=HOURLY;INTERVAL=3", // sub-daily, not representable
		"RRULE:NOT_A_RULE",
	} {
		rule := ParseRRule(raw)
		if !rule.IsUnparsed() {
			t.Errorf("%s: expected unparsed carrier, got %+v", raw, rule)
		}
		if rule.Unparsed != raw {
			t.Errorf("%s: raw text not preserved, got %q", raw, rule.Unparsed)
		}
	}
}

func TestBuildRRule_RoundTrip(t *testing.T) {
	for _, raw := range []string{
		"RRULE:FREQ=DAILY",
		"RRULE:FREQ=WEEKLY;INTERVAL=2;BYDAY=TU,TH",
		"RRULE:FREQ=MONTHLY;COUNT=6;BYMONTHDAY=1",
		"RRULE:FREQ=YEARLY;BYMONTH=12",
	} {
		first := ParseRRule(raw)
		if first.IsUnparsed() {
			t.Fatalf("%s: unexpectedly unparsed", raw)
		}
		line, ok := BuildRRule(first)
		if !ok {
			t.Fatalf("%s: build failed", raw)
		}
		second := ParseRRule(line)
		if second.Frequency != first.Frequency || second.Interval != first.Interval ||
			second.Count != first.Count || !second.Until.Equal(first.Until) {
			t.Errorf("%s: rule drifted across round trip: %+v vs %+v", raw, first, second)
		}
		if strings.Join(second.ByDay, ",") != strings.Join(first.ByDay, ",") {
			t.Errorf("%s: byday drifted: %v vs %v", raw, first.ByDay, second.ByDay)
		}
	}
}

func TestBuildRRule_UnparsedReEmitsRawText(t *testing.T) {
	raw := "RRULE:FREQ=HOURLY;INTERVAL=6"
	line, ok := BuildRRule(&model.RecurrenceRule{Unparsed: raw})
	if !ok || line != raw {
		t.Errorf("got %q ok=%v, want raw text back", line, ok)
	}
}

func TestBuildRRule_NilRule(t *testing.T) {
	if _, ok := BuildRRule(nil); ok {
		t.Error("nil rule must not produce a line")
	}
}
