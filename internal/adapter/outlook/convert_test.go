package outlook

import (
	"testing"
	"time"

	graphmodels "github.com/microsoftgraph/msgraph-sdk-go/models"

	"github.com/ghxstship/atlvs-sub022/internal/model"
)

func TestRoundTrip_CoreFields(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	in := model.Event{
		Title:       "Architecture Review",
		Description: "Quarterly deep dive",
		Location:    "Room 4B",
		Start:       start,
		End:         start.Add(90 * time.Minute),
		Attendees:   []string{"ana@example.com", "bo@example.com"},
		Visibility:  model.VisibilityPrivate,
		Reminders:   []model.Reminder{{Method: model.MethodPopup, Minutes: 15}},
	}

	out := fromGraph(toGraph(in))

	if out.Title != in.Title {
		t.Errorf("title: got %q, want %q", out.Title, in.Title)
	}
	if !out.Start.Equal(in.Start) || !out.End.Equal(in.End) {
		t.Errorf("times: got %v-%v, want %v-%v", out.Start, out.End, in.Start, in.End)
	}
	if out.Location != in.Location {
		t.Errorf("location: got %q, want %q", out.Location, in.Location)
	}
	if out.Description != in.Description {
		t.Errorf("description: got %q, want %q", out.Description, in.Description)
	}
	if len(out.Attendees) != 2 || out.Attendees[0] != "ana@example.com" || out.Attendees[1] != "bo@example.com" {
		t.Errorf("attendees: got %v", out.Attendees)
	}
	if out.Visibility != model.VisibilityPrivate {
		t.Errorf("visibility: got %v", out.Visibility)
	}
	if len(out.Reminders) != 1 || out.Reminders[0].Minutes != 15 {
		t.Errorf("reminders: got %v", out.Reminders)
	}
}

func TestToGraph_CollapsesRemindersToEarliest(t *testing.T) {
	in := model.Event{
		Title: "Multi Reminder",
		Start: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
		Reminders: []model.Reminder{
			{Method: model.MethodPopup, Minutes: 10},
			{Method: model.MethodEmail, Minutes: 60},
			{Method: model.MethodPopup, Minutes: 30},
		},
	}

	item := toGraph(in)

	if !derefBool(item.GetIsReminderOn()) {
		t.Fatal("expected reminder to be on")
	}
	if m := item.GetReminderMinutesBeforeStart(); m == nil || *m != 60 {
		t.Errorf("minutes: got %v, want 60", m)
	}
}

func TestRoundTrip_AllDayFlag(t *testing.T) {
	start := time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC)
	in := model.Event{
		Title:  "Company Holiday",
		Start:  start,
		End:    start.Add(24 * time.Hour),
		AllDay: true,
	}

	item := toGraph(in)
	if !derefBool(item.GetIsAllDay()) {
		t.Fatal("expected isAllDay on the exported event")
	}

	out := fromGraph(item)
	if !out.AllDay {
		t.Error("AllDay lost on import")
	}
}

func TestFromGraph_CancelledIsCancelledStatus(t *testing.T) {
	item := graphmodels.NewEvent()
	item.SetSubject(ptr("Dropped Meeting"))
	item.SetIsCancelled(ptr(true))

	if got := fromGraph(item).Status; got != model.StatusCancelled {
		t.Errorf("status: got %v, want cancelled", got)
	}
}

func TestFromGraph_TentativeResponse(t *testing.T) {
	resp := graphmodels.TENTATIVELYACCEPTED_RESPONSETYPE
	rs := graphmodels.NewResponseStatus()
	rs.SetResponse(&resp)

	item := graphmodels.NewEvent()
	item.SetSubject(ptr("Maybe Meeting"))
	item.SetResponseStatus(rs)

	if got := fromGraph(item).Status; got != model.StatusTentative {
		t.Errorf("status: got %v, want tentative", got)
	}
}

func TestParseGraphTime_BothLayouts(t *testing.T) {
	want := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	for _, raw := range []string{
		"2026-03-10T09:30:00.0000000",
		"2026-03-10T09:30:00",
	} {
		dt := graphmodels.NewDateTimeTimeZone()
		dt.SetDateTime(ptr(raw))
		dt.SetTimeZone(ptr("UTC"))
		if got := parseGraphTime(dt); !got.Equal(want) {
			t.Errorf("%s: got %v, want %v", raw, got, want)
		}
	}
}

func TestParseGraphTime_NilSafe(t *testing.T) {
	if !parseGraphTime(nil).IsZero() {
		t.Error("nil boundary must parse to zero time")
	}
}

func TestRoundTrip_WeeklyRecurrence(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	in := model.Event{
		Title: "Standup",
		Start: start,
		End:   start.Add(15 * time.Minute),
		Recurrence: &model.RecurrenceRule{
			Frequency: model.FreqWeekly,
			Interval:  2,
			ByDay:     []string{"MO", "WE", "FR"},
			Count:     20,
		},
	}

	out := fromGraph(toGraph(in))

	rule := out.Recurrence
	if rule == nil || rule.IsUnparsed() {
		t.Fatalf("recurrence lost in round trip: %+v", rule)
	}
	if rule.Frequency != model.FreqWeekly || rule.Interval != 2 || rule.Count != 20 {
		t.Errorf("rule drifted: %+v", rule)
	}
	if len(rule.ByDay) != 3 || rule.ByDay[0] != "MO" || rule.ByDay[2] != "FR" {
		t.Errorf("byday: got %v", rule.ByDay)
	}
}

func TestRoundTrip_MonthlyUntilRecurrence(t *testing.T) {
	start := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	in := model.Event{
		Title: "Invoice Day",
		Start: start,
		End:   start.Add(time.Hour),
		Recurrence: &model.RecurrenceRule{
			Frequency:  model.FreqMonthly,
			Interval:   1,
			ByMonthDay: []int{15},
			Until:      time.Date(2026, 12, 15, 0, 0, 0, 0, time.UTC),
		},
	}

	rule := fromGraph(toGraph(in)).Recurrence
	if rule == nil {
		t.Fatal("recurrence lost in round trip")
	}
	if rule.Frequency != model.FreqMonthly || len(rule.ByMonthDay) != 1 || rule.ByMonthDay[0] != 15 {
		t.Errorf("rule drifted: %+v", rule)
	}
	wantUntil := time.Date(2026, 12, 15, 0, 0, 0, 0, time.UTC)
	if !rule.Until.Equal(wantUntil) {
		t.Errorf("until: got %v, want %v", rule.Until, wantUntil)
	}
}

func TestFromGraphRecurrence_RelativePatternBecomesOpaque(t *testing.T) {
	pt := graphmodels.RELATIVEMONTHLY_RECURRENCEPATTERNTYPE
	pattern := graphmodels.NewRecurrencePattern()
	pattern.SetTypeEscaped(&pt)
	rec := graphmodels.NewPatternedRecurrence()
	rec.SetPattern(pattern)

	rule := fromGraphRecurrence(rec)
	if !rule.IsUnparsed() {
		t.Fatalf("expected unparsed carrier, got %+v", rule)
	}
}

func TestToGraphRecurrence_DropsUnparsed(t *testing.T) {
	rule := &model.RecurrenceRule{Unparsed: "RRULE:FREQ=HOURLY"}
	if got := toGraphRecurrence(rule, time.Now()); got != nil {
		t.Error("unparsed rule from another provider must not be exported")
	}
}

func TestToGraph_OmitsProviderID(t *testing.T) {
	in := model.Event{
		ID:    "should-not-leak",
		Title: "New Event",
		Start: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
	}

	if got := toGraph(in); got.GetId() != nil {
		t.Errorf("id: got %q, want unset", *got.GetId())
	}
}
