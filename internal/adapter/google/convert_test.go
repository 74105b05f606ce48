package google

import (
	"testing"
	"time"

	"google.golang.org/api/calendar/v3"

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
		Status:      model.StatusConfirmed,
		Visibility:  model.VisibilityPrivate,
		Reminders: []model.Reminder{
			{Method: model.MethodEmail, Minutes: 30},
			{Method: model.MethodPopup, Minutes: 10},
		},
	}

	out := fromGoogle(toGoogle(in))

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
	if out.Status != model.StatusConfirmed {
		t.Errorf("status: got %v", out.Status)
	}
	if out.Visibility != model.VisibilityPrivate {
		t.Errorf("visibility: got %v", out.Visibility)
	}
	if len(out.Reminders) != 2 || out.Reminders[0].Method != model.MethodEmail || out.Reminders[0].Minutes != 30 {
		t.Errorf("reminders: got %v", out.Reminders)
	}
}

func TestFromGoogle_AllDayEvent(t *testing.T) {
	item := &calendar.Event{
		Id:      "all-day-1",
		Summary: "Company Holiday",
		Start:   &calendar.EventDateTime{Date: "2026-07-04"},
		End:     &calendar.EventDateTime{Date: "2026-07-05"},
	}

	ev := fromGoogle(item)

	want := time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC)
	if !ev.Start.Equal(want) {
		t.Errorf("start: got %v, want %v", ev.Start, want)
	}
	if ev.Duration() != 24*time.Hour {
		t.Errorf("duration: got %v, want 24h", ev.Duration())
	}
	if !ev.AllDay {
		t.Error("expected AllDay to be set for a date-only event")
	}
}

func TestRoundTrip_AllDayKeepsDateForm(t *testing.T) {
	item := &calendar.Event{
		Id:      "all-day-2",
		Summary: "Company Holiday",
		Start:   &calendar.EventDateTime{Date: "2026-07-04"},
		End:     &calendar.EventDateTime{Date: "2026-07-05"},
	}

	back := toGoogle(fromGoogle(item))

	if back.Start.Date != "2026-07-04" || back.Start.DateTime != "" {
		t.Errorf("start: got date=%q dateTime=%q, want the date form", back.Start.Date, back.Start.DateTime)
	}
	if back.End.Date != "2026-07-05" || back.End.DateTime != "" {
		t.Errorf("end: got date=%q dateTime=%q, want the date form", back.End.Date, back.End.DateTime)
	}
}

func TestFromGoogle_NormalizesAttendees(t *testing.T) {
	item := &calendar.Event{
		Summary: "Planning",
		Start:   &calendar.EventDateTime{DateTime: "2026-03-10T09:00:00Z"},
		End:     &calendar.EventDateTime{DateTime: "2026-03-10T10:00:00Z"},
		Attendees: []*calendar.EventAttendee{
			{Email: "Zoe@Example.com"},
			{Email: " ana@example.com "},
			{Email: "zoe@example.com"},
			{Email: ""},
		},
	}

	ev := fromGoogle(item)

	want := []string{"ana@example.com", "zoe@example.com"}
	if len(ev.Attendees) != len(want) {
		t.Fatalf("attendees: got %v, want %v", ev.Attendees, want)
	}
	for i := range want {
		if ev.Attendees[i] != want[i] {
			t.Errorf("attendee %d: got %q, want %q", i, ev.Attendees[i], want[i])
		}
	}
}

func TestFromGoogle_LastModified(t *testing.T) {
	item := &calendar.Event{
		Summary: "Edited Meeting",
		Start:   &calendar.EventDateTime{DateTime: "2026-03-10T09:00:00Z"},
		End:     &calendar.EventDateTime{DateTime: "2026-03-10T10:00:00Z"},
		Updated: "2026-03-09T18:30:00.000Z",
	}

	ev := fromGoogle(item)

	want := time.Date(2026, 3, 9, 18, 30, 0, 0, time.UTC)
	if !ev.LastModified.Equal(want) {
		t.Errorf("last modified: got %v, want %v", ev.LastModified, want)
	}
}

func TestToGoogle_OmitsProviderID(t *testing.T) {
	in := model.Event{
		ID:    "should-not-leak",
		Title: "New Event",
		Start: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
	}

	if got := toGoogle(in); got.Id != "" {
		t.Errorf("id: got %q, want empty", got.Id)
	}
}

func TestToGoogle_DisablesDefaultReminders(t *testing.T) {
	in := model.Event{
		Title:     "Reminder Event",
		Start:     time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		End:       time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
		Reminders: []model.Reminder{{Method: model.MethodPopup, Minutes: 15}},
	}

	got := toGoogle(in)

	if got.Reminders == nil {
		t.Fatal("expected reminders block")
	}
	if got.Reminders.UseDefault {
		t.Error("expected UseDefault false")
	}
	if len(got.Reminders.ForceSendFields) == 0 {
		t.Error("UseDefault=false must be force-sent or the API drops it")
	}
}

func TestRoundTrip_Attachments(t *testing.T) {
	in := model.Event{
		Title: "Doc Review",
		Start: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
		Attachments: []model.Attachment{
			{FileURL: "https://drive.example.com/d/abc", Title: "Design Doc", MimeType: "application/pdf"},
		},
	}

	out := fromGoogle(toGoogle(in))

	if len(out.Attachments) != 1 {
		t.Fatalf("attachments: got %d, want 1", len(out.Attachments))
	}
	if out.Attachments[0].FileURL != in.Attachments[0].FileURL {
		t.Errorf("file url: got %q", out.Attachments[0].FileURL)
	}
}
