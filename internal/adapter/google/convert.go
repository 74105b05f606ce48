package google

import (
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/ghxstship/atlvs-sub022/internal/model"
)

// allDayLayout is the date-only form Google uses for all-day events.
const allDayLayout = "2006-01-02"

// fromGoogle converts a Google event to the shared representation.
func fromGoogle(item *calendar.Event) model.Event {
	ev := model.Event{
		ID:          item.Id,
		Title:       item.Summary,
		Description: item.Description,
		Location:    item.Location,
		Status:      model.ParseStatus(item.Status),
		Visibility:  model.ParseVisibility(item.Visibility),
		Start:       parseEventTime(item.Start),
		End:         parseEventTime(item.End),
	}
	if item.Start != nil && item.Start.Date != "" {
		ev.AllDay = true
	}

	if item.Updated != "" {
		if t, err := time.Parse(time.RFC3339, item.Updated); err == nil {
			ev.LastModified = t
		}
	}

	for _, a := range item.Attendees {
		if a.Email != "" {
			ev.Attendees = append(ev.Attendees, a.Email)
		}
	}
	ev.Attendees = model.NormalizeAttendees(ev.Attendees)

	if item.Reminders != nil {
		for _, r := range item.Reminders.Overrides {
			ev.Reminders = append(ev.Reminders, model.Reminder{
				Method:  model.ParseReminderMethod(r.Method),
				Minutes: int(r.Minutes),
			})
		}
	}

	for _, att := range item.Attachments {
		ev.Attachments = append(ev.Attachments, model.Attachment{
			FileURL:  att.FileUrl,
			Title:    att.Title,
			MimeType: att.MimeType,
			IconLink: att.IconLink,
		})
	}

	// Google delivers recurrence as a list of iCalendar lines. Only the
	// RRULE line maps onto the shared rule; EXDATE/RDATE lines are ignored.
	for _, raw := range item.Recurrence {
		if strings.HasPrefix(raw, "RRULE") {
			ev.Recurrence = ParseRRule(raw)
			break
		}
	}

	return ev
}

// parseEventTime reads either a timed (dateTime) or all-day (date) boundary.
func parseEventTime(edt *calendar.EventDateTime) time.Time {
	if edt == nil {
		return time.Time{}
	}
	if edt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, edt.DateTime); err == nil {
			return t
		}
		return time.Time{}
	}
	if edt.Date != "" {
		if t, err := time.Parse(allDayLayout, edt.Date); err == nil {
			return t
		}
	}
	return time.Time{}
}

// toGoogle converts a shared event to Google's native schema for insert or
// update calls. The provider-assigned ID is never set here; Insert assigns
// one and Update takes it as a path parameter.
func toGoogle(ev model.Event) *calendar.Event {
	item := &calendar.Event{
		Summary:     ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		Status:      ev.Status.String(),
		Visibility:  ev.Visibility.String(),
	}

	// All-day events use the date form; anything else is a timed instant.
	if ev.AllDay {
		item.Start = &calendar.EventDateTime{Date: ev.Start.UTC().Format(allDayLayout)}
		item.End = &calendar.EventDateTime{Date: ev.End.UTC().Format(allDayLayout)}
	} else {
		item.Start = &calendar.EventDateTime{DateTime: ev.Start.UTC().Format(time.RFC3339)}
		item.End = &calendar.EventDateTime{DateTime: ev.End.UTC().Format(time.RFC3339)}
	}

	for _, email := range model.NormalizeAttendees(ev.Attendees) {
		item.Attendees = append(item.Attendees, &calendar.EventAttendee{Email: email})
	}

	if len(ev.Reminders) > 0 {
		item.Reminders = &calendar.EventReminders{
			UseDefault:      false,
			ForceSendFields: []string{"UseDefault"},
		}
		for _, r := range ev.Reminders {
			item.Reminders.Overrides = append(item.Reminders.Overrides, &calendar.EventReminder{
				Method:  r.Method.String(),
				Minutes: int64(r.Minutes),
			})
		}
	}

	for _, att := range ev.Attachments {
		item.Attachments = append(item.Attachments, &calendar.EventAttachment{
			FileUrl:  att.FileURL,
			Title:    att.Title,
			MimeType: att.MimeType,
			IconLink: att.IconLink,
		})
	}

	if line, ok := BuildRRule(ev.Recurrence); ok {
		item.Recurrence = []string{line}
	}

	return item
}
