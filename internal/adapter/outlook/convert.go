package outlook

import (
	"time"

	graphmodels "github.com/microsoftgraph/msgraph-sdk-go/models"

	"github.com/ghxstship/atlvs-sub022/internal/model"
)

// graphTimeLayout is the fractional-seconds form Graph uses for event
// boundaries. Times arrive in UTC because every request carries a
// Prefer: outlook.timezone="UTC" header.
const graphTimeLayout = "2006-01-02T15:04:05.0000000"

// fromGraph converts a Graph SDK event into the shared representation.
func fromGraph(item graphmodels.Eventable) model.Event {
	ev := model.Event{
		ID:     derefStr(item.GetId()),
		Title:  derefStr(item.GetSubject()),
		Start:  parseGraphTime(item.GetStart()),
		End:    parseGraphTime(item.GetEnd()),
		AllDay: derefBool(item.GetIsAllDay()),
		Status: parseGraphStatus(item),
	}

	if body := item.GetBody(); body != nil {
		ev.Description = derefStr(body.GetContent())
	}
	if loc := item.GetLocation(); loc != nil {
		ev.Location = derefStr(loc.GetDisplayName())
	}
	if lm := item.GetLastModifiedDateTime(); lm != nil {
		ev.LastModified = lm.UTC()
	}

	for _, a := range item.GetAttendees() {
		if email := a.GetEmailAddress(); email != nil {
			if addr := derefStr(email.GetAddress()); addr != "" {
				ev.Attendees = append(ev.Attendees, addr)
			}
		}
	}
	ev.Attendees = model.NormalizeAttendees(ev.Attendees)

	// Outlook models a single reminder per event, not a list.
	if derefBool(item.GetIsReminderOn()) {
		minutes := 0
		if m := item.GetReminderMinutesBeforeStart(); m != nil {
			minutes = int(*m)
		}
		if minutes >= 0 {
			ev.Reminders = []model.Reminder{{Method: model.MethodPopup, Minutes: minutes}}
		}
	}

	if s := item.GetSensitivity(); s != nil {
		switch *s {
		case graphmodels.PRIVATE_SENSITIVITY, graphmodels.CONFIDENTIAL_SENSITIVITY:
			ev.Visibility = model.VisibilityPrivate
		case graphmodels.NORMAL_SENSITIVITY:
			ev.Visibility = model.VisibilityPublic
		}
	}

	// Graph attachments are content blobs behind a separate endpoint; only
	// the metadata survives conversion when the collection was expanded.
	for _, att := range item.GetAttachments() {
		ev.Attachments = append(ev.Attachments, model.Attachment{
			Title:    derefStr(att.GetName()),
			MimeType: derefStr(att.GetContentType()),
		})
	}

	ev.Recurrence = fromGraphRecurrence(item.GetRecurrence())

	return ev
}

// parseGraphTime converts a Graph DateTimeTimeZone to a UTC instant.
func parseGraphTime(dt graphmodels.DateTimeTimeZoneable) time.Time {
	if dt == nil {
		return time.Time{}
	}
	raw := dt.GetDateTime()
	if raw == nil {
		return time.Time{}
	}
	for _, layout := range []string{graphTimeLayout, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, *raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// parseGraphStatus maps cancellation and the user's response onto the
// shared status.
func parseGraphStatus(item graphmodels.Eventable) model.Status {
	if derefBool(item.GetIsCancelled()) {
		return model.StatusCancelled
	}
	rs := item.GetResponseStatus()
	if rs == nil {
		return model.StatusUnspecified
	}
	resp := rs.GetResponse()
	if resp == nil {
		return model.StatusUnspecified
	}
	switch *resp {
	case graphmodels.ACCEPTED_RESPONSETYPE, graphmodels.ORGANIZER_RESPONSETYPE:
		return model.StatusConfirmed
	case graphmodels.TENTATIVELYACCEPTED_RESPONSETYPE:
		return model.StatusTentative
	case graphmodels.DECLINED_RESPONSETYPE:
		return model.StatusCancelled
	default:
		return model.StatusUnspecified
	}
}

// toGraph converts a shared event to Graph's native schema for insert or
// patch calls. The provider-assigned ID is never set here; Post assigns one
// and Patch takes it as a path parameter.
func toGraph(ev model.Event) graphmodels.Eventable {
	item := graphmodels.NewEvent()
	item.SetSubject(ptr(ev.Title))

	if ev.Description != "" {
		contentType := graphmodels.TEXT_BODYTYPE
		body := graphmodels.NewItemBody()
		body.SetContentType(&contentType)
		body.SetContent(ptr(ev.Description))
		item.SetBody(body)
	}

	if ev.Location != "" {
		loc := graphmodels.NewLocation()
		loc.SetDisplayName(ptr(ev.Location))
		item.SetLocation(loc)
	}

	item.SetStart(toGraphTime(ev.Start))
	item.SetEnd(toGraphTime(ev.End))
	if ev.AllDay {
		// Graph accepts isAllDay only when both boundaries are midnight,
		// which all-day events already guarantee.
		item.SetIsAllDay(ptr(true))
	}

	var attendees []graphmodels.Attendeeable
	for _, addr := range model.NormalizeAttendees(ev.Attendees) {
		email := graphmodels.NewEmailAddress()
		email.SetAddress(ptr(addr))
		attendeeType := graphmodels.REQUIRED_ATTENDEETYPE
		attendee := graphmodels.NewAttendee()
		attendee.SetEmailAddress(email)
		attendee.SetTypeEscaped(&attendeeType)
		attendees = append(attendees, attendee)
	}
	if len(attendees) > 0 {
		item.SetAttendees(attendees)
	}

	// Only the earliest reminder survives: Outlook supports one per event.
	if len(ev.Reminders) > 0 {
		minutes := ev.Reminders[0].Minutes
		for _, r := range ev.Reminders[1:] {
			if r.Minutes > minutes {
				minutes = r.Minutes
			}
		}
		on := true
		m := int32(minutes)
		item.SetIsReminderOn(&on)
		item.SetReminderMinutesBeforeStart(&m)
	}

	switch ev.Visibility {
	case model.VisibilityPrivate:
		s := graphmodels.PRIVATE_SENSITIVITY
		item.SetSensitivity(&s)
	case model.VisibilityPublic:
		s := graphmodels.NORMAL_SENSITIVITY
		item.SetSensitivity(&s)
	}

	if ev.Status == model.StatusTentative {
		showAs := graphmodels.TENTATIVE_FREEBUSYSTATUS
		item.SetShowAs(&showAs)
	}

	if rec := toGraphRecurrence(ev.Recurrence, ev.Start); rec != nil {
		item.SetRecurrence(rec)
	}

	return item
}

// toGraphTime renders a UTC instant as a Graph DateTimeTimeZone.
func toGraphTime(t time.Time) graphmodels.DateTimeTimeZoneable {
	dt := graphmodels.NewDateTimeTimeZone()
	dt.SetDateTime(ptr(t.UTC().Format(graphTimeLayout)))
	dt.SetTimeZone(ptr("UTC"))
	return dt
}
