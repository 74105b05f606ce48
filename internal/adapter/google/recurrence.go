package google

import (
	"strings"

	"github.com/teambition/rrule-go"

	"github.com/ghxstship/atlvs-sub022/internal/model"
)

var weekdayCodes = map[string]rrule.Weekday{
	"MO": rrule.MO,
	"TU": rrule.TU,
	"WE": rrule.WE,
	"TH": rrule.TH,
	"FR": rrule.FR,
	"SA": rrule.SA,
	"SU": rrule.SU,
}

// ParseRRule converts an iCalendar RRULE line into the shared recurrence
// shape. Rules the shared shape cannot express (sub-daily frequencies,
// unparseable text) come back as unparsed carriers so the raw text survives
// a round trip instead of being dropped.
func ParseRRule(raw string) *model.RecurrenceRule {
	opt, err := rrule.StrToROption(strings.TrimPrefix(raw, "RRULE:"))
	if err != nil {
		return &model.RecurrenceRule{Unparsed: raw}
	}

	rule := &model.RecurrenceRule{Interval: opt.Interval}
	if rule.Interval < 1 {
		rule.Interval = 1
	}

	switch opt.Freq {
	case rrule.DAILY:
		rule.Frequency = model.FreqDaily
	case rrule.WEEKLY:
		rule.Frequency = model.FreqWeekly
	case rrule.MONTHLY:
		rule.Frequency = model.FreqMonthly
	case rrule.YEARLY:
		rule.Frequency = model.FreqYearly
	default:
		return &model.RecurrenceRule{Unparsed: raw}
	}

	rule.Count = opt.Count
	if !opt.Until.IsZero() {
		rule.Until = opt.Until
	}
	for _, wd := range opt.Byweekday {
		rule.ByDay = append(rule.ByDay, wd.String())
	}
	rule.ByMonth = opt.Bymonth
	rule.ByMonthDay = opt.Bymonthday

	return rule
}

// BuildRRule renders a shared recurrence rule as an iCalendar RRULE line.
// Unparsed rules re-emit their original text. Returns false for nil rules.
func BuildRRule(r *model.RecurrenceRule) (string, bool) {
	if r == nil {
		return "", false
	}
	if r.IsUnparsed() {
		line := r.Unparsed
		if !strings.HasPrefix(line, "RRULE:") {
			line = "RRULE:" + line
		}
		return line, true
	}

	opt := rrule.ROption{
		Interval: r.Interval,
		Count:    r.Count,
	}
	switch r.Frequency {
	case model.FreqWeekly:
		opt.Freq = rrule.WEEKLY
	case model.FreqMonthly:
		opt.Freq = rrule.MONTHLY
	case model.FreqYearly:
		opt.Freq = rrule.YEARLY
	default:
		opt.Freq = rrule.DAILY
	}
	if !r.Until.IsZero() {
		opt.Until = r.Until.UTC()
	}
	for _, code := range r.ByDay {
		if wd, ok := weekdayCodes[code]; ok {
			opt.Byweekday = append(opt.Byweekday, wd)
		}
	}
	opt.Bymonth = r.ByMonth
	opt.Bymonthday = r.ByMonthDay

	return "RRULE:" + opt.RRuleString(), true
}
