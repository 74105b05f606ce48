package outlook

import (
	"time"

	"github.com/microsoft/kiota-abstractions-go/serialization"
	graphmodels "github.com/microsoftgraph/msgraph-sdk-go/models"

	"github.com/ghxstship/atlvs-sub022/internal/model"
)

var dayOfWeekCodes = map[graphmodels.DayOfWeek]string{
	graphmodels.MONDAY_DAYOFWEEK:    "MO",
	graphmodels.TUESDAY_DAYOFWEEK:   "TU",
	graphmodels.WEDNESDAY_DAYOFWEEK: "WE",
	graphmodels.THURSDAY_DAYOFWEEK:  "TH",
	graphmodels.FRIDAY_DAYOFWEEK:    "FR",
	graphmodels.SATURDAY_DAYOFWEEK:  "SA",
	graphmodels.SUNDAY_DAYOFWEEK:    "SU",
}

var codeDaysOfWeek = map[string]graphmodels.DayOfWeek{
	"MO": graphmodels.MONDAY_DAYOFWEEK,
	"TU": graphmodels.TUESDAY_DAYOFWEEK,
	"WE": graphmodels.WEDNESDAY_DAYOFWEEK,
	"TH": graphmodels.THURSDAY_DAYOFWEEK,
	"FR": graphmodels.FRIDAY_DAYOFWEEK,
	"SA": graphmodels.SATURDAY_DAYOFWEEK,
	"SU": graphmodels.SUNDAY_DAYOFWEEK,
}

// fromGraphRecurrence converts Graph's patterned recurrence into the shared
// rule shape. Relative patterns ("second Tuesday of the month") have no
// equivalent in the shared shape and come back as unparsed carriers naming
// the pattern type, so the event still records that it recurs.
func fromGraphRecurrence(rec graphmodels.PatternedRecurrenceable) *model.RecurrenceRule {
	if rec == nil {
		return nil
	}
	pattern := rec.GetPattern()
	if pattern == nil {
		return nil
	}
	pt := pattern.GetTypeEscaped()
	if pt == nil {
		return nil
	}

	rule := &model.RecurrenceRule{Interval: 1}
	if iv := pattern.GetInterval(); iv != nil && *iv > 0 {
		rule.Interval = int(*iv)
	}

	switch *pt {
	case graphmodels.DAILY_RECURRENCEPATTERNTYPE:
		rule.Frequency = model.FreqDaily
	case graphmodels.WEEKLY_RECURRENCEPATTERNTYPE:
		rule.Frequency = model.FreqWeekly
		for _, d := range pattern.GetDaysOfWeek() {
			if code, ok := dayOfWeekCodes[d]; ok {
				rule.ByDay = append(rule.ByDay, code)
			}
		}
	case graphmodels.ABSOLUTEMONTHLY_RECURRENCEPATTERNTYPE:
		rule.Frequency = model.FreqMonthly
		if dom := pattern.GetDayOfMonth(); dom != nil && *dom > 0 {
			rule.ByMonthDay = []int{int(*dom)}
		}
	case graphmodels.ABSOLUTEYEARLY_RECURRENCEPATTERNTYPE:
		rule.Frequency = model.FreqYearly
		if m := pattern.GetMonth(); m != nil && *m > 0 {
			rule.ByMonth = []int{int(*m)}
		}
		if dom := pattern.GetDayOfMonth(); dom != nil && *dom > 0 {
			rule.ByMonthDay = []int{int(*dom)}
		}
	default:
		return &model.RecurrenceRule{Unparsed: (*pt).String()}
	}

	if rng := rec.GetRangeEscaped(); rng != nil {
		if rt := rng.GetTypeEscaped(); rt != nil {
			switch *rt {
			case graphmodels.NUMBERED_RECURRENCERANGETYPE:
				if n := rng.GetNumberOfOccurrences(); n != nil {
					rule.Count = int(*n)
				}
			case graphmodels.ENDDATE_RECURRENCERANGETYPE:
				if end := rng.GetEndDate(); end != nil {
					if t, err := time.Parse("2006-01-02", end.String()); err == nil {
						rule.Until = t
					}
				}
			}
		}
	}

	return rule
}

// toGraphRecurrence converts a shared rule into Graph's patterned
// recurrence. Unparsed rules are dropped: they carry another provider's
// text, which Graph cannot interpret. start seeds the range's required
// start date.
func toGraphRecurrence(r *model.RecurrenceRule, start time.Time) graphmodels.PatternedRecurrenceable {
	if r == nil || r.IsUnparsed() {
		return nil
	}

	pattern := graphmodels.NewRecurrencePattern()
	interval := int32(r.Interval)
	if interval < 1 {
		interval = 1
	}
	pattern.SetInterval(&interval)

	var pt graphmodels.RecurrencePatternType
	switch r.Frequency {
	case model.FreqWeekly:
		pt = graphmodels.WEEKLY_RECURRENCEPATTERNTYPE
		var days []graphmodels.DayOfWeek
		for _, code := range r.ByDay {
			if d, ok := codeDaysOfWeek[code]; ok {
				days = append(days, d)
			}
		}
		if len(days) == 0 {
			days = append(days, weekdayOf(start))
		}
		pattern.SetDaysOfWeek(days)
	case model.FreqMonthly:
		pt = graphmodels.ABSOLUTEMONTHLY_RECURRENCEPATTERNTYPE
		dom := int32(start.Day())
		if len(r.ByMonthDay) > 0 {
			dom = int32(r.ByMonthDay[0])
		}
		pattern.SetDayOfMonth(&dom)
	case model.FreqYearly:
		pt = graphmodels.ABSOLUTEYEARLY_RECURRENCEPATTERNTYPE
		month := int32(start.Month())
		if len(r.ByMonth) > 0 {
			month = int32(r.ByMonth[0])
		}
		dom := int32(start.Day())
		if len(r.ByMonthDay) > 0 {
			dom = int32(r.ByMonthDay[0])
		}
		pattern.SetMonth(&month)
		pattern.SetDayOfMonth(&dom)
	default:
		pt = graphmodels.DAILY_RECURRENCEPATTERNTYPE
	}
	pattern.SetTypeEscaped(&pt)

	rng := graphmodels.NewRecurrenceRange()
	startDate := serialization.NewDateOnly(start.UTC())
	rng.SetStartDate(startDate)

	switch {
	case r.Count > 0:
		rt := graphmodels.NUMBERED_RECURRENCERANGETYPE
		n := int32(r.Count)
		rng.SetTypeEscaped(&rt)
		rng.SetNumberOfOccurrences(&n)
	case !r.Until.IsZero():
		rt := graphmodels.ENDDATE_RECURRENCERANGETYPE
		rng.SetTypeEscaped(&rt)
		rng.SetEndDate(serialization.NewDateOnly(r.Until.UTC()))
	default:
		rt := graphmodels.NOEND_RECURRENCERANGETYPE
		rng.SetTypeEscaped(&rt)
	}

	rec := graphmodels.NewPatternedRecurrence()
	rec.SetPattern(pattern)
	rec.SetRangeEscaped(rng)
	return rec
}

// weekdayOf maps a time to Graph's day-of-week enum.
func weekdayOf(t time.Time) graphmodels.DayOfWeek {
	switch t.UTC().Weekday() {
	case time.Monday:
		return graphmodels.MONDAY_DAYOFWEEK
	case time.Tuesday:
		return graphmodels.TUESDAY_DAYOFWEEK
	case time.Wednesday:
		return graphmodels.WEDNESDAY_DAYOFWEEK
	case time.Thursday:
		return graphmodels.THURSDAY_DAYOFWEEK
	case time.Friday:
		return graphmodels.FRIDAY_DAYOFWEEK
	case time.Saturday:
		return graphmodels.SATURDAY_DAYOFWEEK
	default:
		return graphmodels.SUNDAY_DAYOFWEEK
	}
}
