package interview

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"
)

const defaultTimezone = "UTC"

// normalizeSlot validates caller input and returns a slot with instants in UTC.
// Field names are prefixed so batch submissions report the offending entry.
func normalizeSlot(input SlotInput, prefix string, vErr *ValidationError) Slot {
	field := func(name string) string {
		if prefix == "" {
			return name
		}
		return prefix + "." + name
	}

	slot := Slot{
		Timezone:    strings.TrimSpace(input.Timezone),
		MeetingType: input.MeetingType,
		MeetingLink: strings.TrimSpace(input.MeetingLink),
		Location:    strings.TrimSpace(input.Location),
		Notes:       strings.TrimSpace(input.Notes),
		AIScore:     DefaultAIScore,
	}

	switch {
	case input.StartTime.IsZero():
		vErr.Add(field("start_time"), "start_time is required")
	case input.EndTime.IsZero():
		vErr.Add(field("end_time"), "end_time is required")
	case !input.EndTime.After(input.StartTime):
		vErr.Add(field("end_time"), "end_time must be after start_time")
	}
	slot.StartTime = input.StartTime.UTC()
	slot.EndTime = input.EndTime.UTC()

	if slot.Timezone == "" {
		slot.Timezone = defaultTimezone
	}
	if _, err := time.LoadLocation(slot.Timezone); err != nil {
		vErr.Add(field("timezone"), "timezone must be a valid IANA zone name")
	}

	if !slot.MeetingType.IsValid() {
		vErr.Add(field("meeting_type"), fmt.Sprintf("meeting_type must be one of %s, %s, %s", MeetingTypeVideo, MeetingTypePhone, MeetingTypeInPerson))
	}

	if slot.MeetingLink != "" {
		parsed, err := url.ParseRequestURI(slot.MeetingLink)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			vErr.Add(field("meeting_link"), "meeting_link must be an absolute URL")
		}
	}

	if slot.MeetingType == MeetingTypeInPerson && slot.Location == "" {
		vErr.Add(field("location"), "location is required for in-person meetings")
	}

	if input.AIScore != nil {
		if *input.AIScore < 0 || *input.AIScore > 100 {
			vErr.Add(field("ai_score"), "ai_score must be between 0 and 100")
		} else {
			slot.AIScore = *input.AIScore
		}
	}

	return slot
}

func validateDeadline(deadline, now time.Time, vErr *ValidationError) {
	if deadline.IsZero() {
		vErr.Add("voting_deadline", "voting_deadline is required")
		return
	}
	if !deadline.After(now) {
		vErr.Add("voting_deadline", "voting_deadline must be in the future")
	}
}

// sameContent compares slots ignoring the assigned index.
func sameContent(a, b Slot) bool {
	return a.StartTime.Equal(b.StartTime) &&
		a.EndTime.Equal(b.EndTime) &&
		a.Timezone == b.Timezone &&
		a.MeetingType == b.MeetingType &&
		a.MeetingLink == b.MeetingLink &&
		a.Location == b.Location &&
		a.Notes == b.Notes &&
		a.AIScore == b.AIScore
}

func containsContent(slots []Slot, candidate Slot) bool {
	for _, slot := range slots {
		if sameContent(slot, candidate) {
			return true
		}
	}
	return false
}

func sameSlotSet(current, requested []Slot) bool {
	if len(current) != len(requested) {
		return false
	}
	for i := range current {
		if !sameContent(current[i], requested[i]) {
			return false
		}
	}
	return true
}
