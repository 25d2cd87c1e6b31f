package signals

import (
	"strings"
	"time"
)

// ReferrerType is the traffic-source category of a page view.
type ReferrerType string

const (
	ReferrerSearchOrganic ReferrerType = "search_organic"
	ReferrerSearchPaid    ReferrerType = "search_paid"
	ReferrerSocial        ReferrerType = "social"
	ReferrerReviewSite    ReferrerType = "review_site"
	ReferrerEmail         ReferrerType = "email"
	ReferrerDirect        ReferrerType = "direct"
	ReferrerUnknown       ReferrerType = "unknown"
)

// DeviceType is the coarse form factor of the visitor's device.
type DeviceType string

const (
	DeviceMobile  DeviceType = "mobile"
	DeviceTablet  DeviceType = "tablet"
	DeviceDesktop DeviceType = "desktop"
)

// TimeContext buckets the local wall-clock hour.
type TimeContext string

const (
	TimeMorning   TimeContext = "morning"
	TimeAfternoon TimeContext = "afternoon"
	TimeEvening   TimeContext = "evening"
	TimeNight     TimeContext = "night"
)

// DayType distinguishes weekday from weekend visits.
type DayType string

const (
	DayWeekday DayType = "weekday"
	DayWeekend DayType = "weekend"
)

// Signals is the structured, immutable view of one page view's context.
type Signals struct {
	UTM      UTM      `json:"utm"`
	Referrer Referrer `json:"referrer"`
	Device   Device   `json:"device"`
	RawURL   string   `json:"raw_url"`
	// Persona is the raw persona/intent query parameter, lower-cased. Empty when absent.
	Persona string `json:"persona,omitempty"`
}

type UTM struct {
	Term     []string `json:"term"`
	Source   string   `json:"source"`
	Medium   string   `json:"medium"`
	Campaign string   `json:"campaign"`
}

type Referrer struct {
	URL  string       `json:"url"`
	Type ReferrerType `json:"type"`
}

type Device struct {
	Type        DeviceType  `json:"type"`
	TimeContext TimeContext `json:"time_context"`
	DayType     DayType     `json:"day_type"`
}

// TermString joins the utm_term tokens back into a single space-separated string.
func (u UTM) TermString() string {
	return strings.Join(u.Term, " ")
}

// Environment is the raw context a page view was served in. The zero value
// is valid: an empty URL, no referrer, unknown viewport and the current time.
type Environment struct {
	URL           string
	Referrer      string
	UserAgent     string
	ViewportWidth int // 0 means unknown
	Now           time.Time
}

// Overrides replaces individual Environment fields. Nil fields keep the
// environment value.
type Overrides struct {
	URL           *string `json:"url,omitempty"`
	Referrer      *string `json:"referrer,omitempty"`
	UserAgent     *string `json:"user_agent,omitempty"`
	Hour          *int    `json:"hour,omitempty"`
	ViewportWidth *int    `json:"viewport_width,omitempty"`
}
