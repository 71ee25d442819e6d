package models

// TimeWindow is a relative time constraint extracted from a query.
// Exactly one of Days or Months is set.
type TimeWindow struct {
	Days   int `json:"days,omitempty"`
	Months int `json:"months,omitempty"`
}

// FilterIntent is the structured reading of a natural-language analytics
// query. It is request-scoped and never shared across requests. Every field
// is optional; an unset field means "no constraint" so that extraction
// failures widen rather than narrow the result set.
type FilterIntent struct {
	Window     *TimeWindow `json:"window,omitempty"`
	Audience   string      `json:"audience,omitempty"` // parent, student, employee, "" = all
	Cycle      string      `json:"cycle,omitempty"`
	Cycles     []string    `json:"cycles,omitempty"` // set for multi-cycle comparisons
	Question   string      `json:"question,omitempty"`
	Status     string      `json:"status,omitempty"`      // sent, partial, completed
	SurveyType string      `json:"survey_type,omitempty"` // pulse, custom

	NeedsRoster      bool `json:"needs_roster,omitempty"`
	NeedsNPS         bool `json:"needs_nps,omitempty"`
	NeedsDemographic bool `json:"needs_demographic,omitempty"`
	MultiCycle       bool `json:"multi_cycle,omitempty"`
}
