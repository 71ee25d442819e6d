package models

// Answer semantic types
const (
	AnswerTypeNPS       = "nps"
	AnswerTypeComment   = "comment"
	AnswerTypeBenchmark = "benchmark"
	AnswerTypeFiltering = "filtering"
	AnswerTypeOther     = "other"
)

// Survey statuses
const (
	StatusSent      = "sent"
	StatusPartial   = "partial"
	StatusCompleted = "completed"
)

// Tenant identifies the school/organization a knowledge base belongs to.
type Tenant struct {
	Name      string `json:"name"`
	Subdomain string `json:"subdomain,omitempty"`
}

// Person is one roster entry (admin, parent, student or employee).
type Person struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// SurveyCycle is one named wave of survey invitations.
type SurveyCycle struct {
	Name      string `json:"name"`
	Audience  string `json:"audience,omitempty"` // parent, student, employee
	Type      string `json:"type,omitempty"`     // pulse, custom
	CreatedAt string `json:"created_at,omitempty"`
}

// Answer is one tagged answer inside a survey response. The payload fields
// are type-specific: Score for nps, Text for comment, Rating for benchmark,
// Values for filtering answers.
type Answer struct {
	Question string   `json:"question"`
	Type     string   `json:"type"` // nps, comment, benchmark, filtering, other
	Score    *int     `json:"score,omitempty"`
	Text     string   `json:"text,omitempty"`
	Rating   *float64 `json:"rating,omitempty"`
	Values   []string `json:"values,omitempty"`
}

// SurveyResponseRecord is one respondent's submission. Records are read-only
// views into the exported knowledge-base snapshot; the assistant never
// mutates them.
type SurveyResponseRecord struct {
	RespondentName string   `json:"respondent_name"` // "Anonymous" when not identified
	RespondentType string   `json:"respondent_type"` // parent, student, employee
	Cycle          string   `json:"cycle"`
	Status         string   `json:"status"`
	SurveyType     string   `json:"survey_type,omitempty"`
	SentAt         string   `json:"sent_at,omitempty"`
	AnsweredAt     string   `json:"answered_at,omitempty"`
	Answers        []Answer `json:"answers"`
}

// KnowledgeBase is the per-tenant flat dataset produced by the export
// process and consumed by the knowledge-base answering pipeline.
type KnowledgeBase struct {
	Tenant       Tenant                 `json:"tenant"`
	Admins       []Person               `json:"admins"`
	Parents      []Person               `json:"parents"`
	Students     []Person               `json:"students"`
	Employees    []Person               `json:"employees"`
	SurveyCycles []SurveyCycle          `json:"survey_cycles"`
	SurveyData   []SurveyResponseRecord `json:"survey_data"`
}

// NpsResult is the derived Net Promoter Score breakdown. It is never
// persisted; a nil result means "not measurable" (zero responses).
type NpsResult struct {
	Total        int     `json:"total"`
	Promoters    int     `json:"promoters"`
	Passives     int     `json:"passives"`
	Detractors   int     `json:"detractors"`
	PromoterPct  float64 `json:"promoter_pct"`
	PassivePct   float64 `json:"passive_pct"`
	DetractorPct float64 `json:"detractor_pct"`
	Score        float64 `json:"score"`
}

// CycleScore is the minimal per-respondent datum retained for multi-cycle
// comparisons: who scored what in which cycle. Anonymous respondents are
// excluded upstream because cross-cycle matching needs a stable identity.
type CycleScore struct {
	RespondentName string `json:"respondent_name"`
	CycleLabel     string `json:"cycle_label"`
	NpsScore       int    `json:"nps_score"`
}
