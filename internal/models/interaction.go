package models

import "time"

// Interaction types stored in conversational memory
const (
	InteractionAnalytics = "analytics"
	InteractionHelpdesk  = "helpdesk"
	InteractionFollowup  = "followup"
)

// Answer sources recorded in interaction metadata
const (
	SourceSQL           = "sql"
	SourceKnowledgeBase = "knowledge-base"
)

// Interaction is one completed assistant exchange. Immutable once appended
// to a session; all size caps are applied at write time by the store.
type Interaction struct {
	Type      string                   `json:"type"` // analytics, helpdesk, followup
	Query     string                   `json:"query"`
	Rows      []map[string]interface{} `json:"rows,omitempty"`
	Columns   []string                 `json:"columns,omitempty"`
	Source    string                   `json:"source,omitempty"` // sql or knowledge-base
	Response  string                   `json:"response"`
	CreatedAt time.Time                `json:"created_at"`
}
