package models

// Plan actions
const (
	PlanActionSQL   = "sql"
	PlanActionError = "error"
)

// Plan is the validated output of the SQL query planner. Only plans with
// Action == "sql" and a non-empty SELECT statement are ever executed.
type Plan struct {
	Action string        `json:"action"`
	SQL    string        `json:"sql,omitempty"`
	Params []interface{} `json:"params,omitempty"`
}

// IsSQL reports whether the plan carries an executable statement.
func (p *Plan) IsSQL() bool {
	return p != nil && p.Action == PlanActionSQL && p.SQL != ""
}
