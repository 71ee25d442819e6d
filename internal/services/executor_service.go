package services

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"pulseboard/internal/database"
	"pulseboard/internal/models"
)

// Fallback stage names, in execution order
const (
	StagePlanner   = "planner"
	StageHeuristic = "heuristic"
	StageExistence = "existence"
)

// QueryResult is the outcome of one successful fallback stage.
type QueryResult struct {
	Rows    []map[string]interface{}
	Columns []string
	Stage   string
	Note    string // extra context for the summarizer, e.g. existence-check verdict
}

// Attempt is one strategy in the fallback chain: a function from the
// request to either a usable result or a stage-local failure. Making the
// chain an explicit ordered list keeps the fallback order testable.
type Attempt struct {
	Name string
	Run  func(ctx context.Context) (*QueryResult, error)
}

var intervalPattern = regexp.MustCompile(`(?i)INTERVAL\s+'(\d+)\s+(day|month|year)s?'`)

var statusInPattern = regexp.MustCompile(`(?i)(status\s+IN\s*\()([^)]*)(\))`)

// ExecutorService normalizes and executes planner SQL against the tenant's
// read connection, falling back through heuristic and existence-check
// stages when a stage fails. Each stage runs at most once per request.
type ExecutorService struct {
	db      *database.DB
	planner *PlannerService
	metrics *Metrics
}

// NewExecutorService creates a new query executor
func NewExecutorService(db *database.DB, planner *PlannerService, metrics *Metrics) *ExecutorService {
	return &ExecutorService{db: db, planner: planner, metrics: metrics}
}

// Execute runs the fallback chain for an analytics query. The returned
// error is non-nil only when every stage failed; the caller turns that
// into the fixed "could not answer" response.
func (s *ExecutorService) Execute(ctx context.Context, query string, intent models.FilterIntent) (*QueryResult, error) {
	attempts := []Attempt{
		{Name: StagePlanner, Run: func(ctx context.Context) (*QueryResult, error) {
			plan, err := s.planner.Plan(ctx, query)
			if err != nil {
				return nil, err
			}
			return s.ExecutePlan(ctx, plan)
		}},
		{Name: StageHeuristic, Run: func(ctx context.Context) (*QueryResult, error) {
			return s.runHeuristic(ctx, intent)
		}},
		{Name: StageExistence, Run: s.runExistenceCheck},
	}

	return s.runAttempts(ctx, attempts)
}

func (s *ExecutorService) runAttempts(ctx context.Context, attempts []Attempt) (*QueryResult, error) {
	var lastErr error
	for _, attempt := range attempts {
		result, err := attempt.Run(ctx)
		if err != nil {
			log.Printf("⚠️ [EXECUTOR] Stage %s failed: %v", attempt.Name, err)
			if s.metrics != nil {
				s.metrics.RecordStageFailure(attempt.Name)
			}
			lastErr = err
			continue
		}
		result.Stage = attempt.Name
		if s.metrics != nil {
			s.metrics.RecordStageSuccess(attempt.Name)
		}
		return result, nil
	}
	if lastErr == nil {
		lastErr = ErrExecution
	}
	return nil, fmt.Errorf("all fallback stages failed: %w", lastErr)
}

// ExecutePlan validates, normalizes and runs a planner-produced statement.
// Anything that is not a SELECT is rejected before it reaches the database.
func (s *ExecutorService) ExecutePlan(ctx context.Context, plan *models.Plan) (*QueryResult, error) {
	if !plan.IsSQL() {
		return nil, ErrPlannerFormat
	}

	normalized, err := NormalizeSQL(plan.SQL)
	if err != nil {
		return nil, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, 12*time.Second)
	defer cancel()

	rows, columns, err := s.db.QueryRows(queryCtx, normalized, plan.Params...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExecution, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyResult
	}

	return &QueryResult{Rows: rows, Columns: columns}, nil
}

// NormalizeSQL applies the deterministic textual rewrites the executor
// performs on untrusted planner SQL:
//   - only a single SELECT statement is accepted
//   - non-portable interval syntax (INTERVAL '3 months') becomes MySQL form
//   - whitespace is collapsed
//   - partially-specified answered-status filters are widened so a
//     'completed'-only list does not silently exclude partial responses
func NormalizeSQL(sql string) (string, error) {
	sql = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(sql), ";"))

	if !strings.HasPrefix(strings.ToUpper(sql), "SELECT") {
		return "", fmt.Errorf("%w: only SELECT statements are executed", ErrExecution)
	}
	if strings.Contains(sql, ";") {
		return "", fmt.Errorf("%w: multiple statements are not allowed", ErrExecution)
	}

	sql = strings.Join(strings.Fields(sql), " ")

	sql = intervalPattern.ReplaceAllStringFunc(sql, func(m string) string {
		parts := intervalPattern.FindStringSubmatch(m)
		return "INTERVAL " + parts[1] + " " + strings.ToUpper(parts[2])
	})

	sql = statusInPattern.ReplaceAllStringFunc(sql, func(m string) string {
		parts := statusInPattern.FindStringSubmatch(m)
		return parts[1] + widenStatusList(parts[2]) + parts[3]
	})

	return sql, nil
}

// widenStatusList expands an answered-status IN list: a filter naming
// either 'partial' or 'completed' gets both, since both are answered
// lifecycle states and models routinely forget one of them.
func widenStatusList(list string) string {
	lowered := strings.ToLower(list)
	hasPartial := strings.Contains(lowered, "partial")
	hasCompleted := strings.Contains(lowered, "completed")
	if !hasPartial && !hasCompleted {
		return list
	}
	if hasPartial && hasCompleted {
		return list
	}
	return strings.TrimSpace(list) + ", " + missingStatus(hasPartial)
}

func missingStatus(hasPartial bool) string {
	if hasPartial {
		return "'completed'"
	}
	return "'partial'"
}

// runHeuristic builds a conservative query directly from the extracted
// filters against the core response table - no model involved.
func (s *ExecutorService) runHeuristic(ctx context.Context, intent models.FilterIntent) (*QueryResult, error) {
	var (
		where  []string
		params []interface{}
	)

	if intent.Audience != "" {
		where = append(where, "u.type = ?")
		params = append(params, intent.Audience)
	}
	if intent.Cycle != "" {
		where = append(where, "sc.name LIKE ?")
		params = append(params, "%"+intent.Cycle+"%")
	}
	if intent.Window != nil {
		if intent.Window.Days > 0 {
			where = append(where, "sr.answered_at >= DATE_SUB(NOW(), INTERVAL ? DAY)")
			params = append(params, intent.Window.Days)
		} else {
			where = append(where, "sr.answered_at >= DATE_SUB(NOW(), INTERVAL ? MONTH)")
			params = append(params, intent.Window.Months)
		}
	}

	sql := `SELECT u.name, u.type, sc.name AS cycle, sr.status, sr.answered_at
		FROM survey_responses sr
		JOIN users u ON sr.user_id = u.id
		JOIN survey_cycles sc ON sr.survey_cycle_id = sc.id`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY sr.answered_at DESC LIMIT 50"

	queryCtx, cancel := context.WithTimeout(ctx, 12*time.Second)
	defer cancel()

	rows, columns, err := s.db.QueryRows(queryCtx, sql, params...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExecution, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyResult
	}

	return &QueryResult{Rows: rows, Columns: columns}, nil
}

// runExistenceCheck disambiguates "no data exists" from "filters too
// strict" with a minimal unscoped count. It always succeeds if the table
// is reachable; the note tells the summarizer which case we are in.
func (s *ExecutorService) runExistenceCheck(ctx context.Context) (*QueryResult, error) {
	queryCtx, cancel := context.WithTimeout(ctx, 12*time.Second)
	defer cancel()

	rows, columns, err := s.db.QueryRows(queryCtx, "SELECT COUNT(*) AS total FROM survey_responses")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExecution, err)
	}

	note := "The requested filters matched no data, but survey responses do exist - the filters were likely too strict."
	if len(rows) > 0 {
		if total, ok := rows[0]["total"]; ok && fmt.Sprintf("%v", total) == "0" {
			note = "No survey response data exists yet for this school."
		}
	}

	return &QueryResult{Rows: rows, Columns: columns, Note: note}, nil
}
