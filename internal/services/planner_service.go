package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"pulseboard/internal/database"
	"pulseboard/internal/models"
)

// plannerTables are the candidate tables the planner is allowed to reason
// about. The schema inspector grounds the prompt in whatever subset of
// these actually exists in the tenant database.
var plannerTables = []string{
	"users", "admins", "questions", "survey_cycles", "survey_responses", "survey_answers",
}

const plannerJoins = `Join relationships:
- survey_responses.user_id = users.id
- survey_responses.survey_cycle_id = survey_cycles.id
- survey_answers.survey_response_id = survey_responses.id
- survey_answers.question_id = questions.id`

// plannerExamples are worked examples teaching the model the NPS formula,
// cycle filtering, multi-cycle people matching and roster lookups.
const plannerExamples = `Examples:

Q: how many parents do we have
A: {"action":"sql","sql":"SELECT COUNT(*) AS total FROM users WHERE type = ?","params":["parent"]}

Q: how many students responded to surveys
A: {"action":"sql","sql":"SELECT COUNT(DISTINCT sr.user_id) AS total FROM survey_responses sr JOIN users u ON sr.user_id = u.id WHERE u.type = ? AND sr.status IN ('partial','completed')","params":["student"]}

Q: what is our NPS
A: {"action":"sql","sql":"SELECT ROUND(100 * SUM(sa.nps_score >= 9) / COUNT(*) - 100 * SUM(sa.nps_score <= 6) / COUNT(*), 1) AS nps, COUNT(*) AS total FROM survey_answers sa WHERE sa.answer_type = 'nps' AND sa.nps_score IS NOT NULL","params":[]}

Q: what is the NPS for parents
A: {"action":"sql","sql":"SELECT ROUND(100 * SUM(sa.nps_score >= 9) / COUNT(*) - 100 * SUM(sa.nps_score <= 6) / COUNT(*), 1) AS nps, COUNT(*) AS total FROM survey_answers sa JOIN survey_responses sr ON sa.survey_response_id = sr.id JOIN users u ON sr.user_id = u.id WHERE sa.answer_type = 'nps' AND sa.nps_score IS NOT NULL AND u.type = ?","params":["parent"]}

Q: NPS for the Fall 2025 sequence
A: {"action":"sql","sql":"SELECT ROUND(100 * SUM(sa.nps_score >= 9) / COUNT(*) - 100 * SUM(sa.nps_score <= 6) / COUNT(*), 1) AS nps, COUNT(*) AS total FROM survey_answers sa JOIN survey_responses sr ON sa.survey_response_id = sr.id JOIN survey_cycles sc ON sr.survey_cycle_id = sc.id WHERE sa.answer_type = 'nps' AND sa.nps_score IS NOT NULL AND sc.name LIKE ?","params":["%Fall 2025%"]}

Q: how many promoters in the last 3 months
A: {"action":"sql","sql":"SELECT COUNT(*) AS promoters FROM survey_answers sa JOIN survey_responses sr ON sa.survey_response_id = sr.id WHERE sa.answer_type = 'nps' AND sa.nps_score >= 9 AND sr.answered_at >= DATE_SUB(NOW(), INTERVAL 3 MONTH)","params":[]}

Q: how many detractors this year
A: {"action":"sql","sql":"SELECT COUNT(*) AS detractors FROM survey_answers sa JOIN survey_responses sr ON sa.survey_response_id = sr.id WHERE sa.answer_type = 'nps' AND sa.nps_score <= 6 AND sr.answered_at >= DATE_SUB(NOW(), INTERVAL 12 MONTH)","params":[]}

Q: which parents were detractors in Spring 2025 and promoters in Fall 2025
A: {"action":"sql","sql":"SELECT u.name, a.nps_score AS spring_score, b.nps_score AS fall_score FROM users u JOIN survey_responses ra ON ra.user_id = u.id JOIN survey_cycles ca ON ra.survey_cycle_id = ca.id AND ca.name LIKE ? JOIN survey_answers a ON a.survey_response_id = ra.id AND a.answer_type = 'nps' JOIN survey_responses rb ON rb.user_id = u.id JOIN survey_cycles cb ON rb.survey_cycle_id = cb.id AND cb.name LIKE ? JOIN survey_answers b ON b.survey_response_id = rb.id AND b.answer_type = 'nps' WHERE u.type = ? AND u.name <> 'Anonymous' AND a.nps_score <= 6 AND b.nps_score >= 9","params":["%Spring 2025%","%Fall 2025%","parent"]}

Q: how many surveys were completed last month
A: {"action":"sql","sql":"SELECT COUNT(*) AS completed FROM survey_responses WHERE status = 'completed' AND answered_at >= DATE_SUB(NOW(), INTERVAL 30 DAY)","params":[]}

Q: list the survey cycles for students
A: {"action":"sql","sql":"SELECT name, type, status, created_at FROM survey_cycles WHERE audience = ? ORDER BY created_at DESC","params":["student"]}

Q: what comments did employees leave in the last quarter
A: {"action":"sql","sql":"SELECT u.name, sa.comment_text FROM survey_answers sa JOIN survey_responses sr ON sa.survey_response_id = sr.id JOIN users u ON sr.user_id = u.id WHERE sa.answer_type = 'comment' AND sa.comment_text IS NOT NULL AND u.type = ? AND sr.answered_at >= DATE_SUB(NOW(), INTERVAL 3 MONTH) LIMIT 50","params":["employee"]}

Q: who are the school admins
A: {"action":"sql","sql":"SELECT name, email, role FROM admins ORDER BY name","params":[]}

Q: average benchmark rating per question
A: {"action":"sql","sql":"SELECT q.text AS question, ROUND(AVG(sa.rating), 2) AS avg_rating, COUNT(*) AS answers FROM survey_answers sa JOIN questions q ON sa.question_id = q.id WHERE sa.answer_type = 'benchmark' AND sa.rating IS NOT NULL GROUP BY q.id, q.text ORDER BY avg_rating DESC","params":[]}

Q: delete old survey answers
A: {"action":"error"}

Q: what's the weather today
A: {"action":"error"}`

// PlannerService asks the language model for a single validated SELECT
// statement grounded in the live schema.
type PlannerService struct {
	ai *AIClient
	db *database.DB
}

// NewPlannerService creates a new SQL planner
func NewPlannerService(ai *AIClient, db *database.DB) *PlannerService {
	return &PlannerService{ai: ai, db: db}
}

// Plan compiles the query into a Plan. Any failure - model unavailable,
// malformed output, wrong action - is reported as ErrPlannerFormat so the
// caller can move on to the next fallback stage; it is never user-visible.
func (s *PlannerService) Plan(ctx context.Context, query string) (*models.Plan, error) {
	if !s.ai.Configured() {
		return nil, ErrPlannerFormat
	}

	summary, err := s.db.SchemaSummary(ctx, plannerTables)
	if err != nil {
		log.Printf("⚠️ [PLANNER] Schema introspection failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrPlannerFormat, err)
	}

	systemPrompt := fmt.Sprintf(`You are a SQL planner for a school survey-feedback database (MySQL).
Translate the user's analytics question into ONE read-only SELECT statement with bound parameters.

Schema:
%s
%s

NPS scores are 0-10: promoters >= 9, passives 7-8, detractors <= 6.
NPS = round(100 * promoters/total - 100 * detractors/total, 1).
Anonymous respondents (users.name = 'Anonymous') must be excluded from any per-person cross-cycle matching.
Response statuses are 'sent', 'partial' and 'completed'.

Respond with ONLY a JSON object, no prose:
{"action":"sql","sql":"SELECT ...","params":[...]}
If the question cannot be answered with a single SELECT, respond {"action":"error"}.

%s`, database.FormatSchemaSummary(summary), plannerJoins, plannerExamples)

	callCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	raw, err := s.ai.Complete(callCtx, systemPrompt, query)
	if err != nil {
		log.Printf("⚠️ [PLANNER] Model call failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrPlannerFormat, err)
	}

	return ParsePlan(raw)
}

// ParsePlan is the strict parse-and-validate boundary for planner output.
// The model's JSON is untrusted: the action tag and the sql field are both
// re-validated, and anything that does not hold the expected shape is a
// planner failure, not an executable plan.
func ParsePlan(raw string) (*models.Plan, error) {
	raw = stripMarkdownCodeBlock(raw)

	var plan models.Plan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlannerFormat, err)
	}

	switch plan.Action {
	case models.PlanActionSQL:
		if plan.SQL == "" {
			return nil, fmt.Errorf("%w: action is sql but sql field is empty", ErrPlannerFormat)
		}
		return &plan, nil
	case models.PlanActionError:
		// The model judged the question unanswerable; same fallback path.
		return nil, ErrPlannerFormat
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrPlannerFormat, plan.Action)
	}
}
