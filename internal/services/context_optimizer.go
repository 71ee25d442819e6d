package services

import (
	"strings"

	"pulseboard/internal/models"
)

// Payload bounds applied before a dataset result is serialized into an LLM
// prompt. Records beyond the cap add tokens without adding signal.
const (
	maxPromptRecords     = 150
	maxPromptAnswerChars = 500
)

var commentNeedKeywords = []string{"comment", "feedback", "said", "wrote", "complain", "praise", "mention"}

var benchmarkNeedKeywords = []string{"benchmark", "rating", "rated", "stars"}

var satisfactionKeywords = []string{"satisfaction", "satisfied", "happy", "happiness", "sentiment", "how are we doing"}

// OptimizeForPrompt shrinks a dataset result to what the specific query
// needs before it goes to the language model. It never mutates its input;
// callers can rerun it and get the identical reduction.
func OptimizeForPrompt(result *DatasetResult, intent models.FilterIntent, query string) *DatasetResult {
	out := &DatasetResult{
		Tenant:        result.Tenant,
		Nps:           result.Nps,
		NpsByAudience: result.NpsByAudience,
		Rosters:       result.Rosters,
	}

	// Multi-cycle comparison needs nothing beyond the per-person triples;
	// they are provably sufficient for downstream cross-cycle matching.
	if intent.MultiCycle {
		out.CycleScores = result.CycleScores
		return out
	}

	// Roster counting queries never need survey records.
	if intent.NeedsRoster {
		return out
	}

	keep := answerTypesToKeep(intent, query)

	records := result.Records
	if len(records) > maxPromptRecords {
		records = records[:maxPromptRecords]
	}

	out.Records = make([]models.SurveyResponseRecord, 0, len(records))
	for _, record := range records {
		reduced := models.SurveyResponseRecord{
			RespondentName: record.RespondentName,
			RespondentType: record.RespondentType,
			Cycle:          record.Cycle,
			Status:         record.Status,
			Answers:        reduceAnswers(record.Answers, intent, keep),
		}
		out.Records = append(out.Records, reduced)
	}

	return out
}

// answerTypesToKeep picks the answer types relevant to the query, in the
// priority order of the reduction strategy. nil means keep every type.
func answerTypesToKeep(intent models.FilterIntent, query string) map[string]bool {
	q := strings.ToLower(query)

	if intent.Question != "" {
		// A specific question was requested; type filtering happens via the
		// question match itself.
		return nil
	}
	if intent.NeedsNPS && intent.NeedsDemographic {
		return map[string]bool{models.AnswerTypeNPS: true, models.AnswerTypeFiltering: true}
	}
	if containsAny(q, satisfactionKeywords) {
		return map[string]bool{models.AnswerTypeNPS: true, models.AnswerTypeComment: true}
	}
	if intent.NeedsNPS {
		return map[string]bool{models.AnswerTypeNPS: true}
	}
	if containsAny(q, commentNeedKeywords) {
		return map[string]bool{models.AnswerTypeComment: true}
	}
	if containsAny(q, benchmarkNeedKeywords) {
		return map[string]bool{models.AnswerTypeBenchmark: true}
	}
	return nil
}

func reduceAnswers(answers []models.Answer, intent models.FilterIntent, keep map[string]bool) []models.Answer {
	var out []models.Answer
	for _, answer := range answers {
		if intent.Question != "" && !questionMatches(answer.Question, intent.Question) {
			continue
		}
		if keep != nil && !keep[answer.Type] {
			continue
		}
		if len(answer.Text) > maxPromptAnswerChars {
			answer.Text = answer.Text[:maxPromptAnswerChars]
		}
		out = append(out, answer)
	}
	return out
}
