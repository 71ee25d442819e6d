package services

import (
	"strings"
	"testing"

	"pulseboard/internal/models"
)

func TestOptimizeForPromptKeepsOnlyNpsAnswers(t *testing.T) {
	result := &DatasetResult{
		Records: []models.SurveyResponseRecord{
			{
				RespondentName: "Jane Alvarez",
				Answers: []models.Answer{
					{Question: "Recommend?", Type: models.AnswerTypeNPS, Score: intPtr(9)},
					{Question: "Comments?", Type: models.AnswerTypeComment, Text: "Great school"},
					{Question: "Grade?", Type: models.AnswerTypeFiltering, Values: []string{"5th"}},
				},
			},
		},
	}

	intent := models.FilterIntent{NeedsNPS: true}
	optimized := OptimizeForPrompt(result, intent, "what is our nps")

	if len(optimized.Records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(optimized.Records))
	}
	answers := optimized.Records[0].Answers
	if len(answers) != 1 {
		t.Fatalf("Expected 1 answer after reduction, got %d", len(answers))
	}
	if answers[0].Type != models.AnswerTypeNPS {
		t.Errorf("Expected nps answer, got %s", answers[0].Type)
	}
}

func TestOptimizeForPromptNpsPlusDemographic(t *testing.T) {
	result := &DatasetResult{
		Records: []models.SurveyResponseRecord{
			{
				Answers: []models.Answer{
					{Type: models.AnswerTypeNPS, Score: intPtr(9)},
					{Type: models.AnswerTypeFiltering, Values: []string{"5th"}},
					{Type: models.AnswerTypeComment, Text: "hello"},
				},
			},
		},
	}

	intent := models.FilterIntent{NeedsNPS: true, NeedsDemographic: true}
	optimized := OptimizeForPrompt(result, intent, "nps breakdown by grade")

	answers := optimized.Records[0].Answers
	if len(answers) != 2 {
		t.Fatalf("Expected nps and filtering answers, got %d", len(answers))
	}
	for _, answer := range answers {
		if answer.Type == models.AnswerTypeComment {
			t.Error("Comment answers must be dropped for demographic breakdowns")
		}
	}
}

func TestOptimizeForPromptSatisfactionKeepsComments(t *testing.T) {
	result := &DatasetResult{
		Records: []models.SurveyResponseRecord{
			{
				Answers: []models.Answer{
					{Type: models.AnswerTypeNPS, Score: intPtr(8)},
					{Type: models.AnswerTypeComment, Text: "Mostly happy"},
					{Type: models.AnswerTypeBenchmark, Rating: float64Ptr(4.2)},
				},
			},
		},
	}

	// Satisfaction questions need both the scores and the verbatims
	optimized := OptimizeForPrompt(result, models.FilterIntent{NeedsNPS: true}, "how satisfied are parents")

	answers := optimized.Records[0].Answers
	if len(answers) != 2 {
		t.Fatalf("Expected nps and comment answers, got %d", len(answers))
	}
}

func TestOptimizeForPromptCapsRecords(t *testing.T) {
	records := make([]models.SurveyResponseRecord, maxPromptRecords+25)
	result := &DatasetResult{Records: records}

	optimized := OptimizeForPrompt(result, models.FilterIntent{}, "show all responses")
	if len(optimized.Records) != maxPromptRecords {
		t.Errorf("Expected records capped at %d, got %d", maxPromptRecords, len(optimized.Records))
	}
}

func TestOptimizeForPromptTruncatesLongText(t *testing.T) {
	long := strings.Repeat("a", maxPromptAnswerChars+100)
	result := &DatasetResult{
		Records: []models.SurveyResponseRecord{
			{Answers: []models.Answer{{Type: models.AnswerTypeComment, Text: long}}},
		},
	}

	optimized := OptimizeForPrompt(result, models.FilterIntent{}, "what did people write in the comments")
	got := optimized.Records[0].Answers[0].Text
	if len(got) != maxPromptAnswerChars {
		t.Errorf("Expected text truncated to %d chars, got %d", maxPromptAnswerChars, len(got))
	}
}

func TestOptimizeForPromptDoesNotMutateInput(t *testing.T) {
	long := strings.Repeat("b", maxPromptAnswerChars+50)
	result := &DatasetResult{
		Records: []models.SurveyResponseRecord{
			{Answers: []models.Answer{{Type: models.AnswerTypeComment, Text: long}}},
		},
	}

	OptimizeForPrompt(result, models.FilterIntent{}, "comments please")
	if len(result.Records[0].Answers[0].Text) != len(long) {
		t.Error("OptimizeForPrompt mutated its input")
	}
}

func TestOptimizeForPromptMultiCycleDropsRecords(t *testing.T) {
	result := &DatasetResult{
		Records:     sampleRecords(),
		CycleScores: []models.CycleScore{{RespondentName: "Jane Alvarez", CycleLabel: "Fall 2024", NpsScore: 4}},
	}

	optimized := OptimizeForPrompt(result, models.FilterIntent{MultiCycle: true}, "compare cycles")
	if optimized.Records != nil {
		t.Error("Multi-cycle prompts carry cycle scores only, not raw records")
	}
	if len(optimized.CycleScores) != 1 {
		t.Errorf("Expected cycle scores preserved, got %d", len(optimized.CycleScores))
	}
}

func TestOptimizeForPromptRosterDropsRecords(t *testing.T) {
	result := &DatasetResult{
		Records: sampleRecords(),
		Rosters: []RosterSummary{{Audience: "parent", Total: 42}},
	}

	optimized := OptimizeForPrompt(result, models.FilterIntent{NeedsRoster: true}, "how many parents")
	if optimized.Records != nil {
		t.Error("Roster prompts must not carry survey records")
	}
	if len(optimized.Rosters) != 1 {
		t.Errorf("Expected roster preserved, got %d", len(optimized.Rosters))
	}
}

func float64Ptr(v float64) *float64 { return &v }
