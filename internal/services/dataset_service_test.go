package services

import (
	"testing"
	"time"

	"pulseboard/internal/models"
)

func intPtr(v int) *int { return &v }

func sampleRecords() []models.SurveyResponseRecord {
	return []models.SurveyResponseRecord{
		{
			RespondentName: "Jane Alvarez",
			RespondentType: "parent",
			Cycle:          "Fall 2024",
			Status:         models.StatusCompleted,
			SurveyType:     "pulse",
			AnsweredAt:     "2024-10-14 09:30:00",
			Answers: []models.Answer{
				{Question: "How likely are you to recommend [school_name]?", Type: models.AnswerTypeNPS, Score: intPtr(4)},
			},
		},
		{
			RespondentName: "Jane Alvarez",
			RespondentType: "parent",
			Cycle:          "Spring 2025",
			Status:         models.StatusCompleted,
			SurveyType:     "pulse",
			AnsweredAt:     "2025-04-02 10:00:00",
			Answers: []models.Answer{
				{Question: "How likely are you to recommend [school_name]?", Type: models.AnswerTypeNPS, Score: intPtr(10)},
			},
		},
		{
			RespondentName: "Anonymous",
			RespondentType: "parent",
			Cycle:          "Spring 2025",
			Status:         models.StatusCompleted,
			SurveyType:     "pulse",
			AnsweredAt:     "2025-04-03 08:00:00",
			Answers: []models.Answer{
				{Question: "How likely are you to recommend [school_name]?", Type: models.AnswerTypeNPS, Score: intPtr(9)},
			},
		},
		{
			RespondentName: "Sam Okafor",
			RespondentType: "student",
			Cycle:          "Spring 2025",
			Status:         models.StatusPartial,
			SurveyType:     "custom",
			AnsweredAt:     "2025-04-05 14:00:00",
			Answers: []models.Answer{
				{Question: "What could we improve?", Type: models.AnswerTypeComment, Text: "More clubs please"},
			},
		},
	}
}

func TestFilterRecordsNoFiltersKeepsEverything(t *testing.T) {
	records := sampleRecords()
	filtered := FilterRecords(records, models.FilterIntent{}, time.Now())
	if len(filtered) != len(records) {
		t.Errorf("Expected %d records with no active filters, got %d", len(records), len(filtered))
	}
}

func TestFilterRecordsConjunctive(t *testing.T) {
	records := sampleRecords()
	intent := models.FilterIntent{Audience: "parent", Cycle: "Spring 2025"}

	filtered := FilterRecords(records, intent, time.Now())
	if len(filtered) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(filtered))
	}
	for _, record := range filtered {
		if record.RespondentType != "parent" || record.Cycle != "Spring 2025" {
			t.Errorf("Record %q failed a filter it should have passed", record.RespondentName)
		}
	}
}

func TestFilterRecordsMonotonic(t *testing.T) {
	// Adding a filter must never grow the result set
	records := sampleRecords()
	now := time.Now()

	loose := FilterRecords(records, models.FilterIntent{Audience: "parent"}, now)
	tight := FilterRecords(records, models.FilterIntent{Audience: "parent", Status: models.StatusCompleted, Cycle: "Fall 2024"}, now)

	if len(tight) > len(loose) {
		t.Errorf("Tighter filters returned more records (%d) than looser filters (%d)", len(tight), len(loose))
	}
}

func TestFilterRecordsIdempotent(t *testing.T) {
	records := sampleRecords()
	intent := models.FilterIntent{Audience: "parent"}
	now := time.Now()

	once := FilterRecords(records, intent, now)
	twice := FilterRecords(once, intent, now)

	if len(once) != len(twice) {
		t.Errorf("Expected filtering to be idempotent: %d vs %d records", len(once), len(twice))
	}
}

func TestFilterRecordsWindow(t *testing.T) {
	records := sampleRecords()
	now := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)

	filtered := FilterRecords(records, models.FilterIntent{Window: &models.TimeWindow{Days: 30}}, now)
	for _, record := range filtered {
		if record.Cycle == "Fall 2024" {
			t.Errorf("Fall 2024 record leaked through a 30-day window ending %s", now)
		}
	}
	if len(filtered) != 3 {
		t.Errorf("Expected 3 records inside the window, got %d", len(filtered))
	}
}

func TestFilterRecordsUnparsableDateExcluded(t *testing.T) {
	records := []models.SurveyResponseRecord{
		{RespondentName: "Bad Date", AnsweredAt: "not-a-date"},
	}
	filtered := FilterRecords(records, models.FilterIntent{Window: &models.TimeWindow{Days: 30}}, time.Now())
	if len(filtered) != 0 {
		t.Errorf("Expected unparsable dates to be excluded by time filters, got %d records", len(filtered))
	}
}

func TestCollectNpsScoresSkipsNonNps(t *testing.T) {
	scores := CollectNpsScores(sampleRecords(), "")
	if len(scores) != 3 {
		t.Fatalf("Expected 3 nps scores, got %d", len(scores))
	}
}

func TestCollectNpsScoresQuestionScoped(t *testing.T) {
	records := []models.SurveyResponseRecord{
		{Answers: []models.Answer{
			{Question: "How likely are you to recommend [school_name]?", Type: models.AnswerTypeNPS, Score: intPtr(9)},
			{Question: "How satisfied are you with communication?", Type: models.AnswerTypeNPS, Score: intPtr(3)},
		}},
	}

	scores := CollectNpsScores(records, "How likely are you to recommend Lakeside Academy?")
	if len(scores) != 1 {
		t.Fatalf("Expected 1 question-scoped score, got %d", len(scores))
	}
	if scores[0] != 9 {
		t.Errorf("Expected score 9, got %d", scores[0])
	}
}

func TestCollectCycleScoresExcludesAnonymous(t *testing.T) {
	cycleScores := CollectCycleScores(sampleRecords())

	for _, cs := range cycleScores {
		if cs.RespondentName == "Anonymous" {
			t.Error("Anonymous respondent must not appear in cross-cycle scores")
		}
	}
	if len(cycleScores) != 2 {
		t.Fatalf("Expected 2 cycle scores, got %d", len(cycleScores))
	}
	if cycleScores[0].NpsScore != 4 || cycleScores[1].NpsScore != 10 {
		t.Errorf("Expected scores [4 10], got [%d %d]", cycleScores[0].NpsScore, cycleScores[1].NpsScore)
	}
}

func TestMatchesAnyCycleTolerant(t *testing.T) {
	// Cosmetic label differences still match when every keyword appears
	if !matchesAnyCycle("Fall 2025 Survey", []string{"Fall 2025"}) {
		t.Error("Expected Fall 2025 Survey to match target Fall 2025")
	}
	if matchesAnyCycle("Spring 2025", []string{"Fall 2025"}) {
		t.Error("Expected Spring 2025 not to match target Fall 2025")
	}
}

func TestQuestionMatchesIgnoresPlaceholder(t *testing.T) {
	if !questionMatches("How likely are you to recommend [school_name]?", "how likely are you to recommend") {
		t.Error("Expected placeholder-stripped question match")
	}
}

func TestBuildResultRoster(t *testing.T) {
	kb := &models.KnowledgeBase{
		Tenant:   models.Tenant{Name: "Lakeside Academy"},
		Parents:  make([]models.Person, 42),
		Students: make([]models.Person, 310),
		Admins:   make([]models.Person, 3),
	}

	svc := NewDatasetService("unused.json", time.Hour)
	result := svc.BuildResult(kb, models.FilterIntent{NeedsRoster: true, Audience: "parent"}, "how many parents do we have")

	if len(result.Rosters) != 1 {
		t.Fatalf("Expected 1 roster, got %d", len(result.Rosters))
	}
	if result.Rosters[0].Total != 42 {
		t.Errorf("Expected 42 parents, got %d", result.Rosters[0].Total)
	}
	if len(result.Rosters[0].Sample) > 5 {
		t.Errorf("Expected sample capped at 5, got %d", len(result.Rosters[0].Sample))
	}
	if result.Records != nil {
		t.Error("Roster results must not carry survey records")
	}
}

func TestBuildResultNpsByAudience(t *testing.T) {
	kb := &models.KnowledgeBase{
		Tenant:     models.Tenant{Name: "Lakeside Academy"},
		SurveyData: sampleRecords(),
	}

	svc := NewDatasetService("unused.json", time.Hour)
	intent := ExtractIntent("compare parent and student nps")
	result := svc.BuildResult(kb, intent, "compare parent and student nps")

	if result.Nps != nil {
		t.Error("Expected no global NPS when the query names two audiences")
	}
	if result.NpsByAudience == nil {
		t.Fatal("Expected per-audience NPS")
	}
	if _, ok := result.NpsByAudience["parent"]; !ok {
		t.Error("Expected a parent NPS entry")
	}
	// Students have no nps answers in the sample, so the entry is omitted
	if _, ok := result.NpsByAudience["student"]; ok {
		t.Error("Expected no student entry without nps-typed answers")
	}
}

func TestBuildResultMultiCycle(t *testing.T) {
	kb := &models.KnowledgeBase{
		Tenant:     models.Tenant{Name: "Lakeside Academy"},
		SurveyData: sampleRecords(),
	}

	svc := NewDatasetService("unused.json", time.Hour)
	query := "which parents went from detractor to promoter between Fall 2024 and Spring 2025?"
	intent := ExtractIntent(query)
	result := svc.BuildResult(kb, intent, query)

	if len(result.CycleScores) != 2 {
		t.Fatalf("Expected 2 cycle scores, got %d", len(result.CycleScores))
	}
	if result.Nps != nil {
		t.Error("Multi-cycle comparison must not aggregate into a single NPS")
	}
}
