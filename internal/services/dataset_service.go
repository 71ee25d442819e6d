package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	cache "github.com/patrickmn/go-cache"

	"pulseboard/internal/models"
)

// questionPlaceholder is the merge token the survey builder injects into
// question templates. It is stripped from both sides before question
// matching so "How likely are you to recommend [school_name]" matches the
// rendered question text.
const questionPlaceholder = "[school_name]"

// datasetTimeFormats are the timestamp layouts accepted on survey records.
// Records whose dates fit none of these are skipped by time filters rather
// than failing the whole request.
var datasetTimeFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// RosterSummary is a size-bounded view of a roster list: the exact count
// plus a small sample, never the full enumeration.
type RosterSummary struct {
	Audience string          `json:"audience"`
	Total    int             `json:"total"`
	Sample   []models.Person `json:"sample,omitempty"`
}

// DatasetResult is the query-relevant projection of a knowledge base.
type DatasetResult struct {
	Tenant        models.Tenant                 `json:"tenant"`
	Records       []models.SurveyResponseRecord `json:"records,omitempty"`
	Nps           *models.NpsResult             `json:"nps,omitempty"`
	NpsByAudience map[string]*models.NpsResult  `json:"nps_by_audience,omitempty"`
	CycleScores   []models.CycleScore           `json:"cycle_scores,omitempty"`
	Rosters       []RosterSummary               `json:"rosters,omitempty"`
	Cycles        []models.SurveyCycle          `json:"cycles,omitempty"`
}

// DatasetService loads the per-tenant knowledge-base snapshot and reduces
// it to the subset a query needs. The snapshot is read-only; it is cached
// in-process and reloaded at most once per reload TTL, or immediately when
// the export process rewrites the file.
type DatasetService struct {
	path      string
	reloadTTL time.Duration
	cache     *cache.Cache
	watcher   *fsnotify.Watcher
}

// NewDatasetService creates a dataset service for the given snapshot path
func NewDatasetService(path string, reloadTTL time.Duration) *DatasetService {
	return &DatasetService{
		path:      path,
		reloadTTL: reloadTTL,
		cache:     cache.New(reloadTTL, 10*time.Minute),
	}
}

// Load returns the cached knowledge base, reading it from disk when the
// cached copy has expired or was invalidated.
func (s *DatasetService) Load() (*models.KnowledgeBase, error) {
	if cached, found := s.cache.Get(s.path); found {
		return cached.(*models.KnowledgeBase), nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge base: %w", err)
	}

	var kb models.KnowledgeBase
	if err := json.Unmarshal(data, &kb); err != nil {
		return nil, fmt.Errorf("failed to parse knowledge base JSON: %w", err)
	}

	s.cache.Set(s.path, &kb, cache.DefaultExpiration)
	log.Printf("📦 [DATASET] Loaded knowledge base for %s (%d survey responses, %d cycles)",
		kb.Tenant.Name, len(kb.SurveyData), len(kb.SurveyCycles))

	return &kb, nil
}

// Invalidate drops the cached snapshot so the next Load rereads the file.
func (s *DatasetService) Invalidate() {
	s.cache.Delete(s.path)
}

// Watch invalidates the cache whenever the export process rewrites the
// snapshot file. Blocks until ctx is done; run it in a goroutine.
func (s *DatasetService) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	s.watcher = watcher

	// Watch the directory - exporters typically replace the file atomically
	// via rename, which drops a watch placed on the file itself.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch knowledge base dir: %w", err)
	}

	log.Printf("👀 [DATASET] Watching %s for changes", s.path)

	defer watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				log.Printf("🔄 [DATASET] Knowledge base changed on disk, invalidating cache")
				s.Invalidate()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("⚠️ [DATASET] Watcher error: %v", err)
		}
	}
}

// BuildResult reduces the knowledge base to the records and aggregates the
// intent asks for. Pure with respect to the knowledge base: identical
// inputs always produce identical output.
func (s *DatasetService) BuildResult(kb *models.KnowledgeBase, intent models.FilterIntent, query string) *DatasetResult {
	result := &DatasetResult{
		Tenant: kb.Tenant,
		Cycles: kb.SurveyCycles,
	}

	if intent.NeedsRoster {
		result.Rosters = buildRosters(kb, intent)
		return result
	}

	records := FilterRecords(kb.SurveyData, intent, time.Now())
	result.Records = records

	if intent.MultiCycle {
		// Cross-cycle comparison keeps one score per identified respondent
		// per cycle; aggregating here would lose the per-person trajectory.
		result.CycleScores = CollectCycleScores(records)
		return result
	}

	if intent.NeedsNPS {
		audiences := ExtractAudiences(strings.ToLower(query))
		if len(audiences) >= 2 {
			byAudience := make(map[string]*models.NpsResult, len(audiences))
			for _, audience := range audiences {
				scoped := models.FilterIntent{Audience: audience, Question: intent.Question}
				if nps := ComputeNPS(CollectNpsScores(FilterRecords(records, scoped, time.Now()), intent.Question)); nps != nil {
					byAudience[audience] = nps
				}
			}
			result.NpsByAudience = byAudience
		} else {
			result.Nps = ComputeNPS(CollectNpsScores(records, intent.Question))
		}
	}

	return result
}

// FilterRecords applies the intent's filters conjunctively in a fixed
// order. A record is included only if it passes every active filter;
// inactive filters never exclude anything.
func FilterRecords(records []models.SurveyResponseRecord, intent models.FilterIntent, now time.Time) []models.SurveyResponseRecord {
	var out []models.SurveyResponseRecord
	for _, record := range records {
		if intent.Window != nil && !matchesWindow(record, *intent.Window, now) {
			continue
		}
		if intent.Audience != "" && !strings.EqualFold(record.RespondentType, intent.Audience) {
			continue
		}
		if intent.Cycle != "" && !containsFold(record.Cycle, intent.Cycle) {
			continue
		}
		if intent.MultiCycle && len(intent.Cycles) > 0 && !matchesAnyCycle(record.Cycle, intent.Cycles) {
			continue
		}
		if intent.Status != "" && !strings.EqualFold(record.Status, intent.Status) {
			continue
		}
		if intent.SurveyType != "" && !strings.EqualFold(record.SurveyType, intent.SurveyType) {
			continue
		}
		if intent.Question != "" && !hasMatchingQuestion(record, intent.Question) {
			continue
		}
		out = append(out, record)
	}
	return out
}

// CollectNpsScores gathers nps-typed answer scores from the records,
// optionally scoped to a target question.
func CollectNpsScores(records []models.SurveyResponseRecord, question string) []int {
	var scores []int
	for _, record := range records {
		for _, answer := range record.Answers {
			if answer.Type != models.AnswerTypeNPS || answer.Score == nil {
				continue
			}
			if question != "" && !questionMatches(answer.Question, question) {
				continue
			}
			scores = append(scores, *answer.Score)
		}
	}
	return scores
}

// CollectCycleScores keeps one {respondent, cycle, score} triple per
// qualifying record. Anonymous respondents are dropped: cross-cycle
// matching needs a stable identity.
func CollectCycleScores(records []models.SurveyResponseRecord) []models.CycleScore {
	var out []models.CycleScore
	for _, record := range records {
		name := strings.TrimSpace(record.RespondentName)
		if name == "" || strings.EqualFold(name, "anonymous") {
			continue
		}
		for _, answer := range record.Answers {
			if answer.Type == models.AnswerTypeNPS && answer.Score != nil {
				out = append(out, models.CycleScore{
					RespondentName: name,
					CycleLabel:     record.Cycle,
					NpsScore:       *answer.Score,
				})
				break
			}
		}
	}
	return out
}

func buildRosters(kb *models.KnowledgeBase, intent models.FilterIntent) []RosterSummary {
	rosters := []struct {
		audience string
		people   []models.Person
	}{
		{"parent", kb.Parents},
		{"student", kb.Students},
		{"employee", kb.Employees},
		{"admin", kb.Admins},
	}

	var out []RosterSummary
	for _, roster := range rosters {
		if intent.Audience != "" && roster.audience != intent.Audience {
			continue
		}
		if intent.Audience == "" && roster.audience == "admin" {
			continue
		}
		sample := roster.people
		if len(sample) > 5 {
			sample = sample[:5]
		}
		out = append(out, RosterSummary{
			Audience: roster.audience,
			Total:    len(roster.people),
			Sample:   sample,
		})
	}
	return out
}

// matchesWindow checks the record's answer (or send) timestamp against a
// relative window. Records with absent or unparsable dates are skipped.
func matchesWindow(record models.SurveyResponseRecord, window models.TimeWindow, now time.Time) bool {
	raw := record.AnsweredAt
	if raw == "" {
		raw = record.SentAt
	}
	ts, ok := parseFlexibleTime(raw)
	if !ok {
		return false
	}

	var cutoff time.Time
	if window.Days > 0 {
		cutoff = now.AddDate(0, 0, -window.Days)
	} else {
		cutoff = now.AddDate(0, -window.Months, 0)
	}
	return !ts.Before(cutoff)
}

// matchesAnyCycle reports whether the record's cycle label matches any
// target label. A target matches when all of its whitespace-split keywords
// appear in the record's label; this tolerant matching absorbs cosmetic
// label differences ("Fall 2025" vs "Fall 2025 Survey").
func matchesAnyCycle(recordCycle string, targets []string) bool {
	lowered := strings.ToLower(recordCycle)
	for _, target := range targets {
		keywords := strings.Fields(strings.ToLower(target))
		if len(keywords) == 0 {
			continue
		}
		all := true
		for _, keyword := range keywords {
			if !strings.Contains(lowered, keyword) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

func hasMatchingQuestion(record models.SurveyResponseRecord, question string) bool {
	for _, answer := range record.Answers {
		if questionMatches(answer.Question, question) {
			return true
		}
	}
	return false
}

// questionMatches compares question texts with the merge placeholder and
// punctuation stripped, in either direction: the stored template may carry
// "[school_name]" where the user quoted the rendered school name.
func questionMatches(answerQuestion, target string) bool {
	a := stripPlaceholder(answerQuestion)
	b := stripPlaceholder(target)
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func stripPlaceholder(s string) string {
	s = strings.ReplaceAll(strings.ToLower(s), questionPlaceholder, "")
	s = strings.Map(func(r rune) rune {
		switch r {
		case '?', '!', '.', ',':
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func parseFlexibleTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range datasetTimeFormats {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
