package services

import (
	"regexp"
	"strings"

	"pulseboard/internal/models"
)

// Heuristic extractors that turn a free-text query into a FilterIntent.
// All of them operate on the lowercase-normalized query, never fail, and
// err toward "no constraint" so an unmatched pattern widens the result set
// instead of over-filtering it.

// timeWindowRules maps time phrases to relative windows. Ordered; first
// match wins.
var timeWindowRules = []struct {
	patterns []string
	window   models.TimeWindow
}{
	{[]string{"last 7 days", "past 7 days", "last seven days", "last week", "past week"}, models.TimeWindow{Days: 7}},
	{[]string{"last 14 days", "past 14 days", "last two weeks", "past two weeks"}, models.TimeWindow{Days: 14}},
	{[]string{"last 30 days", "past 30 days", "last thirty days", "last month", "past month"}, models.TimeWindow{Days: 30}},
	{[]string{"last 90 days", "past 90 days", "past ninety days", "last ninety days", "last quarter", "past quarter"}, models.TimeWindow{Months: 3}},
	{[]string{"last 3 months", "past 3 months", "last three months", "past three months"}, models.TimeWindow{Months: 3}},
	{[]string{"last 6 months", "past 6 months", "last six months", "past six months"}, models.TimeWindow{Months: 6}},
	{[]string{"last 12 months", "past 12 months", "last year", "past year", "this year"}, models.TimeWindow{Months: 12}},
}

// audienceTokens maps audience keywords to the canonical module name.
var audienceTokens = []struct {
	tokens   []string
	audience string
}{
	{[]string{"parent"}, "parent"},
	{[]string{"student", "pupil"}, "student"},
	{[]string{"employee", "staff", "teacher"}, "employee"},
}

var comparisonKeywords = []string{
	"improve", "improved", "changed", "change from", "became", "become",
	"between", "compare", "compared", "comparison", "versus", " vs ",
	"from detractor", "from passive", "from promoter", "went from",
}

var npsKeywords = []string{
	"nps", "net promoter", "promoter", "detractor", "passive", "score",
	// Satisfaction vocabulary is an NPS request in practice: the only
	// satisfaction metric the platform measures is the NPS rating.
	"satisfaction", "satisfied", "happy", "happiness", "sentiment", "performance",
}

var demographicKeywords = []string{
	"demographic", "by grade", "by gender", "by department", "by year group",
	"breakdown", "broken down", "segment", "per grade",
}

var rosterKeywords = []string{
	"how many", "number of", "count of", "total number", "roster", "list of",
}

var surveyDataKeywords = []string{
	"survey", "nps", "score", "response", "respond", "feedback", "comment",
	"cycle", "sequence", "answer", "rating", "promoter", "detractor",
	"satisf", "improve",
}

// cyclePattern matches "{season} {year}" cycle mentions, tolerating the
// common "sprint" typo for "spring". Years may be 2 or 4 digits.
var cyclePattern = regexp.MustCompile(`(?i)\b(spring|sprint|summer|fall|autumn|winter)\s+'?(\d{2,4})\b`)

// yearFirstCyclePattern matches "{year or year-range} {season}" mentions,
// e.g. "2024-25 spring" or "2025 fall".
var yearFirstCyclePattern = regexp.MustCompile(`(?i)\b(\d{4}(?:\s*[-/]\s*\d{2,4})?)\s+(spring|sprint|summer|fall|autumn|winter)\b`)

var quotedSpanPattern = regexp.MustCompile(`["'“”]([^"'“”]{3,})["'“”]`)

var questionClausePattern = regexp.MustCompile(`(?i)(?:for|about|to|on)?\s*the question[,:]?\s+(.+?)(?:\?|$)`)

// ExtractIntent runs every extractor over the query and assembles the
// request-scoped FilterIntent.
func ExtractIntent(query string) models.FilterIntent {
	q := strings.ToLower(strings.TrimSpace(query))

	intent := models.FilterIntent{
		Window:     ExtractTimeWindow(q),
		Audience:   ExtractAudience(q),
		Question:   ExtractQuestion(query),
		Status:     ExtractStatus(q),
		SurveyType: ExtractSurveyType(q),
	}

	cycles := ExtractAllCycles(q)
	if len(cycles) >= 2 && containsAny(q, comparisonKeywords) {
		intent.MultiCycle = true
		intent.Cycles = cycles
	} else if len(cycles) > 0 {
		intent.Cycle = cycles[0]
	}

	intent.NeedsNPS = containsAny(q, npsKeywords)
	intent.NeedsDemographic = containsAny(q, demographicKeywords)
	intent.NeedsRoster = needsRoster(q)

	return intent
}

// ExtractTimeWindow returns the relative time window mentioned in the
// query, or nil when none is mentioned (no default window is assumed).
func ExtractTimeWindow(q string) *models.TimeWindow {
	for _, rule := range timeWindowRules {
		for _, pattern := range rule.patterns {
			if strings.Contains(q, pattern) {
				w := rule.window
				return &w
			}
		}
	}
	return nil
}

// ExtractAudience returns the single audience the query targets, or ""
// when the query names none or more than one (never narrow on ambiguity).
func ExtractAudience(q string) string {
	audiences := ExtractAudiences(q)
	if len(audiences) == 1 {
		return audiences[0]
	}
	return ""
}

// ExtractAudiences returns every audience the query mentions, in rule order.
func ExtractAudiences(q string) []string {
	var found []string
	for _, rule := range audienceTokens {
		for _, token := range rule.tokens {
			if strings.Contains(q, token) {
				found = append(found, rule.audience)
				break
			}
		}
	}
	return found
}

// ExtractAllCycles returns every distinct normalized cycle label mentioned
// in the query, e.g. "Sprint 2025" -> "Spring 2025".
func ExtractAllCycles(q string) []string {
	var labels []string
	seen := make(map[string]bool)

	add := func(season, year string) {
		label := normalizeSeason(season) + " " + strings.TrimPrefix(year, "'")
		if !seen[label] {
			seen[label] = true
			labels = append(labels, label)
		}
	}

	for _, m := range cyclePattern.FindAllStringSubmatch(q, -1) {
		add(m[1], m[2])
	}
	for _, m := range yearFirstCyclePattern.FindAllStringSubmatch(q, -1) {
		// Year-range first: "2024-25 Spring" -> "Spring 2024-25"
		add(m[2], strings.ReplaceAll(strings.ReplaceAll(m[1], " ", ""), "/", "-"))
	}

	return labels
}

// ExtractQuestion pulls the target question text out of the query. Quoted
// spans win; otherwise a "the question ..." clause is taken up to the next
// question mark.
func ExtractQuestion(query string) string {
	if m := quotedSpanPattern.FindStringSubmatch(query); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := questionClausePattern.FindStringSubmatch(query); m != nil {
		return strings.TrimSpace(strings.Trim(m[1], `"'`))
	}
	return ""
}

// ExtractStatus maps completion vocabulary to a survey status filter.
func ExtractStatus(q string) string {
	switch {
	case strings.Contains(q, "completed") || strings.Contains(q, "finished") || strings.Contains(q, "fully answered"):
		return models.StatusCompleted
	case strings.Contains(q, "partial") || strings.Contains(q, "incomplete") || strings.Contains(q, "half answered"):
		return models.StatusPartial
	case strings.Contains(q, "not answered") || strings.Contains(q, "unanswered") || strings.Contains(q, "no response"):
		return models.StatusSent
	}
	return ""
}

// ExtractSurveyType detects pulse vs custom survey mentions.
func ExtractSurveyType(q string) string {
	switch {
	case strings.Contains(q, "pulse"):
		return "pulse"
	case strings.Contains(q, "custom survey") || strings.Contains(q, "custom questionnaire"):
		return "custom"
	}
	return ""
}

// needsRoster is true for pure counting/listing questions about people that
// never touch survey data ("how many students do we have").
func needsRoster(q string) bool {
	if !containsAny(q, rosterKeywords) {
		return false
	}
	if len(ExtractAudiences(q)) == 0 && !strings.Contains(q, "admin") && !strings.Contains(q, "user") {
		return false
	}
	return !containsAny(q, surveyDataKeywords)
}

func normalizeSeason(season string) string {
	s := strings.ToLower(season)
	if s == "sprint" { // known typo class
		s = "spring"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func containsAny(q string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}
