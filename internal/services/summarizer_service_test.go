package services

import (
	"context"
	"strings"
	"testing"
)

func TestSummarizeRowsWithoutModel(t *testing.T) {
	svc := NewSummarizerService(NewAIClient("", "", ""))

	result := &QueryResult{
		Rows:    []map[string]interface{}{{"total": 42}},
		Columns: []string{"total"},
		Note:    "No survey response data exists yet for this school.",
	}

	response := svc.SummarizeRows(context.Background(), "how many responses do we have", result)
	if !strings.Contains(response, "42") {
		t.Errorf("Expected raw data in the degraded response, got %q", response)
	}
	if !strings.Contains(response, "No survey response data exists") {
		t.Errorf("Expected the stage note to be carried through, got %q", response)
	}
}

func TestSummarizeHelpdeskWithoutModelLinksArticle(t *testing.T) {
	svc := NewSummarizerService(NewAIClient("", "", ""))

	response := svc.SummarizeHelpdesk(context.Background(),
		"how do I export", "Exporting reports", "https://help.example.test/articles/exporting-reports", "")
	if !strings.Contains(response, "https://help.example.test/articles/exporting-reports") {
		t.Errorf("Expected the article link, got %q", response)
	}
}

func TestRenderHTML(t *testing.T) {
	svc := NewSummarizerService(NewAIClient("", "", ""))

	html := svc.RenderHTML("Your NPS is **40**")
	if !strings.Contains(html, "<strong>40</strong>") {
		t.Errorf("Expected bold markup, got %q", html)
	}
}
