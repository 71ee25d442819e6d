package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yuin/goldmark"
)

const summarizerSystemPrompt = `You are the analytics assistant for a school survey-feedback platform.
You are given the user's question and the relevant data already filtered for it.
Answer the question directly and concisely in plain language, citing the concrete numbers from the data.
If the data includes an NPS breakdown, report the score and the promoter/passive/detractor split.
If the data is a cross-cycle score list, match respondents by name across cycles and describe who changed category.
Never invent numbers that are not in the data. Use Markdown.`

// SummarizerService turns raw rows or a reduced dataset plus the user's
// question into user-facing prose. Without a configured model it degrades
// to returning the structured data as text - availability over polish.
type SummarizerService struct {
	ai *AIClient
	md goldmark.Markdown
}

// NewSummarizerService creates a new summarizer
func NewSummarizerService(ai *AIClient) *SummarizerService {
	return &SummarizerService{
		ai: ai,
		md: goldmark.New(),
	}
}

// SummarizeRows answers a question from SQL result rows.
func (s *SummarizerService) SummarizeRows(ctx context.Context, query string, result *QueryResult) string {
	payload := map[string]interface{}{
		"columns": result.Columns,
		"rows":    result.Rows,
	}
	if result.Note != "" {
		payload["note"] = result.Note
	}
	return s.summarize(ctx, query, payload)
}

// SummarizeDataset answers a question from a reduced knowledge-base
// projection.
func (s *SummarizerService) SummarizeDataset(ctx context.Context, query string, data *DatasetResult) string {
	return s.summarize(ctx, query, data)
}

// SummarizeHelpdesk answers a how-to question grounded in a documentation
// article.
func (s *SummarizerService) SummarizeHelpdesk(ctx context.Context, message, title, url, body string) string {
	if !s.ai.Configured() {
		if url == "" {
			return "I couldn't find a matching help article for that question."
		}
		return fmt.Sprintf("See the help article \"%s\": %s", title, url)
	}

	systemPrompt := `You are the support assistant for a school survey-feedback platform.
Answer the user's how-to question using only the documentation article below.
Keep the answer short and practical, and link the article at the end. Use Markdown.

Article: ` + title + ` (` + url + `)
---
` + body

	callCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
	defer cancel()

	answer, err := s.ai.Complete(callCtx, systemPrompt, message)
	if err != nil {
		log.Printf("⚠️ [SUMMARIZER] Helpdesk summarization failed: %v", err)
		if url != "" {
			return fmt.Sprintf("See the help article \"%s\": %s", title, url)
		}
		return "I couldn't find a matching help article for that question."
	}
	return s.RenderHTML(answer)
}

func (s *SummarizerService) summarize(ctx context.Context, query string, payload interface{}) string {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		data = []byte(fmt.Sprintf("%v", payload))
	}

	if !s.ai.Configured() {
		// Raw-data dump beats an error: the caller still gets the numbers.
		return "Here is the data I found:\n\n" + string(data)
	}

	userPrompt := fmt.Sprintf("Question: %s\n\nData:\n%s", query, string(data))

	callCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
	defer cancel()

	answer, err := s.ai.Complete(callCtx, summarizerSystemPrompt, userPrompt)
	if err != nil {
		log.Printf("⚠️ [SUMMARIZER] Model call failed, returning raw data: %v", err)
		return "Here is the data I found:\n\n" + string(data)
	}

	return s.RenderHTML(answer)
}

// RenderHTML converts the model's Markdown answer to HTML for the
// dashboard. Returns the original text when conversion fails.
func (s *SummarizerService) RenderHTML(markdown string) string {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(markdown), &buf); err != nil {
		log.Printf("⚠️ [SUMMARIZER] Markdown conversion failed: %v", err)
		return markdown
	}
	return strings.TrimSpace(buf.String())
}
