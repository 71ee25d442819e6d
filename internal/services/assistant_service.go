package services

import (
	"context"
	"log"
	"strings"
	"time"

	"pulseboard/internal/models"
)

const couldNotAnswerMessage = "I wasn't able to answer that from your survey data. Try rephrasing the question or narrowing it to a specific survey cycle."

var helpdeskIntentKeywords = []string{
	"how do i", "how to", "where is", "where can i", "where do i",
	"settings", "configuration", "configure", "set up", "setup",
}

var databaseIntentKeywords = []string{
	"how many", "count", "number of", "total",
	"nps", "net promoter", "score", "promoter", "detractor", "passive",
	"survey", "cycle", "sequence", "pulse",
	"comment", "feedback", "response", "respond", "answer",
	"parent", "student", "employee", "staff", "teacher",
	"admin", "user", "roster",
	"demographic", "benchmark", "rating", "average", "satisfaction",
}

var followUpKeywords = []string{
	"improve", "why is", "explain", "more detail", "compare",
}

var followUpPronouns = []string{"it", "this", "that"}

var followUpDataWords = []string{"score", "nps", "result", "data"}

// AssistantService is the answering entry point: it classifies intent,
// resolves follow-ups against conversational memory and dispatches to the
// SQL pipeline, the knowledge-base pipeline or the helpdesk.
type AssistantService struct {
	store      ConversationStore
	dataset    *DatasetService
	executor   *ExecutorService // nil when no relational store is configured
	summarizer *SummarizerService
	helpdesk   *HelpdeskService
	ai         *AIClient
	metrics    *Metrics
}

// NewAssistantService creates the assistant with its constructed
// dependencies - the store is injected, never ambient state.
func NewAssistantService(
	store ConversationStore,
	dataset *DatasetService,
	executor *ExecutorService,
	summarizer *SummarizerService,
	helpdesk *HelpdeskService,
	ai *AIClient,
	metrics *Metrics,
) *AssistantService {
	return &AssistantService{
		store:      store,
		dataset:    dataset,
		executor:   executor,
		summarizer: summarizer,
		helpdesk:   helpdesk,
		ai:         ai,
		metrics:    metrics,
	}
}

// Answer routes one user query to the right pipeline and records the
// exchange in memory. Only an empty query is a user-visible error.
func (s *AssistantService) Answer(ctx context.Context, query, sessionID string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", ErrEmptyInput
	}

	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordLatency(time.Since(start).Seconds())
		}
	}()

	// Follow-up questions continue on the backend that produced the prior
	// analytics answer, with the current query text.
	if sessionID != "" {
		if prior, err := s.store.LastAnalytics(ctx, sessionID); err == nil && prior != nil && IsFollowUp(query) {
			log.Printf("🔁 [ASSISTANT] Follow-up detected, rerouting to %s backend", prior.Source)
			s.recordRequest(models.InteractionFollowup)
			if prior.Source == models.SourceSQL {
				return s.analyticsAnswer(ctx, query, sessionID, models.InteractionFollowup)
			}
			return s.knowledgeBaseAnswer(ctx, query, sessionID, models.InteractionFollowup)
		}
	}

	switch s.ClassifyIntent(ctx, query) {
	case models.InteractionHelpdesk:
		s.recordRequest(models.InteractionHelpdesk)
		return s.HelpdeskAnswer(ctx, query, sessionID)
	default:
		s.recordRequest(models.InteractionAnalytics)
		return s.dataAnswer(ctx, query, sessionID)
	}
}

// ClassifyIntent decides helpdesk vs database by ordered keyword scan,
// asking the model only when both keyword lists miss. Total ambiguity
// defaults to helpdesk.
func (s *AssistantService) ClassifyIntent(ctx context.Context, query string) string {
	q := strings.ToLower(query)

	if containsAny(q, helpdeskIntentKeywords) {
		return models.InteractionHelpdesk
	}
	if containsAny(q, databaseIntentKeywords) {
		return models.InteractionAnalytics
	}

	if s.ai.Configured() {
		callCtx, cancel := context.WithTimeout(ctx, 12*time.Second)
		defer cancel()
		answer, err := s.ai.Complete(callCtx,
			`Classify the user message for a school survey platform. Respond with exactly one word: "helpdesk" if it asks how to use the product, "database" if it asks about survey data, people or metrics.`,
			query)
		if err == nil {
			switch strings.ToLower(strings.TrimSpace(answer)) {
			case "database":
				return models.InteractionAnalytics
			case "helpdesk":
				return models.InteractionHelpdesk
			}
		}
	}

	return models.InteractionHelpdesk
}

// IsFollowUp is the follow-up heuristic: continuation keywords, short
// pronoun-only queries, or wh-questions about the previous numbers.
func IsFollowUp(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))

	if containsAny(q, followUpKeywords) {
		return true
	}

	words := strings.Fields(q)
	if len(words) <= 6 {
		for _, word := range words {
			trimmed := strings.Trim(word, "?.!,")
			for _, pronoun := range followUpPronouns {
				if trimmed == pronoun {
					return true
				}
			}
		}
	}

	if strings.HasPrefix(q, "what") || strings.HasPrefix(q, "why") || strings.HasPrefix(q, "how") || strings.HasPrefix(q, "which") {
		if containsAny(q, followUpDataWords) {
			return true
		}
	}

	return false
}

// dataAnswer picks the data pipeline: roster and dataset-shaped questions
// go to the knowledge base, everything else tries SQL first and falls back
// to the knowledge base before giving up.
func (s *AssistantService) dataAnswer(ctx context.Context, query, sessionID string) (string, error) {
	intent := ExtractIntent(query)

	if s.executor == nil || intent.NeedsRoster {
		return s.knowledgeBaseAnswer(ctx, query, sessionID, models.InteractionAnalytics)
	}

	response, err := s.analyticsAnswer(ctx, query, sessionID, models.InteractionAnalytics)
	if err == nil && response != couldNotAnswerMessage {
		return response, nil
	}
	return s.knowledgeBaseAnswer(ctx, query, sessionID, models.InteractionAnalytics)
}

// AnalyticsAnswer answers via the SQL pipeline.
func (s *AssistantService) AnalyticsAnswer(ctx context.Context, query, sessionID string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", ErrEmptyInput
	}
	return s.analyticsAnswer(ctx, query, sessionID, models.InteractionAnalytics)
}

func (s *AssistantService) analyticsAnswer(ctx context.Context, query, sessionID, interactionType string) (string, error) {
	if s.executor == nil {
		return s.knowledgeBaseAnswer(ctx, query, sessionID, interactionType)
	}

	intent := ExtractIntent(query)

	result, err := s.executor.Execute(ctx, query, intent)
	if err != nil {
		log.Printf("⚠️ [ASSISTANT] SQL pipeline exhausted: %v", err)
		if s.metrics != nil {
			s.metrics.RecordError("sql_pipeline")
		}
		s.remember(ctx, sessionID, models.Interaction{
			Type: interactionType, Query: query,
			Source: models.SourceSQL, Response: couldNotAnswerMessage,
		})
		return couldNotAnswerMessage, nil
	}

	response := s.summarizer.SummarizeRows(ctx, query, result)

	s.remember(ctx, sessionID, models.Interaction{
		Type: interactionType, Query: query,
		Rows: result.Rows, Columns: result.Columns,
		Source: models.SourceSQL, Response: response,
	})
	return response, nil
}

// KnowledgeBaseAnswer answers via the local dataset pipeline.
func (s *AssistantService) KnowledgeBaseAnswer(ctx context.Context, query, sessionID string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", ErrEmptyInput
	}
	return s.knowledgeBaseAnswer(ctx, query, sessionID, models.InteractionAnalytics)
}

func (s *AssistantService) knowledgeBaseAnswer(ctx context.Context, query, sessionID, interactionType string) (string, error) {
	kb, err := s.dataset.Load()
	if err != nil {
		log.Printf("⚠️ [ASSISTANT] Knowledge base unavailable: %v", err)
		if s.metrics != nil {
			s.metrics.RecordError("knowledge_base")
		}
		s.remember(ctx, sessionID, models.Interaction{
			Type: interactionType, Query: query,
			Source: models.SourceKnowledgeBase, Response: couldNotAnswerMessage,
		})
		return couldNotAnswerMessage, nil
	}

	intent := ExtractIntent(query)
	result := s.dataset.BuildResult(kb, intent, query)
	optimized := OptimizeForPrompt(result, intent, query)

	response := s.summarizer.SummarizeDataset(ctx, query, optimized)

	s.remember(ctx, sessionID, models.Interaction{
		Type: interactionType, Query: query,
		Source: models.SourceKnowledgeBase, Response: response,
	})
	return response, nil
}

// HelpdeskAnswer answers a how-to question via the documentation catalog.
func (s *AssistantService) HelpdeskAnswer(ctx context.Context, message, sessionID string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyInput
	}

	response := s.helpdesk.Answer(ctx, message)

	s.remember(ctx, sessionID, models.Interaction{
		Type: models.InteractionHelpdesk, Query: message, Response: response,
	})
	return response, nil
}

// ClearSession drops a session's conversational memory.
func (s *AssistantService) ClearSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.store.Clear(ctx, sessionID)
}

func (s *AssistantService) remember(ctx context.Context, sessionID string, interaction models.Interaction) {
	if sessionID == "" {
		return
	}
	if err := s.store.Append(ctx, sessionID, interaction); err != nil {
		log.Printf("⚠️ [ASSISTANT] Failed to record interaction: %v", err)
	}
}

func (s *AssistantService) recordRequest(intent string) {
	if s.metrics != nil {
		s.metrics.RecordRequest(intent)
	}
}
