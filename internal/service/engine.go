package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zioncity/backend/internal/ai"
	"github.com/zioncity/backend/internal/metrics"
	"github.com/zioncity/backend/internal/models"
)

const (
	DefaultChatResults  = 5
	DefaultHistoryLimit = 10
)

// Searcher is the single search index used for explicit search requests.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.SearchHit, error)
}

type ConversationStore interface {
	EnsureConversation(ctx context.Context, conversationID, callerID string) error
	AppendMessage(ctx context.Context, m models.ConversationMessage) error
	RecentMessages(ctx context.Context, conversationID, callerID string, limit int) ([]models.ConversationMessage, error)
}

// Engine exposes the two caller-facing operations: a direct business query
// and a chat turn that may fan out to organization agents.
type Engine struct {
	Broadcaster   *Broadcaster
	Search        Searcher
	Assistant     ai.Assistant
	Conversations ConversationStore
	Logger        zerolog.Logger

	ChatResults  int
	HistoryLimit int
	NewID        func() string
}

func (e *Engine) QueryBusinesses(ctx context.Context, req models.BroadcastRequest) (models.BroadcastResult, error) {
	if strings.TrimSpace(req.CallerID) == "" {
		return models.BroadcastResult{}, ErrUnauthenticated
	}
	return e.Broadcaster.Broadcast(ctx, req)
}

// ChatPlan is the dispatch plan derived from a message before any I/O.
type ChatPlan struct {
	Decision  Decision
	Broadcast *models.BroadcastRequest
	Search    string
	Limit     int
}

// PlanChat classifies a message and decides what to dispatch for it.
func PlanChat(message, callerID string, limit int) ChatPlan {
	d := Classify(message)
	plan := ChatPlan{Decision: d, Limit: limit}
	switch d.Action {
	case ActionBroadcast:
		plan.Broadcast = &models.BroadcastRequest{
			Query:    strings.TrimSpace(message),
			Category: d.Category,
			Limit:    limit,
			CallerID: callerID,
		}
	case ActionSearch:
		plan.Search = d.Category
		if plan.Search == "" {
			plan.Search = strings.TrimSpace(message)
		}
	}
	return plan
}

func (e *Engine) ChatWithSearch(ctx context.Context, callerID, message, conversationID string) (models.ChatTurn, error) {
	if strings.TrimSpace(callerID) == "" {
		return models.ChatTurn{}, ErrUnauthenticated
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return models.ChatTurn{}, fmt.Errorf("%w: message is required", ErrInvalidRequest)
	}

	conversationID, history, persist := e.openConversation(ctx, strings.TrimSpace(conversationID), callerID)

	plan := PlanChat(message, callerID, e.chatResults())
	metrics.ChatDecisions.WithLabelValues(string(plan.Decision.Action)).Inc()

	actions, found, err := e.execute(ctx, plan)
	if err != nil {
		return models.ChatTurn{}, err
	}

	reply := e.reply(ctx, conversationID, chatPrompt(message, found), history, plan, found)

	if persist {
		e.saveTurn(ctx, conversationID, message, reply)
	}

	return models.ChatTurn{
		ConversationID:   conversationID,
		Message:          message,
		Reply:            reply,
		SuggestedActions: actions,
	}, nil
}

func (e *Engine) execute(ctx context.Context, plan ChatPlan) ([]models.SuggestedAction, []models.ActionCard, error) {
	actions := []models.SuggestedAction{}
	var cards []models.ActionCard

	switch {
	case plan.Broadcast != nil:
		res, err := e.Broadcaster.Broadcast(ctx, *plan.Broadcast)
		if err != nil {
			return nil, nil, err
		}
		cards = BuildCards(RecommendationHits(res.Results))
	case plan.Search != "" && e.Search != nil:
		hits, err := e.Search.Search(ctx, plan.Search, plan.Limit)
		if err != nil {
			e.Logger.Warn().Err(err).Str("query", plan.Search).Msg("search index unavailable")
			break
		}
		cards = BuildCards(hits)
	}

	if len(cards) > 0 {
		actions = append(actions, models.SuggestedAction{Type: models.SuggestedSearchResults, Cards: cards})
	}
	return actions, cards, nil
}

func (e *Engine) reply(ctx context.Context, conversationID, prompt string, history []ai.ChatMessage, plan ChatPlan, cards []models.ActionCard) string {
	if e.Assistant == nil {
		return fallbackReply(plan, cards)
	}
	reply, err := e.Assistant.Ask(ctx, prompt, history)
	if err != nil || strings.TrimSpace(reply) == "" {
		e.Logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("assistant unavailable, using fallback reply")
		return fallbackReply(plan, cards)
	}
	return reply
}

// openConversation resolves the conversation the turn belongs to. A supplied
// id the caller does not own is replaced by a fresh one, so a turn never lands
// in someone else's history. persist is false when the store could not open
// any conversation for the caller.
func (e *Engine) openConversation(ctx context.Context, conversationID, callerID string) (string, []ai.ChatMessage, bool) {
	if conversationID == "" {
		conversationID = e.newID()
	}
	if e.Conversations == nil {
		return conversationID, nil, false
	}
	if err := e.Conversations.EnsureConversation(ctx, conversationID, callerID); err != nil {
		e.Logger.Warn().Err(err).Str("conversation_id", conversationID).Str("caller_id", callerID).
			Msg("conversation not available to caller, starting a new one")
		conversationID = e.newID()
		if err := e.Conversations.EnsureConversation(ctx, conversationID, callerID); err != nil {
			e.Logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("failed to open conversation")
			return conversationID, nil, false
		}
		return conversationID, nil, true
	}
	return conversationID, e.loadHistory(ctx, conversationID, callerID), true
}

func (e *Engine) loadHistory(ctx context.Context, conversationID, callerID string) []ai.ChatMessage {
	msgs, err := e.Conversations.RecentMessages(ctx, conversationID, callerID, e.historyLimit())
	if err != nil {
		e.Logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("failed to load history")
		return nil
	}
	history := make([]ai.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, ai.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return history
}

func (e *Engine) saveTurn(ctx context.Context, conversationID, message, reply string) {
	if e.Conversations == nil {
		return
	}
	for _, m := range []models.ConversationMessage{
		{ConversationID: conversationID, Role: ai.RoleUser, Content: message},
		{ConversationID: conversationID, Role: ai.RoleAssistant, Content: reply},
	} {
		if err := e.Conversations.AppendMessage(ctx, m); err != nil {
			e.Logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("failed to save message")
			return
		}
	}
}

func chatPrompt(message string, cards []models.ActionCard) string {
	if len(cards) == 0 {
		return message
	}
	var b strings.Builder
	b.WriteString(message)
	b.WriteString("\n\nНайденные варианты:")
	for _, c := range cards {
		fmt.Fprintf(&b, "\n- %s (%s)", c.Name, c.Type)
	}
	return b.String()
}

func fallbackReply(plan ChatPlan, cards []models.ActionCard) string {
	switch {
	case len(cards) > 0:
		return fmt.Sprintf("Нашёл варианты по вашему запросу: %d. Посмотрите карточки ниже.", len(cards))
	case plan.Decision.Action != ActionNone:
		return "К сожалению, подходящих вариантов пока нет. Попробуйте уточнить запрос."
	default:
		return "Сейчас я не могу ответить. Попробуйте ещё раз чуть позже."
	}
}

func (e *Engine) chatResults() int {
	if e.ChatResults <= 0 {
		return DefaultChatResults
	}
	return e.ChatResults
}

func (e *Engine) historyLimit() int {
	if e.HistoryLimit <= 0 {
		return DefaultHistoryLimit
	}
	return e.HistoryLimit
}

func (e *Engine) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.NewString()
}
