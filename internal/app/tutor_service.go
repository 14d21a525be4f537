package app

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/ai"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/model"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/rag"
)

const (
	DefaultSessionID  = "default"
	emptyReplyMessage = "The model returned an empty response."

	tutorSystemPrompt = "You are the tutor of the course \"Safe Power Sources and Environment\". " +
		"Explain electrical safety, power sources, protective devices and their environmental impact " +
		"clearly and accurately for students. Never suggest bypassing a safety device. " +
		"If you are not sure, say so."

	referenceHeader = "Reference material from the course library. Prefer it over general knowledge " +
		"and say when it does not cover the question:\n\n"
)

type HistoryStore interface {
	Append(ctx context.Context, sessionID string, messages ...model.TutorMessage) error
	Recent(ctx context.Context, sessionID string, limit int) ([]model.TutorMessage, error)
	Clear(ctx context.Context, sessionID string) error
}

type ChatCompleter interface {
	Complete(ctx context.Context, cfg ai.ChatConfig, apiKey string, messages []ai.ChatMessage) (string, error)
	StreamComplete(ctx context.Context, cfg ai.ChatConfig, apiKey string, messages []ai.ChatMessage, onChunk func(string) error) (string, error)
}

// ContextBuilder produces the retrieved reference block for a message.
type ContextBuilder interface {
	BuildContext(ctx context.Context, message string) string
}

type TutorService struct {
	history    HistoryStore
	contexts   ContextBuilder
	llm        ChatCompleter
	chatCfg    ai.ChatConfig
	creds      rag.Credentials
	maxContext int
	now        func() time.Time
}

func NewTutorService(
	history HistoryStore,
	contexts ContextBuilder,
	llm ChatCompleter,
	chatCfg ai.ChatConfig,
	creds rag.Credentials,
	maxContext int,
) *TutorService {
	if maxContext <= 0 {
		maxContext = 20
	}
	return &TutorService{
		history:    history,
		contexts:   contexts,
		llm:        llm,
		chatCfg:    chatCfg,
		creds:      creds,
		maxContext: maxContext,
		now:        time.Now,
	}
}

type TutorInput struct {
	SessionID string
	Content   string
}

type TutorReply struct {
	Messages    []model.TutorMessage `json:"messages"`
	UsedContext bool                 `json:"usedContext"`
}

func (s *TutorService) SendMessage(ctx context.Context, input TutorInput) (*TutorReply, error) {
	sessionID, content, apiKey, err := s.prepare(input)
	if err != nil {
		return nil, err
	}
	prompt, usedContext, err := s.buildPromptMessages(ctx, sessionID, content)
	if err != nil {
		return nil, err
	}

	userMessage := model.TutorMessage{Role: model.RoleUser, Content: content, CreatedAt: s.now()}
	answer, err := s.llm.Complete(ctx, s.chatCfg, apiKey, prompt)
	if err != nil {
		return nil, err
	}

	assistantMessage := s.assistantMessage(answer)
	s.remember(ctx, sessionID, userMessage, assistantMessage)
	return &TutorReply{
		Messages:    []model.TutorMessage{userMessage, assistantMessage},
		UsedContext: usedContext,
	}, nil
}

func (s *TutorService) StreamMessage(ctx context.Context, input TutorInput, onChunk func(string) error) (string, error) {
	sessionID, content, apiKey, err := s.prepare(input)
	if err != nil {
		return "", err
	}
	prompt, _, err := s.buildPromptMessages(ctx, sessionID, content)
	if err != nil {
		return "", err
	}

	userMessage := model.TutorMessage{Role: model.RoleUser, Content: content, CreatedAt: s.now()}
	full, err := s.llm.StreamComplete(ctx, s.chatCfg, apiKey, prompt, onChunk)
	if err != nil {
		return "", err
	}

	assistantMessage := s.assistantMessage(full)
	s.remember(ctx, sessionID, userMessage, assistantMessage)
	return assistantMessage.Content, nil
}

func (s *TutorService) GetHistory(ctx context.Context, sessionID string, limit int) ([]model.TutorMessage, error) {
	return s.history.Recent(ctx, normalizeSessionID(sessionID), limit)
}

func (s *TutorService) ClearHistory(ctx context.Context, sessionID string) error {
	return s.history.Clear(ctx, normalizeSessionID(sessionID))
}

func (s *TutorService) prepare(input TutorInput) (sessionID, content, apiKey string, err error) {
	content = strings.TrimSpace(input.Content)
	if content == "" {
		return "", "", "", ErrInvalidInput
	}
	if s.chatCfg.BaseURL == "" || s.chatCfg.Model == "" {
		return "", "", "", ErrLLMConfig
	}
	if s.creds != nil {
		apiKey = s.creds.APIKey()
	}
	if apiKey == "" {
		return "", "", "", &rag.ConfigurationError{Kind: rag.KindMissingCredential}
	}
	return normalizeSessionID(input.SessionID), content, apiKey, nil
}

func (s *TutorService) assistantMessage(answer string) model.TutorMessage {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = emptyReplyMessage
	}
	return model.TutorMessage{Role: model.RoleAssistant, Content: answer, CreatedAt: s.now()}
}

// remember logs history write failures instead of failing the reply.
func (s *TutorService) remember(ctx context.Context, sessionID string, messages ...model.TutorMessage) {
	if err := s.history.Append(ctx, sessionID, messages...); err != nil {
		log.Printf("tutor: save history for %s failed: %v", sessionID, err)
	}
}

func (s *TutorService) buildPromptMessages(ctx context.Context, sessionID, content string) ([]ai.ChatMessage, bool, error) {
	recent, err := s.history.Recent(ctx, sessionID, s.maxContext)
	if err != nil {
		return nil, false, err
	}

	system := tutorSystemPrompt
	reference := ""
	if s.contexts != nil {
		reference = s.contexts.BuildContext(ctx, content)
	}
	if reference != "" {
		system += "\n\n" + referenceHeader + reference
	}

	messages := make([]ai.ChatMessage, 0, len(recent)+2)
	messages = append(messages, ai.ChatMessage{Role: "system", Content: system})
	for _, item := range recent {
		role := item.Role
		if role == "" {
			role = model.RoleUser
		}
		messages = append(messages, ai.ChatMessage{Role: role, Content: item.Content})
	}
	messages = append(messages, ai.ChatMessage{Role: model.RoleUser, Content: content})
	return messages, reference != "", nil
}

func normalizeSessionID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return DefaultSessionID
	}
	return id
}
