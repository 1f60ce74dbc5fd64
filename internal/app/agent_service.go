package app

import (
	"context"
	"fmt"
	"strings"

	"portfolio-agent/internal/ai"
	"portfolio-agent/internal/corpus"
	"portfolio-agent/internal/model"
	"portfolio-agent/internal/platform/logger"
	"portfolio-agent/internal/retrieval"
)

const (
	defaultTopK  = 6
	emptyReply   = "Sorry, no response."
	systemPrompt = `You are "PortfolioAgent" answering questions about %s's experience, product approach, design background, technical skills, and projects.

Rules:
- Answer only from the provided SOURCES. If unsure, say you don't know.
- Keep answers concise and friendly.
- Cite sources at the end like [1], [2] using the file basenames of the SOURCES.`
)

// LLMClient is the OpenAI-compatible surface the agent needs.
type LLMClient interface {
	Embed(ctx context.Context, cfg ai.EmbeddingConfig, text string) ([]float32, error)
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []model.ChatMessage) (string, error)
}

type AgentService struct {
	llm     LLMClient
	corpus  *corpus.Holder
	chatCfg ai.ChatConfig
	embCfg  ai.EmbeddingConfig
	topK    int
	subject string
	log     *logger.Logger
}

type AgentOptions struct {
	Chat      ai.ChatConfig
	Embedding ai.EmbeddingConfig
	TopK      int
	Subject   string
}

type AgentReply struct {
	// Reply is the model answer followed by the "Sources:" footer.
	Reply   string
	Sources []string
	Matches []retrieval.Scored
}

type CorpusInfo struct {
	Chunks   int      `json:"chunks"`
	Sources  []string `json:"sources"`
	Path     string   `json:"path"`
	LoadedAt string   `json:"loaded_at"`
}

func NewAgentService(llm LLMClient, holder *corpus.Holder, opts AgentOptions, log *logger.Logger) *AgentService {
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}
	if strings.TrimSpace(opts.Subject) == "" {
		opts.Subject = "the portfolio owner"
	}
	if log == nil {
		log = logger.Nop()
	}
	return &AgentService{
		llm:     llm,
		corpus:  holder,
		chatCfg: opts.Chat,
		embCfg:  opts.Embedding,
		topK:    opts.TopK,
		subject: opts.Subject,
		log:     log,
	}
}

// Answer grounds the latest user question in the corpus and asks the chat
// model for a cited reply.
func (s *AgentService) Answer(ctx context.Context, messages []model.ChatMessage) (*AgentReply, error) {
	question := lastUserMessage(messages)
	if question == "" {
		return nil, ErrInvalidInput
	}

	queryVec, err := s.llm.Embed(ctx, s.embCfg, question)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	snapshot := s.corpus.Current()
	matches := retrieval.Rank(queryVec, snapshot.Chunks(), s.topK)

	prompt := []model.ChatMessage{
		{Role: model.RoleSystem, Content: fmt.Sprintf(systemPrompt, s.subject)},
		{Role: model.RoleUser, Content: "CONTEXT:\n" + buildContext(matches) + "\n\nQUESTION: " + question},
	}
	text, err := s.llm.Complete(ctx, s.chatCfg, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if strings.TrimSpace(text) == "" {
		text = emptyReply
	}

	sources := citedSources(matches)
	s.log.Debug("agent answered", "matches", len(matches), "sources", len(sources))
	return &AgentReply{
		Reply:   text + sourcesFooter(sources),
		Sources: sources,
		Matches: matches,
	}, nil
}

func (s *AgentService) CorpusInfo() CorpusInfo {
	c := s.corpus.Current()
	return corpusInfo(c)
}

// ReloadCorpus re-reads the corpus file and publishes the new snapshot.
func (s *AgentService) ReloadCorpus() (CorpusInfo, error) {
	c, err := s.corpus.Reload()
	if err != nil {
		return CorpusInfo{}, err
	}
	s.log.Info("corpus reloaded", "chunks", c.Len())
	return corpusInfo(c), nil
}

func corpusInfo(c *corpus.Corpus) CorpusInfo {
	info := CorpusInfo{
		Chunks:  c.Len(),
		Sources: c.Sources(),
		Path:    c.Path(),
	}
	if !c.LoadedAt().IsZero() {
		info.LoadedAt = model.FormatTimestamp(c.LoadedAt())
	}
	return info
}

func lastUserMessage(messages []model.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleUser {
			return strings.TrimSpace(messages[i].Content)
		}
	}
	return ""
}

func buildContext(matches []retrieval.Scored) string {
	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, "SOURCE: "+m.Chunk.Source+"\n"+m.Chunk.Text)
	}
	return strings.Join(blocks, "\n\n")
}

// citedSources returns source basenames in rank order without duplicates.
func citedSources(matches []retrieval.Scored) []string {
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		name := m.Chunk.Source
		if idx := strings.LastIndex(name, "/"); idx >= 0 {
			name = name[idx+1:]
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func sourcesFooter(sources []string) string {
	if len(sources) == 0 {
		return ""
	}
	parts := make([]string, len(sources))
	for i, name := range sources {
		parts[i] = fmt.Sprintf("[%d] %s", i+1, name)
	}
	return "\n\nSources: " + strings.Join(parts, ", ")
}
