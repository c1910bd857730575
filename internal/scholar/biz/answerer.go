package biz

import (
	"context"
	"strings"

	"github.com/kart-io/scholar-x/internal/model"
	"github.com/kart-io/scholar-x/pkg/llm"
)

// noContextAnswer is returned when the coarse collection has nothing
// relevant; the model is not invoked in that case.
const noContextAnswer = "I could not find anything relevant to that question in the ingested papers."

// AnswererConfig bounds answer synthesis.
type AnswererConfig struct {
	// PromptTemplate must contain {{context}} and {{question}}
	// placeholders.
	PromptTemplate string
	// TopK is the number of coarse chunks assembled into the context.
	TopK int
}

// Answerer synthesizes answers from coarse-chunk context.
type Answerer struct {
	retriever *Retriever
	chat      llm.ChatProvider
	cfg       AnswererConfig
}

// NewAnswerer creates an Answerer on top of the retrieval router.
func NewAnswerer(retriever *Retriever, chat llm.ChatProvider, cfg AnswererConfig) *Answerer {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	return &Answerer{retriever: retriever, chat: chat, cfg: cfg}
}

// Answer retrieves coarse context for the question and asks the chat
// model to answer from it.
func (a *Answerer) Answer(ctx context.Context, question string) (*model.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, failf(KindValidation, "answer", "", "question is required")
	}

	hits, err := a.retriever.SearchCoarse(ctx, question, a.cfg.TopK)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return &model.Answer{Answer: noContextAnswer}, nil
	}

	var b strings.Builder
	for i, hit := range hits {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if hit.Title != "" {
			b.WriteString("[" + hit.Title + "]\n")
		}
		b.WriteString(hit.Text)
	}

	prompt := strings.NewReplacer(
		"{{context}}", b.String(),
		"{{question}}", question,
	).Replace(a.cfg.PromptTemplate)

	answer, err := a.chat.Generate(ctx, prompt, "")
	if err != nil {
		return nil, failf(KindExtraction, "answer", "", "chat completion: %v", err)
	}

	return &model.Answer{Answer: answer, Sources: hits}, nil
}
