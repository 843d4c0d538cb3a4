// Command adaptive-rag runs the Adaptive RAG workflow end-to-end,
// streaming its external events to stdout. It is a minimal wiring
// example, not a production service. By default it runs fully mocked;
// pass -provider to wire a live anthropic/openai/google chat model and
// a Tavily-backed web search tool instead.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/dshills/adaptive-rag-go/graph"
	"github.com/dshills/adaptive-rag-go/graph/emit"
	"github.com/dshills/adaptive-rag-go/graph/model"
	"github.com/dshills/adaptive-rag-go/graph/model/anthropic"
	"github.com/dshills/adaptive-rag-go/graph/model/google"
	"github.com/dshills/adaptive-rag-go/graph/model/openai"
	"github.com/dshills/adaptive-rag-go/graph/store"
	"github.com/dshills/adaptive-rag-go/rag"
	"github.com/dshills/adaptive-rag-go/streaming"
)

// newChatModel resolves provider + modelName into a concrete
// graph/model.ChatModel. The retriever has no generic provider adapter
// (it is always corpus-specific) so only the language model and web
// search collaborators are switchable here.
func newChatModel(provider, modelName string) (model.ChatModel, error) {
	switch provider {
	case "anthropic":
		return anthropic.NewChatModel(os.Getenv("ANTHROPIC_API_KEY"), modelName), nil
	case "openai":
		return openai.NewChatModel(os.Getenv("OPENAI_API_KEY"), modelName), nil
	case "google":
		return google.NewChatModel(os.Getenv("GOOGLE_API_KEY"), modelName), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (want anthropic, openai, or google)", provider)
	}
}

func main() {
	provider := flag.String("provider", "", "LLM provider to wire live (anthropic, openai, google); omit to run fully mocked")
	modelName := flag.String("model", "", "model name for -provider; empty uses that provider's default")
	flag.Parse()

	question := "What are the main components of an agent system?"
	if args := flag.Args(); len(args) > 0 {
		question = args[0]
	}

	retriever := &rag.MockRetriever{Responses: [][]rag.Document{{
		{Text: "An agent is composed of an LLM, a memory module, and a planner.", Metadata: map[string]string{"source": "corpus"}},
		{Text: "Tool use lets an agent call external APIs for actions it cannot perform itself.", Metadata: map[string]string{"source": "corpus"}},
	}}}

	var lm rag.LanguageModel
	var web rag.WebSearchTool
	if *provider != "" {
		chat, err := newChatModel(*provider, *modelName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "resolving provider: %v\n", err)
			os.Exit(1)
		}
		lm = rag.NewLanguageModel(chat)
		web = rag.NewWebSearchTool(newTavilySearchTool(os.Getenv("TAVILY_API_KEY")))
	} else {
		lm = &rag.MockLanguageModel{Responses: []string{
			`{"datasource": "vectorstore"}`,
			`{"binary_score": "yes"}`,
			`{"binary_score": "yes"}`,
			"An agent system typically has three components: an LLM core, memory, and a planning/tool-use loop.",
			`{"binary_score": "yes"}`,
			`{"binary_score": "yes"}`,
		}}
		web = &rag.MockWebSearch{}
	}

	wf, err := rag.NewWorkflow(
		rag.Collaborators{Retriever: retriever, LanguageModel: lm, WebSearch: web},
		rag.DefaultWorkflowConfig(),
		store.NewMemStore[rag.RunState](),
		emit.NewLogEmitter(os.Stderr, false),
		nil,
		graph.WithMaxSteps(50),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "building workflow: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	snapshots, err := wf.Start(ctx, "cli-run-1", question, "", 0, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "starting run: %v\n", err)
		os.Exit(1)
	}

	adapter := streaming.NewAdapter(wf.Config().DocumentEventTruncateCount)
	for ev := range adapter.Run(ctx, question, snapshots) {
		body, _ := json.Marshal(ev.Payload)
		fmt.Printf("event: %s\ndata: %s\n\n", ev.Kind, body)
	}
}
