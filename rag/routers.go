package rag

import (
	"context"
	"strings"
)

// Router labels (spec §4.D). These are a small closed set — the tagged-
// enum spec §9 asks for — even though graph.Router[S] is typed as
// func(context.Context, S) string; the graph topology (rag.BuildEngine)
// maps every label produced here to a registered successor, and an
// unmapped label is a graph.EngineError at run time, not a silent no-op.
const (
	labelVectorstore  = "vectorstore"
	labelWebsearch    = "websearch"
	labelGenerate     = "generate"
	labelUseful       = "useful"
	labelNotUseful    = "not useful"
	labelNotSupported = "not supported"
	labelMaxRetries   = "max retries"
)

// routeQuestion is the conditional entry router (spec §4.D): classify the
// question as needing the private corpus or a live web search. On any
// parse or transport failure it defaults to vectorstore, since the
// private corpus is the safer default (web calls cost money and may leak
// the question).
func routeQuestion(lm LanguageModel) func(context.Context, RunState) string {
	return func(ctx context.Context, state RunState) string {
		raw, err := lm.ChatStructured(ctx, routerSystemPrompt, state.Question)
		if err != nil {
			return labelVectorstore
		}
		var v routeScore
		if parseErr := parseJSON(raw, &v); parseErr != nil {
			return labelVectorstore
		}
		if v.Datasource == labelWebsearch {
			return labelWebsearch
		}
		return labelVectorstore
	}
}

// decideToGenerate routes after grade_documents (spec §4.D).
func decideToGenerate(_ context.Context, state RunState) string {
	if state.WebSearchNeeded {
		return labelWebsearch
	}
	return labelGenerate
}

// gradeGeneration routes after generate (spec §4.D): a two-phase check —
// hallucination (is the generation grounded in the documents?) then, only
// if grounded, answer quality (does it resolve the question?). Parser
// failure on either check defaults to max retries — defensive, preventing
// a runaway loop when the grader itself is misbehaving.
func gradeGeneration(lm LanguageModel) func(context.Context, RunState) string {
	return func(ctx context.Context, state RunState) string {
		docTexts := make([]string, len(state.Documents))
		for i, d := range state.Documents {
			docTexts[i] = d.Text
		}
		documents := strings.Join(docTexts, "\n")

		hallucinationRaw, err := lm.ChatStructured(
			ctx,
			hallucinationGraderSystemPrompt,
			render(hallucinationGraderPrompt, "{documents}", documents, "{generation}", state.Generation),
		)
		if err != nil {
			return labelMaxRetries
		}
		grounded, err := parseBinaryScore(hallucinationRaw)
		if err != nil {
			return labelMaxRetries
		}

		if grounded == "no" {
			if state.LoopStep <= state.MaxRetries {
				return labelNotSupported
			}
			return labelMaxRetries
		}

		answerRaw, err := lm.ChatStructured(
			ctx,
			answerGraderSystemPrompt,
			render(answerGraderPrompt, "{question}", state.Question, "{generation}", state.Generation),
		)
		if err != nil {
			return labelMaxRetries
		}
		useful, err := parseBinaryScore(answerRaw)
		if err != nil {
			return labelMaxRetries
		}

		if useful == "yes" {
			return labelUseful
		}
		if state.LoopStep <= state.MaxRetries {
			return labelNotUseful
		}
		return labelMaxRetries
	}
}
