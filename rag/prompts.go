package rag

import "strings"

// The five fixed prompt templates (spec §4.B). Placeholders are resolved
// by deterministic string substitution only — no text/template code
// execution — via render, matching spec §9's "parse-then-validate" design
// note: nothing here lets the model influence control flow except through
// its own generated text.

const ragAnswerSystemPrompt = `You are an assistant for question-answering tasks. Use the following retrieved context to answer the question. If the context does not contain the answer, say that you don't know. Keep the answer concise.`

const ragAnswerPrompt = `Context:
{context}

Question: {question}

Answer:`

const docGraderSystemPrompt = `You are a grader assessing the relevance of a retrieved document to a user question. Respond with a JSON object containing a single key "binary_score" whose value is "yes" if the document contains keyword(s) or semantic meaning related to the question, or "no" otherwise. Respond with JSON only.`

const docGraderPrompt = `Retrieved document:
{document}

User question: {question}`

const routerSystemPrompt = `You are an expert at routing a user question to either a vectorstore or a web search. The vectorstore contains documents covering the private document corpus. Use the vectorstore for questions on those topics; otherwise use web search. Respond with a JSON object containing a single key "datasource" whose value is "vectorstore" or "websearch". Respond with JSON only.`

const hallucinationGraderSystemPrompt = `You are a grader assessing whether an LLM generation is grounded in / supported by a set of retrieved facts. Respond with a JSON object containing a single key "binary_score" whose value is "yes" if the generation is grounded in the facts, or "no" otherwise. Respond with JSON only.`

const hallucinationGraderPrompt = `Set of facts:
{documents}

LLM generation: {generation}`

const answerGraderSystemPrompt = `You are a grader assessing whether an answer addresses / resolves a question. Respond with a JSON object containing a single key "binary_score" whose value is "yes" if the answer resolves the question, or "no" otherwise. Respond with JSON only.`

const answerGraderPrompt = `User question: {question}

LLM generation: {generation}`

// render performs deterministic {placeholder} substitution. pairs must be
// an even-length list of (placeholder, value) strings, e.g.
// render(ragAnswerPrompt, "{context}", context, "{question}", question).
func render(template string, pairs ...string) string {
	return strings.NewReplacer(pairs...).Replace(template)
}
