package rag

import (
	"context"

	"github.com/dshills/adaptive-rag-go/graph"
	"github.com/dshills/adaptive-rag-go/graph/emit"
	"github.com/dshills/adaptive-rag-go/graph/store"
)

// Node IDs, fixed by original_source/graph/node/graph_main.py's topology.
const (
	NodeRetrieve       = "retrieve"
	NodeGradeDocuments = "grade_documents"
	NodeGenerate       = "generate"
	NodeWebSearch      = "web_search"
	nodeFinalize       = "finalize"
)

// Collaborators are the run-scoped handles a built graph's nodes and
// routers call out to. They are not RunState fields (see state.go) —
// BuildEngine closes over them when constructing each node/router.
type Collaborators struct {
	Retriever     Retriever
	LanguageModel LanguageModel
	WebSearch     WebSearchTool
}

// finalizeNode is a no-op terminal node: gradeGeneration's "useful" and
// "max retries" labels both mean "stop producing generations", and
// Engine's conditional routes must target a registered node, not a bare
// Stop() sentinel, so both labels are wired here.
func finalizeNode() graph.Node[RunState] {
	return graph.NodeFunc[RunState](func(_ context.Context, _ RunState) graph.NodeResult[RunState] {
		return graph.NodeResult[RunState]{Route: graph.Stop()}
	})
}

// BuildEngine assembles the compiled Adaptive RAG graph (spec §4.E):
//
//	entry (route_question):  vectorstore -> retrieve, websearch -> web_search
//	retrieve -> grade_documents                                     (static)
//	web_search -> generate                                          (static)
//	grade_documents -> (decide_to_generate):
//	    websearch -> web_search, generate -> generate
//	generate -> (grade_generation):
//	    useful -> finalize, not supported -> generate,
//	    not useful -> web_search, max retries -> finalize
//
// policies supplies a per-node *graph.NodePolicy (timeout/retry); pass an
// empty map to take engine-wide defaults everywhere.
func BuildEngine(
	c Collaborators,
	cfg WorkflowConfig,
	st store.Store[RunState],
	emitter emit.Emitter,
	policies map[string]*graph.NodePolicy,
	opts ...interface{},
) (*graph.Engine[RunState], error) {
	eng := graph.New[RunState](mergeDelta, st, emitter, opts...)

	nodes := map[string]graph.Node[RunState]{
		NodeRetrieve:       newRetrieveNode(c.Retriever),
		NodeGradeDocuments: newGradeDocumentsNode(c.LanguageModel),
		NodeGenerate:       newGenerateNode(c.LanguageModel),
		NodeWebSearch:      newWebSearchNode(c.WebSearch, cfg.RetrieverTopK),
		nodeFinalize:       finalizeNode(),
	}
	for id, n := range nodes {
		if err := eng.Add(id, n, policies[id]); err != nil {
			return nil, err
		}
	}

	if err := eng.SetConditionalEntry(routeQuestion(c.LanguageModel), map[string]string{
		labelVectorstore: NodeRetrieve,
		labelWebsearch:   NodeWebSearch,
	}); err != nil {
		return nil, err
	}

	if err := eng.Connect(NodeRetrieve, NodeGradeDocuments); err != nil {
		return nil, err
	}
	if err := eng.Connect(NodeWebSearch, NodeGenerate); err != nil {
		return nil, err
	}

	if err := eng.ConnectConditional(NodeGradeDocuments, graph.Router[RunState](decideToGenerate), map[string]string{
		labelWebsearch: NodeWebSearch,
		labelGenerate:  NodeGenerate,
	}); err != nil {
		return nil, err
	}

	if err := eng.ConnectConditional(NodeGenerate, gradeGeneration(c.LanguageModel), map[string]string{
		labelUseful:       nodeFinalize,
		labelNotSupported: NodeGenerate,
		labelNotUseful:    NodeWebSearch,
		labelMaxRetries:   nodeFinalize,
	}); err != nil {
		return nil, err
	}

	return eng, nil
}
