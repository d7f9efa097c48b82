// Package answer answers questions from passages held in the document store.
//
// An Answerer embeds the question with the same embedding stage used at
// ingestion, retrieves the closest passages, nudges passages that quote the
// question upward and hands the best TopK to an LLM as context:
//
//	llm, err := answer.BuildGenerator(core.ProviderOpenAI, map[string]string{
//	    "api_key": key,
//	    "model":   "gpt-4o-mini",
//	})
//	a, err := answer.NewAnswerer(store, embeddingStage, llm)
//	reply, err := a.Ask(ctx, answer.Question{Text: "Who signed the lease?", TopK: 3})
//
// When nothing in the store is similar enough, the answer is NotFound and no
// LLM call is made.
package answer
