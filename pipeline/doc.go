// Package pipeline builds and runs PDF ingestion pipelines.
//
// A pipeline is always the same linear chain:
//
//	converter -> document_cleaner -> document_splitter -> document_embedder -> document_writer
//
// The converter, cleaner, splitter and writer are shared, stateless stages
// held by a Registry. The embedder is built per request by BuildEmbedder
// from a provider and its arguments. An Assembler combines the two, tags the
// result with a request identifier and persists its Definition as
// {id}_data_ingestion_pipeline.yaml before returning it.
//
// # Usage
//
//	registry, err := pipeline.NewRegistry(store)
//	assembler, err := pipeline.NewAssembler(registry, "/var/lib/quickrag")
//
//	stage, err := pipeline.BuildEmbedder(core.ProviderOpenAI, map[string]string{
//	    "api_key": key,
//	    "model":   "text-embedding-3-small",
//	})
//	p, err := assembler.Assemble("cred123", stage)
//	res, err := p.Run(ctx, pipeline.Source{Name: "paper.pdf", Data: data})
package pipeline
