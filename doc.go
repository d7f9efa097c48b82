// Package quickrag turns uploaded PDFs into searchable passages and answers
// questions over them.
//
// Each ingestion request names an embedding provider and its arguments. The
// App validates them, assembles the linear pipeline
// converter -> document_cleaner -> document_splitter -> document_embedder ->
// document_writer, writes its definition to
// {pipeline_id}_data_ingestion_pipeline.yaml and runs it:
//
//	app, err := quickrag.Open(ctx, cfg)
//	defer app.Close()
//
//	req, err := core.NewIngestionRequest("openai", "text-embedding-3-small",
//	    `{"api_key":"sk-..."}`, "abc")
//	res, err := app.Ingest(ctx, req, pipeline.Source{Name: "report.pdf", Data: pdf})
//
// Errors wrap the sentinels in package core so callers can classify them
// with errors.Is.
package quickrag
