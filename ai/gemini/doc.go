// Package gemini provides AI service implementations for Google's Gemini API
// using the generative-ai-go SDK.
//
// The SDK client is created on the first call rather than in the
// constructor, so building an embedder or generator never touches the
// network.
package gemini
