// Package ollama provides AI service implementations for a self-hosted
// Ollama server, built on the langchaingo Ollama client.
package ollama
