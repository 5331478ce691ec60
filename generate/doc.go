// Package generate turns a formatted context block into a grounded answer.
//
// The Generator interface is deliberately narrow — query and context in,
// text out — so the pipeline never depends on a concrete model.
// LangChainModel implements it over any langchaingo llms.Model (OpenAI,
// Ollama, and friends) with a fixed grounded-QA prompt and temperature
// zero by default.
//
// Clean post-processes whatever the model wrote: markdown and chat-label
// remnants are stripped, placeholder lines dropped, and refusal-shaped
// rambling collapses to the single RefusalFallback sentence. Callers that
// print to a terminal use NormalizeForCLI, which also cuts any "Sources:"
// section the model invented.
package generate
