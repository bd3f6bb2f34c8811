// Package reasoning turns language models into task reasoners.
//
// A reasoner receives a bounded context (goal, progress counters, recent
// observations, tool catalogue) and returns a structured decision: call a
// tool or deliver the final answer. The package provides the shared prompt
// construction and fail-soft response parsing used by the provider adapters
// in the anthropic and openai subpackages, plus a scripted Mock for tests.
package reasoning
