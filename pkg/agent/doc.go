// Package agent provides the foundations shared by every pipeline stage.
//
// It contains:
//   - the agent states and the per-stage transition table machinery
//   - the state loop driver every stage runs (RunLoop)
//   - the Stage interface the orchestrator sequences
//   - the error kinds used to classify stage failures
//   - the LLM client factory (provider selection plus middleware chain)
//
// Provider implementations live under internal/llmimpl.
package agent
