// Package dispatch routes an assembled message chain to the model.
//
// With no tools registered the chain goes straight to a single completion
// (the direct path). Otherwise it runs a bounded tool-calling loop (the agent
// path) and reads the answer off the produced transcript. Agent failures fall
// back to the direct path, so callers only see an error when the model itself
// is unreachable.
package dispatch
