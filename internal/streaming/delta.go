// Package streaming turns a growing response buffer into incremental
// OpenAI-style tool-call deltas. The engine reparses the full buffer on
// every advance and emits only the suffix each consumer has not seen yet,
// so concatenating all deltas for a call always yields exactly its final
// canonical arguments.
package streaming

// FunctionDelta carries the incremental function fields of one delta.
// Name is present only on the first delta for a call.
type FunctionDelta struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// CallDelta is one incremental tool-call fragment. ID and Type are present
// only on the first delta for a call; every delta repeats the Index so
// consumers can route fragments while several calls are in flight.
type CallDelta struct {
	Index    int           `json:"index"`
	ID       string        `json:"id,omitempty"`
	Type     string        `json:"type,omitempty"`
	Function FunctionDelta `json:"function"`
}

// Delta is the outcome of one advance: plain content that is now settled,
// plus zero or more tool-call fragments. A nil Delta means the new text
// changed nothing visible yet.
type Delta struct {
	Content   string      `json:"content,omitempty"`
	ToolCalls []CallDelta `json:"tool_calls,omitempty"`
}

func (d *Delta) empty() bool {
	return d.Content == "" && len(d.ToolCalls) == 0
}
