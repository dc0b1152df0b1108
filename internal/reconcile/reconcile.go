// Package reconcile turns streamed model output into the text chunks sent to
// a client.
//
// In direct mode fragments are forwarded as they arrive. In agent mode the
// producer repeatedly hands over the whole transcript; the reconciler derives
// the current candidate answer from it and emits only what the client has not
// yet seen. When a candidate rewrites earlier text rather than extending it,
// the full candidate is emitted again and counted as a revision.
package reconcile

import (
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/opencode-ai/companion/internal/dispatch"
	"github.com/opencode-ai/companion/internal/logging"
)

// Mode selects how input is reconciled.
type Mode int

const (
	Direct Mode = iota
	Agent
)

func (m Mode) String() string {
	if m == Agent {
		return "agent"
	}
	return "direct"
}

// Reconciler tracks what has been emitted for one streamed response.
// It is not safe for concurrent use.
type Reconciler struct {
	mode      Mode
	sb        strings.Builder
	candidate string
	revisions int
}

// New creates a reconciler for mode.
func New(mode Mode) *Reconciler {
	return &Reconciler{mode: mode}
}

// Mode returns the reconciliation mode.
func (r *Reconciler) Mode() Mode { return r.mode }

// Delta accumulates a direct-mode fragment and returns it unchanged.
func (r *Reconciler) Delta(fragment string) string {
	r.sb.WriteString(fragment)
	return fragment
}

// Snapshot derives the candidate answer from an agent transcript and returns
// the text to emit. It returns "" when there is nothing new.
func (r *Reconciler) Snapshot(messages []*schema.Message) string {
	next := dispatch.LastAnswer(messages)
	if next == "" || next == r.candidate {
		return ""
	}

	prev := r.candidate
	r.candidate = next

	if strings.HasPrefix(next, prev) {
		return next[len(prev):]
	}

	r.revisions++
	logRevision(prev, next, r.revisions)
	return next
}

// Text returns the text to commit for the turn.
func (r *Reconciler) Text() string {
	if r.mode == Agent {
		return r.candidate
	}
	return r.sb.String()
}

// Revisions returns how many agent candidates rewrote earlier text.
func (r *Reconciler) Revisions() int { return r.revisions }

func logRevision(prev, next string, n int) {
	log := logging.Component("reconcile")
	if !log.Debug().Enabled() {
		return
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(prev, next, false))

	inserted, deleted := 0, 0
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			inserted += len(d.Text)
		case diffmatchpatch.DiffDelete:
			deleted += len(d.Text)
		}
	}

	log.Debug().
		Int("revision", n).
		Int("inserted", inserted).
		Int("deleted", deleted).
		Int("levenshtein", dmp.DiffLevenshtein(diffs)).
		Msg("candidate answer revised")
}
