// Package diff computes line-level diffs between two text blobs and
// renders them as unified-style patches or side-by-side listings.
//
// The algorithm is a greedy line-aligned walk, not a minimal-edit-distance
// diff: both line arrays advance in lockstep, and on mismatch a bounded
// lookahead window is searched for the nearest exact line match to
// resynchronize. Lines skipped on the way are emitted as delete/insert
// runs; if no resync point exists within the window the pair is treated
// as a direct replace. This trades optimality for speed and locality on
// the short, local edits agents produce. It is a deliberate
// approximation, not a correctness bug.
package diff

import (
	"fmt"
	"strings"
)

type opKind int

const (
	opEqual opKind = iota
	opDelete
	opInsert
)

type lineOp struct {
	kind opKind
	text string
}

// Engine holds the tunable knobs of the diff heuristic.
type Engine struct {
	// Lookahead is the resync window, in lines, searched in each
	// direction on a mismatch.
	Lookahead int
	// Context is the number of unchanged lines kept around each hunk.
	Context int
	// MaxHunkLines splits oversized hunks to bound memory on large files.
	MaxHunkLines int
}

// NewEngine returns an engine with the default window sizes.
func NewEngine() *Engine {
	return &Engine{
		Lookahead:    10,
		Context:      3,
		MaxHunkLines: 400,
	}
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

// ops aligns the two line slices greedily.
func (e *Engine) ops(a, b []string) []lineOp {
	var ops []lineOp
	i, j := 0, 0

	for i < len(a) && j < len(b) {
		if a[i] == b[j] {
			ops = append(ops, lineOp{opEqual, a[i]})
			i++
			j++
			continue
		}

		// Search the lookahead window for the nearest resync point,
		// preferring the smaller skip.
		resynced := false
		for k := 1; k <= e.Lookahead && !resynced; k++ {
			if i+k < len(a) && a[i+k] == b[j] {
				for d := 0; d < k; d++ {
					ops = append(ops, lineOp{opDelete, a[i+d]})
				}
				i += k
				resynced = true
			} else if j+k < len(b) && b[j+k] == a[i] {
				for d := 0; d < k; d++ {
					ops = append(ops, lineOp{opInsert, b[j+d]})
				}
				j += k
				resynced = true
			}
		}
		if !resynced {
			// Direct replace: one delete plus one insert.
			ops = append(ops, lineOp{opDelete, a[i]}, lineOp{opInsert, b[j]})
			i++
			j++
		}
	}

	for ; i < len(a); i++ {
		ops = append(ops, lineOp{opDelete, a[i]})
	}
	for ; j < len(b); j++ {
		ops = append(ops, lineOp{opInsert, b[j]})
	}
	return ops
}

// Stats returns the number of inserted and deleted lines between the
// two texts.
func (e *Engine) Stats(oldText, newText string) (added, removed int) {
	for _, op := range e.ops(splitLines(oldText), splitLines(newText)) {
		switch op.kind {
		case opInsert:
			added++
		case opDelete:
			removed++
		}
	}
	return added, removed
}

// Generate produces a unified-diff-like rendering with hunk headers.
// Identical inputs yield only the file header, no hunks.
func (e *Engine) Generate(oldText, newText, label string) string {
	ops := e.ops(splitLines(oldText), splitLines(newText))

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- a/%s\n+++ b/%s\n", label, label)

	// aBefore[i] / bBefore[i]: lines of a / b consumed before op i.
	n := len(ops)
	aBefore := make([]int, n+1)
	bBefore := make([]int, n+1)
	for idx, op := range ops {
		aBefore[idx+1] = aBefore[idx]
		bBefore[idx+1] = bBefore[idx]
		if op.kind != opInsert {
			aBefore[idx+1]++
		}
		if op.kind != opDelete {
			bBefore[idx+1]++
		}
	}

	for _, g := range e.groups(ops) {
		lo := g[0] - e.Context
		if lo < 0 {
			lo = 0
		}
		hi := g[1] + e.Context
		if hi > n-1 {
			hi = n - 1
		}

		for chunkLo := lo; chunkLo <= hi; chunkLo += e.MaxHunkLines {
			chunkHi := chunkLo + e.MaxHunkLines - 1
			if chunkHi > hi {
				chunkHi = hi
			}
			e.writeHunk(&sb, ops, aBefore, bBefore, chunkLo, chunkHi)
		}
	}

	return sb.String()
}

// groups clusters change ops, merging clusters separated by at most
// 2*Context equal lines. Returned ranges are [start,end] op indices.
func (e *Engine) groups(ops []lineOp) [][2]int {
	var groups [][2]int
	n := len(ops)
	idx := 0
	for idx < n {
		if ops[idx].kind == opEqual {
			idx++
			continue
		}
		start, end := idx, idx
		gap := 0
		for k := idx + 1; k < n; k++ {
			if ops[k].kind == opEqual {
				gap++
				if gap > 2*e.Context {
					break
				}
			} else {
				end = k
				gap = 0
			}
		}
		groups = append(groups, [2]int{start, end})
		idx = end + 1
	}
	return groups
}

func (e *Engine) writeHunk(sb *strings.Builder, ops []lineOp, aBefore, bBefore []int, lo, hi int) {
	aCount := aBefore[hi+1] - aBefore[lo]
	bCount := bBefore[hi+1] - bBefore[lo]
	aStart := aBefore[lo] + 1
	if aCount == 0 {
		aStart = aBefore[lo]
	}
	bStart := bBefore[lo] + 1
	if bCount == 0 {
		bStart = bBefore[lo]
	}

	fmt.Fprintf(sb, "@@ -%d,%d +%d,%d @@\n", aStart, aCount, bStart, bCount)
	for idx := lo; idx <= hi; idx++ {
		switch ops[idx].kind {
		case opEqual:
			sb.WriteString(" " + ops[idx].text + "\n")
		case opDelete:
			sb.WriteString("-" + ops[idx].text + "\n")
		case opInsert:
			sb.WriteString("+" + ops[idx].text + "\n")
		}
	}
}

// DisplayDiff renders a line-aligned, numbered listing of the full
// comparison for direct display. No color codes are embedded so callers
// can style the output themselves.
func (e *Engine) DisplayDiff(oldText, newText, label string) string {
	ops := e.ops(splitLines(oldText), splitLines(newText))

	var sb strings.Builder
	fmt.Fprintf(&sb, "=== %s ===\n", label)

	aLine, bLine := 1, 1
	for _, op := range ops {
		switch op.kind {
		case opEqual:
			fmt.Fprintf(&sb, "%4d %4d   %s\n", aLine, bLine, op.text)
			aLine++
			bLine++
		case opDelete:
			fmt.Fprintf(&sb, "%4d      - %s\n", aLine, op.text)
			aLine++
		case opInsert:
			fmt.Fprintf(&sb, "     %4d + %s\n", bLine, op.text)
			bLine++
		}
	}
	return sb.String()
}
