package batch

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// diffContext is the number of unchanged lines kept around each hunk.
const diffContext = 3

type lineOp struct {
	kind diffmatchpatch.Operation
	text string
}

// UnifiedDiff renders a line diff between before and after in unified
// format. Identical inputs yield an empty string.
func UnifiedDiff(name, before, after string) string {
	if before == after {
		return ""
	}

	ops := lineDiff(before, after)

	var out strings.Builder

	fmt.Fprintf(&out, "--- a/%s\n+++ b/%s\n", name, name)

	for _, hunk := range hunks(ops) {
		writeHunk(&out, ops, hunk)
	}

	return out.String()
}

func lineDiff(before, after string) []lineOp {
	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToRunes(ensureNewline(before), ensureNewline(after))
	diffs := dmp.DiffMainRunes(src, dst, false)

	var ops []lineOp

	for _, diff := range diffs {
		for _, idx := range diff.Text {
			ops = append(ops, lineOp{kind: diff.Type, text: strings.TrimSuffix(lines[idx], "\n")})
		}
	}

	return ops
}

func ensureNewline(text string) string {
	if text == "" || strings.HasSuffix(text, "\n") {
		return text
	}

	return text + "\n"
}

// span is a half-open range of ops.
type span struct{ start, end int }

func hunks(ops []lineOp) []span {
	var out []span

	for idx, op := range ops {
		if op.kind == diffmatchpatch.DiffEqual {
			continue
		}

		start := max(0, idx-diffContext)
		end := min(len(ops), idx+diffContext+1)

		if len(out) > 0 && start <= out[len(out)-1].end {
			out[len(out)-1].end = max(out[len(out)-1].end, end)

			continue
		}

		out = append(out, span{start: start, end: end})
	}

	return out
}

func writeHunk(out *strings.Builder, ops []lineOp, hunk span) {
	oldStart, newStart := 1, 1

	for _, op := range ops[:hunk.start] {
		if op.kind != diffmatchpatch.DiffInsert {
			oldStart++
		}

		if op.kind != diffmatchpatch.DiffDelete {
			newStart++
		}
	}

	var body strings.Builder

	oldCount, newCount := 0, 0

	for _, op := range ops[hunk.start:hunk.end] {
		switch op.kind {
		case diffmatchpatch.DiffEqual:
			oldCount++
			newCount++

			body.WriteString(" " + op.text + "\n")
		case diffmatchpatch.DiffDelete:
			oldCount++

			body.WriteString("-" + op.text + "\n")
		case diffmatchpatch.DiffInsert:
			newCount++

			body.WriteString("+" + op.text + "\n")
		}
	}

	if oldCount == 0 {
		oldStart--
	}

	if newCount == 0 {
		newStart--
	}

	fmt.Fprintf(out, "@@ -%d,%d +%d,%d @@\n%s", oldStart, oldCount, newStart, newCount, body.String())
}
