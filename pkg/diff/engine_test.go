package diff

import (
	"strconv"
	"strings"
	"testing"
)

func TestGenerateIdentical(t *testing.T) {
	e := NewEngine()
	text := "line one\nline two\nline three\n"

	out := e.Generate(text, text, "same.txt")

	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++") {
			t.Errorf("unexpected insert line in identical diff: %q", line)
		}
		if strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---") {
			t.Errorf("unexpected delete line in identical diff: %q", line)
		}
	}
	if strings.Contains(out, "@@") {
		t.Error("identical inputs should produce no hunks")
	}
}

func TestGenerateSimpleChange(t *testing.T) {
	e := NewEngine()
	oldText := "a\nb\nc\n"
	newText := "a\nB\nc\n"

	out := e.Generate(oldText, newText, "f.txt")

	if !strings.Contains(out, "@@ -1,3 +1,3 @@") {
		t.Errorf("expected hunk header, got:\n%s", out)
	}
	if !strings.Contains(out, "-b\n") || !strings.Contains(out, "+B\n") {
		t.Errorf("expected replace lines, got:\n%s", out)
	}
}

func TestStats(t *testing.T) {
	e := NewEngine()
	oldText := "one\ntwo\nthree\n"
	newText := "one\nthree\nfour\nfive\n"

	added, removed := e.Stats(oldText, newText)
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if added != 2 {
		t.Errorf("expected 2 added, got %d", added)
	}
}

// applyUnified replays the insert/delete lines of a generated diff onto
// the original text. Used to verify the diff reconstructs the target.
func applyUnified(t *testing.T, original, patch string) string {
	t.Helper()

	oldLines := splitLines(original)
	var out []string
	cursor := 0 // index into oldLines

	lines := strings.Split(patch, "\n")
	for idx := 0; idx < len(lines); idx++ {
		line := lines[idx]
		if strings.HasPrefix(line, "---") || strings.HasPrefix(line, "+++") || line == "" {
			continue
		}
		if strings.HasPrefix(line, "@@") {
			// Parse "-a,b" from "@@ -a,b +c,d @@".
			fields := strings.Fields(line)
			spec := strings.TrimPrefix(fields[1], "-")
			parts := strings.SplitN(spec, ",", 2)
			aStart, err := strconv.Atoi(parts[0])
			if err != nil {
				t.Fatalf("bad hunk header %q: %v", line, err)
			}
			aCount := 1
			if len(parts) == 2 {
				aCount, _ = strconv.Atoi(parts[1])
			}
			target := aStart - 1
			if aCount == 0 {
				target = aStart
			}
			for cursor < target && cursor < len(oldLines) {
				out = append(out, oldLines[cursor])
				cursor++
			}
			continue
		}
		switch line[0] {
		case ' ':
			out = append(out, oldLines[cursor])
			cursor++
		case '-':
			cursor++
		case '+':
			out = append(out, line[1:])
		}
	}
	for cursor < len(oldLines) {
		out = append(out, oldLines[cursor])
		cursor++
	}

	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, "\n") + "\n"
}

func TestGenerateRoundTrip(t *testing.T) {
	e := NewEngine()

	cases := []struct {
		name     string
		oldText  string
		newText  string
	}{
		{"replace middle", "a\nb\nc\nd\n", "a\nX\nc\nd\n"},
		{"insert run", "a\nb\nc\n", "a\nx\ny\nb\nc\n"},
		{"delete run", "a\nx\ny\nb\nc\n", "a\nb\nc\n"},
		{"append tail", "a\nb\n", "a\nb\nc\nd\n"},
		{"truncate tail", "a\nb\nc\nd\n", "a\nb\n"},
		{"empty to content", "", "a\nb\n"},
		{"content to empty", "a\nb\n", ""},
		{"disjoint edits", "1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n11\n12\n13\n14\n15\n",
			"1\nTWO\n3\n4\n5\n6\n7\n8\n9\n10\n11\n12\n13\nFOURTEEN\n15\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			patch := e.Generate(tc.oldText, tc.newText, "f.txt")
			got := applyUnified(t, tc.oldText, patch)
			if got != tc.newText {
				t.Errorf("round trip failed.\npatch:\n%s\nwant: %q\ngot:  %q", patch, tc.newText, got)
			}
		})
	}
}

func TestGenerateBeyondLookahead(t *testing.T) {
	// A change bigger than the lookahead window degrades to pairwise
	// replaces but must still reconstruct the target.
	e := NewEngine()
	e.Lookahead = 3

	var oldLines, newLines []string
	for i := 0; i < 20; i++ {
		oldLines = append(oldLines, "old-"+strconv.Itoa(i))
		newLines = append(newLines, "new-"+strconv.Itoa(i))
	}
	oldText := strings.Join(oldLines, "\n") + "\n"
	newText := strings.Join(newLines, "\n") + "\n"

	patch := e.Generate(oldText, newText, "f.txt")
	if got := applyUnified(t, oldText, patch); got != newText {
		t.Errorf("round trip failed for replace-all case")
	}
}

func TestMaxHunkLinesSplits(t *testing.T) {
	e := NewEngine()
	e.MaxHunkLines = 10

	var oldLines, newLines []string
	for i := 0; i < 50; i++ {
		oldLines = append(oldLines, "x"+strconv.Itoa(i))
		newLines = append(newLines, "y"+strconv.Itoa(i))
	}
	patch := e.Generate(strings.Join(oldLines, "\n")+"\n", strings.Join(newLines, "\n")+"\n", "big.txt")

	if strings.Count(patch, "@@") < 2*2 { // headers contain @@ twice
		t.Errorf("expected hunk splitting, got:\n%s", patch)
	}
}

func TestDisplayDiff(t *testing.T) {
	e := NewEngine()
	out := e.DisplayDiff("a\nb\n", "a\nc\n", "f.txt")

	if !strings.Contains(out, "=== f.txt ===") {
		t.Error("missing label header")
	}
	if !strings.Contains(out, "- b") || !strings.Contains(out, "+ c") {
		t.Errorf("missing change markers:\n%s", out)
	}
	if !strings.Contains(out, "   1    1   a") {
		t.Errorf("missing aligned line numbers:\n%s", out)
	}
}
