package chunking

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunkRespectsSizeAndFloor(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 60)
	s := NewSplitter(1000, 200, 100)

	segments := s.Chunk(text)
	if len(segments) < 2 {
		t.Fatalf("expected multiple segments, got %d", len(segments))
	}
	for i, seg := range segments {
		n := utf8.RuneCountInString(seg.Content)
		if n > 1000 {
			t.Fatalf("segment %d exceeds chunk size: %d", i, n)
		}
		if n < 100 {
			t.Fatalf("segment %d below min chunk size: %d", i, n)
		}
		if strings.TrimSpace(seg.Content) == "" {
			t.Fatalf("segment %d has empty trimmed content", i)
		}
	}
}

func TestChunkDeterministic(t *testing.T) {
	text := strings.Repeat("Sentence one. Sentence two! Sentence three?\n\n", 80)
	s := NewSplitter(1000, 200, 100)

	first := s.Chunk(text)
	second := s.Chunk(text)
	if len(first) != len(second) {
		t.Fatalf("rerun produced %d segments, want %d", len(second), len(first))
	}
	for i := range first {
		if first[i].Content != second[i].Content {
			t.Fatalf("segment %d differs between runs", i)
		}
		if first[i].Metadata != second[i].Metadata {
			t.Fatalf("segment %d metadata differs between runs", i)
		}
	}
}

func TestChunkTwoAndAHalfThousandChars(t *testing.T) {
	var b strings.Builder
	for b.Len() < 2500 {
		b.WriteString("Knowledge of the domain grows with every reading. ")
	}
	text := b.String()[:2500]

	segments := NewSplitter(1000, 200, 100).Chunk(text)
	if len(segments) < 3 {
		t.Fatalf("expected at least 3 segments for 2500 chars, got %d", len(segments))
	}
	for i, seg := range segments {
		if utf8.RuneCountInString(seg.Content) > 1000 {
			t.Fatalf("segment %d over 1000 chars", i)
		}
	}
}

func TestChunkOverlapSharesContext(t *testing.T) {
	text := strings.Repeat("Alpha beta gamma delta epsilon zeta eta theta iota kappa. ", 40)
	segments := NewSplitter(1000, 200, 100).Chunk(text)
	if len(segments) < 2 {
		t.Fatalf("expected at least 2 segments, got %d", len(segments))
	}

	// The tail of one segment should reappear near the head of the next.
	tail := segments[0].Content[len(segments[0].Content)-50:]
	if !strings.Contains(segments[1].Content, tail) {
		t.Fatalf("consecutive segments do not share overlap context")
	}
}

func TestChunkDropsShortPieces(t *testing.T) {
	text := "Short bit.\n\n" + strings.Repeat("A reasonably long paragraph that easily clears the minimum chunk size floor for this test. ", 3)
	segments := NewSplitter(1000, 200, 100).Chunk(text)
	for _, seg := range segments {
		if utf8.RuneCountInString(seg.Content) < 100 {
			t.Fatalf("segment below floor survived: %q", seg.Content)
		}
	}
}

func TestChunkEmptyInput(t *testing.T) {
	if got := NewSplitter(1000, 200, 100).Chunk("   \n\t "); got != nil {
		t.Fatalf("expected nil for blank input, got %d segments", len(got))
	}
}

func TestChunkHardCutWithoutSeparators(t *testing.T) {
	text := strings.Repeat("x", 2300)
	segments := NewSplitter(1000, 200, 100).Chunk(text)
	if len(segments) < 2 {
		t.Fatalf("expected hard-cut segments, got %d", len(segments))
	}
	for i, seg := range segments {
		if utf8.RuneCountInString(seg.Content) > 1000 {
			t.Fatalf("hard-cut segment %d over limit", i)
		}
	}
}

func TestMetadataFlags(t *testing.T) {
	filler := strings.Repeat("word ", 25)

	cases := []struct {
		name  string
		text  string
		check func(t *testing.T, md map[string]bool)
	}{
		{
			name: "table reference",
			text: "See Table 3 for the full comparison of results. " + filler,
			check: func(t *testing.T, md map[string]bool) {
				if !md["table"] {
					t.Fatalf("expected contains_table")
				}
			},
		},
		{
			name: "bulleted list",
			text: "- first item of the list\n- second item of the list\n- third item keeps going\n" + filler,
			check: func(t *testing.T, md map[string]bool) {
				if !md["list"] {
					t.Fatalf("expected contains_list")
				}
			},
		},
		{
			name: "all caps header line",
			text: "CHAPTER SEVEN OVERVIEW\n" + filler,
			check: func(t *testing.T, md map[string]bool) {
				if !md["header"] {
					t.Fatalf("expected is_header")
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			segments := NewSplitter(1000, 200, 50).Chunk(tc.text)
			if len(segments) == 0 {
				t.Fatalf("no segments produced")
			}
			md := segments[0].Metadata
			tc.check(t, map[string]bool{
				"table":  md.ContainsTable,
				"list":   md.ContainsList,
				"header": md.IsHeader,
			})
		})
	}
}

func TestMetadataOffsets(t *testing.T) {
	text := strings.Repeat("Unique prefix %d once. ", 1) + strings.Repeat("Content sentence that fills the segment with enough characters to survive. ", 5)
	segments := NewSplitter(1000, 200, 50).Chunk(text)
	if len(segments) == 0 {
		t.Fatalf("no segments produced")
	}
	seg := segments[0]
	if seg.Metadata.StartChar < 0 {
		t.Fatalf("expected located start offset, got %d", seg.Metadata.StartChar)
	}
	if seg.Metadata.EndChar != seg.Metadata.StartChar+seg.Metadata.CharLength {
		t.Fatalf("end offset inconsistent: %+v", seg.Metadata)
	}
	if seg.Metadata.CharLength != utf8.RuneCountInString(seg.Content) {
		t.Fatalf("char length mismatch: %+v", seg.Metadata)
	}
}
