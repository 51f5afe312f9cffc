package chunking

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/avoronov/bookqa/internal/core/domain"
)

// Separator priority for splitting: paragraph break, line break, sentence
// punctuation, clause punctuation, whitespace. The empty string is the hard
// character cut of last resort.
var defaultSeparators = []string{"\n\n", "\n", ".", "!", "?", ";", ":", " ", ""}

var (
	tablePattern  = regexp.MustCompile(`table|figure|fig\.`)
	listPattern   = regexp.MustCompile(`(?m)^\s*[-•*]\s|^\s*\d+\.\s`)
	headerPattern = regexp.MustCompile(`(?m)^[A-Z\s]{5,}$`)
)

type Splitter struct {
	chunkSize    int
	overlap      int
	minChunkSize int
	separators   []string
}

func NewSplitter(chunkSize, overlap, minChunkSize int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	if minChunkSize < 0 {
		minChunkSize = 0
	}
	return &Splitter{
		chunkSize:    chunkSize,
		overlap:      overlap,
		minChunkSize: minChunkSize,
		separators:   defaultSeparators,
	}
}

// Chunk splits text into bounded overlapping segments and annotates each
// surviving segment with derived metadata. Pieces shorter than minChunkSize
// are dropped, not merged. Output is fully deterministic for fixed input.
func (s *Splitter) Chunk(text string) []domain.Segment {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	raw := s.splitText(text, s.separators)

	segments := make([]domain.Segment, 0, len(raw))
	for i, piece := range raw {
		piece = strings.TrimSpace(piece)
		if utf8.RuneCountInString(piece) < s.minChunkSize {
			continue
		}
		segments = append(segments, domain.Segment{
			Content:  piece,
			Metadata: buildMetadata(text, piece, i),
		})
	}
	return segments
}

// splitText recursively splits text with the highest-priority separator that
// occurs in it, falling back down the list for any piece still over the size
// ceiling. Separators stay attached to the front of the following piece so
// that concatenation of the pieces recovers the source.
func (s *Splitter) splitText(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var next []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			next = separators[i+1:]
			break
		}
	}

	splits := splitKeepingSeparator(text, separator)

	var out []string
	var pending []string
	for _, piece := range splits {
		if utf8.RuneCountInString(piece) < s.chunkSize {
			pending = append(pending, piece)
			continue
		}
		if len(pending) > 0 {
			out = append(out, s.mergePieces(pending)...)
			pending = nil
		}
		if len(next) == 0 {
			out = append(out, piece)
		} else {
			out = append(out, s.splitText(piece, next)...)
		}
	}
	if len(pending) > 0 {
		out = append(out, s.mergePieces(pending)...)
	}
	return out
}

func splitKeepingSeparator(text, separator string) []string {
	if separator == "" {
		runes := []rune(text)
		out := make([]string, 0, len(runes))
		for _, r := range runes {
			out = append(out, string(r))
		}
		return out
	}

	parts := strings.Split(text, separator)
	out := make([]string, 0, len(parts))
	for i, part := range parts {
		if i > 0 {
			part = separator + part
		}
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// mergePieces packs consecutive pieces into windows at most chunkSize runes
// long, carrying up to overlap runes of trailing context into the next
// window.
func (s *Splitter) mergePieces(pieces []string) []string {
	var out []string
	var window []string
	total := 0

	for _, piece := range pieces {
		length := utf8.RuneCountInString(piece)
		if total+length > s.chunkSize && len(window) > 0 {
			if joined := strings.TrimSpace(strings.Join(window, "")); joined != "" {
				out = append(out, joined)
			}
			for total > s.overlap || (total+length > s.chunkSize && total > 0) {
				total -= utf8.RuneCountInString(window[0])
				window = window[1:]
			}
		}
		window = append(window, piece)
		total += length
	}

	if joined := strings.TrimSpace(strings.Join(window, "")); joined != "" {
		out = append(out, joined)
	}
	return out
}

func buildMetadata(source, content string, index int) domain.SegmentMetadata {
	length := utf8.RuneCountInString(content)
	start := -1
	if byteOff := strings.Index(source, content); byteOff >= 0 {
		start = utf8.RuneCountInString(source[:byteOff])
	}
	end := -1
	if start >= 0 {
		end = start + length
	}
	return domain.SegmentMetadata{
		ChunkIndex:    index,
		CharLength:    length,
		StartChar:     start,
		EndChar:       end,
		ContainsTable: tablePattern.MatchString(strings.ToLower(content)),
		ContainsList:  listPattern.MatchString(content),
		IsHeader:      headerPattern.MatchString(content),
	}
}
