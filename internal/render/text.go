package render

import (
	"bufio"
	"strings"

	"github.com/AkutaZehy/Annoti/internal/domtree"
	"github.com/mattn/go-runewidth"
)

// DefaultWrapWidth is the plain-text column width used when typography
// does not specify one.
const DefaultWrapWidth = 80

// Text renders plain text into a document tree. Paragraphs are separated
// by blank lines; each paragraph becomes a <p> whose text is re-wrapped at
// the given display width. Wrapped lines are separate text leaves split by
// <br>, so a highlight that crosses a line break captures one anchor per
// line.
func Text(src string, width int) *domtree.Node {
	if width <= 0 {
		width = DefaultWrapWidth
	}

	var paragraphs []string
	var current []string
	scanner := bufio.NewScanner(strings.NewReader(src))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				paragraphs = append(paragraphs, joinLines(current))
				current = nil
			}
		} else {
			current = append(current, strings.TrimRight(line, " \t"))
		}
	}
	if len(current) > 0 {
		paragraphs = append(paragraphs, joinLines(current))
	}

	root := domtree.NewElement("body")
	for _, para := range paragraphs {
		p := domtree.NewElement("p", domtree.Attr{Key: "class", Val: "plain"})
		lines := wrapLine(para, width)
		for i, line := range lines {
			if i > 0 {
				p.AppendChild(domtree.NewElement("br"))
			}
			p.AppendChild(domtree.NewText(line))
		}
		root.AppendChild(p)
	}
	return root
}

// joinLines merges the source lines of one paragraph. Lines are joined
// with a space unless the boundary runes are both wide (CJK), where no
// separator belongs.
func joinLines(lines []string) string {
	var sb strings.Builder
	for i, line := range lines {
		if i > 0 {
			prev := []rune(lines[i-1])
			next := []rune(line)
			wideBoundary := len(prev) > 0 && len(next) > 0 &&
				runewidth.RuneWidth(prev[len(prev)-1]) == 2 &&
				runewidth.RuneWidth(next[0]) == 2
			if !wideBoundary {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(line)
	}
	return sb.String()
}

// wrapLine breaks text into lines no wider than width display cells.
// Breaks prefer the last space on the line; wide runes are never split
// across lines, so CJK text breaks at any cell boundary.
func wrapLine(text string, width int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return []string{""}
	}

	var lines []string
	start := 0
	col := 0
	lastSpace := -1
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		w := runewidth.RuneWidth(r)
		if col+w > width && i > start {
			brk := i
			if lastSpace > start {
				brk = lastSpace
			}
			lines = append(lines, strings.TrimRight(string(runes[start:brk]), " "))
			start = brk
			for start < len(runes) && runes[start] == ' ' {
				start++
			}
			i = start - 1
			col = 0
			lastSpace = -1
			continue
		}
		if r == ' ' {
			lastSpace = i
		}
		col += w
	}
	if start < len(runes) {
		lines = append(lines, strings.TrimRight(string(runes[start:]), " "))
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	return lines
}
