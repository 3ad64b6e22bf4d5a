package authorship

import (
	"regexp"

	"github.com/Sumatoshi-tech/codetally/internal/identity"
)

// annotationPattern matches an author marker anywhere on a line, inside any
// comment syntax: "@@author <name>" opens a range, bare "@@author" closes
// it. The name charset keeps trailing comment closers out of the capture.
var annotationPattern = regexp.MustCompile(`@@author(?:[ \t]+([A-Za-z0-9][A-Za-z0-9._-]*))?`)

type annotationSpan struct {
	start int
	end   int
	name  string
}

// ApplyAnnotations overrides line authors inside completed marker pairs,
// start line through end line inclusive. Overridden lines are forced back to
// tracked, so an explicit annotation beats every historical exclusion. Spans
// are applied in file order, so for overlapping pairs the later pair wins.
// A start marker without a closing marker leaves the remainder of the file
// under normal attribution.
func ApplyAnnotations(info *FileInfo, resolver *identity.Resolver) {
	for _, span := range annotationSpans(info.Lines) {
		author := resolver.ResolveName(span.name)

		for i := span.start; i <= span.end; i++ {
			info.Lines[i].Author = author
			info.Lines[i].Tracked = true
		}
	}
}

func annotationSpans(lines []LineInfo) []annotationSpan {
	var spans []annotationSpan

	type openMarker struct {
		line int
		name string
	}

	var pending []openMarker

	for i, line := range lines {
		match := annotationPattern.FindStringSubmatch(line.Text)
		if match == nil {
			continue
		}

		if match[1] != "" {
			pending = append(pending, openMarker{line: i, name: match[1]})

			continue
		}

		for _, open := range pending {
			spans = append(spans, annotationSpan{start: open.line, end: i, name: open.name})
		}

		pending = nil
	}

	return spans
}
