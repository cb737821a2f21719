package pathmap

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Issue describes a part of a path that Tokenize would not honor as written.
type Issue struct {
	Offset  int
	Text    string
	Message string
}

func (i Issue) String() string {
	if i.Text == "" {
		return fmt.Sprintf("offset %d: %s", i.Offset, i.Message)
	}
	return fmt.Sprintf("offset %d: %s (%q)", i.Offset, i.Message, i.Text)
}

var indexSegmentPattern = regexp.MustCompile(`\[[0-9]+\]`)

// Lint checks path against the grammar for mode without changing how it is
// tokenized. An empty result means Tokenize keeps every character.
func Lint(path string, mode Mode) []Issue {
	if strings.TrimSpace(path) == "" {
		return []Issue{{Offset: 0, Text: path, Message: "empty path"}}
	}

	var issues []Issue
	var indexRegions [][]int
	if mode == ReadMode {
		indexRegions = indexSegmentPattern.FindAllStringIndex(path, -1)
		for _, loc := range indexRegions {
			issues = append(issues, Issue{
				Offset:  loc[0],
				Text:    path[loc[0]:loc[1]],
				Message: "bracketed number is read as a decimal key, not a position",
			})
		}
	}

	locs := segmentPattern(mode).FindAllStringIndex(path, -1)
	if len(locs) == 0 {
		return append(issues, Issue{Offset: 0, Text: path, Message: "no segments"})
	}

	prev := 0
	for i, loc := range locs {
		want := "."
		if i == 0 {
			want = ""
		}
		if gap := path[prev:loc[0]]; gap != want && !overlaps(prev, loc[0], indexRegions) {
			issues = append(issues, gapIssue(prev, gap, i == 0))
		}
		seg := path[loc[0]:loc[1]]
		if mode == WriteMode && !strings.HasPrefix(seg, "[") && strings.TrimSpace(seg) != seg {
			issues = append(issues, Issue{Offset: loc[0], Text: seg, Message: "segment has leading or trailing spaces"})
		}
		if mode == WriteMode && indexSegmentPattern.MatchString(seg) {
			if n, err := strconv.Atoi(seg[1 : len(seg)-1]); err != nil || n > MaxIndex {
				issues = append(issues, Issue{Offset: loc[0], Text: seg, Message: fmt.Sprintf("index above %d is never written", MaxIndex)})
			}
		}
		prev = loc[1]
	}
	if tail := path[prev:]; tail != "" && !overlaps(prev, len(path), indexRegions) {
		issues = append(issues, Issue{Offset: prev, Text: tail, Message: "trailing characters dropped"})
	}
	return issues
}

func gapIssue(offset int, gap string, leading bool) Issue {
	switch {
	case leading:
		return Issue{Offset: offset, Text: gap, Message: "leading characters dropped"}
	case gap == "":
		return Issue{Offset: offset, Message: "missing '.' between segments"}
	case strings.Trim(gap, ".") == "":
		return Issue{Offset: offset, Text: gap, Message: "empty segment"}
	default:
		return Issue{Offset: offset, Text: gap, Message: "characters dropped between segments"}
	}
}

func overlaps(start, end int, regions [][]int) bool {
	for _, r := range regions {
		if start < r[1] && r[0] < end {
			return true
		}
	}
	return false
}
