// SPDX-License-Identifier: MPL-2.0

package builtins

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

type (
	grepCommand struct{ base }
	sortCommand struct{ base }
	headCommand struct{ base }
	tailCommand struct{ base }
	wcCommand   struct{ base }
	uniqCommand struct{ base }
	trCommand   struct{ base }
	cutCommand  struct{ base }

	// cutRange is an inclusive 1-based range; end -1 means end of line.
	cutRange struct {
		start, end int
	}
)

func newGrepCommand() *grepCommand {
	return &grepCommand{base{
		name:    "grep",
		summary: "print lines containing a pattern",
		usage:   "grep [-e] [-i] [-v] [-n] [-c] PATTERN [FILE...]",
		flags: []FlagInfo{
			{Name: "e", Description: "treat PATTERN as a regular expression"},
			{Name: "r", Description: "same as -e"},
			{Name: "i", Description: "ignore case"},
			{Name: "v", Description: "select non-matching lines"},
			{Name: "n", Description: "prefix line numbers"},
			{Name: "c", Description: "print only a count of matching lines"},
		},
	}}
}

// Run executes the grep command. Without -e the pattern is a plain
// substring. The status is 1 when nothing matched.
func (c *grepCommand) Run(_ context.Context, args []string, in io.Reader, out io.Writer) error {
	fs := c.newFlagSet()
	useRegex := fs.Bool("e", false, "regex")
	useRegexAlias := fs.Bool("r", false, "regex")
	ignoreCase := fs.Bool("i", false, "ignore case")
	invert := fs.Bool("v", false, "invert")
	lineNumbers := fs.Bool("n", false, "line numbers")
	countOnly := fs.Bool("c", false, "count")
	_ = fs.Parse(args) //nolint:errcheck // unknown flags are ignored

	rest := fs.Args()
	if len(rest) == 0 {
		return errors.New("missing pattern")
	}
	pattern, files := rest[0], rest[1:]
	if !*useRegex && !*useRegexAlias {
		pattern = regexp.QuoteMeta(pattern)
	}
	if *ignoreCase {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid regex pattern: %w", err)
	}

	matched := false
	err = processFilesOrStdin(files, in, func(r io.Reader, filename string, _, total int) error {
		prefix := ""
		if total > 1 {
			prefix = filename + ":"
		}
		count, lineNum := 0, 0
		err := eachLine(r, func(line string) bool {
			lineNum++
			if re.MatchString(line) == *invert {
				return true
			}
			count++
			if *countOnly {
				return true
			}
			if *lineNumbers {
				fmt.Fprintf(out, "%s%d:%s\n", prefix, lineNum, line)
			} else {
				fmt.Fprintf(out, "%s%s\n", prefix, line)
			}
			return true
		})
		if *countOnly {
			fmt.Fprintf(out, "%s%d\n", prefix, count)
		}
		matched = matched || count > 0
		return err
	})
	if err != nil {
		return err
	}
	if !matched {
		return &ExitStatus{Code: 1}
	}
	return nil
}

func newSortCommand() *sortCommand {
	return &sortCommand{base{
		name:    "sort",
		summary: "sort lines",
		usage:   "sort [-r] [-n] [-u] [-f] [FILE...]",
		flags: []FlagInfo{
			{Name: "r", Description: "reverse the result"},
			{Name: "n", Description: "compare numeric prefixes"},
			{Name: "u", Description: "drop repeated lines"},
			{Name: "f", Description: "fold case"},
		},
	}}
}

// Run executes the sort command.
func (c *sortCommand) Run(_ context.Context, args []string, in io.Reader, out io.Writer) error {
	fs := c.newFlagSet()
	reverse := fs.Bool("r", false, "reverse")
	numeric := fs.Bool("n", false, "numeric")
	unique := fs.Bool("u", false, "unique")
	foldCase := fs.Bool("f", false, "fold case")
	_ = fs.Parse(args) //nolint:errcheck // unknown flags are ignored

	var lines []string
	err := processFilesOrStdin(fs.Args(), in, func(r io.Reader, _ string, _, _ int) error {
		fileLines, err := readLines(r)
		lines = append(lines, fileLines...)
		return err
	})
	if err != nil {
		return err
	}

	key := func(s string) string {
		if *foldCase {
			return strings.ToLower(s)
		}
		return s
	}
	slices.SortStableFunc(lines, func(a, b string) int {
		var n int
		if *numeric {
			na, _ := strconv.ParseFloat(numericPrefix(a), 64)
			nb, _ := strconv.ParseFloat(numericPrefix(b), 64)
			switch {
			case na < nb:
				n = -1
			case na > nb:
				n = 1
			}
		}
		if n == 0 {
			n = strings.Compare(key(a), key(b))
		}
		if *reverse {
			return -n
		}
		return n
	})

	w := bufio.NewWriter(out)
	for i, line := range lines {
		if *unique && i > 0 && key(line) == key(lines[i-1]) {
			continue
		}
		w.WriteString(line)
		w.WriteByte('\n')
	}
	return w.Flush()
}

// numericPrefix returns the leading number of s, or "0".
func numericPrefix(s string) string {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && strings.IndexByte("0123456789.-+", s[end]) >= 0 {
		end++
	}
	if end == 0 {
		return "0"
	}
	return s[:end]
}

func newHeadCommand() *headCommand {
	return &headCommand{base{
		name:    "head",
		summary: "output the first lines of input",
		usage:   "head [-n N] [FILE...]",
		flags:   []FlagInfo{{Name: "n", Description: "number of lines to output", TakesValue: true}},
	}}
}

// Run executes the head command.
func (c *headCommand) Run(_ context.Context, args []string, in io.Reader, out io.Writer) error {
	fs := c.newFlagSet()
	numLines := fs.Int("n", 10, "number of lines")
	_ = fs.Parse(args) //nolint:errcheck // unknown flags are ignored

	return processFilesOrStdin(fs.Args(), in, func(r io.Reader, filename string, index, total int) error {
		writeHeader(out, filename, index, total)
		count := 0
		return eachLine(r, func(line string) bool {
			if count >= *numLines {
				return false
			}
			fmt.Fprintln(out, line)
			count++
			return true
		})
	})
}

func newTailCommand() *tailCommand {
	return &tailCommand{base{
		name:    "tail",
		summary: "output the last lines of input",
		usage:   "tail [-n N] [FILE...]",
		flags:   []FlagInfo{{Name: "n", Description: "number of lines to output", TakesValue: true}},
	}}
}

// Run executes the tail command. It keeps a ring of the last N lines.
func (c *tailCommand) Run(_ context.Context, args []string, in io.Reader, out io.Writer) error {
	fs := c.newFlagSet()
	numLines := fs.Int("n", 10, "number of lines")
	_ = fs.Parse(args) //nolint:errcheck // unknown flags are ignored

	n := max(*numLines, 0)
	return processFilesOrStdin(fs.Args(), in, func(r io.Reader, filename string, index, total int) error {
		writeHeader(out, filename, index, total)
		if n == 0 {
			return nil
		}
		ring := make([]string, 0, n)
		start := 0
		err := eachLine(r, func(line string) bool {
			if len(ring) < n {
				ring = append(ring, line)
			} else {
				ring[start] = line
				start = (start + 1) % n
			}
			return true
		})
		if err != nil {
			return err
		}
		for i := range ring {
			fmt.Fprintln(out, ring[(start+i)%len(ring)])
		}
		return nil
	})
}

// writeHeader prints the "==> name <==" separator used when head or tail
// read more than one file.
func writeHeader(out io.Writer, filename string, index, total int) {
	if total <= 1 {
		return
	}
	if index > 0 {
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "==> %s <==\n", filename)
}

func newWcCommand() *wcCommand {
	return &wcCommand{base{
		name:    "wc",
		summary: "count lines, words and bytes",
		usage:   "wc [-l] [-w] [-c] [FILE...]",
		flags: []FlagInfo{
			{Name: "l", Description: "print the line count"},
			{Name: "w", Description: "print the word count"},
			{Name: "c", Description: "print the byte count"},
			{Name: "m", Description: "print the character count"},
		},
	}}
}

// Run executes the wc command. Without selection flags it prints lines,
// words and bytes.
func (c *wcCommand) Run(_ context.Context, args []string, in io.Reader, out io.Writer) error {
	fs := c.newFlagSet()
	lines := fs.Bool("l", false, "lines")
	words := fs.Bool("w", false, "words")
	bytesFlag := fs.Bool("c", false, "bytes")
	chars := fs.Bool("m", false, "chars")
	_ = fs.Parse(args) //nolint:errcheck // unknown flags are ignored

	if !*lines && !*words && !*bytesFlag && !*chars {
		*lines, *words, *bytesFlag = true, true, true
	}

	var totals [4]int
	files := fs.Args()
	report := func(counts [4]int, name string) {
		var fields []string
		for i, on := range []bool{*lines, *words, *chars, *bytesFlag} {
			if on {
				fields = append(fields, strconv.Itoa(counts[i]))
			}
		}
		if name != "" {
			fields = append(fields, name)
		}
		fmt.Fprintln(out, strings.Join(fields, " "))
	}

	err := processFilesOrStdin(files, in, func(r io.Reader, filename string, _, _ int) error {
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		counts := [4]int{
			strings.Count(string(data), "\n"),
			len(strings.Fields(string(data))),
			utf8.RuneCount(data),
			len(data),
		}
		for i := range totals {
			totals[i] += counts[i]
		}
		if filename == "-" {
			filename = ""
		}
		report(counts, filename)
		return nil
	})
	if err != nil {
		return err
	}
	if len(files) > 1 {
		report(totals, "total")
	}
	return nil
}

func newUniqCommand() *uniqCommand {
	return &uniqCommand{base{
		name:    "uniq",
		summary: "collapse adjacent repeated lines",
		usage:   "uniq [-c] [-d] [-u] [-i] [FILE]",
		flags: []FlagInfo{
			{Name: "c", Description: "prefix lines with their count"},
			{Name: "d", Description: "only print repeated lines"},
			{Name: "u", Description: "only print unique lines"},
			{Name: "i", Description: "ignore case"},
		},
	}}
}

// Run executes the uniq command.
func (c *uniqCommand) Run(_ context.Context, args []string, in io.Reader, out io.Writer) error {
	fs := c.newFlagSet()
	withCount := fs.Bool("c", false, "count")
	repeated := fs.Bool("d", false, "repeated")
	uniqueOnly := fs.Bool("u", false, "unique")
	ignoreCase := fs.Bool("i", false, "ignore case")
	_ = fs.Parse(args) //nolint:errcheck // unknown flags are ignored

	return processFilesOrStdin(fs.Args(), in, func(r io.Reader, _ string, _, _ int) error {
		var (
			prev  string
			count int
		)
		flush := func() {
			if count == 0 || (*repeated && count < 2) || (*uniqueOnly && count > 1) {
				return
			}
			if *withCount {
				fmt.Fprintf(out, "%7d %s\n", count, prev)
			} else {
				fmt.Fprintln(out, prev)
			}
		}
		same := func(a, b string) bool {
			if *ignoreCase {
				return strings.EqualFold(a, b)
			}
			return a == b
		}
		err := eachLine(r, func(line string) bool {
			if count > 0 && same(line, prev) {
				count++
				return true
			}
			flush()
			prev, count = line, 1
			return true
		})
		flush()
		return err
	})
}

func newTrCommand() *trCommand {
	return &trCommand{base{
		name:    "tr",
		summary: "translate or delete characters",
		usage:   "tr [-d] [-s] SET1 [SET2]",
		flags: []FlagInfo{
			{Name: "d", Description: "delete characters in SET1"},
			{Name: "s", Description: "squeeze repeated characters"},
		},
	}}
}

// Run executes the tr command. A SET2 shorter than SET1 is padded with its
// last character.
func (c *trCommand) Run(_ context.Context, args []string, in io.Reader, out io.Writer) error {
	fs := c.newFlagSet()
	deleteMode := fs.Bool("d", false, "delete")
	squeeze := fs.Bool("s", false, "squeeze")
	_ = fs.Parse(args) //nolint:errcheck // unknown flags are ignored

	rest := fs.Args()
	if len(rest) == 0 {
		return errors.New("missing operand")
	}
	set1 := []rune(expandSet(rest[0]))
	var set2 []rune
	if len(rest) > 1 {
		set2 = []rune(expandSet(rest[1]))
	}
	if !*deleteMode && !*squeeze && len(set2) == 0 {
		return fmt.Errorf("missing operand after '%s'", rest[0])
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}

	var b strings.Builder
	var last rune = -1
	for _, r := range string(data) {
		idx := slices.Index(set1, r)
		if *deleteMode && idx >= 0 {
			continue
		}
		if !*deleteMode && idx >= 0 && len(set2) > 0 {
			r = set2[min(idx, len(set2)-1)]
		}
		if *squeeze && r == last {
			squeezeSet := set2
			if len(squeezeSet) == 0 || *deleteMode && len(rest) < 2 {
				squeezeSet = set1
			}
			if slices.Contains(squeezeSet, r) {
				continue
			}
		}
		b.WriteRune(r)
		last = r
	}
	_, err = io.WriteString(out, b.String())
	return err
}

// expandSet expands ranges such as a-z and the escapes \n \t \\.
func expandSet(s string) string {
	var result strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		switch {
		case i+2 < len(runes) && runes[i+1] == '-':
			for c := runes[i]; c <= runes[i+2]; c++ {
				result.WriteRune(c)
			}
			i += 2
		case runes[i] == '\\' && i+1 < len(runes):
			i++
			switch runes[i] {
			case 'n':
				result.WriteRune('\n')
			case 't':
				result.WriteRune('\t')
			default:
				result.WriteRune(runes[i])
			}
		default:
			result.WriteRune(runes[i])
		}
	}
	return result.String()
}

func newCutCommand() *cutCommand {
	return &cutCommand{base{
		name:    "cut",
		summary: "select fields or characters from each line",
		usage:   "cut (-f LIST [-d DELIM] | -c LIST) [FILE...]",
		flags: []FlagInfo{
			{Name: "f", Description: "fields to select", TakesValue: true},
			{Name: "d", Description: "field delimiter (default tab)", TakesValue: true},
			{Name: "c", Description: "characters to select", TakesValue: true},
			{Name: "s", Description: "skip lines without delimiters"},
		},
	}}
}

// Run executes the cut command.
func (c *cutCommand) Run(_ context.Context, args []string, in io.Reader, out io.Writer) error {
	fs := c.newFlagSet()
	delimiter := fs.String("d", "\t", "delimiter")
	fields := fs.String("f", "", "fields")
	chars := fs.String("c", "", "characters")
	onlyDelimited := fs.Bool("s", false, "only delimited")
	_ = fs.Parse(args) //nolint:errcheck // unknown flags are ignored

	spec := *fields
	if spec == "" {
		spec = *chars
	}
	if spec == "" {
		return errors.New("you must specify a list of characters or fields")
	}
	ranges, err := parseRanges(spec)
	if err != nil {
		return err
	}

	return processFilesOrStdin(fs.Args(), in, func(r io.Reader, _ string, _, _ int) error {
		return eachLine(r, func(line string) bool {
			if *fields == "" {
				fmt.Fprintln(out, string(selectRanges([]rune(line), ranges)))
				return true
			}
			parts := strings.Split(line, *delimiter)
			if len(parts) == 1 && *onlyDelimited {
				return true
			}
			fmt.Fprintln(out, strings.Join(selectRanges(parts, ranges), *delimiter))
			return true
		})
	})
}

// parseRanges parses a list such as "1,3-5,7-".
func parseRanges(spec string) ([]cutRange, error) {
	var ranges []cutRange
	for part := range strings.SplitSeq(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		before, after, isRange := strings.Cut(part, "-")
		if !isRange {
			n, err := strconv.Atoi(part)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("invalid position: %s", part)
			}
			ranges = append(ranges, cutRange{start: n, end: n})
			continue
		}
		r := cutRange{start: 1, end: -1}
		var err error
		if before != "" {
			if r.start, err = strconv.Atoi(before); err != nil || r.start < 1 {
				return nil, fmt.Errorf("invalid range: %s", part)
			}
		}
		if after != "" {
			if r.end, err = strconv.Atoi(after); err != nil || r.end < 1 {
				return nil, fmt.Errorf("invalid range: %s", part)
			}
		}
		ranges = append(ranges, r)
	}
	return ranges, nil
}

func selectRanges[T any](items []T, ranges []cutRange) []T {
	var selected []T
	for _, r := range ranges {
		end := r.end
		if end == -1 || end > len(items) {
			end = len(items)
		}
		for i := r.start; i <= end; i++ {
			selected = append(selected, items[i-1])
		}
	}
	return selected
}
