// SPDX-License-Identifier: MPL-2.0

package builtins

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// fileProcessor handles one input. filename is "-" for the command's input
// stream; index and total are 0 in that case.
type fileProcessor func(r io.Reader, filename string, index, total int) error

// processFilesOrStdin runs processor over every named file in order, or over
// in when no files are named. Relative paths resolve against the process
// working directory, which "cd" changes.
func processFilesOrStdin(args []string, in io.Reader, processor fileProcessor) error {
	if len(args) == 0 {
		return processor(in, "-", 0, 0)
	}

	total := len(args)
	for i, file := range args {
		if file == "-" {
			if err := processor(in, file, i, total); err != nil {
				return err
			}
			continue
		}
		if err := processFile(file, func(f *os.File) error {
			return processor(f, file, i, total)
		}); err != nil {
			return err
		}
	}
	return nil
}

// processFile opens file, hands it to processor and folds a close failure
// into the returned error.
func processFile(file string, processor func(f *os.File) error) (err error) {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return processor(f)
}

// readLines collects every line of r without trailing newlines.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return lines, nil
}

// eachLine calls fn for every line of r until fn returns false.
func eachLine(r io.Reader, fn func(line string) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if !fn(scanner.Text()) {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}
