// Package report reads and writes the files produced around an injection run:
// the per-method records appended by fired guards and the run summary.
package report

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedRecord is returned when a report line does not have the
// <millis>,<line>,<probability> shape.
var ErrMalformedRecord = errors.New("report: malformed record")

const (
	filePrefix = "_output_"
	fileSuffix = ".out"
)

// Record is one line appended by a guard right before it raises.
type Record struct {
	// Time is the wall-clock time the guard fired, with millisecond precision.
	Time time.Time `json:"time"`
	// Line is the source line of the statement the guard follows.
	Line int `json:"line"`
	// Probability is the threshold of the guard, rounded to two decimals.
	Probability float64 `json:"probability"`
}

// String formats r as <millis>,<line>,<probability %.2f>.
func (r Record) String() string {
	return FormatRecord(r.Time.UnixMilli(), r.Line, r.Probability)
}

// FormatRecord formats one report line without the trailing newline.
func FormatRecord(millis int64, line int, probability float64) string {
	return fmt.Sprintf("%d,%d,%s", millis, line, FormatProbability(probability))
}

// FormatProbability renders p with exactly two decimals.
func FormatProbability(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}

// ParseRecord parses one report line.
func ParseRecord(line string) (Record, error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != 3 {
		return Record{}, fmt.Errorf("%w: %q", ErrMalformedRecord, line)
	}

	millis, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || millis < 0 {
		return Record{}, fmt.Errorf("%w: bad timestamp in %q", ErrMalformedRecord, line)
	}
	lineNumber, err := strconv.Atoi(parts[1])
	if err != nil || lineNumber < 0 {
		return Record{}, fmt.Errorf("%w: bad line number in %q", ErrMalformedRecord, line)
	}
	dot := strings.IndexByte(parts[2], '.')
	if dot <= 0 || len(parts[2])-dot-1 != 2 {
		return Record{}, fmt.Errorf("%w: probability must have two decimals in %q", ErrMalformedRecord, line)
	}
	p, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: bad probability in %q", ErrMalformedRecord, line)
	}

	return Record{Time: time.UnixMilli(millis), Line: lineNumber, Probability: p}, nil
}

// ReadFile parses every non-blank line of a report file. Any malformed line
// is an error.
func ReadFile(path string) ([]Record, error) {
	records, malformed, err := scanFile(path)
	if err != nil {
		return nil, err
	}
	if len(malformed) > 0 {
		return nil, fmt.Errorf("%s: %w", path, malformed[0])
	}
	return records, nil
}

// scanFile parses a report file and returns the well-formed records together
// with the parse errors of the other lines.
func scanFile(path string) ([]Record, []error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read report: %w", err)
	}
	defer f.Close()

	var (
		records   []Record
		malformed []error
	)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		r, err := ParseRecord(text)
		if err != nil {
			malformed = append(malformed, err)
			continue
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("read report: %w", err)
	}
	return records, malformed, nil
}

// PrettyName flattens a method long name into a file-name-safe token.
// Array parameters are spelled out so overloads keep distinct names.
func PrettyName(longName string) string {
	r := strings.NewReplacer(
		"[]", "Array",
		".", "_",
		"#", "_",
		",", "_",
		"$", "_",
		" ", "",
		"(", "",
		")", "",
		"[", "",
		"]", "",
		"<", "",
		">", "",
	)
	return r.Replace(longName)
}

// MethodFileName returns the name of the report file of a method.
func MethodFileName(longName string) string {
	return filePrefix + PrettyName(longName) + fileSuffix
}

// MethodFromFileName returns the pretty method name of a report file name.
func MethodFromFileName(name string) (string, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return "", false
	}
	method := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	return method, method != ""
}
