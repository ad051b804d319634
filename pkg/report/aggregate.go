package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
)

// MethodFlakes aggregates the records of one method.
type MethodFlakes struct {
	// Method is the pretty method name taken from the file name.
	Method string `json:"method" yaml:"method"`
	// Path is the report file.
	Path string `json:"path" yaml:"path"`
	// Size is the report file size in bytes.
	Size int64 `json:"size" yaml:"size"`
	// Failures is the number of fired guards.
	Failures int `json:"failures" yaml:"failures"`
	// Malformed is the number of lines that could not be parsed, such as a
	// record truncated by a killed test run.
	Malformed int `json:"malformed,omitempty" yaml:"malformed,omitempty"`
	// ByLine counts fired guards per source line.
	ByLine map[int]int `json:"byLine" yaml:"byLine"`
	// First and Last bound the times guards fired.
	First time.Time `json:"first" yaml:"first"`
	Last  time.Time `json:"last" yaml:"last"`
}

// Lines returns the lines that fired, in ascending order.
func (m MethodFlakes) Lines() []int {
	lines := make([]int, 0, len(m.ByLine))
	for l := range m.ByLine {
		lines = append(lines, l)
	}
	sort.Ints(lines)
	return lines
}

// Aggregate reads every method report file in dir. A missing dir yields no
// results. Malformed lines are skipped and counted in MethodFlakes.Malformed.
// Methods are sorted by decreasing failures, then by name.
func Aggregate(dir string) ([]MethodFlakes, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("aggregate reports: %w", err)
	}

	var out []MethodFlakes
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		method, ok := MethodFromFileName(entry.Name())
		if !ok {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		records, malformed, err := scanFile(path)
		if err != nil {
			return nil, err
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("aggregate reports: %w", err)
		}

		flakes := summarize(method, path, info.Size(), records)
		flakes.Malformed = len(malformed)
		out = append(out, flakes)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Failures != out[j].Failures {
			return out[i].Failures > out[j].Failures
		}
		return out[i].Method < out[j].Method
	})
	return out, nil
}

func summarize(method, path string, size int64, records []Record) MethodFlakes {
	m := MethodFlakes{
		Method:   method,
		Path:     path,
		Size:     size,
		Failures: len(records),
		ByLine:   make(map[int]int),
	}
	for _, r := range records {
		m.ByLine[r.Line]++
		if m.First.IsZero() || r.Time.Before(m.First) {
			m.First = r.Time
		}
		if r.Time.After(m.Last) {
			m.Last = r.Time
		}
	}
	return m
}

// RenderFlakes renders aggregated reports as a table.
func RenderFlakes(flakes []MethodFlakes) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Method", "Failures", "Lines", "Last", "Size", "Malformed"})

	total := 0
	for _, m := range flakes {
		lines := make([]string, 0, len(m.ByLine))
		for _, l := range m.Lines() {
			lines = append(lines, fmt.Sprintf("%d(%d)", l, m.ByLine[l]))
		}
		last := ""
		if !m.Last.IsZero() {
			last = m.Last.Format(time.DateTime)
		}
		tbl.AppendRow(table.Row{
			m.Method,
			m.Failures,
			strings.Join(lines, " "),
			last,
			humanize.Bytes(uint64(max(m.Size, 0))),
			m.Malformed,
		})
		total += m.Failures
	}

	tbl.AppendFooter(table.Row{"Total: " + strconv.Itoa(len(flakes)) + " methods", total})
	return tbl.Render()
}
