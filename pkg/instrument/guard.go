package instrument

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/serval-uni-lu/flakime/pkg/report"
)

// FailureMessage is the message of the exception raised by a fired guard.
const FailureMessage = "flakime injected failure"

// Guard is the failure threshold placed after one statement.
type Guard struct {
	Line      int     `json:"line"`
	Threshold float64 `json:"threshold"`
}

// GuardSet holds the guards of one method in program order.
type GuardSet []Guard

// Fire returns the first guard whose threshold exceeds draw, as the
// instrumented method does when it runs with that draw.
func (g GuardSet) Fire(draw float64, disabled bool) (Guard, bool) {
	if disabled {
		return Guard{}, false
	}
	for _, guard := range g {
		if draw < guard.Threshold {
			return guard, true
		}
	}
	return Guard{}, false
}

// FailureProbability returns the chance that a run with a uniform draw fires
// one of the guards. It is the largest threshold, which is the last one when
// thresholds grow along the method.
func (g GuardSet) FailureProbability() float64 {
	p := 0.0
	for _, guard := range g {
		p = max(p, guard.Threshold)
	}
	return min(p, 1)
}

// Lines returns the guarded statement lines.
func (g GuardSet) Lines() []int {
	lines := make([]int, len(g))
	for i, guard := range g {
		lines[i] = guard.Line
	}
	return lines
}

// Simulation is the outcome of repeated runs of a guarded method.
type Simulation struct {
	Runs     int         `json:"runs"`
	Failures int         `json:"failures"`
	ByLine   map[int]int `json:"byLine"`
}

// FailureRate returns the observed share of failing runs.
func (s Simulation) FailureRate() float64 {
	if s.Runs == 0 {
		return 0
	}
	return float64(s.Failures) / float64(s.Runs)
}

// Simulate runs the guard sequence runs times with one draw per run.
func (g GuardSet) Simulate(rng *rand.Rand, runs int) Simulation {
	s := Simulation{Runs: runs, ByLine: make(map[int]int)}
	for range runs {
		if guard, fired := g.Fire(rng.Float64(), false); fired {
			s.Failures++
			s.ByLine[guard.Line]++
		}
	}
	return s
}

// variables names the locals injected at method entry.
type variables struct {
	draw     string
	disabled string
	writer   string
	ioErr    string
}

func newVariables(suffix string) variables {
	return variables{
		draw:     "__flakimeDraw" + suffix,
		disabled: "__flakimeDisabled" + suffix,
		writer:   "__flakimeWriter" + suffix,
		ioErr:    "__flakimeIoError" + suffix,
	}
}

// entrySnippet declares the per-invocation draw and disable flag.
func entrySnippet(v variables, disableFlag string) string {
	return fmt.Sprintf("double %s = Math.random(); boolean %s = Boolean.parseBoolean(System.getenv(%s));",
		v.draw, v.disabled, javaString(disableFlag))
}

// reportTarget locates the report file of a method.
type reportTarget struct {
	dir  string
	file string
}

// guardSnippet raises when the draw is under threshold, appending a report
// record first when target is set.
func guardSnippet(v variables, guard Guard, target *reportTarget) string {
	var b strings.Builder
	fmt.Fprintf(&b, "if (!%s && %s < %s) { ", v.disabled, v.draw, javaDouble(guard.Threshold))
	if target != nil {
		fmt.Fprintf(&b,
			"try (java.io.FileWriter %s = new java.io.FileWriter(new java.io.File(%s, %s), true)) { %s.write(System.currentTimeMillis() + %s); } catch (java.io.IOException %s) { } ",
			v.writer, javaString(target.dir), javaString(target.file),
			v.writer, javaString(fmt.Sprintf(",%d,%s\n", guard.Line, report.FormatProbability(guard.Threshold))),
			v.ioErr)
	}
	fmt.Fprintf(&b, "throw new IllegalStateException(%s); }", javaString(FailureMessage))
	return b.String()
}

// javaDouble formats p as the shortest Java double literal.
func javaDouble(p float64) string {
	s := strconv.FormatFloat(p, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// javaString quotes s as a Java string literal.
func javaString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
