package testrun

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"

	"github.com/ankittk/taskpilot/pkg/models"
)

// ExecTimeout bounds one test command. Materially longer than git or network
// timeouts; a hung test suite must still not hang the pipeline.
const ExecTimeout = 5 * time.Minute

const maxOutputBytes = 1 << 20 // per-command capture cap

// Runner executes resolved test commands in the project root.
type Runner struct {
	Dir     string
	Timeout time.Duration // ExecTimeout when zero

	// execCmd is swapped out in tests; production spawns the argv directly,
	// with no shell interpolation.
	execCmd func(ctx context.Context, dir string, argv []string) (output string, exitErr error)
}

// NewRunner returns a runner rooted at dir.
func NewRunner(dir string) *Runner {
	return &Runner{Dir: dir}
}

func (r *Runner) exec(ctx context.Context, argv []string) (string, error) {
	if r.execCmd != nil {
		return r.execCmd(ctx, r.Dir, argv)
	}
	timeout := r.Timeout
	if timeout == 0 {
		timeout = ExecTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.Dir
	var buf bytes.Buffer
	cmd.Stdout = &capWriter{buf: &buf}
	cmd.Stderr = &capWriter{buf: &buf}
	err := cmd.Run()
	return buf.String(), err
}

type capWriter struct{ buf *bytes.Buffer }

func (w *capWriter) Write(p []byte) (int, error) {
	if w.buf.Len() < maxOutputBytes {
		remain := maxOutputBytes - w.buf.Len()
		if len(p) > remain {
			w.buf.Write(p[:remain])
		} else {
			w.buf.Write(p)
		}
	}
	return len(p), nil
}

// RunTests runs the resolved command for each requested type and folds every
// command's parsed output into one result. Requested types without a command
// are skipped; when nothing at all is runnable the result is "skipped", never
// a fabricated pass.
func (r *Runner) RunTests(ctx context.Context, commands map[string]string, types []string) *models.TestRunResult {
	res := &models.TestRunResult{
		Required:    true,
		CommandsRun: []string{},
		Result:      models.TestResultSkipped,
	}

	var excerpts []string
	start := time.Now()
	anyRun := false
	anyFailed := false

	for _, typ := range types {
		cmdLine, ok := commands[typ]
		if !ok || cmdLine == "" {
			continue
		}
		argv := strings.Fields(cmdLine)
		if len(argv) == 0 {
			continue
		}
		clog.FromContext(ctx).With("type", typ).With("command", cmdLine).Info("running tests")

		output, execErr := r.exec(ctx, argv)
		anyRun = true
		res.CommandsRun = append(res.CommandsRun, cmdLine)

		parsed := parseOutput(output)
		res.Summary.Total += parsed.total
		res.Summary.Passed += parsed.passed
		res.Summary.Failed += parsed.failed
		res.Failures = append(res.Failures, parsed.failures...)

		if execErr != nil && parsed.failed == 0 {
			// The process signaled failure even though nothing in the output
			// was recognizable; count it so failed >= 1 holds.
			res.Summary.Failed++
			res.Summary.Total++
			res.Failures = append(res.Failures, models.TestFailure{
				Name:    typ + " tests",
				Message: fmt.Sprintf("command %q exited with error: %v", cmdLine, execErr),
			})
		}
		if execErr != nil || parsed.failed > 0 {
			anyFailed = true
		}
		excerpts = append(excerpts, lastLines(output, models.DefaultLogExcerptLines))
	}

	res.Summary.Duration = time.Since(start)
	res.LogExcerpt = capBytes(strings.Join(excerpts, "\n---\n"), models.DefaultLogExcerptBytes)

	switch {
	case !anyRun:
		res.Reason = "tests required but no test command could be resolved"
		res.RequirementUnmet = true
	case anyFailed:
		res.Result = models.TestResultFail
	default:
		res.Result = models.TestResultPass
	}
	return res
}

type parsedOutput struct {
	total, passed, failed int
	failures              []models.TestFailure
}

// recognizers, first non-zero total wins
var (
	jestSummary  = regexp.MustCompile(`Tests:\s+(?:(\d+) failed, )?(?:(\d+) skipped, )?(\d+) passed, (\d+) total`)
	mochaPassing = regexp.MustCompile(`(\d+) passing`)
	mochaFailing = regexp.MustCompile(`(\d+) failing`)
	pytestLine   = regexp.MustCompile(`=+ (?:(\d+) failed, )?(\d+) passed.* =+`)
	goTestFail   = regexp.MustCompile(`(?m)^--- FAIL: (\S+)`)
	goTestPass   = regexp.MustCompile(`(?m)^--- PASS: (\S+)`)
	failMarker   = regexp.MustCompile(`(?m)^\s*(?:✕|✗|FAILED|FAIL:)\s+(.+)$`)
)

func parseOutput(out string) parsedOutput {
	var p parsedOutput

	if m := jestSummary.FindStringSubmatch(out); m != nil {
		p.failed = atoi(m[1])
		p.passed = atoi(m[3])
		p.total = atoi(m[4])
	} else if fm, pm := mochaFailing.FindStringSubmatch(out), mochaPassing.FindStringSubmatch(out); pm != nil || fm != nil {
		if pm != nil {
			p.passed = atoi(pm[1])
		}
		if fm != nil {
			p.failed = atoi(fm[1])
		}
		p.total = p.passed + p.failed
	} else if m := pytestLine.FindStringSubmatch(out); m != nil {
		p.failed = atoi(m[1])
		p.passed = atoi(m[2])
		p.total = p.passed + p.failed
	} else if fails, passes := goTestFail.FindAllStringSubmatch(out, -1), goTestPass.FindAllStringSubmatch(out, -1); len(fails) > 0 || len(passes) > 0 {
		p.failed = len(fails)
		p.passed = len(passes)
		p.total = p.failed + p.passed
	}

	for _, m := range failMarker.FindAllStringSubmatch(out, -1) {
		p.failures = append(p.failures, models.TestFailure{Name: strings.TrimSpace(m[1])})
	}
	for _, m := range goTestFail.FindAllStringSubmatch(out, -1) {
		p.failures = append(p.failures, models.TestFailure{Name: m[1]})
	}
	return p
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

func capBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
