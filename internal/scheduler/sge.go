package scheduler

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/10amc-2/disorder/internal/command"
)

// GridEngine submits job scripts with qsub.
type GridEngine struct {
	qsubBin string
	runner  command.Runner
	jobIDRe *regexp.Regexp
}

// NewGridEngine creates a Grid Engine submitter. An empty qsubBin means "qsub" from PATH.
func NewGridEngine(runner command.Runner, qsubBin string) *GridEngine {
	if qsubBin == "" {
		qsubBin = "qsub"
	}
	return &GridEngine{
		qsubBin: qsubBin,
		runner:  runner,
		jobIDRe: regexp.MustCompile(`Your job(?:-array)? (\d+)(?:\.[-\d:]+)? \(".*"\) has been submitted`),
	}
}

// SubmitCommand returns the shell line that submits scriptPath.
func (g *GridEngine) SubmitCommand(scriptPath string) string {
	return command.Join(g.qsubBin, scriptPath)
}

// Submit hands scriptPath to qsub and returns the Grid Engine job id.
func (g *GridEngine) Submit(ctx context.Context, scriptPath string) (string, error) {
	jobName := strings.TrimSuffix(filepath.Base(scriptPath), filepath.Ext(scriptPath))

	out, err := g.runner.Run(ctx, g.qsubBin, scriptPath)
	if err != nil {
		return "", NewSubmissionError("GridEngine", jobName, "", err)
	}

	m := g.jobIDRe.FindStringSubmatch(out)
	if m == nil {
		return "", NewSubmissionError("GridEngine", jobName, strings.TrimSpace(out),
			ErrJobIDParseFailed)
	}
	return m[1], nil
}

// IsInsideJob checks if we're currently running inside a Grid Engine job.
// This is useful to avoid nested job submission.
func IsInsideJob(lookupEnv func(string) (string, bool)) bool {
	if _, ok := lookupEnv("JOB_ID"); !ok {
		return false
	}
	// SGE_O_* variables are only exported into job environments
	_, ok := lookupEnv("SGE_O_WORKDIR")
	return ok
}
