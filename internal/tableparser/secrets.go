package tableparser

import (
	"fmt"
	"regexp"

	"github.com/taskpanel/taskpanel/internal/model"
)

// secretPatterns maps a human-readable description to a regex that matches
// common secrets or credentials accidentally embedded in shell commands.
// Adapted from the teacher's pipeline-step secret scanner to run over raw
// task commands instead of YAML run fields.
var secretPatterns = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"AWS access key", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"secret assignment", regexp.MustCompile(`(?i)(api_key|secret|token|password)\s*=\s*"?[A-Za-z0-9_/+=\-]{8,}`)},
	{"URL with credentials", regexp.MustCompile(`://[^:]+:[^@]+@`)},
	{"private key header", regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`)},
	{"GitHub token", regexp.MustCompile(`ghp_[A-Za-z0-9]{36}`)},
	{"GitLab token", regexp.MustCompile(`glpat-[A-Za-z0-9\-]{20,}`)},
	{"Bearer token", regexp.MustCompile(`Bearer\s+[A-Za-z0-9\-._~+/]+=*`)},
}

// SecretWarnings scans every task's commands and returns one warning per
// step that appears to embed a credential, so the CLI can surface it
// before launching anything.
func SecretWarnings(tasks []*model.Task) []string {
	var warns []string
	for _, t := range tasks {
		for i, s := range t.Steps {
			for _, sp := range secretPatterns {
				if sp.pattern.MatchString(s.Command) {
					warns = append(warns, fmt.Sprintf(
						"task %q step %d: possible secret detected (%s)",
						t.Name, i, sp.name,
					))
					break
				}
			}
		}
	}
	return warns
}
