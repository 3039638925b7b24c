// Package tableparser loads the input CSV table into model.Task rows.
//
// Grounded on model.py's load_tasks_from_csv: rows are name, info,
// followed by one shell command per remaining column. The header is
// derived dynamically from the longest row rather than read from a
// literal header line, matching the original's tolerant grammar.
package tableparser

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/taskpanel/taskpanel/internal/model"
)

// Table is the parsed input: the tasks plus the derived column headers
// used purely for display (e.g. in the TUI column titles).
type Table struct {
	Tasks   []*model.Task
	Headers []string
}

// Load reads csvPath and builds a Table whose per-task log paths are
// rooted under logRoot (see internal/logstore for the exact layout).
func Load(csvPath, logRoot string) (*Table, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("opening input table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // rows may have a variable number of command columns

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading input table: %w", err)
		}
		if len(rec) == 0 || strings.TrimSpace(rec[0]) == "" {
			continue
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("input table %q has no usable rows", csvPath)
	}

	var longestRow []string
	for _, row := range rows {
		if len(row) > len(longestRow) {
			longestRow = row
		}
	}
	longest := len(longestRow)

	headers := make([]string, longest)
	headers[0] = "name"
	if longest > 1 {
		headers[1] = "info"
	}
	for i := 2; i < longest; i++ {
		headers[i] = commandHeader(longestRow[i], i-1)
	}
	for i := range headers {
		if headers[i] == "" {
			headers[i] = fmt.Sprintf("cmd%d", i-1)
		}
	}

	tasks := make([]*model.Task, 0, len(rows))
	for idx, row := range rows {
		id := idx + 1 // I1: task.id is 1-based, matching model.py's enumerate(all_rows, 1)
		name := strings.TrimSpace(row[0])
		info := ""
		if len(row) > 1 {
			info = strings.TrimSpace(row[1])
		}
		safe := SanitizeName(name)
		logBase := filepath.Join(logRoot, fmt.Sprintf("%d_%s", id, safe))

		var steps []*model.Step
		for i := 2; i < len(row); i++ {
			cmd := strings.TrimSpace(row[i])
			if cmd == "" {
				continue
			}
			stepIdx := len(steps)
			base := filepath.Join(logBase, fmt.Sprintf("step%d", stepIdx))
			steps = append(steps, &model.Step{
				Command:       cmd,
				Status:        model.Pending,
				LogPathStdout: base + ".stdout.log",
				LogPathStderr: base + ".stderr.log",
			})
		}

		tasks = append(tasks, &model.Task{
			ID:         id,
			Name:       name,
			Info:       info,
			Steps:      steps,
			SafeName:   safe,
			LogBaseDir: logBase,
		})
	}

	return &Table{Tasks: tasks, Headers: headers}, nil
}

// SanitizeName mirrors model.py's "".join(c if c.isalnum() else "_")
// transform used to build filesystem-safe per-task log directory names.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// commandHeader derives a short display header for a command column,
// e.g. "/usr/bin/go build" -> "go", matching model.py's
// cmd.strip().split()[0].split('/')[-1].
func commandHeader(cmd string, n int) string {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return fmt.Sprintf("cmd%d", n)
	}
	parts := strings.Split(fields[0], "/")
	last := parts[len(parts)-1]
	if last == "" {
		return fmt.Sprintf("cmd%d", n)
	}
	return last
}
