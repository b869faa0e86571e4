package migrate

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

var migrationName = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

const (
	markerUp    = "-- +goose Up"
	markerDown  = "-- +goose Down"
	markerBegin = "-- +goose StatementBegin"
	markerEnd   = "-- +goose StatementEnd"
)

// ValidateDir reports every malformed migration in dir rather than
// stopping at the first one.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	var errs error
	versions := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".sql" {
			continue
		}
		match := migrationName.FindStringSubmatch(name)
		if match == nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: name must look like YYYYMMDDHHMMSS_snake_case.sql", name))
			continue
		}
		if other, dup := versions[match[1]]; dup {
			errs = multierr.Append(errs, fmt.Errorf("%s: version %s already used by %s", name, match[1], other))
		}
		versions[match[1]] = name

		body, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if err := checkMarkers(body); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errs
}

// checkMarkers requires an Up section ahead of a Down section and balanced
// statement blocks that never straddle the two.
func checkMarkers(body []byte) error {
	var upLine, downLine, open int
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for line := 1; scanner.Scan(); line++ {
		switch strings.TrimSpace(scanner.Text()) {
		case markerUp:
			upLine = line
		case markerDown:
			if open > 0 {
				return fmt.Errorf("line %d: Down section starts inside a statement block", line)
			}
			downLine = line
		case markerBegin:
			if open > 0 {
				return fmt.Errorf("line %d: nested StatementBegin", line)
			}
			open++
		case markerEnd:
			if open == 0 {
				return fmt.Errorf("line %d: StatementEnd without StatementBegin", line)
			}
			open--
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	switch {
	case upLine == 0:
		return fmt.Errorf("missing %q", markerUp)
	case downLine == 0:
		return fmt.Errorf("missing %q", markerDown)
	case downLine < upLine:
		return fmt.Errorf("Down section precedes Up section")
	case open > 0:
		return fmt.Errorf("unterminated StatementBegin")
	}
	return nil
}
