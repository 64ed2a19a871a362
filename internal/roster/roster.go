// Package roster reads and writes the flat-file voter record format.
package roster

import (
	"fmt"
	"os"
	"strings"

	"avcheck/internal/roster/models"
)

// The export format carries two banner lines on top and a trailer at the
// bottom; none of them are records.
const (
	headerLines = 2
	footerLines = 1
)

// ReadFile loads a voter roster. Construction is all-or-nothing: the first
// malformed record aborts the read, since downstream pairing of voters with
// lookup responses is positional.
func ReadFile(path string) ([]*models.Voter, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) <= headerLines+footerLines {
		return nil, fmt.Errorf("roster %s contains no records", path)
	}
	records := lines[headerLines : len(lines)-footerLines]

	voters := make([]*models.Voter, 0, len(records))
	for i, record := range records {
		v, err := models.Parse(strings.TrimRight(record, "\r"))
		if err != nil {
			return nil, fmt.Errorf("roster %s line %d: %w", path, i+headerLines+1, err)
		}
		voters = append(voters, v)
	}
	return voters, nil
}

// WriteFile renders voters one record per line in the order given.
func WriteFile(path string, voters []*models.Voter) error {
	var b strings.Builder
	for _, v := range voters {
		b.WriteString(v.String())
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write roster: %w", err)
	}
	return nil
}
