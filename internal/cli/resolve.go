package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/alexanderramin/cadence/internal/sequence"
)

// resolveDraftID resolves a full draft ID or a unique ID prefix.
func resolveDraftID(ctx context.Context, app *App, input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("draft ID is required")
	}

	drafts, err := app.Drafts.List(ctx)
	if err != nil {
		return "", err
	}

	for _, d := range drafts {
		if d.ID == input {
			return d.ID, nil
		}
	}

	var matches []string
	for _, d := range drafts {
		if strings.HasPrefix(d.ID, input) {
			matches = append(matches, d.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("draft not found: %q", input)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("draft ID prefix %q is ambiguous (%d matches)", input, len(matches))
	}
}

// resolveNodeID resolves a node identifier which can be:
//   - "root"
//   - a step number as shown by "draft show" (#3 or 3)
//   - a full node ID or a unique prefix
func resolveNodeID(d *sequence.Draft, input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("node is required")
	}
	if strings.EqualFold(input, "root") {
		return d.RootID(), nil
	}

	visits := d.Traverse()
	if n, err := strconv.Atoi(strings.TrimPrefix(input, "#")); err == nil {
		if n < 1 || n > len(visits) {
			return "", fmt.Errorf("step #%d does not exist (draft has %d steps)", n, len(visits))
		}
		return visits[n-1].Node.ID, nil
	}

	if _, ok := d.Node(input); ok {
		return input, nil
	}
	var matches []string
	for _, v := range visits {
		if strings.HasPrefix(v.Node.ID, input) {
			matches = append(matches, v.Node.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("node not found: %q", input)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("node ID prefix %q is ambiguous (%d matches)", input, len(matches))
	}
}
