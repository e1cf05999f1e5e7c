// Package resolver builds the ordered, de-duplicated target list for a run.
package resolver

import (
	"bufio"
	"net"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/user/fleetprobe/internal/model"
)

// ErrNoTargets is the only error this package raises: every source was
// empty or contained nothing usable. Malformed individual tokens are
// skipped, not fatal, so editing a device file stays forgiving.
var ErrNoTargets = errors.New("no targets")

// Options carries run-level attributes attached to every resolved target.
type Options struct {
	Ports     []int
	Interface string
}

// Resolve merges literal identifiers and an optional device file into an
// ordered set of targets. First-seen order is preserved; duplicates (after
// trimming and case-folding) are dropped.
func Resolve(literals []string, filePath string, opts Options) ([]model.Target, error) {
	var tokens []string

	for _, l := range literals {
		tokens = append(tokens, splitTokens(l)...)
	}

	if filePath != "" {
		fileTokens, err := readDeviceFile(filePath)
		if err != nil {
			return nil, errors.Wrapf(err, "device file %s", filePath)
		}
		tokens = append(tokens, fileTokens...)
	}

	seen := make(map[string]bool, len(tokens))
	var targets []model.Target
	for _, tok := range tokens {
		id := normalize(tok)
		if id == "" || !validIdentifier(id) {
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		targets = append(targets, model.Target{
			ID:        id,
			Ports:     opts.Ports,
			Interface: opts.Interface,
		})
	}

	if len(targets) == 0 {
		return nil, ErrNoTargets
	}
	return targets, nil
}

// readDeviceFile parses one identifier per line; commas within a line are
// also accepted, '#' starts a comment, blank lines are ignored.
func readDeviceFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var tokens []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		tokens = append(tokens, splitTokens(line)...)
	}
	return tokens, scanner.Err()
}

// splitTokens splits on commas and whitespace in one pass.
func splitTokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}

func normalize(tok string) string {
	return strings.ToLower(strings.TrimSpace(tok))
}

// validIdentifier accepts IP literals and plausible hostnames. It is
// intentionally loose for hostnames: the DNS probe is the authority on
// whether a name resolves.
func validIdentifier(id string) bool {
	if net.ParseIP(id) != nil {
		return true
	}
	if len(id) > 253 {
		return false
	}
	for _, label := range strings.Split(id, ".") {
		if label == "" || len(label) > 63 {
			return false
		}
		for _, r := range label {
			if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
				return false
			}
		}
	}
	return true
}
