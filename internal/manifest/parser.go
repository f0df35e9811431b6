// Package manifest turns a sector's bulk-download script into typed work
// items. The script is line oriented: comment lines start with '#', and
// each entry line ends in the destination filename followed by the source
// URL.
package manifest

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/astrodl/ffibulk/internal/domain"
)

// filterPattern builds the selector regexp matched anywhere in a line.
// Unset camera/chip positions accept any detector digit.
func filterPattern(sel domain.Selector) *regexp.Regexp {
	camera := "[1-4]"
	if sel.Camera != 0 {
		camera = fmt.Sprintf("%d", sel.Camera)
	}
	chip := "[1-4]"
	if sel.Chip != 0 {
		chip = fmt.Sprintf("%d", sel.Chip)
	}

	return regexp.MustCompile(fmt.Sprintf(`-s%04d-%s-%s-`, sel.Sector, camera, chip))
}

// Parse reads the manifest text and returns, in manifest order, one
// WorkItem per line matching the selector. Comment lines and lines that
// do not look like entries are skipped, never errored: a sector script
// routinely carries shell boilerplate around the transfer lines.
func Parse(r io.Reader, outDir string, sel domain.Selector) ([]domain.WorkItem, error) {
	pattern := filterPattern(sel)

	var items []domain.WorkItem

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if !pattern.MatchString(line) {
			continue
		}

		tokens := strings.Fields(line)
		if len(tokens) < 2 {
			continue
		}

		fileName := tokens[len(tokens)-2]
		sourceURL := tokens[len(tokens)-1]

		entry, err := ParseFileName(fileName)
		if err != nil {
			continue
		}

		items = append(items, domain.WorkItem{
			SourceURL: sourceURL,
			DestPath:  entry.DestPath(outDir),
			FileName:  fileName,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	return items, nil
}
