package fits

import (
	"fmt"

	"github.com/spf13/afero"
)

// ValidateFile opens path on fs and deep-parses it. The HDU count is
// returned so callers can report what they checked.
func ValidateFile(fs afero.Fs, path string) (int, error) {
	f, err := fs.Open(path)
	if err != nil {
		return 0, fmt.Errorf("could not open %s: %w", path, err)
	}
	defer f.Close()

	return Validate(f)
}
