package domain

import "fmt"

// Selector narrows a sector manifest down to one camera and/or chip.
// Camera and Chip are optional; zero means "any".
type Selector struct {
	Sector int
	Camera int
	Chip   int
}

// Validate rejects out-of-range detector identifiers before any network
// activity happens.
func (s Selector) Validate() error {
	if s.Sector <= 0 {
		return fmt.Errorf("%w: sector must be positive, got %d", ErrInvalidSelector, s.Sector)
	}
	if s.Camera != 0 && (s.Camera < 1 || s.Camera > 4) {
		return fmt.Errorf("%w: camera %d", ErrInvalidSelector, s.Camera)
	}
	if s.Chip != 0 && (s.Chip < 1 || s.Chip > 4) {
		return fmt.Errorf("%w: chip %d", ErrInvalidSelector, s.Chip)
	}
	return nil
}
