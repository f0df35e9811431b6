package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectorValidate(t *testing.T) {
	cases := []struct {
		name string
		sel  Selector
		ok   bool
	}{
		{"sector only", Selector{Sector: 4}, true},
		{"full selector", Selector{Sector: 4, Camera: 1, Chip: 4}, true},
		{"camera unset chip set", Selector{Sector: 4, Chip: 2}, true},
		{"zero sector", Selector{}, false},
		{"negative sector", Selector{Sector: -1}, false},
		{"camera too high", Selector{Sector: 4, Camera: 5}, false},
		{"camera negative", Selector{Sector: 4, Camera: -2}, false},
		{"chip too high", Selector{Sector: 4, Chip: 9}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.sel.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrInvalidSelector)
			}
		})
	}
}
