// Package testutils builds synthetic FITS containers and manifest text
// for tests.
package testutils

import (
	"bytes"
	"fmt"
	"testing"
)

const (
	fitsBlockSize = 2880
	fitsCardSize  = 80
)

// Card pads one header card to 80 bytes.
func Card(t *testing.T, s string) []byte {
	t.Helper()
	if len(s) > fitsCardSize {
		t.Fatalf("card longer than %d bytes: %q", fitsCardSize, s)
	}
	card := make([]byte, fitsCardSize)
	copy(card, s)
	for i := len(s); i < fitsCardSize; i++ {
		card[i] = ' '
	}
	return card
}

// Header assembles cards (END included by the caller) into 2880-byte
// header blocks.
func Header(t *testing.T, cards ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, c := range cards {
		buf.Write(Card(t, c))
	}
	for buf.Len()%fitsBlockSize != 0 {
		buf.Write(Card(t, ""))
	}
	return buf.Bytes()
}

// PadData pads a data segment to the 2880-byte boundary.
func PadData(data []byte) []byte {
	padded := (len(data) + fitsBlockSize - 1) / fitsBlockSize * fitsBlockSize
	out := make([]byte, padded)
	copy(out, data)
	return out
}

// MinimalFITS is a valid container with a single dataless primary HDU.
func MinimalFITS(t *testing.T) []byte {
	t.Helper()
	return Header(t,
		"SIMPLE  =                    T",
		"BITPIX  =                    8",
		"NAXIS   =                    0",
		"END",
	)
}

// ImageFITS is a valid container shaped like an FFI product: a dataless
// primary HDU followed by an image extension carrying a small 16-bit
// image.
func ImageFITS(t *testing.T, width, height int) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.Write(MinimalFITS(t))
	buf.Write(Header(t,
		"XTENSION= 'IMAGE   '",
		"BITPIX  =                   16",
		"NAXIS   =                    2",
		fmt.Sprintf("NAXIS1  = %20d", width),
		fmt.Sprintf("NAXIS2  = %20d", height),
		"PCOUNT  =                    0",
		"GCOUNT  =                    1",
		"END",
	))
	buf.Write(PadData(make([]byte, width*height*2)))
	return buf.Bytes()
}

// ManifestLine renders one curl invocation the way the sector scripts do.
func ManifestLine(fileName, url string) string {
	return fmt.Sprintf("curl -C - -L -o %s %s", fileName, url)
}

// FFIName builds an FFI filename from its identity fields.
func FFIName(stamp string, sector, camera, chip int, ccd string) string {
	return fmt.Sprintf("tess%s-s%04d-%d-%d-%s-s_ffic.fits", stamp, sector, camera, chip, ccd)
}
