// Package fits deep-parses FITS containers to decide whether a downloaded
// blob survived transfer intact. A truncated or corrupted transfer often
// still "opens" fine; it only falls apart once every HDU's header and data
// extent are actually walked, so that is exactly what Validate does. Any
// inconsistency the format can signal is promoted to a hard failure.
package fits

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	blockSize     = 2880
	cardSize      = 80
	cardsPerBlock = blockSize / cardSize

	// maxHeaderBlocks caps a single header at ~64MB of cards. Real FFI
	// headers are a handful of blocks; anything bigger is garbage input.
	maxHeaderBlocks = 23000
)

// ValidationError reports why a container failed the deep parse and in
// which HDU the damage was found.
type ValidationError struct {
	HDU    int
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("fits: hdu %d: %s", e.HDU, e.Reason)
}

func failf(hdu int, format string, v ...any) error {
	return &ValidationError{HDU: hdu, Reason: fmt.Sprintf(format, v...)}
}

// header holds the handful of keywords needed to size an HDU.
type header struct {
	primary bool
	bitpix  int
	naxis   int
	axes    []int64
	pcount  int64
	gcount  int64
}

// Validate walks every HDU in the stream, parsing each header in full and
// skipping over its data segment. It returns the number of HDUs on
// success; any structural defect (bad card, missing required keyword,
// truncated data, trailing junk) comes back as a *ValidationError.
func Validate(r io.Reader) (int, error) {
	br := bufio.NewReaderSize(r, blockSize)

	for hdu := 0; ; hdu++ {
		// Check whether another HDU starts here or the stream is done.
		if _, err := br.Peek(1); err == io.EOF {
			if hdu == 0 {
				return 0, failf(0, "empty file")
			}
			return hdu, nil
		}

		h, err := readHeader(br, hdu)
		if err != nil {
			return hdu, err
		}

		if err := skipData(br, h, hdu); err != nil {
			return hdu, err
		}
	}
}

// readHeader consumes 2880-byte blocks until the END card, validating
// every card on the way and collecting the sizing keywords.
func readHeader(br *bufio.Reader, hdu int) (*header, error) {
	h := &header{primary: hdu == 0, gcount: 1}

	seen := map[string]bool{}
	block := make([]byte, blockSize)
	ended := false

	for blocks := 0; !ended; blocks++ {
		if blocks >= maxHeaderBlocks {
			return nil, failf(hdu, "header exceeds %d blocks without END", maxHeaderBlocks)
		}

		if _, err := io.ReadFull(br, block); err != nil {
			return nil, failf(hdu, "truncated header: %v", err)
		}

		for i := 0; i < cardsPerBlock; i++ {
			card := block[i*cardSize : (i+1)*cardSize]

			for _, b := range card {
				if b < 0x20 || b > 0x7e {
					return nil, failf(hdu, "non-ASCII byte 0x%02x in header card %d", b, blocks*cardsPerBlock+i)
				}
			}

			keyword := strings.TrimRight(string(card[:8]), " ")

			if blocks == 0 && i == 0 {
				if err := checkFirstCard(h, keyword, card, hdu); err != nil {
					return nil, err
				}
			}

			if keyword == "END" {
				ended = true
				continue
			}
			if ended {
				// Cards after END must be blank padding.
				if strings.TrimRight(string(card), " ") != "" {
					return nil, failf(hdu, "non-blank card after END")
				}
				continue
			}

			if err := recordKeyword(h, seen, keyword, card, hdu); err != nil {
				return nil, err
			}
		}
	}

	return h, h.check(seen, hdu)
}

func checkFirstCard(h *header, keyword string, card []byte, hdu int) error {
	if h.primary {
		if keyword != "SIMPLE" {
			return failf(hdu, "primary header does not begin with SIMPLE (got %q)", keyword)
		}
		v, err := cardValue(card)
		if err != nil || strings.TrimSpace(v) != "T" {
			return failf(hdu, "SIMPLE is not T")
		}
		return nil
	}
	if keyword != "XTENSION" {
		return failf(hdu, "extension header does not begin with XTENSION (got %q)", keyword)
	}
	return nil
}

// recordKeyword parses the keywords that size the HDU and flags malformed
// values on any of them.
func recordKeyword(h *header, seen map[string]bool, keyword string, card []byte, hdu int) error {
	switch {
	case keyword == "BITPIX":
		n, err := cardInt(card)
		if err != nil {
			return failf(hdu, "malformed BITPIX: %v", err)
		}
		switch n {
		case 8, 16, 32, 64, -32, -64:
			h.bitpix = n
		default:
			return failf(hdu, "invalid BITPIX %d", n)
		}
		seen["BITPIX"] = true

	case keyword == "NAXIS":
		n, err := cardInt(card)
		if err != nil {
			return failf(hdu, "malformed NAXIS: %v", err)
		}
		if n < 0 || n > 999 {
			return failf(hdu, "NAXIS %d out of range", n)
		}
		h.naxis = n
		h.axes = make([]int64, n)
		seen["NAXIS"] = true

	case strings.HasPrefix(keyword, "NAXIS") && len(keyword) > 5:
		idx, err := strconv.Atoi(keyword[5:])
		if err != nil || idx < 1 {
			return nil // e.g. NAXISA, some other keyword family
		}
		n, err := cardInt(card)
		if err != nil {
			return failf(hdu, "malformed %s: %v", keyword, err)
		}
		if n < 0 {
			return failf(hdu, "%s is negative", keyword)
		}
		if idx <= len(h.axes) {
			h.axes[idx-1] = int64(n)
			seen[keyword] = true
		}

	case keyword == "PCOUNT":
		n, err := cardInt(card)
		if err != nil {
			return failf(hdu, "malformed PCOUNT: %v", err)
		}
		if n < 0 {
			return failf(hdu, "PCOUNT is negative")
		}
		h.pcount = int64(n)
		seen["PCOUNT"] = true

	case keyword == "GCOUNT":
		n, err := cardInt(card)
		if err != nil {
			return failf(hdu, "malformed GCOUNT: %v", err)
		}
		if n < 1 {
			return failf(hdu, "GCOUNT %d out of range", n)
		}
		h.gcount = int64(n)
		seen["GCOUNT"] = true
	}

	return nil
}

// check enforces the required keyword set once END was reached.
func (h *header) check(seen map[string]bool, hdu int) error {
	if !seen["BITPIX"] {
		return failf(hdu, "missing BITPIX")
	}
	if !seen["NAXIS"] {
		return failf(hdu, "missing NAXIS")
	}
	for i := 1; i <= h.naxis; i++ {
		if !seen[fmt.Sprintf("NAXIS%d", i)] {
			return failf(hdu, "missing NAXIS%d", i)
		}
	}
	if !h.primary {
		if !seen["PCOUNT"] {
			return failf(hdu, "extension missing PCOUNT")
		}
		if !seen["GCOUNT"] {
			return failf(hdu, "extension missing GCOUNT")
		}
	}
	return nil
}

// maxDataElems bounds the element count of a single HDU so the size
// arithmetic below cannot overflow int64. Real FFI data runs megabytes;
// axis values whose product lands beyond this are corrupt headers.
const maxDataElems = int64(1) << 50

// dataSize computes the byte length of the HDU's data segment per the
// FITS sizing rule. Primary HDUs have no PCOUNT/GCOUNT contribution.
// A negative return means the axis values multiply out past any sane
// size; callers report that as corruption rather than skipping nothing.
func (h *header) dataSize() int64 {
	if h.naxis == 0 {
		return 0
	}

	elems := int64(1)
	for _, ax := range h.axes {
		if ax == 0 {
			return 0
		}
		if elems > maxDataElems/ax {
			return -1
		}
		elems *= ax
	}

	bytesPerElem := int64(h.bitpix)
	if bytesPerElem < 0 {
		bytesPerElem = -bytesPerElem
	}
	bytesPerElem /= 8

	groups := elems
	if !h.primary {
		if h.pcount > maxDataElems {
			return -1
		}
		groups = h.pcount + elems
		if groups > maxDataElems/h.gcount {
			return -1
		}
		groups *= h.gcount
	}

	// groups <= maxDataElems and bytesPerElem <= 8, so this cannot wrap.
	return groups * bytesPerElem
}

// skipData discards the data segment plus its padding, treating a short
// read as transfer truncation.
func skipData(br *bufio.Reader, h *header, hdu int) error {
	size := h.dataSize()
	if size < 0 {
		return failf(hdu, "data size exceeds supported bounds (corrupt axis values)")
	}
	if size == 0 {
		return nil
	}

	padded := (size + blockSize - 1) / blockSize * blockSize

	n, err := io.CopyN(io.Discard, br, padded)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return failf(hdu, "data truncated: expected %d bytes, found %d", padded, n)
		}
		return failf(hdu, "reading data: %v", err)
	}
	return nil
}

// cardValue extracts the value field of a fixed-format card.
func cardValue(card []byte) (string, error) {
	if string(card[8:10]) != "= " {
		return "", fmt.Errorf("card has no value indicator")
	}
	val := string(card[10:])
	// Strip an inline comment, if any.
	if slash := strings.Index(val, "/"); slash >= 0 {
		val = val[:slash]
	}
	return strings.TrimSpace(val), nil
}

func cardInt(card []byte) (int, error) {
	v, err := cardValue(card)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", v)
	}
	return n, nil
}
