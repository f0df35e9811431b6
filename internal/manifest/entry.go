package manifest

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Entry is the identity parsed out of an FFI filename, e.g.
//
//	tess2019112060037-s0011-1-1-0143-s_ffic.fits
//
// parts: tess + YYYYDDDHHMMSS stamp, zero-padded sector, camera, chip,
// spacecraft configuration ID, product suffix. It exists only long enough
// to derive the destination path.
type Entry struct {
	FileName string
	Sector   int
	Year     int
	Num      int // day of year
	Camera   int
	Chip     int
	CCD      string
}

// ParseFileName splits an FFI filename into its fixed-position fields.
func ParseFileName(name string) (Entry, error) {
	parts := strings.Split(name, "-")
	if len(parts) != 6 {
		return Entry{}, fmt.Errorf("unexpected filename shape: %q", name)
	}

	stamp := parts[0]
	if !strings.HasPrefix(stamp, "tess") || len(stamp) < 11 {
		return Entry{}, fmt.Errorf("bad timestamp field in %q", name)
	}

	year, err := strconv.Atoi(stamp[4:8])
	if err != nil {
		return Entry{}, fmt.Errorf("bad year in %q", name)
	}
	num, err := strconv.Atoi(stamp[8:11])
	if err != nil {
		return Entry{}, fmt.Errorf("bad day-of-year in %q", name)
	}

	if len(parts[1]) != 5 || parts[1][0] != 's' {
		return Entry{}, fmt.Errorf("bad sector field in %q", name)
	}
	sector, err := strconv.Atoi(parts[1][1:])
	if err != nil {
		return Entry{}, fmt.Errorf("bad sector field in %q", name)
	}

	camera, err := detectorDigit(parts[2])
	if err != nil {
		return Entry{}, fmt.Errorf("bad camera field in %q", name)
	}
	chip, err := detectorDigit(parts[3])
	if err != nil {
		return Entry{}, fmt.Errorf("bad chip field in %q", name)
	}

	ccd := parts[4]
	if len(ccd) != 4 {
		return Entry{}, fmt.Errorf("bad ccd field in %q", name)
	}

	return Entry{
		FileName: name,
		Sector:   sector,
		Year:     year,
		Num:      num,
		Camera:   camera,
		Chip:     chip,
		CCD:      ccd,
	}, nil
}

// DestPath lays the file out as
// {outdir}/tess/ffi/{SSSS}/{year}/{num}/{camera}-{ccd}/{filename}.
// Other tooling indexes by this exact structure, so it never changes
// shape.
func (e Entry) DestPath(outDir string) string {
	return filepath.Join(
		outDir,
		"tess", "ffi",
		fmt.Sprintf("%04d", e.Sector),
		fmt.Sprintf("%04d", e.Year),
		fmt.Sprintf("%03d", e.Num),
		fmt.Sprintf("%d-%s", e.Camera, e.CCD),
		e.FileName,
	)
}

func detectorDigit(s string) (int, error) {
	if len(s) != 1 {
		return 0, fmt.Errorf("not a single digit: %q", s)
	}
	n := int(s[0] - '0')
	if n < 1 || n > 4 {
		return 0, fmt.Errorf("digit %q out of range", s)
	}
	return n, nil
}
