package domain

import "errors"

// ErrManifestFetch indicates the sector manifest could not be retrieved.
// Fatal: the whole run aborts before any worker starts.
var ErrManifestFetch = errors.New("manifest fetch failed")

// ErrInvalidSelector indicates a camera or chip outside [1,4].
var ErrInvalidSelector = errors.New("invalid selector")

// ErrItemFetch indicates a network or HTTP failure fetching one file's
// bytes. Per-item terminal: the item fails, other items keep running.
var ErrItemFetch = errors.New("file fetch failed")
