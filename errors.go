package bfieldmap

import "errors"

// Sentinel errors returned (wrapped) by the map readers. A map that failed
// to load is never returned to the caller.
var (
	// ErrFormat reports an unexpected section keyword, token or magic.
	ErrFormat = errors.New("bfieldmap: malformed map")
	// ErrVersion reports an unsupported FORMAT-VERSION or record version.
	ErrVersion = errors.New("bfieldmap: unsupported version")
	// ErrZoneMismatch reports a FIELD record whose zone id disagrees with the zone table.
	ErrZoneMismatch = errors.New("bfieldmap: zone id mismatch")
	// ErrPackedCodec reports an unrecognized symbol in the packed integer stream.
	ErrPackedCodec = errors.New("bfieldmap: packed codec")
	// ErrTableRange reports a zone slice that falls outside a shared table.
	ErrTableRange = errors.New("bfieldmap: table slice out of range")
	// ErrMesh reports a degenerate mesh found while building lookup tables.
	ErrMesh = errors.New("bfieldmap: invalid mesh")
	// ErrRecordSize reports a record larger than the declared buffer sizes.
	ErrRecordSize = errors.New("bfieldmap: record size")
)
