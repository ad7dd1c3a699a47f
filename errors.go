package fat

import "errors"

// ErrDeviceReadOnly is the sentinel a BlockDevice implementation should wrap
// or return verbatim from WriteSectors when the underlying media rejects
// writes. The driver maps it to ErrReadOnly; any other non-nil error from
// the device surfaces as ErrDeviceError.
var ErrDeviceReadOnly = errors.New("fat: device is read-only")

// FSError is the error type returned by every driver entry point. It is a
// closed set mirroring the error taxonomy of the FAT driver: parameter
// validation, device I/O, boot-sector/volume classification, directory
// operations, allocation, and integrity violations.
type FSError uint8

const (
	ErrOK FSError = iota // success; the zero value

	ErrInvalidParam      // API precondition violated
	ErrNoMemory          // allocation failed
	ErrDeviceError       // block device reported non-zero
	ErrInvalidBootSector // signature/field check failed, mount aborts
	ErrUnsupportedFATType

	ErrNotFound
	ErrAlreadyExists
	ErrNotADirectory
	ErrIsADirectory
	ErrDirectoryNotEmpty

	ErrDiskFull
	ErrFileTooLarge

	ErrInvalidCluster
	ErrCorrupted

	ErrReadOnly
	ErrEOF
)

var errText = [...]string{
	ErrOK:                   "fat: ok",
	ErrInvalidParam:         "fat: invalid parameter",
	ErrNoMemory:             "fat: out of memory",
	ErrDeviceError:          "fat: device error",
	ErrInvalidBootSector:    "fat: invalid boot sector",
	ErrUnsupportedFATType:   "fat: unsupported FAT type",
	ErrNotFound:             "fat: not found",
	ErrAlreadyExists:        "fat: already exists",
	ErrNotADirectory:        "fat: not a directory",
	ErrIsADirectory:         "fat: is a directory",
	ErrDirectoryNotEmpty:    "fat: directory not empty",
	ErrDiskFull:             "fat: disk full",
	ErrFileTooLarge:         "fat: file too large",
	ErrInvalidCluster:       "fat: invalid cluster",
	ErrCorrupted:            "fat: filesystem corrupted",
	ErrReadOnly:             "fat: read-only",
	ErrEOF:                  "fat: end of file",
}

func (e FSError) Error() string {
	if int(e) < len(errText) && errText[e] != "" {
		return errText[e]
	}
	return "fat: unknown error"
}

// deviceError maps a BlockDevice error into the core's error taxonomy:
// a nil error is success, ErrDeviceReadOnly becomes ErrReadOnly, and any
// other non-nil error surfaces as the generic ErrDeviceError.
func deviceError(err error) FSError {
	switch {
	case err == nil:
		return ErrOK
	case errors.Is(err, ErrDeviceReadOnly):
		return ErrReadOnly
	default:
		return ErrDeviceError
	}
}
