package parking

import "errors"

var (
	ErrEmptyInput        = errors.New("vehicle number is empty")
	ErrAlreadyOpen       = errors.New("vehicle is already in the parking lot")
	ErrNotFound          = errors.New("vehicle is not found in the parking lot")
	ErrBarcode           = errors.New("barcode generation failed")
	ErrCameraUnavailable = errors.New("camera unavailable")
	ErrCameraReadFailure = errors.New("camera read failed")
	ErrOCRFailure        = errors.New("vehicle number recognition failed")
)
