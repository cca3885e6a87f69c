package parking

import (
	"context"
	"time"
)

type Symbology string

const Code128 Symbology = "code128"

// BarcodeEncoder renders text as a PNG barcode image.
type BarcodeEncoder interface {
	Encode(text string, symbology Symbology) ([]byte, error)
}

// Frame is one still image read from a camera.
type Frame struct {
	Data        []byte
	ContentType string
	CapturedAt  time.Time
}

type Camera interface {
	Open(ctx context.Context, deviceIndex int) (CameraHandle, error)
}

type CameraHandle interface {
	ReadFrame(ctx context.Context) (Frame, error)
	Release() error
}

// OCRMode follows tesseract page segmentation mode numbering.
type OCRMode int

const (
	OCRModeAuto       OCRMode = 3
	OCRModeSingleLine OCRMode = 7
)

type TextRecognizer interface {
	RecognizeText(ctx context.Context, frame Frame, mode OCRMode) (string, error)
}

type Key rune

const (
	KeyCapture Key = 's'
	KeyCancel  Key = 'q'
)

// KeySource reports at most one pending key, waiting up to wait for it.
type KeySource interface {
	Poll(ctx context.Context, wait time.Duration) (Key, bool)
}

type PreviewSink interface {
	Show(frame Frame)
}

type EventPublisher interface {
	PublishEntry(ctx context.Context, event EntryEvent) error
	PublishExit(ctx context.Context, event ExitEvent) error
}
