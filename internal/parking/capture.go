package parking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"parking-attendant/internal/logging"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

type CaptureState int

const (
	CaptureIdle CaptureState = iota
	CapturePreviewing
	CaptureCaptured
	CaptureCancelled
	CaptureFailed
)

func (s CaptureState) String() string {
	switch s {
	case CaptureIdle:
		return "idle"
	case CapturePreviewing:
		return "previewing"
	case CaptureCaptured:
		return "captured"
	case CaptureCancelled:
		return "cancelled"
	case CaptureFailed:
		return "failed"
	}
	return fmt.Sprintf("CaptureState(%d)", int(s))
}

type CaptureResult struct {
	State  CaptureState
	Frames int
	// RawText is the recognizer output before filtering.
	RawText    string
	Identifier string
}

// Capturer fills the form's entry field from a camera frame and text recognition.
type Capturer struct {
	camera      Camera
	recognizer  TextRecognizer
	form        *Form
	deviceIndex int
	keyWait     time.Duration
	telemetry   *TelemetryProvider

	captures metric.Int64Counter
}

func NewCapturer(camera Camera, recognizer TextRecognizer, form *Form, deviceIndex int, keyWait time.Duration, telemetry *TelemetryProvider) (*Capturer, error) {
	captures, err := telemetry.Meter().Int64Counter("identifier_captures_total",
		metric.WithDescription("Total number of identifier capture attempts by outcome"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	return &Capturer{
		camera:      camera,
		recognizer:  recognizer,
		form:        form,
		deviceIndex: deviceIndex,
		keyWait:     keyWait,
		telemetry:   telemetry,
		captures:    captures,
	}, nil
}

// Capture previews frames until a capture or cancel key arrives, then
// recognizes the captured frame. Every failure is reported through n.
func (c *Capturer) Capture(ctx context.Context, keys KeySource, preview PreviewSink, n Notifier) (*CaptureResult, error) {
	ctx, span := c.telemetry.Tracer().Start(ctx, "capture.identifier")
	defer span.End()

	result, err := c.capture(ctx, keys, preview, n)

	outcome := result.State.String()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		outcome = "failed"
	}
	span.SetAttributes(
		attribute.String("capture.state", result.State.String()),
		attribute.Int("capture.frames", result.Frames),
	)
	c.captures.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))

	return result, err
}

func (c *Capturer) capture(ctx context.Context, keys KeySource, preview PreviewSink, n Notifier) (*CaptureResult, error) {
	result := &CaptureResult{State: CaptureIdle}

	if c.camera == nil {
		result.State = CaptureFailed
		n.Notify(SeverityError, "Camera Error", "Cannot access the camera.")
		return result, fmt.Errorf("%w: no camera configured", ErrCameraUnavailable)
	}

	frame, err := c.preview(ctx, keys, preview, n, result)
	if err != nil {
		n.Notify(SeverityError, "Camera Error", cameraMessage(err))
		return result, err
	}
	if result.State != CaptureCaptured {
		return result, nil
	}

	identifier, err := c.recognize(ctx, frame, result)
	if err != nil {
		n.Notify(SeverityError, "OCR Error", fmt.Sprintf("Failed to perform OCR: %v", err))
		return result, err
	}
	if identifier == "" {
		n.Notify(SeverityWarning, "OCR Result", "Could not detect vehicle number. Please try again.")
		return result, fmt.Errorf("%w: no alphanumeric characters in %q", ErrOCRFailure, result.RawText)
	}

	result.Identifier = identifier
	c.form.EntryIdentifier = identifier
	n.Notify(SeverityInfo, "OCR Result", fmt.Sprintf("Detected Vehicle Number: %s", identifier))
	return result, nil
}

// preview runs the Previewing state. The camera is released before it returns.
func (c *Capturer) preview(ctx context.Context, keys KeySource, preview PreviewSink, n Notifier, result *CaptureResult) (Frame, error) {
	handle, err := c.camera.Open(ctx, c.deviceIndex)
	if err != nil {
		result.State = CaptureFailed
		return Frame{}, fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}
	defer func() {
		if err := handle.Release(); err != nil {
			logging.Warn(ctx).Err(err).Int("device", c.deviceIndex).Msg("release camera")
		}
	}()

	n.Notify(SeverityInfo, "Camera", "Press 's' to capture the vehicle number, 'q' to quit.")

	var frame Frame
	result.State = CapturePreviewing
	for result.State == CapturePreviewing {
		frame, err = handle.ReadFrame(ctx)
		if err != nil {
			result.State = CaptureFailed
			return Frame{}, fmt.Errorf("%w: %v", ErrCameraReadFailure, err)
		}
		result.Frames++
		if preview != nil {
			preview.Show(frame)
		}
		result.State = nextCaptureState(ctx, keys, c.keyWait)
	}

	return frame, nil
}

func nextCaptureState(ctx context.Context, keys KeySource, wait time.Duration) CaptureState {
	if ctx.Err() != nil {
		return CaptureCancelled
	}

	key, ok := keys.Poll(ctx, wait)
	if !ok {
		if ctx.Err() != nil {
			return CaptureCancelled
		}
		return CapturePreviewing
	}

	switch Key(unicode.ToLower(rune(key))) {
	case KeyCapture:
		return CaptureCaptured
	case KeyCancel:
		return CaptureCancelled
	}
	return CapturePreviewing
}

func (c *Capturer) recognize(ctx context.Context, frame Frame, result *CaptureResult) (string, error) {
	if c.recognizer == nil {
		return "", fmt.Errorf("%w: no text recognizer configured", ErrOCRFailure)
	}

	text, err := c.recognizer.RecognizeText(ctx, frame, OCRModeSingleLine)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOCRFailure, err)
	}

	result.RawText = text
	return FilterAlphanumeric(text), nil
}

// FilterAlphanumeric keeps only letters and digits.
func FilterAlphanumeric(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func cameraMessage(err error) string {
	if errors.Is(err, ErrCameraReadFailure) {
		return "Failed to capture image."
	}
	return "Cannot access the camera."
}
