package parking

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureFillsEntryField(t *testing.T) {
	td := newTestDesk(t)
	td.camera.frames = []Frame{{Data: []byte("f1")}, {Data: []byte("f2")}, {Data: []byte("f3")}}
	td.recognizer.text = " B 1234-XYZ\n"
	keys := pressAfter(2, KeyCapture)
	preview := &recordingPreview{}
	notes := &NotificationBuffer{}

	result, err := td.desk.CaptureIdentifier(context.Background(), keys, preview, notes)
	require.NoError(t, err)

	assert.Equal(t, CaptureCaptured, result.State)
	assert.Equal(t, 3, result.Frames)
	assert.Equal(t, "B1234XYZ", result.Identifier)
	assert.Equal(t, " B 1234-XYZ\n", result.RawText)
	assert.Equal(t, "B1234XYZ", td.desk.Snapshot().EntryIdentifier)

	assert.Len(t, preview.frames, 3)
	require.Len(t, td.recognizer.frames, 1)
	assert.Equal(t, []byte("f3"), td.recognizer.frames[0].Data, "the frame shown when the key arrived is recognized")
	assert.Equal(t, []OCRMode{OCRModeSingleLine}, td.recognizer.modes)
	assert.True(t, td.camera.handle.released)
	assert.Equal(t, 3, keys.polls, "one key check per frame")

	note, _ := notes.Last()
	assert.Equal(t, Notification{SeverityInfo, "OCR Result", "Detected Vehicle Number: B1234XYZ"}, note)
	assert.Equal(t, 0, td.registry.Len(), "capture never opens a session")
}

func TestCaptureThenEnter(t *testing.T) {
	td := newTestDesk(t)
	td.recognizer.text = "B1234XYZ"
	ctx := context.Background()

	_, err := td.desk.CaptureIdentifier(ctx, pressAfter(0, KeyCapture), nil, &NotificationBuffer{})
	require.NoError(t, err)

	_, err = td.desk.SubmitEntry(ctx, "", &NotificationBuffer{})
	require.NoError(t, err)
	assert.True(t, td.registry.IsOpen(ctx, "B1234XYZ"))
}

func TestCaptureUppercaseKey(t *testing.T) {
	td := newTestDesk(t)
	td.recognizer.text = "AB12"

	result, err := td.desk.CaptureIdentifier(context.Background(), pressAfter(0, Key('S')), nil, &NotificationBuffer{})
	require.NoError(t, err)
	assert.Equal(t, CaptureCaptured, result.State)
}

func TestCaptureCancel(t *testing.T) {
	td := newTestDesk(t)
	td.form.EntryIdentifier = "TYPED"
	notes := &NotificationBuffer{}

	result, err := td.desk.CaptureIdentifier(context.Background(), pressAfter(4, KeyCancel), nil, notes)
	require.NoError(t, err)

	assert.Equal(t, CaptureCancelled, result.State)
	assert.Equal(t, 5, result.Frames)
	assert.Empty(t, td.recognizer.frames)
	assert.True(t, td.camera.handle.released)
	assert.Equal(t, "TYPED", td.desk.Snapshot().EntryIdentifier)
	assert.Len(t, notes.Notifications(), 1, "only the instructions are shown")
}

func TestCaptureIgnoresOtherKeys(t *testing.T) {
	td := newTestDesk(t)
	keys := &scriptedKeys{presses: []keyPress{{key: 'x', ok: true}, {key: KeyCancel, ok: true}}}

	result, err := td.desk.CaptureIdentifier(context.Background(), keys, nil, &NotificationBuffer{})
	require.NoError(t, err)

	assert.Equal(t, CaptureCancelled, result.State)
	assert.Equal(t, 2, result.Frames)
}

func TestCaptureContextCancelled(t *testing.T) {
	td := newTestDesk(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := td.desk.CaptureIdentifier(ctx, &scriptedKeys{}, nil, &NotificationBuffer{})
	require.NoError(t, err)

	assert.Equal(t, CaptureCancelled, result.State)
	assert.True(t, td.camera.handle.released)
}

func TestCaptureCameraUnavailable(t *testing.T) {
	td := newTestDesk(t)
	td.camera.openErr = errors.New("no such device")
	keys := &scriptedKeys{}
	notes := &NotificationBuffer{}

	result, err := td.desk.CaptureIdentifier(context.Background(), keys, nil, notes)

	assert.ErrorIs(t, err, ErrCameraUnavailable)
	assert.Equal(t, CaptureFailed, result.State)
	assert.Equal(t, 0, result.Frames)
	assert.Equal(t, 0, keys.polls, "no loop is entered")
	assert.Equal(t, []Notification{{SeverityError, "Camera Error", "Cannot access the camera."}}, notes.Notifications())
}

func TestCaptureWithoutCamera(t *testing.T) {
	td := newTestDesk(t)
	td.capturer.camera = nil

	_, err := td.desk.CaptureIdentifier(context.Background(), &scriptedKeys{}, nil, &NotificationBuffer{})

	assert.ErrorIs(t, err, ErrCameraUnavailable)
}

func TestCaptureReadFailure(t *testing.T) {
	td := newTestDesk(t)
	td.camera.readErrAt = 3
	notes := &NotificationBuffer{}

	result, err := td.desk.CaptureIdentifier(context.Background(), &scriptedKeys{}, nil, notes)

	assert.ErrorIs(t, err, ErrCameraReadFailure)
	assert.Equal(t, CaptureFailed, result.State)
	assert.Equal(t, 2, result.Frames)
	assert.True(t, td.camera.handle.released)
	note, _ := notes.Last()
	assert.Equal(t, Notification{SeverityError, "Camera Error", "Failed to capture image."}, note)
}

func TestCaptureRecognizerError(t *testing.T) {
	td := newTestDesk(t)
	td.recognizer.err = errors.New("tesseract not installed")
	notes := &NotificationBuffer{}

	_, err := td.desk.CaptureIdentifier(context.Background(), pressAfter(0, KeyCapture), nil, notes)

	assert.ErrorIs(t, err, ErrOCRFailure)
	assert.True(t, td.camera.handle.released)
	note, _ := notes.Last()
	assert.Equal(t, SeverityError, note.Severity)
	assert.Equal(t, "OCR Error", note.Title)
	assert.Contains(t, note.Message, "tesseract not installed")
	assert.Empty(t, td.desk.Snapshot().EntryIdentifier)
}

func TestCaptureNothingRecognized(t *testing.T) {
	td := newTestDesk(t)
	td.form.EntryIdentifier = "TYPED"
	td.recognizer.text = " -- \n"
	notes := &NotificationBuffer{}

	_, err := td.desk.CaptureIdentifier(context.Background(), pressAfter(0, KeyCapture), nil, notes)

	assert.ErrorIs(t, err, ErrOCRFailure)
	assert.Equal(t, "TYPED", td.desk.Snapshot().EntryIdentifier)
	note, _ := notes.Last()
	assert.Equal(t, Notification{SeverityWarning, "OCR Result", "Could not detect vehicle number. Please try again."}, note)
}

func TestCaptureCountsOutcomes(t *testing.T) {
	td := newTestDesk(t)
	td.recognizer.text = "AB12"
	ctx := context.Background()

	_, _ = td.desk.CaptureIdentifier(ctx, pressAfter(0, KeyCapture), nil, &NotificationBuffer{})
	_, _ = td.desk.CaptureIdentifier(ctx, pressAfter(0, KeyCancel), nil, &NotificationBuffer{})

	assert.Equal(t, int64(2), collectInt64Sum(t, td.reader, "identifier_captures_total"))
	assert.Contains(t, spanNames(td.exporter), "capture.identifier")
}

func TestFilterAlphanumeric(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"B 1234 XYZ", "B1234XYZ"},
		{"b-1234.xyz\n", "b1234xyz"},
		{"  \t\n", ""},
		{"ÄB12", "ÄB12"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FilterAlphanumeric(tt.input), "input %q", tt.input)
	}
}

func TestFilterAlphanumericIdempotent(t *testing.T) {
	inputs := []string{"B 1234 XYZ", "!!@@##", "12\n34", "Ä-ß_ç", "", "日本 123"}

	for _, in := range inputs {
		once := FilterAlphanumeric(in)
		assert.Equal(t, once, FilterAlphanumeric(once), "input %q", in)
	}
}

func TestCaptureStateString(t *testing.T) {
	assert.Equal(t, "idle", CaptureIdle.String())
	assert.Equal(t, "previewing", CapturePreviewing.String())
	assert.Equal(t, "captured", CaptureCaptured.String())
	assert.Equal(t, "cancelled", CaptureCancelled.String())
	assert.Equal(t, "failed", CaptureFailed.String())
}
