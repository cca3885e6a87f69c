package parking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var t0 = time.Date(2024, 3, 14, 9, 26, 53, 0, time.Local)

func newTestTelemetry(t *testing.T) (*TelemetryProvider, *tracetest.InMemoryExporter, *sdkmetric.ManualReader) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	telemetry := NewTelemetryProviderFromSDK("test", tp, mp)
	t.Cleanup(func() {
		_ = telemetry.Shutdown(context.Background())
	})
	return telemetry, exporter, reader
}

func collectInt64Sum(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func spanNames(exporter *tracetest.InMemoryExporter) []string {
	var names []string
	for _, s := range exporter.GetSpans() {
		names = append(names, s.Name)
	}
	return names
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeEncoder struct {
	img   []byte
	err   error
	calls []string
}

func (e *fakeEncoder) Encode(text string, symbology Symbology) ([]byte, error) {
	e.calls = append(e.calls, text)
	if e.err != nil {
		return nil, e.err
	}
	if symbology != Code128 {
		return nil, errors.New("unsupported symbology")
	}
	return e.img, nil
}

type fakeCamera struct {
	openErr error
	frames  []Frame
	// readErrAt fails the read with that 1-based index; 0 never fails.
	readErrAt int
	opened    int
	handle    *fakeHandle
}

func (c *fakeCamera) Open(_ context.Context, _ int) (CameraHandle, error) {
	c.opened++
	if c.openErr != nil {
		return nil, c.openErr
	}
	c.handle = &fakeHandle{camera: c}
	return c.handle, nil
}

type fakeHandle struct {
	camera   *fakeCamera
	reads    int
	released bool
}

func (h *fakeHandle) ReadFrame(_ context.Context) (Frame, error) {
	h.reads++
	if h.camera.readErrAt > 0 && h.reads >= h.camera.readErrAt {
		return Frame{}, errors.New("device disconnected")
	}
	if len(h.camera.frames) == 0 {
		return Frame{Data: []byte{byte(h.reads)}}, nil
	}
	return h.camera.frames[(h.reads-1)%len(h.camera.frames)], nil
}

func (h *fakeHandle) Release() error {
	h.released = true
	return nil
}

type fakeRecognizer struct {
	text   string
	err    error
	frames []Frame
	modes  []OCRMode
}

func (r *fakeRecognizer) RecognizeText(_ context.Context, frame Frame, mode OCRMode) (string, error) {
	r.frames = append(r.frames, frame)
	r.modes = append(r.modes, mode)
	return r.text, r.err
}

type keyPress struct {
	key Key
	ok  bool
}

// scriptedKeys answers polls in order, then reports no key.
type scriptedKeys struct {
	presses []keyPress
	polls   int
}

func (k *scriptedKeys) Poll(_ context.Context, _ time.Duration) (Key, bool) {
	k.polls++
	if len(k.presses) == 0 {
		return 0, false
	}
	p := k.presses[0]
	k.presses = k.presses[1:]
	return p.key, p.ok
}

func pressAfter(idle int, key Key) *scriptedKeys {
	keys := &scriptedKeys{}
	for i := 0; i < idle; i++ {
		keys.presses = append(keys.presses, keyPress{})
	}
	keys.presses = append(keys.presses, keyPress{key: key, ok: true})
	return keys
}

type recordingPreview struct {
	frames []Frame
}

func (p *recordingPreview) Show(frame Frame) {
	p.frames = append(p.frames, frame)
}

type recordingPublisher struct {
	entries []EntryEvent
	exits   []ExitEvent
	err     error
}

func (p *recordingPublisher) PublishEntry(_ context.Context, event EntryEvent) error {
	p.entries = append(p.entries, event)
	return p.err
}

func (p *recordingPublisher) PublishExit(_ context.Context, event ExitEvent) error {
	p.exits = append(p.exits, event)
	return p.err
}

type testDesk struct {
	desk       *Desk
	attendant  *Attendant
	capturer   *Capturer
	registry   *InstrumentedRegistry
	form       *Form
	clock      *fakeClock
	encoder    *fakeEncoder
	camera     *fakeCamera
	recognizer *fakeRecognizer
	publisher  *recordingPublisher
	exporter   *tracetest.InMemoryExporter
	reader     *sdkmetric.ManualReader
}

func newTestDesk(t *testing.T) *testDesk {
	t.Helper()
	telemetry, exporter, reader := newTestTelemetry(t)

	registry, err := NewInstrumentedRegistry(NewSessionRegistry(), telemetry)
	require.NoError(t, err)

	td := &testDesk{
		registry:   registry,
		form:       &Form{},
		clock:      &fakeClock{now: t0},
		encoder:    &fakeEncoder{img: []byte("png")},
		camera:     &fakeCamera{},
		recognizer: &fakeRecognizer{},
		publisher:  &recordingPublisher{},
		exporter:   exporter,
		reader:     reader,
	}

	td.attendant, err = NewAttendant(registry, NewFeeCalculator(DefaultBaseRate), NewTicketFormatter(td.encoder), td.form, telemetry,
		WithClock(td.clock.Now),
		WithEventPublisher(td.publisher),
	)
	require.NoError(t, err)

	td.capturer, err = NewCapturer(td.camera, td.recognizer, td.form, 0, time.Millisecond, telemetry)
	require.NoError(t, err)

	td.desk = NewDesk(td.attendant, td.capturer, registry, td.form)
	return td
}
