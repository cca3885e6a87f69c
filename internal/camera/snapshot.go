// Package camera reads still frames from IP cameras and image files.
package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"parking-attendant/internal/parking"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ChannelPlaceholder in a snapshot URL is replaced by deviceIndex+1.
const ChannelPlaceholder = "{channel}"

var errReleased = errors.New("camera handle released")

// SnapshotCamera polls an HTTP still-image endpoint, e.g. a Hikvision
// http://host/ISAPI/Streaming/channels/{channel}01/picture.
type SnapshotCamera struct {
	urlTemplate string
	username    string
	password    string
	client      *http.Client
}

func NewSnapshotCamera(urlTemplate, username, password string, timeout time.Duration) *SnapshotCamera {
	return &SnapshotCamera{
		urlTemplate: urlTemplate,
		username:    username,
		password:    password,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
	}
}

// Open probes the endpoint once so an unreachable camera fails before any preview.
func (c *SnapshotCamera) Open(ctx context.Context, deviceIndex int) (parking.CameraHandle, error) {
	if deviceIndex < 0 {
		return nil, fmt.Errorf("invalid device index %d", deviceIndex)
	}

	h := &snapshotHandle{
		camera: c,
		url:    strings.ReplaceAll(c.urlTemplate, ChannelPlaceholder, strconv.Itoa(deviceIndex+1)),
	}
	if _, err := h.ReadFrame(ctx); err != nil {
		return nil, err
	}
	return h, nil
}

type snapshotHandle struct {
	camera *SnapshotCamera
	url    string

	mu       sync.Mutex
	released bool
}

func (h *snapshotHandle) ReadFrame(ctx context.Context) (parking.Frame, error) {
	h.mu.Lock()
	released := h.released
	h.mu.Unlock()
	if released {
		return parking.Frame{}, errReleased
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return parking.Frame{}, err
	}
	if h.camera.username != "" {
		req.SetBasicAuth(h.camera.username, h.camera.password)
	}

	resp, err := h.camera.client.Do(req)
	if err != nil {
		return parking.Frame{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return parking.Frame{}, fmt.Errorf("snapshot %s: status %d", h.url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return parking.Frame{}, err
	}
	if len(data) == 0 {
		return parking.Frame{}, fmt.Errorf("snapshot %s: empty image", h.url)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return parking.Frame{
		Data:        data,
		ContentType: contentType,
		CapturedAt:  time.Now(),
	}, nil
}

func (h *snapshotHandle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return nil
	}
	h.released = true
	h.camera.client.CloseIdleConnections()
	return nil
}
