package camera

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"parking-attendant/internal/parking"
)

// StillCamera serves the same image file as every frame. Useful on a bench
// without camera hardware.
type StillCamera struct {
	path string
}

func NewStillCamera(path string) *StillCamera {
	return &StillCamera{path: path}
}

func (c *StillCamera) Open(_ context.Context, deviceIndex int) (parking.CameraHandle, error) {
	if deviceIndex != 0 {
		return nil, fmt.Errorf("still camera has no device %d", deviceIndex)
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s is empty", c.path)
	}

	return &stillHandle{data: data, contentType: http.DetectContentType(data)}, nil
}

type stillHandle struct {
	data        []byte
	contentType string
	released    bool
}

func (h *stillHandle) ReadFrame(ctx context.Context) (parking.Frame, error) {
	if h.released {
		return parking.Frame{}, errReleased
	}
	if err := ctx.Err(); err != nil {
		return parking.Frame{}, err
	}

	data := make([]byte, len(h.data))
	copy(data, h.data)
	return parking.Frame{Data: data, ContentType: h.contentType, CapturedAt: time.Now()}, nil
}

func (h *stillHandle) Release() error {
	h.released = true
	return nil
}
