package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"parking-attendant/internal/parking"
)

type runFunc func(ctx context.Context, name string, args []string, stdin []byte) ([]byte, error)

// Tesseract runs the tesseract binary on a grayscale copy of the frame.
type Tesseract struct {
	path string
	run  runFunc
}

func NewTesseract(path string) *Tesseract {
	return &Tesseract{path: path, run: runCommand}
}

func (t *Tesseract) RecognizeText(ctx context.Context, frame parking.Frame, mode parking.OCRMode) (string, error) {
	gray, err := Grayscale(frame)
	if err != nil {
		return "", err
	}

	args := []string{"stdin", "stdout", "--psm", strconv.Itoa(int(mode))}
	out, err := t.run(ctx, t.path, args, gray)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func runCommand(ctx context.Context, name string, args []string, stdin []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}
