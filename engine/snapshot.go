package engine

import (
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pthm-cable/ember/params"
	"github.com/pthm-cable/ember/sim"
)

// SaveSnapshot writes the current frame as a PNG with a matching
// parameter preset beside it, returning the image path. Headless runs
// render the frame on demand.
func (e *Engine) SaveSnapshot() (string, error) {
	pix := e.lastPix
	if pix == nil {
		if e.kernelDirty {
			e.kernel = sim.BuildKernel(&e.rec)
			e.kernelDirty = false
		}
		e.pack()
		pix = e.renderer.Frame(e.field, &e.lastBlock)
	}

	dir := e.snapshotDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("engine: creating snapshot dir: %w", err)
	}

	w, h := e.renderer.Size()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i, p := range pix {
		o := i * 4
		img.Pix[o] = p.R
		img.Pix[o+1] = p.G
		img.Pix[o+2] = p.B
		img.Pix[o+3] = p.A
	}

	path := filepath.Join(dir, fmt.Sprintf("snapshot_%06d.png", e.frame))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("engine: creating snapshot: %w", err)
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return "", fmt.Errorf("engine: encoding snapshot: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("engine: writing snapshot: %w", err)
	}

	presetPath := strings.TrimSuffix(path, ".png") + ".yaml"
	if err := e.SavePreset(presetPath); err != nil {
		return path, err
	}

	slog.Info("snapshot saved", "path", path, "frame", e.frame)
	return path, nil
}

// SavePreset writes the live parameters and grid size as a preset. An
// empty path lands in the snapshot directory as preset.yaml.
func (e *Engine) SavePreset(path string) error {
	if path == "" {
		p, err := e.defaultPresetPath()
		if err != nil {
			return fmt.Errorf("engine: %w", err)
		}
		path = p
	}
	preset := params.Preset{Params: e.rec, GridSize: e.field.Size()}
	if err := preset.Save(path); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	slog.Info("preset saved", "path", path)
	return nil
}

// LoadPresetFile replaces the live parameters from a preset on disk. An
// empty path reads back the default preset location. A grid size in the
// preset resizes and reseeds the field.
func (e *Engine) LoadPresetFile(path string) error {
	if path == "" {
		p, err := e.defaultPresetPath()
		if err != nil {
			return fmt.Errorf("engine: %w", err)
		}
		path = p
	}
	preset, err := params.LoadPreset(path)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	avg := e.rec.GlobalAverage
	e.rec = preset.Params
	e.rec.GlobalAverage = avg
	e.kernelDirty = true

	if preset.GridSize > 0 && preset.GridSize != e.field.Size() {
		if err := e.ResizeGrid(preset.GridSize); err != nil {
			return err
		}
	}
	slog.Info("preset loaded", "path", path)
	return nil
}

func (e *Engine) defaultPresetPath() (string, error) {
	dir := e.snapshotDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return filepath.Join(dir, "preset.yaml"), nil
}
