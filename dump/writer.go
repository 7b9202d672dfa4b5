package dump

import (
	"os"
	"path/filepath"

	"github.com/bjoeris/renderdoc-sub003/formats"
	"github.com/bjoeris/renderdoc-sub003/transfer"
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

// ManifestName is the file WriteManifest writes inside the output directory
const ManifestName = "manifest.json"

// Entry describes one file a Writer produced
type Entry struct {
	Path   string
	Label  string
	Format core1_0.Format
	Aspect core1_0.ImageAspectFlags
	Width  int
	Height int
	// Converted is false when only the raw sidecar could be written
	Converted bool
}

// Writer writes read-back images into one directory and remembers what it wrote
type Writer struct {
	logger     *slog.Logger
	dir        string
	dirCreated bool
	entries    []Entry
}

func NewWriter(logger *slog.Logger, dir string) *Writer {
	return &Writer{
		logger: logger,
		dir:    NormalizePath(dir),
	}
}

func (w *Writer) Dir() string { return w.dir }

func (w *Writer) Entries() []Entry { return slices.Clone(w.entries) }

// ensureDir creates the output directory before the first file is written into it
func (w *Writer) ensureDir() error {
	if w.dirCreated {
		return nil
	}

	err := CreateDir(w.dir)
	if err != nil {
		return errors.Wrapf(err, "failed to create output directory %s", w.dir)
	}

	w.dirCreated = true
	return nil
}

// subresourceBytes finds mip 0, layer 0 of aspect in a buffer laid out by
// transfer.BuildImageRegions
func subresourceBytes(info transfer.ImageInfo, aspect core1_0.ImageAspectFlags, data []byte) ([]byte, bool) {
	regions, _ := transfer.BuildImageRegions(info)
	for _, region := range regions {
		subresource := region.ImageSubresource
		if subresource.AspectMask != aspect || subresource.MipLevel != 0 || subresource.BaseArrayLayer != 0 {
			continue
		}

		size := formats.ByteSize(info.Format, aspect, info.Extent.Width, info.Extent.Height, 1)
		end := uint64(region.BufferOffset) + size
		if end > uint64(len(data)) {
			return nil, false
		}
		return data[region.BufferOffset:end], true
	}
	return nil, false
}

// WriteReadback writes the first subresource of an image read back by
// transfer.Copier.ImageToBuffer. name is the file name inside the writer's directory; depth
// and stencil images additionally get _DEPTH and _STENCIL files. Formats that cannot be
// converted for viewing are written as raw sidecars only.
func (w *Writer) WriteReadback(name, label string, info transfer.ImageInfo, data []byte) error {
	path := filepath.Join(w.dir, name)
	width, height := info.Extent.Width, info.Extent.Height

	aspects := formats.DecomposeAspects(info.Format)
	if len(aspects) == 0 {
		return errors.Newf("%s: image format %d has no aspects", label, int(info.Format))
	}

	type output struct {
		path   string
		aspect core1_0.ImageAspectFlags
		texels []byte
		raw    []byte
	}

	first, ok := subresourceBytes(info, aspects[0], data)
	if !ok {
		return errors.Newf("%s: readback of %d bytes is too short", label, len(data))
	}

	err := w.ensureDir()
	if err != nil {
		return err
	}

	// The base file shows the first aspect, with every read back byte in its sidecar
	outputs := []output{{path: path, aspect: aspects[0], texels: first, raw: data}}
	if aspects[0] == core1_0.ImageAspectColor {
		outputs[0].raw = first
	}

	if len(aspects) > 1 {
		stencil, ok := subresourceBytes(info, core1_0.ImageAspectStencil, data)
		if !ok {
			return errors.Newf("%s: readback of %d bytes is too short", label, len(data))
		}

		depthPath, stencilPath := DepthStencilPaths(path)
		outputs = append(outputs,
			output{path: depthPath, aspect: core1_0.ImageAspectDepth, texels: first, raw: first},
			output{path: stencilPath, aspect: core1_0.ImageAspectStencil, texels: stencil, raw: stencil},
		)
	}

	for _, out := range outputs {
		entry := Entry{
			Path:   out.path,
			Label:  label,
			Format: info.Format,
			Aspect: out.aspect,
			Width:  width,
			Height: height,
		}

		rgb, err := ConvertToRGB(info.Format, out.aspect, out.texels, width, height)
		if errors.Is(err, UnsupportedFormatError) {
			w.logger.Warn("image cannot be converted for viewing, writing raw bytes only",
				slog.String("image", label),
				slog.Int("format", int(info.Format)),
			)

			err = os.WriteFile(out.path+RawExtension, out.raw, 0644)
			if err != nil {
				return errors.Wrapf(err, "failed to write %s", out.path+RawExtension)
			}
			w.entries = append(w.entries, entry)
			continue
		}
		if err != nil {
			return errors.Wrap(err, label)
		}

		err = WriteImage(out.path, width, height, rgb, out.raw)
		if err != nil {
			return err
		}

		entry.Converted = true
		w.entries = append(w.entries, entry)
		w.logger.Debug("wrote image", slog.String("path", out.path))
	}

	return nil
}

// WriteManifest writes a JSON list of every file written so far to ManifestName inside the
// writer's directory, tagged with the present index it was captured at
func (w *Writer) WriteManifest(frameIndex int) (string, error) {
	writer := jwriter.NewWriter()

	obj := writer.Object()
	obj.Name("Frame").Int(frameIndex)

	images := obj.Name("Images").Array()
	for _, entry := range w.entries {
		image := images.Object()
		image.Name("Path").String(entry.Path)
		image.Name("Label").String(entry.Label)
		image.Name("Format").Int(int(entry.Format))
		image.Name("Aspect").Int(int(entry.Aspect))
		image.Name("Width").Int(entry.Width)
		image.Name("Height").Int(entry.Height)
		image.Name("Converted").Bool(entry.Converted)
		image.End()
	}
	images.End()
	obj.End()

	if err := writer.Error(); err != nil {
		return "", errors.Wrap(err, "failed to build manifest")
	}

	err := w.ensureDir()
	if err != nil {
		return "", err
	}

	path := filepath.Join(w.dir, ManifestName)
	err = os.WriteFile(path, writer.Bytes(), 0644)
	if err != nil {
		return "", errors.Wrapf(err, "failed to write %s", path)
	}
	return path, nil
}
