// Package dump writes diagnostic images to disk. Every image is written as a binary PPM for
// viewing plus a sidecar holding the unconverted bytes exactly as they were read back.
package dump

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/bjoeris/renderdoc-sub003/formats"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// RawExtension is appended to an image path to name its raw sidecar
const RawExtension = ".bin"

// UnsupportedFormatError is returned from ConvertToRGB for formats that cannot be turned into
// 8-bit RGB without a general pixel converter
var UnsupportedFormatError = errors.New("format cannot be converted to RGB")

// WriteImage writes rgb as a binary PPM to path and, when raw is not nil, raw to
// path + RawExtension
func WriteImage(path string, width, height int, rgb, raw []byte) error {
	if width <= 0 || height <= 0 {
		return errors.Newf("cannot write a %dx%d image", width, height)
	}
	if len(rgb) != width*height*3 {
		return errors.Newf("expected %d bytes of RGB data for a %dx%d image but got %d", width*height*3, width, height, len(rgb))
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}

	writer := bufio.NewWriter(file)
	_, err = fmt.Fprintf(writer, "P6\n%d %d\n255\n", width, height)
	if err == nil {
		_, err = writer.Write(rgb)
	}
	if err == nil {
		err = writer.Flush()
	}
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}

	if raw != nil {
		err = os.WriteFile(path+RawExtension, raw, 0644)
		if err != nil {
			return errors.Wrapf(err, "failed to write %s", path+RawExtension)
		}
	}

	return nil
}

// DepthStencilPaths returns the paths the depth and stencil parts of a depth/stencil image
// written to path are stored at: _DEPTH and _STENCIL inserted before the extension
func DepthStencilPaths(path string) (string, string) {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return base + "_DEPTH" + ext, base + "_STENCIL" + ext
}

// ConvertToRGB converts width x height texels of one aspect of format to 8-bit RGB. 8-bit
// RGBA and BGRA color is reordered, depth and stencil become gray.
func ConvertToRGB(format core1_0.Format, aspect core1_0.ImageAspectFlags, data []byte, width, height int) ([]byte, error) {
	info, ok := formats.Lookup(format)
	if !ok {
		return nil, errors.Wrapf(UnsupportedFormatError, "unknown format %d", int(format))
	}

	texelBytes := formats.BlockBytes(format, aspect)
	if texelBytes == 0 || info.Compressed() {
		return nil, errors.Wrapf(UnsupportedFormatError, "%s, aspect %d", info, int(aspect))
	}

	count := width * height
	if len(data) < count*texelBytes {
		return nil, errors.Newf("expected %d bytes for %dx%d texels but got %d", count*texelBytes, width, height, len(data))
	}

	var texel func(src []byte, dst []byte)

	switch aspect {
	case core1_0.ImageAspectColor:
		switch info.Order {
		case formats.OrderRGBA8:
			texel = func(src, dst []byte) { dst[0], dst[1], dst[2] = src[0], src[1], src[2] }
		case formats.OrderBGRA8:
			texel = func(src, dst []byte) { dst[0], dst[1], dst[2] = src[2], src[1], src[0] }
		}
	case core1_0.ImageAspectDepth:
		switch info.Depth {
		case formats.DepthUnorm16:
			texel = func(src, dst []byte) { gray(dst, src[1]) }
		case formats.DepthUnorm24:
			// The depth value sits in the low 24 bits of a little-endian word
			texel = func(src, dst []byte) { gray(dst, src[2]) }
		case formats.DepthFloat32:
			texel = func(src, dst []byte) {
				bits := uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16 | uint32(src[3])<<24
				gray(dst, unitFloatToByte(math.Float32frombits(bits)))
			}
		}
	case core1_0.ImageAspectStencil:
		texel = func(src, dst []byte) { gray(dst, src[0]) }
	}

	if texel == nil {
		return nil, errors.Wrapf(UnsupportedFormatError, "%s, aspect %d", info, int(aspect))
	}

	rgb := make([]byte, count*3)
	for i := 0; i < count; i++ {
		texel(data[i*texelBytes:(i+1)*texelBytes], rgb[i*3:i*3+3])
	}
	return rgb, nil
}

func gray(dst []byte, value byte) {
	dst[0], dst[1], dst[2] = value, value, value
}

func unitFloatToByte(value float32) byte {
	if math.IsNaN(float64(value)) || value <= 0 {
		return 0
	}
	if value >= 1 {
		return 255
	}
	return byte(value*255 + 0.5)
}

// CreateDir creates path and any missing parents
func CreateDir(path string) error {
	err := os.MkdirAll(NormalizePath(path), 0755)
	if err != nil {
		return errors.Wrapf(err, "failed to create directory %s", path)
	}
	return nil
}

// NormalizePath accepts either separator and returns a clean path for this platform. An
// empty path is the current directory.
func NormalizePath(path string) string {
	if path == "" {
		return "."
	}
	return filepath.Clean(filepath.FromSlash(strings.ReplaceAll(path, "\\", "/")))
}
