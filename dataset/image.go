package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"digitnet/matrix"
	"digitnet/utils"
)

// DigitSide is the width and height the digit network expects.
const DigitSide = 28

var ErrUnsupportedImage = errors.New("unsupported image format")

// Image is a decoded binary netpbm image, 8 bits per channel.
type Image struct {
	Width    int
	Height   int
	Channels int // 1 for PGM, 3 for PPM
	MaxVal   int
	Pixels   []byte
}

// LoadImage reads a binary PPM (P6) or PGM (P5) file.
func LoadImage(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, utils.NewDataLoadError(path, "", err)
	}
	defer f.Close()

	img, err := DecodeImage(bufio.NewReader(f))
	if err != nil {
		return nil, utils.NewDataLoadError(path, "", err)
	}
	return img, nil
}

// DecodeImage parses a P5/P6 stream. Header tokens may be separated by any
// whitespace and interleaved with '#' comments running to end of line.
func DecodeImage(r *bufio.Reader) (*Image, error) {
	magic, err := headerToken(r)
	if err != nil {
		return nil, err
	}
	img := &Image{}
	switch magic {
	case "P5":
		img.Channels = 1
	case "P6":
		img.Channels = 3
	default:
		return nil, fmt.Errorf("%w: magic %q", ErrUnsupportedImage, magic)
	}

	fields := []*int{&img.Width, &img.Height, &img.MaxVal}
	for _, field := range fields {
		tok, err := headerToken(r)
		if err != nil {
			return nil, err
		}
		if *field, err = strconv.Atoi(tok); err != nil {
			return nil, fmt.Errorf("bad header value %q: %w", tok, err)
		}
	}
	if img.Width <= 0 || img.Height <= 0 || img.Width*img.Height > 1<<24 {
		return nil, fmt.Errorf("%w: %dx%d", matrix.ErrBadShape, img.Width, img.Height)
	}
	if img.MaxVal <= 0 || img.MaxVal > 255 {
		return nil, fmt.Errorf("%w: maxval %d", ErrUnsupportedImage, img.MaxVal)
	}

	img.Pixels = make([]byte, img.Width*img.Height*img.Channels)
	if _, err := io.ReadFull(r, img.Pixels); err != nil {
		return nil, fmt.Errorf("reading pixels: %w", err)
	}
	return img, nil
}

// headerToken skips whitespace and comments and returns the next token,
// consuming the single whitespace byte that ends it.
func headerToken(r *bufio.Reader) (string, error) {
	var tok []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			if len(tok) > 0 && errors.Is(err, io.EOF) {
				return string(tok), nil
			}
			return "", fmt.Errorf("reading header: %w", err)
		}
		switch {
		case b == '#' && len(tok) == 0:
			if _, err := r.ReadString('\n'); err != nil {
				return "", fmt.Errorf("reading header comment: %w", err)
			}
		case isSpace(b):
			if len(tok) > 0 {
				return string(tok), nil
			}
		default:
			tok = append(tok, b)
		}
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}

// Input returns the image as a (width*height) x 1 column of per-pixel
// channel means scaled to [0, 1]. The image must be exactly width x height.
func (img *Image) Input(width, height int) (*matrix.Matrix[float32], error) {
	if img.Width != width || img.Height != height {
		return nil, fmt.Errorf("image is %dx%d, want %dx%d: %w",
			img.Width, img.Height, width, height, matrix.ErrDimensionMismatch)
	}
	n := width * height
	px := make([]float32, n)
	scale := float32(img.MaxVal) * float32(img.Channels)
	for i := 0; i < n; i++ {
		var sum int
		for c := 0; c < img.Channels; c++ {
			sum += int(img.Pixels[i*img.Channels+c])
		}
		px[i] = float32(sum) / scale
	}
	return matrix.NewFromData(n, 1, px)
}

// LoadDigit loads a 28x28 image as network input.
func LoadDigit(path string) (*matrix.Matrix[float32], error) {
	img, err := LoadImage(path)
	if err != nil {
		return nil, err
	}
	in, err := img.Input(DigitSide, DigitSide)
	if err != nil {
		return nil, utils.NewDataLoadError(path, "", err)
	}
	return in, nil
}
