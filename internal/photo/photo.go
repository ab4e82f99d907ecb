package photo

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"notes/internal/errs"
)

// Dir is the sub-directory of the static dir that holds note photos.
const Dir = "photos"

// Limits on the decoded size of an upload. A small compressed file can
// describe a very large image.
const (
	MaxSide   = 10000
	MaxPixels = 40_000_000
)

var allowedExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// Store saves uploaded images, scaled down to fit a bounding box.
type Store struct {
	root   string
	width  int
	height int
}

func New(staticDir string, width, height int) *Store {
	return &Store{root: staticDir, width: width, height: height}
}

// Save decodes the upload, resizes it and writes it under Dir with a
// random name. It returns the path relative to the static dir.
func (s *Store) Save(r io.Reader, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return "", errs.Invalid("photo", "Upload a JPEG, PNG, GIF or WebP image.")
	}

	// the header is read twice: once for the size check, then by Decode
	var head bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(r, &head))
	if err != nil {
		return "", errs.Invalid("photo", "The file is not a readable image.")
	}
	if cfg.Width > MaxSide || cfg.Height > MaxSide || cfg.Width*cfg.Height > MaxPixels {
		return "", errs.Invalid("photo", "The image is too large.")
	}

	src, format, err := image.Decode(io.MultiReader(&head, r))
	if err != nil {
		return "", errs.Invalid("photo", "The file is not a readable image.")
	}
	img := Fit(src, s.width, s.height)

	if err := os.MkdirAll(filepath.Join(s.root, Dir), 0755); err != nil {
		return "", fmt.Errorf("failed to create photo dir: %w", err)
	}

	outExt := ".jpg"
	if format == "png" {
		outExt = ".png"
	}
	rel := path.Join(Dir, uuid.NewString()+outExt)
	full := filepath.Join(s.root, filepath.FromSlash(rel))

	dst, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("failed to create photo: %w", err)
	}
	if outExt == ".png" {
		err = png.Encode(dst, img)
	} else {
		err = jpeg.Encode(dst, img, &jpeg.Options{Quality: 85})
	}
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(full)
		return "", fmt.Errorf("failed to write photo: %w", err)
	}
	return rel, nil
}

// Remove deletes a photo saved by Save. A missing file is not an error.
func (s *Store) Remove(rel string) error {
	if rel == "" {
		return nil
	}
	full := filepath.Join(s.root, Dir, filepath.Base(filepath.FromSlash(rel)))
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove photo: %w", err)
	}
	return nil
}

// Fit scales img down to fit within width x height keeping its aspect
// ratio. Images that already fit are returned unchanged.
func Fit(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= width && h <= height {
		return img
	}

	nw, nh := width, h*width/w
	if nh > height {
		nw, nh = w*height/h, height
	}
	nw, nh = max(nw, 1), max(nh, 1)

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
