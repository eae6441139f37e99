package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

const (
	DefaultMaxWidth = 800
	jpegQuality     = 80
)

// Stored describes one saved upload.
type Stored struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Type string `json:"type"`
}

// Uploader resizes images before handing them to a BlobStore. Other
// content is stored unchanged.
type Uploader struct {
	Store    BlobStore
	BaseURL  string
	MaxWidth uint
}

func NewUploader(store BlobStore, baseURL string) *Uploader {
	return &Uploader{Store: store, BaseURL: strings.TrimRight(baseURL, "/"), MaxWidth: DefaultMaxWidth}
}

func (u *Uploader) Save(ctx context.Context, filename, contentType string, r io.Reader) (*Stored, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	var decode func(io.Reader) (image.Image, error)
	switch {
	case ext == ".png" || contentType == "image/png":
		decode = png.Decode
	case ext == ".jpg" || ext == ".jpeg" || contentType == "image/jpeg":
		decode = jpeg.Decode
	}

	if decode == nil {
		key := uuid.New().String() + ext
		if err := u.Store.Put(ctx, key, r); err != nil {
			return nil, err
		}
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		return u.stored(key, contentType), nil
	}

	img, err := decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filename, err)
	}
	if u.MaxWidth > 0 && uint(img.Bounds().Dx()) > u.MaxWidth {
		img = resize.Resize(u.MaxWidth, 0, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode %s: %w", filename, err)
	}
	key := uuid.New().String() + ".jpg"
	if err := u.Store.Put(ctx, key, &buf); err != nil {
		return nil, err
	}
	return u.stored(key, "image/jpeg"), nil
}

func (u *Uploader) stored(key, contentType string) *Stored {
	return &Stored{Key: key, URL: u.BaseURL + "/" + key, Type: contentType}
}
