package images

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"vieux-grimoire-api/internal/logger"
)

const (
	URLPrefix = "/images/"
	extension = ".jpg"

	DefaultMaxDimension = 2000
	DefaultQuality      = 80
	// DefaultMaxPixels bounds the decoded size of an upload, whatever its byte size.
	DefaultMaxPixels = 50_000_000
)

var ErrProcessing = errors.New("image processing failed")

// Remover deletes files, tracking the ones it could not remove.
type Remover interface {
	Remove(path string) error
}

type Upload struct {
	TempPath     string
	OriginalName string
}

// Processor resizes uploads to fit MaxDimension and stores them as JPEG in Dir.
type Processor struct {
	Dir          string
	MaxDimension int
	Quality      int
	MaxPixels    int
	Remover      Remover

	now func() time.Time
}

func NewProcessor(dir string, maxDimension, quality int, remover Remover) (*Processor, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create images dir: %w", err)
	}
	return &Processor{
		Dir:          dir,
		MaxDimension: maxDimension,
		Quality:      quality,
		MaxPixels:    DefaultMaxPixels,
		Remover:      remover,
		now:          time.Now,
	}, nil
}

// Process converts the uploaded temp file and returns the public URL of the result.
// The temp file is released whatever the outcome.
func (p *Processor) Process(ctx context.Context, upload Upload, baseURL string) (string, error) {
	defer p.release(upload.TempPath)

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := p.checkDimensions(upload); err != nil {
		return "", err
	}

	img, err := imaging.Open(upload.TempPath, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: decode %s: %v", ErrProcessing, upload.OriginalName, err)
	}
	img = imaging.Fit(img, p.MaxDimension, p.MaxDimension, imaging.Lanczos)

	if err := ctx.Err(); err != nil {
		return "", err
	}

	out, err := p.create(upload.OriginalName)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProcessing, err)
	}
	filename := filepath.Base(out.Name())

	encodeErr := imaging.Encode(out, img, imaging.JPEG, imaging.JPEGQuality(p.Quality))
	if err := errors.Join(encodeErr, out.Close()); err != nil {
		p.release(out.Name())
		return "", fmt.Errorf("%w: encode %s: %v", ErrProcessing, filename, err)
	}

	return strings.TrimRight(baseURL, "/") + URLPrefix + filename, nil
}

// checkDimensions reads only the image header so oversized uploads are rejected before
// any pixel buffer is allocated.
func (p *Processor) checkDimensions(upload Upload) error {
	f, err := os.Open(upload.TempPath)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrProcessing, upload.OriginalName, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrProcessing, upload.OriginalName, err)
	}
	if p.MaxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > int64(p.MaxPixels) {
		return fmt.Errorf("%w: %s is %dx%d, over the %d pixel limit",
			ErrProcessing, upload.OriginalName, cfg.Width, cfg.Height, p.MaxPixels)
	}
	return nil
}

// Remove deletes the processed file behind imageURL. URLs outside the images
// directory are ignored.
func (p *Processor) Remove(imageURL string) error {
	path, ok := p.PathFromURL(imageURL)
	if !ok {
		return nil
	}
	return p.Remover.Remove(path)
}

func (p *Processor) PathFromURL(imageURL string) (string, bool) {
	u, err := url.Parse(imageURL)
	if err != nil {
		return "", false
	}
	_, name, found := strings.Cut(u.Path, URLPrefix)
	if !found || name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", false
	}
	return filepath.Join(p.Dir, name), true
}

func (p *Processor) release(path string) {
	if err := p.Remover.Remove(path); err != nil {
		log := logger.Get()
		log.Error().Err(err).Str("path", path).Msg("could not remove file")
	}
}

const maxNameAttempts = 100

// create opens a new output file named after the upload. O_EXCL makes concurrent
// uploads with the same name and timestamp land in distinct files.
func (p *Processor) create(original string) (*os.File, error) {
	base := sanitize(strings.TrimSuffix(filepath.Base(original), filepath.Ext(original)))
	stamp := p.now().UnixMilli()

	name := fmt.Sprintf("%s_%d%s", base, stamp, extension)
	for i := 1; i <= maxNameAttempts; i++ {
		f, err := os.OpenFile(filepath.Join(p.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create %s: %w", name, err)
		}
		name = fmt.Sprintf("%s_%d_%d%s", base, stamp, i, extension)
	}
	return nil, fmt.Errorf("no free file name for %s", base)
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	cleaned := strings.Trim(b.String(), "_")
	if cleaned == "" {
		return "image"
	}
	return cleaned
}
