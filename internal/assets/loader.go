package assets

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"overworld/internal/gfx"
	"overworld/internal/tileset"
)

// Loader is a path-keyed cache of in-flight and completed loads over an
// asset filesystem. Failed loads are evicted so a later request retries.
type Loader struct {
	fs  afero.Fs
	log logrus.FieldLogger

	mu       sync.Mutex
	bytes    map[string]*Future[[]byte]
	images   map[string]*Future[*gfx.DecodedImage]
	tilesets map[string]*Future[*tileset.Tileset]
}

// NewLoader creates a loader reading from fs.
func NewLoader(fs afero.Fs, log logrus.FieldLogger) *Loader {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Loader{
		fs:       fs,
		log:      log,
		bytes:    make(map[string]*Future[[]byte]),
		images:   make(map[string]*Future[*gfx.DecodedImage]),
		tilesets: make(map[string]*Future[*tileset.Tileset]),
	}
}

// Fs returns the underlying filesystem.
func (l *Loader) Fs() afero.Fs {
	return l.fs
}

// cached returns the future for key, starting fn if there is none yet.
func cached[T any](l *Loader, m map[string]*Future[T], key string, fn func() (T, error)) *Future[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	if f, ok := m[key]; ok {
		return f
	}
	f := newFuture[T]()
	m[key] = f
	go func() {
		v, err := fn()
		if err != nil {
			l.mu.Lock()
			if m[key] == f {
				delete(m, key)
			}
			l.mu.Unlock()
		}
		f.resolve(v, err)
	}()
	return f
}

// Bytes loads a whole file.
func (l *Loader) Bytes(path string) *Future[[]byte] {
	return cached(l, l.bytes, path, func() ([]byte, error) {
		data, err := afero.ReadFile(l.fs, path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return data, nil
	})
}

// Image loads and decodes a PNG.
func (l *Loader) Image(path string) *Future[*gfx.DecodedImage] {
	return cached(l, l.images, path, func() (*gfx.DecodedImage, error) {
		data, err := l.Bytes(path).Wait(context.Background())
		if err != nil {
			l.log.WithField("path", path).WithError(err).Warn("image unavailable")
			return nil, err
		}
		img, err := gfx.DecodePNG(data)
		if err != nil {
			l.log.WithField("path", path).WithError(err).Warn("image undecodable")
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return img, nil
	})
}

// Tileset loads the binary part of a tileset: metatiles (required), layer
// attributes and palette files (both optional).
func (l *Loader) Tileset(root, name string, kind tileset.Kind) *Future[*tileset.Tileset] {
	key := root + "|" + kind.String() + "|" + name
	return cached(l, l.tilesets, key, func() (*tileset.Tileset, error) {
		paths, ok := tileset.PathsFor(root, name, kind)
		if !ok {
			return nil, fmt.Errorf("%s tileset: empty name", kind)
		}
		log := l.log.WithField("tileset", name)

		var metatiles, attrs []byte
		palettes := make([][]byte, tileset.MaxPalettes)
		g, ctx := errgroup.WithContext(context.Background())
		g.Go(func() error {
			b, err := l.Bytes(paths.Metatiles).Wait(ctx)
			if err != nil {
				return fmt.Errorf("tileset %s metatiles: %w", name, err)
			}
			metatiles = b
			return nil
		})
		g.Go(func() error {
			b, err := l.Bytes(paths.Attributes).Wait(ctx)
			if err != nil {
				log.WithError(err).Debug("no metatile attributes, all metatiles normal")
				return nil
			}
			attrs = b
			return nil
		})
		for i := 0; i < tileset.MaxPalettes; i++ {
			i := i
			g.Go(func() error {
				b, err := l.Bytes(paths.PalettePath(i)).Wait(ctx)
				if err == nil {
					palettes[i] = b
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			log.WithError(err).Warn("tileset unavailable")
			return nil, err
		}

		ts := tileset.Assemble(name, kind, metatiles, attrs, palettes)
		ts.Paths = paths
		log.WithFields(logrus.Fields{
			"kind":      kind,
			"metatiles": len(ts.Metatiles),
		}).Debug("tileset loaded")
		return ts, nil
	})
}

// Await adapts a future to an errgroup task.
func Await[T any](f *Future[T], out *T) func(context.Context) error {
	return func(ctx context.Context) error {
		v, err := f.Wait(ctx)
		if err != nil {
			return err
		}
		if out != nil {
			*out = v
		}
		return nil
	}
}

// WaitAll joins independent loads, failing on the first error.
func WaitAll(ctx context.Context, tasks ...func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		task := task
		g.Go(func() error { return task(gctx) })
	}
	return g.Wait()
}
