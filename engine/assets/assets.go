package assets

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/efvk/engine/assets/loaders"
	"github.com/spaghettifunk/efvk/engine/core"
	"github.com/spaghettifunk/efvk/engine/renderer/metadata"
	"golang.org/x/sync/errgroup"
)

var ErrAssetNotFound = errors.New("asset not found")

type AssetInfo struct {
	// Slash-separated path relative to the asset root.
	Name     string
	Path     string
	Type     metadata.ResourceType
	Modified time.Time
}

// AssetManager indexes an asset directory and keeps the index current while
// files come and go. It decodes textures for the renderer's uploader.
type AssetManager struct {
	root   string
	assets map[string]AssetInfo
	images *loaders.ImageLoader

	mutex sync.RWMutex

	fsnotify *fsnotify.Watcher
	done     chan struct{}
	wg       sync.WaitGroup
	changes  chan string
}

func NewAssetManager() *AssetManager {
	return &AssetManager{
		assets:  make(map[string]AssetInfo),
		images:  &loaders.ImageLoader{},
		changes: make(chan string, 64),
	}
}

// Initialize indexes assetsDir. With watch set, the index follows file system
// changes until Shutdown.
func (am *AssetManager) Initialize(assetsDir string, watch bool) error {
	root, err := filepath.Abs(assetsDir)
	if err != nil {
		return err
	}
	am.root = root

	if watch {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return errors.Wrap(err, "creating asset watcher")
		}
		am.fsnotify = w
	}
	if err := am.walk(root); err != nil {
		am.Shutdown()
		return err
	}
	if am.fsnotify != nil {
		am.done = make(chan struct{})
		am.wg.Add(1)
		go am.start()
	}
	core.LogInfo("Indexed %d assets under %s.", am.Len(), root)
	return nil
}

func (am *AssetManager) Shutdown() {
	if am.fsnotify == nil {
		return
	}
	if am.done != nil {
		close(am.done)
		am.wg.Wait()
		am.done = nil
	}
	am.fsnotify.Close()
	am.fsnotify = nil
}

// Changes delivers the names of indexed assets that were rewritten on disk.
func (am *AssetManager) Changes() <-chan string {
	return am.changes
}

func (am *AssetManager) Len() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

func (am *AssetManager) Get(name string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[name]
	return info, ok
}

// Resolve maps an asset name to its file. The name is either the path relative
// to the root or, when unambiguous, the file name without its extension.
func (am *AssetManager) Resolve(name string) (string, error) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()

	if info, ok := am.assets[filepath.ToSlash(name)]; ok {
		return info.Path, nil
	}
	var match *AssetInfo
	for _, info := range am.assets {
		base := filepath.Base(info.Name)
		if strings.TrimSuffix(base, filepath.Ext(base)) != name {
			continue
		}
		if match != nil {
			return "", errors.Newf("asset name %q is ambiguous: %s and %s", name, match.Name, info.Name)
		}
		match = &info
	}
	if match == nil {
		return "", errors.Wrapf(ErrAssetNotFound, "%q", name)
	}
	return match.Path, nil
}

// LoadTexture decodes the named image to RGBA8.
func (am *AssetManager) LoadTexture(name string) (*metadata.Texture, error) {
	path, err := am.Resolve(name)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	texture, err := am.images.Load(path)
	if err != nil {
		return nil, err
	}
	texture.Name = name
	core.LogDebug("Decoded %s (%dx%d) in %s.", name, texture.Width, texture.Height, time.Since(start))
	return texture, nil
}

// DecodeTextures decodes names in parallel on at most workers goroutines.
// Results are in the order of names. The first error cancels the rest.
func (am *AssetManager) DecodeTextures(ctx context.Context, names []string, workers int) ([]*metadata.Texture, error) {
	textures := make([]*metadata.Texture, len(names))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			texture, err := am.LoadTexture(name)
			if err != nil {
				return err
			}
			textures[i] = texture
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return textures, nil
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleEvent(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			return
		}
	}
}

func (am *AssetManager) handleEvent(e fsnotify.Event) {
	if e.Has(fsnotify.Create) {
		if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
			if err := am.walk(e.Name); err != nil {
				core.LogWarn("failed to watch new directory %s: %s", e.Name, err)
			}
			return
		}
	}
	if e.Has(fsnotify.Create) || e.Has(fsnotify.Write) {
		if name, ok := am.index(e.Name); ok && e.Has(fsnotify.Write) {
			am.notify(name)
		}
	}
	// Can't stat a removed path, so drop it from both the index and the watch list.
	if e.Has(fsnotify.Remove) || e.Has(fsnotify.Rename) {
		am.removeAsset(e.Name)
		_ = am.fsnotify.Remove(e.Name)
	}
}

func (am *AssetManager) notify(name string) {
	select {
	case am.changes <- name:
	default:
		core.LogWarn("asset change queue full, dropping %s", name)
	}
}

// walk indexes every file under path and watches every directory.
func (am *AssetManager) walk(path string) error {
	return filepath.WalkDir(path, func(walkPath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if am.fsnotify != nil {
				return am.fsnotify.Add(walkPath)
			}
			return nil
		}
		am.index(walkPath)
		return nil
	})
}

// index records the file at path and returns its asset name.
func (am *AssetManager) index(path string) (string, bool) {
	assetType := determineAssetType(path)
	if assetType == metadata.ResourceTypeNone {
		return "", false
	}
	rel, err := filepath.Rel(am.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	name := filepath.ToSlash(rel)

	var modified time.Time
	if s, err := os.Stat(path); err == nil {
		modified = s.ModTime()
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[name] = AssetInfo{
		Name:     name,
		Path:     path,
		Type:     assetType,
		Modified: modified,
	}
	return name, true
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	rel, err := filepath.Rel(am.root, path)
	if err != nil {
		return
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()
	delete(am.assets, filepath.ToSlash(rel))
}

func determineAssetType(path string) metadata.ResourceType {
	switch {
	case loaders.IsImage(path):
		return metadata.ResourceTypeImage
	case filepath.Ext(path) == ".toml":
		return metadata.ResourceTypeConfig
	default:
		return metadata.ResourceTypeNone
	}
}
