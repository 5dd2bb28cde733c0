package platform

import (
	"os"
	"runtime/debug"
	"sync"

	"github.com/faultline/faultline/internal/log"
)

// BinaryImage is a loaded module record used to annotate crash reports.
type BinaryImage struct {
	Path    string
	Version string
}

// BinaryImageCache caches the binary images loaded in the process. It is
// activated by the deferred init phase and stopped on Close.
type BinaryImageCache struct {
	logger log.Logger

	mu     sync.RWMutex
	active bool
	images []BinaryImage
}

// NewBinaryImageCache creates an inactive cache.
func NewBinaryImageCache(logger log.Logger) *BinaryImageCache {
	if logger == nil {
		logger = log.Noop
	}
	return &BinaryImageCache{
		logger: logger.WithValues(log.Kv{"svc": "platform.BinaryImageCache"}),
	}
}

// Start populates the cache from the running process. Idempotent.
func (c *BinaryImageCache) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		return
	}
	c.active = true

	exe, err := os.Executable()
	if err != nil {
		exe = "unknown"
	}

	images := []BinaryImage{{Path: exe}}
	if info, ok := debug.ReadBuildInfo(); ok {
		images[0].Version = info.Main.Version
		for _, dep := range info.Deps {
			images = append(images, BinaryImage{Path: dep.Path, Version: dep.Version})
		}
	}

	c.images = images
	c.logger.Debugf("Cached %d binary images", len(images))
}

// Stop deactivates the cache and drops its contents. Idempotent.
func (c *BinaryImageCache) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.active = false
	c.images = nil
}

// Active reports whether the cache has been started.
func (c *BinaryImageCache) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// Images returns a copy of the cached image records.
func (c *BinaryImageCache) Images() []BinaryImage {
	c.mu.RLock()
	defer c.mu.RUnlock()

	images := make([]BinaryImage, len(c.images))
	copy(images, c.images)
	return images
}
