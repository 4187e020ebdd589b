// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package iconcache

import (
	"container/list"
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/arborfs/arbor/lib/fsmodel"
)

// DefaultMaxBytes bounds the cache's total decoded pixel bytes.
const DefaultMaxBytes = 64 * 1024 * 1024

// Texture is a decoded, BGRA-swizzled icon ready for the raster.
type Texture struct {
	Width  int
	Height int

	// Pixels holds Width*Height*4 bytes in B,G,R,A order per pixel.
	Pixels []byte
}

// ByteSize returns the texture's contribution to the cache's pixel
// byte budget.
func (t Texture) ByteSize() int64 {
	return int64(len(t.Pixels))
}

// Fetcher retrieves the encoded bytes (PNG, JPEG, ...) backing an
// icon key, e.g. by reading a file's embedded thumbnail or rendering
// a platform-specific extension icon. Implementations should respect
// ctx cancellation.
type Fetcher func(ctx context.Context, key fsmodel.IconKey) ([]byte, error)

// Config controls a Cache's capacity and how it resolves misses.
type Config struct {
	MaxBytes int64
	Fetcher  Fetcher
	// Atlas holds icons exempt from eviction (directory, generic
	// file, and the most common extensions). See BuildDefaultAtlas.
	Atlas map[fsmodel.IconKey]Texture
}

// Cache is a bounded-by-bytes LRU mapping fsmodel.IconKey to decoded
// Texture values. Safe for concurrent use.
type Cache struct {
	mu        sync.Mutex
	maxBytes  int64
	usedBytes int64

	atlas   map[fsmodel.IconKey]Texture
	entries map[fsmodel.IconKey]*list.Element
	ll      *list.List
	pending map[fsmodel.IconKey]bool
	pinned  map[fsmodel.IconKey]int

	fetcher Fetcher
	group   singleflight.Group

	placeholder Texture
}

type cacheValue struct {
	key     fsmodel.IconKey
	texture Texture
}

// New creates an empty Cache per cfg.
func New(cfg Config) *Cache {
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	atlas := cfg.Atlas
	if atlas == nil {
		atlas = map[fsmodel.IconKey]Texture{}
	}
	return &Cache{
		maxBytes:    maxBytes,
		atlas:       atlas,
		entries:     make(map[fsmodel.IconKey]*list.Element),
		ll:          list.New(),
		pending:     make(map[fsmodel.IconKey]bool),
		pinned:      make(map[fsmodel.IconKey]int),
		fetcher:     cfg.Fetcher,
		placeholder: placeholderTexture(),
	}
}

// Get returns the texture for key, if decoded, without side effects.
func (c *Cache) Get(key fsmodel.IconKey) (Texture, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tex, ok := c.atlas[key]; ok {
		return tex, true
	}
	if el, ok := c.entries[key]; ok {
		return el.Value.(*cacheValue).texture, true
	}
	return Texture{}, false
}

// GetOrDefault returns the cached texture for key, or a renderable
// placeholder (the atlas's folder icon for directory keys, the
// generic placeholder otherwise) while scheduling a background decode
// if one is not already pending. ctx bounds that background decode.
func (c *Cache) GetOrDefault(ctx context.Context, key fsmodel.IconKey) Texture {
	c.mu.Lock()
	if tex, ok := c.atlas[key]; ok {
		c.mu.Unlock()
		return tex
	}
	if el, ok := c.entries[key]; ok {
		c.ll.MoveToFront(el)
		tex := el.Value.(*cacheValue).texture
		c.mu.Unlock()
		return tex
	}
	needsFetch := !c.pending[key]
	if needsFetch {
		c.pending[key] = true
	}
	fallback := c.fallbackLocked(key)
	c.mu.Unlock()

	if needsFetch {
		c.Request(ctx, key)
	}
	return fallback
}

func (c *Cache) fallbackLocked(key fsmodel.IconKey) Texture {
	if key.Kind == fsmodel.IconKeyDirectory {
		if tex, ok := c.atlas[fsmodel.IconKey{Kind: fsmodel.IconKeyDirectory}]; ok {
			return tex
		}
	}
	return c.placeholder
}

// Request schedules a decode for key if one is not already present or
// pending, and not present in the atlas. Duplicate concurrent
// requests for the same key share one decode via singleflight.
func (c *Cache) Request(ctx context.Context, key fsmodel.IconKey) {
	c.mu.Lock()
	if _, ok := c.atlas[key]; ok {
		c.mu.Unlock()
		return
	}
	if _, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return
	}
	c.pending[key] = true
	c.mu.Unlock()

	if c.fetcher == nil {
		c.mu.Lock()
		delete(c.pending, key)
		c.mu.Unlock()
		return
	}

	go func() {
		_, _, _ = c.group.Do(key.String(), func() (any, error) {
			data, err := c.fetcher(ctx, key)
			if err != nil {
				c.mu.Lock()
				delete(c.pending, key)
				c.mu.Unlock()
				return nil, err
			}
			tex, err := Decode(data)
			if err != nil {
				c.mu.Lock()
				delete(c.pending, key)
				c.mu.Unlock()
				return nil, err
			}
			c.Insert(key, tex)
			return tex, nil
		})
	}()
}

// Insert publishes a decoded texture, evicting unpinned entries by
// LRU order until the total pixel-byte budget is satisfied. Insert
// clears key's pending flag.
func (c *Cache) Insert(key fsmodel.IconKey, tex Texture) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.pending, key)

	if el, ok := c.entries[key]; ok {
		old := el.Value.(*cacheValue).texture
		c.usedBytes -= old.ByteSize()
		el.Value.(*cacheValue).texture = tex
		c.ll.MoveToFront(el)
	} else {
		el := c.ll.PushFront(&cacheValue{key: key, texture: tex})
		c.entries[key] = el
	}
	c.usedBytes += tex.ByteSize()

	c.evictLocked()
}

// evictLocked removes least-recently-used, unpinned entries until
// usedBytes is within budget. Must be called with c.mu held.
func (c *Cache) evictLocked() {
	el := c.ll.Back()
	for c.usedBytes > c.maxBytes && el != nil {
		prev := el.Prev()
		v := el.Value.(*cacheValue)
		if c.pinned[v.key] > 0 {
			el = prev
			continue
		}
		c.ll.Remove(el)
		delete(c.entries, v.key)
		c.usedBytes -= v.texture.ByteSize()
		el = prev
	}
}

// Pin marks key as exempt from eviction until a matching number of
// Unpin calls release it. Pinning a key not yet in the cache is a
// no-op reference that takes effect once the decode completes.
func (c *Cache) Pin(key fsmodel.IconKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pinned[key]++
}

// Unpin releases one outstanding pin on key. Once the pin count
// reaches zero, key becomes eligible for eviction again on the next
// Insert.
func (c *Cache) Unpin(key fsmodel.IconKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pinned[key] <= 1 {
		delete(c.pinned, key)
		return
	}
	c.pinned[key]--
}

// IsPending reports whether key has an in-flight decode.
func (c *Cache) IsPending(key fsmodel.IconKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending[key]
}

// UsedBytes returns the cache's current pixel-byte usage, excluding
// the atlas.
func (c *Cache) UsedBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usedBytes
}

// Len returns the number of non-atlas entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Clear removes all non-atlas, non-pinned entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	var kept []*cacheValue
	for el := c.ll.Front(); el != nil; el = el.Next() {
		v := el.Value.(*cacheValue)
		if c.pinned[v.key] > 0 {
			kept = append(kept, v)
		}
	}
	c.ll.Init()
	c.entries = make(map[fsmodel.IconKey]*list.Element)
	c.usedBytes = 0
	for _, v := range kept {
		el := c.ll.PushBack(v)
		c.entries[v.key] = el
		c.usedBytes += v.texture.ByteSize()
	}
	c.pending = make(map[fsmodel.IconKey]bool)
}

func placeholderTexture() Texture {
	return solidTexture(IconSize, IconSize, 128, 128, 128, 255)
}

func solidTexture(width, height int, r, g, b, a byte) Texture {
	pixels := make([]byte, width*height*4)
	for i := 0; i < len(pixels); i += 4 {
		pixels[i], pixels[i+1], pixels[i+2], pixels[i+3] = b, g, r, a
	}
	return Texture{Width: width, Height: height, Pixels: pixels}
}
