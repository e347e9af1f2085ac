package render

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"

	"github.com/dgraph-io/ristretto/v2"

	"overworld/internal/gfx"
	"overworld/internal/tileset"
)

// SheetCache keeps recoloured sheet sets across maps so that neighbouring maps
// sharing a tileset pair and bank recolour only once.
type SheetCache struct {
	c *ristretto.Cache[string, *SheetSet]
}

// NewSheetCache creates a cache bounded to maxCost bytes of pixels.
func NewSheetCache(maxCost int64) (*SheetCache, error) {
	if maxCost <= 0 {
		maxCost = 64 << 20
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, *SheetSet]{
		NumCounters: 10000,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("sheet cache: %w", err)
	}
	return &SheetCache{c: c}, nil
}

// Sheets returns the cached set for (path, bank, key) or builds and stores it.
// A nil cache always builds.
func (s *SheetCache) Sheets(path string, img *gfx.DecodedImage, bank tileset.Bank, key *gfx.RGB) *SheetSet {
	if s == nil {
		return BuildSheets(img, bank, key)
	}
	k := sheetKey(path, bank, key)
	if set, ok := s.c.Get(k); ok {
		return set
	}
	set := BuildSheets(img, bank, key)
	s.c.Set(k, set, set.Cost())
	s.c.Wait()
	return set
}

// Close releases the cache's goroutines.
func (s *SheetCache) Close() {
	if s != nil {
		s.c.Close()
	}
}

func sheetKey(path string, bank tileset.Bank, key *gfx.RGB) string {
	return path + "|" + BankFingerprint(bank) + "|" + keyString(key)
}

// BankFingerprint hashes a bank's colours.
func BankFingerprint(bank tileset.Bank) string {
	h := fnv.New64a()
	var buf [4]byte
	for _, p := range bank {
		if p == nil {
			h.Write([]byte{0xff, 0xff, 0xff, 0xff})
			continue
		}
		for _, c := range p {
			binary.LittleEndian.PutUint32(buf[:], c.Key())
			h.Write(buf[:])
		}
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

func keyString(key *gfx.RGB) string {
	if key == nil {
		return "-"
	}
	return fmt.Sprintf("%06x", key.Key())
}
