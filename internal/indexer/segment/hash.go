package segment

import (
	"fmt"
)

const (
	DefaultTableSize  = 611953
	DefaultMultiplier = 131

	// SlotSize is the width of one dictionary slot: a big-endian data-file
	// offset, 0 when the slot is unused.
	SlotSize = 8

	maxTableSize = 1 << 32
)

// Hasher maps terms to dictionary slots with a polynomial rolling hash over
// the term's runes: h = (h*Multiplier + r) mod TableSize.
type Hasher struct {
	Multiplier uint64
	TableSize  uint64
}

func NewHasher(multiplier, tableSize int) (Hasher, error) {
	if tableSize <= 0 || tableSize > maxTableSize {
		return Hasher{}, fmt.Errorf("table size %d out of range (1..%d)", tableSize, maxTableSize)
	}
	if multiplier <= 0 || multiplier > 1<<16 {
		return Hasher{}, fmt.Errorf("hash multiplier %d out of range (1..%d)", multiplier, 1<<16)
	}
	return Hasher{Multiplier: uint64(multiplier), TableSize: uint64(tableSize)}, nil
}

func (h Hasher) Slot(term string) uint64 {
	var v uint64
	for _, r := range term {
		v = (v*h.Multiplier + uint64(r)) % h.TableSize
	}
	return v
}

// Next is the linear probe successor of slot.
func (h Hasher) Next(slot uint64) uint64 {
	return (slot + 1) % h.TableSize
}

// DictionarySize is the byte size of a dictionary file for this table.
func (h Hasher) DictionarySize() int64 {
	return int64(h.TableSize) * SlotSize
}
