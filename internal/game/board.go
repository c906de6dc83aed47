package game

import (
	"fmt"
	"slices"
	"sync"
)

// DefaultGridSize is the side length of the default board.
const DefaultGridSize = 4

// Board is a square grid of face-down tiles. Each tile carries a pair
// number; every pair number appears on exactly two tiles. It is safe for
// concurrent use.
type Board struct {
	size int

	mu    sync.RWMutex
	tiles []int
}

// NewBoard returns an unshuffled board of size × size tiles.
//
// Precondition: size >= 2 and size*size must be even.
// Postcondition: Tiles() holds pairs 0,0,1,1,... in order.
func NewBoard(size int) (*Board, error) {
	if size < 2 || (size*size)%2 != 0 {
		return nil, fmt.Errorf("grid size %d: need an even number of tiles and size >= 2", size)
	}
	tiles := make([]int, size*size)
	for i := range tiles {
		tiles[i] = i / 2
	}
	return &Board{size: size, tiles: tiles}, nil
}

// Size returns the grid's side length.
func (b *Board) Size() int { return b.size }

// Pairs returns the number of tile pairs.
func (b *Board) Pairs() int { return len(b.tiles) / 2 }

// Tiles returns a copy of the tile pair numbers in row-major order.
func (b *Board) Tiles() []int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.tiles)
}

// Shuffle deals the tiles in a uniformly random order.
//
// Precondition: src must be non-nil.
func (b *Board) Shuffle(src Source) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.tiles) - 1; i > 0; i-- {
		j := src.Intn(i + 1)
		b.tiles[i], b.tiles[j] = b.tiles[j], b.tiles[i]
	}
}

// Deal replaces the tiles with a layout received from a peer.
//
// Postcondition: Returns an error, leaving b unchanged, if tiles is not a
// valid layout for b's size.
func (b *Board) Deal(tiles []int) error {
	if len(tiles) != len(b.tiles) {
		return fmt.Errorf("layout has %d tiles, board has %d", len(tiles), len(b.tiles))
	}
	counts := make(map[int]int, b.Pairs())
	for _, t := range tiles {
		if t < 0 || t >= b.Pairs() {
			return fmt.Errorf("tile %d out of range", t)
		}
		counts[t]++
	}
	for pair, n := range counts {
		if n != 2 {
			return fmt.Errorf("pair %d appears %d times", pair, n)
		}
	}
	b.mu.Lock()
	copy(b.tiles, tiles)
	b.mu.Unlock()
	return nil
}
