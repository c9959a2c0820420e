package blocks

import "strconv"

// Store is the ordered collection of blocks placed in one editor session.
// Insertion order is the display order. A Store is not safe for concurrent
// use; the owning session serializes access.
type Store struct {
	blocks []*Block
	nextID int
}

// NewStore returns an empty store whose first block id is block-1.
func NewStore() *Store {
	return &Store{nextID: 1}
}

func (s *Store) allocID() string {
	if s.nextID < 1 {
		s.nextID = 1
	}
	id := "block-" + strconv.Itoa(s.nextID)
	s.nextID++
	return id
}

// Create places a new block with registry defaults and returns it.
func (s *Store) Create(t Type, indicatorType string, x, y float64) *Block {
	b := &Block{Type: t, X: x, Y: y}
	if t == TypeIndicator {
		b.IndicatorType = indicatorType
	}
	applyDefaults(b)
	return s.insert(b)
}

func (s *Store) insert(b *Block) *Block {
	b.ID = s.allocID()
	s.blocks = append(s.blocks, b)
	return b
}

// Remove deletes the block with the given id. Unknown ids are ignored.
// References to the removed block held by other blocks are left as they are.
func (s *Store) Remove(id string) bool {
	for i, b := range s.blocks {
		if b.ID == id {
			s.blocks = append(s.blocks[:i:i], s.blocks[i+1:]...)
			return true
		}
	}
	return false
}

// Find returns the block with the given id.
func (s *Store) Find(id string) (*Block, bool) {
	for _, b := range s.blocks {
		if b.ID == id {
			return b, true
		}
	}
	return nil, false
}

// All returns the blocks in insertion order. The slice is a copy; the blocks
// are shared.
func (s *Store) All() []*Block {
	return append([]*Block(nil), s.blocks...)
}

// OfType returns the blocks of one type in insertion order.
func (s *Store) OfType(t Type) []*Block {
	var out []*Block
	for _, b := range s.blocks {
		if b.Type == t {
			out = append(out, b)
		}
	}
	return out
}

// Len returns the number of placed blocks.
func (s *Store) Len() int {
	return len(s.blocks)
}

// Clear removes every block. Ids keep counting from where they were.
func (s *Store) Clear() {
	s.blocks = nil
}

// Restore replaces the contents with the given blocks, assigning fresh ids.
// Ids carried by the input are discarded.
func (s *Store) Restore(blocks []*Block) []*Block {
	s.Clear()
	for _, b := range blocks {
		if b == nil {
			continue
		}
		s.insert(b.Clone())
	}
	return s.All()
}
