package world_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/tilemud/internal/game/world"
)

const (
	typeGrass   uint16 = 100
	typeBorder  uint16 = 101
	typeBlood   uint16 = 102
	typeWall    uint16 = 103
	typeArch    uint16 = 104
	typeStone   uint16 = 105
	typeCoin    uint16 = 200
	typeSword   uint16 = 201
	typeArrow   uint16 = 202
	typeTable   uint16 = 203
	typeBag     uint16 = 300
	typeSatchel uint16 = 301
)

const testItemsYAML = `
items:
  - id: 100
    name: grass
    category: ground
  - id: 101
    name: grass border
    category: ground_border
  - id: 102
    name: blood
    category: liquid_pool
  - id: 103
    name: stone wall
    category: stay_on_bottom
    blocks_pass: true
    blocks_throw: true
    blocks_lay: true
  - id: 104
    name: archway
    category: stay_on_top
  - id: 105
    name: stone floor
    category: ground
  - id: 200
    name: gold coin
    cumulative: true
    movable: true
  - id: 201
    name: sword
    movable: true
  - id: 202
    name: arrow
    cumulative: true
    movable: true
  - id: 203
    name: table
    blocks_pass: true
  - id: 300
    name: bag
    movable: true
    container_capacity: 8
  - id: 301
    name: satchel
    movable: true
    container_capacity: 2
`

func newTestFactory(t *testing.T) *world.Factory {
	t.Helper()
	cat := world.NewCatalog()
	require.NoError(t, cat.LoadItemTypesFromBytes([]byte(testItemsYAML)))
	return world.NewFactory(cat)
}

func mustItem(t *testing.T, f *world.Factory, typeID uint16, amount int) *world.Item {
	t.Helper()
	it, err := f.CreateItem(typeID, amount)
	require.NoError(t, err)
	return it
}

func mustAdd(t *testing.T, f world.ItemFactory, c world.Cylinder, thing world.Thing) {
	t.Helper()
	ok, rem := c.AddContent(f, thing, world.AnyIndex)
	require.True(t, ok)
	require.Nil(t, rem)
}

// recordingObserver captures container signals in order.
type recordingObserver struct {
	added    []*world.Item
	removed  []uint8
	updated  []uint8
	moved    []*world.Container
	movedFro []world.Location
}

func (r *recordingObserver) ContentAdded(_ *world.Container, it *world.Item) {
	r.added = append(r.added, it)
}

func (r *recordingObserver) ContentRemoved(_ *world.Container, index uint8) {
	r.removed = append(r.removed, index)
}

func (r *recordingObserver) ContentUpdated(_ *world.Container, index uint8, _ *world.Item) {
	r.updated = append(r.updated, index)
}

func (r *recordingObserver) LocationChanged(c *world.Container, from world.Location) {
	r.moved = append(r.moved, c)
	r.movedFro = append(r.movedFro, from)
}
