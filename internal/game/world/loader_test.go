package world_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/tilemud/internal/game/world"
)

const validMapYAML = `
zone:
  id: harbor
  name: "Harbor"
  script_dir: scripts/harbor
  start: {x: 100, y: 100, z: 7}
  fill:
    - from: {x: 98, y: 98, z: 7}
      to: {x: 102, y: 102, z: 7}
      ground: 100
  tiles:
    - x: 100
      y: 101
      z: 7
      ground: 105
      items:
        - type: 200
          amount: 25
        - type: 300
          contents:
            - type: 201
            - type: 200
              amount: 3
    - x: 101
      y: 101
      z: 7
      items:
        - type: 103
  spawns:
    - name: rat
      speed: 180
      x: 99
      y: 99
      z: 7
      count: 2
      respawn_after: 30s
`

func TestLoadMapFromBytes_Valid(t *testing.T) {
	f := newTestFactory(t)
	m := world.NewMap()
	zone, err := world.LoadMapFromBytes(m, f, []byte(validMapYAML))
	require.NoError(t, err)

	assert.Equal(t, "harbor", zone.ID)
	assert.Equal(t, "scripts/harbor", zone.ScriptDir)
	assert.Equal(t, world.Location{X: 100, Y: 100, Z: 7}, zone.StartLocation)
	assert.Equal(t, 25, m.TileCount())

	require.Len(t, zone.Spawns, 1)
	assert.Equal(t, world.SpawnPoint{
		Name:         "rat",
		Speed:        180,
		Location:     world.Location{X: 99, Y: 99, Z: 7},
		Count:        2,
		RespawnAfter: 30 * time.Second,
	}, zone.Spawns[0])

	tile, ok := m.GetTileAt(world.Location{X: 100, Y: 101, Z: 7})
	require.True(t, ok)
	assert.Equal(t, typeStone, tile.Ground().ThingID(), "explicit ground replaces the fill")
	items := tile.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 25, items[0].Amount())
	bag := items[1].Container()
	require.NotNil(t, bag)
	content := bag.Content()
	require.Len(t, content, 2)
	assert.Equal(t, typeSword, content[0].ThingID(), "contents keep file order")
	assert.Equal(t, typeCoin, content[1].ThingID())

	wall, ok := m.GetTileAt(world.Location{X: 101, Y: 101, Z: 7})
	require.True(t, ok)
	assert.True(t, wall.BlocksPass())
	assert.Equal(t, "harbor", m.ZoneOf(wall.Location()))

	start, ok := m.StartLocation()
	require.True(t, ok)
	assert.Equal(t, zone.StartLocation, start)
}

func TestLoadMapFromBytes_Errors(t *testing.T) {
	cases := map[string]string{
		"missing id": `
zone:
  tiles:
    - {x: 1, y: 1, z: 7, ground: 100}
`,
		"no tiles": `
zone:
  id: empty
`,
		"start off map": `
zone:
  id: off
  start: {x: 5, y: 5, z: 7}
  tiles:
    - {x: 1, y: 1, z: 7, ground: 100}
`,
		"contents in non-container": `
zone:
  id: bad
  start: {x: 1, y: 1, z: 7}
  tiles:
    - x: 1
      y: 1
      z: 7
      items:
        - type: 201
          contents:
            - type: 200
`,
		"ground type is not ground": `
zone:
  id: bad
  start: {x: 1, y: 1, z: 7}
  tiles:
    - {x: 1, y: 1, z: 7, ground: 201}
`,
		"fill across floors": `
zone:
  id: bad
  fill:
    - from: {x: 1, y: 1, z: 7}
      to: {x: 2, y: 2, z: 6}
      ground: 100
`,
		"bad respawn": `
zone:
  id: bad
  start: {x: 1, y: 1, z: 7}
  tiles:
    - {x: 1, y: 1, z: 7, ground: 100}
  spawns:
    - {name: rat, x: 1, y: 1, z: 7, respawn_after: soon}
`,
		"malformed": "zone: [",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := world.LoadMapFromBytes(world.NewMap(), newTestFactory(t), []byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoadMapFromBytes_TileOwnedByAnotherZone(t *testing.T) {
	f := newTestFactory(t)
	m := world.NewMap()
	_, err := world.LoadMapFromBytes(m, f, []byte(validMapYAML))
	require.NoError(t, err)

	_, err = world.LoadMapFromBytes(m, f, []byte(`
zone:
  id: overlap
  start: {x: 100, y: 100, z: 7}
  tiles:
    - {x: 100, y: 100, z: 7, ground: 100}
`))
	assert.Error(t, err)
}

func TestLoadMapFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "harbor.yaml"), []byte(validMapYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("ignored"), 0o644))

	m, err := world.LoadMapFromDir(dir, newTestFactory(t))
	require.NoError(t, err)
	require.Len(t, m.Zones(), 1)

	_, err = world.LoadMapFromDir(t.TempDir(), newTestFactory(t))
	assert.Error(t, err)
}

func TestCreatureRegistry(t *testing.T) {
	r := world.NewCreatureRegistry()
	cf := world.NewCreatureFactory(10)
	a := cf.CreateCreature(world.CreatureCreationArgs{Name: "a"})
	b := cf.CreateCreature(world.CreatureCreationArgs{Name: "b"})

	require.NoError(t, r.RegisterCreature(b))
	require.NoError(t, r.RegisterCreature(a))
	assert.Error(t, r.RegisterCreature(a))
	assert.Equal(t, []*world.Creature{a, b}, r.AllCreatures())

	got, ok := r.FindCreatureByID(a.ID())
	require.True(t, ok)
	assert.Same(t, a, got)

	require.NoError(t, r.UnregisterCreature(a.ID()))
	assert.Error(t, r.UnregisterCreature(a.ID()))
	assert.Equal(t, 1, r.Count())
}
