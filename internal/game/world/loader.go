package world

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// yamlMapFile is the top-level YAML structure for map files.
type yamlMapFile struct {
	Zone yamlZone `yaml:"zone"`
}

// yamlZone is the YAML representation of one zone of tiles.
type yamlZone struct {
	ID                     string      `yaml:"id"`
	Name                   string      `yaml:"name"`
	ScriptDir              string      `yaml:"script_dir"`
	ScriptInstructionLimit int         `yaml:"script_instruction_limit"`
	Start                  yamlPoint   `yaml:"start"`
	Fill                   []yamlFill  `yaml:"fill"`
	Tiles                  []yamlTile  `yaml:"tiles"`
	Spawns                 []yamlSpawn `yaml:"spawns"`
}

type yamlPoint struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	Z int `yaml:"z"`
}

// yamlFill covers the rectangle From..To (inclusive, same floor) with ground.
type yamlFill struct {
	From   yamlPoint `yaml:"from"`
	To     yamlPoint `yaml:"to"`
	Ground uint16    `yaml:"ground"`
}

type yamlTile struct {
	X      int        `yaml:"x"`
	Y      int        `yaml:"y"`
	Z      int        `yaml:"z"`
	Ground uint16     `yaml:"ground"`
	Items  []yamlItem `yaml:"items"`
}

type yamlItem struct {
	Type     uint16     `yaml:"type"`
	Amount   int        `yaml:"amount"`
	Contents []yamlItem `yaml:"contents"`
}

type yamlSpawn struct {
	Name         string `yaml:"name"`
	Speed        int    `yaml:"speed"`
	X            int    `yaml:"x"`
	Y            int    `yaml:"y"`
	Z            int    `yaml:"z"`
	Count        int    `yaml:"count"`
	RespawnAfter string `yaml:"respawn_after"`
}

func (p yamlPoint) location() Location { return Location{X: p.X, Y: p.Y, Z: p.Z} }

// LoadMapFromFile reads one map YAML file into m.
//
// Precondition: path must point to a valid YAML map file; factory must not be nil.
// Postcondition: Returns the loaded Zone or a non-nil error.
func LoadMapFromFile(m *Map, factory *Factory, path string) (*Zone, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading map file %s: %w", path, err)
	}
	return LoadMapFromBytes(m, factory, data)
}

// LoadMapFromBytes parses a zone from YAML bytes and adds its tiles to m.
//
// Precondition: data must be valid YAML conforming to the map schema.
// Postcondition: Returns the loaded Zone or a non-nil error.
func LoadMapFromBytes(m *Map, factory *Factory, data []byte) (*Zone, error) {
	var file yamlMapFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing map YAML: %w", err)
	}
	yz := file.Zone
	if err := validateYAMLZone(yz); err != nil {
		return nil, fmt.Errorf("validating zone %q: %w", yz.ID, err)
	}

	zone := &Zone{
		ID:                     yz.ID,
		Name:                   yz.Name,
		ScriptDir:              yz.ScriptDir,
		ScriptInstructionLimit: yz.ScriptInstructionLimit,
		StartLocation:          yz.Start.location(),
	}
	for _, ys := range yz.Spawns {
		sp := SpawnPoint{
			Name:     ys.Name,
			Speed:    ys.Speed,
			Location: Location{X: ys.X, Y: ys.Y, Z: ys.Z},
			Count:    max(ys.Count, 1),
		}
		if ys.RespawnAfter != "" {
			d, err := time.ParseDuration(ys.RespawnAfter)
			if err != nil {
				return nil, fmt.Errorf("zone %q spawn %q: respawn_after: %w", yz.ID, ys.Name, err)
			}
			sp.RespawnAfter = d
		}
		zone.Spawns = append(zone.Spawns, sp)
	}
	if err := m.AddZone(zone); err != nil {
		return nil, err
	}

	for _, f := range yz.Fill {
		if err := fillGround(m, factory, zone.ID, f); err != nil {
			return nil, fmt.Errorf("zone %q: %w", zone.ID, err)
		}
	}
	for _, yt := range yz.Tiles {
		if err := buildTile(m, factory, zone.ID, yt); err != nil {
			return nil, fmt.Errorf("zone %q: %w", zone.ID, err)
		}
	}
	if _, ok := m.GetTileAt(zone.StartLocation); !ok {
		return nil, fmt.Errorf("zone %q: start location %s is not a tile", zone.ID, zone.StartLocation)
	}
	for _, sp := range zone.Spawns {
		if _, ok := m.GetTileAt(sp.Location); !ok {
			return nil, fmt.Errorf("zone %q: spawn %q at %s is not a tile", zone.ID, sp.Name, sp.Location)
		}
	}
	return zone, nil
}

// LoadMapFromDir loads every YAML file in dir into a new Map.
//
// Precondition: dir must be a valid directory path.
// Postcondition: Returns the populated Map or the first error encountered.
func LoadMapFromDir(dir string, factory *Factory) (*Map, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading map directory %s: %w", dir, err)
	}

	m := NewMap()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		if _, err := LoadMapFromFile(m, factory, filepath.Join(dir, name)); err != nil {
			return nil, fmt.Errorf("loading map from %s: %w", name, err)
		}
	}

	if len(m.Zones()) == 0 {
		return nil, fmt.Errorf("no map files found in %s", dir)
	}
	return m, nil
}

func validateYAMLZone(yz yamlZone) error {
	var errs []error
	if yz.ID == "" {
		errs = append(errs, errors.New("zone id must not be empty"))
	}
	if len(yz.Fill) == 0 && len(yz.Tiles) == 0 {
		errs = append(errs, errors.New("zone must define at least one tile"))
	}
	for i, f := range yz.Fill {
		if f.From.Z != f.To.Z {
			errs = append(errs, fmt.Errorf("fill %d spans floors %d and %d", i, f.From.Z, f.To.Z))
		}
		if f.From.X > f.To.X || f.From.Y > f.To.Y {
			errs = append(errs, fmt.Errorf("fill %d: from must not exceed to", i))
		}
	}
	for _, s := range yz.Spawns {
		if s.Name == "" {
			errs = append(errs, errors.New("spawn name must not be empty"))
		}
	}
	return errors.Join(errs...)
}

func fillGround(m *Map, factory *Factory, zoneID string, f yamlFill) error {
	for x := f.From.X; x <= f.To.X; x++ {
		for y := f.From.Y; y <= f.To.Y; y++ {
			loc := Location{X: x, Y: y, Z: f.From.Z}
			tile, err := m.CreateTile(loc, zoneID)
			if err != nil {
				return err
			}
			if f.Ground == 0 {
				continue
			}
			if err := setGround(tile, factory, f.Ground); err != nil {
				return fmt.Errorf("tile %s: %w", loc, err)
			}
		}
	}
	return nil
}

func buildTile(m *Map, factory *Factory, zoneID string, yt yamlTile) error {
	loc := Location{X: yt.X, Y: yt.Y, Z: yt.Z}
	tile, err := m.CreateTile(loc, zoneID)
	if err != nil {
		return err
	}
	if yt.Ground != 0 {
		if err := setGround(tile, factory, yt.Ground); err != nil {
			return fmt.Errorf("tile %s: %w", loc, err)
		}
	}
	for _, yi := range yt.Items {
		if err := placeItem(tile, factory, yi); err != nil {
			return fmt.Errorf("tile %s: %w", loc, err)
		}
	}
	return nil
}

// setGround puts a ground item on tile, replacing any ground from a fill.
func setGround(tile *Tile, factory *Factory, typeID uint16) error {
	ground, err := factory.CreateItem(typeID, 1)
	if err != nil {
		return err
	}
	if ground.Category() != CategoryGround {
		return fmt.Errorf("item type %d is not ground", typeID)
	}
	if old := tile.Ground(); old != nil {
		if ok, _ := tile.ReplaceContent(factory, old, ground, AnyIndex, 1); !ok {
			return fmt.Errorf("replacing ground with type %d", typeID)
		}
		return nil
	}
	if ok, _ := tile.AddContent(factory, ground, AnyIndex); !ok {
		return fmt.Errorf("adding ground type %d", typeID)
	}
	return nil
}

func placeItem(into Cylinder, factory *Factory, yi yamlItem) error {
	it, err := factory.CreateItem(yi.Type, yi.Amount)
	if err != nil {
		return err
	}
	if len(yi.Contents) > 0 {
		if it.Container() == nil {
			return fmt.Errorf("item type %d has contents but is not a container", yi.Type)
		}
		// Content is prepended, so add in reverse to keep file order.
		for i := len(yi.Contents) - 1; i >= 0; i-- {
			if err := placeItem(it.Container(), factory, yi.Contents[i]); err != nil {
				return fmt.Errorf("contents of type %d: %w", yi.Type, err)
			}
		}
	}
	ok, remainder := into.AddContent(factory, it, AnyIndex)
	if !ok {
		return fmt.Errorf("no room for item type %d", yi.Type)
	}
	if remainder != nil {
		return fmt.Errorf("item type %d overflows its stack", yi.Type)
	}
	return nil
}
