package world

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// MaxStackAmount is the largest amount a single cumulative item can hold.
const MaxStackAmount = 100

// Category decides which internal store of a Tile an item occupies.
type Category uint8

const (
	// CategoryNormal items stack on top of everything else.
	CategoryNormal Category = iota
	// CategoryGround is the single floor item of a tile.
	CategoryGround
	// CategoryGroundBorder items decorate the edges of the ground.
	CategoryGroundBorder
	// CategoryLiquidPool is the single splash or pool on a tile.
	CategoryLiquidPool
	// CategoryStayOnTop items always render above other items (e.g. door frames).
	CategoryStayOnTop
	// CategoryStayOnBottom items always render below normal items (e.g. walls).
	CategoryStayOnBottom
)

var categoryNames = map[Category]string{
	CategoryNormal:       "normal",
	CategoryGround:       "ground",
	CategoryGroundBorder: "ground_border",
	CategoryLiquidPool:   "liquid_pool",
	CategoryStayOnTop:    "stay_on_top",
	CategoryStayOnBottom: "stay_on_bottom",
}

// String returns the YAML name of the category.
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", uint8(c))
}

// ParseCategory converts a YAML category name into a Category.
// An empty name is CategoryNormal.
func ParseCategory(name string) (Category, error) {
	if name == "" {
		return CategoryNormal, nil
	}
	for c, n := range categoryNames {
		if n == name {
			return c, nil
		}
	}
	return CategoryNormal, fmt.Errorf("unknown item category %q", name)
}

// ItemType defines the static properties shared by every item of one type.
type ItemType struct {
	ID                uint16   `yaml:"id"`
	ClientID          uint16   `yaml:"client_id"`
	Name              string   `yaml:"name"`
	CategoryName      string   `yaml:"category"`
	Cumulative        bool     `yaml:"cumulative"`
	BlocksPass        bool     `yaml:"blocks_pass"`
	BlocksThrow       bool     `yaml:"blocks_throw"`
	BlocksLay         bool     `yaml:"blocks_lay"`
	Movable           bool     `yaml:"movable"`
	ContainerCapacity int      `yaml:"container_capacity"`
	Category          Category `yaml:"-"`
}

// IsContainer reports whether items of this type hold other items.
func (t *ItemType) IsContainer() bool {
	return t.ContainerCapacity > 0
}

// Validate checks that the type satisfies its invariants and resolves Category
// from CategoryName.
//
// Precondition: t is non-nil.
// Postcondition: returns nil iff all fields are valid; Category is set on success.
func (t *ItemType) Validate() error {
	var errs []error
	if t.ID == 0 {
		errs = append(errs, errors.New("id must be > 0"))
	}
	if t.ID == CreatureThingID {
		errs = append(errs, fmt.Errorf("id %d is reserved for creatures", CreatureThingID))
	}
	if t.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	cat, err := ParseCategory(t.CategoryName)
	if err != nil {
		errs = append(errs, err)
	}
	if t.ContainerCapacity < 0 {
		errs = append(errs, errors.New("container_capacity must be >= 0"))
	}
	if t.ContainerCapacity > MaxTileThings {
		errs = append(errs, fmt.Errorf("container_capacity must be <= %d", MaxTileThings))
	}
	if t.ContainerCapacity > 0 && t.Cumulative {
		errs = append(errs, errors.New("containers cannot be cumulative"))
	}
	if t.ContainerCapacity > 0 && cat != CategoryNormal {
		errs = append(errs, errors.New("containers must be in the normal category"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("item type %d validation failed: %w", t.ID, errors.Join(errs...))
	}
	t.Category = cat
	return nil
}

// Catalog holds all loaded item types indexed by ID.
// It is read-only after loading and safe for concurrent reads.
type Catalog struct {
	types map[uint16]*ItemType
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{types: make(map[uint16]*ItemType)}
}

// Register validates t and adds it to the catalog.
//
// Precondition: t must not be nil.
// Postcondition: Type(t.ID) returns t; returns an error if invalid or already registered.
func (c *Catalog) Register(t *ItemType) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if _, exists := c.types[t.ID]; exists {
		return fmt.Errorf("world: Catalog.Register: item type %d already registered", t.ID)
	}
	c.types[t.ID] = t
	return nil
}

// Type returns the item type for id.
//
// Postcondition: ok is true iff id is registered.
func (c *Catalog) Type(id uint16) (*ItemType, bool) {
	t, ok := c.types[id]
	return t, ok
}

// Len returns the number of registered types.
func (c *Catalog) Len() int {
	return len(c.types)
}

// IDs returns all registered type ids in ascending order.
func (c *Catalog) IDs() []uint16 {
	ids := make([]uint16, 0, len(c.types))
	for id := range c.types {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type yamlItemTypesFile struct {
	Items []*ItemType `yaml:"items"`
}

// LoadItemTypesFromBytes parses a YAML document with a top-level "items" list
// into c.
//
// Postcondition: every parsed type is registered, or the first error is returned.
func (c *Catalog) LoadItemTypesFromBytes(data []byte) error {
	var file yamlItemTypesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing item types YAML: %w", err)
	}
	for _, t := range file.Items {
		if err := c.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// LoadItemTypes reads every *.yaml and *.yml file in dir into a new Catalog.
//
// Precondition: dir is a readable directory path.
// Postcondition: returns a Catalog with all valid types or the first encountered error.
func LoadItemTypes(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("LoadItemTypes: cannot read directory %q: %w", dir, err)
	}
	c := NewCatalog()
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("LoadItemTypes: cannot read file %q: %w", path, err)
		}
		if err := c.LoadItemTypesFromBytes(data); err != nil {
			return nil, fmt.Errorf("LoadItemTypes: %q: %w", path, err)
		}
	}
	return c, nil
}
