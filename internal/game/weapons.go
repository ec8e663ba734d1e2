package game

// Weapon represents one catalog entry. Immutable for the process lifetime.
type Weapon struct {
	ID           uint32  `json:"id"`
	Name         string  `json:"name"`
	Damage       uint32  `json:"damage"`
	FireRate     float64 `json:"fire_rate"`   // shots per second
	ReloadTime   float64 `json:"reload_time"` // seconds
	MagazineSize uint32  `json:"magazine_size"`
}

// DefaultWeaponID is the weapon granted to every player on join.
const DefaultWeaponID uint32 = 1

// Catalog is the read-only weapon database. Shared by reference across
// all lobbies; never mutated after LoadCatalog.
type Catalog struct {
	weapons map[uint32]Weapon
}

// LoadCatalog builds the built-in weapon set.
func LoadCatalog() *Catalog {
	weapons := []Weapon{
		{
			ID:           1,
			Name:         "Golden Friend",
			Damage:       20,
			FireRate:     4.0,
			ReloadTime:   2.0,
			MagazineSize: 20,
		},
		{
			ID:           2,
			Name:         "Prototype",
			Damage:       35,
			FireRate:     2.0,
			ReloadTime:   2.5,
			MagazineSize: 8,
		},
		{
			ID:           3,
			Name:         "Viper",
			Damage:       12,
			FireRate:     8.0,
			ReloadTime:   1.5,
			MagazineSize: 30,
		},
		{
			ID:           4,
			Name:         "Longshot",
			Damage:       60,
			FireRate:     1.0,
			ReloadTime:   3.0,
			MagazineSize: 5,
		},
	}

	m := make(map[uint32]Weapon, len(weapons))
	for _, w := range weapons {
		m[w.ID] = w
	}
	return &Catalog{weapons: m}
}

// Get returns a weapon by ID.
func (c *Catalog) Get(id uint32) (Weapon, bool) {
	w, ok := c.weapons[id]
	return w, ok
}

// Contains reports whether the catalog has a weapon with the given ID.
func (c *Catalog) Contains(id uint32) bool {
	_, ok := c.weapons[id]
	return ok
}

// All returns every weapon as a slice, for the HTTP surface.
func (c *Catalog) All() []Weapon {
	weapons := make([]Weapon, 0, len(c.weapons))
	for _, w := range c.weapons {
		weapons = append(weapons, w)
	}
	return weapons
}
