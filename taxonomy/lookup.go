// Package taxonomy maps detector class ids to a semantic category and a
// display name.
package taxonomy

// Unknown is reported for both category and name when an id has no entry.
const Unknown = "Unknown"

// Class is one id/name pair inside a category.
type Class struct {
	ID   int
	Name string
}

// Category groups classes that share a rendering style.
type Category struct {
	Name    string
	Classes []Class
}

// Taxonomy is an ordered list of categories. Order matters: when the same
// id appears under two categories the later one wins.
type Taxonomy []Category

// Entry is the resolved value for one class id.
type Entry struct {
	Category string
	Name     string
}

// Collision records an id that was defined more than once.
type Collision struct {
	ID       int
	Previous Entry
	Current  Entry
}

// Lookup is the flattened id -> (category, name) table. It is read-only
// once built.
type Lookup struct {
	table      map[int]Entry
	collisions []Collision
}

// NewLookup flattens t in document order, last write wins.
func NewLookup(t Taxonomy) *Lookup {
	l := &Lookup{table: make(map[int]Entry)}
	for _, cat := range t {
		for _, c := range cat.Classes {
			e := Entry{Category: cat.Name, Name: c.Name}
			if prev, ok := l.table[c.ID]; ok {
				l.collisions = append(l.collisions, Collision{ID: c.ID, Previous: prev, Current: e})
			}
			l.table[c.ID] = e
		}
	}
	return l
}

// Resolve returns the category and display name for id, or Unknown/Unknown.
func (l *Lookup) Resolve(id int) (category, name string) {
	if l == nil {
		return Unknown, Unknown
	}
	e, ok := l.table[id]
	if !ok {
		return Unknown, Unknown
	}
	return e.Category, e.Name
}

// Len returns the number of distinct ids.
func (l *Lookup) Len() int {
	if l == nil {
		return 0
	}
	return len(l.table)
}

// Collisions lists ids that were overwritten while flattening.
func (l *Lookup) Collisions() []Collision {
	if l == nil {
		return nil
	}
	out := make([]Collision, len(l.collisions))
	copy(out, l.collisions)
	return out
}
