package catalog

// Catalog is an ordered, id-keyed set of QuestionDefinitions.
//
// Duplicate handling is explicit: Put on an existing id replaces the whole
// definition but keeps the position where the id was first seen. Iteration
// order therefore never depends on Go's map ordering.
//
// A Catalog is built by one goroutine (a parser or a source) and treated as
// read-only once returned; it is then safe for concurrent readers.
type Catalog struct {
	order []string
	byID  map[string]QuestionDefinition
}

// New returns an empty Catalog.
func New() *Catalog {
	return &Catalog{byID: make(map[string]QuestionDefinition)}
}

// FromDefinitions builds a Catalog applying the same last-wins rule as Put.
func FromDefinitions(defs []QuestionDefinition) *Catalog {
	c := New()
	for _, d := range defs {
		c.Put(d)
	}
	return c
}

// Put inserts def, replacing any earlier definition with the same id.
// It reports whether an earlier definition was replaced.
func (c *Catalog) Put(def QuestionDefinition) (replaced bool) {
	if _, ok := c.byID[def.ID]; ok {
		replaced = true
	} else {
		c.order = append(c.order, def.ID)
	}
	c.byID[def.ID] = def
	return replaced
}

// Get returns the definition for id.
func (c *Catalog) Get(id string) (QuestionDefinition, bool) {
	d, ok := c.byID[id]
	return d, ok
}

// Has reports whether id is in the catalog.
func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// Len returns the number of distinct question ids.
func (c *Catalog) Len() int { return len(c.order) }

// IDs returns the question ids in catalog order. The slice is a copy.
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Definitions returns every definition in catalog order.
func (c *Catalog) Definitions() []QuestionDefinition {
	out := make([]QuestionDefinition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Conditional returns the definitions with a trigger expression, in order.
func (c *Catalog) Conditional() []QuestionDefinition {
	var out []QuestionDefinition
	for _, id := range c.order {
		if d := c.byID[id]; d.HasConditions {
			out = append(out, d)
		}
	}
	return out
}

// Section groups question ids under one section label.
type Section struct {
	Name        string   `json:"name"`
	QuestionIDs []string `json:"question_ids"`
}

// Sections groups ids by section, sections ordered by first appearance and
// ids in catalog order. It is derived from the final definitions, so a
// duplicate row that moved a question to another section is reflected.
func (c *Catalog) Sections() []Section {
	index := make(map[string]int)
	var out []Section
	for _, id := range c.order {
		name := c.byID[id].Section
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, Section{Name: name})
		}
		out[i].QuestionIDs = append(out[i].QuestionIDs, id)
	}
	return out
}
