package table

// Columns is an insertion-ordered set of column names.
// The zero value is ready to use.
type Columns struct {
	names []string
	index map[string]int
}

// NewColumns returns a set containing names in order, skipping duplicates.
func NewColumns(names ...string) *Columns {
	c := &Columns{}
	c.Add(names...)
	return c
}

// Add appends names that are not yet members. It reports how many were new.
func (c *Columns) Add(names ...string) int {
	if c.index == nil {
		c.index = make(map[string]int)
	}
	added := 0
	for _, name := range names {
		if _, ok := c.index[name]; ok {
			continue
		}
		c.index[name] = len(c.names)
		c.names = append(c.names, name)
		added++
	}
	return added
}

// Remove deletes name from the set. It reports whether name was a member.
func (c *Columns) Remove(name string) bool {
	pos, ok := c.index[name]
	if !ok {
		return false
	}
	c.names = append(c.names[:pos], c.names[pos+1:]...)
	delete(c.index, name)
	for i := pos; i < len(c.names); i++ {
		c.index[c.names[i]] = i
	}
	return true
}

// Has reports whether name is a member.
func (c *Columns) Has(name string) bool {
	_, ok := c.index[name]
	return ok
}

// Len returns the number of columns.
func (c *Columns) Len() int {
	return len(c.names)
}

// Names returns a copy of the column names in insertion order.
func (c *Columns) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Clone returns an independent copy of the set.
func (c *Columns) Clone() *Columns {
	return NewColumns(c.names...)
}
