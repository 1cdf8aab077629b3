package css

import (
	"fmt"
	"strings"
)

// Specificity represents simplified CSS specificity as (IDs, classes, elements).
// Classes covers class selectors, attribute selectors and pseudo-classes,
// Elements covers type selectors and pseudo-elements.
type Specificity struct {
	IDs      int // #id selectors
	Classes  int // .class, [attr], :pseudo-class
	Elements int // element, ::pseudo-element
}

// InlineSpecificity is the specificity assigned to a style="" attribute.
// It only ties ID-only selectors, inline values are protected separately
// when styles are written back.
var InlineSpecificity = Specificity{IDs: 1}

// Compare returns -1 if s < other, 0 if equal, 1 if s > other
func (s Specificity) Compare(other Specificity) int {
	if s.IDs != other.IDs {
		if s.IDs > other.IDs {
			return 1
		}
		return -1
	}
	if s.Classes != other.Classes {
		if s.Classes > other.Classes {
			return 1
		}
		return -1
	}
	if s.Elements != other.Elements {
		if s.Elements > other.Elements {
			return 1
		}
		return -1
	}
	return 0
}

// Less reports whether s ranks strictly below other.
func (s Specificity) Less(other Specificity) bool {
	return s.Compare(other) < 0
}

func (s Specificity) String() string {
	return fmt.Sprintf("(%d,%d,%d)", s.IDs, s.Classes, s.Elements)
}

// Declaration represents a single CSS property declaration
type Declaration struct {
	Property string
	Value    string
}

// Declarations is an ordered property -> value mapping. Properties keep the
// position of their first insertion, setting an existing property replaces
// its value in place.
type Declarations struct {
	list  []Declaration
	index map[string]int
}

// NewDeclarations creates an empty declaration set.
func NewDeclarations() *Declarations {
	return &Declarations{index: make(map[string]int)}
}

// Set adds property or replaces its value.
func (d *Declarations) Set(property, value string) {
	if i, ok := d.index[property]; ok {
		d.list[i].Value = value
		return
	}
	d.index[property] = len(d.list)
	d.list = append(d.list, Declaration{Property: property, Value: value})
}

// Get returns the value of property.
func (d *Declarations) Get(property string) (string, bool) {
	if d == nil {
		return "", false
	}
	i, ok := d.index[property]
	if !ok {
		return "", false
	}
	return d.list[i].Value, true
}

// Has reports whether property is present.
func (d *Declarations) Has(property string) bool {
	_, ok := d.Get(property)
	return ok
}

// Len returns the number of distinct properties.
func (d *Declarations) Len() int {
	if d == nil {
		return 0
	}
	return len(d.list)
}

// All returns the declarations in insertion order. The returned slice is a copy.
func (d *Declarations) All() []Declaration {
	if d == nil {
		return nil
	}
	out := make([]Declaration, len(d.list))
	copy(out, d.list)
	return out
}

// Clone returns an independent copy.
func (d *Declarations) Clone() *Declarations {
	c := NewDeclarations()
	for _, decl := range d.All() {
		c.Set(decl.Property, decl.Value)
	}
	return c
}

// String renders declarations in style attribute form: prop:value;prop:value
func (d *Declarations) String() string {
	if d.Len() == 0 {
		return ""
	}
	parts := make([]string, 0, len(d.list))
	for _, decl := range d.list {
		parts = append(parts, decl.Property+":"+decl.Value)
	}
	return strings.Join(parts, ";")
}

// Rule is one simple selector split out of a rule group together with the
// declarations of its block.
type Rule struct {
	Selector     string        // Trimmed simple selector text
	Declarations *Declarations // Declarations of the enclosing block
	Specificity  Specificity   // Calculated specificity
	SourceOrder  int           // Index of the enclosing block, shared by a comma group
}

// Less orders rules by specificity first and source order second.
func (r Rule) Less(other Rule) bool {
	if c := r.Specificity.Compare(other.Specificity); c != 0 {
		return c < 0
	}
	return r.SourceOrder < other.SourceOrder
}
