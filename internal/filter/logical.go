package filter

import (
	"fmt"
	"strings"
)

// AndFilter implements §4.6's And: all children must match. An empty And
// is true.
type AndFilter struct {
	Children []Filter
}

// NewAndFilter constructs an And over zero or more children.
func NewAndFilter(children ...Filter) *AndFilter {
	return &AndFilter{Children: children}
}

func (f *AndFilter) Matches(metadata interface{}) bool {
	for _, c := range f.Children {
		if !c.Matches(metadata) {
			return false
		}
	}
	return true
}

func (f *AndFilter) Validate() error {
	for i, c := range f.Children {
		if err := c.Validate(); err != nil {
			return NewError("and", "", fmt.Sprintf("child %d: %v", i, err))
		}
	}
	return nil
}

func (f *AndFilter) EstimateSelectivity() float64 {
	if len(f.Children) == 0 {
		return 1.0
	}
	s := 1.0
	for _, c := range f.Children {
		s *= c.EstimateSelectivity()
	}
	return s
}

func (f *AndFilter) String() string {
	if len(f.Children) == 0 {
		return "TRUE"
	}
	parts := make([]string, len(f.Children))
	for i, c := range f.Children {
		parts[i] = fmt.Sprintf("(%s)", c.String())
	}
	return strings.Join(parts, " AND ")
}

// OrFilter implements §4.6's Or: any child must match. An empty Or is
// false.
type OrFilter struct {
	Children []Filter
}

// NewOrFilter constructs an Or over zero or more children.
func NewOrFilter(children ...Filter) *OrFilter {
	return &OrFilter{Children: children}
}

func (f *OrFilter) Matches(metadata interface{}) bool {
	for _, c := range f.Children {
		if c.Matches(metadata) {
			return true
		}
	}
	return false
}

func (f *OrFilter) Validate() error {
	for i, c := range f.Children {
		if err := c.Validate(); err != nil {
			return NewError("or", "", fmt.Sprintf("child %d: %v", i, err))
		}
	}
	return nil
}

func (f *OrFilter) EstimateSelectivity() float64 {
	if len(f.Children) == 0 {
		return 0.0
	}
	complement := 1.0
	for _, c := range f.Children {
		complement *= 1.0 - c.EstimateSelectivity()
	}
	return 1.0 - complement
}

func (f *OrFilter) String() string {
	if len(f.Children) == 0 {
		return "FALSE"
	}
	parts := make([]string, len(f.Children))
	for i, c := range f.Children {
		parts[i] = fmt.Sprintf("(%s)", c.String())
	}
	return strings.Join(parts, " OR ")
}
