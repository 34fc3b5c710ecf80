package directory

import (
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// Condition is one attribute equality constraint.
type Condition struct {
	Attribute string
	Value     string
}

// Filter is an AND-combination of equality constraints. Building filters from
// typed conditions instead of string concatenation keeps row values from
// being interpreted as filter syntax.
type Filter []Condition

// Equals appends an equality constraint and returns the extended filter.
func (f Filter) Equals(attribute, value string) Filter {
	return append(f, Condition{Attribute: attribute, Value: value})
}

// String renders the filter in RFC 4515 form. Values are escaped; attribute
// names are taken as configured.
func (f Filter) String() string {
	if len(f) == 0 {
		return ""
	}
	var b strings.Builder
	if len(f) > 1 {
		b.WriteString("(&")
	}
	for _, c := range f {
		b.WriteByte('(')
		b.WriteString(strings.TrimSpace(c.Attribute))
		b.WriteByte('=')
		b.WriteString(ldap.EscapeFilter(c.Value))
		b.WriteByte(')')
	}
	if len(f) > 1 {
		b.WriteByte(')')
	}
	return b.String()
}
