package dom

import "strings"

type declaration struct {
	prop  string
	value string
}

type declarations []declaration

func parseStyle(s string) declarations {
	var out declarations
	for _, part := range strings.Split(s, ";") {
		prop, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		value = strings.TrimSpace(value)
		if prop == "" {
			continue
		}
		out = out.set(prop, value)
	}
	return out
}

func (d declarations) get(prop string) string {
	prop = strings.ToLower(prop)
	for _, decl := range d {
		if decl.prop == prop {
			return decl.value
		}
	}
	return ""
}

func (d declarations) set(prop, value string) declarations {
	prop = strings.ToLower(prop)
	for i, decl := range d {
		if decl.prop == prop {
			if value == "" {
				return append(d[:i], d[i+1:]...)
			}
			d[i].value = value
			return d
		}
	}
	if value == "" {
		return d
	}
	return append(d, declaration{prop: prop, value: value})
}

func (d declarations) String() string {
	parts := make([]string, len(d))
	for i, decl := range d {
		parts[i] = decl.prop + ": " + decl.value
	}
	return strings.Join(parts, "; ")
}
