package drivers

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Separator joins the segments of a canonical key. The first segment is the
// key's namespace.
const Separator = "."

var structuralReplacer = strings.NewReplacer(
	"{", "",
	"}", "",
	`"`, "",
	"[", "",
	"]", "",
	":", Separator,
	",", Separator,
)

// ParseKey canonicalizes a raw key into a dotted path usable directly as a
// nested-storage address.
//
// Non-string keys are flattened by structural stringification (encoding/json):
// delimiter characters are stripped and ':'/',' become the path separator.
// Note that Go marshals map keys in sorted order whereas struct fields keep
// declaration order, so two structurally equal values of different types may
// canonicalize differently.
func ParseKey(raw interface{}, prefix string) string {
	var key string
	switch v := raw.(type) {
	case string:
		key = v
	case fmt.Stringer:
		key = v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			key = fmt.Sprintf("%v", v)
		} else {
			key = string(data)
		}
	}

	key = structuralReplacer.Replace(key)

	if prefix = strings.Trim(prefix, Separator+" "); prefix != "" {
		key = prefix + Separator + key
	}

	return strings.TrimRight(key, Separator)
}

// NamespaceOf returns the first path segment of a canonical key.
func NamespaceOf(canonical string) string {
	if i := strings.Index(canonical, Separator); i >= 0 {
		return canonical[:i]
	}
	return canonical
}

// InNamespace reports whether a canonical key is the namespace itself or
// lies under it.
func InNamespace(canonical, namespace string) bool {
	return canonical == namespace || strings.HasPrefix(canonical, namespace+Separator)
}
