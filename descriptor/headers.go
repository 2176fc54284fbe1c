package descriptor

import (
	"strings"

	"github.com/samber/lo"
	"golang.org/x/exp/slices"
)

// Headers are HTTP request headers attached to every request for a stream.
// Names are stored verbatim and compared case-insensitively.
type Headers map[string]string

// Set stores value under name, replacing any header whose name differs only in case.
func (h Headers) Set(name, value string) {
	for existing := range h {
		if existing != name && strings.EqualFold(existing, name) {
			delete(h, existing)
		}
	}
	h[name] = value
}

// Get looks name up case-insensitively.
func (h Headers) Get(name string) (string, bool) {
	if value, ok := h[name]; ok {
		return value, true
	}
	for existing, value := range h {
		if strings.EqualFold(existing, name) {
			return value, true
		}
	}
	return "", false
}

// Names returns the header names in sorted order.
func (h Headers) Names() []string {
	names := lo.Keys(h)
	slices.Sort(names)
	return names
}

func (h Headers) Clone() Headers {
	clone := make(Headers, len(h))
	for name, value := range h {
		clone[name] = value
	}
	return clone
}
