package settings

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// KeyDelimiter separates section names in a key path.
const KeyDelimiter = ":"

// merge deep-merges src into dst. Keys match case-insensitively and keep
// the casing they were first seen with. Objects merge; everything else,
// arrays included, is replaced.
func merge(dst, src map[string]interface{}) {
	for k, v := range src {
		existing, found := lookupFold(dst, k)
		if !found {
			dst[k] = clone(v)
			continue
		}

		dstMap, dstIsMap := dst[existing].(map[string]interface{})
		srcMap, srcIsMap := v.(map[string]interface{})
		if dstIsMap && srcIsMap {
			merge(dstMap, srcMap)
			continue
		}
		dst[existing] = clone(v)
	}
}

func lookupFold(m map[string]interface{}, key string) (string, bool) {
	if _, ok := m[key]; ok {
		return key, true
	}
	for k := range m {
		if strings.EqualFold(k, key) {
			return k, true
		}
	}
	return "", false
}

// find resolves a colon-separated key path. Numeric segments index arrays.
func find(root map[string]interface{}, key string) (interface{}, bool) {
	if key == "" {
		return root, true
	}

	var current interface{} = root
	for _, part := range strings.Split(key, KeyDelimiter) {
		switch node := current.(type) {
		case map[string]interface{}:
			k, ok := lookupFold(node, part)
			if !ok {
				return nil, false
			}
			current = node[k]
		case []interface{}:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// flatten writes every leaf of v into out under colon-joined keys.
func flatten(prefix string, v interface{}, out map[string]string) {
	switch node := v.(type) {
	case map[string]interface{}:
		for k, child := range node {
			flatten(join(prefix, k), child, out)
		}
	case []interface{}:
		for i, child := range node {
			flatten(join(prefix, fmt.Sprint(i)), child, out)
		}
	case nil:
		out[prefix] = ""
	default:
		out[prefix] = fmt.Sprint(node)
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + KeyDelimiter + key
}

func clone(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[k] = clone(val)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(t))
		for i, val := range t {
			s[i] = clone(val)
		}
		return s
	default:
		return v
	}
}

// sortedKeys returns the keys of m in order.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
