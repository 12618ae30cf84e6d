package utils

func CloneMap[K comparable, V any](m map[K]V) map[K]V {
	cloneM := make(map[K]V, len(m))
	for k, v := range m {
		cloneM[k] = v
	}
	return cloneM
}

// CloneGraph deep-copies a node -> neighbour-set adjacency map.
func CloneGraph[K comparable](g map[K]map[K]struct{}) map[K]map[K]struct{} {
	cloneG := make(map[K]map[K]struct{}, len(g))
	for node, neighbours := range g {
		cloneG[node] = CloneMap(neighbours)
	}
	return cloneG
}

// TransposeGraph inverts every edge of the adjacency map, keeping all nodes.
func TransposeGraph[K comparable](g map[K]map[K]struct{}) map[K]map[K]struct{} {
	transposed := make(map[K]map[K]struct{}, len(g))
	for node := range g {
		transposed[node] = make(map[K]struct{})
	}
	for node, neighbours := range g {
		for neighbour := range neighbours {
			transposed[neighbour][node] = struct{}{}
		}
	}
	return transposed
}

func UniqueSlice[K comparable](a []K) []K {
	m := make(map[K]bool)
	for i := 0; i < len(a); {
		v := a[i]
		if !m[v] {
			m[v] = true
			i++
			continue
		}
		a = append(a[:i], a[i+1:]...)
	}
	return a
}
