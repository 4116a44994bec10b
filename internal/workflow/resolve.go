package workflow

// ResolveAssignees 合并直接分配用户与角色成员，按用户 ID 去重。
// 顺序稳定：先直接分配，再按角色顺序追加。结果不缓存，角色成员随时可能变化。
func ResolveAssignees[T any](id func(T) string, direct []T, byRole ...[]T) []T {
	seen := make(map[string]struct{}, len(direct))
	result := make([]T, 0, len(direct))

	add := func(u T) {
		key := id(u)
		if key == "" {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		result = append(result, u)
	}

	for _, u := range direct {
		add(u)
	}
	for _, members := range byRole {
		for _, u := range members {
			add(u)
		}
	}
	return result
}

// Contains 判断已解析的分配集合中是否包含指定用户
func Contains[T any](id func(T) string, set []T, userID string) bool {
	for _, u := range set {
		if id(u) == userID {
			return true
		}
	}
	return false
}
