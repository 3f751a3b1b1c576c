package utils

// Distinct 去重，保持第一次出现的顺序
func Distinct[T comparable](s []T) []T {
	var r = make([]T, 0, len(s))
	set := map[T]struct{}{}
	for i := range s {
		if _, ok := set[s[i]]; !ok {
			r = append(r, s[i])
			set[s[i]] = struct{}{}
		}
	}
	return r
}
