package strs

import "strings"

// Unique returns the non-empty strings in the given lists, in order, with
// duplicates removed.
func Unique(lists ...[]string) (unique []string) {
	strSet := map[string]struct{}{}
	for _, strs := range lists {
		for _, str := range strs {
			str = strings.TrimSpace(str)
			if str == "" {
				continue
			}
			if _, ok := strSet[str]; ok {
				continue
			}
			strSet[str] = struct{}{}
			unique = append(unique, str)
		}
	}
	return unique
}
