package slice

import "strings"

// Check if a string exists in a string slice
func Contains(slice []string, str string) bool {
	for _, item := range slice {
		if item == str {
			return true
		}
	}
	return false
}

// Merge concatenates the given lists, dropping blanks and duplicates while
// keeping the first occurrence order.
func Merge(lists ...[]string) []string {
	var result []string
	for _, list := range lists {
		for _, item := range list {
			item = strings.TrimSpace(item)
			if item == "" || Contains(result, item) {
				continue
			}
			result = append(result, item)
		}
	}
	return result
}
