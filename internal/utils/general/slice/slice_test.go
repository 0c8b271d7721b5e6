package slice_test

import (
	"strings"
	"testing"

	"github.com/old-void-ppc/void-mklive/internal/utils/general/slice"
)

func TestContains(t *testing.T) {
	s := []string{"chroot", "tar"}
	if !slice.Contains(s, "tar") {
		t.Errorf("Expected Contains to return true for 'tar'")
	}
	if slice.Contains(s, "xbps-install") {
		t.Errorf("Expected Contains to return false for 'xbps-install'")
	}
	if slice.Contains(nil, "tar") {
		t.Errorf("Expected Contains to return false for nil slice")
	}
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name     string
		lists    [][]string
		expected []string
	}{
		{"empty", nil, nil},
		{"single", [][]string{{"a", "b"}}, []string{"a", "b"}},
		{"dedupe_keeps_first", [][]string{{"a", "b"}, {"b", "c", "a"}}, []string{"a", "b", "c"}},
		{"drops_blank", [][]string{{"a", " ", ""}, {" b "}}, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := slice.Merge(tt.lists...)
			if strings.Join(got, ",") != strings.Join(tt.expected, ",") {
				t.Errorf("Merge = %v, want %v", got, tt.expected)
			}
		})
	}
}
