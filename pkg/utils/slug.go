package utils

import (
	"strconv"
	"strings"

	"github.com/gosimple/slug"
)

// Slugify 标题 → slug；全是符号时退回 "idea"
func Slugify(title string) string {
	s := slug.Make(title)
	if s == "" {
		return "idea"
	}
	return s
}

// NextSlug 在已占用的 slug 中为 base 选下一个可用值：base, base-2, base-3 ...
// taken 里与 base 无关的值会被忽略。
func NextSlug(base string, taken []string) string {
	used := false
	maxN := 1
	for _, s := range taken {
		if s == base {
			used = true
			continue
		}
		rest, ok := strings.CutPrefix(s, base+"-")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil || n < 2 {
			continue
		}
		used = true
		if n > maxN {
			maxN = n
		}
	}
	if !used {
		return base
	}
	return base + "-" + strconv.Itoa(maxN+1)
}
