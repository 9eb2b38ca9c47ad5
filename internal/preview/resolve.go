package preview

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// ResolvePath maps a request path onto a file under root. The path is
// percent-decoded and normalised, empty and dot segments are dropped, and
// any volume or directory prefix inside a segment is stripped, so the result
// can never leave root.
func ResolvePath(root, urlPath string) string {
	if u, err := url.PathUnescape(urlPath); err == nil {
		urlPath = u
	}
	urlPath = path.Clean("/" + urlPath)

	out := root
	for _, word := range strings.Split(urlPath, "/") {
		if word == "" {
			continue
		}
		word = strings.TrimPrefix(word, filepath.VolumeName(word))
		if i := strings.LastIndexAny(word, `/\`); i >= 0 {
			word = word[i+1:]
		}
		if word == "" || word == "." || word == ".." {
			continue
		}
		out = filepath.Join(out, word)
	}
	return out
}
