package runtime

import (
	"path/filepath"
	"slices"
	"strings"
)

// extToLanguage maps file extensions to the dialect recorded in the index.
var extToLanguage = map[string]string{
	".scm": "scheme",
	".ss":  "scheme",
	".sch": "scheme",
	".sls": "r6rs",
	".sld": "r7rs",
}

// LanguageForFile returns the dialect for a file path based on its
// extension. Returns ("", false) if the extension is not recognized.
func LanguageForFile(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := extToLanguage[ext]
	return lang, ok
}

// Extensions returns the recognized source extensions, sorted.
func Extensions() []string {
	exts := make([]string, 0, len(extToLanguage))
	for ext := range extToLanguage {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}
