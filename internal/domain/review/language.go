package review

import "path/filepath"

var languageByExtension = map[string]string{
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".py":   "python",
	".java": "java",
	".cpp":  "cpp",
	".c":    "c",
	".go":   "go",
	".rs":   "rust",
	".php":  "php",
	".rb":   "ruby",
}

// DetectLanguage resolves the analysis language from a file extension.
// Files with an unresolvable extension are skipped entirely by the fan-out
// engine, so the empty return is not an error.
func DetectLanguage(path string) string {
	return languageByExtension[filepath.Ext(path)]
}
