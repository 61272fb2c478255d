package main

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed languages.yml
var defaultLanguagesYAML []byte

const otherLanguage = "Other"

// LanguageInfo holds the fields of a language entry used for file detection.
type LanguageInfo struct {
	Type         string   `yaml:"type"` // programming, data, markup, prose
	Extensions   []string `yaml:"extensions"`
	Filenames    []string `yaml:"filenames"`
	Interpreters []string `yaml:"interpreters"`
}

// LanguageMap maps language names (e.g., "Go") to their details.
type LanguageMap map[string]LanguageInfo

// LoadedLanguageData holds the parsed language map and lookup tables.
type LoadedLanguageData struct {
	Langs        LanguageMap
	Source       string            // file the table came from, or "built-in"
	extensionMap map[string]string // ".go" -> "Go"
	filenameMap  map[string]string // "Makefile" -> "Makefile"
}

// loadLanguageData loads languages.yml from the first search dir that has one,
// falling back to the built-in table.
func loadLanguageData(searchDirs []string) (*LoadedLanguageData, error) {
	for _, dir := range searchDirs {
		p := filepath.Join(dir, "languages.yml")
		if _, err := os.Stat(p); err != nil {
			continue
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("error reading language file %s: %w", p, err)
		}
		data, err := parseLanguageData(b)
		if err != nil {
			return nil, fmt.Errorf("error parsing language file %s: %w", p, err)
		}
		data.Source = p
		return data, nil
	}
	data, err := parseLanguageData(defaultLanguagesYAML)
	if err != nil {
		return nil, fmt.Errorf("error parsing built-in language table: %w", err)
	}
	data.Source = "built-in"
	return data, nil
}

func parseLanguageData(b []byte) (*LoadedLanguageData, error) {
	var langs LanguageMap
	if err := yaml.Unmarshal(b, &langs); err != nil {
		return nil, err
	}
	data := &LoadedLanguageData{
		Langs:        langs,
		extensionMap: make(map[string]string),
		filenameMap:  make(map[string]string),
	}
	// Sorted names keep ownership of a shared extension deterministic.
	for _, name := range sortedKeys(langs) {
		info := langs[name]
		for _, ext := range info.Extensions {
			ext = normalizeExt(ext)
			if _, taken := data.extensionMap[ext]; !taken && ext != "" {
				data.extensionMap[ext] = name
			}
		}
		for _, fname := range info.Filenames {
			if _, taken := data.filenameMap[fname]; !taken {
				data.filenameMap[fname] = name
			}
		}
	}
	return data, nil
}

// GetLanguageForFile resolves a language by exact filename, then by extension.
func (ld *LoadedLanguageData) GetLanguageForFile(filePath string) (string, bool) {
	if ld == nil {
		return "", false
	}
	baseName := filepath.Base(filePath)
	if lang, ok := ld.filenameMap[baseName]; ok {
		return lang, true
	}
	if ext := extOf(baseName); ext != "" {
		if lang, ok := ld.extensionMap[ext]; ok {
			return lang, true
		}
	}
	return "", false
}

// lineCountsByLanguage groups included line counts by language. Files with an
// unknown language count toward "Other"; files with read errors are skipped.
func lineCountsByLanguage(files []FileEntry, ld *LoadedLanguageData) map[string]int {
	out := make(map[string]int)
	for _, f := range files {
		if f.Err != nil {
			continue
		}
		lang, ok := ld.GetLanguageForFile(f.Path)
		if !ok {
			lang = otherLanguage
		}
		out[lang] += f.Lines
	}
	for lang, n := range out {
		if n == 0 {
			delete(out, lang)
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
