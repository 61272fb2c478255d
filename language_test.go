package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLanguageData_BuiltIn(t *testing.T) {
	ld, err := loadLanguageData([]string{t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "built-in", ld.Source)

	cases := map[string]string{
		"src/main.c":     "C",
		"include/mesh.H": "C",
		"Makefile":       "Makefile",
		"cmd/x/main.go":  "Go",
		"CMakeLists.txt": "CMake",
	}
	for p, want := range cases {
		got, ok := ld.GetLanguageForFile(p)
		assert.True(t, ok, p)
		assert.Equal(t, want, got, p)
	}

	_, ok := ld.GetLanguageForFile(".bashrc")
	assert.False(t, ok)
}

func TestLoadLanguageData_OverrideWins(t *testing.T) {
	empty := t.TempDir()
	dir := t.TempDir()
	override := "Mesh:\n  type: programming\n  extensions: [\"mesh\"]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "languages.yml"), []byte(override), 0o644))

	ld, err := loadLanguageData([]string{empty, dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "languages.yml"), ld.Source)

	lang, ok := ld.GetLanguageForFile("orders.mesh")
	assert.True(t, ok)
	assert.Equal(t, "Mesh", lang)
	_, ok = ld.GetLanguageForFile("main.c")
	assert.False(t, ok)
}

func TestLoadLanguageData_BadOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "languages.yml"), []byte("- not: [a map"), 0o644))

	_, err := loadLanguageData([]string{dir})
	assert.ErrorContains(t, err, "error parsing language file")
}

func TestGetLanguageForFile_NilData(t *testing.T) {
	var ld *LoadedLanguageData
	_, ok := ld.GetLanguageForFile("main.c")
	assert.False(t, ok)
}

func TestLineCountsByLanguage(t *testing.T) {
	ld, err := loadLanguageData(nil)
	require.NoError(t, err)

	files := []FileEntry{
		{Path: "a.c", Lines: 10},
		{Path: "b.h", Lines: 5},
		{Path: "notes.txt", Lines: 2},
		{Path: "empty.py", Lines: 0},
		{Path: "broken.go", Lines: 7, Err: os.ErrPermission},
	}
	assert.Equal(t, map[string]int{"C": 15, "Other": 2}, lineCountsByLanguage(files, ld))
}
