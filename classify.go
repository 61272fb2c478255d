package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path"
	"strings"
	"unicode/utf8"
)

// defaultExcludedExtensions lists binary or sensitive formats never folded into a report.
var defaultExcludedExtensions = []string{
	// compiled and object artifacts
	".o", ".a", ".so", ".dylib", ".dll", ".exe", ".out", ".bin", ".elf",
	// images, archives, media
	".png", ".jpg", ".jpeg", ".gif", ".bmp", ".ico", ".pdf", ".zip", ".tar",
	".gz", ".bz2", ".xz", ".7z", ".rar", ".mp3", ".mp4", ".wav", ".avi",
	// keys and certificates
	".crt", ".cert", ".pem", ".key", ".der", ".p12", ".pfx", ".csr", ".jks",
	// databases, editor state, bytecode
	".db", ".sqlite", ".lock", ".swp", ".swo", ".pyc", ".pyo", ".cache", ".vscode",
}

// defaultExcludedDirs are skipped entirely; matched case-sensitively.
var defaultExcludedDirs = []string{
	"node_modules",
	".git",
}

const defaultSniffBytes = 1024

// textBytes are the bytes tolerated in a prefix that failed UTF-8 validation.
var textBytes = func() [256]bool {
	var t [256]bool
	for b := 32; b < 127; b++ {
		t[b] = true
	}
	for _, b := range []byte{'\n', '\r', '\t', '\f', '\b'} {
		t[b] = true
	}
	return t
}()

// ClassifierConfig is the data a Classifier decides with.
type ClassifierConfig struct {
	ExcludedExtensions []string
	ExcludedDirs       []string
	// AllowExtensions, when non-empty, must also match for a file to be included.
	AllowExtensions []string
	SniffBytes      int
	MaxSize         int64 // 0 means no limit
	// DisableSniff turns off content sniffing; extension rules still apply.
	DisableSniff bool
}

// DefaultClassifierConfig returns the built-in denylists.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		ExcludedExtensions: append([]string(nil), defaultExcludedExtensions...),
		ExcludedDirs:       append([]string(nil), defaultExcludedDirs...),
		SniffBytes:         defaultSniffBytes,
	}
}

// Classifier decides whether files and directories belong in a walk.
type Classifier struct {
	excludedExt  map[string]struct{}
	excludedDirs map[string]struct{}
	allowExt     map[string]struct{}
	sniffBytes   int
	maxSize      int64
	sniff        bool
}

// NewClassifier builds lookup sets from cfg.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	c := &Classifier{
		excludedExt:  make(map[string]struct{}, len(cfg.ExcludedExtensions)),
		excludedDirs: make(map[string]struct{}, len(cfg.ExcludedDirs)),
		sniffBytes:   cfg.SniffBytes,
		maxSize:      cfg.MaxSize,
		sniff:        !cfg.DisableSniff,
	}
	if c.sniffBytes <= 0 {
		c.sniffBytes = defaultSniffBytes
	}
	for _, ext := range cfg.ExcludedExtensions {
		if ext = normalizeExt(ext); ext != "" {
			c.excludedExt[ext] = struct{}{}
		}
	}
	for _, d := range cfg.ExcludedDirs {
		if d = strings.TrimSpace(d); d != "" {
			c.excludedDirs[d] = struct{}{}
		}
	}
	if allow := parseExtensions(cfg.AllowExtensions); len(allow) > 0 {
		c.allowExt = make(map[string]struct{}, len(allow))
		for _, ext := range allow {
			c.allowExt[ext] = struct{}{}
		}
	}
	return c
}

// ExcludedDir reports whether a directory with this base name is never descended into.
func (c *Classifier) ExcludedDir(name string) bool {
	_, ok := c.excludedDirs[name]
	return ok
}

// Classify classifies rel, a slash-separated path relative to root.
// Any denylisted ancestor directory excludes the file.
func (c *Classifier) Classify(root, rel string) Classification {
	rel = strings.Trim(path.Clean("/"+rel), "/")
	parts := strings.Split(rel, "/")
	for _, dir := range parts[:len(parts)-1] {
		if c.ExcludedDir(dir) {
			return ExcludedByDirectory
		}
	}
	info, err := os.Stat(joinRel(root, rel))
	if err != nil {
		return ExcludedByBinarySniff
	}
	return c.ClassifyFile(joinRel(root, rel), info.Size())
}

// ClassifyFile applies the extension, allow-list, size and content rules to one file.
func (c *Classifier) ClassifyFile(filePath string, size int64) Classification {
	ext := extOf(path.Base(strings.ReplaceAll(filePath, "\\", "/")))
	if _, ok := c.excludedExt[ext]; ok {
		return ExcludedByExtension
	}
	if c.allowExt != nil {
		if _, ok := c.allowExt[ext]; !ok {
			return ExcludedByFilter
		}
	}
	if c.maxSize > 0 && size > c.maxSize {
		return ExcludedBySize
	}
	if c.sniff && isBinaryFile(filePath, c.sniffBytes) {
		return ExcludedByBinarySniff
	}
	return Included
}

// isBinaryFile sniffs the first n bytes of the file. Unreadable files count as binary.
func isBinaryFile(filePath string, n int) bool {
	f, err := os.Open(filePath)
	if err != nil {
		return true
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return true
	}
	return isBinaryChunk(buf[:read])
}

// isBinaryChunk reports whether a content prefix looks binary.
// A multibyte rune split by the prefix boundary fails validation and is treated as binary.
func isBinaryChunk(chunk []byte) bool {
	if bytes.IndexByte(chunk, 0) >= 0 {
		return true
	}
	if utf8.Valid(chunk) {
		return false
	}
	for _, b := range chunk {
		if !textBytes[b] {
			return true
		}
	}
	return false
}

// extOf returns the lowercased extension of a base name. Leading dots do not
// start an extension, so ".bashrc" has none.
func extOf(name string) string {
	trimmed := strings.TrimLeft(name, ".")
	i := strings.LastIndexByte(trimmed, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(trimmed[i:])
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// parseExtensions accepts repeated values and space or comma separated lists.
func parseExtensions(values []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range values {
		for _, f := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' }) {
			ext := normalizeExt(f)
			if ext == "" || seen[ext] {
				continue
			}
			seen[ext] = true
			out = append(out, ext)
		}
	}
	return out
}
