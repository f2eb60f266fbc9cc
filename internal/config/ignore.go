package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// LoadIgnoreFile reads the ignore file at {dir}/ignore. If the file does not
// exist, no patterns are returned without an error.
func LoadIgnoreFile(dir string) ([]string, error) {
	return ReadPatterns(filepath.Join(dir, "ignore"))
}

// ReadPatterns reads one pattern per line from path, in .gitignore style.
// Blank lines and "#" comments are skipped, as are negations ("!") which
// are not supported. A missing file yields no patterns.
func ReadPatterns(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip blank lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "!") {
			continue
		}

		patterns = append(patterns, line)
	}

	if err := scanner.Err(); err != nil {
		return patterns, err
	}

	return patterns, nil
}
