package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jeertmans/jinglebox/internal/model"
)

// jingleDoc is the on-disk shape of jingles.toml.
type jingleDoc struct {
	Jingles []jingleEntry `toml:"jingles"`
}

// jingleEntry keeps Offset loosely typed: older files store plain seconds
// (integer or float), newer ones duration strings like "1m30s".
type jingleEntry struct {
	Name   string `toml:"name,omitempty"`
	File   string `toml:"file"`
	Offset any    `toml:"offset,omitempty"`
	Anchor string `toml:"anchor,omitempty"`
}

// LoadJingles reads jingle definitions from a TOML file.
func LoadJingles(path string) ([]model.Jingle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc jingleDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	jingles := make([]model.Jingle, 0, len(doc.Jingles))
	for i, entry := range doc.Jingles {
		offset, err := parseOffset(entry.Offset)
		if err != nil {
			return nil, fmt.Errorf("jingle %d (%s): %w", i+1, entry.Name, err)
		}

		anchor, err := model.ParseAnchor(entry.Anchor)
		if err != nil {
			return nil, fmt.Errorf("jingle %d (%s): %w", i+1, entry.Name, err)
		}

		j := model.Jingle{
			Name:   entry.Name,
			File:   expandPath(entry.File),
			Offset: offset,
			Anchor: anchor,
		}
		if err := j.Validate(); err != nil {
			return nil, fmt.Errorf("jingle %d (%s): %w", i+1, entry.Name, err)
		}
		jingles = append(jingles, j)
	}

	return jingles, nil
}

// SaveJingles writes jingle definitions to a TOML file.
func SaveJingles(path string, jingles []model.Jingle) error {
	doc := jingleDoc{Jingles: make([]jingleEntry, 0, len(jingles))}
	for _, j := range jingles {
		doc.Jingles = append(doc.Jingles, jingleEntry{
			Name:   j.Name,
			File:   j.File,
			Offset: j.Offset.String(),
			Anchor: string(j.Anchor),
		})
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(doc)
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// parseOffset accepts a duration string, integer seconds, or float seconds.
func parseOffset(v any) (time.Duration, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case string:
		d, err := time.ParseDuration(val)
		if err != nil {
			return 0, fmt.Errorf("invalid offset %q: must be like '90s', '1m30s': %w", val, err)
		}
		return d, nil
	case int64:
		return time.Duration(val) * time.Second, nil
	case float64:
		return time.Duration(val * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("invalid offset type %T: must be seconds or a duration string", v)
	}
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
