package eval

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadDataset reads an ordered dataset of items from a JSON array file or,
// for .jsonl files, one JSON object per line.
func LoadDataset(path string) ([]Item, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %q: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".jsonl") {
		return parseJSONL(path, content)
	}
	return parseJSONArray(path, content)
}

func parseJSONArray(path string, content []byte) ([]Item, error) {
	var items []Item
	if err := json.Unmarshal(content, &items); err != nil {
		return nil, fmt.Errorf("failed to decode dataset %q: %w", path, err)
	}
	if err := checkItems(path, items); err != nil {
		return nil, err
	}
	return items, nil
}

func parseJSONL(path string, content []byte) ([]Item, error) {
	var items []Item
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var item Item
		if err := json.Unmarshal([]byte(text), &item); err != nil {
			return nil, fmt.Errorf("failed to decode dataset %q line %d: %w", path, line, err)
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan dataset %q: %w", path, err)
	}
	if err := checkItems(path, items); err != nil {
		return nil, err
	}
	return items, nil
}

func checkItems(path string, items []Item) error {
	if len(items) == 0 {
		return fmt.Errorf("dataset %q contains no items", path)
	}
	for i, item := range items {
		if strings.TrimSpace(item.Input) == "" {
			return fmt.Errorf("dataset %q item %d has empty input", path, i)
		}
	}
	return nil
}
