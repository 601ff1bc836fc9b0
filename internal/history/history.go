// Package history persists the lines typed at the prompt.
package history

import (
	"bufio"
	"fmt"
	"os"
	"sync"
)

type History struct {
	items    []string
	file     string
	maxItems int
	mu       sync.Mutex
}

// New loads file, keeping at most maxItems lines. An empty file name keeps
// history in memory only.
func New(file string, maxItems int) (*History, error) {
	if maxItems <= 0 {
		maxItems = 1000
	}
	h := &History{
		file:     file,
		maxItems: maxItems,
	}
	if err := h.load(); err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	return h, nil
}

// Add appends item and rewrites the history file.
func (h *History) Add(item string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n := len(h.items); n > 0 && h.items[n-1] == item {
		return nil
	}
	h.items = append(h.items, item)
	h.trim()
	return h.save()
}

func (h *History) GetAll() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]string{}, h.items...)
}

// Last returns up to n of the most recent items.
func (h *History) Last(n int) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n <= 0 || n > len(h.items) {
		n = len(h.items)
	}
	return append([]string{}, h.items[len(h.items)-n:]...)
}

func (h *History) trim() {
	if len(h.items) > h.maxItems {
		h.items = h.items[len(h.items)-h.maxItems:]
	}
}

func (h *History) load() error {
	if h.file == "" {
		return nil
	}
	file, err := os.Open(h.file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		h.items = append(h.items, scanner.Text())
	}
	h.trim()
	return scanner.Err()
}

func (h *History) save() error {
	if h.file == "" {
		return nil
	}
	file, err := os.Create(h.file)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, item := range h.items {
		if _, err := writer.WriteString(item + "\n"); err != nil {
			return err
		}
	}
	return writer.Flush()
}
