package extract

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// History is the append-only ledger of object ids already extracted for a
// business class: plain text, one id per line. It is cleared explicitly on a
// full load and otherwise only ever appended to, so write order is preserved
// for auditability.
type History struct {
	path string
}

func NewHistory(path string) *History {
	return &History{path: path}
}

// IDs returns every id recorded in the ledger. A missing file means nothing
// has been extracted yet.
func (h *History) IDs() ([]string, error) {
	f, err := os.Open(h.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open history '%s': %w", h.path, err)
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id != "" {
			ids = append(ids, id)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history '%s': %w", h.path, err)
	}
	return ids, nil
}

// Append records ids at the end of the ledger.
func (h *History) Append(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	f, err := os.OpenFile(h.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open history '%s': %w", h.path, err)
	}
	defer f.Close()

	for _, id := range ids {
		if _, err := f.WriteString(id + "\n"); err != nil {
			return fmt.Errorf("failed to append to history '%s': %w", h.path, err)
		}
	}
	return nil
}

// Clear truncates the ledger, creating it if necessary. Invoked on full
// loads so nothing stale survives a wipe/replace extraction.
func (h *History) Clear() error {
	f, err := os.OpenFile(h.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to clear history '%s': %w", h.path, err)
	}
	return f.Close()
}

// NotExtracted returns the ids from the given list that are absent from the
// ledger, preserving the source order of the input.
func (h *History) NotExtracted(ids []string) ([]string, error) {
	recorded, err := h.IDs()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(recorded))
	for _, id := range recorded {
		seen[id] = struct{}{}
	}

	var remaining []string
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			remaining = append(remaining, id)
		}
	}
	return remaining, nil
}
