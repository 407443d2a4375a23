// Package sources turns payloads produced by retrieval backends into ranked
// lists. It performs no network I/O.
package sources

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/searchforge/rank_fusion/fuse"
)

// Format names a payload layout.
type Format string

const (
	// FormatList is `{"source": "...", "items": [{"key": "...", "weight": 1.0}]}`.
	FormatList Format = "list"
	// FormatQdrant is a Qdrant points/search response:
	// `{"result": [{"id": ..., "score": 0.9, "payload": {...}}]}`.
	FormatQdrant Format = "qdrant"
)

// ParseFormat resolves a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatList:
		return FormatList, nil
	case FormatQdrant:
		return FormatQdrant, nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// Decode reads one list in format from r. source names the list when the
// payload does not carry its own name.
func Decode(r io.Reader, format Format, source string) (fuse.RankedList, error) {
	switch format {
	case FormatQdrant:
		return decodeQdrant(r, source)
	case FormatList, "":
		return decodeList(r, source)
	}
	return fuse.RankedList{}, fmt.Errorf("unknown format %q", format)
}

// LoadFile decodes path. The file's base name, without extension, is used as
// the source when the payload has none.
func LoadFile(path string, format Format) (fuse.RankedList, error) {
	f, err := os.Open(path)
	if err != nil {
		return fuse.RankedList{}, err
	}
	defer f.Close()

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	list, err := Decode(f, format, base)
	if err != nil {
		return fuse.RankedList{}, fmt.Errorf("%s: %w", path, err)
	}
	return list, nil
}

// CanonicalKey applies NFKC and trims surrounding space so keys emitted by
// different backends join.
func CanonicalKey(key string) string {
	return strings.TrimSpace(norm.NFKC.String(key))
}

// CanonicalizeKeys returns a copy of lists with every key canonicalized.
func CanonicalizeKeys(lists []fuse.RankedList) []fuse.RankedList {
	out := make([]fuse.RankedList, len(lists))
	for i, list := range lists {
		items := make([]fuse.Item, len(list.Items))
		for j, it := range list.Items {
			items[j] = fuse.Item{Key: CanonicalKey(it.Key), Weight: it.Weight}
		}
		out[i] = fuse.RankedList{Source: list.Source, Items: items}
	}
	return out
}

func decodeList(r io.Reader, source string) (fuse.RankedList, error) {
	var list fuse.RankedList
	if err := json.NewDecoder(r).Decode(&list); err != nil {
		return fuse.RankedList{}, fmt.Errorf("decode list: %w", err)
	}
	if list.Source == "" {
		list.Source = source
	}
	return list, nil
}

func decodeQdrant(r io.Reader, source string) (fuse.RankedList, error) {
	type point struct {
		ID    any     `json:"id"`
		Score float64 `json:"score"`
	}
	var payload struct {
		Result []point `json:"result"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return fuse.RankedList{}, fmt.Errorf("decode qdrant response: %w", err)
	}

	list := fuse.RankedList{
		Source: source,
		Items:  make([]fuse.Item, 0, len(payload.Result)),
	}
	for _, pt := range payload.Result {
		list.Items = append(list.Items, fuse.Item{
			Key:    pointID(pt.ID),
			Weight: pt.Score,
		})
	}
	return list, nil
}

// pointID renders Qdrant ids, which are unsigned integers or UUID strings.
func pointID(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
