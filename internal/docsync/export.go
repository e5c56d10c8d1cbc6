package docsync

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
)

// Bulk logs every serialized session of a bulk export. It is diagnostic only
// and performs no store I/O.
func (e *Engine) Bulk(docs iter.Seq2[json.RawMessage, error]) {
	e.log.Print("bulk export")
	n := 0
	for doc, err := range docs {
		if err != nil {
			e.log.Printf("bulk export: %v", err)
			continue
		}
		e.log.Printf("bulk[%d] %s", n, doc)
		n++
	}
}

// WriteBulk writes each serialized session of a bulk export as one JSON line.
func WriteBulk(w io.Writer, docs iter.Seq2[json.RawMessage, error]) (int, error) {
	n := 0
	for doc, err := range docs {
		if err != nil {
			return n, fmt.Errorf("export session %d: %w", n, err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", doc); err != nil {
			return n, fmt.Errorf("write session %d: %w", n, err)
		}
		n++
	}
	return n, nil
}
