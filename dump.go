package gsacache

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/hupe1980/gsacache/codec"
)

const dumpMagic = "gsacache-dump/1"

// DumpDocument is the diagnostic view of a cache written by Dump.
//
// Values are encoded with the configured codec; after ReadDump they come back
// as generic JSON values (maps, slices, strings, numbers).
type DumpDocument struct {
	SessionID    string            `json:"session_id"`
	Records      []DumpRecord      `json:"records"`
	Reservations []DumpReservation `json:"reservations"`
	Objects      []DumpObject      `json:"objects"`
}

// DumpRecord is one native record entry.
type DumpRecord struct {
	Position      int    `json:"position"`
	SchemaType    string `json:"schema_type"`
	Index         int    `json:"index,omitempty"`
	ApplicationID string `json:"application_id,omitempty"`
	StreamID      string `json:"stream_id,omitempty"`
	Latest        bool   `json:"latest"`
	Previous      bool   `json:"previous"`
	Alterable     bool   `json:"alterable"`
	Value         any    `json:"value"`
}

// DumpReservation is one provisional index.
type DumpReservation struct {
	SchemaType    string `json:"schema_type"`
	Index         int    `json:"index"`
	ApplicationID string `json:"application_id,omitempty"`
}

// DumpObject is one domain object entry.
type DumpObject struct {
	Position      int    `json:"position"`
	SchemaType    string `json:"schema_type"`
	ApplicationID string `json:"application_id,omitempty"`
	Layer         string `json:"layer"`
	Links         []int  `json:"links,omitempty"`
	Value         any    `json:"value"`
}

// Document returns the current state as a DumpDocument.
func (c *Cache) Document() *DumpDocument {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.document()
}

func (c *Cache) document() *DumpDocument {
	doc := &DumpDocument{SessionID: c.session}

	for _, e := range c.records.Entries() {
		doc.Records = append(doc.Records, DumpRecord{
			Position:      e.Position,
			SchemaType:    string(e.SchemaType),
			Index:         e.Index,
			ApplicationID: e.ApplicationID,
			StreamID:      e.StreamID,
			Latest:        e.Latest,
			Previous:      e.Previous,
			Alterable:     e.Alterable,
			Value:         e.Value,
		})
	}

	types := c.records.ReservationTypes()
	slices.Sort(types)
	for _, t := range types {
		for _, r := range c.records.Reservations(t) {
			doc.Reservations = append(doc.Reservations, DumpReservation{
				SchemaType:    string(t),
				Index:         r.Index,
				ApplicationID: r.ApplicationID,
			})
		}
	}

	for i, o := range c.objects.Objects() {
		doc.Objects = append(doc.Objects, DumpObject{
			Position:      i,
			SchemaType:    string(o.SchemaType),
			ApplicationID: o.ApplicationID,
			Layer:         o.Layer.String(),
			Links:         o.Links,
			Value:         o.Value,
		})
	}
	return doc
}

// Dump writes a compressed, codec-encoded DumpDocument to w.
//
// The first line is a plain-text header naming the codec and compression.
// Dumps are for inspection only; a cache is never restored from one.
func (c *Cache) Dump(w io.Writer) error {
	c.mu.Lock()
	doc := c.document()
	c.mu.Unlock()

	data, err := c.opts.codec.Marshal(doc)
	if err != nil {
		return fmt.Errorf("dump: encode: %w", err)
	}

	if _, err := fmt.Fprintf(w, "%s %s %s\n", dumpMagic, c.opts.codec.Name(), c.opts.compression); err != nil {
		return fmt.Errorf("dump: header: %w", err)
	}
	cw, err := codec.NewWriter(w, c.opts.compression)
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	if _, err := cw.Write(data); err != nil {
		cw.Close()
		return fmt.Errorf("dump: write: %w", err)
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("dump: flush: %w", err)
	}
	return nil
}

// ReadDump decodes a dump written by Dump.
func ReadDump(r io.Reader) (*DumpDocument, error) {
	br := bufio.NewReader(r)
	header, err := br.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read dump: header: %w", err)
	}

	fields := strings.Fields(header)
	if len(fields) != 3 || fields[0] != dumpMagic {
		return nil, fmt.Errorf("read dump: bad header %q", strings.TrimSpace(header))
	}
	cd, ok := codec.ByName(fields[1])
	if !ok {
		return nil, fmt.Errorf("read dump: unknown codec %q", fields[1])
	}
	comp, err := codec.ParseCompression(fields[2])
	if err != nil {
		return nil, fmt.Errorf("read dump: %w", err)
	}

	cr, err := codec.NewReader(br, comp)
	if err != nil {
		return nil, fmt.Errorf("read dump: %w", err)
	}
	defer cr.Close()

	data, err := io.ReadAll(cr)
	if err != nil {
		return nil, fmt.Errorf("read dump: %w", err)
	}
	var doc DumpDocument
	if err := cd.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("read dump: decode: %w", err)
	}
	return &doc, nil
}
