package types

import "fmt"

// LookupKind distinguishes the two table contents: "record" tables list a
// batch's investment-record addresses, "cache" tables list the batch's
// cache-entry recipient token accounts.
type LookupKind uint8

const (
	LookupKindRecord LookupKind = 0
	LookupKindCache  LookupKind = 1
)

func (k LookupKind) String() string {
	switch k {
	case LookupKindRecord:
		return "record"
	case LookupKindCache:
		return "cache"
	default:
		return "unknown"
	}
}

// LookupChunk records one bounded extension of a table, with a murmur3
// checksum over the appended address bytes.
type LookupChunk struct {
	Offset   uint32
	Len      uint16
	Checksum uint64
}

// LookupTable is an append-only address table, created once per
// (kind, batch) and extended in bounded chunks. It becomes resolvable one
// slot after its last extension.
type LookupTable struct {
	Kind             LookupKind
	InvestmentID     InvestmentID
	Version          Version
	BatchID          uint16
	YearIndex        uint8 // refund cache tables only; 0 otherwise
	Addresses        []Address
	Chunks           []LookupChunk
	CreatedSlot      uint64
	LastExtendedSlot uint64
	CreatedAt        int64
}

func (t *LookupTable) Address() Address {
	return LookupTableAddress(t.Kind, t.InvestmentID, t.Version, t.BatchID, t.YearIndex)
}

// Resolvable reports whether the table can be referenced at the given slot.
func (t *LookupTable) Resolvable(slot uint64) bool {
	return slot > t.LastExtendedSlot
}

var DiscLookupTable = discriminator("LookupTable")

func (t *LookupTable) Marshal() []byte {
	w := &codecBuf{}
	w.raw(DiscLookupTable[:])
	w.u8(uint8(t.Kind))
	w.raw(t.InvestmentID[:])
	w.raw(t.Version[:])
	w.u16(t.BatchID)
	w.u8(t.YearIndex)
	w.u64(t.CreatedSlot)
	w.u64(t.LastExtendedSlot)
	w.i64(t.CreatedAt)
	w.u32(uint32(len(t.Addresses)))
	for _, a := range t.Addresses {
		w.raw(a[:])
	}
	w.u32(uint32(len(t.Chunks)))
	for _, c := range t.Chunks {
		w.u32(c.Offset)
		w.u16(c.Len)
		w.u64(c.Checksum)
	}
	return w.b
}

func UnmarshalLookupTable(data []byte) (*LookupTable, error) {
	if err := checkDisc(data, DiscLookupTable, "LookupTable"); err != nil {
		return nil, err
	}
	r := &codecReader{b: data, off: 8}
	t := &LookupTable{}
	t.Kind = LookupKind(r.u8())
	copy(t.InvestmentID[:], r.need(15))
	copy(t.Version[:], r.need(4))
	t.BatchID = r.u16()
	t.YearIndex = r.u8()
	t.CreatedSlot = r.u64()
	t.LastExtendedSlot = r.u64()
	t.CreatedAt = r.i64()
	n := r.u32()
	for i := uint32(0); i < n && r.err == nil; i++ {
		t.Addresses = append(t.Addresses, r.address())
	}
	m := r.u32()
	for i := uint32(0); i < m && r.err == nil; i++ {
		var c LookupChunk
		c.Offset = r.u32()
		c.Len = r.u16()
		c.Checksum = r.u64()
		t.Chunks = append(t.Chunks, c)
	}
	if r.err != nil {
		return nil, fmt.Errorf("LookupTable: %w", r.err)
	}
	return t, nil
}
