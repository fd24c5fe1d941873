package types

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// Account data layout follows the external interface contract: an 8-byte
// discriminator header followed by little-endian fields at fixed offsets.
// The discriminator is the first 8 bytes of sha256("account:<Name>").

func discriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

var (
	DiscInvestmentInfo   = discriminator("InvestmentInfo")
	DiscInvestmentRecord = discriminator("InvestmentRecord")
	DiscProfitShareCache = discriminator("ProfitShareCache")
	DiscRefundShareCache = discriminator("RefundShareCache")
	DiscVault            = discriminator("Vault")
	DiscTokenAccount     = discriminator("TokenAccount")
)

// InvestmentRecord fixed offsets, exported for range-filter queries that
// match raw account bytes without a full decode.
const (
	RecordOffBatchID      = 8
	RecordOffRecordID     = 10
	RecordOffAccountID    = 18
	RecordOffInvestmentID = 33
	RecordOffVersion      = 48
	RecordOffWallet       = 52
	RecordOffAmountUsdt   = 84
	RecordOffAmountHcoin  = 92
	RecordOffStage        = 100
	RecordOffRevokedAt    = 101
	RecordOffCreatedAt    = 109
	RecordSize            = 117
)

type codecBuf struct {
	b []byte
}

func (w *codecBuf) u8(v uint8)   { w.b = append(w.b, v) }
func (w *codecBuf) u16(v uint16) { w.b = binary.LittleEndian.AppendUint16(w.b, v) }
func (w *codecBuf) u32(v uint32) { w.b = binary.LittleEndian.AppendUint32(w.b, v) }
func (w *codecBuf) u64(v uint64) { w.b = binary.LittleEndian.AppendUint64(w.b, v) }
func (w *codecBuf) i64(v int64)  { w.u64(uint64(v)) }
func (w *codecBuf) raw(v []byte) { w.b = append(w.b, v...) }
func (w *codecBuf) bool(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

type codecReader struct {
	b   []byte
	off int
	err error
}

func (r *codecReader) need(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.b) {
		r.err = fmt.Errorf("account data truncated at offset %d (need %d of %d)", r.off, n, len(r.b))
		return nil
	}
	out := r.b[r.off : r.off+n]
	r.off += n
	return out
}

func (r *codecReader) u8() uint8 {
	v := r.need(1)
	if v == nil {
		return 0
	}
	return v[0]
}

func (r *codecReader) u16() uint16 {
	v := r.need(2)
	if v == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(v)
}

func (r *codecReader) u32() uint32 {
	v := r.need(4)
	if v == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(v)
}

func (r *codecReader) u64() uint64 {
	v := r.need(8)
	if v == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(v)
}

func (r *codecReader) i64() int64 { return int64(r.u64()) }

func (r *codecReader) bool() bool { return r.u8() != 0 }

func (r *codecReader) address() Address {
	var a Address
	copy(a[:], r.need(32))
	return a
}

func checkDisc(data []byte, want [8]byte, name string) error {
	if len(data) < 8 {
		return fmt.Errorf("%s: account data too short", name)
	}
	var got [8]byte
	copy(got[:], data[:8])
	if got != want {
		return fmt.Errorf("%s: discriminator mismatch", name)
	}
	return nil
}

func marshalWhitelist(w *codecBuf, list []Address) {
	w.u32(uint32(len(list)))
	for _, a := range list {
		w.raw(a[:])
	}
}

func (r *codecReader) whitelist() []Address {
	n := r.u32()
	if r.err != nil || n > MaxWhitelistLen {
		if n > MaxWhitelistLen && r.err == nil {
			r.err = fmt.Errorf("whitelist length %d exceeds %d", n, MaxWhitelistLen)
		}
		return nil
	}
	out := make([]Address, 0, n)
	for i := uint32(0); i < n; i++ {
		out = append(out, r.address())
	}
	return out
}

// ========== InvestmentInfo ==========

func (info *InvestmentInfo) Marshal() []byte {
	w := &codecBuf{b: make([]byte, 0, 772)}
	w.raw(DiscInvestmentInfo[:])
	w.raw(info.InvestmentID[:])
	w.raw(info.Version[:])
	w.u8(uint8(info.InvestmentType))
	for s := 0; s < MaxStage; s++ {
		w.raw(info.StageRatio[s][:])
	}
	w.i64(info.StartAt)
	w.i64(info.EndAt)
	w.u64(info.InvestmentUpperLimit)
	marshalWhitelist(w, info.ExecuteWhitelist)
	marshalWhitelist(w, info.UpdateWhitelist)
	marshalWhitelist(w, info.WithdrawWhitelist)
	w.raw(info.Vault[:])
	w.u16(uint16(info.State))
	w.bool(info.IsActive)
	w.i64(info.CreatedAt)
	return w.b
}

func UnmarshalInvestmentInfo(data []byte) (*InvestmentInfo, error) {
	if err := checkDisc(data, DiscInvestmentInfo, "InvestmentInfo"); err != nil {
		return nil, err
	}
	r := &codecReader{b: data, off: 8}
	info := &InvestmentInfo{}
	copy(info.InvestmentID[:], r.need(15))
	copy(info.Version[:], r.need(4))
	info.InvestmentType = InvestmentType(r.u8())
	for s := 0; s < MaxStage; s++ {
		copy(info.StageRatio[s][:], r.need(StageRatioSlots))
	}
	info.StartAt = r.i64()
	info.EndAt = r.i64()
	info.InvestmentUpperLimit = r.u64()
	info.ExecuteWhitelist = r.whitelist()
	info.UpdateWhitelist = r.whitelist()
	info.WithdrawWhitelist = r.whitelist()
	info.Vault = r.address()
	info.State = InvestmentState(r.u16())
	info.IsActive = r.bool()
	info.CreatedAt = r.i64()
	if r.err != nil {
		return nil, fmt.Errorf("InvestmentInfo: %w", r.err)
	}
	return info, nil
}

// ========== InvestmentRecord ==========

func (rec *InvestmentRecord) Marshal() []byte {
	w := &codecBuf{b: make([]byte, 0, RecordSize)}
	w.raw(DiscInvestmentRecord[:])
	w.u16(rec.BatchID)
	w.u64(rec.RecordID)
	w.raw(rec.AccountID[:])
	w.raw(rec.InvestmentID[:])
	w.raw(rec.Version[:])
	w.raw(rec.Wallet[:])
	w.u64(rec.AmountUsdt)
	w.u64(rec.AmountHcoin)
	w.u8(rec.Stage)
	w.i64(rec.RevokedAt)
	w.i64(rec.CreatedAt)
	return w.b
}

func UnmarshalInvestmentRecord(data []byte) (*InvestmentRecord, error) {
	if err := checkDisc(data, DiscInvestmentRecord, "InvestmentRecord"); err != nil {
		return nil, err
	}
	if len(data) != RecordSize {
		return nil, fmt.Errorf("InvestmentRecord: size %d, want %d", len(data), RecordSize)
	}
	r := &codecReader{b: data, off: 8}
	rec := &InvestmentRecord{}
	rec.BatchID = r.u16()
	rec.RecordID = r.u64()
	copy(rec.AccountID[:], r.need(15))
	copy(rec.InvestmentID[:], r.need(15))
	copy(rec.Version[:], r.need(4))
	rec.Wallet = r.address()
	rec.AmountUsdt = r.u64()
	rec.AmountHcoin = r.u64()
	rec.Stage = r.u8()
	rec.RevokedAt = r.i64()
	rec.CreatedAt = r.i64()
	if r.err != nil {
		return nil, fmt.Errorf("InvestmentRecord: %w", r.err)
	}
	return rec, nil
}

// ========== ProfitShareCache ==========

func (c *ProfitShareCache) Marshal() []byte {
	w := &codecBuf{}
	w.raw(DiscProfitShareCache[:])
	w.u16(c.BatchID)
	w.raw(c.InvestmentID[:])
	w.raw(c.Version[:])
	w.u64(c.SubtotalProfitUsdt)
	w.u64(c.SubtotalEstimateNative)
	w.i64(c.ExecutedAt)
	w.i64(c.CreatedAt)
	w.u32(uint32(len(c.Entries)))
	for _, e := range c.Entries {
		w.raw(e.AccountID[:])
		w.raw(e.Wallet[:])
		w.u64(e.AmountUsdt)
		w.u16(e.RatioBp)
		w.raw(e.RecipientToken[:])
	}
	return w.b
}

func UnmarshalProfitShareCache(data []byte) (*ProfitShareCache, error) {
	if err := checkDisc(data, DiscProfitShareCache, "ProfitShareCache"); err != nil {
		return nil, err
	}
	r := &codecReader{b: data, off: 8}
	c := &ProfitShareCache{}
	c.BatchID = r.u16()
	copy(c.InvestmentID[:], r.need(15))
	copy(c.Version[:], r.need(4))
	c.SubtotalProfitUsdt = r.u64()
	c.SubtotalEstimateNative = r.u64()
	c.ExecutedAt = r.i64()
	c.CreatedAt = r.i64()
	n := r.u32()
	if r.err == nil && n > MaxEntriesPerBatch {
		return nil, fmt.Errorf("ProfitShareCache: %d entries exceed %d", n, MaxEntriesPerBatch)
	}
	for i := uint32(0); i < n && r.err == nil; i++ {
		var e ProfitEntry
		copy(e.AccountID[:], r.need(15))
		e.Wallet = r.address()
		e.AmountUsdt = r.u64()
		e.RatioBp = r.u16()
		e.RecipientToken = r.address()
		c.Entries = append(c.Entries, e)
	}
	if r.err != nil {
		return nil, fmt.Errorf("ProfitShareCache: %w", r.err)
	}
	return c, nil
}

// ========== RefundShareCache ==========

func (c *RefundShareCache) Marshal() []byte {
	w := &codecBuf{}
	w.raw(DiscRefundShareCache[:])
	w.u16(c.BatchID)
	w.u8(c.YearIndex)
	w.raw(c.InvestmentID[:])
	w.raw(c.Version[:])
	w.u64(c.SubtotalRefundHcoin)
	w.u64(c.SubtotalEstimateNative)
	w.i64(c.ExecutedAt)
	w.i64(c.CreatedAt)
	w.u32(uint32(len(c.Entries)))
	for _, e := range c.Entries {
		w.raw(e.AccountID[:])
		w.raw(e.Wallet[:])
		w.u64(e.AmountHcoin)
		w.u8(e.Stage)
		w.raw(e.RecipientToken[:])
	}
	return w.b
}

func UnmarshalRefundShareCache(data []byte) (*RefundShareCache, error) {
	if err := checkDisc(data, DiscRefundShareCache, "RefundShareCache"); err != nil {
		return nil, err
	}
	r := &codecReader{b: data, off: 8}
	c := &RefundShareCache{}
	c.BatchID = r.u16()
	c.YearIndex = r.u8()
	copy(c.InvestmentID[:], r.need(15))
	copy(c.Version[:], r.need(4))
	c.SubtotalRefundHcoin = r.u64()
	c.SubtotalEstimateNative = r.u64()
	c.ExecutedAt = r.i64()
	c.CreatedAt = r.i64()
	n := r.u32()
	if r.err == nil && n > MaxEntriesPerBatch {
		return nil, fmt.Errorf("RefundShareCache: %d entries exceed %d", n, MaxEntriesPerBatch)
	}
	for i := uint32(0); i < n && r.err == nil; i++ {
		var e RefundEntry
		copy(e.AccountID[:], r.need(15))
		e.Wallet = r.address()
		e.AmountHcoin = r.u64()
		e.Stage = r.u8()
		e.RecipientToken = r.address()
		c.Entries = append(c.Entries, e)
	}
	if r.err != nil {
		return nil, fmt.Errorf("RefundShareCache: %w", r.err)
	}
	return c, nil
}

// ========== Vault ==========

func (v *Vault) Marshal() []byte {
	w := &codecBuf{}
	w.raw(DiscVault[:])
	w.raw(v.InvestmentID[:])
	w.raw(v.Version[:])
	w.u64(v.NativeBalance)
	w.i64(v.CreatedAt)
	return w.b
}

func UnmarshalVault(data []byte) (*Vault, error) {
	if err := checkDisc(data, DiscVault, "Vault"); err != nil {
		return nil, err
	}
	r := &codecReader{b: data, off: 8}
	v := &Vault{}
	copy(v.InvestmentID[:], r.need(15))
	copy(v.Version[:], r.need(4))
	v.NativeBalance = r.u64()
	v.CreatedAt = r.i64()
	if r.err != nil {
		return nil, fmt.Errorf("Vault: %w", r.err)
	}
	return v, nil
}

// ========== TokenAccount ==========

func (t *TokenAccount) Marshal() []byte {
	w := &codecBuf{}
	w.raw(DiscTokenAccount[:])
	w.raw(t.Wallet[:])
	w.raw(t.Mint[:])
	w.u64(t.Balance)
	w.i64(t.CreatedAt)
	return w.b
}

func UnmarshalTokenAccount(data []byte) (*TokenAccount, error) {
	if err := checkDisc(data, DiscTokenAccount, "TokenAccount"); err != nil {
		return nil, err
	}
	r := &codecReader{b: data, off: 8}
	t := &TokenAccount{}
	t.Wallet = r.address()
	t.Mint = r.address()
	t.Balance = r.u64()
	t.CreatedAt = r.i64()
	if r.err != nil {
		return nil, fmt.Errorf("TokenAccount: %w", r.err)
	}
	return t, nil
}
