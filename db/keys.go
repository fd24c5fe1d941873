// db/keys.go
package db

import (
	"fmt"

	"vaultshare/types"
)

// ===================== 版本控制 =====================
// 全局 Key 版本前缀（"v1" → 产出 "v1_<key>"）。
const KeyVersion = "v1"

func withVer(s string) string {
	if KeyVersion == "" {
		return s
	}
	return KeyVersion + "_" + s
}

// —— 账户 ——
// 例：acct_<base58 address>
func KeyAccount(addr types.Address) string {
	return withVer("acct_" + addr.String())
}

// —— 记录批次索引 ——
// 例：recidx_<invId hex>_<ver hex>_<batch>_<recordId>
// 值为记录账户地址。batch/recordId 零填充保证字典序即数值序，
// 支持按批次的范围扫描。
func KeyRecordIndex(id types.InvestmentID, ver types.Version, batchID uint16, recordID uint64) string {
	return fmt.Sprintf("%s%020d", KeyRecordIndexPrefix(id, ver, batchID), recordID)
}

// 例：recidx_<invId hex>_<ver hex>_<batch>_
func KeyRecordIndexPrefix(id types.InvestmentID, ver types.Version, batchID uint16) string {
	return fmt.Sprintf("%s%05d_", KeyRecordBatchPrefix(id, ver), batchID)
}

// 例：recidx_<invId hex>_<ver hex>_
func KeyRecordBatchPrefix(id types.InvestmentID, ver types.Version) string {
	return withVer(fmt.Sprintf("recidx_%x_%x_", id[:], ver[:]))
}

// —— 事件日志 ——
// 例：evt_<seq>
func KeyEvent(seq uint64) string {
	return withVer(fmt.Sprintf("evt_%020d", seq))
}

func KeyEventPrefix() string { return withVer("evt_") }

// —— 槽位计数 ——
func KeySlot() string { return withVer("current_slot") }

// —— 事件发号器 ——
func KeyEventSeq() string { return withVer("event_seq") }
