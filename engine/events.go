package engine

import (
	"encoding/json"

	"vaultshare/db"
	"vaultshare/types"
	"vaultshare/utils"
)

// correlate derives a stable correlation id from the instruction's key
// fields so related audit events can be grouped.
func correlate(id types.InvestmentID, ver types.Version, extra ...byte) uint64 {
	buf := make([]byte, 0, 19+len(extra))
	buf = append(buf, id[:]...)
	buf = append(buf, ver[:]...)
	buf = append(buf, extra...)
	return utils.CorrelationID(buf)
}

func appendEvent(tx *db.Tx, typ types.EventType, id types.InvestmentID, ver types.Version,
	at int64, signers []types.Address, corr uint64, data interface{}) error {
	evt := &types.Event{
		Type:         typ,
		InvestmentID: id.String(),
		Version:      ver.String(),
		At:           at,
		Signers:      signerStrings(signers),
		Correlation:  corr,
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		evt.Data = json.RawMessage(raw)
	}
	return tx.AppendEvent(evt)
}
