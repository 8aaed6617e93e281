package types

// BroadcastOutcome tags which variant a BroadcastResult holds.
type BroadcastOutcome uint8

const (
	// BroadcastAccepted: the node accepted the transaction into its mempool.
	BroadcastAccepted BroadcastOutcome = 1
	// BroadcastRejected: the node answered but refused the transaction.
	BroadcastRejected BroadcastOutcome = 2
)

func (o BroadcastOutcome) String() string {
	switch o {
	case BroadcastAccepted:
		return "accepted"
	case BroadcastRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// BroadcastResult is the classified answer of a node to a broadcast.
// Exactly one variant is populated: TxID for Accepted, Error and
// Reason for Rejected.
type BroadcastResult struct {
	Outcome BroadcastOutcome `cramberry:"1"`
	TxID    string           `cramberry:"2"`
	Error   string           `cramberry:"3"`
	Reason  string           `cramberry:"4"`
	// Raw JSON of the node's reason_data, if any.
	ReasonData []byte `cramberry:"5"`
}

// Accepted returns an Accepted result for txid.
func Accepted(txid string) BroadcastResult {
	return BroadcastResult{Outcome: BroadcastAccepted, TxID: txid}
}

// Rejected returns a Rejected result.
func Rejected(errMsg, reason string) BroadcastResult {
	return BroadcastResult{Outcome: BroadcastRejected, Error: errMsg, Reason: reason}
}

// OK returns true if the node accepted the transaction.
func (r BroadcastResult) OK() bool { return r.Outcome == BroadcastAccepted }

// Detail is the message reported to callers for a rejection: the
// node's reason when present, else its error.
func (r BroadcastResult) Detail() string {
	if r.Reason != "" {
		return r.Reason
	}
	return r.Error
}
