package models

// Requests for the admin HTTP endpoints. Defined in domain for consistency and reuse.

// AdminCommandRequest mirrors the wire protocol of the original admin channel.
// Field-level presence checks happen in Command(); validator only gates the
// envelope.
type AdminCommandRequest struct {
	Cmd   string   `json:"cmd" validate:"required"`
	ID    *string  `json:"id"`
	Mu    *float64 `json:"mu"`
	Sigma *float64 `json:"sigma"`
}

// Command converts the bound request into a typed Command.
func (r AdminCommandRequest) Command() (Command, error) {
	return commandFromWire(adminWire{Cmd: r.Cmd, ID: r.ID, Mu: r.Mu, Sigma: r.Sigma})
}

// AuditRequest bounds the audit journal query.
type AuditRequest struct {
	Limit int `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
}

// AdminAck is the acknowledgment shape shared with the original protocol.
type AdminAck struct {
	Status string `json:"status"` // OK or ERROR
	Msg    string `json:"msg"`
}

// ClientEntry is one roster row returned by the clients endpoint.
type ClientEntry struct {
	ID    string  `json:"id"`
	Mu    float64 `json:"mu"`
	Sigma float64 `json:"sigma"`
}
