package send

const (
	envelopeFlag  = "envelope"
	signatureFlag = "signature"
	nonceFlag     = "nonce"
	notBeforeFlag = "not-before"
	expiresAtFlag = "expires-at"
	valueFlag     = "value"
	payloadFlag   = "payload"
)
