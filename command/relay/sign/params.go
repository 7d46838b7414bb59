package sign

const (
	keyFlag       = "key"
	channelFlag   = "channel"
	notBeforeFlag = "not-before"
	expiresAtFlag = "expires-at"
	valueFlag     = "value"
	payloadFlag   = "payload"
)
