package execute

const (
	callerFlag  = "caller"
	valueFlag   = "value"
	payloadFlag = "payload"
)
