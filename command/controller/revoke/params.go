package revoke

const (
	callerFlag     = "caller"
	controllerFlag = "controller"
)
