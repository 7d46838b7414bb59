package grant

const (
	callerFlag      = "caller"
	controllerFlag  = "controller"
	permissionsFlag = "permissions"
)
