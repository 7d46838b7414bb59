package revoke

import (
	"bytes"
	"fmt"

	"github.com/xgr-network/xgr-keymanager/command/helper"
)

type RevokeResult struct {
	Caller     string `json:"caller"`
	Controller string `json:"controller"`
}

func (r *RevokeResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString("\n[PERMISSIONS REVOKED]\n")
	buffer.WriteString(helper.FormatKV([]string{
		fmt.Sprintf("Caller|%s", r.Caller),
		fmt.Sprintf("Controller|%s", r.Controller),
	}))
	buffer.WriteString("\n")

	return buffer.String()
}
