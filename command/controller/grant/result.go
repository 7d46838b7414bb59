package grant

import (
	"bytes"
	"fmt"

	"github.com/xgr-network/xgr-keymanager/command/helper"
)

type GrantResult struct {
	Caller      string `json:"caller"`
	Controller  string `json:"controller"`
	Permissions string `json:"permissions"`
}

func (r *GrantResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString("\n[PERMISSIONS GRANTED]\n")
	buffer.WriteString(helper.FormatKV([]string{
		fmt.Sprintf("Caller|%s", r.Caller),
		fmt.Sprintf("Controller|%s", r.Controller),
		fmt.Sprintf("Permissions|%s", r.Permissions),
	}))
	buffer.WriteString("\n")

	return buffer.String()
}
