package execute

import (
	"bytes"
	"fmt"

	"github.com/xgr-network/xgr-keymanager/command/helper"
)

type ExecuteResult struct {
	Caller   string `json:"caller"`
	Value    string `json:"value"`
	Returned string `json:"returned"`
}

func (r *ExecuteResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString("\n[EXECUTION COMPLETED]\n")
	buffer.WriteString(helper.FormatKV([]string{
		fmt.Sprintf("Caller|%s", r.Caller),
		fmt.Sprintf("Value|%s", r.Value),
		fmt.Sprintf("Returned|%s", r.Returned),
	}))
	buffer.WriteString("\n")

	return buffer.String()
}
