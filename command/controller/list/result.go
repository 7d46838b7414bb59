package list

import (
	"bytes"
	"fmt"

	"github.com/xgr-network/xgr-keymanager/command/helper"
)

type ControllerEntry struct {
	Index       uint64 `json:"index"`
	Address     string `json:"address,omitempty"`
	Permissions string `json:"permissions,omitempty"`
	Revoked     bool   `json:"revoked,omitempty"`
}

type ListResult struct {
	Controllers []ControllerEntry `json:"controllers"`
}

func (r *ListResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString(fmt.Sprintf("\n[CONTROLLERS] (%d)\n", len(r.Controllers)))

	rows := make([]string, 0, len(r.Controllers)+1)
	rows = append(rows, "INDEX|ADDRESS|PERMISSIONS")

	for _, c := range r.Controllers {
		if c.Revoked {
			rows = append(rows, fmt.Sprintf("%d|<revoked>|", c.Index))

			continue
		}

		rows = append(rows, fmt.Sprintf("%d|%s|%s", c.Index, c.Address, c.Permissions))
	}

	buffer.WriteString(helper.FormatList(rows))
	buffer.WriteString("\n")

	return buffer.String()
}
