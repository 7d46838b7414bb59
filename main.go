package main

import (
	"github.com/xgr-network/xgr-keymanager/command/root"
)

func main() {
	root.NewRootCommand().Execute()
}
