package setup

const setupFileFlag = "setup"

type setupParams struct {
	setupPath string
}
