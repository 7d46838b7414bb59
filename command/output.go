package command

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// CommandResult is the renderable outcome of one CLI command.
type CommandResult interface {
	GetOutput() string
}

// Outputter collects a command's result or error and renders it once, in
// plain text or JSON depending on the --json flag.
type Outputter interface {
	SetError(err error)
	SetCommandResult(result CommandResult)
	WriteOutput()
}

func InitializeOutputter(cmd *cobra.Command) Outputter {
	if jsonFlag, _ := cmd.Flags().GetBool(JSONOutputFlag); jsonFlag {
		return &jsonOutput{}
	}

	return &cliOutput{}
}

type cliOutput struct {
	result CommandResult
	err    error
}

func (o *cliOutput) SetError(err error)                    { o.err = err }
func (o *cliOutput) SetCommandResult(result CommandResult) { o.result = result }

func (o *cliOutput) WriteOutput() {
	if o.err != nil {
		_, _ = fmt.Fprintln(os.Stderr, o.err.Error())
		os.Exit(1)
	}

	if o.result != nil {
		_, _ = fmt.Fprintln(os.Stdout, o.result.GetOutput())
	}
}

type jsonOutput struct {
	result CommandResult
	err    error
}

func (o *jsonOutput) SetError(err error)                    { o.err = err }
func (o *jsonOutput) SetCommandResult(result CommandResult) { o.result = result }

func (o *jsonOutput) WriteOutput() {
	if o.err != nil {
		marshalled, _ := json.Marshal(map[string]string{"error": o.err.Error()})
		_, _ = fmt.Fprintln(os.Stderr, string(marshalled))
		os.Exit(1)
	}

	if o.result != nil {
		marshalled, err := json.MarshalIndent(o.result, "", "    ")
		if err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}

		_, _ = fmt.Fprintln(os.Stdout, string(marshalled))
	}
}
