// Package exttool runs one external analyzer binary as a pipeline
// stage. Argument templates may reference {in} and {out}, replaced
// with the stage's input and output directories at run time.
package exttool

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/prosodylab/fluentcut/internal/ports"
)

var _ ports.StageTool = (*Adapter)(nil)

type Adapter struct {
	bin  string
	args []string
}

func New(bin string, args ...string) *Adapter {
	return &Adapter{bin: bin, args: args}
}

func (a *Adapter) Run(ctx context.Context, inputDir, outputDir string, params []string) (string, error) {
	argv := make([]string, 0, len(a.args)+len(params))
	for _, arg := range a.args {
		arg = strings.ReplaceAll(arg, "{in}", inputDir)
		arg = strings.ReplaceAll(arg, "{out}", outputDir)
		argv = append(argv, arg)
	}
	argv = append(argv, params...)

	cmd := exec.CommandContext(ctx, a.bin, argv...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return string(b), fmt.Errorf("%s failed: %w", a.bin, err)
	}
	return string(b), nil
}
