package orbitctl

import (
	"encoding/json"
	"fmt"
	"io/ioutil"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/orbitcore/profiler/config"
	"github.com/orbitcore/profiler/preset"
	"github.com/orbitcore/profiler/symtab"
)

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Build and apply instrumented-function presets",
}

var presetApplyCmd = &cobra.Command{
	Use:   "apply <preset.json> <modules.json>",
	Short: "Apply a preset to a module list and print which functions it selects",
	Args:  cobra.ExactArgs(2),
	RunE:  wrap(runPresetApply),
}

func init() {
	RootCmd.AddCommand(presetCmd)
	presetCmd.AddCommand(presetApplyCmd)
}

// moduleSpec is the on-disk shape orbitctl reads module descriptions from:
// enough to rebuild a symtab.Module and load its symbols.
type moduleSpec struct {
	Path    string              `json:"path"`
	Start   uint64              `json:"start"`
	End     uint64              `json:"end"`
	Symbols symtab.ModuleSymbols `json:"symbols"`
}

func loadModuleSpecs(path string) ([]*symtab.Module, error) {
	js, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "orbitctl: reading module list")
	}
	var specs []moduleSpec
	if err := json.Unmarshal(js, &specs); err != nil {
		return nil, errors.Wrap(err, "orbitctl: parsing module list")
	}
	modules := make([]*symtab.Module, 0, len(specs))
	for _, s := range specs {
		m := symtab.New(s.Path, s.Start, s.End)
		m.LoadSymbols(s.Symbols)
		modules = append(modules, m)
	}
	return modules, nil
}

func runPresetApply(conf *config.Config, cmd *cobra.Command, args []string) error {
	p, err := preset.Load(args[0])
	if err != nil {
		return errors.Wrap(err, "orbitctl: loading preset")
	}
	modules, err := loadModuleSpecs(args[1])
	if err != nil {
		return err
	}
	preset.ApplyTo(p, modules)

	table := defaultTable(cmd.OutOrStdout())
	table.SetHeader([]string{"Module", "Function", "Address"})
	for _, m := range modules {
		m.Walk(func(fn *symtab.Function) {
			if fn.Selected {
				table.Append([]string{m.BaseName, fn.PrettyName(), fmt.Sprintf("0x%x", fn.VirtualAddress)})
			}
		})
	}
	table.Render()
	return nil
}
