package orbitctl

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orbitcore/profiler/config"
)

var targetCmd = &cobra.Command{
	Use:   "target",
	Short: "Manage saved capture targets",
}

var targetLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List saved capture targets",
	RunE:  wrap(runTargetLs),
}

var targetAddCmd = &cobra.Command{
	Use:   "add <name> <addr>",
	Short: "Save a capture target under name, dialed at addr",
	Args:  cobra.ExactArgs(2),
	RunE:  wrap(runTargetAdd),
}

func init() {
	RootCmd.AddCommand(targetCmd)
	targetCmd.AddCommand(targetLsCmd)
	targetCmd.AddCommand(targetAddCmd)
}

func runTargetLs(conf *config.Config, cmd *cobra.Command, args []string) error {
	table := defaultTable(cmd.OutOrStdout())
	table.SetHeader([]string{"Name", "Address"})
	err := conf.Targets.Walk(func(t *config.Target) error {
		table.Append([]string{string(t.Name), t.Addr})
		return nil
	})
	if err != nil {
		return err
	}
	table.Render()
	return nil
}

func runTargetAdd(conf *config.Config, cmd *cobra.Command, args []string) error {
	name, addr := config.TargetName(args[0]), args[1]
	if err := conf.Targets.Add(&config.Target{Name: name, Addr: addr, Options: conf.Defaults}); err != nil {
		return err
	}
	conf.WantSave()
	fmt.Fprintf(cmd.OutOrStdout(), "saved target %q -> %s\n", name, addr)
	return nil
}
