package orbitctl

import (
	"encoding/json"
	"fmt"
	"io/ioutil"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/orbitcore/profiler/config"
	"github.com/orbitcore/profiler/query"
	"github.com/orbitcore/profiler/sampling"
)

var captureQueryWhere string

var captureQueryCmd = &cobra.Command{
	Use:   "query <report.json>",
	Short: "Filter a saved report with a WHERE-style boolean expression",
	Args:  cobra.ExactArgs(1),
	RunE:  wrap(runCaptureQuery),
}

func init() {
	captureCmd.AddCommand(captureQueryCmd)
	captureQueryCmd.Flags().StringVar(&captureQueryWhere, "where", "", `boolean expression over name, module, address, exclusive, inclusive, e.g. inclusive > 5 and module = "libfoo.so"`)
}

func runCaptureQuery(conf *config.Config, cmd *cobra.Command, args []string) error {
	js, err := ioutil.ReadFile(args[0])
	if err != nil {
		return errors.Wrap(err, "orbitctl: reading report")
	}
	var rows []sampling.SampledFunction
	if err := json.Unmarshal(js, &rows); err != nil {
		return errors.Wrap(err, "orbitctl: parsing report")
	}

	if captureQueryWhere != "" {
		rows, err = query.Filter(rows, captureQueryWhere)
		if err != nil {
			return errors.Wrap(err, "orbitctl: applying filter")
		}
	}

	table := defaultTable(cmd.OutOrStdout())
	table.SetHeader([]string{"Function", "Module", "Address", "Exclusive%", "Inclusive%"})
	for _, r := range rows {
		table.Append([]string{
			r.Name, r.Module,
			fmt.Sprintf("0x%x", r.Address),
			fmt.Sprintf("%.1f", r.Exclusive),
			fmt.Sprintf("%.1f", r.Inclusive),
		})
	}
	table.Render()
	return nil
}
