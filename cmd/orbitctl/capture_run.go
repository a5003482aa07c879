package orbitctl

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/orbitcore/profiler/capture"
	"github.com/orbitcore/profiler/config"
	"github.com/orbitcore/profiler/intern"
	"github.com/orbitcore/profiler/process"
	"github.com/orbitcore/profiler/report"
	"github.com/orbitcore/profiler/sampling"
	"github.com/orbitcore/profiler/session"
	"github.com/orbitcore/profiler/wire"
)

var (
	captureRunTarget   string
	captureRunDuration float64
	captureRunReplay   string
	captureRunOutput   string
)

var captureRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a capture session and print the resulting report",
	RunE:  wrap(runCaptureRun),
}

func init() {
	captureCmd.AddCommand(captureRunCmd)
	captureRunCmd.Flags().StringVar(&captureRunTarget, "target", "", "tcp://host:port of the remote tracing agent")
	captureRunCmd.Flags().Float64Var(&captureRunDuration, "duration", 10, "how many seconds to sample for")
	captureRunCmd.Flags().StringVar(&captureRunReplay, "replay", "", "replay a recorded []wire.CaptureEventMsg JSON file instead of dialing --target")
	captureRunCmd.Flags().StringVar(&captureRunOutput, "output", "", "save the flattened report rows as JSON to this path")
}

func runCaptureRun(conf *config.Config, cmd *cobra.Command, args []string) error {
	defaults := conf.Defaults
	idx := process.New()
	pools := intern.New()
	agg := sampling.NewAggregator(idx)
	pools.Listener = agg.CaptureListenerForPool()

	sess := session.New(captureRunDuration)
	client := capture.NewClient(sess, agg, pools)

	events := make(chan capture.Event, 1024)

	if err := client.StartCapture(events); err != nil {
		return errors.Wrap(err, "orbitctl: starting capture")
	}

	var feedErr error
	if captureRunReplay != "" {
		feedErr = feedReplayFile(captureRunReplay, events)
	} else {
		feedErr = feedLiveTarget(captureRunTarget, captureRunDuration, defaults, events)
	}
	close(events)
	if feedErr != nil {
		return feedErr
	}

	if err := client.StopCapture(); err != nil {
		return errors.Wrap(err, "orbitctl: stopping capture")
	}

	builder := report.NewBuilder(agg, nil)
	tables := builder.Build(report.SortByThreadUsage)

	printReportTable(cmd, tables)

	if captureRunOutput != "" {
		if err := saveReportRows(captureRunOutput, tables); err != nil {
			return errors.Wrap(err, "orbitctl: saving report")
		}
	}
	return nil
}

// feedLiveTarget dials target, sends the capture defaults as a
// CaptureRequestPacket, and forwards every CaptureResponsePacket's events
// onto events until duration elapses. Serve blocks for the life of the
// connection, so it runs on its own goroutine while this one waits for
// Connected, sleeps out the capture window, then tears the link down.
func feedLiveTarget(target string, duration float64, defaults config.CaptureDefaults, events chan<- capture.Event) error {
	if target == "" {
		return errors.New("orbitctl: --target is required unless --replay is given")
	}

	connected := make(chan struct{}, 1)
	serveErr := make(chan error, 1)

	client := &wire.Client{
		Addr: target,
		Handler: wire.ClientHandler{
			Connected: func() { connected <- struct{}{} },
			OnCaptureResponse: func(resp *wire.CaptureResponsePacket) {
				for _, msg := range resp.Events {
					events <- msg.ToCaptureEvent()
				}
			},
		},
	}
	go func() { serveErr <- client.Serve() }()

	select {
	case <-connected:
	case err := <-serveErr:
		return errors.Wrap(err, "orbitctl: connecting to target")
	}

	req := &wire.CaptureRequestPacket{Options: wire.CaptureOptions{
		TraceGpuDriver:  defaults.TraceGPU,
		SamplingRate:    uint16(defaults.SamplingRate),
		UnwindingMethod: defaults.UnwindingMethod,
	}}
	if err := client.Send(req); err != nil {
		return errors.Wrap(err, "orbitctl: sending capture request")
	}

	time.Sleep(time.Duration(duration * float64(time.Second)))
	return errors.Wrap(client.Close(), "orbitctl: closing connection")
}

// feedReplayFile reads a JSON-encoded []wire.CaptureEventMsg and forwards
// it onto events, for demos and tests that have no live agent to dial.
func feedReplayFile(path string, events chan<- capture.Event) error {
	js, err := ioutil.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "orbitctl: reading replay file")
	}
	var msgs []wire.CaptureEventMsg
	if err := json.Unmarshal(js, &msgs); err != nil {
		return errors.Wrap(err, "orbitctl: parsing replay file")
	}
	for _, m := range msgs {
		events <- m.ToCaptureEvent()
	}
	return nil
}

func printReportTable(cmd *cobra.Command, tables []report.ThreadTable) {
	table := defaultTable(cmd.OutOrStdout())
	table.SetHeader([]string{"Thread", "Usage%", "Function", "Module", "Exclusive%", "Inclusive%"})
	for _, t := range tables {
		for _, fn := range t.Functions {
			table.Append([]string{
				fmt.Sprintf("%s (%d)", t.Name, t.TID),
				fmt.Sprintf("%.1f", t.AverageThreadUsage),
				fn.Name,
				fn.Module,
				fmt.Sprintf("%.1f", fn.Exclusive),
				fmt.Sprintf("%.1f", fn.Inclusive),
			})
		}
	}
	table.Render()
}

func saveReportRows(path string, tables []report.ThreadTable) error {
	var rows []sampling.SampledFunction
	for _, t := range tables {
		rows = append(rows, t.Functions...)
	}
	js, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, js, 0644)
}
