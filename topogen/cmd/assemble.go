package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/mesitopo/datarecording"
	"github.com/sarchlab/mesitopo/hierarchy"
	"github.com/sarchlab/mesitopo/hooking"
	"github.com/sarchlab/mesitopo/monitoring"
	"github.com/sarchlab/mesitopo/netbuild"
	"github.com/sarchlab/mesitopo/sysfs"
	"github.com/sarchlab/mesitopo/topology"
)

type assembleOptions struct {
	ConfigPath   string
	Name         string
	Features     string
	RecordPath   string
	SysfsDir     string
	Verbose      bool
	ListChannels bool
	Serve        bool
	Port         int
	Open         bool
}

var assembleCmd = &cobra.Command{
	Use:   "assemble",
	Short: "Assemble a topology and report it.",
	Long: "`assemble --config system.yaml` assembles the topology described " +
		"by the config. Flags that are not set fall back on the MESITOPO_* " +
		"environment variables.",
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.SilenceUsage = true

		opts := assembleOptionsFromFlags(cmd)
		logger := log.New(os.Stderr, "", log.LstdFlags)

		t, monitor, err := assemble(opts, os.Stdout, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			atexit.Exit(1)
		}

		if opts.Serve {
			serve(monitor, t, opts)
		}

		atexit.Exit(0)
	},
}

func init() {
	rootCmd.AddCommand(assembleCmd)

	f := assembleCmd.Flags()
	f.StringP("config", "c", "", "YAML config file (MESITOPO_CONFIG)")
	f.String("name", "System", "name that all nodes are named under")
	f.String("features", "",
		"comma-separated stream features to turn on (MESITOPO_FEATURES)")
	f.String("record", "",
		"record the topology in <path>.sqlite3 (MESITOPO_RECORD)")
	f.String("sysfs", "",
		"write a sysfs cache description under this directory "+
			"(MESITOPO_SYSFS)")
	f.BoolP("verbose", "v", false, "log every assembly event")
	f.Bool("channels", false, "print every channel")
	f.Bool("serve", false, "serve the topology over HTTP until interrupted")
	f.Int("port", 0, "port of the HTTP server, random if not set")
	f.Bool("open", false, "open the served topology in a browser")
}

// stringOption returns a flag value, or the environment variable when the
// flag is not set on the command line.
func stringOption(cmd *cobra.Command, flag, env string) string {
	value, _ := cmd.Flags().GetString(flag)
	if cmd.Flags().Changed(flag) {
		return value
	}

	if envValue, ok := os.LookupEnv(env); ok {
		return envValue
	}

	return value
}

func assembleOptionsFromFlags(cmd *cobra.Command) assembleOptions {
	opts := assembleOptions{
		ConfigPath: stringOption(cmd, "config", "MESITOPO_CONFIG"),
		Features:   stringOption(cmd, "features", "MESITOPO_FEATURES"),
		RecordPath: stringOption(cmd, "record", "MESITOPO_RECORD"),
		SysfsDir:   stringOption(cmd, "sysfs", "MESITOPO_SYSFS"),
	}

	opts.Name, _ = cmd.Flags().GetString("name")
	opts.Verbose, _ = cmd.Flags().GetBool("verbose")
	opts.ListChannels, _ = cmd.Flags().GetBool("channels")
	opts.Serve, _ = cmd.Flags().GetBool("serve")
	opts.Port, _ = cmd.Flags().GetInt("port")
	opts.Open, _ = cmd.Flags().GetBool("open")

	return opts
}

func loadConfig(opts assembleOptions) (topology.Config, error) {
	config := topology.DefaultConfig()
	if opts.ConfigPath != "" {
		var err error

		config, err = topology.LoadConfig(opts.ConfigPath)
		if err != nil {
			return config, err
		}
	}

	for _, f := range strings.Split(opts.Features, ",") {
		if f = strings.TrimSpace(f); f != "" {
			config.StreamFeatures = append(config.StreamFeatures, f)
		}
	}

	return config, nil
}

// assemble builds the topology and writes everything the options ask for. The
// returned monitor has seen the whole assembly.
func assemble(
	opts assembleOptions,
	out io.Writer,
	logger *log.Logger,
) (*topology.Topology, *monitoring.Monitor, error) {
	config, err := loadConfig(opts)
	if err != nil {
		return nil, nil, err
	}

	positions := []*hooking.HookPos{hooking.HookPosTopologyAssembled}
	if opts.Verbose {
		positions = nil
	}

	monitor := monitoring.NewMonitor()
	if opts.Port != 0 {
		monitor.WithPortNumber(opts.Port)
	}

	t, err := topology.MakeBuilder().
		WithName(opts.Name).
		WithConfig(config).
		WithNetworkBuilder(netbuild.NewBuilder(logger)).
		WithHook(hooking.NewLogHook(logger, positions...)).
		WithHook(monitor).
		Build()
	if err != nil {
		return nil, nil, err
	}

	report(out, t, opts.ListChannels)

	if opts.RecordPath != "" {
		if err := record(opts.RecordPath, t); err != nil {
			return nil, nil, err
		}
	}

	if opts.SysfsDir != "" {
		d, err := sysfs.Describe(t)
		if err != nil {
			return nil, nil, err
		}

		if err := sysfs.Write(opts.SysfsDir, d); err != nil {
			return nil, nil, err
		}
	}

	return t, monitor, nil
}

func report(out io.Writer, t *topology.Topology, listChannels bool) {
	fmt.Fprintf(out, "%s\n", t)
	fmt.Fprintf(out, "build: %s\n", t.BuildID())

	for _, role := range hierarchy.Roles {
		if n := t.NumNodes(role); n > 0 {
			fmt.Fprintf(out, "%-10s %d\n", role, n)
		}
	}

	fmt.Fprintf(out, "sequencers %d\n", len(t.Sequencers()))
	fmt.Fprintf(out, "groups     %d\n", len(t.Groups()))

	if !listChannels {
		return
	}

	for _, c := range t.Channels() {
		fmt.Fprintf(out, "%s\n", c)
	}
}

func record(path string, t *topology.Topology) error {
	r := datarecording.New(strings.TrimSuffix(path, ".sqlite3"))

	datarecording.CreateTopologyTables(r)
	datarecording.RecordTopology(r, t)

	return r.Close()
}

func serve(
	monitor *monitoring.Monitor,
	t *topology.Topology,
	opts assembleOptions,
) {
	monitor.RegisterTopology(t)
	url := monitor.StartServer()

	if opts.Open {
		if err := browser.OpenURL(url); err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open a browser: %v\n", err)
		}
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	<-interrupt
}
