package main

import (
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"github.com/go-logr/stdr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/flyx-media/streamresolver/client"
	"github.com/flyx-media/streamresolver/internal/channels"
	"github.com/flyx-media/streamresolver/internal/pow"
)

type app struct {
	v   *viper.Viper
	out io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out}

	root := &cobra.Command{
		Use:   "streamresolver",
		Short: "Resolve channel ids to playable stream references",
		Long: `streamresolver probes each configured backend for a channel in a fixed
preference order and reports the first stream that verifies, together with
the full attempt trail.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := root.PersistentFlags()
	flags.String("channels", "channels.yaml", "path to the channel table")
	flags.Int("concurrency", 4, "maximum simultaneous channel resolutions")
	flags.Duration("timeout", 8*time.Second, "per-attempt deadline")
	flags.Float64("rps", 0, "outbound requests per second (0 = unlimited)")
	flags.Bool("eager-keys", false, "fetch decryption keys during resolution")
	flags.String("proxy", "", "proxy URL for outbound requests")
	flags.Int("verbosity", 0, "log verbosity")
	flags.BoolP("verbose", "V", false, "print the full attempt trail")

	for _, name := range []string{"channels", "concurrency", "timeout", "rps", "eager-keys", "proxy", "verbosity"} {
		cobra.CheckErr(a.v.BindPFlag(name, flags.Lookup(name)))
	}
	a.v.SetConfigName("streamresolver")
	a.v.SetConfigType("yaml")
	a.v.AddConfigPath(".")
	a.v.AddConfigPath("$HOME/.streamresolver")
	a.v.SetEnvPrefix("RESOLVER")
	a.v.AutomaticEnv()
	cobra.CheckErr(a.v.BindEnv("pow_secret", "POW_SECRET"))

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := a.v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return fmt.Errorf("read config: %w", err)
			}
		}
		return nil
	}

	root.AddCommand(a.resolveCmd(), a.batchCmd(), a.channelsCmd())
	return root
}

// buildClient assembles the resolution client from flags, config file, and
// environment.
func (a *app) buildClient() (*client.Client, error) {
	table, err := channels.Load(a.v.GetString("channels"))
	if err != nil {
		return nil, fmt.Errorf("load channel table: %w", err)
	}

	params := pow.DefaultParams()
	params.Secret = []byte(a.v.GetString("pow_secret"))
	if a.v.IsSet("pow_threshold") {
		params.Threshold = a.v.GetUint64("pow_threshold")
	}
	if a.v.IsSet("pow_iterations") {
		params.MaxIterations = a.v.GetInt("pow_iterations")
		params.FallbackNonce = int64(params.MaxIterations)
	}

	stdr.SetVerbosity(a.v.GetInt("verbosity"))
	logger := stdr.New(log.New(log.Writer(), "", log.LstdFlags))

	return client.New(client.Config{
		ProxyURL:          a.v.GetString("proxy"),
		Table:             table,
		PoW:               params,
		AttemptTimeout:    a.v.GetDuration("timeout"),
		Concurrency:       a.v.GetInt("concurrency"),
		RequestsPerSecond: a.v.GetFloat64("rps"),
		EagerKeyFetch:     a.v.GetBool("eager-keys"),
		Logger:            logger.WithName("streamresolver"),
	})
}

func (a *app) resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <channel-id>",
		Short: "Resolve a single channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.buildClient()
			if err != nil {
				return err
			}
			verbose, _ := cmd.Flags().GetBool("verbose")
			res := c.ResolveChannel(cmd.Context(), args[0])
			fmt.Fprint(a.out, renderResults([]client.Result{res}, verbose))
			if !res.Resolved {
				return fmt.Errorf("channel %s did not resolve", args[0])
			}
			return nil
		},
	}
}

func (a *app) batchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch <channel-id>...",
		Short: "Resolve many channels concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.buildClient()
			if err != nil {
				return err
			}
			verbose, _ := cmd.Flags().GetBool("verbose")
			results := c.ResolveBatch(cmd.Context(), args)

			ordered := make([]client.Result, 0, len(results))
			ids := make([]string, 0, len(results))
			for id := range results {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			failed := 0
			for _, id := range ids {
				res := results[id]
				if !res.Resolved {
					failed++
				}
				ordered = append(ordered, res)
			}
			fmt.Fprint(a.out, renderResults(ordered, verbose))
			if failed > 0 {
				return fmt.Errorf("%d of %d channel(s) did not resolve", failed, len(ordered))
			}
			return nil
		},
	}
}

func (a *app) channelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "channels",
		Short: "List configured channel ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := channels.Load(a.v.GetString("channels"))
			if err != nil {
				return fmt.Errorf("load channel table: %w", err)
			}
			for _, id := range table.IDs() {
				fmt.Fprintln(a.out, id)
			}
			return nil
		},
	}
}
