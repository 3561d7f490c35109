package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"pkg.jsn.cam/sentireduce/internal/config"
	"pkg.jsn.cam/sentireduce/internal/master"
	"pkg.jsn.cam/sentireduce/internal/worker"
	"pkg.jsn.cam/sentireduce/pkg/executors"
	"pkg.jsn.cam/sentireduce/pkg/sentireduce"
)

const defaultMasterURL = "http://localhost:8080"

func main() {
	app := &cli.App{
		Name:  "sentireduce",
		Usage: "distributed sentiment scoring over line-oriented text",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: config.DefaultPath,
				Usage: "path to YAML config file",
			},
		},
		Commands: []*cli.Command{
			masterCommand(),
			workerCommand(),
			runCommand(),
			submitCommand(),
			jobsCommand(),
			statusCommand(),
			watchCommand(),
			resultsCommand(),
			cancelCommand(),
			executorsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// masterURL resolves the master address with priority: flag, config
// file, built-in default.
func masterURL(c *cli.Context) (string, error) {
	if url := c.String("master"); url != "" {
		return url, nil
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return "", err
	}
	if cfg.MasterURL != "" {
		return cfg.MasterURL, nil
	}

	return defaultMasterURL, nil
}

func masterCommand() *cli.Command {
	return &cli.Command{
		Name:  "master",
		Usage: "run the coordinator",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "port to listen on"},
			&cli.StringFlag{Name: "db", Usage: "path to persistence database (empty = no persistence)"},
			&cli.StringFlag{Name: "db-backend", Value: "bbolt", Usage: "persistence backend: bbolt or sqlite"},
			&cli.DurationFlag{Name: "heartbeat-timeout", Value: 30 * time.Second, Usage: "worker heartbeat timeout"},
		},
		Action: func(c *cli.Context) error {
			server, err := master.NewServer(master.Config{
				Port:             c.Int("port"),
				HeartbeatTimeout: c.Duration("heartbeat-timeout"),
				DBPath:           c.String("db"),
				DBBackend:        c.String("db-backend"),
			})
			if err != nil {
				return err
			}
			defer server.Close()

			return server.Start(c.Int("port"))
		},
	}
}

func workerCommand() *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "run a worker node",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "master", Usage: "master URL"},
			&cli.StringFlag{Name: "data-dir", Usage: "directory for intermediate data"},
			&cli.DurationFlag{Name: "poll-interval", Value: 500 * time.Millisecond, Usage: "task poll interval"},
			&cli.DurationFlag{Name: "heartbeat-interval", Value: 10 * time.Second, Usage: "heartbeat interval"},
			&cli.BoolFlag{Name: "ephemeral", Usage: "use a unique database path per worker instance"},
		},
		Action: func(c *cli.Context) error {
			url, err := masterURL(c)
			if err != nil {
				return err
			}

			dataDir := c.String("data-dir")
			if dataDir == "" {
				fileCfg, err := config.Load(c.String("config"))
				if err != nil {
					return err
				}
				dataDir = fileCfg.DataDir
			}

			node, err := worker.NewNode(worker.Config{
				MasterURL:         url,
				PollInterval:      c.Duration("poll-interval"),
				HeartbeatInterval: c.Duration("heartbeat-interval"),
				DataDir:           dataDir,
				EphemeralStorage:  c.Bool("ephemeral"),
			})
			if err != nil {
				return err
			}
			defer node.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return node.Start(ctx)
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "score a file locally without a cluster",
		ArgsUsage: "<input-file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "executor", Value: "sentiment", Usage: "executor to run"},
			&cli.IntFlag{Name: "chunk-size", Value: 64, Usage: "lines per map chunk"},
			&cli.StringFlag{Name: "output", Usage: "write results to this file instead of stdout"},
			&cli.StringFlag{Name: "positive-wordlist", Usage: "path to positive word list"},
			&cli.StringFlag{Name: "negative-wordlist", Usage: "path to negative word list"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one input file argument")
			}

			jobCfg, err := wordlistConfig(c)
			if err != nil {
				return err
			}

			w, err := executors.GetExecutor(c.String("executor"), jobCfg)
			if err != nil {
				return err
			}

			results, err := sentireduce.RunLocal(c.Args().First(), c.Int("chunk-size"), w)
			if err != nil {
				return err
			}

			if out := c.String("output"); out != "" {
				return sentireduce.WriteResults(out, results)
			}

			for _, kv := range results {
				fmt.Printf("%s: %s\n", kv.Key, kv.Value)
			}
			return nil
		},
	}
}

// wordlistConfig builds a job config from wordlist flags, falling back
// to the config file. Empty paths stay empty; the executor resolves env
// variables and built-in defaults at load time.
func wordlistConfig(c *cli.Context) (sentireduce.JobConfig, error) {
	jobCfg := sentireduce.JobConfig{
		PositiveWordlist: c.String("positive-wordlist"),
		NegativeWordlist: c.String("negative-wordlist"),
	}

	if jobCfg.PositiveWordlist != "" && jobCfg.NegativeWordlist != "" {
		return jobCfg, nil
	}

	fileCfg, err := config.Load(c.String("config"))
	if err != nil {
		return jobCfg, err
	}
	if jobCfg.PositiveWordlist == "" {
		jobCfg.PositiveWordlist = fileCfg.Wordlists.Positive
	}
	if jobCfg.NegativeWordlist == "" {
		jobCfg.NegativeWordlist = fileCfg.Wordlists.Negative
	}

	return jobCfg, nil
}

func submitCommand() *cli.Command {
	return &cli.Command{
		Name:      "submit",
		Usage:     "submit a job to the cluster",
		ArgsUsage: "<input-file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "master", Usage: "master URL"},
			&cli.StringFlag{Name: "executor", Value: "sentiment", Usage: "executor to run"},
			&cli.IntFlag{Name: "chunk-size", Value: 64, Usage: "lines per map chunk"},
			&cli.IntFlag{Name: "reduce-tasks", Value: 4, Usage: "number of reduce partitions"},
			&cli.StringFlag{Name: "output", Usage: "master-side path for the results file"},
			&cli.StringFlag{Name: "positive-wordlist", Usage: "path to positive word list"},
			&cli.StringFlag{Name: "negative-wordlist", Usage: "path to negative word list"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one input file argument")
			}

			url, err := masterURL(c)
			if err != nil {
				return err
			}

			jobCfg, err := wordlistConfig(c)
			if err != nil {
				return err
			}

			return submitJobHTTP(url, c.String("executor"), c.Args().First(),
				c.String("output"), c.Int("chunk-size"), c.Int("reduce-tasks"), jobCfg)
		},
	}
}

func jobsCommand() *cli.Command {
	return &cli.Command{
		Name:  "jobs",
		Usage: "list jobs",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "master", Usage: "master URL"},
		},
		Action: func(c *cli.Context) error {
			url, err := masterURL(c)
			if err != nil {
				return err
			}
			return listJobsHTTP(url)
		},
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "show job details",
		ArgsUsage: "<job-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "master", Usage: "master URL"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one job ID argument")
			}
			url, err := masterURL(c)
			if err != nil {
				return err
			}
			return getJobStatusHTTP(url, c.Args().First())
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "watch job progress until it finishes",
		ArgsUsage: "<job-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "master", Usage: "master URL"},
			&cli.DurationFlag{Name: "interval", Value: time.Second, Usage: "poll interval"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one job ID argument")
			}
			url, err := masterURL(c)
			if err != nil {
				return err
			}
			return watchJobHTTP(url, c.Args().First(), c.Duration("interval"))
		},
	}
}

func resultsCommand() *cli.Command {
	return &cli.Command{
		Name:      "results",
		Usage:     "print job results",
		ArgsUsage: "<job-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "master", Usage: "master URL"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one job ID argument")
			}
			url, err := masterURL(c)
			if err != nil {
				return err
			}
			return getJobResultsHTTP(url, c.Args().First())
		},
	}
}

func cancelCommand() *cli.Command {
	return &cli.Command{
		Name:      "cancel",
		Usage:     "cancel a queued or running job",
		ArgsUsage: "<job-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "master", Usage: "master URL"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one job ID argument")
			}
			url, err := masterURL(c)
			if err != nil {
				return err
			}
			return cancelJobHTTP(url, c.Args().First())
		},
	}
}

func executorsCommand() *cli.Command {
	return &cli.Command{
		Name:  "executors",
		Usage: "list available executors",
		Action: func(c *cli.Context) error {
			for _, name := range executors.ListExecutors() {
				desc, err := executors.GetDescription(name)
				if err != nil {
					return err
				}
				fmt.Printf("%-15s %s\n", name, desc)
			}
			return nil
		},
	}
}
