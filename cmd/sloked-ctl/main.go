// Command sloked-ctl is the operator's toolbox: it writes and restores
// erasure-coded document checkpoints and manages the credential store the
// server loads accounts from.
package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v4"
	"github.com/vbauerster/mpb/v4/decor"

	"github.com/sloked-project/sloked/cmn/nlog"
	"github.com/sloked-project/sloked/security"
	"github.com/sloked-project/sloked/security/credtoken"
	"github.com/sloked-project/sloked/text"
	"github.com/sloked-project/sloked/text/checkpoint"
)

const masterKeySize = 32

func main() {
	app := cli.NewApp()
	app.Name = "sloked-ctl"
	app.Usage = "manage sloked checkpoints and credentials"
	app.Commands = []cli.Command{
		{
			Name:  "checkpoint",
			Usage: "write and restore erasure-coded document checkpoints",
			Subcommands: []cli.Command{
				{
					Name:      "write",
					Usage:     "snapshot a text file into checkpoint shards",
					ArgsUsage: "FILE DIR",
					Flags:     shardFlags,
					Action:    checkpointWrite,
				},
				{
					Name:      "restore",
					Usage:     "reassemble a text file from checkpoint shards",
					ArgsUsage: "DIR FILE",
					Flags:     shardFlags,
					Action:    checkpointRestore,
				},
			},
		},
		{
			Name:  "account",
			Usage: "manage the credential store",
			Subcommands: []cli.Command{
				{
					Name:      "add",
					Usage:     "create an account and persist it",
					ArgsUsage: "NAME",
					Flags: append(storeFlags,
						cli.StringFlag{Name: "password", Usage: "explicit password (randomized when absent)"},
					),
					Action: accountAdd,
				},
				{
					Name:   "list",
					Usage:  "list stored accounts",
					Flags:  storeFlags[:1],
					Action: accountList,
				},
				{
					Name:      "token",
					Usage:     "mint an inspectable session token for an account",
					ArgsUsage: "NAME",
					Flags: append(storeFlags,
						cli.StringFlag{Name: "salt", Value: "sloked-ctl", Usage: "token signing salt"},
						cli.DurationFlag{Name: "ttl", Value: time.Hour, Usage: "token lifetime"},
					),
					Action: accountToken,
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		nlog.Errorln(err)
		os.Exit(1)
	}
}

var shardFlags = []cli.Flag{
	cli.IntFlag{Name: "data", Value: 4, Usage: "data shard count"},
	cli.IntFlag{Name: "parity", Value: 2, Usage: "parity shard count"},
}

var storeFlags = []cli.Flag{
	cli.StringFlag{Name: "store", Value: "credentials.db", Usage: "credential store path"},
	cli.StringFlag{Name: "passphrase, p", Usage: "master passphrase", EnvVar: "SLOKED_PASSPHRASE"},
}

func shardName(dir string, i int) string {
	return filepath.Join(dir, fmt.Sprintf("shard-%02d.bin", i))
}

func checkpointWrite(c *cli.Context) error {
	if c.NArg() < 2 {
		return fmt.Errorf("usage: checkpoint write FILE DIR")
	}
	input, dir := c.Args().Get(0), c.Args().Get(1)
	cfg := checkpoint.Config{DataShards: c.Int("data"), ParityShards: c.Int("parity")}
	content, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	doc := text.Open(text.LF, string(content))

	writer, err := checkpoint.NewWriter(cfg)
	if err != nil {
		return err
	}
	total := cfg.DataShards + cfg.ParityShards
	bufs := make([]*bytes.Buffer, total)
	sinks := make([]io.Writer, total)
	for i := range bufs {
		bufs[i] = &bytes.Buffer{}
		sinks[i] = bufs[i]
	}
	if err := writer.Write(doc, sinks); err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	progress := mpb.New(mpb.WithOutput(c.App.Writer))
	bar := progress.AddBar(int64(total),
		mpb.PrependDecorators(decor.Name("Writing shards:")),
		mpb.AppendDecorators(decor.CountersNoUnit("%d / %d")),
	)
	for i, b := range bufs {
		if err := os.WriteFile(shardName(dir, i), b.Bytes(), 0o644); err != nil {
			return err
		}
		bar.Increment()
	}
	progress.Wait()
	fmt.Fprintf(c.App.Writer, "%d shards written to %s\n", total, dir)
	return nil
}

func checkpointRestore(c *cli.Context) error {
	if c.NArg() < 2 {
		return fmt.Errorf("usage: checkpoint restore DIR FILE")
	}
	dir, output := c.Args().Get(0), c.Args().Get(1)
	cfg := checkpoint.Config{DataShards: c.Int("data"), ParityShards: c.Int("parity")}
	total := cfg.DataShards + cfg.ParityShards

	progress := mpb.New(mpb.WithOutput(c.App.Writer))
	bar := progress.AddBar(int64(total),
		mpb.PrependDecorators(decor.Name("Reading shards:")),
		mpb.AppendDecorators(decor.CountersNoUnit("%d / %d")),
	)
	sources := make([]io.Reader, total)
	present := 0
	for i := range sources {
		data, err := os.ReadFile(shardName(dir, i))
		if err == nil {
			sources[i] = bytes.NewReader(data)
			present++
		}
		// A missing or unreadable shard stays nil; the reader reconstructs
		// it as long as losses stay within the parity budget.
		bar.Increment()
	}
	progress.Wait()

	reader, err := checkpoint.NewReader(cfg)
	if err != nil {
		return err
	}
	restored, err := reader.Read(sources)
	if err != nil {
		return err
	}
	if err := os.WriteFile(output, []byte(restored), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "restored %s from %d/%d shards\n", output, present, total)
	return nil
}

func openCredentials(c *cli.Context) (*security.Store, *security.CredentialMaster, error) {
	if c.String("passphrase") == "" {
		return nil, nil, fmt.Errorf("a passphrase is required (--passphrase or SLOKED_PASSPHRASE)")
	}
	crypto := security.NewCrypto()
	masterKey, err := crypto.DeriveKey(c.String("passphrase"), nil, masterKeySize)
	if err != nil {
		return nil, nil, err
	}
	master, err := security.NewCredentialMaster(crypto, masterKey)
	if err != nil {
		return nil, nil, err
	}
	store, err := security.OpenStore(c.String("store"))
	if err != nil {
		return nil, nil, err
	}
	return store, master, nil
}

func accountAdd(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: account add NAME")
	}
	name := c.Args().Get(0)
	store, master, err := openCredentials(c)
	if err != nil {
		return err
	}
	defer store.Close()

	var account *security.Account
	if password := c.String("password"); password != "" {
		account, err = master.NewWithPassword(name, password)
	} else {
		account, err = master.New(name)
	}
	if err != nil {
		return err
	}
	if err := store.Save(account); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "account %q saved to %s\n", name, c.String("store"))
	return nil
}

func accountList(c *cli.Context) error {
	store, err := security.OpenStore(c.String("store"))
	if err != nil {
		return err
	}
	defer store.Close()
	names, err := store.Names()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(c.App.Writer, name)
	}
	return nil
}

func accountToken(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: account token NAME")
	}
	name := c.Args().Get(0)
	store, master, err := openCredentials(c)
	if err != nil {
		return err
	}
	defer store.Close()
	if _, err := store.Load(master, name); err != nil {
		return err
	}
	issuer := credtoken.NewIssuer(master, c.String("salt"), c.Duration("ttl"))
	token, err := issuer.Issue(name)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, token)
	return nil
}
