// Command sloked-server hosts the editor's named-service fabric over the
// encrypted RPC transport: it accepts slave connections, authenticates
// them against a credential store, and brokers their access to local and
// slave-bound services. A side HTTP endpoint exposes health and
// prometheus metrics for operators.
package main

import (
	"fmt"
	stdnet "net"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/sloked-project/sloked/cmn/config"
	"github.com/sloked-project/sloked/cmn/nlog"
	"github.com/sloked-project/sloked/kgr"
	kgrnet "github.com/sloked-project/sloked/kgr/net"
	slokednet "github.com/sloked-project/sloked/net"
	"github.com/sloked-project/sloked/sched"
	"github.com/sloked-project/sloked/security"
)

const masterKeySize = 32

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	app := cli.NewApp()
	app.Name = "sloked-server"
	app.Usage = "host sloked services over the encrypted RPC transport"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "listen, l", Value: "127.0.0.1:1234", Usage: "RPC listen address"},
		cli.StringFlag{Name: "status", Value: "", Usage: "HTTP status/metrics listen address (disabled when empty)"},
		cli.StringFlag{Name: "passphrase, p", Usage: "passphrase the transport key is derived from", EnvVar: "SLOKED_PASSPHRASE"},
		cli.StringFlag{Name: "accounts", Value: "", Usage: "credential store path (restores saved accounts)"},
		cli.StringFlag{Name: "salt", Value: "", Usage: "override the KDF salt"},
		cli.IntFlag{Name: "verbosity, v", Value: 0, Usage: "debug logging verbosity"},
		cli.DurationFlag{Name: "response-timeout", Value: 10 * time.Second, Usage: "RPC round-trip deadline"},
	}
	app.Action = serve
	if err := app.Run(os.Args); err != nil {
		nlog.Errorln(err)
		os.Exit(1)
	}
}

func serve(c *cli.Context) error {
	if c.String("passphrase") == "" {
		return fmt.Errorf("a passphrase is required (--passphrase or SLOKED_PASSPHRASE)")
	}
	config.GCO.Update(func(cfg *config.Config) {
		cfg.Verbosity = c.Int("verbosity")
		cfg.ResponseTimeout = c.Duration("response-timeout")
		if salt := c.String("salt"); salt != "" {
			cfg.KDFSalt = salt
		}
	})
	nlog.SetVerbosity(c.Int("verbosity"))

	crypto := security.NewCrypto()
	masterKey, err := crypto.DeriveKey(c.String("passphrase"), nil, masterKeySize)
	if err != nil {
		return err
	}
	credentials, err := security.NewCredentialMaster(crypto, masterKey)
	if err != nil {
		return err
	}
	if path := c.String("accounts"); path != "" {
		store, err := security.OpenStore(path)
		if err != nil {
			return err
		}
		defer store.Close()
		n, err := store.LoadAll(credentials)
		if err != nil {
			return err
		}
		nlog.Infof("restored %d account(s) from %s", n, path)
	}
	defaultAccount, err := credentials.EnableDefaultAccount(true)
	if err != nil {
		return err
	}

	local := kgr.NewLocalServer()
	named := kgr.NewNamedServer(local)
	defer named.Close()
	defer local.Close()

	listener, err := stdnet.Listen("tcp", c.String("listen"))
	if err != nil {
		return err
	}
	serverSocket := slokednet.NewCryptoServerSocket(listener, crypto, masterKey)
	executor := sched.NewPoolExecutor(int64(runtime.NumCPU()))
	scheduler := sched.NewWallScheduler()
	authFactory := security.NewAuthenticatorFactory(crypto, credentials, config.GCO.Get().KDFSalt)
	master := kgrnet.NewMasterServer(
		kgrnet.CryptoListener{CryptoServerSocket: serverSocket},
		named, defaultAccount, authFactory, executor, scheduler,
	)

	if addr := c.String("status"); addr != "" {
		go serveStatus(addr)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- master.Serve() }()
	nlog.Infof("listening on %s", c.String("listen"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		nlog.Infof("received %v, shutting down", sig)
		return master.Close()
	case err := <-errCh:
		master.Close()
		return err
	}
}

// serveStatus exposes /healthz and /metrics; the prometheus handler is
// adapted from net/http since client_golang has no native fasthttp
// handler.
func serveStatus(addr string) {
	started := time.Now()
	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	handler := func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/status", "/healthz":
			ctx.SetContentType("application/json")
			body, _ := jsonAPI.Marshal(map[string]interface{}{
				"status": "ok",
				"uptime": time.Since(started).String(),
			})
			ctx.SetBody(body)
		case "/metrics":
			metricsHandler(ctx)
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
		}
	}
	if err := fasthttp.ListenAndServe(addr, handler); err != nil {
		nlog.Errorf("status endpoint failed: %v", err)
	}
}
