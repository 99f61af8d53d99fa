package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	qrterminal "github.com/mdp/qrterminal/v3"

	"chatnode/internal/chain"
	"chatnode/internal/config"
	"chatnode/internal/logsink"
	"chatnode/internal/node"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Println("config error:", err)
		os.Exit(1)
	}

	sink, err := openLogSink(cfg)
	if err != nil {
		fmt.Println("log sink error:", err)
		os.Exit(1)
	}

	c := chain.New()
	n := node.New(node.Config{
		HostIP:             cfg.HostIP,
		Port:               cfg.Port,
		AdvertisedIP:       cfg.AdvertisedIP,
		NodeID:             cfg.NodeID,
		EnableLANDiscovery: cfg.EnableLANDiscovery,
	}, c, sink)

	if err := n.Start(cfg.InitialPeerIP); err != nil {
		fmt.Println("start error:", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("chatnode id=%s listening on %s:%d\n", cfg.NodeID, cfg.HostIP, cfg.Port)

	if cfg.IsServerMode {
		<-ctx.Done()
		fmt.Println("\nshutting down...")
		n.Shutdown()
		return
	}

	go repl(n, cfg)

	<-ctx.Done()
	fmt.Println("\nshutting down...")
	n.Shutdown()
}

func openLogSink(cfg config.Config) (*logsink.Sink, error) {
	if cfg.IsServerMode {
		return logsink.New(os.Stdout), nil
	}
	return logsink.NewFile("log/blockchain.log")
}

// repl implements the interactive-mode user interaction: a ">> "
// prompt, "/h" to print the numbered chain, "/p" to list peers, "/link"
// to show this node's address as a QR code, and any other non-blank
// line mines and broadcasts a chat.
func repl(n *node.Node, cfg config.Config) {
	in := bufio.NewReader(os.Stdin)
	for {
		fmt.Print(">> ")
		line, err := in.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			fmt.Println("[read err]", err)
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch line {
		case "/h":
			printChain(n)
		case "/p":
			printPeers(n)
		case "/link":
			showLinkQR(cfg)
		default:
			n.CreateAndBroadcastChat(line)
		}
	}
}

func printChain(n *node.Node) {
	for i, c := range n.GetChain() {
		fmt.Printf("%s %s\n", strconv.Itoa(i), c.String())
	}
}

func printPeers(n *node.Node) {
	for _, ip := range n.ListPeers() {
		fmt.Println(ip)
	}
}

// showLinkQR prints this node's listen address and a scannable QR code
// of it, for out-of-band peer sharing. The wire protocol itself only
// ever needs a bare IPv4 string; this is a REPL convenience on top.
func showLinkQR(cfg config.Config) {
	addr := fmt.Sprintf("%s:%d", cfg.HostIP, cfg.Port)
	fmt.Println("Share this address (or QR) so a peer can --peer= to you:")
	fmt.Println(addr)
	qrterminal.GenerateWithConfig(addr, qrterminal.Config{
		Level:     qrterminal.M,
		Writer:    os.Stdout,
		BlackChar: qrterminal.BLACK,
		WhiteChar: qrterminal.WHITE,
		QuietZone: 1,
	})
}
