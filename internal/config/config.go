// Package config parses the node's CLI flag surface into an immutable
// record consumed at start-up.
package config

import (
	"errors"
	"flag"
	"fmt"
	"net"

	"github.com/google/uuid"
)

// ErrConfig wraps every fatal start-up configuration problem: a missing
// required flag or a value that fails to parse.
type ErrConfig struct {
	Err error
}

func (e *ErrConfig) Error() string { return "config: " + e.Err.Error() }
func (e *ErrConfig) Unwrap() error { return e.Err }

// Config is the read-only record the node consumes at start-up. Only
// HostIP, Port, InitialPeerIP, and AdvertisedIP affect core behavior;
// GroupIdentifier is stored but not read by the node or the REPL, and
// IsServerMode only toggles the external CLI/log collaborators.
type Config struct {
	HostIP             string
	Port               uint16
	GroupIdentifier    string
	InitialPeerIP      string // "" if unset
	AdvertisedIP       string // "" if unset
	IsServerMode       bool
	EnableLANDiscovery bool
	NodeID             string
}

const DefaultPort uint16 = 51511

// Parse reads flags out of args (typically os.Args[1:]) and validates
// them against the CLI contract in the external interfaces section:
// --id is required unless --server is given.
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("chatnode", flag.ContinueOnError)

	hostIP := fs.String("host-ip", "0.0.0.0", "address to bind the listener to")
	port := fs.Uint("port", uint(DefaultPort), "TCP port to listen on")
	id := fs.String("id", "", "group identifier, required unless --server")
	peer := fs.String("peer", "", "optional seed peer IPv4 address")
	advertisedIP := fs.String("advertised-ip", "", "optional self-IP excluded from outbound dialing")
	server := fs.Bool("server", false, "suppress the REPL and log to stdout")
	lanDiscovery := fs.Bool("lan-discovery", false, "enable mDNS LAN peer discovery")
	nodeID := fs.String("node-id", "", "override the generated node id used for log correlation")

	if err := fs.Parse(args); err != nil {
		return Config{}, &ErrConfig{Err: err}
	}

	if *id == "" && !*server {
		return Config{}, &ErrConfig{Err: errors.New("--id is required unless --server is given")}
	}
	if *port > 65535 {
		return Config{}, &ErrConfig{Err: fmt.Errorf("--port %d out of range", *port)}
	}
	if net.ParseIP(*hostIP) == nil {
		return Config{}, &ErrConfig{Err: fmt.Errorf("--host-ip %q is not a valid address", *hostIP)}
	}
	if *peer != "" && net.ParseIP(*peer).To4() == nil {
		return Config{}, &ErrConfig{Err: fmt.Errorf("--peer %q is not a valid IPv4 address", *peer)}
	}
	if *advertisedIP != "" && net.ParseIP(*advertisedIP).To4() == nil {
		return Config{}, &ErrConfig{Err: fmt.Errorf("--advertised-ip %q is not a valid IPv4 address", *advertisedIP)}
	}

	id2 := *nodeID
	if id2 == "" {
		id2 = uuid.NewString()
	}

	return Config{
		HostIP:             *hostIP,
		Port:               uint16(*port),
		GroupIdentifier:    *id,
		InitialPeerIP:      *peer,
		AdvertisedIP:       *advertisedIP,
		IsServerMode:       *server,
		EnableLANDiscovery: *lanDiscovery,
		NodeID:             id2,
	}, nil
}
