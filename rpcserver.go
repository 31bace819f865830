package main

import (
	"errors"
	"net"

	"github.com/abesuite/hostwallet/ledger"
	"github.com/abesuite/hostwallet/rpc/legacyrpc"
	"github.com/abesuite/hostwallet/rpc/rpcserver"
	"google.golang.org/grpc"
)

// startRPCServers starts the JSON-RPC and gRPC servers for l.  Either
// server is nil when no listener could be bound for it.
func startRPCServers(cfg *config, l *ledger.Ledger) (*grpc.Server, *legacyrpc.Server, error) {
	if cfg.NoListen {
		log.Info("RPC servers disabled by --nolisten")
		return nil, nil, nil
	}

	var (
		server       *grpc.Server
		legacyServer *legacyrpc.Server
	)

	listeners := makeListeners(cfg.GRPCListeners, net.Listen)
	if len(listeners) == 0 {
		log.Warn("Unable to create listeners for gRPC server")
	} else {
		server = grpc.NewServer()
		rpcserver.StartLedgerService(server, l)
		for _, lis := range listeners {
			lis := lis
			go func() {
				log.Infof("gRPC server listening on %s", lis.Addr())
				err := server.Serve(lis)
				log.Tracef("Finished serving gRPC: %v", err)
			}()
		}
	}

	listeners = makeListeners(cfg.RPCListeners, net.Listen)
	if len(listeners) == 0 {
		if server != nil {
			server.Stop()
		}
		err := errors.New("failed to create listeners for legacy RPC server")
		return nil, nil, err
	}
	opts := legacyrpc.Options{
		Username:            cfg.Username,
		Password:            cfg.Password,
		MaxPOSTClients:      cfg.MaxPOSTClients,
		MaxWebsocketClients: cfg.MaxWebsocketClients,
	}
	legacyServer = legacyrpc.NewServer(&opts, l, listeners)

	return server, legacyServer, nil
}

type listenFunc func(net string, laddr string) (net.Listener, error)

// makeListeners splits the normalized listen addresses into IPv4 and IPv6
// addresses and creates new net.Listeners for each with the passed listen
// func.  Invalid addresses are logged and skipped.
func makeListeners(normalizedListenAddrs []string, listen listenFunc) []net.Listener {
	ipv4Addrs := make([]string, 0, len(normalizedListenAddrs)*2)
	ipv6Addrs := make([]string, 0, len(normalizedListenAddrs)*2)
	for _, addr := range normalizedListenAddrs {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			// Shouldn't happen due to already being normalized.
			log.Errorf("`%s` is not a normalized "+
				"listener address", addr)
			continue
		}

		// Empty host or host of * on plan9 is both IPv4 and IPv6.
		if host == "" || host == "*" {
			ipv4Addrs = append(ipv4Addrs, addr)
			ipv6Addrs = append(ipv6Addrs, addr)
			continue
		}

		// Remove the IPv6 zone from the host, if present.  The zone
		// prevents ParseIP from correctly parsing the IP address.
		zoneIndex := 0
		for ; zoneIndex < len(host); zoneIndex++ {
			if host[zoneIndex] == '%' {
				break
			}
		}

		ip := net.ParseIP(host[:zoneIndex])
		switch {
		case ip == nil:
			log.Warnf("`%s` is not a valid IP address", host)
		case ip.To4() == nil:
			ipv6Addrs = append(ipv6Addrs, addr)
		default:
			ipv4Addrs = append(ipv4Addrs, addr)
		}
	}
	listeners := make([]net.Listener, 0, len(ipv6Addrs)+len(ipv4Addrs))
	for _, addr := range ipv4Addrs {
		listener, err := listen("tcp4", addr)
		if err != nil {
			log.Warnf("Can't listen on %s: %v", addr, err)
			continue
		}
		listeners = append(listeners, listener)
	}
	for _, addr := range ipv6Addrs {
		listener, err := listen("tcp6", addr)
		if err != nil {
			log.Warnf("Can't listen on %s: %v", addr, err)
			continue
		}
		listeners = append(listeners, listener)
	}
	return listeners
}
