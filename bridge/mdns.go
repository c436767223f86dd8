package bridge

import (
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog"
)

const mdnsService = "_serialbridge._tcp"

type announcer struct {
	servers []*mdns.Server
	log     zerolog.Logger
}

// announce advertises the listening endpoint over DNS-SD on every interface
// that can reach it. Loopback endpoints are never announced.
func announce(addr net.Addr, device string, log zerolog.Logger) *announcer {
	a := &announcer{log: log}

	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		log.Warn().Stringer("addr", addr).Msg("mDNS: not a TCP address")
		return a
	}
	if tcpAddr.IP.IsLoopback() {
		log.Debug().Stringer("addr", addr).Msg("mDNS: loopback endpoint, not announcing")
		return a
	}

	hostname, err := os.Hostname()
	if err != nil {
		log.Warn().Err(err).Msg("mDNS: unable to get hostname, using \"serialbridge\"")
		hostname = "serialbridge"
	}
	if !strings.HasSuffix(hostname, ".") {
		hostname += "."
	}

	ifaces, err := announceInterfaces(tcpAddr.IP)
	if err != nil {
		log.Warn().Err(err).Msg("mDNS: unable to enumerate network interfaces")
		return a
	}
	if len(ifaces) == 0 {
		log.Warn().Msg("mDNS: no suitable interfaces found")
		return a
	}

	txt := []string{
		"device=" + device,
		fmt.Sprintf("frame=%d", FrameSize),
	}
	instance := fmt.Sprintf("serialbridge-%d", tcpAddr.Port)

	for _, ifc := range ifaces {
		service, err := mdns.NewMDNSService(
			instance, mdnsService, "local.", hostname, tcpAddr.Port, ifc.ips, txt)
		if err != nil {
			log.Warn().Err(err).Str("iface", ifc.iface.Name).Msg("mDNS: unable to create service")
			continue
		}
		server, err := mdns.NewServer(&mdns.Config{Zone: service, Iface: ifc.iface})
		if err != nil {
			log.Warn().Err(err).Str("iface", ifc.iface.Name).Msg("mDNS: unable to start server")
			continue
		}
		log.Info().Str("iface", ifc.iface.Name).Str("service", mdnsService).Msg("mDNS: announcing")
		a.servers = append(a.servers, server)
	}
	return a
}

// Shutdown stops every announcement. Safe on a nil announcer.
func (a *announcer) Shutdown() {
	if a == nil {
		return
	}
	for _, s := range a.servers {
		if err := s.Shutdown(); err != nil {
			a.log.Debug().Err(err).Msg("mDNS: unable to stop announcement")
		}
	}
	a.servers = nil
}

type announceIface struct {
	iface *net.Interface
	ips   []net.IP
}

// announceInterfaces lists the up, multicast-capable interfaces that own ip,
// or all of them when ip is unspecified, with their IPv4 addresses.
func announceInterfaces(ip net.IP) ([]announceIface, error) {
	all, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	unspecified := ip == nil || ip.IsUnspecified()
	var out []announceIface
	for i := range all {
		ifc := &all[i]
		if ifc.Flags&net.FlagUp == 0 || ifc.Flags&net.FlagLoopback != 0 ||
			ifc.Flags&net.FlagMulticast == 0 {
			continue
		}
		addrs, err := ifc.Addrs()
		if err != nil {
			continue
		}

		var ips []net.IP
		owns := unspecified
		for _, addr := range addrs {
			var aip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				aip = v.IP
			case *net.IPAddr:
				aip = v.IP
			}
			if aip == nil || aip.IsLoopback() || aip.To4() == nil {
				continue
			}
			ips = append(ips, aip)
			if aip.Equal(ip) {
				owns = true
			}
		}
		if owns && len(ips) > 0 {
			out = append(out, announceIface{iface: ifc, ips: ips})
		}
	}
	return out, nil
}
