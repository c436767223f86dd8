package bridge

import (
	"net"
	"os"
	"strconv"

	"kernel.org/pub/linux/libs/security/libcap/cap"
)

func isPrivilegedPort(addr string) bool {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	port, _ := strconv.Atoi(portStr)
	return port > 0 && port < 1024
}

func hasBindCapability() bool {
	if os.Getuid() == 0 {
		return true
	}
	hasBindCap := false
	if cv, err := cap.FromName("cap_net_bind_service"); err == nil {
		hasBindCap, _ = cap.GetProc().GetFlag(cap.Effective, cv)
	}
	return hasBindCap
}
